package domain

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
)

// Field names used as keys in ValidationError.Fields.
const (
	FieldURL         = "url"
	FieldName        = "name"
	FieldDescription = "description"
)

// Input is the raw form input for an add or edit.
// Tags is the free-text comma-separated string typed by the user.
type Input struct {
	URL         string
	Name        string
	Description string
	Tags        string
}

// Payload is the normalized body sent to the remote store on create/update.
type Payload struct {
	URL         string   `json:"url"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ValidationError carries per-field messages for inline display.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid bookmark: " + strings.Join(parts, "; ")
}

// Message returns the first field message in form order, for single-line display.
func (e *ValidationError) Message() string {
	for _, f := range []string{FieldURL, FieldName, FieldDescription} {
		if msg := e.Fields[f]; msg != "" {
			return msg
		}
	}
	return e.Error()
}

// Validate checks the input before any request is made.
// It returns nil or a *ValidationError.
func (in Input) Validate() error {
	fields := make(map[string]string)

	rawURL := strings.TrimSpace(in.URL)
	switch {
	case rawURL == "":
		fields[FieldURL] = "URL is required"
	case !IsValidURL(rawURL):
		fields[FieldURL] = "Please enter a valid URL"
	}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		fields[FieldName] = "Name is required"
	case utf8.RuneCountInString(name) > MaxNameLength:
		fields[FieldName] = fmt.Sprintf("Name must be less than %d characters", MaxNameLength)
	}

	if utf8.RuneCountInString(strings.TrimSpace(in.Description)) > MaxDescriptionLength {
		fields[FieldDescription] = fmt.Sprintf("Description must be less than %d characters", MaxDescriptionLength)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Normalize trims every field and splits the tag string.
// Call Validate first; Normalize does not reject anything.
func (in Input) Normalize() Payload {
	return Payload{
		URL:         strings.TrimSpace(in.URL),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Tags:        ParseTags(in.Tags),
	}
}

// Validate applies the same rules to an already normalized payload.
// The service uses it to re-check what clients send.
func (p Payload) Validate() error {
	return Input{
		URL:         p.URL,
		Name:        p.Name,
		Description: p.Description,
	}.Validate()
}

// ParseTags splits a comma-separated string into trimmed tags.
// Empty tokens are dropped; order is preserved.
func ParseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if t := strings.TrimSpace(part); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// JoinTags is the inverse of ParseTags, used to prefill edit forms.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// IsValidURL reports whether raw is an absolute URL with scheme and host.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

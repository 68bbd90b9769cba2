package homepage

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Homepage substitutes {{HOMEPAGE_VAR_*}} and {{HOMEPAGE_FILE_*}} at render time.
var templateVar = regexp.MustCompile(`\{\{\s*(HOMEPAGE_[A-Z0-9_]+)\s*\}\}`)

// Loader reads a Homepage bookmarks.yaml used to seed the collection.
type Loader struct {
	path   string
	lookup func(string) (string, bool)
}

func NewLoader(path string) *Loader {
	return &Loader{path: path, lookup: os.LookupEnv}
}

func (l *Loader) Path() string { return l.path }

// Load reads the file, expands template variables and parses it.
func (l *Loader) Load() (BookmarksConfig, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmarks file: %w", err)
	}
	return Parse(expandTemplateVariables(data, l.lookup))
}

// Parse decodes bookmarks.yaml content.
func Parse(data []byte) (BookmarksConfig, error) {
	var config BookmarksConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks yaml: %w", err)
	}
	return config, nil
}

// expandTemplateVariables replaces each {{HOMEPAGE_VAR_X}} with the quoted
// value of the HOMEPAGE_VAR_X environment variable, or "" when unset.
// Entries left without an href are skipped by the mapper.
func expandTemplateVariables(data []byte, lookup func(string) (string, bool)) []byte {
	return templateVar.ReplaceAllFunc(data, func(match []byte) []byte {
		name := string(templateVar.FindSubmatch(match)[1])
		val, ok := lookup(name)
		if !ok {
			return []byte(`""`)
		}
		return []byte(fmt.Sprintf("%q", val))
	})
}

package remote

import (
	"errors"
	"fmt"
)

// Op names a remote operation; it selects the fallback message.
type Op string

const (
	OpList        Op = "list"
	OpGet         Op = "get"
	OpCreate      Op = "create"
	OpUpdate      Op = "update"
	OpRemove      Op = "remove"
	OpSetFavorite Op = "favorite"
	OpListTags    Op = "tags"
)

var fallbackMessages = map[Op]string{
	OpList:        "Failed to fetch bookmarks",
	OpGet:         "Failed to fetch bookmark",
	OpCreate:      "Failed to add bookmark",
	OpUpdate:      "Failed to update bookmark",
	OpRemove:      "Failed to delete bookmark",
	OpSetFavorite: "Failed to update favorite",
	OpListTags:    "Failed to fetch tags",
}

// FallbackMessage returns the generic message used when the server gave none.
func FallbackMessage(op Op) string {
	if msg, ok := fallbackMessages[op]; ok {
		return msg
	}
	return "Request failed"
}

// Error is the structured failure returned by every Client method.
// Message is safe to show to the user.
type Error struct {
	Op      Op
	Status  int // HTTP status, 0 when the request never got a response
	Message string
	Err     error // underlying transport or decode error, may be nil
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError converts any error into an *Error for op.
// Errors that already are *Error are returned unchanged.
func AsError(op Op, err error) *Error {
	if err == nil {
		return nil
	}
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr
	}
	return &Error{Op: op, Message: FallbackMessage(op), Err: err}
}

// Message extracts the user-facing message of err, falling back per op.
func Message(op Op, err error) string {
	return AsError(op, err).Message
}

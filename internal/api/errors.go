package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultMessage is shown when a failure carries no backend message.
const DefaultMessage = "Something went wrong. Please try again."

// Error is a non-2xx reply from the backend.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string // from the body's "message" (or "error") field, may be empty
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.Status)
}

// IsConflict reports a 409 reply.
func (e *Error) IsConflict() bool {
	return e.Status == http.StatusConflict
}

// IsUnauthorized reports a 401 reply.
func (e *Error) IsUnauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

func newError(method, path string, status int, body []byte) *Error {
	return &Error{Method: method, Path: path, Status: status, Message: extractMessage(body)}
}

func extractMessage(body []byte) string {
	var payload struct {
		Message any `json:"message"`
		Error   any `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, candidate := range []any{payload.Message, payload.Error} {
		if s, ok := candidate.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// MessageOr returns the human-readable message carried by err, or fallback
// when there is none.
func MessageOr(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if strings.TrimSpace(fallback) == "" {
		return DefaultMessage
	}
	return fallback
}

package state

import (
	"errors"
	"strings"
)

var (
	// ErrMissingCredentials means the call was not attempted.
	ErrMissingCredentials = errors.New("missing uid or token")
	// ErrUnknownOutcome means the mutation applied but the refetch failed;
	// refetch later instead of retrying the write.
	ErrUnknownOutcome = errors.New("change saved but refresh failed")
	// ErrConflict means another party changed the resource first.
	ErrConflict = errors.New("conflict")
)

// RequireCredentials checks the preconditions shared by authenticated calls.
func RequireCredentials(values ...string) error {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return ErrMissingCredentials
		}
	}
	return nil
}

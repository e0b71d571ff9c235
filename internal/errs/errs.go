// Package errs defines the failure taxonomy shared by the job pipeline.
// Errors are tagged with a sentinel marker via %w wrapping so callers can
// classify them with errors.Is without depending on message text.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing audio source, job record, or artifact.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks malformed request parameters.
	ErrValidation = errors.New("validation error")
	// ErrConflict marks an operation refused by the job's current state,
	// such as deleting an in-progress job or cancelling a finished one.
	ErrConflict = errors.New("conflict")
	// ErrExternal marks a non-2xx response from a generation backend or a
	// non-zero exit from the external renderer.
	ErrExternal = errors.New("external service failure")
	// ErrTimeout marks an external call that exceeded its bound.
	ErrTimeout = errors.New("timeout")
	// ErrInternal marks an unexpected fault during extraction or orchestration.
	ErrInternal = errors.New("internal fault")
)

// MaxErrorLen bounds the diagnostic text persisted on a failed job.
const MaxErrorLen = 500

// Wrap tags err (or a bare detail string) with the given marker.
func Wrap(marker error, detail string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify returns the diagnostic class name for an error, used as the
// prefix of the persisted failure text.
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrValidation):
		return "Validation"
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	case errors.Is(err, ErrExternal):
		return "ExternalServiceFailure"
	default:
		return "InternalFault"
	}
}

// Truncate bounds a diagnostic string to MaxErrorLen runes.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxErrorLen {
		return s
	}
	return string(r[:MaxErrorLen])
}

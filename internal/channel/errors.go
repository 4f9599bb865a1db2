package channel

import (
	"errors"
	"fmt"

	"github.com/roach88/orcsym/internal/regerr"
)

// ConflictError is returned when a channel exists with a different data
// kind than the one requested, or when a zero type probes an existing
// channel.
type ConflictError struct {
	Name     string
	Existing Type
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("channel %q exists with type %s", e.Name, e.Existing)
}

// ErrorCode classifies the error as Conflict.
func (e *ConflictError) ErrorCode() regerr.Code {
	return regerr.Conflict
}

// ExistingType extracts the existing channel type from a ConflictError.
// Uses errors.As to handle wrapped errors.
func ExistingType(err error) (Type, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Existing, true
	}
	return 0, false
}

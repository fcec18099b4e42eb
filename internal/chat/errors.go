package chat

import (
	"errors"
	"fmt"
)

// Caller-facing error taxonomy. Handlers map these onto HTTP statuses;
// anything else is treated as a storage failure.
var (
	ErrValidation      = errors.New("validation failed")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyMember   = errors.New("already a member")
	ErrNotMember       = errors.New("not a member")
	ErrPartialDeletion = errors.New("group deletion incomplete")
)

// RedactionPlaceholder replaces the content of a message deleted for
// everyone. The record shell stays in history.
const RedactionPlaceholder = "This message was deleted"

func requiredField(name string) error {
	return fmt.Errorf("%w: %s is required", ErrValidation, name)
}

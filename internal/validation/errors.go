package validation

import (
	"errors"
	"fmt"
)

var (
	// ErrMissing marks a required field without a value.
	ErrMissing = errors.New("is required")
	// ErrFormat marks a field whose value is malformed.
	ErrFormat = errors.New("invalid format")

	errNameLength      = fmt.Errorf("%w: must be between %d and %d characters", ErrFormat, NameMinLength, NameMaxLength)
	errNamePattern     = fmt.Errorf("%w: must contain only lowercase letters, digits and hyphens, starting and ending with a letter or digit", ErrFormat)
	errNameDoubleDash  = fmt.Errorf("%w: must not contain consecutive hyphens", ErrFormat)
	errCIDRInvalid     = fmt.Errorf("%w: invalid CIDR (expected: x.x.x.x/xx)", ErrFormat)
	errCIDRNotNetwork  = fmt.Errorf("%w: CIDR has host bits set", ErrFormat)
	errCIDRNotInParent = fmt.Errorf("%w: subnet is not inside the network CIDR", ErrFormat)
)

// FieldError is a validation error of one field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

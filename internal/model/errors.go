package model

import (
	"errors"
	"fmt"
)

// ErrMalformedBill is matched by every InputError.
var ErrMalformedBill = errors.New("malformed bill")

// InputError reports a bill that cannot be audited as given.
type InputError struct {
	Field  string // e.g. "line_items" or "line_items[2].service"
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrMalformedBill, e.Field, e.Reason)
}

func (e *InputError) Is(target error) bool {
	return target == ErrMalformedBill
}

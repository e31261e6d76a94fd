package filter

import (
	"errors"
	"fmt"
)

var ErrFilterInput = errors.New("invalid filter input")

// FilterInputError rejects a query before any row is looked at.
type FilterInputError struct {
	Field  string
	Reason string
}

func (e *FilterInputError) Error() string {
	return fmt.Sprintf("invalid filter input: %s: %s", e.Field, e.Reason)
}

func (e *FilterInputError) Unwrap() error {
	return ErrFilterInput
}

package services

import (
	"errors"
	"fmt"
)

// ValidationError reports invalid or missing input. Missing, when populated,
// flags each required field the client omitted.
type ValidationError struct {
	Message string
	Missing map[string]bool
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrFieldNotOwned is returned when a supplied field reference does not
// exist or belongs to another user. The two cases are deliberately
// indistinguishable.
var ErrFieldNotOwned = errors.New("field not found or inaccessible")

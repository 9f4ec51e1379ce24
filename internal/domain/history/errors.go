package history

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrValidation is the kind of every rejected append.
var ErrValidation = errors.New("validation failed")

// Validated fields.
const (
	FieldTime  = "time"
	FieldValue = "value"
)

// ValidationError describes why an observation was rejected.
type ValidationError struct {
	Field  string
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %q %s", ErrValidation, e.Field, e.Input, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error { return ErrValidation }

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

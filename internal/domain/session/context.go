package session

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidContext is matched by a ValidationError for unparseable context.
var ErrInvalidContext = errors.New("invalid JSON in context")

// invalidContextMessage is the operator-facing text of a rejected context.
const invalidContextMessage = "Invalid JSON in context"

// ValidationError reports input rejected locally, before any network call.
type ValidationError struct {
	Field string
	Cause error
}

// Error returns the message shown to the operator.
func (e *ValidationError) Error() string {
	return invalidContextMessage
}

// Unwrap exposes the parse failure.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is(err, ErrInvalidContext).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidContext
}

// ParseContext decodes the optional context text. Blank text yields a nil
// map and no error. Anything other than a JSON object is rejected.
func ParseContext(text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var ctx map[string]any
	if err := json.Unmarshal([]byte(text), &ctx); err != nil {
		return nil, &ValidationError{Field: "context", Cause: err}
	}
	if ctx == nil {
		// "null" decodes without error
		return nil, &ValidationError{Field: "context", Cause: errors.New("context must be a JSON object")}
	}
	return ctx, nil
}

package receipt

import "fmt"

// MalformedError represents a shape mismatch in decoded extraction output.
type MalformedError struct {
	Field   string
	Message string
	Cause   error
}

func (e *MalformedError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("malformed extraction: %s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("malformed extraction: %s", msg)
}

func (e *MalformedError) Unwrap() error {
	return e.Cause
}

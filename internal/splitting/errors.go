package splitting

import "fmt"

// InvalidInputError represents a precondition violation in a split request.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid split input: %s", e.Message)
}

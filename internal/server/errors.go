package server

import (
	"net/http"

	"github.com/mikhail/check-split/internal/splitting"
)

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *splitting.InvalidInputError:
		return http.StatusBadRequest
	default:
		// OCR, classification and extraction failures are upstream
		// problems, not client mistakes.
		return http.StatusInternalServerError
	}
}

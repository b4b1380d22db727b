package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/company-updater/internal/updater"
)

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	var validationErr *ErrValidation
	var configErr *updater.ConfigError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &configErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

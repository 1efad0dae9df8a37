package server

import (
	"fmt"
	"net/http"
)

// ErrInvalidCredentials indicates a failed login.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid username or password"
}

// ErrAccountDisabled indicates a login to a deactivated account.
type ErrAccountDisabled struct {
	Username string
}

func (e *ErrAccountDisabled) Error() string {
	return fmt.Sprintf("account disabled: %s", e.Username)
}

// ErrValidation indicates a malformed request payload.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates a missing resource.
type ErrNotFound struct {
	Resource string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// HTTPStatus returns the status code for a service error.
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrInvalidCredentials, *ErrAccountDisabled:
		return http.StatusUnauthorized
	case *ErrValidation:
		return http.StatusBadRequest
	case *ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

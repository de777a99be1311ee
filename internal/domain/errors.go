package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSymbol      = errors.New("symbol not found")
	ErrQuoteUnavailable   = errors.New("quote service unavailable")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username and/or password")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError reports a missing or malformed form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

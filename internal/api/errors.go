package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jeovahfialho/papertrader/internal/domain"
)

// statusFor maps a domain error to the HTTP status and the message shown
// to the user.
func statusFor(err error) (int, string) {
	var validation *domain.ValidationError
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &validation):
		return fiber.StatusBadRequest, validation.Message
	case errors.Is(err, domain.ErrUnknownSymbol):
		return fiber.StatusBadRequest, "symbol not found"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return fiber.StatusBadRequest, "insufficient funds to complete purchase"
	case errors.Is(err, domain.ErrInsufficientShares):
		return fiber.StatusBadRequest, "insufficient shares to complete sale"
	case errors.Is(err, domain.ErrQuoteUnavailable):
		return fiber.StatusServiceUnavailable, "quote service unavailable, please retry"
	case errors.Is(err, domain.ErrDuplicateUsername):
		return fiber.StatusConflict, "username already exists"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return fiber.StatusForbidden, "invalid username and/or password"
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

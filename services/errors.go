package services

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Typed, user-facing error values. Every expected failure of a game action is
// one of these; handlers translate them to HTTP statuses and the message
// carries enough context to render a specific reason to the user.

// ValidationError indicates missing or malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates an unknown duel key or user.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// ForbiddenError indicates the wrong role for an action (non-host start or
// cancel, joining your own duel, non-participant submitting a score).
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// StateConflictError indicates an action invalid for the duel's current
// status, including the opponent slot already being taken.
type StateConflictError struct {
	Status  string // current duel status, echoed back to the caller
	Message string
}

func (e *StateConflictError) Error() string { return e.Message }

// RateLimitError indicates the daily or weekly duel cap was reached.
type RateLimitError struct {
	Window    string // "daily" | "weekly"
	Limit     int
	IsPremium bool
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("%s duel limit reached (%d per %s)", e.Window, e.Limit, windowUnit(e.Window))
	if !e.IsPremium {
		msg += ". Upgrade to Premium for higher limits"
	}
	return msg
}

func windowUnit(window string) string {
	if window == "weekly" {
		return "week"
	}
	return "day"
}

// ExpiredError indicates a duel key past its expiry time.
type ExpiredError struct{}

func (e *ExpiredError) Error() string { return "duel key has expired" }

// RespondError maps a service error to a fiber JSON response. Unknown errors
// become a 500 without leaking internals.
func RespondError(c *fiber.Ctx, err error) error {
	var (
		vErr  *ValidationError
		nfErr *NotFoundError
		fbErr *ForbiddenError
		scErr *StateConflictError
		rlErr *RateLimitError
		exErr *ExpiredError
	)
	switch {
	case errors.As(err, &vErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": vErr.Message, "field": vErr.Field})
	case errors.As(err, &nfErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": nfErr.Error()})
	case errors.As(err, &fbErr):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": fbErr.Message})
	case errors.As(err, &scErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": scErr.Message, "status": scErr.Status})
	case errors.As(err, &rlErr):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": rlErr.Error(), "window": rlErr.Window, "limit": rlErr.Limit})
	case errors.As(err, &exErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": exErr.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "internal error"})
}

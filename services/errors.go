// services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorKind classifies workflow failures so callers can react without parsing messages.
type ErrorKind string

const (
	KindValidation             ErrorKind = "validation_error"
	KindNotFound               ErrorKind = "not_found"
	KindConflict               ErrorKind = "conflict"
	KindWalletInvalid          ErrorKind = "wallet_invalid"
	KindPaymentDispatch        ErrorKind = "payment_dispatch_error"
	KindPaymentFailed          ErrorKind = "payment_failed"
	KindConfirmationTimeout    ErrorKind = "confirmation_timeout"
	KindInvalidTransition      ErrorKind = "invalid_transition"
	KindAggregateInconsistency ErrorKind = "aggregate_inconsistency"
	KindInternal               ErrorKind = "internal"
)

// ReviewError is the error type returned by the store and the review workflow.
type ReviewError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ReviewError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ReviewError) Unwrap() error {
	return e.Err
}

// Is matches on kind, so errors.Is(err, ErrNotFound) works for any not-found error.
func (e *ReviewError) Is(target error) bool {
	t, ok := target.(*ReviewError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrValidation             = &ReviewError{Kind: KindValidation, Message: "invalid input"}
	ErrNotFound               = &ReviewError{Kind: KindNotFound, Message: "not found"}
	ErrConflict               = &ReviewError{Kind: KindConflict, Message: "conflict"}
	ErrWalletInvalid          = &ReviewError{Kind: KindWalletInvalid, Message: "wallet invalid"}
	ErrPaymentDispatch        = &ReviewError{Kind: KindPaymentDispatch, Message: "payment dispatch failed"}
	ErrPaymentFailed          = &ReviewError{Kind: KindPaymentFailed, Message: "payment failed"}
	ErrConfirmationTimeout    = &ReviewError{Kind: KindConfirmationTimeout, Message: "confirmation timed out"}
	ErrInvalidTransition      = &ReviewError{Kind: KindInvalidTransition, Message: "invalid status transition"}
	ErrAggregateInconsistency = &ReviewError{Kind: KindAggregateInconsistency, Message: "aggregate recompute failed"}
)

func newError(kind ErrorKind, err error, format string, args ...any) *ReviewError {
	return &ReviewError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or KindInternal for anything unclassified.
func KindOf(err error) ErrorKind {
	var re *ReviewError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}

// StatusCode maps an error to the HTTP status the handlers answer with.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation, KindWalletInvalid:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict, KindInvalidTransition:
		return fiber.StatusConflict
	case KindPaymentDispatch, KindPaymentFailed:
		return fiber.StatusBadGateway
	case KindConfirmationTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the standard {"error", "kind"} body.
func respondError(c *fiber.Ctx, err error) error {
	status := StatusCode(err)
	msg := err.Error()
	var re *ReviewError
	if errors.As(err, &re) {
		msg = re.Message
	}
	if status == fiber.StatusInternalServerError {
		zap.L().Error("request failed", zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
		msg = "internal server error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg, "kind": KindOf(err)})
}

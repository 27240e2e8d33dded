package apierror

import (
	"context"
	"errors"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// Error codes of the JSON error body.
const (
	CodeBadRequest        = "bad_request"
	CodeInvalidArgument   = "invalid_argument"
	CodeInsufficientStock = "insufficient_stock"
	CodeNotFound          = "not_found"
	CodeConflict          = "conflict"
	CodeDuplicate         = "duplicate"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeStorage           = "storage_failure"
	CodeInternal          = "internal"
)

// Body is the error envelope returned by every endpoint.
type Body struct {
	Code   string            `json:"code"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Classify maps an error to its HTTP status and error code.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInsufficientStock):
		return fiber.StatusBadRequest, CodeInsufficientStock
	case errors.Is(err, model.ErrNotFound):
		return fiber.StatusNotFound, CodeNotFound
	case errors.Is(err, model.ErrInvalidArgument):
		return fiber.StatusUnprocessableEntity, CodeInvalidArgument
	case errors.Is(err, model.ErrConflict):
		return fiber.StatusConflict, CodeConflict
	case errors.Is(err, model.ErrDuplicate):
		return fiber.StatusConflict, CodeDuplicate
	case errors.Is(err, model.ErrUnauthorized):
		return fiber.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, model.ErrForbidden):
		return fiber.StatusForbidden, CodeForbidden
	case errors.Is(err, model.ErrStorage):
		return fiber.StatusServiceUnavailable, CodeStorage
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable, CodeStorage
	}
	return fiber.StatusInternalServerError, CodeInternal
}

// Write sends err as an error envelope. Server side failures are logged and
// their details are not exposed.
func Write(c *fiber.Ctx, err error) error {
	status, code := Classify(err)
	body := Body{Code: code, Error: err.Error()}

	var verr *model.ValidationError
	if errors.As(err, &verr) {
		body.Error = "validation failed"
		body.Fields = verr.Fields
	}

	if status >= fiber.StatusInternalServerError {
		logger.Error(c.UserContext()).
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Msg("Request failed")
		if code == CodeStorage {
			body.Error = "storage temporarily unavailable"
		} else {
			body.Error = "internal server error"
		}
	}

	return c.Status(status).JSON(body)
}

// New sends an error envelope with an explicit status.
func New(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(Body{Code: code, Error: message})
}

// Handler is a fiber.Config ErrorHandler that renders fiber errors and
// panics recovered by middleware in the same envelope.
func Handler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := CodeBadRequest
		switch fe.Code {
		case fiber.StatusNotFound:
			code = CodeNotFound
		case fiber.StatusUnauthorized:
			code = CodeUnauthorized
		case fiber.StatusForbidden:
			code = CodeForbidden
		case fiber.StatusInternalServerError:
			code = CodeInternal
		}
		return New(c, fe.Code, code, fe.Message)
	}
	return Write(c, err)
}

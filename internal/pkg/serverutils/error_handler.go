package serverutils

import (
	"errors"

	"skalgpt-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts handler errors into the JSON envelope.
// Only validation messages reach the client verbatim; everything else is
// reduced to a generic message.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := MapError(err)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

func MapError(err error) (int, string) {
	var fiberErr *fiber.Error
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, apperror.ErrUnauthorized):
		return fiber.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, apperror.ErrSessionNotFound):
		return fiber.StatusNotFound, "Session not found"
	case errors.Is(err, apperror.ErrConfiguration):
		return fiber.StatusInternalServerError, "Server configuration error"
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	default:
		return fiber.StatusInternalServerError, "An internal error occurred"
	}
}

package middleware

import (
	"dorm-exchange-backend/internal/pkg/apperror"
	"dorm-exchange-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the global error handler. Returns the standard error format.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if e := apperror.As(err); e != nil {
		return response.FromError(c, e)
	}

	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	return response.Error(c, message, code, map[string]interface{}{})
}

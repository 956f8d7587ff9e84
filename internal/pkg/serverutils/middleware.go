// FILE: internal/pkg/serverutils/middleware.go
package serverutils

import (
	"errors"

	"agui-policy-be/pkg/patch"
	"agui-policy-be/pkg/schema"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors bubbled out of handlers into the
// standard response envelope. Patch and schema failures are the
// client's fault; everything else is a 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var patchErr *patch.Error
		if errors.As(err, &patchErr) {
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(fiber.StatusBadRequest, "Invalid patch: "+patchErr.Error()))
		}

		var validationErr *schema.ValidationError
		if errors.As(err, &validationErr) {
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(fiber.StatusBadRequest, validationErr.Error()))
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, err.Error()))
	}
}

package serverutils

import (
	"errors"

	"madlen-ai-be/internal/pkg/logger"
	"madlen-ai-be/pkg/openrouter"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts service errors into FastAPI-style
// {"detail": ...} responses so the existing frontend keeps working.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status, detail := classifyError(err)
		if status >= fiber.StatusInternalServerError {
			log.Error("http", "Unhandled request error", map[string]interface{}{
				"path":  ctx.Path(),
				"error": err.Error(),
			})
		}

		return ctx.Status(status).JSON(fiber.Map{"detail": detail})
	}
}

func classifyError(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Message
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	var rateLimited *openrouter.RateLimitError
	if errors.As(err, &rateLimited) {
		return fiber.StatusTooManyRequests, rateLimited.Error()
	}

	var notFound *openrouter.ModelNotFoundError
	if errors.As(err, &notFound) {
		return fiber.StatusNotFound, notFound.Error()
	}

	var invalid *openrouter.InvalidModelError
	if errors.As(err, &invalid) {
		return fiber.StatusBadRequest, invalid.Error()
	}

	var timeout *openrouter.TimeoutError
	if errors.As(err, &timeout) {
		return fiber.StatusGatewayTimeout, timeout.Error()
	}

	var upstream *openrouter.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status, upstream.Error()
	}

	return fiber.StatusInternalServerError, "Internal Service Error: " + err.Error()
}

package serverutils

import "github.com/gofiber/fiber/v2"

// AppError is a request-scoped error with a fixed HTTP status. The message
// is safe to echo to the caller.
type AppError struct {
	Status  int
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// NewNotFound deliberately carries no detail about whether the resource
// exists for another user.
func NewNotFound(message string) *AppError {
	return &AppError{Status: fiber.StatusNotFound, Message: message}
}

func NewBadRequest(message string) *AppError {
	return &AppError{Status: fiber.StatusBadRequest, Message: message}
}

package serverutils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// BaseResponse is the uniform API envelope.
type BaseResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) BaseResponse[T] {
	return BaseResponse[T]{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// NewValidationError signals a rejected request: nothing was mutated.
func NewValidationError(message string) error {
	return fiber.NewError(fiber.StatusBadRequest, message)
}

// NewNotFoundError signals an unknown session/job id.
func NewNotFoundError(kind string, id interface{}) error {
	return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("%s not found: %v", kind, id))
}

var validate = validator.New()

// ValidateRequest runs struct-tag validation and converts failures into a
// 400 with a readable field list.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msg := "validation failed:"
			for _, fe := range verrs {
				msg += fmt.Sprintf(" %s (%s);", fe.Field(), fe.Tag())
			}
			return fiber.NewError(fiber.StatusBadRequest, msg)
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// ErrorHandlerMiddleware converts errors escaping handlers into the envelope.
// fiber.Error keeps its status code; anything else is a 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		return ctx.Status(code).JSON(BaseResponse[any]{
			Success: false,
			Message: err.Error(),
		})
	}
}

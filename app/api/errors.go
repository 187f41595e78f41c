package api

import (
	"errors"
	"fmt"

	"docgenius/model"
	"docgenius/types"

	"github.com/gofiber/fiber/v2"
)

func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiError, ok := err.(Error); ok {
		return c.Status(apiError.Code).JSON(apiError)
	}
	if valError, ok := err.(ValidationError); ok {
		return c.Status(valError.Status).JSON(valError)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(NewError(fiberErr.Code, fiberErr.Message))
	}

	apiError := fromDomain(err)
	return c.Status(apiError.Code).JSON(apiError)
}

// fromDomain maps core errors onto HTTP answers so handlers can return them
// untranslated.
func fromDomain(err error) Error {
	var svcErr *model.ServiceError
	switch {
	case errors.Is(err, types.ErrEmptyCorpus):
		return NewError(fiber.StatusBadRequest, "add pdf or text files before initializing the chatbot")
	case errors.Is(err, types.ErrBuildSuperseded):
		return NewError(fiber.StatusConflict, "a newer initialization replaced this one")
	case errors.As(err, &svcErr):
		return NewError(fiber.StatusBadGateway, svcErr.Error())
	default:
		var cfgErr types.InvalidConfigError
		if errors.As(err, &cfgErr) {
			return NewError(fiber.StatusBadRequest, cfgErr.Error())
		}
	}
	return NewError(fiber.StatusInternalServerError, err.Error())
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrNotFound[T any](arg T, resource string) Error {
	return Error{
		Code:    fiber.StatusNotFound,
		Message: fmt.Sprintf("%s with %v not found", resource, arg),
	}
}

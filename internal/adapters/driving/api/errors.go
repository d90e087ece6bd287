package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// Error is the JSON body returned for every failed request.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the error interface.
func (e Error) Error() string {
	return e.Message
}

// NewError creates an Error with the given status code.
func NewError(code int, msg string) Error {
	return Error{
		Code:    code,
		Message: msg,
	}
}

// ValidationError reports request fields that failed validation.
type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

// NewValidationError creates a 422 ValidationError.
func NewValidationError(errs map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errs,
	}
}

// ErrBadRequest is returned when the body cannot be decoded.
func ErrBadRequest(msg string) Error {
	return NewError(fiber.StatusBadRequest, msg)
}

// ErrDocumentNotFound is returned for unknown document IDs.
func ErrDocumentNotFound(id string) Error {
	return NewError(fiber.StatusNotFound, fmt.Sprintf("document with id %s not found", id))
}

// statusCodes maps sentinel errors to HTTP status codes.
// Order matters: the first match wins.
var statusCodes = []struct {
	err  error
	code int
}{
	{domain.ErrNotFound, fiber.StatusNotFound},
	{domain.ErrUnknownParser, fiber.StatusBadRequest},
	{domain.ErrUnsupportedFormat, fiber.StatusUnsupportedMediaType},
	{domain.ErrFileTooLarge, fiber.StatusRequestEntityTooLarge},
	{domain.ErrEmptyContent, fiber.StatusBadRequest},
	{domain.ErrInvalidInput, fiber.StatusBadRequest},
	{domain.ErrInvalidTransition, fiber.StatusConflict},
	{domain.ErrDocumentNotReady, fiber.StatusConflict},
	{domain.ErrLLMTimeout, fiber.StatusGatewayTimeout},
	{domain.ErrLLMUnavailable, fiber.StatusServiceUnavailable},
	{domain.ErrRetrievalFailed, fiber.StatusServiceUnavailable},
	{domain.ErrEmbeddingUnavailable, fiber.StatusServiceUnavailable},
	{domain.ErrIndexUnavailable, fiber.StatusServiceUnavailable},
	{domain.ErrStoreBusy, fiber.StatusServiceUnavailable},
	{domain.ErrNotImplemented, fiber.StatusNotImplemented},
}

// StatusCode returns the HTTP status for err.
func StatusCode(err error) int {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return sc.code
		}
	}
	if domain.IsInputError(err) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders errors returned by handlers as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Code).JSON(apiErr)
	}

	var valErr ValidationError
	if errors.As(err, &valErr) {
		return c.Status(valErr.Status).JSON(valErr)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(NewError(fiberErr.Code, fiberErr.Message))
	}

	code := StatusCode(err)
	msg := err.Error()
	if code >= fiber.StatusInternalServerError {
		logger.With(
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		).Errorw("request failed")
	}
	if code == fiber.StatusInternalServerError {
		msg = "internal server error"
	}
	return c.Status(code).JSON(NewError(code, msg))
}

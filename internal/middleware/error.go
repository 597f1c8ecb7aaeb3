package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"eduplatform/internal/pkg/apperror"
	"eduplatform/internal/pkg/logger"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorHandler renders apperror and fiber errors as ErrorResponse. Server
// side failures are logged with their cause and shown with a public message.
func NewErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx, err error) error {
		status, body := toResponse(err)
		body.TraceID = traceID(c)

		if status >= fiber.StatusInternalServerError {
			log.Error(c.UserContext(), "request failed", err)
		}

		return c.Status(status).JSON(body)
	}
}

func toResponse(err error) (int, ErrorResponse) {
	if appErr := apperror.As(err); appErr != nil {
		meta := apperror.MetadataFor(appErr.Code())
		body := ErrorResponse{
			Code:    string(appErr.Code()),
			Message: appErr.Message(),
		}
		if meta.HTTPStatus >= fiber.StatusInternalServerError || body.Message == "" {
			body.Message = meta.PublicMessage
		}
		if meta.DetailsAllowed {
			body.Details = appErr.Details()
		}
		return meta.HTTPStatus, body
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, ErrorResponse{
			Code:    fiberCode(fiberErr.Code),
			Message: fiberErr.Message,
		}
	}

	return fiber.StatusInternalServerError, ErrorResponse{
		Code:    string(apperror.CodeInternal),
		Message: apperror.MetadataFor(apperror.CodeInternal).PublicMessage,
	}
}

func fiberCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return string(apperror.CodeUnauthorized)
	case fiber.StatusForbidden:
		return string(apperror.CodeForbidden)
	case fiber.StatusNotFound:
		return string(apperror.CodeNotFound)
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusConflict:
		return string(apperror.CodeConflict)
	case fiber.StatusUnprocessableEntity:
		return string(apperror.CodeValidation)
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	default:
		if status >= fiber.StatusInternalServerError {
			return string(apperror.CodeInternal)
		}
		return "ERROR"
	}
}

func traceID(c *fiber.Ctx) string {
	if id, ok := c.Locals(RequestIDContextKey).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()[:8]
}

func BadRequest(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusBadRequest, message)
}

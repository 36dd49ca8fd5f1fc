package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"nwitter-backend/internal/shared/apperror"
)

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Success responses
func Success(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error writes a failure envelope. err is attached as details only for
// client errors; server errors keep their cause in the log.
func Error(c *gin.Context, statusCode int, message string, err error) {
	body := &ErrorBody{Code: codeForStatus(statusCode), Message: message}
	if err != nil && statusCode < http.StatusInternalServerError {
		body.Details = err.Error()
	}
	c.JSON(statusCode, Response{Success: false, Error: body})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Error: &ErrorBody{
			Code:    code,
			Message: message,
		},
	})
}

// FromError maps an apperror kind to its HTTP status and writes the envelope.
// Errors outside the taxonomy become 500 and are logged.
func FromError(c *gin.Context, err error) {
	status := StatusOf(err)

	code := apperror.CodeOf(err)
	message := err.Error()
	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		message = appErr.Message
	}

	var details interface{}
	var stepErr *apperror.StepError
	if errors.As(err, &stepErr) {
		details = gin.H{"step": stepErr.Step, "failed": stepErr.Failed}
	}

	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Msg("Request failed")
	}
	if status == http.StatusInternalServerError {
		code, message = "INTERNAL_SERVER_ERROR", "Internal server error"
	}
	if code == "" {
		code = codeForStatus(status)
	}

	c.JSON(status, Response{
		Success: false,
		Error: &ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, apperror.ErrDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperror.ErrRemoteFault):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Common error responses
func BadRequest(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	}
	return "INTERNAL_SERVER_ERROR"
}

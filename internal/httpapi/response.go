package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/filestore"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

// Error codes carried in the envelope.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeTooLarge           = "PAYLOAD_TOO_LARGE"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_SERVER_ERR"
	CodeChannelHasThreads  = "CHANNEL_HAS_THREADS"
	msgOK                  = "ok"
	msgInternalServerError = "Internal server error"
)

// Response is the envelope of every JSON answer.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func ok(c echo.Context, data interface{}, message string) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data, Message: message})
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{Success: true, Data: data, Message: msgOK})
}

// statusFor maps an error onto a status code and envelope code.
func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code, codeForStatus(he.Code)
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case apperrors.IsUnauthorizedError(err):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, filestore.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, CodeTooLarge
	case apperrors.IsDependencyDegraded(err):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusRequestEntityTooLarge:
		return CodeTooLarge
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	}
	if status >= http.StatusInternalServerError {
		return CodeInternal
	}
	return http.StatusText(status)
}

// errorHandler renders every error returned by a handler as an envelope. Server-side
// failures are logged and their detail is not exposed.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, code := statusFor(err)

	message := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, isString := he.Message.(string); isString {
			message = m
		}
	}

	log := logger.FromContext(c.Request().Context())
	if status >= http.StatusInternalServerError {
		fields := []zap.Field{zap.Error(err), zap.String("route", c.Path()), zap.Int("status", status)}
		if errors.Is(err, apperrors.ErrConflict) {
			log.Error("Unresolved uniqueness conflict", fields...)
		} else {
			log.Error("Request failed", fields...)
		}
		if status == http.StatusInternalServerError {
			message = msgInternalServerError
		}
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, Response{Success: false, Message: message, Code: code})
	}
	if writeErr != nil {
		log.Warn("Failed to write error response", zap.Error(writeErr))
	}
}

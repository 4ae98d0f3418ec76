package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/salesvoice/salesvoice/internal/activity"
	"github.com/salesvoice/salesvoice/internal/logging"
)

// ErrorResponse is the envelope for all error responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the machine-readable code and human-readable message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler maps domain errors onto HTTP statuses. Validation failures
// are the caller's fault, missing records are 404, everything else is a
// 500 with the detail kept server-side.
func errorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := ErrorBody{Code: "internal_error", Message: "internal server error"}

		var verr *activity.ValidationError
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &verr):
			status = http.StatusBadRequest
			body = ErrorBody{Code: "validation_error", Message: verr.Error()}
		case errors.Is(err, activity.ErrNotFound):
			status = http.StatusNotFound
			body = ErrorBody{Code: "not_found", Message: "activity not found"}
		case errors.As(err, &httpErr):
			status = httpErr.Code
			body = ErrorBody{Code: codeForStatus(status), Message: messageOf(httpErr)}
		default:
			logger.Error(c.Request().Context(), "request failed",
				zap.String("uri", c.Request().RequestURI), zap.Error(err))
		}

		if writeErr := c.JSON(status, ErrorResponse{Error: body}); writeErr != nil {
			logger.Error(c.Request().Context(), "writing error response failed", zap.Error(writeErr))
		}
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "internal_error"
	}
}

func messageOf(err *echo.HTTPError) string {
	if msg, ok := err.Message.(string); ok {
		return msg
	}
	return http.StatusText(err.Code)
}

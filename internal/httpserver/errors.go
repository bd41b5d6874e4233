package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/herb_shop/internal/service"
	"github.com/Skotchmaster/herb_shop/internal/transport"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err under event and writes the {"error": ...} payload. Server side
// failures never expose the wrapped error text.
func fail(c echo.Context, l *slog.Logger, event string, err error) error {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusBadGateway:
		l.Error(event, "status", status, "reason", "payment provider failure", "error", err)
		msg = "payment provider unavailable"
	case status >= 500:
		l.Error(event, "status", status, "error", err)
		msg = "internal error"
	default:
		l.Warn(event, "status", status, "error", err)
	}
	return c.JSON(status, transport.ErrorResponse{Error: msg})
}

func badRequest(c echo.Context, l *slog.Logger, event, reason string) error {
	l.Warn(event, "status", http.StatusBadRequest, "reason", reason)
	return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: reason})
}

// errorHandler renders errors that escape handlers, such as middleware
// rejections and recovered panics, in the same {"error": ...} shape.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := "internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if status < http.StatusInternalServerError {
			msg = fmt.Sprint(he.Message)
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, transport.ErrorResponse{Error: msg})
}

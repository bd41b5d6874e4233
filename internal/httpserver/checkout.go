package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/herb_shop/internal/logging"
	"github.com/Skotchmaster/herb_shop/internal/middleware/session"
	"github.com/Skotchmaster/herb_shop/internal/service"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 64 << 10
)

type CheckoutHTTP struct {
	Svc   *service.CheckoutService
	Views *ViewHTTP
}

// Confirm serves the provider's success redirect. The cart is cleared only when
// the provider confirms the session is paid.
func (h *CheckoutHTTP) Confirm(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.confirm")

	userID, _ := session.UserID(c)
	status, err := h.Svc.ConfirmRedirect(ctx, userID, c.QueryParam("session_id"))
	if err != nil {
		return fail(c, l, "checkout_confirm_failed", err)
	}

	view, err := h.Views.build(c, "checkout", viewOpts{})
	if err != nil {
		return fail(c, l, "checkout_confirm_failed", err)
	}
	view.CheckoutStatus = string(status)

	l.Info("checkout_confirm_rendered", "checkout_status", string(status))
	return c.JSON(http.StatusOK, view)
}

func (h *CheckoutHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.webhook")

	payload, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			l.Warn("webhook_failed", "status", http.StatusRequestEntityTooLarge, "reason", "payload too large")
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
		}
		return badRequest(c, l, "webhook_failed", "cannot read body")
	}

	if err := h.Svc.HandleWebhook(ctx, payload, c.Request().Header.Get(signatureHeader)); err != nil {
		return fail(c, l, "webhook_failed", err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

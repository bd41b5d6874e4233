package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/herb_shop/internal/logging"
	"github.com/Skotchmaster/herb_shop/internal/middleware/session"
	"github.com/Skotchmaster/herb_shop/internal/service"
)

type IdentityHTTP struct {
	Svc      *service.IdentityService
	Sessions *session.Manager
}

func (h *IdentityHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "identity.register")

	user, err := h.Svc.Register(ctx, c.FormValue("name"))
	switch {
	case errors.Is(err, service.ErrNameTooLong):
		l.Warn("register_failed", "status", http.StatusSeeOther, "reason", "name too long", "error", err)
		addFlash(c, "error", fmt.Sprintf("Hey, your name must be at most %d characters", service.MaxNameLength))
		return c.Redirect(http.StatusSeeOther, "/herbs")
	case errors.Is(err, service.ErrValidation):
		l.Warn("register_failed", "status", http.StatusSeeOther, "reason", "name too short", "error", err)
		addFlash(c, "error", fmt.Sprintf("Hey, your name must be at least %d characters", service.MinNameLength))
		return c.Redirect(http.StatusSeeOther, "/herbs")
	case errors.Is(err, service.ErrConflict):
		l.Warn("register_failed", "status", http.StatusSeeOther, "reason", "name taken")
		addFlash(c, "error", "Please register with a different name")
		return c.Redirect(http.StatusSeeOther, "/home")
	case err != nil:
		return fail(c, l, "register_failed", err)
	}

	if err := h.Sessions.Issue(c, user.ID, user.Name); err != nil {
		return fail(c, l, "register_failed", err)
	}

	l.Info("register_success", "user_id", user.ID)
	return c.Redirect(http.StatusSeeOther, "/herbs")
}

func (h *IdentityHTTP) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "identity.delete_user")

	id, err := parseID(c.Param("id"))
	if err != nil {
		return badRequest(c, l, "delete_user_failed", "id must be a positive integer")
	}
	actor, _ := session.UserID(c)

	if err := h.Svc.DeleteUser(ctx, actor, id); err != nil {
		return fail(c, l, "delete_user_failed", err)
	}

	h.Sessions.Clear(c)
	l.Info("delete_user_success", "user_id", id)
	return c.Redirect(http.StatusSeeOther, "/home")
}

func (h *IdentityHTTP) DeleteCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "identity.delete_cart")

	id, err := parseID(c.Param("id"))
	if err != nil {
		return badRequest(c, l, "delete_cart_failed", "id must be a positive integer")
	}
	actor, _ := session.UserID(c)

	if err := h.Svc.DeleteCart(ctx, actor, id); err != nil {
		return fail(c, l, "delete_cart_failed", err)
	}

	l.Info("delete_cart_success", "cart_id", id)
	return c.Redirect(http.StatusSeeOther, "/home")
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, strconv.ErrRange
	}
	return uint(n), nil
}

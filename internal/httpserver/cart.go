package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/herb_shop/internal/logging"
	"github.com/Skotchmaster/herb_shop/internal/middleware/session"
	"github.com/Skotchmaster/herb_shop/internal/service"
	"github.com/Skotchmaster/herb_shop/internal/transport"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) AddProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_product")

	target, err := parseID(c.Param("user_id"))
	if err != nil {
		return badRequest(c, l, "add_product_failed", "user_id must be a positive integer")
	}
	userID, _ := session.UserID(c)
	if target != userID {
		l.Warn("add_product_failed", "status", http.StatusForbidden, "reason", "foreign cart", "target_user_id", target)
		return c.JSON(http.StatusForbidden, transport.ErrorResponse{Error: "cannot add to another user's cart"})
	}

	var clientPrice *int64
	if raw := strings.TrimSpace(c.FormValue("price")); raw != "" {
		p, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return badRequest(c, l, "add_product_failed", "price must be an integer")
		}
		clientPrice = &p
	}

	line, err := h.Svc.AddItem(ctx, userID, c.FormValue("title"), clientPrice)
	if err != nil {
		return fail(c, l, "add_product_failed", err)
	}

	l.Info("add_product_success", "title", line.Title, "count", line.Count)
	return h.respond(c, l, userID, transport.CartMutationResponse{Title: line.Title, Count: line.Count, Price: line.Price})
}

func (h *CartHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.del_product")

	userID, _ := session.UserID(c)
	title := c.Param("title")
	if err := h.Svc.RemoveItem(ctx, userID, title); err != nil {
		return fail(c, l, "del_product_failed", err)
	}

	l.Info("del_product_success", "title", title)
	return h.respond(c, l, userID, transport.CartMutationResponse{Title: title})
}

func (h *CartHTTP) SubQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.sub_quantity")

	userID, _ := session.UserID(c)
	title := c.Param("title")
	if err := h.Svc.DecrementItem(ctx, userID, title); err != nil {
		return fail(c, l, "sub_quantity_failed", err)
	}

	return h.respond(c, l, userID, transport.CartMutationResponse{Title: title})
}

func (h *CartHTTP) AddQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_quantity")

	userID, _ := session.UserID(c)
	line, err := h.Svc.IncrementItem(ctx, userID, c.Param("title"))
	if err != nil {
		return fail(c, l, "add_quantity_failed", err)
	}

	return h.respond(c, l, userID, transport.CartMutationResponse{Title: line.Title, Count: line.Count, Price: line.Price})
}

func (h *CartHTTP) respond(c echo.Context, l *slog.Logger, userID uint, resp transport.CartMutationResponse) error {
	total, err := h.Svc.Subtotal(c.Request().Context(), userID)
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		return fail(c, l, "subtotal_failed", err)
	}
	resp.Success = "facts"
	resp.Subtotal = total
	return c.JSON(http.StatusOK, resp)
}

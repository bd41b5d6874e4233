package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/herb_shop/internal/logging"
	"github.com/Skotchmaster/herb_shop/internal/middleware/csrf"
	"github.com/Skotchmaster/herb_shop/internal/middleware/session"
	"github.com/Skotchmaster/herb_shop/internal/service"
	"github.com/Skotchmaster/herb_shop/internal/transport"
)

type ViewHTTP struct {
	Identity *service.IdentityService
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Sessions *session.Manager
}

type viewOpts struct {
	catalog  bool
	checkout bool
}

func (h *ViewHTTP) Home(c echo.Context) error {
	return h.render(c, "home", viewOpts{catalog: true, checkout: true})
}

func (h *ViewHTTP) About(c echo.Context) error {
	return h.render(c, "about", viewOpts{checkout: true})
}

func (h *ViewHTTP) Herbs(c echo.Context) error {
	return h.render(c, "herbs", viewOpts{catalog: true, checkout: true})
}

func (h *ViewHTTP) ReturnPolicy(c echo.Context) error {
	return h.render(c, "return-policy", viewOpts{})
}

func (h *ViewHTTP) render(c echo.Context, page string, opts viewOpts) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "view."+page)

	view, err := h.build(c, page, opts)
	if err != nil {
		return fail(c, l, "render_view_failed", err)
	}
	return c.JSON(http.StatusOK, view)
}

// build collects the shared page document. A session whose user is gone is
// dropped and the page renders for an anonymous visitor.
func (h *ViewHTTP) build(c echo.Context, page string, opts viewOpts) (*transport.PageView, error) {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "view."+page)

	view := &transport.PageView{
		Page:      page,
		Cart:      []service.LineGroup{},
		CSRFToken: csrf.Token(c),
	}

	var userID uint
	if id, ok := session.UserID(c); ok {
		user, err := h.Identity.GetUser(ctx, id)
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Info("stale_session_dropped", "user_id", id)
			h.Sessions.Clear(c)
		case err != nil:
			return nil, err
		default:
			userID = user.ID
			view.User = &transport.UserView{ID: user.ID, Name: user.Name}
			if cart, err := h.Identity.CartOf(ctx, user.ID); err == nil {
				view.User.CartID = cart.ID
			}
		}
	}

	if opts.catalog {
		herbs, err := h.Catalog.List(ctx)
		if err != nil {
			return nil, err
		}
		view.Catalog = herbs
	}

	if userID != 0 {
		if err := h.fillCart(ctx, view, userID); err != nil {
			return nil, err
		}
	}

	if opts.checkout {
		handle, err := h.Checkout.BuildSession(ctx, userID)
		if err != nil {
			l.Warn("checkout_session_unavailable", "reason", "view rendered without checkout button", "error", err)
		} else {
			view.CheckoutSessionID = handle.SessionID
			view.CheckoutPublicKey = handle.PublicKey
		}
	}

	view.Flashes = popFlashes(c)
	return view, nil
}

func (h *ViewHTTP) fillCart(ctx context.Context, view *transport.PageView, userID uint) error {
	lines, err := h.Cart.Lines(ctx, userID)
	if err != nil {
		return err
	}
	view.Cart = lines

	total, err := h.Cart.Subtotal(ctx, userID)
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		return err
	}
	view.Subtotal = total
	return nil
}

package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/herb_shop/internal/middleware/csrf"
	"github.com/Skotchmaster/herb_shop/internal/middleware/session"
)

type Deps struct {
	Views    *ViewHTTP
	Identity *IdentityHTTP
	Cart     *CartHTTP
	Checkout *CheckoutHTTP
	Catalog  *CatalogHTTP
	Sessions *session.Manager

	// CSRF is nil when the check is disabled.
	CSRF  *csrf.Config
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = errorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	e.POST("/webhooks/payment", d.Checkout.Webhook)

	mw := []echo.MiddlewareFunc{d.Sessions.Load}
	if d.CSRF != nil {
		mw = append(mw, csrf.Middleware(*d.CSRF))
	}
	site := e.Group("", mw...)
	getPost := []string{http.MethodGet, http.MethodPost}
	requireUser := d.Sessions.RequireUser

	site.Match(getPost, "/", d.Views.Home)
	site.Match(getPost, "/home", d.Views.Home)
	site.GET("/about", d.Views.About)
	site.GET("/herbs", d.Views.Herbs)
	site.POST("/herbs", d.Identity.Register)
	site.GET("/herbs/search", d.Catalog.Search)
	site.GET("/return-policy", d.Views.ReturnPolicy)

	site.GET("/checkout", d.Checkout.Confirm, d.Sessions.RequireUserOrRedirect("/herbs"))
	site.POST("/add-product/:user_id", d.Cart.AddProduct, requireUser)

	site.Match(getPost, "/del-user/:id", d.Identity.DeleteUser, requireUser)
	site.Match(getPost, "/del-cart/:id", d.Identity.DeleteCart, requireUser)
	site.Match(getPost, "/del-product/:title", d.Cart.DeleteProduct, requireUser)
	site.Match(getPost, "/sub-quantity/:title", d.Cart.SubQuantity, requireUser)
	site.Match(getPost, "/add-quantity/:title", d.Cart.AddQuantity, requireUser)
}

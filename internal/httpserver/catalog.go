package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/herb_shop/internal/logging"
	"github.com/Skotchmaster/herb_shop/internal/service"
	"github.com/Skotchmaster/herb_shop/internal/util"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Svc.Search(ctx, c.QueryParam("q"), page, size)
	if err != nil {
		return fail(c, l, "search_failed", err)
	}

	l.Info("search_success", "total", res.Meta.Total)
	return c.JSON(http.StatusOK, res)
}

package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/herb_shop/internal/middleware/csrf"
	"github.com/Skotchmaster/herb_shop/internal/transport"
)

func TestMiddlewareRejections_UseErrorShape(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		form   url.Values
		status int
		msg    string
	}{
		{name: "anonymous delete", method: http.MethodGet, path: "/del-product/Sage", status: http.StatusUnauthorized, msg: "login required"},
		{name: "anonymous decrement", method: http.MethodGet, path: "/sub-quantity/Sage", status: http.StatusUnauthorized, msg: "login required"},
		{name: "anonymous add", method: http.MethodPost, path: "/add-product/1", form: url.Values{"title": {"Sage"}}, status: http.StatusUnauthorized, msg: "login required"},
		{name: "unknown route", method: http.MethodGet, path: "/no-such-page", status: http.StatusNotFound, msg: "Not Found"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.form)
			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, decode[transport.ErrorResponse](t, rec).Error)
			assert.NotContains(t, rec.Body.String(), `"message"`)
		})
	}
}

func TestCSRFRejection_UsesErrorShape(t *testing.T) {
	cfg := csrf.DefaultConfig()
	env := newTestEnvWithCSRF(t, &cfg)

	form := url.Values{"name": {"Alice"}}

	rec := env.doWithHeaders(t, http.MethodPost, "/herbs", form, map[string]string{"Origin": "http://example.com"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid CSRF token", decode[transport.ErrorResponse](t, rec).Error)

	rec = env.doWithHeaders(t, http.MethodPost, "/herbs", form, map[string]string{"Origin": "http://evil.test"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid origin", decode[transport.ErrorResponse](t, rec).Error)

	rec = env.doWithHeaders(t, http.MethodPost, "/herbs", form,
		map[string]string{"Origin": "http://example.com", "X-CSRF-Token": "tok123"},
		&http.Cookie{Name: cfg.CookieName, Value: "tok123"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestErrorHandler_HidesServerErrors(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = errorHandler
	e.GET("/boom", func(c echo.Context) error { return errors.New("dsn=postgres://secret") })
	e.GET("/gone", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "db pool exhausted")
	})

	env := &testEnv{E: e}
	for _, path := range []string{"/boom", "/gone"} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.GreaterOrEqual(t, rec.Code, http.StatusInternalServerError)
		assert.Equal(t, "internal error", decode[transport.ErrorResponse](t, rec).Error)
	}
}

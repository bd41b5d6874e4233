package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/herb_shop/internal/middleware/session"
)

func TestRegister_IssuesSessionAndShowsUser(t *testing.T) {
	env := newTestEnv(t)
	ck := env.register(t, "Alice")

	v := env.view(t, "/herbs", ck)
	require.NotNil(t, v.User)
	assert.Equal(t, "Alice", v.User.Name)
	assert.NotZero(t, v.User.CartID)
	assert.Len(t, v.Catalog, 10)
	assert.NotEmpty(t, v.CheckoutSessionID)
	assert.Equal(t, "pk_test", v.CheckoutPublicKey)
}

func TestRegister_ShortNameFlashesAndRedirects(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/herbs", url.Values{"name": {"ab"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/herbs", rec.Header().Get(echo.HeaderLocation))
	assert.Nil(t, cookieNamed(rec, session.CookieName))

	flash := cookieNamed(rec, flashCookie)
	require.NotNil(t, flash)

	v := env.view(t, "/herbs", flash)
	require.Len(t, v.Flashes, 1)
	assert.Equal(t, "error", v.Flashes[0].Category)
	assert.Nil(t, v.User)
}

func TestRegister_FlashNamesTheLengthRule(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "too short", input: "ab", want: "Hey, your name must be at least 3 characters"},
		{name: "too long", input: strings.Repeat("x", 61), want: "Hey, your name must be at most 60 characters"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/herbs", url.Values{"name": {tt.input}})
			require.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/herbs", rec.Header().Get(echo.HeaderLocation))

			flash := cookieNamed(rec, flashCookie)
			require.NotNil(t, flash)
			v := env.view(t, "/herbs", flash)
			require.Len(t, v.Flashes, 1)
			assert.Equal(t, tt.want, v.Flashes[0].Message)
		})
	}
}

func TestRegister_DuplicateRedirectsHome(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice")

	rec := env.do(t, http.MethodPost, "/herbs", url.Values{"name": {"Alice"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/home", rec.Header().Get(echo.HeaderLocation))
	assert.NotNil(t, cookieNamed(rec, flashCookie))
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bobby")

	aliceID := env.view(t, "/home", alice).User.ID

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/del-user/%d", aliceID), nil, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/del-user/9999", nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/del-user/abc", nil, bob)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/del-user/%d", aliceID), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/del-user/%d", aliceID), nil, alice)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/home", rec.Header().Get(echo.HeaderLocation))
	cleared := cookieNamed(rec, session.CookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	v := env.view(t, "/home", alice)
	assert.Nil(t, v.User)
}

func TestDeleteCart(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bobby")

	aliceView := env.view(t, "/home", alice)
	cartID := aliceView.User.CartID
	rec := env.do(t, http.MethodPost, fmt.Sprintf("/add-product/%d", aliceView.User.ID), url.Values{"title": {"Sage"}}, alice)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/del-cart/%d", cartID), nil, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/del-cart/%d", cartID), nil, alice)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	v := env.view(t, "/home", alice)
	assert.Empty(t, v.Cart)
	assert.Zero(t, v.Subtotal)
}

package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/herb_shop/internal/transport"
)

const (
	flashCookie = "flash"
	flashCtxKey = "flashes_pending"
)

// addFlash queues a message for the next rendered view.
func addFlash(c echo.Context, category, message string) {
	pending, ok := c.Get(flashCtxKey).([]transport.Flash)
	if !ok {
		pending = readFlashes(c)
	}
	pending = append(pending, transport.Flash{Category: category, Message: message})
	c.Set(flashCtxKey, pending)

	raw, err := json.Marshal(pending)
	if err != nil {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		Expires:  time.Now().Add(5 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes returns queued messages and clears the cookie.
func popFlashes(c echo.Context) []transport.Flash {
	flashes := readFlashes(c)
	if len(flashes) > 0 {
		c.SetCookie(&http.Cookie{
			Name:     flashCookie,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return flashes
}

func readFlashes(c echo.Context) []transport.Flash {
	ck, err := c.Cookie(flashCookie)
	if err != nil || ck.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return nil
	}
	var flashes []transport.Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil
	}
	return flashes
}

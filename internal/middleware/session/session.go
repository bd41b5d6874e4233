package session

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/herb_shop/internal/logging"
	"github.com/Skotchmaster/herb_shop/internal/tokens"
)

const (
	CookieName = "session"

	ctxUserID   = "user_id"
	ctxUserName = "user_name"
)

type Manager struct {
	Secret []byte
	TTL    time.Duration
	Secure bool
}

func NewManager(secret []byte, ttl time.Duration, secure bool) *Manager {
	return &Manager{Secret: secret, TTL: ttl, Secure: secure}
}

// Issue signs a session for the user and sets it as the session cookie.
func (m *Manager) Issue(c echo.Context, userID uint, name string) error {
	exp := time.Now().Add(m.TTL)
	tok, err := tokens.SignSession(userID, name, exp, m.Secret)
	if err != nil {
		return err
	}
	c.SetCookie(CreateCookie(CookieName, tok, "/", exp, m.Secure))
	setUserContext(c, userID, name)
	return nil
}

func (m *Manager) Clear(c echo.Context) {
	c.SetCookie(DeleteCookie(CookieName, "/", m.Secure))
	c.Set(ctxUserID, nil)
	c.Set(ctxUserName, nil)
}

// Load attaches the session user, if any, to the echo context and the request
// logger. A bad or expired cookie is dropped and the request goes on anonymous.
func (m *Manager) Load(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ck, err := c.Cookie(CookieName)
		if err != nil || ck.Value == "" {
			return next(c)
		}

		claims, err := tokens.SessionClaimsFromToken(ck.Value, m.Secret)
		if err != nil {
			c.SetCookie(DeleteCookie(CookieName, "/", m.Secure))
			return next(c)
		}
		id, err := claims.UserID()
		if err != nil {
			c.SetCookie(DeleteCookie(CookieName, "/", m.Secure))
			return next(c)
		}

		setUserContext(c, id, claims.Name)
		ctx := logging.With(c.Request().Context(), "user_id", id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (m *Manager) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := UserID(c); !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "login required")
		}
		return next(c)
	}
}

// RequireUserOrRedirect sends anonymous visitors to target with 303.
func (m *Manager) RequireUserOrRedirect(target string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := UserID(c); !ok {
				return c.Redirect(http.StatusSeeOther, target)
			}
			return next(c)
		}
	}
}

func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(ctxUserID).(uint)
	return id, ok && id != 0
}

func UserName(c echo.Context) string {
	name, _ := c.Get(ctxUserName).(string)
	return name
}

func setUserContext(c echo.Context, id uint, name string) {
	c.Set(ctxUserID, id)
	c.Set(ctxUserName, name)
}

func CreateCookie(name, value, path string, exp time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func DeleteCookie(name, path string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/herb_shop/internal/db"
	"github.com/Skotchmaster/herb_shop/internal/events"
	"github.com/Skotchmaster/herb_shop/internal/middleware/csrf"
	"github.com/Skotchmaster/herb_shop/internal/middleware/session"
	"github.com/Skotchmaster/herb_shop/internal/payment"
	"github.com/Skotchmaster/herb_shop/internal/repo"
	"github.com/Skotchmaster/herb_shop/internal/service"
	"github.com/Skotchmaster/herb_shop/internal/transport"
)

const goodSignature = "t=1,v1=good"

type fakeProvider struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*payment.Session
}

func (f *fakeProvider) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("cs_test_%d", f.seq)
	s := &payment.Session{ID: id, URL: "https://pay.test/" + id, Status: "open", ClientReferenceID: req.ClientReferenceID}
	f.sessions[id] = s
	out := *s
	return &out, nil
}

func (f *fakeProvider) GetSession(_ context.Context, id string) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no such session %s", id)
	}
	out := *s
	return &out, nil
}

func (f *fakeProvider) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if signature != goodSignature {
		return nil, payment.ErrInvalidSignature
	}
	var w struct {
		Type      string `json:"type"`
		SessionID string `json:"session_id"`
		Paid      bool   `json:"paid"`
	}
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, err
	}
	return &payment.Event{Type: w.Type, Session: payment.Session{ID: w.SessionID, Paid: w.Paid}}, nil
}

func (f *fakeProvider) markPaid(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id].Paid = true
}

type testEnv struct {
	E        *echo.Echo
	Repo     *repo.GormRepo
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Provider *fakeProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithCSRF(t, nil)
}

func newTestEnvWithCSRF(t *testing.T, csrfCfg *csrf.Config) *testEnv {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	require.NoError(t, db.Migrate(ctx, gdb))

	r := &repo.GormRepo{DB: gdb}
	locks := service.NewUserLocks()
	pub := events.NopPublisher{}
	prov := &fakeProvider{sessions: make(map[string]*payment.Session)}

	catalog := &service.CatalogService{Repo: r}
	_, err = catalog.Seed(ctx, service.DefaultCatalog)
	require.NoError(t, err)

	identity := &service.IdentityService{Repo: r, Locks: locks, Events: pub}
	cart := &service.CartService{Repo: r, Catalog: catalog, Locks: locks, Events: pub}
	checkout := &service.CheckoutService{
		Repo: r, Provider: prov, Locks: locks, Events: pub,
		BaseURL: "http://shop.test", Currency: "usd", PublicKey: "pk_test",
	}
	sessions := session.NewManager([]byte("test-session-secret"), 48*time.Hour, false)

	views := &ViewHTTP{Identity: identity, Catalog: catalog, Cart: cart, Checkout: checkout, Sessions: sessions}
	e := echo.New()
	Register(e, &Deps{
		Views:    views,
		Identity: &IdentityHTTP{Svc: identity, Sessions: sessions},
		Cart:     &CartHTTP{Svc: cart},
		Checkout: &CheckoutHTTP{Svc: checkout, Views: views},
		Catalog:  &CatalogHTTP{Svc: catalog},
		Sessions: sessions,
		CSRF:     csrfCfg,
		Ready:    func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	})

	return &testEnv{E: e, Repo: r, Cart: cart, Checkout: checkout, Provider: prov}
}

func (env *testEnv) do(t *testing.T, method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	return env.doWithHeaders(t, method, path, form, nil, cookies...)
}

func (env *testEnv) doWithHeaders(t *testing.T, method, path string, form url.Values, headers map[string]string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, ck := range cookies {
		if ck != nil {
			req.AddCookie(ck)
		}
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

// register posts the name form and returns the new user's session cookie.
func (env *testEnv) register(t *testing.T, name string) *http.Cookie {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/herbs", url.Values{"name": {name}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/herbs", rec.Header().Get(echo.HeaderLocation))
	ck := cookieNamed(rec, session.CookieName)
	require.NotNil(t, ck)
	return ck
}

func (env *testEnv) view(t *testing.T, path string, cookies ...*http.Cookie) transport.PageView {
	t.Helper()
	rec := env.do(t, http.MethodGet, path, nil, cookies...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v transport.PageView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

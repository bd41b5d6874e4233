package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/herb_shop/internal/db"
	"github.com/Skotchmaster/herb_shop/internal/models"
	"github.com/Skotchmaster/herb_shop/internal/payment"
	"github.com/Skotchmaster/herb_shop/internal/repo"
)

const goodSignature = "t=1,v1=good"

type fakeProvider struct {
	mu        sync.Mutex
	seq       int
	requests  []payment.SessionRequest
	sessions  map[string]*payment.Session
	createErr error
	getErr    error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: make(map[string]*payment.Session)}
}

func (f *fakeProvider) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	id := fmt.Sprintf("cs_test_%d", f.seq)
	s := &payment.Session{ID: id, URL: "https://pay.test/" + id, Status: "open", ClientReferenceID: req.ClientReferenceID}
	f.sessions[id] = s
	f.requests = append(f.requests, req)
	out := *s
	return &out, nil
}

func (f *fakeProvider) GetSession(_ context.Context, id string) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	out := *s
	return &out, nil
}

type fakeWebhook struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Paid      bool   `json:"paid"`
}

func (f *fakeProvider) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if signature != goodSignature {
		return nil, fmt.Errorf("%w: mismatch", payment.ErrInvalidSignature)
	}
	var w fakeWebhook
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, err
	}
	return &payment.Event{Type: w.Type, Session: payment.Session{ID: w.SessionID, Paid: w.Paid}}, nil
}

func (f *fakeProvider) markPaid(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id].Paid = true
	f.sessions[id].Status = "complete"
}

func (f *fakeProvider) lastRequest() payment.SessionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeProvider) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func webhookPayload(t *testing.T, typ, sessionID string, paid bool) []byte {
	t.Helper()
	b, err := json.Marshal(fakeWebhook{Type: typ, SessionID: sessionID, Paid: paid})
	require.NoError(t, err)
	return b
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (r *recordingPublisher) Publish(_ context.Context, _, _ string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, event.(map[string]any)["type"].(string))
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) count(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.types {
		if t == typ {
			n++
		}
	}
	return n
}

type testEnv struct {
	Repo     *repo.GormRepo
	Catalog  *CatalogService
	Identity *IdentityService
	Cart     *CartService
	Checkout *CheckoutService
	Provider *fakeProvider
	Events   *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	require.NoError(t, db.Migrate(ctx, gdb))

	r := &repo.GormRepo{DB: gdb}
	locks := NewUserLocks()
	pub := &recordingPublisher{}
	prov := newFakeProvider()

	catalog := &CatalogService{Repo: r}
	_, err = catalog.Seed(ctx, DefaultCatalog)
	require.NoError(t, err)

	return &testEnv{
		Repo:     r,
		Catalog:  catalog,
		Identity: &IdentityService{Repo: r, Locks: locks, Events: pub},
		Cart:     &CartService{Repo: r, Catalog: catalog, Locks: locks, Events: pub},
		Checkout: &CheckoutService{
			Repo:      r,
			Provider:  prov,
			Locks:     locks,
			Events:    pub,
			BaseURL:   "http://shop.test",
			Currency:  "usd",
			PublicKey: "pk_test",
		},
		Provider: prov,
		Events:   pub,
	}
}

func (env *testEnv) register(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := env.Identity.Register(context.Background(), name)
	require.NoError(t, err)
	return u
}

func (env *testEnv) add(t *testing.T, userID uint, title string, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		_, err := env.Cart.AddItem(context.Background(), userID, title, nil)
		require.NoError(t, err)
	}
}

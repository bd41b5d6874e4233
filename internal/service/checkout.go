package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/herb_shop/internal/events"
	"github.com/Skotchmaster/herb_shop/internal/logging"
	"github.com/Skotchmaster/herb_shop/internal/models"
	"github.com/Skotchmaster/herb_shop/internal/payment"
	"github.com/Skotchmaster/herb_shop/internal/repo"
)

// Placeholder line item for carts with nothing to charge.
const (
	PlaceholderName   = "Chamomile"
	PlaceholderAmount = 1100
)

type CheckoutService struct {
	Repo      *repo.GormRepo
	Provider  payment.Provider
	Locks     *UserLocks
	Events    events.Publisher
	BaseURL   string
	Currency  string
	PublicKey string
}

type Handle struct {
	SessionID string `json:"checkout_session_id"`
	URL       string `json:"url"`
	PublicKey string `json:"checkout_public_key"`
}

func (s *CheckoutService) SuccessURL() string {
	return s.BaseURL + "/checkout?session_id={CHECKOUT_SESSION_ID}"
}

func (s *CheckoutService) CancelURL() string {
	return s.BaseURL + "/herbs"
}

// LineItems folds the cart into provider line items priced in cents. It never
// returns an empty slice.
func (s *CheckoutService) LineItems(ctx context.Context, userID uint) ([]payment.LineItem, error) {
	if userID == 0 {
		return placeholderItems(), nil
	}

	rows, err := s.Repo.ListLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	type key struct {
		title string
		price int64
	}
	items := make([]payment.LineItem, 0)
	index := make(map[key]int)
	for _, r := range rows {
		k := key{r.Title, r.Price}
		i, ok := index[k]
		if !ok {
			index[k] = len(items)
			items = append(items, payment.LineItem{Name: r.Title, UnitAmount: r.Price * 100})
			i = len(items) - 1
		}
		items[i].Quantity++
	}

	if len(items) == 0 {
		return placeholderItems(), nil
	}
	return items, nil
}

func placeholderItems() []payment.LineItem {
	return []payment.LineItem{{Name: PlaceholderName, UnitAmount: PlaceholderAmount, Quantity: 1}}
}

// SessionReuseWindow bounds how long a pending session is handed out again for
// an unchanged cart. It stays well inside the provider's 24h session expiry.
const SessionReuseWindow = 30 * time.Minute

// fingerprint digests the currency and line items a session charges for.
func fingerprint(currency string, items []payment.LineItem) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n", currency)
	for _, it := range items {
		fmt.Fprintf(h, "%q|%d|%d\n", it.Name, it.UnitAmount, it.Quantity)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BuildSession opens a hosted payment session for the cart. Sessions of known
// users are recorded as pending, and a pending session opened recently for the
// same line items is handed out again instead of opening another one.
func (s *CheckoutService) BuildSession(ctx context.Context, userID uint) (*Handle, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.build_session")

	if userID != 0 {
		if _, err := s.Repo.GetUserByID(ctx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
			}
			return nil, err
		}
		unlock := s.Locks.Lock(userID)
		defer unlock()
	}

	items, err := s.LineItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	fp := fingerprint(s.currency(), items)

	if userID != 0 {
		open, err := s.Repo.OpenCheckout(ctx, userID, fp, time.Now().Add(-SessionReuseWindow))
		switch {
		case err == nil:
			l.Debug("build_session_reused", "session_id", open.ProviderSessionID)
			return &Handle{SessionID: open.ProviderSessionID, URL: open.URL, PublicKey: s.PublicKey}, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}

	req := payment.SessionRequest{
		LineItems:      items,
		Currency:       s.Currency,
		SuccessURL:     s.SuccessURL(),
		CancelURL:      s.CancelURL(),
		IdempotencyKey: uuid.NewString(),
	}
	if userID != 0 {
		req.ClientReferenceID = strconv.FormatUint(uint64(userID), 10)
	}

	sess, err := s.Provider.CreateSession(ctx, req)
	if err != nil {
		l.Error("build_session_failed", "status", 502, "reason", "provider rejected session", "error", err)
		return nil, fmt.Errorf("create checkout session: %v: %w", err, ErrExternalService)
	}

	if userID != 0 {
		rec := models.CheckoutSession{
			UserID:            userID,
			ProviderSessionID: sess.ID,
			Status:            models.CheckoutPending,
			AmountCents:       payment.AmountOf(items),
			Currency:          s.currency(),
			URL:               sess.URL,
			Fingerprint:       fp,
		}
		if err := s.Repo.CreateCheckoutSession(ctx, &rec); err != nil {
			l.Error("build_session_failed", "status", 500, "reason", "cannot persist session", "error", err)
			return nil, err
		}
		events.Emit(ctx, s.Events, events.TopicCheckout, "checkout_started", userID, map[string]any{
			"sessionID":   sess.ID,
			"amountCents": rec.AmountCents,
		})
	}

	return &Handle{SessionID: sess.ID, URL: sess.URL, PublicKey: s.PublicKey}, nil
}

// HandleWebhook applies a verified provider notification. Unknown sessions and
// unrelated event types are acknowledged without changes.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	l := logging.FromContext(ctx).With("svc", "checkout.webhook")

	ev, err := s.Provider.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			l.Warn("webhook_rejected", "status", 400, "reason", "bad signature")
			return fmt.Errorf("%v: %w", err, ErrInvalidSignature)
		}
		return fmt.Errorf("webhook payload: %v: %w", err, ErrValidation)
	}

	var next models.CheckoutStatus
	switch ev.Type {
	case payment.EventSessionCompleted:
		if !ev.Session.Paid {
			l.Info("webhook_ignored", "event_type", ev.Type, "reason", "payment not settled yet")
			return nil
		}
		next = models.CheckoutConfirmed
	case payment.EventSessionAsyncPaymentOK:
		next = models.CheckoutConfirmed
	case payment.EventSessionExpired:
		next = models.CheckoutCancelled
	case payment.EventSessionAsyncPaymentFailed:
		next = models.CheckoutFailed
	default:
		l.Info("webhook_ignored", "event_type", ev.Type)
		return nil
	}

	_, err = s.transition(ctx, ev.Session.ID, next)
	if errors.Is(err, ErrNotFound) {
		l.Info("webhook_ignored", "event_type", ev.Type, "reason", "unknown session")
		return nil
	}
	return err
}

// ConfirmRedirect re-checks the session with the provider and confirms it only
// when the provider reports it paid.
func (s *CheckoutService) ConfirmRedirect(ctx context.Context, userID uint, providerSessionID string) (models.CheckoutStatus, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.confirm_redirect")

	rec, err := s.owned(ctx, userID, providerSessionID)
	if err != nil {
		return "", err
	}
	if rec.Status != models.CheckoutPending {
		return rec.Status, nil
	}

	remote, err := s.Provider.GetSession(ctx, providerSessionID)
	if err != nil {
		l.Error("confirm_redirect_failed", "status", 502, "reason", "cannot fetch session", "error", err)
		return "", fmt.Errorf("get checkout session: %v: %w", err, ErrExternalService)
	}

	switch {
	case remote.Paid:
		return s.transition(ctx, providerSessionID, models.CheckoutConfirmed)
	case remote.Status == "expired":
		return s.transition(ctx, providerSessionID, models.CheckoutCancelled)
	default:
		l.Info("confirm_redirect_pending", "session_id", providerSessionID, "provider_status", remote.Status)
		return models.CheckoutPending, nil
	}
}

func (s *CheckoutService) SessionStatus(ctx context.Context, userID uint, providerSessionID string) (models.CheckoutStatus, error) {
	rec, err := s.owned(ctx, userID, providerSessionID)
	if err != nil {
		return "", err
	}
	return rec.Status, nil
}

func (s *CheckoutService) owned(ctx context.Context, userID uint, providerSessionID string) (*models.CheckoutSession, error) {
	if providerSessionID == "" {
		return nil, fmt.Errorf("session id is required: %w", ErrValidation)
	}
	rec, err := s.Repo.CheckoutByProviderID(ctx, providerSessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("checkout session %q: %w", providerSessionID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, fmt.Errorf("checkout session %q: %w", providerSessionID, ErrForbidden)
	}
	return rec, nil
}

// transition runs under the owner's cart lock so that clearing the cart on
// confirmation cannot interleave with cart mutations.
func (s *CheckoutService) transition(ctx context.Context, providerSessionID string, to models.CheckoutStatus) (models.CheckoutStatus, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.transition")

	rec, err := s.Repo.CheckoutByProviderID(ctx, providerSessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("checkout session %q: %w", providerSessionID, ErrNotFound)
	}
	if err != nil {
		return "", err
	}

	unlock := s.Locks.Lock(rec.UserID)
	rec, changed, err := s.Repo.TransitionCheckout(ctx, providerSessionID, to)
	unlock()
	if err != nil {
		l.Error("transition_failed", "status", 500, "to", string(to), "error", err)
		return "", err
	}
	if !changed {
		return rec.Status, nil
	}

	l.Info("checkout_transitioned", "session_id", providerSessionID, "user_id", rec.UserID, "to", string(rec.Status))
	switch rec.Status {
	case models.CheckoutConfirmed:
		events.Emit(ctx, s.Events, events.TopicCheckout, "checkout_confirmed", rec.UserID, map[string]any{
			"sessionID":   providerSessionID,
			"amountCents": rec.AmountCents,
		})
	case models.CheckoutFailed, models.CheckoutCancelled:
		events.Emit(ctx, s.Events, events.TopicCheckout, "checkout_failed", rec.UserID, map[string]any{
			"sessionID": providerSessionID,
			"status":    string(rec.Status),
		})
	}
	return rec.Status, nil
}

func (s *CheckoutService) currency() string {
	if s.Currency == "" {
		return "usd"
	}
	return s.Currency
}

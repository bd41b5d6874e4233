package payment

import (
	"context"
	"errors"
)

var ErrInvalidSignature = errors.New("payment: invalid webhook signature")

const (
	EventSessionCompleted          = "checkout.session.completed"
	EventSessionExpired            = "checkout.session.expired"
	EventSessionAsyncPaymentOK     = "checkout.session.async_payment_succeeded"
	EventSessionAsyncPaymentFailed = "checkout.session.async_payment_failed"
)

type LineItem struct {
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int64  `json:"quantity"`
}

type SessionRequest struct {
	LineItems         []LineItem
	Currency          string
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	IdempotencyKey    string
}

type Session struct {
	ID                string
	URL               string
	Paid              bool
	Status            string
	ClientReferenceID string
	AmountTotal       int64
	Currency          string
}

// Event is a verified provider notification. Session is zero for event types
// that do not carry a checkout session.
type Event struct {
	ID      string
	Type    string
	Session Session
}

// Provider is the hosted payment page collaborator.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

func AmountOf(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.UnitAmount * it.Quantity
	}
	return total
}

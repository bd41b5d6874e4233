package events

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/herb_shop/internal/logging"
)

const (
	TopicUser     = "user_events"
	TopicCart     = "cart_events"
	TopicCheckout = "checkout_events"
)

const publishTimeout = 5 * time.Second

type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
	Close() error
}

// Emit publishes one domain event keyed by the user id. Delivery is best effort:
// errors are logged and swallowed, and the caller's cancellation does not abort it.
func Emit(ctx context.Context, p Publisher, topic, eventType string, userID uint, fields map[string]any) {
	if p == nil {
		return
	}

	event := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		event[k] = v
	}
	event["type"] = eventType
	event["event_id"] = uuid.NewString()
	event["userID"] = userID
	event["occurred_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.Publish(pctx, topic, strconv.FormatUint(uint64(userID), 10), event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed",
			"topic", topic,
			"type", eventType,
			"error", err,
		)
	}
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

func (NopPublisher) Close() error { return nil }

package events

import (
	"fmt"

	"github.com/Skotchmaster/herb_shop/internal/config"
)

// FromConfig builds the publisher named by EVENTS_BROKER.
func FromConfig(cfg config.Config) (Publisher, error) {
	switch cfg.EventsBroker {
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("events: kafka selected without brokers")
		}
		return NewKafkaPublisher(cfg.KafkaBrokers), nil
	case "amqp":
		p, err := NewAMQPPublisher(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "", "none":
		return NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("events: unknown broker %q", cfg.EventsBroker)
	}
}

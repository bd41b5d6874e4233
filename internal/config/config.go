package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	LogLevel    string

	ServerPort int
	BaseURL    string

	DBDriver    string
	DatabaseURL string

	SessionSecret   []byte
	SessionTTLHours int
	CookieSecure    bool
	CSRFEnabled     bool

	StripeSecretKey     string
	StripePublicKey     string
	StripeWebhookSecret string
	Currency            string

	EventsBroker   string
	KafkaBrokers   []string
	RabbitURL      string
	EventsExchange string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		ServerPort: EnvIntDefault("SERVER_PORT", 8050),
		BaseURL:    strings.TrimRight(EnvDefault("BASE_URL", "http://localhost:8050"), "/"),

		DBDriver:    EnvDefault("DB_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		SessionSecret:   []byte(os.Getenv("SESSION_SECRET")),
		SessionTTLHours: EnvIntDefault("SESSION_TTL_HOURS", 48),
		CookieSecure:    EnvBoolDefault("COOKIE_SECURE", true),
		CSRFEnabled:     EnvBoolDefault("CSRF_ENABLED", true),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripePublicKey:     os.Getenv("STRIPE_PUBLIC_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            EnvDefault("CURRENCY", "usd"),

		EventsBroker:   strings.ToLower(EnvDefault("EVENTS_BROKER", "none")),
		KafkaBrokers:   CSV(os.Getenv("KAFKA_BROKERS")),
		RabbitURL:      os.Getenv("RABBITMQ_URL"),
		EventsExchange: EnvDefault("EVENTS_EXCHANGE", "herbshop.events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "herbs"),
	}
}

// Validate reports the first missing value the service cannot start without.
func (c Config) Validate() error {
	if err := NonEmpty(c.DatabaseURL, "DATABASE_URL"); err != nil {
		return err
	}
	if err := NonEmpty(string(c.SessionSecret), "SESSION_SECRET"); err != nil {
		return err
	}
	if err := NonEmpty(c.StripeSecretKey, "STRIPE_SECRET_KEY"); err != nil {
		return err
	}
	if err := NonEmpty(c.StripeWebhookSecret, "STRIPE_WEBHOOK_SECRET"); err != nil {
		return err
	}
	switch c.EventsBroker {
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return NonEmpty("", "KAFKA_BROKERS")
		}
	case "amqp":
		return NonEmpty(c.RabbitURL, "RABBITMQ_URL")
	}
	return nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

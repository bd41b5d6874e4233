package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/herb_shop/internal/config"
	"github.com/Skotchmaster/herb_shop/internal/db"
	"github.com/Skotchmaster/herb_shop/internal/events"
	"github.com/Skotchmaster/herb_shop/internal/httpserver"
	"github.com/Skotchmaster/herb_shop/internal/logging"
	"github.com/Skotchmaster/herb_shop/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/herb_shop/internal/middleware/logging"
	"github.com/Skotchmaster/herb_shop/internal/middleware/session"
	"github.com/Skotchmaster/herb_shop/internal/payment"
	"github.com/Skotchmaster/herb_shop/internal/repo"
	"github.com/Skotchmaster/herb_shop/internal/search"
	"github.com/Skotchmaster/herb_shop/internal/service"
)

func main() {
	setPrice := flag.String("set-price", "", `re-price one herb and exit, e.g. -set-price "Sage=7"`)
	flag.Parse()

	cfg := config.Load()
	config.MustValid(cfg)

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db open: %v", err)
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		cancel()
		log.Fatalf("db migrate: %v", err)
	}

	r := &repo.GormRepo{DB: gdb}
	locks := service.NewUserLocks()

	publisher, err := events.FromConfig(cfg)
	if err != nil {
		cancel()
		log.Fatalf("events: %v", err)
	}
	if cfg.EventsBroker == "kafka" {
		if err := events.EnsureTopics(cfg.KafkaBrokers[0], events.TopicUser, events.TopicCart, events.TopicCheckout); err != nil {
			logger.Warn("kafka_topics_not_ensured", "error", err)
		}
	}

	catalog := &service.CatalogService{Repo: r}
	if cfg.ESURL != "" {
		es, err := search.NewClient(ctx, cfg)
		if err != nil {
			logger.Warn("elasticsearch_unavailable", "reason", "search falls back to sql", "error", err)
		} else {
			catalog.Index = search.New(es, cfg.ESIndex)
		}
	}

	changed, err := catalog.Seed(ctx, service.DefaultCatalog)
	if err != nil {
		cancel()
		log.Fatalf("seed catalog: %v", err)
	}
	logger.Info("catalog_seeded", "changed", changed)

	if *setPrice != "" {
		err := runSetPrice(ctx, catalog, *setPrice)
		cancel()
		shutdown(gdb, publisher)
		if err != nil {
			log.Fatalf("set-price: %v", err)
		}
		return
	}
	cancel()

	sessions := session.NewManager(cfg.SessionSecret, time.Duration(cfg.SessionTTLHours)*time.Hour, cfg.CookieSecure)
	identity := &service.IdentityService{Repo: r, Locks: locks, Events: publisher}
	cart := &service.CartService{Repo: r, Catalog: catalog, Locks: locks, Events: publisher}
	checkout := &service.CheckoutService{
		Repo:      r,
		Provider:  payment.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret),
		Locks:     locks,
		Events:    publisher,
		BaseURL:   cfg.BaseURL,
		Currency:  cfg.Currency,
		PublicKey: cfg.StripePublicKey,
	}
	views := &httpserver.ViewHTTP{
		Identity: identity,
		Catalog:  catalog,
		Cart:     cart,
		Checkout: checkout,
		Sessions: sessions,
	}

	var csrfCfg *csrf.Config
	if cfg.CSRFEnabled {
		c := csrf.DefaultConfig()
		c.Secure = cfg.CookieSecure
		c.SkipPrefixes = []string{"/webhooks/"}
		csrfCfg = &c
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		Views:    views,
		Identity: &httpserver.IdentityHTTP{Svc: identity, Sessions: sessions},
		Cart:     &httpserver.CartHTTP{Svc: cart},
		Checkout: &httpserver.CheckoutHTTP{Svc: checkout, Views: views},
		Catalog:  &httpserver.CatalogHTTP{Svc: catalog},
		Sessions: sessions,
		CSRF:     csrfCfg,
		Ready:    func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("storefront_listening", "addr", srv.Addr, "base_url", cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	shutdown(gdb, publisher)

	logger.Info("storefront_stopped")
}

func runSetPrice(ctx context.Context, catalog *service.CatalogService, arg string) error {
	title, raw, ok := strings.Cut(arg, "=")
	if !ok {
		return fmt.Errorf("expected Title=price, got %q", arg)
	}
	price, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("price %q: %w", raw, err)
	}
	herb, err := catalog.SetPrice(ctx, title, price)
	if err != nil {
		return err
	}
	slog.Info("price_updated", "title", herb.Title, "price", herb.Price, "version", herb.Version)
	return nil
}

func shutdown(gdb *gorm.DB, publisher events.Publisher) {
	if err := publisher.Close(); err != nil {
		slog.Warn("events_close_failed", "error", err)
	}
	_ = db.Close(gdb)
}

// Command usersync runs the webhook ingestion server: it receives payment
// and identity provider events and keeps the users collection in sync.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mihaimyh/usersync/pkg/usersync"
	zerologadapter "github.com/mihaimyh/usersync/pkg/usersync/logger/zerolog"
	"github.com/mihaimyh/usersync/pkg/webhook"
	"github.com/mihaimyh/usersync/pkg/webhook/clerk"
	prommetrics "github.com/mihaimyh/usersync/pkg/webhook/metrics/prometheus"
	stripewh "github.com/mihaimyh/usersync/pkg/webhook/stripe"
	firestorestore "github.com/mihaimyh/usersync/storage/firestore"
	"github.com/mihaimyh/usersync/storage/memory"
	"github.com/mihaimyh/usersync/storage/postgres"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zl := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("service", "usersync").
		Logger()
	logger := zerologadapter.NewLogger(zl)

	if err := run(context.Background(), cfg, zl, logger); err != nil {
		zl.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg config, zl zerolog.Logger, logger usersync.Logger) error {
	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := prommetrics.NewMetrics(registry, "usersync")

	stripeProvider, err := stripewh.NewProvider(stripewh.Config{
		Config: webhook.Config{
			Users:   store,
			Logger:  logger,
			Metrics: metrics,
		},
		WebhookSecret: cfg.StripeWebhookSecret,
	})
	if err != nil {
		return fmt.Errorf("failed to create stripe provider: %w", err)
	}

	clerkProvider, err := clerk.NewProvider(clerk.Config{
		Config: webhook.Config{
			Users:   store,
			Logger:  logger,
			Metrics: metrics,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create clerk provider: %w", err)
	}

	routes := map[string]string{
		stripeProvider.Name(): "/webhook/payment",
		clerkProvider.Name():  "/webhook/identity",
	}

	r := chi.NewRouter()
	for _, provider := range []webhook.Provider{stripeProvider, clerkProvider} {
		r.Method(http.MethodPost, routes[provider.Name()], provider.WebhookHandler())
	}
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info().Str("addr", srv.Addr).Str("store", cfg.StoreBackend).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zl.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildStore selects the record store backend from configuration. The
// returned close function is a no-op for the in-memory backend.
func buildStore(ctx context.Context, cfg config) (usersync.UserStore, func(), error) {
	switch cfg.StoreBackend {
	case "firestore":
		client, err := firestore.NewClient(ctx, cfg.GoogleCloudProject)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		store, err := firestorestore.New(client, firestorestore.Config{Collection: cfg.UsersCollection})
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil

	case "postgres":
		pgCfg := postgres.DefaultConfig()
		pgCfg.ConnectionString = cfg.DatabaseURL
		pgCfg.Table = cfg.UsersCollection
		store, err := postgres.New(ctx, pgCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgres store: %w", err)
		}
		return store, store.Close, nil

	case "memory":
		return memory.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Package app wires the whole dashboard together: configuration, logging,
// the upstream client, the refresh pipeline, the alert engine, the scheduler
// and the HTTP surface.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cryptodash/internal/alert"
	"cryptodash/internal/favorites"
	"cryptodash/internal/infra"
	"cryptodash/internal/infra/coingecko"
	"cryptodash/internal/instrumentation"
	"cryptodash/internal/scheduler"
	"cryptodash/internal/service"
	"cryptodash/internal/settings"
	"cryptodash/internal/web"
)

// App owns every long-lived component of the dashboard.
type App struct {
	cfg       *infra.Config
	market    *service.Market
	alerts    *alert.Engine
	settings  *settings.Store
	hub       *web.Hub
	server    *web.Server
	scheduler *scheduler.Scheduler
	metrics   *instrumentation.Metrics
}

// New loads configuration and assembles the component graph. Nothing is
// started yet.
func New(configPath string) (*App, error) {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	logger := infra.NewLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	infra.PrintBanner(cfg)
	slog.Info("🚀 Starting",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("upstream", cfg.Upstream.BaseURL))

	metrics := instrumentation.NewMetrics()

	client := coingecko.NewClient(cfg.Upstream.BaseURL, cfg.RequestTimeout(), cfg.Upstream.PerPage)
	gate := infra.NewRateGate(cfg.MinSpacing())
	breaker := infra.NewBreaker(infra.DefaultBreakerConfig("coingecko"))

	market := service.NewMarket(service.Config{
		QuoteCurrency:     cfg.Market.QuoteCurrency,
		SecondaryCurrency: cfg.Market.SecondaryCurrency,
		InterCallDelay:    cfg.InterCallDelay(),
		PrimaryTTL:        cfg.PrimaryTTL(),
		BackupTTL:         cfg.BackupTTL(),
		ChartTTL:          cfg.ChartTTL(),
		ChartBackupTTL:    cfg.ChartBackupTTL(),
	}, client, gate, breaker, favorites.NewStore(), metrics)

	alerts := alert.NewEngine()

	store := settings.NewStore(settings.Settings{
		UpdateIntervalSec: cfg.Scheduler.UpdateIntervalSec,
		DefaultCurrency:   cfg.Market.QuoteCurrency,
		CacheTTLMin:       cfg.Market.PrimaryTTLMin,
		BackupCacheTTLMin: cfg.Market.BackupTTLMin,
	})

	hub := web.NewHub()
	server := web.NewServer(cfg.HTTP.Port, market, alerts, store, hub)

	a := &App{
		cfg:      cfg,
		market:   market,
		alerts:   alerts,
		settings: store,
		hub:      hub,
		server:   server,
		metrics:  metrics,
	}
	a.scheduler = scheduler.New(
		cfg.InitialDelay(),
		func() time.Duration { return store.Get().UpdateInterval() },
		a.cycle,
	)
	return a, nil
}

// Run starts the scheduler and blocks serving HTTP until ctx is cancelled,
// then shuts both down in order.
func (a *App) Run(ctx context.Context) error {
	a.scheduler.Start(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	select {
	case err := <-errCh:
		a.scheduler.Stop()
		return err
	case <-ctx.Done():
	}

	slog.Info("🛑 Shutting down")
	a.scheduler.Stop()
	a.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// cycle is one scheduled pass: refresh the batch, evaluate alerts against it
// and push the result to websocket clients.
func (a *App) cycle(ctx context.Context) {
	batch := a.market.Refresh(ctx)

	triggered := a.alerts.Evaluate(batch)
	if n := len(triggered); n > 0 {
		a.metrics.RecordAlertsTriggered(n)
	}

	a.hub.Broadcast(batch)
	a.market.PruneCaches()
}

package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RegimeEdge/internal/domain/repository"
	"RegimeEdge/internal/handler/api"
	"RegimeEdge/internal/usecase"
	"RegimeEdge/pkg/cache"
	pkgch "RegimeEdge/pkg/clickhouse"
	"RegimeEdge/pkg/config"
	xhttp "RegimeEdge/pkg/http"
	pkgkafka "RegimeEdge/pkg/kafka"
	applogger "RegimeEdge/pkg/logger"
)

// ErrNoStore is returned by Backfill when no price store is configured.
var ErrNoStore = errors.New("no price store configured, set provider.type to clickhouse")

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	http     *xhttp.Server
	handler  *api.SignalHandler
	signals  *usecase.SignalService
	live     repository.PriceProvider
	store    repository.PriceStore
	chClient *pkgch.Client
	producer *pkgkafka.Producer
	cache    cache.Service
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	h *api.SignalHandler,
	signals *usecase.SignalService,
	live repository.PriceProvider,
	store repository.PriceStore,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	c cache.Service,
) *App {
	return &App{
		cfg:      cfg,
		log:      l,
		http:     srv,
		handler:  h,
		signals:  signals,
		live:     live,
		store:    store,
		chClient: chClient,
		producer: producer,
		cache:    c,
	}
}

// Signals returns the signal service.
func (a *App) Signals() *usecase.SignalService { return a.signals }

// Report computes the regime and builds the descriptive report.
func (a *App) Report(ctx context.Context) usecase.Report {
	state := a.signals.Regime(ctx)
	return usecase.BuildReport(a.cfg.Pair.Leading, a.cfg.Pair.Target, state,
		a.cfg.Regime.Window, a.cfg.Regime.MaxLag, a.cfg.Regime.Threshold, time.Now())
}

// Backfill copies closes from the live provider into the configured store.
func (a *App) Backfill(ctx context.Context) (usecase.BackfillResult, error) {
	if a.store == nil {
		return usecase.BackfillResult{}, ErrNoStore
	}
	bf := usecase.NewBackfill(a.live, a.store, a.log)
	return bf.Run(ctx, a.cfg.Pair.Symbols(), a.cfg.Regime.StartTime(),
		a.cfg.Signal.IntradayLookback, repository.IntervalFromDuration(a.cfg.Signal.BarInterval))
}

// Run starts the HTTP server and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.handler.RunJanitor(ctx, time.Minute)

	if err := a.http.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("regime edge started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("leading", a.cfg.Pair.Leading),
		applogger.String("target", a.cfg.Pair.Target),
		applogger.String("provider", a.cfg.Provider.Type),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.http.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	a.Close()
	a.log.Info("shutdown complete")
	return nil
}

// Close releases infrastructure clients. The log collector is flushed before
// the producer it publishes through.
func (a *App) Close() {
	a.log.RemoveCollector()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}
}

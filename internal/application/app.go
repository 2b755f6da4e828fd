// Package application assembles the service: providers, repositories,
// pipeline, watcher and the HTTP surface.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/trendgate/trendgate/internal/data"
	"github.com/trendgate/trendgate/internal/gates"
	"github.com/trendgate/trendgate/internal/httpapi"
	"github.com/trendgate/trendgate/internal/metrics"
	"github.com/trendgate/trendgate/internal/notify"
	"github.com/trendgate/trendgate/internal/persistence"
	"github.com/trendgate/trendgate/internal/persistence/postgres"
)

// App is the composed service
type App struct {
	Config   Config
	Pipeline *gates.Pipeline
	Watcher  *Watcher
	Server   *httpapi.Server
	Metrics  *metrics.Registry
	Store    *persistence.Store

	stream *data.PriceStream
	db     *sqlx.DB
}

// New builds the full dependency graph from configuration. Postgres and
// Redis are optional; absent DSN or address falls back to in-process
// implementations.
func New(ctx context.Context, cfg Config) (*App, error) {
	thresholds, err := cfg.LoadThresholds()
	if err != nil {
		return nil, err
	}

	timeframes, err := cfg.ParsedTimeframes()
	if err != nil {
		return nil, err
	}

	binance := data.NewBinanceClient()
	var upstream data.CandleProvider = binance
	if cfg.RedisAddr != "" {
		upstream = data.NewCachedCandleProvider(binance, data.NewRedisCache(cfg.RedisAddr))
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis candle cache enabled")
	}
	store := data.NewSeriesStore(upstream)

	pipeline, err := gates.NewPipeline(store, thresholds)
	if err != nil {
		return nil, err
	}

	var (
		repos *persistence.Store
		db    *sqlx.DB
	)
	if cfg.PostgresDSN != "" {
		repos, db, err = postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		log.Info().Msg("postgres persistence enabled")
	} else {
		repos = persistence.NewMemoryStore()
		log.Info().Msg("in-memory persistence (no postgres_dsn configured)")
	}

	m := metrics.NewRegistry()
	stream := data.NewPriceStream(cfg.Symbols)

	watcher := NewWatcher(pipeline, repos, stream, notify.NewLogNotifier(),
		m, cfg.Symbols, timeframes, cfg.TickInterval())

	return &App{
		Config:   cfg,
		Pipeline: pipeline,
		Watcher:  watcher,
		Server:   httpapi.NewServer(cfg.HTTP, repos, m),
		Metrics:  m,
		Store:    repos,
		stream:   stream,
		db:       db,
	}, nil
}

// Run starts the price stream, the watcher and the HTTP server, then blocks
// until ctx is cancelled or the HTTP listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)

	go func() {
		if err := a.stream.Run(ctx); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("price stream: %w", err)
		}
	}()
	go func() {
		if err := a.Watcher.Run(ctx); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("watcher: %w", err)
		}
	}()
	go func() {
		if err := a.Server.Start(); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	if a.db != nil {
		a.db.Close()
	}
	return runErr
}

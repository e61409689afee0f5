package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/api"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/config"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/database"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/exchange"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/export"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/fiat"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/history"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/idempotency"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/logging"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/metrics"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/portfolio"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/presentation"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/price"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/valuation"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	app := &cli.App{
		Name:  "portfolio",
		Usage: "portfolio valuation service for InTuition Exchange",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and background workers",
				Action: serve,
			},
			{
				Name:  "valuate",
				Usage: "print one account's portfolio and exit",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Usage: "exchange bearer token", EnvVars: []string{"EXCHANGE_TOKEN"}, Required: true},
					&cli.StringFlag{Name: "xlsx", Usage: "write an XLSX workbook to this path instead of JSON"},
				},
				Action: valuate,
			},
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("portfolio: fatal", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.Config) func() {
	logger, closer := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	slog.SetDefault(logger)
	return func() { _ = closer.Close() }
}

func loadCatalog(cfg config.Config) (*domain.Catalog, error) {
	catalog, err := config.LoadCatalog(cfg.AssetCatalogFile)
	if err != nil {
		return nil, fmt.Errorf("loading asset catalog: %w", err)
	}
	return catalog, nil
}

func newExchangeClient(cfg config.Config) *exchange.Client {
	return exchange.NewClient(cfg.ExchangeAPIURL, cfg.ExchangeRetryMax, cfg.ExchangeRetryBaseDelay, cfg.ExchangeRateLimit)
}

func sessionConfig(cfg config.Config) portfolio.Config {
	return portfolio.Config{
		RequiredAssets:     cfg.RequiredAssets,
		DepositInterval:    cfg.DepositPollInterval,
		DepositMaxAttempts: cfg.DepositPollMaxAttempts,
		FiatLimits: fiat.Limits{
			MinDeposit:    cfg.MinDeposit,
			MaxDeposit:    cfg.MaxDeposit,
			MinWithdrawal: cfg.MinWithdrawal,
		},
	}
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	defer setupLogger(cfg)()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	client := newExchangeClient(cfg)
	var table *price.Table
	if m != nil {
		table = price.NewTable(client, m)
	} else {
		table = price.NewTable(client)
	}

	aggregator := valuation.NewAggregator(catalog)
	sessCfg := sessionConfig(cfg)
	factory := func(key, token string) *portfolio.Session {
		if m != nil {
			return portfolio.NewSession(key, client.WithToken(token), table, aggregator, sessCfg, m)
		}
		return portfolio.NewSession(key, client.WithToken(token), table, aggregator, sessCfg, nil)
	}
	var sessionObserver portfolio.SessionObserver
	if m != nil {
		sessionObserver = m
	}
	registry := portfolio.NewRegistry(cfg.SessionIdleTTL, factory, sessionObserver)
	defer registry.Shutdown()

	go worker.NewPriceWorker(table, cfg.PricePollInterval).Run(ctx)

	var historySvc *history.Service
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		migrationsSub, err := fs.Sub(migrationsFS, "migrations")
		if err != nil {
			return fmt.Errorf("creating migrations sub-fs: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		historySvc = history.NewService(history.NewPgRepository(pool), registry)

		var hook worker.AfterRecordHook
		if cfg.GoogleSheetsID != "" && cfg.GoogleCredentialsJSON != "" {
			writer, err := export.NewSheetsWriter(ctx, cfg.GoogleSheetsID, cfg.GoogleCredentialsJSON)
			if err != nil {
				slog.Error("failed to create Google Sheets writer, export disabled", "error", err)
			} else {
				hook = export.NewService(writer)
			}
		}
		go worker.NewHistoryWorker(historySvc, cfg.HistoryInterval, hook).Run(ctx)
	}

	var store idempotency.Store
	if cfg.RedisURL != "" {
		rdb, err := idempotency.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		store = idempotency.NewRedisStore(rdb)
	} else {
		slog.Warn("REDIS_URL not set, idempotency keys kept in memory")
		store = idempotency.NewMemoryStore(10 * time.Minute)
	}

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, admin endpoints are unprotected")
	}

	srv := api.NewServer(cfg.HTTPPort, api.Deps{
		Registry:       registry,
		Prices:         table,
		Adapter:        presentation.NewAdapter(catalog, 0),
		History:        historySvc,
		Metrics:        m,
		Idempotency:    store,
		IdempotencyTTL: cfg.IdempotencyTTL,
		AdminAPIKey:    cfg.AdminAPIKey,
		Logger:         slog.Default(),
	})

	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
	return nil
}

func valuate(c *cli.Context) error {
	cfg := config.Load()
	defer setupLogger(cfg)()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	client := newExchangeClient(cfg).WithToken(c.String("token"))

	var (
		pairs    []domain.TradingPair
		balances []domain.AssetBalance
	)
	g, gctx := errgroup.WithContext(c.Context)
	g.Go(func() error {
		var err error
		pairs, err = client.FetchTickers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		balances, err = client.FetchBalances(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	p := valuation.NewAggregator(catalog).Aggregate(balances, pairs, cfg.RequiredAssets)

	if path := c.String("xlsx"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()
		if err := export.WriteXLSX(f, p, nil); err != nil {
			return err
		}
		slog.Info("portfolio written", "path", path, "total", p.Totals.TotalValue.StringFixed(2))
		return nil
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

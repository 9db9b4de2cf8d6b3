package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/market"
	"fintrack/internal/services"
	"fintrack/internal/store"
	"fintrack/internal/subscription"
)

// operator grants every feature. The CLI acts on the shared dataset with no
// signed-in user behind it.
type operator struct{}

func (operator) Features(context.Context, string) (subscription.Features, error) {
	return subscription.FeaturesFor(core.PlanEnterprise), nil
}

type env struct {
	cfg       *config.Config
	logger    *log.Logger
	set       *store.Set
	ledger    *services.Ledger
	goals     *services.Goals
	portfolio *services.Portfolio
	book      *market.PriceBook
	market    *market.Client
	cleanup   backend.CleanupFunc
}

// openEnv loads configuration and opens the configured backend. Logs go to
// stderr so command output stays pipeable.
func openEnv(ctx context.Context, forceSeed bool) (*env, error) {
	cfg := config.Load()
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stderr,
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).Create(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	set, err := store.Open(ctx, res.KV, store.Options{Seed: forceSeed || cfg.SeedData, Logger: logger})
	if err != nil {
		_ = res.Cleanup()
		return nil, fmt.Errorf("open stores: %w", err)
	}

	client := market.NewClient(market.Config{
		BaseURL:    cfg.MarketBaseURL,
		APIKey:     cfg.MarketAPIKey,
		Timeout:    cfg.MarketTimeout,
		CacheTTL:   cfg.MarketCacheTTL,
		MaxRetries: market.DefaultConfig().MaxRetries,
	}, logger)
	book := market.NewPriceBook()

	return &env{
		cfg:       cfg,
		logger:    logger,
		set:       set,
		ledger:    services.NewLedger(set.Transactions, events.Discard{}, logger),
		goals:     services.NewGoals(set.Goals, operator{}, events.Discard{}, logger),
		portfolio: services.NewPortfolio(set.Crypto, operator{}, book, client, logger),
		book:      book,
		market:    client,
		cleanup:   res.Cleanup,
	}, nil
}

func (e *env) Close() {
	if err := e.cleanup(); err != nil {
		e.logger.Error("Error closing storage", log.FieldError, err)
	}
}

// money formats an amount in the currency chosen in the settings.
func (e *env) money(d decimal.Decimal) string {
	return core.FormatMoney(d, e.set.Settings.Get().Currency)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/events"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/market"
	"fintrack/internal/notify"
	"fintrack/internal/services"
	"fintrack/internal/store"
	"fintrack/internal/subscription"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	logger.Info("Starting fintrack",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"exporter", cfg.ExportBackend,
		"amqp_enabled", cfg.AMQPURL != "")

	ctx := context.Background()
	res := cli.OpenBackend(ctx, logger, cfg)

	set, err := store.Open(ctx, res.KV, store.Options{Seed: cfg.SeedData, Logger: logger})
	if err != nil {
		logger.Error("Failed to open record stores", log.FieldError, err)
		os.Exit(1)
	}

	bus := events.NewBus(logger)
	center := notify.NewCenter(set.Notifications, set.Settings, set.Transactions, logger)
	center.SetLargeExpense(cfg.LargeExpenseThreshold)
	center.Attach(bus)

	subscriptions := subscription.NewService(res.KV, bus, subscription.Config{CheckoutDelay: cfg.CheckoutDelay}, logger)

	// Transaction exports go through the broker when one is configured,
	// otherwise the export worker runs in this process, off the request path
	// and only for users whose plan includes export.
	var amqpClient *amqp.Client
	var inProcessExport *worker.Detached
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, exporting in-process", log.FieldError, err)
		}
	}
	if amqpClient != nil {
		bus.Subscribe(events.Forward(amqpClient), events.TransactionCreated)
	} else {
		exportWorker := worker.NewExportWorker(res.KV, res.Exporter, logger)
		inProcessExport = worker.NewDetached(exportWorker.Handle, func(ctx context.Context, _ events.Event) bool {
			f, err := subscriptions.Features(ctx, auth.UserIDFrom(ctx))
			return err == nil && f.Export
		}, logger)
		bus.Subscribe(inProcessExport.Handle, events.TransactionCreated)
	}

	authService, err := auth.NewService(res.KV, auth.Config{
		Secret:   []byte(cfg.JWTSecret),
		TokenTTL: cfg.JWTTTL,
		Latency:  cfg.AuthLatency,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize auth service", log.FieldError, err)
		os.Exit(1)
	}
	marketClient := market.NewClient(market.Config{
		BaseURL:    cfg.MarketBaseURL,
		APIKey:     cfg.MarketAPIKey,
		Timeout:    cfg.MarketTimeout,
		CacheTTL:   cfg.MarketCacheTTL,
		MaxRetries: market.DefaultConfig().MaxRetries,
	}, logger)
	book := market.NewPriceBook()

	ledger := services.NewLedger(set.Transactions, bus, logger)
	goals := services.NewGoals(set.Goals, subscriptions, bus, logger)
	portfolio := services.NewPortfolio(set.Crypto, subscriptions, book, marketClient, logger)
	svc := apphttp.Services{
		Auth:          authService,
		Subscriptions: subscriptions,
		Ledger:        ledger,
		Goals:         goals,
		Portfolio:     portfolio,
		Dashboard:     services.NewDashboard(ledger, goals, portfolio, set.Notifications, subscriptions, logger),
		Export:        services.NewExport(set.Transactions, res.Exporter, subscriptions, logger),
		Stores:        set,
	}

	caches := cache.NewManager(logger)
	for _, c := range ledger.Caches() {
		caches.Register(c)
	}
	caches.StartCleanup(cfg.CacheCleanupInterval)

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if inProcessExport != nil {
			if err := inProcessExport.Wait(shutdownCtx); err != nil {
				logger.Warn("Pending exports did not finish", log.FieldError, err)
			}
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("Error closing AMQP client", log.FieldError, err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Error closing storage", log.FieldError, err)
		}
	})

	go book.Run(runCtx, marketClient, market.Query{VsCurrency: cfg.MarketCurrency, PerPage: 250}, cfg.MarketRefreshInterval, logger)

	logger.Info("HTTP server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(runCtx, done)
}

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)

	logger.Info("Starting fintrack-worker", "backend", cfg.DataBackend, "exporter", cfg.ExportBackend)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}
	if cfg.DataBackend != config.BackendSQLite {
		logger.Warn("Worker is reading its own in-memory store, exports will only see seeded records",
			"backend", cfg.DataBackend)
	}

	res := cli.OpenBackend(context.Background(), logger, cfg)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	exportWorker := worker.NewExportWorker(res.KV, res.Exporter, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		logger.Info("Shutting down worker...")
		if err := amqpClient.Close(); err != nil {
			logger.Error("Error closing AMQP client", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Error closing storage", log.FieldError, err)
		}
	})

	// Catch up on transactions created while the worker was down.
	logger.Info("Performing startup export check...")
	if err := exportWorker.StartupCheck(ctx, res.Exporter, time.Now()); err != nil {
		logger.Error("Failed startup export check", log.FieldError, err)
	}

	if err := exportWorker.Run(ctx, amqpClient); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
}

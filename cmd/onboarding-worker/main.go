package main

import (
	"budgetly/internal/amqp"
	"budgetly/internal/cli"
	"budgetly/internal/log"
	"budgetly/internal/services"
	"budgetly/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	logger, err := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting onboarding-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		return
	}

	if cfg.DataBackend == "memory" {
		logger.Warn("Worker is using the memory backend; processed answers are not shared with the server")
	}

	cat, err := cli.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		cli.Fatal(logger, "Failed to load catalog", err, "path", cfg.CatalogFile)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	backend, err := cli.OpenBackend(ctx, cfg, cat, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, log.FieldBackend, cfg.DataBackend)
	}
	defer backend.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	w := worker.NewOnboardingWorker(client, services.NewOnboardingProcessor(backend.Store), cfg.WorkerConcurrency, logger.Slog())
	if err := w.Run(ctx); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
	}

	processed, failed := w.Stats()
	logger.Info("Worker stopped", "processed", processed, "failed", failed)
}

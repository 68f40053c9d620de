package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"budgetly/internal/amqp"
	"budgetly/internal/cache"
	"budgetly/internal/cli"
	apphttp "budgetly/internal/http"
	"budgetly/internal/log"
	"budgetly/internal/middleware/ratelimit"
	"budgetly/internal/onboarding"
	"budgetly/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	logger, err := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
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

	// Without a broker, completions are processed in-process.
	var publisher services.CompletionPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, processing completions inline", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	completion := services.NewCompletionService(publisher, services.NewOnboardingProcessor(backend.Store))

	svc := onboarding.NewService(backend.Store, completion, onboarding.Config{
		LandingPath: cfg.LandingPath,
		RunTTL:      cfg.WizardRunTTL,
		MaxRuns:     cfg.WizardMaxRuns,
	}, logger.WithComponent(log.ComponentOnboarding).Slog())

	janitor := cache.NewJanitor(logger.WithComponent(log.ComponentCache).Slog())
	janitor.Register(svc.Runs())
	janitor.Start(10 * time.Minute)
	defer janitor.Stop()

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Onboarding:     svc,
		Scope:          backend.Store,
		Catalog:        cat,
		Ready:          backend.Store.Ping,
		Logger:         logger,
		AuthHeader:     cfg.AuthHeader,
		DevUser:        cfg.DevUser,
		TrustedProxies: cfg.TrustedProxies,
		RateLimit:      ratelimit.DefaultConfig(),
	})
	if err != nil {
		cli.Fatal(logger, "Failed to configure HTTP server", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting budgetly server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend, "landing_path", cfg.LandingPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			cli.Fatal(logger, "Server error", err, "port", cfg.Port)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}

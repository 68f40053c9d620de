// Package worker runs the background consumers that materialize finished
// wizard runs into the user's categories and fixed costs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetly/internal/amqp"
	"budgetly/internal/log"
)

// Consumer delivers onboarding completed messages to a handler until ctx
// is cancelled.
type Consumer interface {
	ConsumeOnboardingCompleted(ctx context.Context, handler func(context.Context, *amqp.OnboardingCompletedMessage) error) error
}

// Handler processes a single message.
type Handler interface {
	Handle(ctx context.Context, msg *amqp.OnboardingCompletedMessage) error
}

// OnboardingWorker runs concurrency consumer loops sharing one handler.
type OnboardingWorker struct {
	consumer    Consumer
	handler     Handler
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger

	processed int64
	failed    int64
}

func NewOnboardingWorker(consumer Consumer, handler Handler, concurrency int, logger *slog.Logger) *OnboardingWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OnboardingWorker{
		consumer:    consumer,
		handler:     handler,
		concurrency: concurrency,
		timeout:     30 * time.Second,
		logger:      logger.With(log.FieldComponent, log.ComponentWorker),
	}
}

// Run blocks until ctx is cancelled or a consumer fails for good. A
// cancelled context is a clean stop and returns nil.
func (w *OnboardingWorker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		id := i
		g.Go(func() error {
			w.logger.DebugContext(gctx, "Consumer started", "consumer", id)
			err := w.consumer.ConsumeOnboardingCompleted(gctx, w.handle)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("consumer %d: %w", id, err)
		})
	}
	err := g.Wait()
	w.logger.InfoContext(ctx, "Onboarding worker stopped",
		"processed", atomic.LoadInt64(&w.processed),
		"failed", atomic.LoadInt64(&w.failed))
	return err
}

func (w *OnboardingWorker) handle(ctx context.Context, msg *amqp.OnboardingCompletedMessage) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	if err := w.handler.Handle(ctx, msg); err != nil {
		atomic.AddInt64(&w.failed, 1)
		return err
	}
	atomic.AddInt64(&w.processed, 1)
	w.logger.DebugContext(ctx, "Onboarding message handled",
		log.FieldRunID, msg.RunID,
		log.FieldUserID, msg.UserID,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// Stats returns how many messages were processed and how many failed.
func (w *OnboardingWorker) Stats() (processed, failed int64) {
	return atomic.LoadInt64(&w.processed), atomic.LoadInt64(&w.failed)
}

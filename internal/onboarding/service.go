// Package onboarding owns the per-user wizard runs of the server. Each user
// gets at most one run, kept in memory and serialized by its own lock.
package onboarding

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"budgetly/internal/cache"
	"budgetly/internal/log"
	"budgetly/internal/ports"
	"budgetly/internal/wizard"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// CompletionHandler is told about every successfully finished run.
type CompletionHandler interface {
	HandleCompletion(ctx context.Context, userID string, r wizard.Result)
}

type Config struct {
	LandingPath string
	RunTTL      time.Duration
	MaxRuns     int
}

type run struct {
	mu      sync.Mutex
	machine *wizard.Machine
	gate    *wizard.Gate
}

type Service struct {
	scope      ports.UserScope
	completion CompletionHandler
	runs       *cache.LRUCache[*run]
	landing    string
	logger     *slog.Logger
}

// NewService creates the service. completion may be nil.
func NewService(scope ports.UserScope, completion CompletionHandler, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 24 * time.Hour
	}
	if cfg.MaxRuns <= 0 {
		cfg.MaxRuns = 10000
	}
	s := &Service{
		scope:      scope,
		completion: completion,
		runs:       cache.NewLRUCache[*run](cfg.MaxRuns, cfg.RunTTL),
		landing:    cfg.LandingPath,
		logger:     logger.With(log.FieldComponent, log.ComponentOnboarding),
	}
	s.runs.OnEvict(func(userID string, _ *run) {
		s.logger.Debug("Wizard run evicted", log.FieldUserID, userID)
	})
	return s
}

// Runs exposes the run cache so it can be registered with a janitor.
func (s *Service) Runs() cache.Cleaner { return s.runs }

func (s *Service) LandingPath() string { return s.gateFor("").LandingPath() }

func (s *Service) gateFor(userID string) *wizard.Gate {
	return wizard.NewGate(s.scope.Settings(userID), s.landing)
}

func (s *Service) newRun(userID string) *run {
	logger := s.logger.With(log.FieldUserID, userID)
	var callback wizard.CompletionCallback
	if s.completion != nil {
		callback = func(ctx context.Context, r wizard.Result) {
			s.completion.HandleCompletion(ctx, userID, r)
		}
	}
	bridge := wizard.NewBridge(s.scope.Settings(userID), s.scope.Preferences(userID), callback, logger)
	return &run{
		machine: wizard.NewMachine(bridge, logger),
		gate:    s.gateFor(userID),
	}
}

// acquire returns the user's run with its lock held. The cache may evict a
// run while a request waits on or holds its lock, so the entry is checked
// again once locked: a missing entry is put back, a replaced one is retried.
func (s *Service) acquire(id wizard.Identity) (*run, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}
	for {
		r := s.runs.GetOrCreate(id.UserID, func() *run { return s.newRun(id.UserID) })
		r.mu.Lock()
		if s.runs.GetOrCreate(id.UserID, func() *run { return r }) == r {
			return r, nil
		}
		r.mu.Unlock()
	}
}

// release unlocks r, restoring it in the cache if it was evicted meanwhile.
func (s *Service) release(userID string, r *run) {
	if cur := s.runs.GetOrCreate(userID, func() *run { return r }); cur != r {
		s.logger.Warn("Wizard run replaced while in use", log.FieldUserID, userID, log.FieldRunID, r.machine.RunID())
	}
	r.mu.Unlock()
}

// Do runs fn with the user's machine while holding the run lock and returns
// the resulting view.
func (s *Service) Do(id wizard.Identity, fn func(m *wizard.Machine) error) (wizard.ViewModel, error) {
	r, err := s.acquire(id)
	if err != nil {
		return wizard.ViewModel{}, err
	}
	defer s.release(id.UserID, r)

	if fn != nil {
		if err := fn(r.machine); err != nil {
			return r.machine.View(), err
		}
	}
	return r.machine.View(), nil
}

// View returns the current view of the user's run.
func (s *Service) View(id wizard.Identity) (wizard.ViewModel, error) {
	return s.Do(id, nil)
}

// OpenIfNeeded applies the gating policy for route.
func (s *Service) OpenIfNeeded(ctx context.Context, id wizard.Identity, route string) (wizard.ViewModel, bool, error) {
	if !id.Authenticated() {
		return wizard.ViewModel{}, false, nil
	}
	r, err := s.acquire(id)
	if err != nil {
		return wizard.ViewModel{}, false, err
	}
	defer s.release(id.UserID, r)

	opened, err := wizard.OpenIfNeeded(ctx, r.gate, r.machine, id, route)
	if err != nil {
		return r.machine.View(), false, err
	}
	if opened {
		s.logger.DebugContext(ctx, "Wizard gated open",
			log.FieldUserID, id.UserID,
			log.FieldRunID, r.machine.RunID(),
			log.FieldPath, route)
	}
	return r.machine.View(), opened, nil
}

// Open shows the wizard regardless of the onboarded flag.
func (s *Service) Open(id wizard.Identity) (wizard.ViewModel, error) {
	return s.Do(id, func(m *wizard.Machine) error {
		m.Open()
		return nil
	})
}

// Finish completes the user's run if it is on the terminal step.
func (s *Service) Finish(ctx context.Context, id wizard.Identity) (wizard.ViewModel, bool, error) {
	var done bool
	v, err := s.Do(id, func(m *wizard.Machine) error {
		var err error
		done, err = m.Finish(ctx)
		return err
	})
	return v, done, err
}

// Reset clears the user's onboarding flags. An open run keeps its answers.
func (s *Service) Reset(ctx context.Context, id wizard.Identity) error {
	if !id.Authenticated() {
		return ErrUnauthenticated
	}
	if err := s.gateFor(id.UserID).Reset(ctx); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Onboarding reset", log.FieldUserID, id.UserID, log.FieldOperation, log.OpReset)
	return nil
}

// Completed reports whether the user has finished onboarding.
func (s *Service) Completed(ctx context.Context, id wizard.Identity) (bool, error) {
	if !id.Authenticated() {
		return false, ErrUnauthenticated
	}
	return s.gateFor(id.UserID).Completed(ctx)
}

// Package cache holds the in-process stores used for volatile per-user state.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"budgetly/internal/log"
)

// Cache defines a generic keyed store with expiry.
type Cache[T any] interface {
	Get(key string) (T, bool)
	GetOrCreate(key string, create func() T) T
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries on demand.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps registered caches.
type Janitor struct {
	mu      sync.Mutex
	caches  []Cleaner
	logger  *slog.Logger
	stop    chan struct{}
	done    chan struct{}
	started bool
}

func NewJanitor(logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		logger: logger.With(log.FieldComponent, log.ComponentCache),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (j *Janitor) Register(c Cleaner) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// Sweep cleans every registered cache once and returns the number of
// entries removed.
func (j *Janitor) Sweep() int {
	j.mu.Lock()
	caches := append([]Cleaner(nil), j.caches...)
	j.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	if total > 0 {
		j.logger.Debug("Expired cache entries removed", "count", total)
	}
	return total
}

// Start runs Sweep every interval until Stop is called.
func (j *Janitor) Start(interval time.Duration) {
	j.mu.Lock()
	if j.started {
		j.mu.Unlock()
		return
	}
	j.started = true
	j.mu.Unlock()

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.Sweep()
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	started := j.started
	j.mu.Unlock()
	if !started {
		return
	}
	select {
	case <-j.stop:
	default:
		close(j.stop)
	}
	<-j.done
}

package wizard

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"budgetly/internal/ports"
)

// Identity is the user the gate decides for. An empty UserID means the
// request is not authenticated.
type Identity struct {
	UserID string
}

func (id Identity) Authenticated() bool {
	return strings.TrimSpace(id.UserID) != ""
}

// Gate decides whether the wizard should open by itself.
type Gate struct {
	settings    ports.KeyValueStore
	landingPath string
}

// NewGate returns a gate that only fires on landingPath. An empty landing
// path means "/".
func NewGate(settings ports.KeyValueStore, landingPath string) *Gate {
	return &Gate{settings: settings, landingPath: cleanPath(landingPath)}
}

func (g *Gate) LandingPath() string { return g.landingPath }

// Completed reports whether the onboarded flag is set.
func (g *Gate) Completed(ctx context.Context) (bool, error) {
	v, ok, err := g.settings.Get(ctx, FlagOnboarded)
	if err != nil {
		return false, fmt.Errorf("failed to read onboarded flag: %w", err)
	}
	return ok && v == flagSet, nil
}

// ShouldOpen applies the gating rule for id on route.
func (g *Gate) ShouldOpen(ctx context.Context, id Identity, route string) (bool, error) {
	if !id.Authenticated() || cleanPath(route) != g.landingPath {
		return false, nil
	}
	done, err := g.Completed(ctx)
	if err != nil {
		return false, err
	}
	return !done, nil
}

// Reset clears the onboarded flag and the cached currency. It does not
// touch any open run.
func (g *Gate) Reset(ctx context.Context) error {
	return errors.Join(
		g.settings.Remove(ctx, FlagOnboarded),
		g.settings.Remove(ctx, KeyPreferredCurrency),
	)
}

// OpenIfNeeded opens m when the gate allows it and reports whether the
// wizard is open afterwards. An already open wizard is left as is.
func OpenIfNeeded(ctx context.Context, g *Gate, m *Machine, id Identity, route string) (bool, error) {
	if m.IsOpen() {
		return true, nil
	}
	ok, err := g.ShouldOpen(ctx, id, route)
	if err != nil || !ok {
		return false, err
	}
	m.Open()
	return true, nil
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

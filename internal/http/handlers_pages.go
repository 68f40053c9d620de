package http

import (
	"context"
	"net/http"

	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/wizard"
)

// preferencesData is the saved setup shown on the landing and settings pages.
type preferencesData struct {
	Authenticated bool
	UserID        string
	Preferences   core.Preferences
	FixedCosts    []core.FixedCost
	Summary       core.FixedCostSummary
	Categories    []core.Category
}

type pageData struct {
	preferencesData
	Completed bool
}

func (s *Server) loadPreferences(ctx context.Context, id wizard.Identity) preferencesData {
	data := preferencesData{Authenticated: id.Authenticated(), UserID: id.UserID}
	if !data.Authenticated {
		return data
	}
	logger := log.FromContext(ctx).WithUser(id.UserID)

	prefs, err := s.scope.Preferences(id.UserID).GetPreferences(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Failed to load preferences", log.FieldError, err)
	}
	data.Preferences = prefs

	costs, err := s.scope.FixedCosts(id.UserID).ListFixedCosts(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Failed to load fixed costs", log.FieldError, err)
	}
	data.FixedCosts = costs
	data.Summary = core.SummarizeFixedCosts(costs, prefs.BudgetPeriod)

	cats, err := s.scope.Categories(id.UserID).ListCategories(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Failed to load categories", log.FieldError, err)
	}
	data.Categories = cats
	return data
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id := s.identity.resolve(r)
	s.render(w, r, "index.html", pageData{preferencesData: s.loadPreferences(r.Context(), id)}, nil)
}

func (s *Server) handlePreferencesSummary(w http.ResponseWriter, r *http.Request) {
	id := s.identity.resolve(r)
	s.render(w, r, "preferences", s.loadPreferences(r.Context(), id), nil)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	completed, err := s.onboarding.Completed(r.Context(), id)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to read onboarding flag",
			log.FieldUserID, id.UserID, log.FieldError, err)
	}
	s.render(w, r, "settings.html", pageData{
		preferencesData: s.loadPreferences(r.Context(), id),
		Completed:       completed,
	}, nil)
}

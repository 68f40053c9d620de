package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"budgetly/internal/catalog"
	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/middleware/trace"
	"budgetly/internal/wizard"
)

// wizardData feeds the "wizard" template.
type wizardData struct {
	View       wizard.ViewModel
	Catalog    catalog.Catalog
	Categories []core.Category
	Summary    core.FixedCostSummary
}

// inputError is a rejected request value; it maps to 422.
type inputError struct {
	msg string
	err error
}

func (e inputError) Error() string { return e.msg }
func (e inputError) Unwrap() error { return e.err }

func badInput(msg string, err error) error { return inputError{msg: msg, err: err} }

func (s *Server) requireIdentity(w http.ResponseWriter, r *http.Request) (wizard.Identity, bool) {
	id := s.identity.resolve(r)
	if !id.Authenticated() {
		UnauthorizedError().Write(w)
		return id, false
	}
	return id, true
}

func (s *Server) wizardData(ctx context.Context, id wizard.Identity, view wizard.ViewModel) wizardData {
	data := wizardData{
		View:    view,
		Catalog: s.catalog,
		Summary: view.Data.FixedCostSummary(),
	}
	if view.IsOpen && (view.CurrentStep == wizard.StepFixedCost || view.CurrentStep == wizard.StepComplete) {
		cats, err := s.scope.Categories(id.UserID).ListCategories(ctx)
		if err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Failed to list categories", log.FieldUserID, id.UserID, log.FieldError, err)
		}
		data.Categories = cats
	}
	return data
}

func (s *Server) renderWizard(w http.ResponseWriter, r *http.Request, id wizard.Identity, view wizard.ViewModel, b *HTMXResponseBuilder) {
	s.render(w, r, "wizard", s.wizardData(r.Context(), id, view), b)
}

func changed(view wizard.ViewModel) *HTMXResponseBuilder {
	return NewHTMXResponse().TriggerOnboardingChanged(string(view.CurrentStep), view.CurrentIndex, view.IsOpen)
}

func (s *Server) logFailure(r *http.Request, msg string, err error, id wizard.Identity, runID, op string) {
	s.events.LogError(r.Context(), msg, err, log.ComponentOnboarding, op,
		log.NewFields().
			WithRun(id.UserID, runID).
			WithRequestID(trace.GetRequestID(r.Context())))
}

// mutate parses the body and applies fn to the user's machine under its lock.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op string, fn func(p *RequestBodyParser, m *wizard.Machine) error) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	p, errResp := ParseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	view, err := s.onboarding.Do(id, func(m *wizard.Machine) error { return fn(p, m) })
	if err != nil {
		var ie inputError
		if errors.As(err, &ie) {
			UnprocessableEntityError(ie.msg).TriggerErrorNotification(ie.msg).Write(w)
			return
		}
		s.logFailure(r, "Wizard operation failed", err, id, view.RunID, op)
		InternalServerError("Something went wrong").Write(w)
		return
	}

	log.FromContext(r.Context()).DebugContext(r.Context(), "Wizard updated",
		log.FieldUserID, id.UserID,
		log.FieldRunID, view.RunID,
		log.FieldOperation, op,
		log.FieldStep, string(view.CurrentStep))
	s.renderWizard(w, r, id, view, changed(view))
}

func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	id := s.identity.resolve(r)
	route := currentRoute(r)

	if !id.Authenticated() || route == "" {
		s.renderWizard(w, r, id, wizard.ViewModel{}, nil)
		return
	}

	view, opened, err := s.onboarding.OpenIfNeeded(r.Context(), id, route)
	if err != nil {
		s.logFailure(r, "Onboarding gate failed", err, id, view.RunID, log.OpOpen)
		view.IsOpen = false
		s.renderWizard(w, r, id, view, NewHTMXResponse().
			Status(http.StatusInternalServerError).
			TriggerErrorNotification("Could not load your setup status"))
		return
	}

	var b *HTMXResponseBuilder
	if opened {
		b = changed(view)
	}
	s.renderWizard(w, r, id, view, b)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	view, err := s.onboarding.View(id)
	if err != nil {
		s.logFailure(r, "Wizard view failed", err, id, "", log.OpRender)
		InternalServerError("Something went wrong").Write(w)
		return
	}
	s.renderWizard(w, r, id, view, nil)
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpOpen, func(_ *RequestBodyParser, m *wizard.Machine) error {
		m.Open()
		return nil
	})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpClose, func(_ *RequestBodyParser, m *wizard.Machine) error {
		m.Close()
		return nil
	})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpNavigate, func(_ *RequestBodyParser, m *wizard.Machine) error {
		m.Next()
		return nil
	})
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpNavigate, func(_ *RequestBodyParser, m *wizard.Machine) error {
		m.Back()
		return nil
	})
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpNavigate, func(_ *RequestBodyParser, m *wizard.Machine) error {
		m.Skip()
		return nil
	})
}

func (s *Server) handleSelectCurrency(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpAnswer, func(p *RequestBodyParser, m *wizard.Machine) error {
		c, err := core.ParseCurrency(p.Get("currency"))
		if err != nil {
			return badInput("Choose one of the listed currencies", err)
		}
		m.SelectCurrency(c)
		return nil
	})
}

func (s *Server) handleSelectTimeline(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpAnswer, func(p *RequestBodyParser, m *wizard.Machine) error {
		tl, err := core.ParseBudgetPeriod(p.Get("timeline"))
		if err != nil {
			return badInput("Choose one of the listed timelines", err)
		}
		m.SelectTimeline(tl)
		return nil
	})
}

func (s *Server) handleAddFixedCost(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpAnswer, func(_ *RequestBodyParser, m *wizard.Machine) error {
		m.AddFixedCostItem()
		return nil
	})
}

func (s *Server) handleUpdateFixedCost(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpAnswer, func(p *RequestBodyParser, m *wizard.Machine) error {
		i, err := ParseIndex(r)
		if err != nil {
			return badInput("Unknown fixed cost", err)
		}
		patch, err := ParseFixedCostPatch(p)
		if err != nil {
			return badInput("Enter a valid amount, like 12.50", err)
		}
		m.UpdateFixedCostItem(i, patch)
		return nil
	})
}

func (s *Server) handleRemoveFixedCost(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpAnswer, func(_ *RequestBodyParser, m *wizard.Machine) error {
		i, err := ParseIndex(r)
		if err != nil {
			return badInput("Unknown fixed cost", err)
		}
		m.RemoveFixedCostItem(i)
		return nil
	})
}

func (s *Server) handleToggleSpendingCategory(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpAnswer, func(p *RequestBodyParser, m *wizard.Machine) error {
		label := p.Get("label")
		if label == "" {
			return badInput("Pick a category", core.ErrEmptyCategoryName)
		}
		m.ToggleSpendingCategory(label)
		return nil
	})
}

// handleCreateCategory creates a category from free text and optionally
// assigns it to the fixed-cost item given in "item".
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	p, errResp := ParseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	name, err := core.NormalizeCategoryName(p.Get("name"))
	if err != nil {
		UnprocessableEntityError("Enter a category name").TriggerErrorNotification("Enter a category name").Write(w)
		return
	}
	item := -1
	if raw := p.Get("item"); raw != "" {
		item, err = strconv.Atoi(raw)
		if err != nil || item < 0 {
			UnprocessableEntityError("Unknown fixed cost").Write(w)
			return
		}
	}

	catID, err := s.scope.Categories(id.UserID).CreateCategory(r.Context(), name)
	if err != nil {
		s.logFailure(r, "Failed to create category", err, id, "", log.OpAnswer)
		InternalServerError("Could not create the category").Write(w)
		return
	}

	view, err := s.onboarding.Do(id, func(m *wizard.Machine) error {
		if item >= 0 {
			m.UpdateFixedCostItem(item, wizard.FixedCostPatch{CategoryID: &catID})
		}
		return nil
	})
	if err != nil {
		s.logFailure(r, "Wizard operation failed", err, id, view.RunID, log.OpAnswer)
		InternalServerError("Something went wrong").Write(w)
		return
	}
	s.renderWizard(w, r, id, view, changed(view).TriggerCategoryCreated(catID, name))
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	view, done, err := s.onboarding.Finish(r.Context(), id)
	if err != nil {
		s.logFailure(r, "Failed to finish onboarding", err, id, view.RunID, log.OpFinish)
		s.renderWizard(w, r, id, view, changed(view).
			Status(http.StatusInternalServerError).
			TriggerErrorNotification("We couldn't save your setup. Open it again from settings to retry."))
		return
	}

	b := changed(view)
	if done {
		a := view.Data
		s.events.LogOnboardingCompleted(r.Context(), id.UserID, view.RunID,
			string(a.Currency), string(a.Timeline), len(a.FixedCosts), len(a.SpendingCategories))
		b.TriggerOnboardingCompleted(view.RunID).
			TriggerPreferencesRefresh().
			TriggerSuccessNotification("You're all set")
	}
	s.renderWizard(w, r, id, view, b)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	if err := s.onboarding.Reset(r.Context(), id); err != nil {
		s.logFailure(r, "Failed to reset onboarding", err, id, "", log.OpReset)
		InternalServerError("Could not reset setup").
			TriggerErrorNotification("Could not reset setup").
			Write(w)
		return
	}
	NewHTMXResponse().
		TriggerOnboardingReset().
		TriggerPreferencesRefresh().
		TriggerSuccessNotification("Setup will start again on your next visit").
		BodyHTML(`<p class="muted">Setup has been reset.</p>`).
		Write(w)
}

// Package http serves the budgetly web app: the landing and settings pages
// and the htmx endpoints that drive the setup wizard.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"budgetly/internal/catalog"
	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/middleware/ratelimit"
	"budgetly/internal/middleware/security"
	"budgetly/internal/middleware/trace"
	"budgetly/internal/onboarding"
	"budgetly/internal/ports"
	appweb "budgetly/web"
)

// Deps are the collaborators of the server.
type Deps struct {
	Onboarding *onboarding.Service
	Scope      ports.UserScope
	Catalog    catalog.Catalog
	// Ready backs /readyz; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger

	AuthHeader string
	DevUser    string
	// TrustedProxies are extra CIDRs allowed to set AuthHeader.
	TrustedProxies []string
	RateLimit      ratelimit.Config
}

type Server struct {
	http.Server
	templates  *template.Template
	onboarding *onboarding.Service
	scope      ports.UserScope
	catalog    catalog.Catalog
	ready      func(ctx context.Context) error
	logger     *log.Logger
	events     *log.StructuredLogger

	identity identityResolver
	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, d Deps) (*Server, error) {
	if d.Onboarding == nil || d.Scope == nil {
		return nil, errors.New("http: onboarding service and user scope are required")
	}
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range d.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		onboarding: d.Onboarding,
		scope:      d.Scope,
		catalog:    d.Catalog,
		ready:      d.Ready,
		logger:     logger,
		events:     log.NewStructuredLogger(logger),
		identity:   identityResolver{header: d.AuthHeader, devUser: sanitizeUserID(d.DevUser), detector: detector},
		detector:   detector,
		limiter:    ratelimit.NewLimiter(d.RateLimit),
		tracer:     trace.NewMiddleware(logger, detector.ExtractClientIP),
	}
	if len(s.catalog.Currencies) == 0 {
		s.catalog = catalog.Default()
	}

	t, err := template.New("").Funcs(s.templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.limiter.Stop()
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /settings", s.handleSettings)
	mux.HandleFunc("GET /ui/preferences", s.handlePreferencesSummary)

	mux.HandleFunc("GET /onboarding/gate", s.handleGate)
	mux.HandleFunc("GET /onboarding", s.handleView)
	mux.HandleFunc("POST /onboarding/open", s.handleOpen)
	mux.HandleFunc("POST /onboarding/close", s.handleClose)
	mux.HandleFunc("POST /onboarding/next", s.handleNext)
	mux.HandleFunc("POST /onboarding/back", s.handleBack)
	mux.HandleFunc("POST /onboarding/skip", s.handleSkip)
	mux.HandleFunc("POST /onboarding/finish", s.handleFinish)
	mux.HandleFunc("POST /onboarding/currency", s.handleSelectCurrency)
	mux.HandleFunc("POST /onboarding/timeline", s.handleSelectTimeline)
	mux.HandleFunc("POST /onboarding/fixed-costs", s.handleAddFixedCost)
	mux.HandleFunc("POST /onboarding/fixed-costs/{index}", s.handleUpdateFixedCost)
	mux.HandleFunc("DELETE /onboarding/fixed-costs/{index}", s.handleRemoveFixedCost)
	mux.HandleFunc("POST /onboarding/spending-categories", s.handleToggleSpendingCategory)
	mux.HandleFunc("POST /onboarding/categories", s.handleCreateCategory)
	mux.HandleFunc("POST /onboarding/reset", s.handleReset)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.rateKey, ratelimit.MutatingOnly, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		NewHTMXResponse().
			Status(http.StatusTooManyRequests).
			TriggerErrorNotification("Too many requests, slow down a little").
			Write(w)
	})

	var h http.Handler = mux
	h = limit(h)
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)
	h = log.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": func(code core.Currency, m core.Money) string {
			return formatMoney(s.catalog, code, m)
		},
		"currencyLabel": func(code core.Currency) string {
			if c, ok := s.catalog.Currency(code); ok {
				return c.Label
			}
			return string(code)
		},
		"timelineLabel": func(p core.BudgetPeriod) string {
			if tl, ok := s.catalog.Timeline(p); ok {
				return tl.Label
			}
			return string(p)
		},
		"add": func(a, b int) int { return a + b },
	}
}

// render executes the named template and writes it through b.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any, b *HTMXResponseBuilder) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.events.LogError(r.Context(), "Template render failed", err, log.ComponentTemplate, log.OpRender,
			log.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
		InternalServerError("Something went wrong").Write(w)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.BodyHTML(buf.String()).Write(w)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops the rate limiter and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

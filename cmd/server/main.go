package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/liamcoop/mathgen/generator"
	"github.com/liamcoop/mathgen/internal/config"
	"github.com/liamcoop/mathgen/internal/logger"
	"github.com/liamcoop/mathgen/migrations"
	"github.com/liamcoop/mathgen/runs"
	"github.com/liamcoop/mathgen/templates"
)

// insufficientBudgetMessage is shown to users when generation gives up.
const insufficientBudgetMessage = "couldn't generate enough examples, check your inputs"

// fractionMaxDenominator bounds the denominators of rendered fractions.
const fractionMaxDenominator = 100

type Server struct {
	db        *sql.DB // nil when templates are kept in memory
	cfg       *config.Config
	templates *templates.Service
	runs      *runs.Manager
	router    *chi.Mux
}

// NewServer opens the template store selected by cfg and builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, keeping templates in memory")
		return NewServerWithStore(cfg, nil, templates.NewInMemoryTemplateStore())
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		logger.Info("running migrations")
		if err := migrations.Up(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	s, err := NewServerWithStore(cfg, db, templates.NewPostgresTemplateStore(db))
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewServerWithStore builds the server over an existing store. db is only
// used for health checks and may be nil.
func NewServerWithStore(cfg *config.Config, db *sql.DB, store templates.TemplateStore) (*Server, error) {
	svc, err := templates.NewService(store, templates.Options{
		Cache:                  templates.NewInMemoryTemplatesCache(templates.CacheConfig{TTL: cfg.TemplateCacheTTL}),
		MaxAttemptsPerSolution: cfg.MaxAttemptsPerSolution,
		WallClockLimit:         cfg.WallClockLimit,
		MaxSolutions:           cfg.MaxSolutions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	if cfg.SeedCatalog {
		added, err := svc.SeedCatalog()
		if err != nil {
			return nil, err
		}
		logger.Info("catalog seeded", "added", added)
	}

	list, err := svc.ListActive()
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	logger.Info("templates loaded", "count", len(list))

	s := &Server{
		db:        db,
		cfg:       cfg,
		templates: svc,
		runs:      runs.NewManager(),
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/api/v1/health", s.handleHealth)
	r.Get("/api/v1/metrics", s.handleMetrics)

	// Ad-hoc generation
	r.Post("/api/v1/generate", s.handleGenerate)

	// Template management
	r.Route("/api/v1/templates", func(r chi.Router) {
		r.Get("/", s.handleListTemplates)
		r.Post("/", s.handleCreateTemplate)

		r.Route("/{templateId}", func(r chi.Router) {
			r.Get("/", s.handleGetTemplate)
			r.Put("/", s.handleUpdateTemplate)
			r.Delete("/", s.handleDeleteTemplate)
			r.Post("/generate", s.handleGenerateTemplate)
		})
	})

	r.Post("/api/v1/sessions/{sessionId}/cancel", s.handleCancelSession)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs every request through the structured logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"requestId", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:     "healthy",
		Storage:    "memory",
		ActiveRuns: len(s.runs.ListSessions()),
		Time:       time.Now().UTC(),
	}
	if s.db != nil {
		resp.Storage = "postgres"
		if err := s.db.PingContext(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	list, err := s.templates.ListActive()
	if err != nil {
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.TemplatesLoaded = len(list)

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, logger.Snapshot())
}

// Ad-hoc generation handler
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	count := req.Count
	if count == 0 {
		count = templates.DefaultSolutionCount
	}
	if count < 0 || count > s.cfg.MaxSolutions {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("count must be between 1 and %d", s.cfg.MaxSolutions), nil)
		return
	}

	answers, err := templates.CompileAnswers(req.Answers)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid answer", err)
		return
	}

	run := s.runs.Start(req.SessionID)
	defer s.runs.Finish(run)

	res, err := generator.Generate(r.Context(), generator.Request{
		Variables:              req.Variables,
		Conditions:             req.Conditions,
		TargetCount:            count,
		IsCanceled:             run.Canceled,
		MaxAttemptsPerSolution: s.cfg.MaxAttemptsPerSolution,
		WallClockLimit:         s.cfg.WallClockLimit,
		Seed:                   req.Seed,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid generation request", err)
		return
	}

	proper := make(map[string]bool, len(req.Variables))
	names := make([]string, 0, len(req.Variables))
	for name, spec := range req.Variables {
		names = append(names, name)
		if spec.Mode() == generator.ModeProperFraction {
			proper[name] = true
		}
	}

	var examples []templates.Example
	if res.Status == generator.StatusCompleted {
		examples = answers.Examples(res.Solutions, proper, names)
	}
	s.respondResult(w, run, "", res, examples, proper)
}

// respondResult maps a run outcome to a response: 200 with the examples,
// 422 when the budget ran out and 204 when the run was canceled.
func (s *Server) respondResult(w http.ResponseWriter, run *runs.Run, templateID string, res *generator.Result, examples []templates.Example, proper map[string]bool) {
	switch res.Status {
	case generator.StatusCanceled:
		w.WriteHeader(http.StatusNoContent)

	case generator.StatusInsufficientBudget:
		respondJSON(w, http.StatusUnprocessableEntity, InsufficientBudgetResponse{
			Error:    insufficientBudgetMessage,
			Attempts: res.Attempts,
			Elapsed:  res.Elapsed.String(),
			Seed:     res.Seed,
		})

	default:
		resp := GenerateResponse{
			RunID:      run.ID,
			SessionID:  run.SessionID,
			TemplateID: templateID,
			Seed:       res.Seed,
			Attempts:   res.Attempts,
			Elapsed:    res.Elapsed.String(),
			Examples:   make([]ExampleResponse, len(examples)),
		}
		for i, ex := range examples {
			resp.Examples[i] = exampleResponse(ex, proper)
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

func exampleResponse(ex templates.Example, proper map[string]bool) ExampleResponse {
	out := ExampleResponse{}
	for _, name := range ex.Solution.Names() {
		v, _ := ex.Solution.Get(name)
		out.Variables = append(out.Variables, valueResponse(name, &v, proper[name]))
	}
	for _, a := range ex.Answers {
		out.Answers = append(out.Answers, valueResponse(a.Name, a.Value, a.Fraction))
	}
	return out
}

func valueResponse(name string, v *float64, fraction bool) ValueResponse {
	resp := ValueResponse{Name: name, Value: v}
	if fraction && v != nil {
		resp.Fraction = generator.FormatFraction(*v, fractionMaxDenominator)
	}
	return resp
}

// List templates handler. ?all=true includes inactive templates.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	var (
		list []*templates.Template
		err  error
	)
	if r.URL.Query().Get("all") == "true" {
		list, err = s.templates.List()
	} else {
		list, err = s.templates.ListActive()
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list templates", err)
		return
	}
	if list == nil {
		list = []*templates.Template{}
	}

	respondJSON(w, http.StatusOK, TemplatesListResponse{Templates: list})
}

// Create template handler
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	tmpl := req.template("")
	if err := s.templates.AddTemplate(tmpl); err != nil {
		respondTemplateError(w, "failed to add template", err)
		return
	}

	respondJSON(w, http.StatusCreated, tmpl)
}

// Get template handler
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.templates.Get(chi.URLParam(r, "templateId"))
	if err != nil {
		respondTemplateError(w, "template not found", err)
		return
	}

	respondJSON(w, http.StatusOK, tmpl)
}

// Update template handler
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	id := chi.URLParam(r, "templateId")
	if err := s.templates.UpdateTemplate(req.template(id)); err != nil {
		respondTemplateError(w, "failed to update template", err)
		return
	}

	updated, err := s.templates.Get(id)
	if err != nil {
		respondTemplateError(w, "failed to reload template", err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// Delete template handler
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.templates.DeleteTemplate(chi.URLParam(r, "templateId")); err != nil {
		respondTemplateError(w, "failed to delete template", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Template generation handler
func (s *Server) handleGenerateTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateId")

	var req TemplateGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	run := s.runs.Start(req.SessionID)
	defer s.runs.Finish(run)

	res, err := s.templates.Generate(r.Context(), templateID, templates.GenerateRequest{
		Count:      req.Count,
		Overrides:  req.Overrides,
		Options:    req.Options,
		Seed:       req.Seed,
		IsCanceled: run.Canceled,
	})
	if err != nil {
		respondTemplateError(w, "failed to generate examples", err)
		return
	}

	s.respondResult(w, run, templateID, res.Result, res.Examples, res.Proper)
}

// Cancel the active run of a session
func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	if err := s.runs.Cancel(chi.URLParam(r, "sessionId")); err != nil {
		respondError(w, http.StatusNotFound, "no active run", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode response", "error", err.Error())
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	respondJSON(w, status, resp)
}

// respondTemplateError maps template service errors to status codes.
func respondTemplateError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, templates.ErrNotFound):
		respondError(w, http.StatusNotFound, message, err)
	case errors.Is(err, templates.ErrAlreadyExists):
		respondError(w, http.StatusConflict, message, err)
	case errors.Is(err, templates.ErrInvalidTemplate), errors.Is(err, templates.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, message, err)
	default:
		logger.Error(message, "error", err.Error())
		respondError(w, http.StatusInternalServerError, message, err)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err.Error())
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err.Error())
	}
	if server.db != nil {
		defer server.db.Close()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err.Error())
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err.Error())
	}
	if err := logger.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown error: %v\n", err)
	}

	logger.Info("server stopped")
}

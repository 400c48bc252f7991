// Package http exposes the transactions, budgets, categories and summaries
// over a JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// Deps are the collaborators the handlers call.
type Deps struct {
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Categories   *services.CategoryService
	// Store answers the readiness probe.
	Store  storage.Pinger
	Logger *log.Logger

	RateLimitPerMinute int
	// TrustedProxies extend the private ranges trusted for X-Forwarded-For.
	TrustedProxies []string
}

type Server struct {
	http.Server

	transactions *services.TransactionService
	budgets      *services.BudgetService
	categories   *services.CategoryService
	store        storage.Pinger

	logger   *log.Logger
	sl       *log.StructuredLogger
	limiter  *ratelimit.Limiter
	detector *security.Detector
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		transactions: deps.Transactions,
		budgets:      deps.Budgets,
		categories:   deps.Categories,
		store:        deps.Store,
		logger:       logger.WithComponent(log.ComponentHTTP),
		sl:           log.NewStructuredLogger(logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
		}),
		detector: security.NewDetector(),
	}

	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(s.routes()),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Not found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").Write(w)
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	r.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods(http.MethodPut)
	r.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	r.HandleFunc("/budgets", s.handleListBudgets).Methods(http.MethodGet)
	r.HandleFunc("/budgets", s.handleCreateBudget).Methods(http.MethodPost)
	r.HandleFunc("/budgets/comparison", s.handleBudgetComparison).Methods(http.MethodGet)

	r.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	r.HandleFunc("/categories", s.handleAddCategory).Methods(http.MethodPost)

	r.HandleFunc("/summary/categories", s.handleSummaryByCategory).Methods(http.MethodGet)
	r.HandleFunc("/summary/monthly", s.handleSummaryByMonth).Methods(http.MethodGet)
	return r
}

// middleware wraps the router so unmatched routes are traced and limited too.
// Outermost first: logger, trace, headers, detection, rate limit.
func (s *Server) middleware(h http.Handler) http.Handler {
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
			"Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	}

	h = s.limiter.Middleware(s.detector.ExtractClientIP, onLimit)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(s.detector.ExtractClientIP, nil).Middleware(h)
	h = log.Middleware(s.logger)(h)
	return h
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

// fail maps err to a response. Storage failures are logged and answered
// with fallback, never with the error text.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, component, operation, fallback string) {
	var verrs core.ValidationErrors
	rejected := func(kind string) {
		log.FromContext(r.Context()).WithComponent(component).DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, operation,
			log.FieldErrorType, kind,
			log.FieldError, err)
	}
	switch {
	case errors.As(err, &verrs):
		rejected(log.ErrorTypeValidation)
		ValidationResponse(verrs).Write(w)
	case errors.Is(err, errInvalidBody):
		rejected(log.ErrorTypeValidation)
		BadRequestError("Invalid request body").Write(w)
	case errors.Is(err, core.ErrNotFound):
		rejected(log.ErrorTypeNotFound)
		NotFoundError(notFoundMessage(component)).Write(w)
	case errors.Is(err, core.ErrDuplicate):
		rejected(log.ErrorTypeConflict)
		ConflictError(conflictMessage(component)).Write(w)
	default:
		s.sl.LogError(r.Context(), fallback, err, component, operation, errorType(err))
		InternalServerError(fallback).Write(w)
	}
}

func notFoundMessage(component string) string {
	switch component {
	case log.ComponentTransaction:
		return "Transaction not found"
	case log.ComponentBudget:
		return "Budget not found"
	default:
		return "Not found"
	}
}

func conflictMessage(component string) string {
	if component == log.ComponentCategory {
		return "Category already exists"
	}
	return "Already exists"
}

func errorType(err error) string {
	var connErr *core.ConnectivityError
	switch {
	case errors.As(err, &connErr) && connErr.Timeout:
		return log.ErrorTypeTimeout
	case errors.As(err, &connErr):
		return log.ErrorTypeNetwork
	case errors.Is(err, context.DeadlineExceeded):
		return log.ErrorTypeTimeout
	default:
		return log.ErrorTypeDatabase
	}
}

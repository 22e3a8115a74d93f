package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appai "github.com/bryanwahyu/exewatch/internal/application/ai"
	appauth "github.com/bryanwahyu/exewatch/internal/application/auth"
	appingest "github.com/bryanwahyu/exewatch/internal/application/ingest"
	applogs "github.com/bryanwahyu/exewatch/internal/application/logs"
	appresults "github.com/bryanwahyu/exewatch/internal/application/results"
	appsessions "github.com/bryanwahyu/exewatch/internal/application/sessions"
	"github.com/bryanwahyu/exewatch/internal/common"
	aidomain "github.com/bryanwahyu/exewatch/internal/domain/ai"
	"github.com/bryanwahyu/exewatch/internal/domain/events"
	logsdomain "github.com/bryanwahyu/exewatch/internal/domain/logs"
	resultsdomain "github.com/bryanwahyu/exewatch/internal/domain/results"
	"github.com/bryanwahyu/exewatch/internal/middleware"
)

// Options carries everything the router needs beyond the services.
type Options struct {
	JWTSecret       []byte
	ScannerToken    string
	CORSOrigin      string
	RateLimiter     *middleware.RateLimiter
	HealthCheckers  map[string]middleware.HealthChecker
	RealtimeHandler http.Handler
}

type Router struct {
	authSvc     *appauth.Service
	sessionsSvc *appsessions.Service
	resultsSvc  *appresults.Service
	logsSvc     *applogs.Service
	ingestSvc   *appingest.Service
	aiSvc       *appai.Service
}

func NewRouter(
	authSvc *appauth.Service,
	sessionsSvc *appsessions.Service,
	resultsSvc *appresults.Service,
	logsSvc *applogs.Service,
	ingestSvc *appingest.Service,
	aiSvc *appai.Service,
	opts Options,
) http.Handler {
	r := &Router{
		authSvc:     authSvc,
		sessionsSvc: sessionsSvc,
		resultsSvc:  resultsSvc,
		logsSvc:     logsSvc,
		ingestSvc:   ingestSvc,
		aiSvc:       aiSvc,
	}

	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{opts.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.ScannerTokenHeader},
		AllowCredentials: true,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Post("/auth/login", r.wrap(r.handleLogin))

	if opts.RealtimeHandler != nil {
		mux.Handle("/ws", opts.RealtimeHandler)
	}

	// Dashboard routes, bearer-token protected.
	mux.Group(func(g chi.Router) {
		g.Use(middleware.JWTAuth(opts.JWTSecret))

		g.Post("/sessions", r.wrap(r.handleCreateSession))
		g.Get("/sessions", r.wrap(r.handleListSessions))
		g.Get("/sessions/{id}", r.wrap(r.handleGetSession))
		g.Post("/sessions/{id}/analyze", r.wrap(r.handleAnalyzeSession))

		g.Get("/results", r.wrap(r.handleListResults))
		g.Get("/results/critical", r.wrap(r.handleCriticalResults))
		g.Post("/results/ack", r.wrap(r.handleAckResult))

		g.Get("/logs", r.wrap(r.handleListLogs))
	})

	// Agent ingest route, shared-secret protected and rate limited.
	mux.Group(func(g chi.Router) {
		g.Use(middleware.ScannerAuth(opts.ScannerToken))
		g.Use(middleware.RateLimitMiddleware(opts.RateLimiter))
		g.Post("/ingest/event", r.wrap(r.handleIngestEvent))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap converts handler errors into the HTTP taxonomy. Anything unclassified
// is logged server-side and answered with a generic 500.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrUnknownEventKind):
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, common.ErrUnauthorized):
			middleware.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, common.ErrForbidden):
			middleware.WriteError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, common.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			middleware.WriteError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, aidomain.ErrNotConfigured):
			middleware.WriteError(w, http.StatusServiceUnavailable, err.Error())
		default:
			slog.Error("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
			middleware.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// queryInt parses an optional positive integer query parameter. Absent means
// the default; anything supplied must be a positive integer.
func queryInt(req *http.Request, key string, def int) (int, error) {
	raw := req.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", common.ErrInvalidPagination, key)
	}
	return v, nil
}

// POST /auth/login
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrValidation)
	}

	token, user, err := r.authSvc.Login(body.Username, body.Password)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

// POST /sessions
func (r *Router) handleCreateSession(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		ClientLabel string `json:"clientLabel"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrValidation)
	}

	sess, err := r.sessionsSvc.Create(req.Context(), body.ClientLabel)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, sess)
}

// GET /sessions
func (r *Router) handleListSessions(w http.ResponseWriter, req *http.Request) error {
	list, err := r.sessionsSvc.Latest(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /sessions/{id}
func (r *Router) handleGetSession(w http.ResponseWriter, req *http.Request) error {
	sess, err := r.sessionsSvc.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, sess)
}

// POST /sessions/{id}/analyze
func (r *Router) handleAnalyzeSession(w http.ResponseWriter, req *http.Request) error {
	summary, err := r.aiSvc.Summarize(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// GET /results?sessionId&page&limit&severity&status
func (r *Router) handleListResults(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	if err := middleware.ValidateSeverity(q.Get("severity")); err != nil {
		return err
	}
	if err := middleware.ValidateResultStatus(q.Get("status")); err != nil {
		return err
	}
	page, err := queryInt(req, "page", 1)
	if err != nil {
		return err
	}
	limit, err := queryInt(req, "limit", 20)
	if err != nil {
		return err
	}

	f := resultsdomain.Filter{
		SessionID: q.Get("sessionId"),
		Severity:  resultsdomain.Severity(q.Get("severity")),
		Status:    resultsdomain.Status(q.Get("status")),
	}
	pageData, err := r.resultsSvc.List(req.Context(), f, page, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, pageData)
}

// GET /results/critical?sessionId
func (r *Router) handleCriticalResults(w http.ResponseWriter, req *http.Request) error {
	list, err := r.resultsSvc.Critical(req.Context(), req.URL.Query().Get("sessionId"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /results/ack
func (r *Router) handleAckResult(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrValidation)
	}

	if err := r.resultsSvc.Acknowledge(req.Context(), body.ID); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /logs?sessionId&level&page&limit
func (r *Router) handleListLogs(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	if err := middleware.ValidateLogLevel(q.Get("level")); err != nil {
		return err
	}
	page, err := queryInt(req, "page", 1)
	if err != nil {
		return err
	}
	limit, err := queryInt(req, "limit", 50)
	if err != nil {
		return err
	}

	f := logsdomain.Filter{
		SessionID: q.Get("sessionId"),
		Level:     logsdomain.Level(q.Get("level")),
	}
	pageData, err := r.logsSvc.List(req.Context(), f, page, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, pageData)
}

// POST /ingest/event
func (r *Router) handleIngestEvent(w http.ResponseWriter, req *http.Request) error {
	var env events.Envelope
	if err := json.NewDecoder(req.Body).Decode(&env); err != nil {
		middleware.IncrementEventsRejected()
		return fmt.Errorf("%w: malformed request body", common.ErrValidation)
	}

	if err := r.ingestSvc.Handle(req.Context(), env); err != nil {
		middleware.IncrementEventsRejected()
		return err
	}
	middleware.IncrementEventsIngested()
	return writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

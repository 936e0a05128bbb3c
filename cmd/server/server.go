package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/liamcoop/credit/audit"
	"github.com/liamcoop/credit/internal/logger"
	"github.com/liamcoop/credit/internal/metrics"
	"github.com/liamcoop/credit/scoring"
)

const (
	maxBodyBytes         = 1 << 20
	slowRequestThreshold = 2 * time.Second
	decisionIDHeader     = "X-Decision-Id"
)

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	engine   *scoring.Engine
	store    audit.Store
	db       Pinger
	metrics  *metrics.Metrics
	validate *validator.Validate
	router   *chi.Mux
}

// Options carries the optional collaborators of a Server
type Options struct {
	Store          audit.Store
	DB             Pinger
	CORSOrigins    []string
	RequestTimeout time.Duration
}

func NewServer(engine *scoring.Engine, opts Options) *Server {
	store := opts.Store
	if store == nil {
		store = audit.NewInMemoryStore()
	}

	s := &Server{
		engine:   engine,
		store:    store,
		db:       opts.DB,
		metrics:  metrics.New(string(engine.Mode())),
		validate: newValidator(),
	}
	s.setupRoutes(opts)
	return s
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) setupRoutes(opts Options) {
	r := chi.NewRouter()

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{decisionIDHeader},
		AllowCredentials: !containsWildcard(origins),
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleLiveness)
	r.Get("/readyz", s.handleReadiness)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Post("/score", s.handleScore)
	r.Post("/explain", s.handleExplain)

	r.Get("/admin/log-level", s.handleGetLogLevel)
	r.Put("/admin/log-level", s.handleSetLogLevel)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/decisions/{decisionId}", s.handleGetDecision)
		r.Get("/users/{userId}/decisions", s.handleListDecisions)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Credit scoring API is running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "UP",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "UP",
		Mode:      string(s.engine.Mode()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{"engine": "UP"},
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.PingContext(ctx); err != nil {
			resp.Status = "DOWN"
			resp.Checks["postgres"] = fmt.Sprintf("DOWN: %v", err)
			logger.Warn("readiness check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Checks["postgres"] = "UP"
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.decodeProfile(w, r)
	if !ok {
		return
	}

	start := time.Now()
	decision, err := s.engine.Score(profile)
	if err != nil {
		s.metrics.ObserveFailure("score", time.Since(start))
		logger.Error("score failed", "user_id", profile.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "scoring failed", err)
		return
	}
	s.metrics.ObserveDecision("score", string(decision.Mode), string(decision.RiskLevel), time.Since(start))

	s.record(w, r, audit.FromDecision(decision))
	respondJSON(w, http.StatusOK, newCreditScoreResponse(decision))
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.decodeProfile(w, r)
	if !ok {
		return
	}

	start := time.Now()
	explanation, err := s.engine.Explain(profile)
	if err != nil {
		s.metrics.ObserveFailure("explain", time.Since(start))
		logger.Error("explain failed", "user_id", profile.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "explanation failed", err)
		return
	}
	s.metrics.ObserveDecision("explain", string(explanation.Mode), "none", time.Since(start))

	s.record(w, r, audit.FromExplanation(explanation))
	respondJSON(w, http.StatusOK, newExplanationResponse(explanation))
}

// record never fails the request; the decision has already been made
func (s *Server) record(w http.ResponseWriter, r *http.Request, rec *audit.Record) {
	if err := s.store.Add(r.Context(), rec); err != nil {
		s.metrics.ObserveAuditFailure()
		logger.Error("failed to record decision", "user_id", rec.UserID, "kind", rec.Kind, "error", err)
		return
	}
	w.Header().Set(decisionIDHeader, rec.ID.String())
}

func (s *Server) decodeProfile(w http.ResponseWriter, r *http.Request) (scoring.PersonProfile, bool) {
	var req UserDataRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return scoring.PersonProfile{}, false
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation failed", validationDetails(err))
		return scoring.PersonProfile{}, false
	}
	return req.Profile(), true
}

func validationDetails(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func (s *Server) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "decisionId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid decision id", err)
		return
	}

	rec, err := s.store.Get(r.Context(), id)
	if errors.Is(err, audit.ErrNotFound) {
		respondError(w, http.StatusNotFound, "decision not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get decision", err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	limit := audit.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	records, err := s.store.ListByUser(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list decisions", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":   userID,
		"decisions": records,
	})
}

func (s *Server) handleGetLogLevel(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, LogLevelResponse{Level: logger.GetLevel().String()})
}

func (s *Server) handleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req LogLevelRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation failed", validationDetails(err))
		return
	}

	level, err := logger.ParseLevel(*req.Level)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid log level", err)
		return
	}

	previous := logger.GetLevel()
	logger.SetLevel(level)
	logger.Info("log level changed", "from", previous.String(), "to", level.String())
	respondJSON(w, http.StatusOK, LogLevelResponse{Level: level.String()})
}

// requestLogger logs each request and feeds the HTTP status counters
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		took := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		switch {
		case status >= 500:
			logger.ErrorHttp5xx()
		case status >= 400:
			logger.WarnHttp4xx(status)
		}
		if took > slowRequestThreshold {
			logger.WarnSlowRequest()
		}

		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", took.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

func containsWildcard(values []string) bool {
	for _, v := range values {
		if v == "*" {
			return true
		}
	}
	return false
}

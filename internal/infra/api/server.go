package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
	"reelforge/internal/usecase"
)

const (
	maxBodyBytes  = 1 << 20
	healthTimeout = 5 * time.Second
)

// Server exposes image generation, health and render jobs over HTTP.
type Server struct {
	genUC    usecase.GenerateUseCase
	healthUC usecase.HealthUseCase
	renderUC usecase.RenderUseCase
	limiter  Limiter
	keyFn    func(route, client string) string

	log *zerolog.Logger
}

// NewServer constructs the HTTP layer. renderUC and limiter may be nil.
func NewServer(genUC usecase.GenerateUseCase, healthUC usecase.HealthUseCase, renderUC usecase.RenderUseCase, logger *zerolog.Logger) *Server {
	return &Server{genUC: genUC, healthUC: healthUC, renderUC: renderUC, log: logger, keyFn: defaultKey}
}

// WithLimiter enables per-client rate limiting on the mutating routes.
func (s *Server) WithLimiter(l Limiter, keyFn func(route, client string) string) *Server {
	s.limiter = l
	if keyFn != nil {
		s.keyFn = keyFn
	}
	return s
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, TraceID(), RequestLog(s.log), Recover(s.log))
	Register(r, s)
	return r
}

// Register attaches handlers to the provided router.
func Register(r chi.Router, s *Server) {
	r.With(s.limit("generate")).Post("/generate", s.handleGenerate)
	r.With(Timeout(healthTimeout)).Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if s.renderUC != nil {
		r.Route("/render", func(r chi.Router) {
			r.With(s.limit("render")).Post("/", s.handleRenderSubmit)
			r.Get("/", s.handleRenderList)
			r.Get("/{id}", s.handleRenderGet)
		})
	}
}

func (s *Server) limit(route string) func(http.Handler) http.Handler {
	return RateLimit(s.limiter, route, s.keyFn, s.log)
}

type generateResponse struct {
	Success  bool   `json:"success"`
	Image    string `json:"image,omitempty"`
	Model    string `json:"model,omitempty"`
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// A client disconnect does not abort provider calls already issued.
	res, err := s.genUC.Generate(context.WithoutCancel(r.Context()), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, generateResponse{
			Success:  true,
			Image:    res.DataURL(),
			Model:    res.Model,
			Provider: res.Provider,
		})
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "prompt is required")
	case errors.Is(err, domain.ErrAllProvidersFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.healthUC.Report(r.Context()))
}

func (s *Server) handleRenderSubmit(w http.ResponseWriter, r *http.Request) {
	var m model.RenderManifest
	if err := decodeJSON(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	job, err := s.renderUC.Submit(r.Context(), m)
	if err != nil {
		s.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleRenderGet(w http.ResponseWriter, r *http.Request) {
	job, err := s.renderUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleRenderList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := s.renderUC.List(r.Context(), limit)
	if err != nil {
		s.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": jobs})
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "render job not found")
	default:
		s.log.Error().Err(err).Msg("render request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return io.EOF
	}
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, generateResponse{Success: false, Error: msg})
}

func defaultKey(route, client string) string {
	return "rate_limit:" + route + ":" + client
}

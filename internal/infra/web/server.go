// File: internal/infra/web/server.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/infra/logging"
	"ai-coding-tasks/internal/infra/queue"
	"ai-coding-tasks/internal/usecase"
)

// Server is the operational HTTP surface: health, queue depth, per-task
// progress and Prometheus metrics. The user-facing task API lives in a
// separate service and is not served here.
type Server struct {
	queue  *queue.Queue
	taskUC *usecase.TaskUseCase
	log    *zerolog.Logger
}

func NewServer(q *queue.Queue, taskUC *usecase.TaskUseCase, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "ops_server").Logger()
	return &Server{queue: q, taskUC: taskUC, log: &l}
}

// Router builds the chi router with all ops routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.traceContext)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", s.healthHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/queue/stats", s.queueStatsHandler)
		r.Get("/tasks/{id}/progress", s.taskProgressHandler)
		r.Get("/tasks/{id}/result", s.taskResultHandler)
	})
	return r
}

// traceContext carries the chi request id as the trace id so handler
// logs correlate with upstream request logs.
func (s *Server) traceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = logging.WithTraceID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) queueStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queue.Stats(r.Context())
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("queue stats failed")
		http.Error(w, "failed to read queue stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) taskProgressHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pct, err := s.taskUC.Progress(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		logging.With(r.Context(), s.log).Error().Err(err).Str("task_id", id).Msg("progress lookup failed")
		http.Error(w, "failed to read progress", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"task_id": id, "progress": pct})
}

func (s *Server) taskResultHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.taskUC.GetResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "result not found", http.StatusNotFound)
			return
		}
		logging.With(r.Context(), s.log).Error().Err(err).Str("task_id", id).Msg("result lookup failed")
		http.Error(w, "failed to read result", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"task_id":         res.TaskID,
		"type":            res.Type,
		"content":         res.Content,
		"pr_url":          res.PRURL,
		"files_changed":   res.FilesChanged,
		"lines_generated": res.LinesGenerated,
		"tokens_used":     res.TokensUsed,
		"created_at":      res.CreatedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

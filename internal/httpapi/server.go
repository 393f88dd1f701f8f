// Package httpapi serves the worker's ops endpoint: health, last cycle
// stats, outcome logs and archives, and manual cycle/rotation triggers.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	apimw "github.com/hamed0406/uptimeworker/internal/httpapi/middleware"
	"github.com/hamed0406/uptimeworker/internal/repo"
	"github.com/hamed0406/uptimeworker/internal/scheduler"
)

// Cycler is satisfied by *scheduler.Rechecker.
type Cycler interface {
	Last() (scheduler.CycleStats, bool)
	RunOnce(ctx context.Context) scheduler.CycleStats
}

// Logs is what the ops endpoint reads from the outcome log sink.
type Logs interface {
	List(ctx context.Context, includeArchived bool) ([]string, error)
	repo.ArchiveReader
}

type Server struct {
	Logger   *zap.Logger
	Cycles   Cycler
	Rotation scheduler.Rotator
	Logs     Logs
}

func NewServer(l *zap.Logger, cycles Cycler, rotation scheduler.Rotator, logs Logs) *Server {
	return &Server{Logger: l, Cycles: cycles, Rotation: rotation, Logs: logs}
}

// Limits configures per-client request rates for the read and admin routes.
type Limits struct {
	ReadRPM, ReadBurst   int
	AdminRPM, AdminBurst int
}

func (s *Server) Router(keys apimw.Keys, corsOrigins []string, lim Limits) http.Handler {
	r := chi.NewRouter()
	if len(corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Authorization", "X-API-Key", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(lim.ReadRPM, lim.ReadBurst))
			r.Use(apimw.RequireAny(keys))
			r.Get("/status", s.handleStatus)
			r.Get("/logs", s.handleListLogs)
			r.Get("/archives/{id}", s.handleArchive)
		})
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(lim.AdminRPM, lim.AdminBurst))
			r.Use(apimw.RequireAdmin(keys))
			r.Post("/cycle", s.handleCycle)
			r.Post("/rotate", s.handleRotate)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	last, ok := s.Cycles.Last()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"last_cycle": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"last_cycle": last})
}

func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	stats := s.Cycles.RunOnce(r.Context())
	s.Logger.Info("ops_cycle_triggered", zap.Int("executed", stats.Executed))
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	if err := s.Rotation.Rotate(context.WithoutCancel(r.Context())); err != nil {
		s.Logger.Warn("ops_rotation_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.Logger.Info("ops_rotation_triggered")
	writeJSON(w, http.StatusOK, map[string]bool{"rotated": true})
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	archived, _ := strconv.ParseBool(r.URL.Query().Get("archived"))
	ids, err := s.Logs.List(r.Context(), archived)
	if err != nil {
		s.Logger.Warn("ops_list_logs_error", zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := s.Logs.ReadArchive(r.Context(), id)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		http.Error(w, "archive not found", http.StatusNotFound)
		return
	case err != nil:
		s.Logger.Warn("ops_read_archive_error", zap.String("archive_id", id), zap.Error(err))
		http.Error(w, "read error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	_, _ = w.Write(data)
}

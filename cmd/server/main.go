package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sujalgawas/JEE-question-generator/internal/app"
	"github.com/sujalgawas/JEE-question-generator/internal/paper"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/config"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/logger"
	"github.com/sujalgawas/JEE-question-generator/internal/syllabus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		slog.Error("failed to start pipeline", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     newMux(&server{papers: a, store: a.Store, metrics: a.Metrics.Handler()}),
		ReadTimeout: 10 * time.Second,
		// Paper assembly makes one model call per question.
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "index_vectors", a.Index.Len())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// paperService generates and stores papers.
type paperService interface {
	Generate(ctx context.Context, spec syllabus.Spec, weak syllabus.WeakSet, createdBy string) (*paper.Paper, error)
	Ready(ctx context.Context) error
}

type server struct {
	papers  paperService
	store   paper.Store
	metrics http.Handler
}

// newMux creates the HTTP router with the paper API and health endpoints.
func newMux(s *server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("POST /v1/papers", s.handleCreatePaper)
	mux.HandleFunc("GET /v1/papers", s.handleListPapers)
	mux.HandleFunc("GET /v1/papers/{id}", s.handleGetPaper)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := s.papers.Ready(ctx); err != nil {
		slog.Warn("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type createPaperRequest struct {
	Syllabus     json.RawMessage `json:"syllabus"`
	WeakConcepts []string        `json:"weak_concepts"`
	CreatedBy    string          `json:"created_by"`
}

const maxRequestBytes = 1 << 20

func (s *server) handleCreatePaper(w http.ResponseWriter, r *http.Request) {
	var req createPaperRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.Syllabus) == 0 {
		writeError(w, http.StatusBadRequest, "syllabus is required")
		return
	}
	spec, err := syllabus.Parse(req.Syllabus)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid syllabus: %v", err))
		return
	}

	p, err := s.papers.Generate(r.Context(), spec, syllabus.NewWeakSet(req.WeakConcepts...), req.CreatedBy)
	switch {
	case errors.Is(err, paper.ErrNoQuestions):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, context.Canceled):
		slog.Info("paper request cancelled by client")
		return
	case err != nil:
		slog.Error("paper generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "paper generation failed")
		return
	}

	slog.Info("paper created", "id", p.ID, "questions", p.Table.Len(), "created_by", p.CreatedBy)
	writeJSON(w, http.StatusCreated, p)
}

func (s *server) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, paper.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		slog.Error("loading paper failed", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "loading paper failed")
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", p.ID+".xlsx"))
		if err := paper.ExportXLSX(w, p.Table); err != nil {
			slog.Error("exporting paper failed", "id", p.ID, "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleListPapers(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := s.store.List(r.Context(), r.URL.Query().Get("created_by"), limit)
	if err != nil {
		slog.Error("listing papers failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing papers failed")
		return
	}
	if list == nil {
		list = []paper.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"papers": list})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/chatexport/internal/processor"
	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

// maxBodyBytes bounds request bodies; a long chat pass is a few MB.
const maxBodyBytes = 32 << 20

type Server struct {
	router     *chi.Mux
	port       int
	normalizer *transcript.Normalizer
	merger     *transcript.Merger
	proc       *processor.Processor
	httpServer *http.Server
}

func NewServer(port int, apiToken string, n *transcript.Normalizer, m *transcript.Merger, proc *processor.Processor) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:     router,
		port:       port,
		normalizer: n,
		merger:     m,
		proc:       proc,
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Use(middleware.RequestSize(maxBodyBytes))

		r.Get("/chatexport/status", s.status)
		r.Post("/normalize", s.normalize)
		r.Post("/merge", s.merge)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.listSessions)
			r.Post("/", s.createSession)
			r.Post("/{id}/batches", s.ingestBatch)
			r.Get("/{id}/transcript", s.getTranscript)
			r.Post("/{id}/finish", s.finishSession)
		})
	})

	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("API server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":        "chatexport",
		"status":       "ok",
		"merge_policy": s.merger.Policy().String(),
		"sessions":     s.proc.Registry().Len(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatexport/internal/capture"
	"github.com/MikeSquared-Agency/chatexport/internal/export"
	"github.com/MikeSquared-Agency/chatexport/internal/processor"
	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

// NormalizeRequest is one batch of raw records in reading order.
type NormalizeRequest struct {
	Records     []transcript.RawRecord `json:"records"`
	PriorAnchor *time.Time             `json:"prior_anchor,omitempty"`
}

// MergeRequest holds normalized batches to fold together.
type MergeRequest struct {
	Batches [][]transcript.NormalizedMessage `json:"batches"`
}

// BatchRequest is one scrape pass for a session.
type BatchRequest struct {
	Source  string                 `json:"source"`
	Records []transcript.RawRecord `json:"records"`
}

// SessionInfo describes a live capture session.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Passes    int       `json:"passes"`
	Messages  int       `json:"messages"`
}

func (s *Server) normalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	var prior time.Time
	if req.PriorAnchor != nil {
		prior = req.PriorAnchor.In(s.normalizer.Location())
	}
	transcript.NewSequenceAllocator().Stamp(req.Records)

	writeJSON(w, http.StatusOK, s.normalizer.Normalize(req.Records, prior))
}

func (s *Server) merge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": s.merger.Merge(req.Batches...),
	})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.proc.Registry().List()
	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionInfo(sess))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out, "count": len(out)})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess := s.proc.Registry().Create()
	writeJSON(w, http.StatusCreated, sessionInfo(sess))
}

func (s *Server) ingestBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	source := capture.Source(req.Source)
	if source == "" {
		source = capture.SourceLive
	}

	stats, err := s.proc.Ingest(r.Context(), id, source, req.Records)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("ingest failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) getTranscript(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	msgs, err := s.proc.Transcript(r.Context(), id)
	if errors.Is(err, processor.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		export.WriteJSON(w, export.NewDocument(id.String(), msgs, time.Now()))
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		export.WriteText(w, msgs)
	default:
		writeError(w, http.StatusBadRequest, "format must be json or text")
	}
}

func (s *Server) finishSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	summary, err := s.proc.Finish(r.Context(), id)
	if errors.Is(err, processor.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

func sessionInfo(sess *capture.Session) SessionInfo {
	return SessionInfo{
		ID:        sess.ID.String(),
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt(),
		Passes:    sess.Passes(),
		Messages:  len(sess.Transcript()),
	}
}

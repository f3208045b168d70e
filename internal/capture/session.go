// Package capture tracks capture sessions: the successive scrape passes over
// one chat, folded into a single merged transcript.
package capture

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

// Source names the sampling strategy that produced a pass.
type Source string

const (
	SourceCache    Source = "cache"    // rows remembered from earlier renders
	SourceLive     Source = "live"     // rows currently in the DOM
	SourceSnapshot Source = "snapshot" // a saved HTML snapshot
	SourceFile     Source = "file"     // a JSONL dump of raw records
)

// IngestStats describes the effect of one pass on a session.
type IngestStats struct {
	Source     Source `json:"source"`
	Records    int    `json:"records"`
	Normalized int    `json:"normalized"`
	Added      int    `json:"added"`
	Total      int    `json:"total"`
}

// Session folds scrape passes into one transcript. Each distinct row gets an
// observation sequence number the first time any pass sees it, and keeps it
// on every later sighting. Session is safe for concurrent use.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	normalizer *transcript.Normalizer
	merger     *transcript.Merger

	// work serializes ingest-and-persist cycles; see Acquire.
	work     sync.Mutex
	released bool

	mu        sync.Mutex
	seq       *transcript.SequenceAllocator
	firstSeen map[string]int64
	anchor    time.Time
	messages  []transcript.NormalizedMessage
	passes    int
	updatedAt time.Time
}

func NewSession(id uuid.UUID, n *transcript.Normalizer, m *transcript.Merger) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		normalizer: n,
		merger:     m,
		seq:        transcript.NewSequenceAllocator(),
		firstSeen:  make(map[string]int64),
		messages:   []transcript.NormalizedMessage{},
		updatedAt:  now,
	}
}

// Ingest normalizes one pass, records given in reading order, and merges it
// into the transcript. The caller's slice is not modified.
func (s *Session) Ingest(source Source, records []transcript.RawRecord) IngestStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamped := make([]transcript.RawRecord, len(records))
	copy(stamped, records)
	for i := range stamped {
		s.stamp(&stamped[i])
	}

	res := s.normalizer.Normalize(stamped, s.anchor)
	s.anchor = res.LastAnchor

	before := len(s.messages)
	s.messages = s.merger.Merge(s.messages, res.Messages)
	s.passes++
	s.updatedAt = time.Now().UTC()

	return IngestStats{
		Source:     source,
		Records:    len(records),
		Normalized: len(res.Messages),
		Added:      len(s.messages) - before,
		Total:      len(s.messages),
	}
}

// Restore seeds an empty session with a previously persisted transcript.
// The restored messages keep their order and rank as observed before any
// later pass.
func (s *Session) Restore(msgs []transcript.NormalizedMessage, anchor time.Time, passes int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	restored := make([]transcript.NormalizedMessage, len(msgs))
	copy(restored, msgs)
	transcript.Resequence(restored, s.seq)

	s.messages = s.merger.Merge(restored)
	s.anchor = anchor
	s.passes = passes
}

// stamp assigns the record its first-sight sequence number.
func (s *Session) stamp(rec *transcript.RawRecord) {
	key := identity(*rec)
	if rec.ObservationSeq > 0 {
		if _, ok := s.firstSeen[key]; !ok {
			s.firstSeen[key] = rec.ObservationSeq
		}
		return
	}
	if seq, ok := s.firstSeen[key]; ok {
		rec.ObservationSeq = seq
		return
	}
	rec.ObservationSeq = s.seq.Next()
	s.firstSeen[key] = rec.ObservationSeq
}

// identity recognizes a row across passes before its timestamp is resolved.
func identity(rec transcript.RawRecord) string {
	if rec.ID != "" {
		return "id:" + rec.ID
	}
	return strings.Join([]string{
		string(rec.Kind),
		strings.TrimSpace(rec.AuthorText),
		strings.TrimSpace(rec.TimestampText),
		strings.TrimSpace(rec.ContentText),
	}, "\x1f")
}

// Transcript returns a copy of the current merged transcript.
func (s *Session) Transcript() []transcript.NormalizedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transcript.NormalizedMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Anchor returns the date anchor carried into the next pass.
func (s *Session) Anchor() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anchor
}

// Passes returns how many passes have been ingested.
func (s *Session) Passes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passes
}

// UpdatedAt returns when the last pass was ingested.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Acquire takes the session for one ingest-and-persist cycle, so the
// transcript a cycle saves is never older than one saved before it. It
// returns false, holding nothing, once the session has been released.
func (s *Session) Acquire() bool {
	s.work.Lock()
	if s.released {
		s.work.Unlock()
		return false
	}
	return true
}

// Unlock ends a cycle started by Acquire.
func (s *Session) Unlock() {
	s.work.Unlock()
}

// MarkReleased retires the session after it has left the registry. The
// caller must hold it through Acquire. Later Acquire calls fail, sending
// writers back to the registry.
func (s *Session) MarkReleased() {
	s.released = true
}

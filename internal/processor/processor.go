package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatexport/internal/capture"
	"github.com/MikeSquared-Agency/chatexport/internal/export"
	"github.com/MikeSquared-Agency/chatexport/internal/hermes"
	"github.com/MikeSquared-Agency/chatexport/internal/store"
	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

// ErrSessionNotFound is returned for a session that is neither live nor stored.
var ErrSessionNotFound = errors.New("session not found")

// maxUnresolvedListed caps the unresolved timestamps listed in a Slack thread.
const maxUnresolvedListed = 10

// TranscriptStore persists merged transcripts.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, id uuid.UUID, passes int, anchor time.Time, msgs []transcript.NormalizedMessage) error
	LoadTranscript(ctx context.Context, id uuid.UUID) ([]transcript.NormalizedMessage, error)
	GetSession(ctx context.Context, id uuid.UUID) (*store.SessionRow, error)
}

// Publisher emits events on the bus.
type Publisher interface {
	Publish(subject string, data any) error
}

// Notifier announces finished exports.
type Notifier interface {
	PostExportSummary(ctx context.Context, sessionID string, s export.Summary) (string, error)
	PostThread(ctx context.Context, threadTS, text string) error
}

// Processor feeds scrape passes into capture sessions and fans the merged
// result out to storage, the bus and Slack. Any of those may be nil.
type Processor struct {
	registry *capture.Registry
	store    TranscriptStore
	hermes   Publisher
	slack    Notifier
	logger   *slog.Logger
}

func New(reg *capture.Registry, s TranscriptStore, h Publisher, sl Notifier, logger *slog.Logger) *Processor {
	return &Processor{
		registry: reg,
		store:    s,
		hermes:   h,
		slack:    sl,
		logger:   logger,
	}
}

// Registry returns the live session registry.
func (p *Processor) Registry() *capture.Registry {
	return p.registry
}

// HandleBatchCaptured is the NATS handler for swarm.chatexport.batch.captured.
func (p *Processor) HandleBatchCaptured(subject string, data []byte) {
	ctx := context.Background()

	var evt hermes.BatchEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse batch event", "subject", subject, "error", err)
		return
	}

	id, err := uuid.Parse(evt.SessionID)
	if err != nil {
		p.logger.Error("invalid session id", "session_id", evt.SessionID, "error", err)
		return
	}

	source := capture.Source(evt.Source)
	if source == "" {
		source = capture.SourceLive
	}

	if _, err := p.Ingest(ctx, id, source, evt.Records); err != nil {
		p.logger.Error("batch ingest failed", "session_id", evt.SessionID, "error", err)
	}
}

// Ingest merges one pass into a session, starting the session if needed.
// The pass is merged even when persisting it fails. Passes for one session
// are merged, saved and published one at a time, so a slow save can never
// overwrite a newer transcript.
func (p *Processor) Ingest(ctx context.Context, id uuid.UUID, source capture.Source, records []transcript.RawRecord) (capture.IngestStats, error) {
	for {
		sess, err := p.session(ctx, id)
		if err != nil {
			return capture.IngestStats{}, err
		}
		if !sess.Acquire() {
			// Finished and released meanwhile; resume it from the store.
			continue
		}
		stats, err := p.ingest(ctx, sess, source, records)
		sess.Unlock()
		return stats, err
	}
}

// ingest runs one cycle on a session held through Acquire.
func (p *Processor) ingest(ctx context.Context, sess *capture.Session, source capture.Source, records []transcript.RawRecord) (capture.IngestStats, error) {
	id := sess.ID
	stats := sess.Ingest(source, records)
	msgs := sess.Transcript()
	anchor := sess.Anchor()

	p.logger.Info("pass merged",
		"session_id", id,
		"source", source,
		"records", stats.Records,
		"added", stats.Added,
		"total", stats.Total,
	)

	var persistErr error
	if p.store != nil {
		if err := p.store.SaveTranscript(ctx, id, sess.Passes(), anchor, msgs); err != nil {
			persistErr = fmt.Errorf("save transcript: %w", err)
		}
	}

	if p.hermes != nil {
		evt := hermes.MergedEvent{
			SessionID:  id.String(),
			Source:     string(source),
			Added:      stats.Added,
			Total:      stats.Total,
			LastAnchor: anchor,
			Messages:   msgs,
		}
		if err := p.hermes.Publish(hermes.SubjectTranscriptMerged, evt); err != nil {
			p.logger.Warn("failed to publish merged transcript", "session_id", id, "error", err)
		}
	}

	return stats, persistErr
}

// session returns the live session for id. A session that is not live but
// was persisted earlier resumes from its stored transcript, so the next save
// extends it instead of replacing it.
func (p *Processor) session(ctx context.Context, id uuid.UUID) (*capture.Session, error) {
	if sess, ok := p.registry.Get(id); ok {
		return sess, nil
	}
	if p.store == nil {
		return p.registry.GetOrCreate(id), nil
	}

	row, err := p.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return p.registry.GetOrCreate(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	msgs, err := p.store.LoadTranscript(ctx, id)
	if err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		return nil, fmt.Errorf("restore transcript: %w", err)
	}

	p.logger.Info("session resumed from store", "session_id", id, "passes", row.Passes, "messages", len(msgs))
	return p.registry.GetOrCreateWith(id, func(s *capture.Session) {
		s.Restore(msgs, row.LastAnchor, row.Passes)
	}), nil
}

// Transcript returns a session's merged transcript, from memory when the
// session is live, otherwise from the store.
func (p *Processor) Transcript(ctx context.Context, id uuid.UUID) ([]transcript.NormalizedMessage, error) {
	if sess, ok := p.registry.Get(id); ok {
		return sess.Transcript(), nil
	}
	if p.store == nil {
		return nil, ErrSessionNotFound
	}
	msgs, err := p.store.LoadTranscript(ctx, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	return msgs, nil
}

// Finish summarizes a session's transcript and posts the summary to Slack.
// It waits for a pass being merged to finish saving. A live session that has
// been persisted is released from memory.
func (p *Processor) Finish(ctx context.Context, id uuid.UUID) (export.Summary, error) {
	msgs, err := p.finalTranscript(ctx, id)
	if err != nil {
		return export.Summary{}, err
	}
	summary := export.Summarize(msgs)

	if p.slack != nil {
		p.notify(ctx, id, summary, msgs)
	} else {
		p.logger.Info("export finished (no Slack configured)",
			"session_id", id,
			"summary", export.FormatSummary("Transcript export "+id.String(), summary),
		)
	}
	return summary, nil
}

// finalTranscript reads the transcript to export, releasing a persisted live
// session while holding it so no pass can slip in between.
func (p *Processor) finalTranscript(ctx context.Context, id uuid.UUID) ([]transcript.NormalizedMessage, error) {
	sess, ok := p.registry.Get(id)
	if !ok || !sess.Acquire() {
		return p.Transcript(ctx, id)
	}
	defer sess.Unlock()

	msgs := sess.Transcript()
	if p.store != nil {
		p.registry.Delete(id)
		sess.MarkReleased()
	}
	return msgs, nil
}

func (p *Processor) notify(ctx context.Context, id uuid.UUID, summary export.Summary, msgs []transcript.NormalizedMessage) {
	ts, err := p.slack.PostExportSummary(ctx, id.String(), summary)
	if err != nil {
		p.logger.Warn("failed to post export summary to Slack", "session_id", id, "error", err)
		return
	}
	if summary.Unresolved == 0 {
		return
	}
	if err := p.slack.PostThread(ctx, ts, formatUnresolved(msgs)); err != nil {
		p.logger.Warn("failed to post unresolved timestamps", "session_id", id, "error", err)
	}
}

func formatUnresolved(msgs []transcript.NormalizedMessage) string {
	var sb strings.Builder
	sb.WriteString("*Unresolved timestamps*\n")
	listed, total := 0, 0
	for _, m := range msgs {
		if m.Kind != transcript.KindMessage || m.HasTimestamp() {
			continue
		}
		total++
		if listed < maxUnresolvedListed {
			fmt.Fprintf(&sb, "  - %q from %s\n", m.DisplayTimestamp, m.AuthorText)
			listed++
		}
	}
	if total > listed {
		fmt.Fprintf(&sb, "  ...and %d more\n", total-listed)
	}
	return sb.String()
}

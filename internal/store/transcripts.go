package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

// SessionRow is the stored header of a capture session.
type SessionRow struct {
	ID           uuid.UUID `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Passes       int       `json:"passes"`
	MessageCount int       `json:"message_count"`
	LastAnchor   time.Time `json:"last_anchor,omitzero"`
}

// SaveTranscript replaces the stored transcript of a session with msgs, in
// order, creating the session row if needed.
func (s *Store) SaveTranscript(ctx context.Context, id uuid.UUID, passes int, anchor time.Time, msgs []transcript.NormalizedMessage) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO capture_sessions (id, passes, message_count, last_anchor, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			passes = EXCLUDED.passes,
			message_count = EXCLUDED.message_count,
			last_anchor = EXCLUDED.last_anchor,
			updated_at = now()`,
		id, passes, len(msgs), nullableTime(anchor),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM transcript_messages WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("clear transcript: %w", err)
	}

	batch := &pgx.Batch{}
	for i, m := range msgs {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message %d: %w", i, err)
		}
		var iso *time.Time
		if m.HasTimestamp() {
			iso = nullableTime(m.ISOTimestamp)
		}
		batch.Queue(`
			INSERT INTO transcript_messages
				(session_id, position, dedup_key, kind, message_id, author, content, display_timestamp, iso_timestamp, payload)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)`,
			id, i, m.DedupKey(), string(m.Kind), m.ID, m.AuthorText, m.ContentText, m.DisplayTimestamp, iso, payload,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert messages: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadTranscript returns the stored transcript of a session in order.
func (s *Store) LoadTranscript(ctx context.Context, id uuid.UUID) ([]transcript.NormalizedMessage, error) {
	if _, err := s.GetSession(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM transcript_messages
		WHERE session_id = $1
		ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	payloads, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}

	msgs := make([]transcript.NormalizedMessage, 0, len(payloads))
	for i, p := range payloads {
		var m transcript.NormalizedMessage
		if err := json.Unmarshal(p, &m); err != nil {
			return nil, fmt.Errorf("decode message %d: %w", i, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// GetSession returns the stored header of a session.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*SessionRow, error) {
	var row SessionRow
	var anchor *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT id, created_at, updated_at, passes, message_count, last_anchor
		FROM capture_sessions WHERE id = $1`, id,
	).Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt, &row.Passes, &row.MessageCount, &anchor)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if anchor != nil {
		row.LastAnchor = *anchor
	}
	return &row, nil
}

// ListSessions returns the most recently updated sessions first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at, updated_at, passes, message_count, last_anchor
		FROM capture_sessions
		ORDER BY updated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var row SessionRow
		var anchor *time.Time
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt, &row.Passes, &row.MessageCount, &anchor); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if anchor != nil {
			row.LastAnchor = *anchor
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and its transcript.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM capture_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

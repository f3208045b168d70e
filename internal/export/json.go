package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

// Document is the JSON export of one capture session.
type Document struct {
	SessionID    string                         `json:"session_id,omitempty"`
	ExportedAt   time.Time                      `json:"exported_at"`
	MessageCount int                            `json:"message_count"`
	Summary      Summary                        `json:"summary"`
	Messages     []transcript.NormalizedMessage `json:"messages"`
}

// NewDocument wraps a merged transcript for export.
func NewDocument(sessionID string, msgs []transcript.NormalizedMessage, exportedAt time.Time) Document {
	if msgs == nil {
		msgs = []transcript.NormalizedMessage{}
	}
	return Document{
		SessionID:    sessionID,
		ExportedAt:   exportedAt.UTC(),
		MessageCount: len(msgs),
		Summary:      Summarize(msgs),
		Messages:     msgs,
	}
}

// WriteJSON writes the document as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return nil
}

package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

const (
	// SubjectBatchCaptured carries one scrape pass from a capture agent.
	SubjectBatchCaptured = "swarm.chatexport.batch.captured"
	// SubjectTranscriptMerged announces a session transcript after a pass
	// has been merged into it.
	SubjectTranscriptMerged = "swarm.chatexport.transcript.merged"
)

// BatchEvent is one scrape pass, records in reading order.
type BatchEvent struct {
	SessionID string                 `json:"session_id"`
	Source    string                 `json:"source"`
	Records   []transcript.RawRecord `json:"records"`
}

// MergedEvent is published after a pass has been merged.
type MergedEvent struct {
	SessionID  string                         `json:"session_id"`
	Source     string                         `json:"source"`
	Added      int                            `json:"added"`
	Total      int                            `json:"total"`
	LastAnchor time.Time                      `json:"last_anchor,omitzero"`
	Messages   []transcript.NormalizedMessage `json:"messages"`
}

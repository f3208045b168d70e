// Package transcript turns the raw rows scraped from a chat pane, observed
// over many partial scroll passes, into one deduplicated, chronologically
// ordered transcript.
package transcript

import (
	"strings"
	"time"
)

// Kind classifies a transcript row.
type Kind string

const (
	KindMessage Kind = "message"
	KindDivider Kind = "divider"
	KindSystem  Kind = "system"
)

// Attachment is a file or link attached to a message.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Type string `json:"type,omitempty"`
}

// Reaction is an emoji reaction and who left it.
type Reaction struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users,omitempty"`
}

// ReplyRef is the quoted message a reply points at.
type ReplyRef struct {
	ID     string `json:"id,omitempty"`
	Author string `json:"author,omitempty"`
	Text   string `json:"text,omitempty"`
}

// RawRecord is one observation of one transcript row, before its timestamp
// has been interpreted. Attachments, reactions and reply data pass through
// untouched.
type RawRecord struct {
	Kind            Kind         `json:"kind"`
	ID              string       `json:"id,omitempty"`
	AuthorText      string       `json:"authorText"`
	TimestampText   string       `json:"timestampText"`
	ContentText     string       `json:"contentText"`
	Attachments     []Attachment `json:"attachments,omitempty"`
	Reactions       []Reaction   `json:"reactions,omitempty"`
	ReplyTo         *ReplyRef    `json:"replyTo,omitempty"`
	Edited          bool         `json:"edited,omitempty"`
	EditedTimestamp string       `json:"editedTimestamp,omitempty"`

	// ObservationSeq is the session-wide first-seen order of this row.
	// Zero or negative means unassigned.
	ObservationSeq int64 `json:"observationSeq,omitempty"`
}

// NormalizedMessage is a RawRecord with its timestamp resolved. The
// observation sequence is carried for ordering only and is never serialized.
type NormalizedMessage struct {
	Kind             Kind         `json:"kind"`
	ID               string       `json:"id,omitempty"`
	AuthorText       string       `json:"authorText"`
	ContentText      string       `json:"contentText"`
	Attachments      []Attachment `json:"attachments,omitempty"`
	Reactions        []Reaction   `json:"reactions,omitempty"`
	ReplyTo          *ReplyRef    `json:"replyTo,omitempty"`
	Edited           bool         `json:"edited,omitempty"`
	EditedTimestamp  string       `json:"editedTimestamp,omitempty"`
	DisplayTimestamp string       `json:"displayTimestamp"`
	ISOTimestamp     time.Time    `json:"isoTimestamp,omitzero"`

	seq int64
}

// HasTimestamp reports whether the message resolved to an absolute instant.
func (m NormalizedMessage) HasTimestamp() bool {
	return !m.ISOTimestamp.IsZero()
}

// DedupKey identifies the logical message: the row id when the client
// exposes one, otherwise timestamp, author and content together.
func (m NormalizedMessage) DedupKey() string {
	if m.ID != "" {
		return "id:" + m.ID
	}
	ts := m.DisplayTimestamp
	if m.HasTimestamp() {
		ts = m.ISOTimestamp.UTC().Format(time.RFC3339Nano)
	}
	return strings.Join([]string{"row", ts, m.AuthorText, m.ContentText}, "\x1f")
}

// Display layouts for resolved timestamps.
const (
	InstantLayout = "Jan 2, 2006 3:04 PM"
	DateLayout    = "Jan 2, 2006"
)

func fromRaw(r RawRecord) NormalizedMessage {
	return NormalizedMessage{
		Kind:            r.Kind,
		ID:              r.ID,
		AuthorText:      r.AuthorText,
		ContentText:     r.ContentText,
		Attachments:     r.Attachments,
		Reactions:       r.Reactions,
		ReplyTo:         r.ReplyTo,
		Edited:          r.Edited,
		EditedTimestamp: r.EditedTimestamp,
		seq:             r.ObservationSeq,
	}
}

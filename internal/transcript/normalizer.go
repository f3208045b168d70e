package transcript

import (
	"strings"
	"time"

	"github.com/MikeSquared-Agency/chatexport/internal/timeparse"
)

// Normalizer resolves the timestamps of raw records while threading a date
// anchor through them.
type Normalizer struct {
	resolver *timeparse.Resolver
}

// NewNormalizer creates a normalizer. A nil resolver uses local time and the
// wall clock.
func NewNormalizer(r *timeparse.Resolver) *Normalizer {
	if r == nil {
		r = timeparse.NewResolver(nil, nil)
	}
	return &Normalizer{resolver: r}
}

// Location returns the zone timestamps are interpreted in.
func (n *Normalizer) Location() *time.Location {
	return n.resolver.Location()
}

// Result is the outcome of normalizing one batch.
type Result struct {
	Messages   []NormalizedMessage `json:"messages"`
	LastAnchor time.Time           `json:"last_anchor,omitzero"`
}

// Normalize walks records in the order given, which must be reading order:
// a divider dates the rows that follow it. prior seeds the anchor (zero for
// none) and Result.LastAnchor is the value to carry into the next batch.
// Rows with no content, attachments, author or resolvable timestamp are
// dropped as noise.
func (n *Normalizer) Normalize(records []RawRecord, prior time.Time) Result {
	anchor := NewAnchorTracker(prior)
	out := make([]NormalizedMessage, 0, len(records))

	for _, rec := range records {
		if rec.Kind == KindDivider {
			out = append(out, n.divider(rec, anchor))
			continue
		}

		msg := n.message(rec, anchor)
		if isNoise(msg) {
			continue
		}
		out = append(out, msg)
	}

	return Result{Messages: out, LastAnchor: anchor.Current()}
}

func (n *Normalizer) divider(rec RawRecord, anchor *AnchorTracker) NormalizedMessage {
	msg := fromRaw(rec)

	text := rec.ContentText
	if strings.TrimSpace(text) == "" {
		text = rec.TimestampText
	}
	date, ok := n.resolver.ResolveDivider(text, anchor.Current())
	if !ok {
		return msg
	}
	anchor.Reset(date)
	msg.DisplayTimestamp = date.Format(DateLayout)
	msg.ISOTimestamp = date.UTC()
	return msg
}

func (n *Normalizer) message(rec RawRecord, anchor *AnchorTracker) NormalizedMessage {
	msg := fromRaw(rec)
	if msg.Kind == "" {
		msg.Kind = KindMessage
	}

	text := strings.TrimSpace(rec.TimestampText)
	if text == "" {
		if current := anchor.Current(); !current.IsZero() {
			msg.DisplayTimestamp = current.In(n.resolver.Location()).Format(DateLayout)
		}
		return msg
	}

	t, ok := n.resolver.Resolve(text, anchor.Current())
	if !ok {
		msg.DisplayTimestamp = text
		return msg
	}
	anchor.Advance(t)
	msg.DisplayTimestamp = t.In(n.resolver.Location()).Format(InstantLayout)
	msg.ISOTimestamp = t.UTC()
	return msg
}

func isNoise(m NormalizedMessage) bool {
	return strings.TrimSpace(m.ContentText) == "" &&
		len(m.Attachments) == 0 &&
		strings.TrimSpace(m.AuthorText) == "" &&
		!m.HasTimestamp()
}

package transcript

import "time"

// AnchorTracker holds the single date anchor of a left-to-right walk over a
// transcript. The zero time means no anchor is known yet.
type AnchorTracker struct {
	current time.Time
}

// NewAnchorTracker starts a walk from prior, typically the last anchor of
// the previous batch.
func NewAnchorTracker(prior time.Time) *AnchorTracker {
	return &AnchorTracker{current: prior}
}

// Current returns the anchor in effect.
func (a *AnchorTracker) Current() time.Time {
	return a.current
}

// Reset replaces the anchor with a divider's date. Dividers are
// authoritative, including when they date the rows below them earlier than
// a carried-over anchor.
func (a *AnchorTracker) Reset(t time.Time) {
	a.current = t
}

// Advance moves the anchor to a message's resolved instant. A message never
// moves the anchor backward, so "Yesterday" rows cannot walk it into the past.
func (a *AnchorTracker) Advance(t time.Time) bool {
	if !a.current.IsZero() && t.Before(a.current) {
		return false
	}
	a.current = t
	return true
}

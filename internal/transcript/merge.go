package transcript

import (
	"math"
	"slices"
	"strings"
)

// Policy decides which copy of a duplicated message survives a merge.
type Policy int

const (
	// PolicyEarliest keeps the earliest-timed copy, observation order
	// breaking ties, even when a later copy carries more data. A copy whose
	// time is unresolved wins only if it was observed first.
	PolicyEarliest Policy = iota
	// PolicyMostComplete keeps the copy carrying the most data, falling
	// back to PolicyEarliest between equally complete copies.
	PolicyMostComplete
)

func (p Policy) String() string {
	switch p {
	case PolicyMostComplete:
		return "complete"
	default:
		return "earliest"
	}
}

// ParsePolicy maps "earliest" and "complete" to their Policy.
func ParsePolicy(s string) (Policy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "earliest", "":
		return PolicyEarliest, true
	case "complete", "most-complete":
		return PolicyMostComplete, true
	default:
		return PolicyEarliest, false
	}
}

// Merger combines normalized batches into one transcript.
type Merger struct {
	policy Policy
}

func NewMerger(p Policy) *Merger {
	return &Merger{policy: p}
}

// Policy returns the duplicate resolution policy in use.
func (m *Merger) Policy() Policy {
	return m.policy
}

// Merge flattens batches, keeps one copy per DedupKey and returns the
// survivors sorted by Compare. Merging is idempotent and neither the
// surviving keys nor the surviving copies depend on batch order. Empty input
// yields an empty, non-nil slice.
func (m *Merger) Merge(batches ...[]NormalizedMessage) []NormalizedMessage {
	groups := make(map[string][]NormalizedMessage)
	var order []string

	for _, batch := range batches {
		for _, msg := range batch {
			key := msg.DedupKey()
			if _, seen := groups[key]; !seen {
				order = append(order, key)
			}
			groups[key] = append(groups[key], msg)
		}
	}

	out := make([]NormalizedMessage, 0, len(order))
	for _, key := range order {
		out = append(out, m.survivor(groups[key]))
	}
	slices.SortStableFunc(out, Compare)
	return out
}

// Merge merges with PolicyEarliest.
func Merge(batches ...[]NormalizedMessage) []NormalizedMessage {
	return NewMerger(PolicyEarliest).Merge(batches...)
}

// survivor picks the copy of one logical message that is kept.
func (m *Merger) survivor(copies []NormalizedMessage) NormalizedMessage {
	if m.policy == PolicyMostComplete && len(copies) > 1 {
		best := 0
		for _, c := range copies {
			best = max(best, completeness(c))
		}
		copies = slices.DeleteFunc(slices.Clone(copies), func(c NormalizedMessage) bool {
			return completeness(c) < best
		})
	}
	return earliest(copies)
}

// earliest ranks resolved copies against each other by Compare, so the
// earliest instant wins and observation order breaks ties. An unresolved
// copy wins only when it was observed before every resolved copy.
func earliest(copies []NormalizedMessage) NormalizedMessage {
	resolved, unresolved := -1, -1
	firstResolved := int64(math.MaxInt64)

	for i, c := range copies {
		if c.HasTimestamp() {
			if resolved < 0 || Compare(c, copies[resolved]) < 0 {
				resolved = i
			}
			firstResolved = min(firstResolved, seqRank(c.seq))
			continue
		}
		if unresolved < 0 || Compare(c, copies[unresolved]) < 0 {
			unresolved = i
		}
	}

	if unresolved >= 0 && (resolved < 0 || seqRank(copies[unresolved].seq) < firstResolved) {
		return copies[unresolved]
	}
	return copies[resolved]
}

// completeness scores how much information a copy carries.
func completeness(m NormalizedMessage) int {
	score := 0
	if m.HasTimestamp() {
		score += 4
	}
	if strings.TrimSpace(m.ContentText) != "" {
		score += 2
	}
	if strings.TrimSpace(m.AuthorText) != "" {
		score++
	}
	if m.ReplyTo != nil {
		score++
	}
	if m.Edited {
		score++
	}
	score += len(m.Attachments) + len(m.Reactions)
	return score
}

package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

// AuthorCount is how many messages one author wrote.
type AuthorCount struct {
	Author   string `json:"author"`
	Messages int    `json:"messages"`
}

// Summary describes a merged transcript.
type Summary struct {
	Messages    int           `json:"messages"`
	Dividers    int           `json:"dividers"`
	System      int           `json:"system"`
	Unresolved  int           `json:"unresolved"`
	Attachments int           `json:"attachments"`
	Reactions   int           `json:"reactions"`
	First       time.Time     `json:"first,omitzero"`
	Last        time.Time     `json:"last,omitzero"`
	Authors     []AuthorCount `json:"authors"`
}

// Summarize counts a transcript. Authors are ordered by message count,
// then name.
func Summarize(msgs []transcript.NormalizedMessage) Summary {
	s := Summary{Authors: []AuthorCount{}}
	byAuthor := make(map[string]int)

	for _, m := range msgs {
		switch m.Kind {
		case transcript.KindDivider:
			s.Dividers++
			continue
		case transcript.KindSystem:
			s.System++
			continue
		}

		s.Messages++
		s.Attachments += len(m.Attachments)
		for _, r := range m.Reactions {
			s.Reactions += r.Count
		}
		if m.AuthorText != "" {
			byAuthor[m.AuthorText]++
		}
		if !m.HasTimestamp() {
			s.Unresolved++
			continue
		}
		if s.First.IsZero() || m.ISOTimestamp.Before(s.First) {
			s.First = m.ISOTimestamp
		}
		if m.ISOTimestamp.After(s.Last) {
			s.Last = m.ISOTimestamp
		}
	}

	for a, n := range byAuthor {
		s.Authors = append(s.Authors, AuthorCount{Author: a, Messages: n})
	}
	sort.Slice(s.Authors, func(i, j int) bool {
		if s.Authors[i].Messages != s.Authors[j].Messages {
			return s.Authors[i].Messages > s.Authors[j].Messages
		}
		return s.Authors[i].Author < s.Authors[j].Author
	})
	return s
}

// FormatSummary renders a summary as Slack mrkdwn.
func FormatSummary(title string, s Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n", title)
	fmt.Fprintf(&sb, "%d messages from %d authors", s.Messages, len(s.Authors))
	if !s.First.IsZero() {
		fmt.Fprintf(&sb, ", %s to %s (UTC)",
			s.First.UTC().Format(transcript.InstantLayout),
			s.Last.UTC().Format(transcript.InstantLayout))
	}
	sb.WriteString("\n")

	for _, a := range s.Authors {
		fmt.Fprintf(&sb, "  - %s: %d\n", a.Author, a.Messages)
	}
	if s.Attachments > 0 || s.Reactions > 0 {
		fmt.Fprintf(&sb, "%d attachments, %d reactions\n", s.Attachments, s.Reactions)
	}
	if s.Unresolved > 0 {
		fmt.Fprintf(&sb, "%d messages kept their raw timestamp text\n", s.Unresolved)
	}
	return sb.String()
}

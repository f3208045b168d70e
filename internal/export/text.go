// Package export renders merged transcripts for people and other programs.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

// FormatText renders a transcript as plain text: one line per message,
// dividers as date banners, with attachments, reactions and quoted replies
// indented below their message.
func FormatText(msgs []transcript.NormalizedMessage) string {
	var sb strings.Builder
	for _, m := range msgs {
		switch m.Kind {
		case transcript.KindDivider:
			label := m.DisplayTimestamp
			if label == "" {
				label = m.ContentText
			}
			fmt.Fprintf(&sb, "\n--- %s ---\n\n", label)
			continue
		case transcript.KindSystem:
			fmt.Fprintf(&sb, "* %s", m.ContentText)
			if m.DisplayTimestamp != "" {
				fmt.Fprintf(&sb, " (%s)", m.DisplayTimestamp)
			}
			sb.WriteString("\n")
			continue
		}

		if m.ReplyTo != nil {
			fmt.Fprintf(&sb, "  > %s: %s\n", m.ReplyTo.Author, m.ReplyTo.Text)
		}

		if m.DisplayTimestamp != "" {
			fmt.Fprintf(&sb, "[%s] ", m.DisplayTimestamp)
		}
		author := m.AuthorText
		if author == "" {
			author = "Unknown"
		}
		sb.WriteString(author)
		sb.WriteString(": ")
		sb.WriteString(strings.ReplaceAll(m.ContentText, "\n", "\n    "))
		if m.Edited {
			sb.WriteString(" (edited)")
		}
		sb.WriteString("\n")

		for _, a := range m.Attachments {
			if a.URL != "" {
				fmt.Fprintf(&sb, "    [attachment] %s <%s>\n", a.Name, a.URL)
			} else {
				fmt.Fprintf(&sb, "    [attachment] %s\n", a.Name)
			}
		}
		if len(m.Reactions) > 0 {
			parts := make([]string, len(m.Reactions))
			for i, r := range m.Reactions {
				parts[i] = fmt.Sprintf("%s %d", r.Emoji, r.Count)
			}
			fmt.Fprintf(&sb, "    reactions: %s\n", strings.Join(parts, ", "))
		}
	}
	return strings.TrimLeft(sb.String(), "\n")
}

// WriteText writes FormatText output to w.
func WriteText(w io.Writer, msgs []transcript.NormalizedMessage) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(FormatText(msgs)); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush text: %w", err)
	}
	return nil
}

package snapshot

import (
	"fmt"
	"html"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

// Parser extracts raw records from chat pane HTML.
type Parser struct {
	sel       Selectors
	sanitizer *bluemonday.Policy
}

func NewParser(sel Selectors) *Parser {
	return &Parser{
		sel:       sel,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// ParseFile parses a saved snapshot from disk.
func (p *Parser) ParseFile(name string) ([]transcript.RawRecord, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse reads an HTML document and returns one record per matched row, in
// document order. Observation sequence numbers are left for the caller.
func (p *Parser) Parse(r io.Reader) ([]transcript.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	records := []transcript.RawRecord{}
	lastAuthor := ""
	doc.Find(p.sel.Row).Each(func(_ int, row *goquery.Selection) {
		rec := p.parseRow(row)
		if rec.Kind == transcript.KindMessage {
			// Grouped rows omit the author after the first message.
			if rec.AuthorText == "" {
				rec.AuthorText = lastAuthor
			}
			lastAuthor = rec.AuthorText
		}
		records = append(records, rec)
	})
	return records, nil
}

func (p *Parser) parseRow(row *goquery.Selection) transcript.RawRecord {
	if p.matches(row, p.sel.Divider) {
		div := row
		if !row.Is(p.sel.Divider) {
			div = row.Find(p.sel.Divider).First()
		}
		return transcript.RawRecord{
			Kind:        transcript.KindDivider,
			ContentText: p.cleanText(div),
		}
	}

	// Quoted replies carry their own author and timestamp.
	reply := row.Find(p.sel.Reply).First()
	body := row.Clone()
	if p.sel.Reply != "" {
		body.Find(p.sel.Reply).Remove()
	}

	rec := transcript.RawRecord{
		Kind:          transcript.KindMessage,
		ID:            p.rowID(row, body),
		AuthorText:    collapse(body.Find(p.sel.Author).First().Text()),
		TimestampText: timestampText(body.Find(p.sel.Timestamp).First()),
		ContentText:   p.cleanText(body.Find(p.sel.Content).First()),
		Attachments:   p.attachments(body),
		Reactions:     p.reactions(body),
	}
	if p.matches(row, p.sel.System) {
		rec.Kind = transcript.KindSystem
		if rec.ContentText == "" {
			rec.ContentText = p.cleanText(row)
		}
	}

	if reply.Length() > 0 {
		rec.ReplyTo = &transcript.ReplyRef{
			Author: collapse(reply.Find(p.sel.ReplyAuthor).First().Text()),
			Text:   p.cleanText(reply.Find(p.sel.ReplyText).First()),
		}
	}

	if edited := body.Find(p.sel.Edited).First(); edited.Length() > 0 {
		rec.Edited = true
		rec.EditedTimestamp = firstAttr(edited, "datetime", "title")
	}

	return rec
}

func (p *Parser) matches(row *goquery.Selection, sel string) bool {
	if sel == "" {
		return false
	}
	return row.Is(sel) || row.Find(sel).Length() > 0
}

func (p *Parser) rowID(row, body *goquery.Selection) string {
	for _, attr := range p.sel.IDAttrs {
		if v := strings.TrimSpace(row.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	content := body.Find(p.sel.Content).First()
	for _, attr := range p.sel.IDAttrs {
		if v := strings.TrimSpace(content.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

func (p *Parser) attachments(body *goquery.Selection) []transcript.Attachment {
	if p.sel.Attachment == "" {
		return nil
	}
	var out []transcript.Attachment
	body.Find(p.sel.Attachment).Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		name := collapse(a.Text())
		if name == "" {
			name = firstAttr(a, "title", "aria-label")
		}
		if name == "" && href != "" {
			name = path.Base(strings.SplitN(href, "?", 2)[0])
		}
		if name == "" && href == "" {
			return
		}
		typ := strings.TrimSpace(a.AttrOr("data-type", ""))
		if typ == "" {
			typ = strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
		}
		out = append(out, transcript.Attachment{Name: name, URL: href, Type: typ})
	})
	return out
}

func (p *Parser) reactions(body *goquery.Selection) []transcript.Reaction {
	if p.sel.Reaction == "" {
		return nil
	}
	var out []transcript.Reaction
	body.Find(p.sel.Reaction).Each(func(_ int, s *goquery.Selection) {
		emoji := s.Find("img[alt]").First().AttrOr("alt", "")
		if emoji == "" {
			emoji = s.AttrOr("data-emoji", "")
		}
		text := collapse(s.Text())
		if emoji == "" {
			emoji = strings.TrimSpace(strings.TrimRight(text, "0123456789 "))
		}
		if emoji == "" {
			return
		}
		count := 1
		if n, err := strconv.Atoi(s.AttrOr("data-count", "")); err == nil && n > 0 {
			count = n
		} else if n, ok := trailingNumber(text); ok {
			count = n
		}
		out = append(out, transcript.Reaction{Emoji: emoji, Count: count})
	})
	return out
}

// cleanText renders an element's visible text. Markup is stripped by the
// sanitizer, inline emoji images become their alt text, and line structure
// from block elements is kept.
func (p *Parser) cleanText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	s = s.Clone()
	s.Find("img[alt]").Each(func(_ int, img *goquery.Selection) {
		img.ReplaceWithHtml(html.EscapeString(img.AttrOr("alt", "")))
	})
	s.Find("br").ReplaceWithHtml("\n")
	s.Find("p, div, li").Each(func(_ int, block *goquery.Selection) {
		block.AppendHtml("\n")
	})

	fragment, err := s.Html()
	if err != nil {
		return collapse(s.Text())
	}
	text := html.UnescapeString(p.sanitizer.Sanitize(fragment))

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = collapse(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// timestampText prefers machine-readable attributes over the rendered label.
func timestampText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	if v := firstAttr(s, "datetime", "title", "aria-label"); v != "" {
		return v
	}
	return collapse(s.Text())
}

func firstAttr(s *goquery.Selection, attrs ...string) string {
	for _, a := range attrs {
		if v := collapse(s.AttrOr(a, "")); v != "" {
			return v
		}
	}
	return ""
}

func trailingNumber(s string) (int, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

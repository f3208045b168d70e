// Package snapshot turns a saved HTML rendering of a chat pane into raw
// transcript records, one per rendered row in document order.
package snapshot

// Selectors locate the parts of a rendered chat row. Every field except Row
// is matched inside the row element.
type Selectors struct {
	Row         string   `json:"row"`
	Divider     string   `json:"divider"`
	System      string   `json:"system"`
	Author      string   `json:"author"`
	Timestamp   string   `json:"timestamp"`
	Content     string   `json:"content"`
	Attachment  string   `json:"attachment"`
	Reaction    string   `json:"reaction"`
	Reply       string   `json:"reply"`
	ReplyAuthor string   `json:"reply_author"`
	ReplyText   string   `json:"reply_text"`
	Edited      string   `json:"edited"`
	IDAttrs     []string `json:"id_attrs"`
}

// DefaultSelectors match the Teams web client markup, with plain class names
// as a fallback for hand-saved pages.
func DefaultSelectors() Selectors {
	return Selectors{
		Row:         `[data-tid="chat-pane-item"], [data-tid="message-divider"], .chat-row, .date-divider`,
		Divider:     `[data-tid="message-divider"], .date-divider`,
		System:      `[data-tid="control-message-renderer"], .system-message`,
		Author:      `[data-tid="message-author-name"], .author`,
		Timestamp:   `time, [data-tid="message-timestamp"], .timestamp`,
		Content:     `[data-tid="message-body-content"], .content`,
		Attachment:  `[data-tid="file-attachment"] a, .attachment a`,
		Reaction:    `[data-tid="diverse-reaction-pill-button"], .reaction`,
		Reply:       `[data-tid="quoted-reply-card"], .reply`,
		ReplyAuthor: `[data-tid="quoted-reply-author"], .reply-author`,
		ReplyText:   `[data-tid="quoted-reply-preview-content"], .reply-text`,
		Edited:      `[data-tid="message-edited"], .edited`,
		IDAttrs:     []string{"data-mid", "data-message-id", "id"},
	}
}

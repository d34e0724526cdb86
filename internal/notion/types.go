// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notion

import (
	"errors"
	"net/http"
	"unicode/utf16"
)

// Parent identifies where a page is created.
type Parent struct {
	Type   string `json:"type,omitempty"` // "page_id" or "workspace"
	PageID string `json:"page_id,omitempty"`
}

// Page is the subset of a page object the uploader reads back.
type Page struct {
	Object   string `json:"object"`
	ID       string `json:"id"`
	URL      string `json:"url,omitempty"`
	Archived bool   `json:"archived"`
	Parent   Parent `json:"parent"`
}

// Icon is a page icon. Only emoji icons are produced.
type Icon struct {
	Type  string `json:"type"` // "emoji"
	Emoji string `json:"emoji,omitempty"`
}

// EmojiIcon returns an emoji icon, or nil for an empty string.
func EmojiIcon(emoji string) *Icon {
	if emoji == "" {
		return nil
	}
	return &Icon{Type: "emoji", Emoji: emoji}
}

// RichText is one run of formatted text.
type RichText struct {
	Type        string       `json:"type"` // "text"
	Text        *TextContent `json:"text,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// TextContent is the literal text of a rich text run.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Link is a hyperlink target.
type Link struct {
	URL string `json:"url"`
}

// Annotations describes inline formatting. Nil means plain text.
type Annotations struct {
	Bold          bool `json:"bold,omitempty"`
	Italic        bool `json:"italic,omitempty"`
	Strikethrough bool `json:"strikethrough,omitempty"`
	Code          bool `json:"code,omitempty"`
}

// Limits on rich text. Content length is counted in UTF-16 code units, so
// a character outside the Basic Multilingual Plane counts twice.
const (
	MaxTextLength   = 2000
	MaxRichTextRuns = 100
)

// TextRuns returns content as one or more rich text runs sharing the same
// annotations and link, split so no run exceeds MaxTextLength UTF-16 units.
func TextRuns(content string, ann *Annotations, link *Link) []RichText {
	var runs []RichText
	for _, part := range splitUTF16(content, MaxTextLength) {
		runs = append(runs, RichText{
			Type:        "text",
			Text:        &TextContent{Content: part, Link: link},
			Annotations: ann,
		})
	}
	return runs
}

// splitUTF16 cuts s on rune boundaries into pieces of at most n UTF-16
// code units. An empty s yields one empty piece so callers always get a run.
func splitUTF16(s string, n int) []string {
	var (
		parts []string
		start int
		units int
	)
	for i, r := range s {
		w := utf16.RuneLen(r)
		if units+w > n {
			parts = append(parts, s[start:i])
			start, units = i, 0
		}
		units += w
	}
	return append(parts, s[start:])
}

// Block types produced by the dispatcher.
const (
	TypeParagraph = "paragraph"
	TypeHeading1  = "heading_1"
	TypeHeading2  = "heading_2"
	TypeHeading3  = "heading_3"
	TypeBulleted  = "bulleted_list_item"
	TypeNumbered  = "numbered_list_item"
	TypeToDo      = "to_do"
	TypeQuote     = "quote"
	TypeCode      = "code"
	TypeDivider   = "divider"
)

// Block is a content block in a create or append request. Exactly one of
// the type-specific fields is set, matching Type.
type Block struct {
	Object string `json:"object,omitempty"`
	Type   string `json:"type"`

	Paragraph        *TextBlock `json:"paragraph,omitempty"`
	Heading1         *TextBlock `json:"heading_1,omitempty"`
	Heading2         *TextBlock `json:"heading_2,omitempty"`
	Heading3         *TextBlock `json:"heading_3,omitempty"`
	BulletedListItem *TextBlock `json:"bulleted_list_item,omitempty"`
	NumberedListItem *TextBlock `json:"numbered_list_item,omitempty"`
	Quote            *TextBlock `json:"quote,omitempty"`
	ToDo             *ToDoBlock `json:"to_do,omitempty"`
	Code             *CodeBlock `json:"code,omitempty"`
	Divider          *struct{}  `json:"divider,omitempty"`
}

// TextBlock carries the rich text of paragraph, heading, list, and quote blocks.
type TextBlock struct {
	RichText []RichText `json:"rich_text"`
}

// ToDoBlock is a checkbox item.
type ToDoBlock struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
}

// CodeBlock is a fenced code block.
type CodeBlock struct {
	RichText []RichText `json:"rich_text"`
	Language string     `json:"language"`
}

// Text returns the rich text of b regardless of its type.
func (b Block) Text() []RichText {
	switch {
	case b.Paragraph != nil:
		return b.Paragraph.RichText
	case b.Heading1 != nil:
		return b.Heading1.RichText
	case b.Heading2 != nil:
		return b.Heading2.RichText
	case b.Heading3 != nil:
		return b.Heading3.RichText
	case b.BulletedListItem != nil:
		return b.BulletedListItem.RichText
	case b.NumberedListItem != nil:
		return b.NumberedListItem.RichText
	case b.Quote != nil:
		return b.Quote.RichText
	case b.ToDo != nil:
		return b.ToDo.RichText
	case b.Code != nil:
		return b.Code.RichText
	}
	return nil
}

// WithText returns a copy of b carrying rt in place of its rich text.
func (b Block) WithText(rt []RichText) Block {
	switch {
	case b.Paragraph != nil:
		b.Paragraph = &TextBlock{RichText: rt}
	case b.Heading1 != nil:
		b.Heading1 = &TextBlock{RichText: rt}
	case b.Heading2 != nil:
		b.Heading2 = &TextBlock{RichText: rt}
	case b.Heading3 != nil:
		b.Heading3 = &TextBlock{RichText: rt}
	case b.BulletedListItem != nil:
		b.BulletedListItem = &TextBlock{RichText: rt}
	case b.NumberedListItem != nil:
		b.NumberedListItem = &TextBlock{RichText: rt}
	case b.Quote != nil:
		b.Quote = &TextBlock{RichText: rt}
	case b.ToDo != nil:
		b.ToDo = &ToDoBlock{RichText: rt, Checked: b.ToDo.Checked}
	case b.Code != nil:
		b.Code = &CodeBlock{RichText: rt, Language: b.Code.Language}
	}
	return b
}

// Error is an API error response.
type Error struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// IsRateLimited reports whether err is a 429 that outlasted the retries.
func IsRateLimited(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Code == "rate_limited"
	}
	return false
}

// createPageRequest is the body of POST /pages.
type createPageRequest struct {
	Parent     Parent                   `json:"parent"`
	Icon       *Icon                    `json:"icon,omitempty"`
	Properties map[string]titleProperty `json:"properties"`
	Children   []Block                  `json:"children,omitempty"`
}

// titleProperty is the title property of a page under another page.
type titleProperty struct {
	Title []RichText `json:"title"`
}

// appendChildrenRequest is the body of PATCH /blocks/{id}/children.
type appendChildrenRequest struct {
	Children []Block `json:"children"`
}

// archiveRequest is the body of PATCH /pages/{id}.
type archiveRequest struct {
	Archived bool `json:"archived"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render produces the Markdown and HTML views of a converted note.
package render

import (
	"strings"

	"github.com/pdiddy/keepnotion/internal/keep"
)

// Attachment is one image with its recognized and formatted text.
type Attachment struct {
	Path      string
	OCR       string
	Formatted string
}

// Document is everything needed to render one note.
type Document struct {
	Title       string
	Created     string
	Edited      string
	Labels      string
	Text        string
	HTML        string
	Checklist   []keep.ListItem
	Attachments []Attachment

	// UseLLM reports whether Formatted came from the language model.
	UseLLM bool
}

// NewDocument copies the displayable fields of n. Attachments are added by
// the caller once recognized.
func NewDocument(n *keep.Note, useLLM bool) Document {
	return Document{
		Title:     n.DisplayTitle(),
		Created:   n.Created(),
		Edited:    n.Edited(),
		Labels:    n.LabelList(),
		Text:      strings.TrimSpace(n.TextContent),
		HTML:      strings.TrimSpace(n.TextContentHTML),
		Checklist: n.ListContent,
		UseLLM:    useLLM,
	}
}

// ShowFormatted reports whether the formatted text adds anything over the
// raw recognition output.
func (d Document) ShowFormatted(a Attachment) bool {
	return d.UseLLM && a.Formatted != "" && a.Formatted != a.OCR
}

// hasOCR reports whether any attachment produced text.
func (d Document) hasOCR() bool {
	for _, a := range d.Attachments {
		if a.OCR != "" {
			return true
		}
	}
	return false
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package blocks turns plain text and light Markdown into workspace blocks.
// Conversion is a line-by-line dispatch over a fixed table of patterns;
// only fenced code spans more than one line.
package blocks

import (
	"regexp"
	"strings"

	"github.com/pdiddy/keepnotion/internal/notion"
)

var (
	fencePattern    = regexp.MustCompile("^\\s*(```|~~~)\\s*([\\w+#.-]*)(?:\\s+.*)?$")
	headingPattern  = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	todoPattern     = regexp.MustCompile(`^\s*[-*+]\s+\[([ xX])\]\s+(.*)$`)
	bulletPattern   = regexp.MustCompile(`^\s*[-*+•]\s+(.*)$`)
	numberedPattern = regexp.MustCompile(`^\s*\d+[.)]\s+(.*)$`)
	quotePattern    = regexp.MustCompile(`^\s*>\s?(.*)$`)
	dividerPattern  = regexp.MustCompile(`^\s*(?:-{3,}|\*{3,}|_{3,})\s*$`)
)

// Convert dispatches each line of text to a block. Blank lines are
// dropped; an unterminated code fence runs to the end of the input.
func Convert(text string) []notion.Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var (
		out      []notion.Block
		inCode   bool
		fence    string
		lang     string
		codeBody []string
	)

	flushCode := func() {
		out = append(out, fitRuns(codeBlock(strings.Join(codeBody, "\n"), lang))...)
		inCode, codeBody, lang, fence = false, nil, "", ""
	}

	for _, line := range lines {
		if inCode {
			if strings.TrimSpace(line) == fence {
				flushCode()
				continue
			}
			codeBody = append(codeBody, line)
			continue
		}

		if m := fencePattern.FindStringSubmatch(line); m != nil {
			inCode, fence, lang = true, m[1], m[2]
			continue
		}

		if b, ok := dispatch(line); ok {
			out = append(out, fitRuns(b)...)
		}
	}

	if inCode {
		flushCode()
	}
	return out
}

// fitRuns splits a block carrying more than notion.MaxRichTextRuns runs
// into consecutive blocks of the same type.
func fitRuns(b notion.Block) []notion.Block {
	runs := b.Text()
	if len(runs) <= notion.MaxRichTextRuns {
		return []notion.Block{b}
	}
	var out []notion.Block
	for start := 0; start < len(runs); start += notion.MaxRichTextRuns {
		end := min(start+notion.MaxRichTextRuns, len(runs))
		out = append(out, b.WithText(runs[start:end]))
	}
	return out
}

// dispatch maps a single non-code line to a block. Order matters: a to-do
// line also matches the bullet pattern.
func dispatch(line string) (notion.Block, bool) {
	if strings.TrimSpace(line) == "" {
		return notion.Block{}, false
	}

	if dividerPattern.MatchString(line) {
		return notion.Block{Object: "block", Type: notion.TypeDivider, Divider: &struct{}{}}, true
	}

	if m := headingPattern.FindStringSubmatch(line); m != nil {
		return heading(len(m[1]), m[2]), true
	}

	if m := todoPattern.FindStringSubmatch(line); m != nil {
		return notion.Block{Object: "block", Type: notion.TypeToDo, ToDo: &notion.ToDoBlock{
			RichText: Inline(m[2]),
			Checked:  m[1] != " ",
		}}, true
	}

	if m := bulletPattern.FindStringSubmatch(line); m != nil {
		return notion.Block{Object: "block", Type: notion.TypeBulleted, BulletedListItem: text(m[1])}, true
	}

	if m := numberedPattern.FindStringSubmatch(line); m != nil {
		return notion.Block{Object: "block", Type: notion.TypeNumbered, NumberedListItem: text(m[1])}, true
	}

	if m := quotePattern.FindStringSubmatch(line); m != nil {
		return notion.Block{Object: "block", Type: notion.TypeQuote, Quote: text(m[1])}, true
	}

	return Paragraph(strings.TrimSpace(line)), true
}

// Paragraph returns a paragraph block with inline formatting applied.
func Paragraph(s string) notion.Block {
	return notion.Block{Object: "block", Type: notion.TypeParagraph, Paragraph: text(s)}
}

func text(s string) *notion.TextBlock {
	return &notion.TextBlock{RichText: Inline(s)}
}

// heading clamps Markdown's six levels to the three the workspace supports.
func heading(level int, s string) notion.Block {
	tb := text(s)
	switch level {
	case 1:
		return notion.Block{Object: "block", Type: notion.TypeHeading1, Heading1: tb}
	case 2:
		return notion.Block{Object: "block", Type: notion.TypeHeading2, Heading2: tb}
	default:
		return notion.Block{Object: "block", Type: notion.TypeHeading3, Heading3: tb}
	}
}

func codeBlock(body, lang string) notion.Block {
	return notion.Block{Object: "block", Type: notion.TypeCode, Code: &notion.CodeBlock{
		RichText: notion.TextRuns(body, nil, nil),
		Language: Language(lang),
	}}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package blocks

import (
	"regexp"

	"github.com/pdiddy/keepnotion/internal/notion"
)

// inlinePattern recognizes, in order: **bold**, ~~strike~~, `code`,
// [text](url), and *italic*.
var inlinePattern = regexp.MustCompile(
	`\*\*(.+?)\*\*` +
		`|~~(.+?)~~` +
		"|`([^`]+)`" +
		`|\[([^\]]+)\]\((https?://[^\s)]+)\)` +
		`|\*([^*\s](?:[^*]*[^*\s])?)\*`)

// Inline converts a line of text into rich text runs, applying the inline
// Markdown markers above. Unmatched markers stay literal.
func Inline(s string) []notion.RichText {
	var runs []notion.RichText
	last := 0
	for _, m := range inlinePattern.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > last {
			runs = append(runs, notion.TextRuns(s[last:m[0]], nil, nil)...)
		}
		switch {
		case m[2] >= 0:
			runs = append(runs, notion.TextRuns(s[m[2]:m[3]], &notion.Annotations{Bold: true}, nil)...)
		case m[4] >= 0:
			runs = append(runs, notion.TextRuns(s[m[4]:m[5]], &notion.Annotations{Strikethrough: true}, nil)...)
		case m[6] >= 0:
			runs = append(runs, notion.TextRuns(s[m[6]:m[7]], &notion.Annotations{Code: true}, nil)...)
		case m[8] >= 0:
			runs = append(runs, notion.TextRuns(s[m[8]:m[9]], nil, &notion.Link{URL: s[m[10]:m[11]]})...)
		case m[12] >= 0:
			runs = append(runs, notion.TextRuns(s[m[12]:m[13]], &notion.Annotations{Italic: true}, nil)...)
		}
		last = m[1]
	}
	if last < len(s) || len(runs) == 0 {
		runs = append(runs, notion.TextRuns(s[last:], nil, nil)...)
	}
	return runs
}

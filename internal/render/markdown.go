// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"strings"
)

const htmlPointer = "*Note: This note contains formatted HTML content that can be viewed in the HTML version.*"

// Markdown renders d as a Markdown document. The attachments section is
// present only when at least one attachment produced OCR text.
func Markdown(d Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", d.Title)
	fmt.Fprintf(&b, "**Created:** %s  \n", d.Created)
	fmt.Fprintf(&b, "**Last Edited:** %s  \n", d.Edited)
	fmt.Fprintf(&b, "**Labels:** %s  \n\n", d.Labels)
	b.WriteString("---\n\n")

	switch {
	case d.HTML != "":
		b.WriteString("## Note Content (HTML)\n\n")
		if d.Text != "" {
			b.WriteString(d.Text + "\n\n")
		}
		writeChecklist(&b, d)
		b.WriteString(htmlPointer + "\n\n")
	case d.Text != "" || len(d.Checklist) > 0:
		b.WriteString("## Note Content\n\n")
		if d.Text != "" {
			b.WriteString(d.Text + "\n\n")
		}
		writeChecklist(&b, d)
	}

	if d.hasOCR() {
		b.WriteString("## Attachments\n\n")
		for i, a := range d.Attachments {
			fmt.Fprintf(&b, "### Attachment %d\n\n", i+1)
			fmt.Fprintf(&b, "#### Raw OCR Output:\n```\n%s\n```\n\n", a.OCR)
			if d.ShowFormatted(a) {
				fmt.Fprintf(&b, "#### LLM Output:\n%s\n\n", a.Formatted)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeChecklist(b *strings.Builder, d Document) {
	if len(d.Checklist) == 0 {
		return
	}
	for _, item := range d.Checklist {
		mark := " "
		if item.IsChecked {
			mark = "x"
		}
		fmt.Fprintf(b, "- [%s] %s\n", mark, item.Text)
	}
	b.WriteString("\n")
}

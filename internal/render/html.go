// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdownToHTML renders model output. Raw HTML in the input is escaped.
var markdownToHTML = goldmark.New(goldmark.WithExtensions(extension.GFM))

type htmlAttachment struct {
	Index     int
	ImageURL  template.URL
	OCR       string
	Formatted template.HTML
}

type htmlPage struct {
	Document
	NoteHTML    template.HTML
	Attachments []htmlAttachment
}

// HTML renders d as a standalone page. Images are embedded as data URIs,
// Keep's own note HTML is trusted, and formatted text is rendered from
// Markdown.
func HTML(d Document) (string, error) {
	page := htmlPage{Document: d, NoteHTML: template.HTML(d.HTML)}
	for i, a := range d.Attachments {
		uri, err := dataURI(a.Path)
		if err != nil {
			return "", err
		}
		att := htmlAttachment{Index: i + 1, ImageURL: uri, OCR: a.OCR}
		if d.ShowFormatted(a) {
			var buf bytes.Buffer
			if err := markdownToHTML.Convert([]byte(a.Formatted), &buf); err != nil {
				return "", fmt.Errorf("rendering formatted text of %s: %w", filepath.Base(a.Path), err)
			}
			att.Formatted = template.HTML(buf.String())
		}
		page.Attachments = append(page.Attachments, att)
	}

	var out bytes.Buffer
	if err := pageTmpl.Execute(&out, page); err != nil {
		return "", fmt.Errorf("rendering HTML for %q: %w", d.Title, err)
	}
	return out.String(), nil
}

// dataURI embeds the file at path. Unknown extensions are labelled JPEG.
func dataURI(path string) (template.URL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("embedding attachment: %w", err)
	}
	mime := "image/jpeg"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mime = "image/png"
	case ".gif":
		mime = "image/gif"
	case ".webp":
		mime = "image/webp"
	}
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)), nil
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif; line-height: 1.6; max-width: 1200px; margin: auto; padding: 20px; color: #333; }
.meta-info { margin-bottom: 20px; background-color: #f9f9f9; padding: 15px; border-radius: 5px; border-left: 4px solid #007bff; }
.content-section { margin: 20px 0; padding: 15px; background-color: #f9f9f9; border-radius: 5px; }
.note-content-html, .markdown-content { padding: 15px; background: white; border-radius: 5px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
.attachment-row { display: flex; gap: 20px; margin-bottom: 20px; flex-wrap: wrap; }
.attachment-column { flex: 1; min-width: 300px; background-color: #f9f9f9; padding: 15px; border-radius: 5px; margin-bottom: 15px; }
details { margin-bottom: 15px; }
summary { cursor: pointer; font-size: 1.1em; font-weight: bold; color: #007bff; padding: 8px 0; }
pre { background: white; padding: 10px; border-radius: 5px; overflow-x: auto; white-space: pre-wrap; word-wrap: break-word; box-shadow: 0 1px 3px rgba(0,0,0,0.1); }
hr { border: 0; height: 1px; background-color: #ddd; margin: 30px 0; }
.markdown-content code { padding: .2em .4em; font-size: 85%; background-color: rgba(27,31,35,.05); border-radius: 3px; }
.markdown-content blockquote { padding: 0 1em; color: #6a737d; border-left: .25em solid #dfe2e5; margin: 0 0 16px 0; }
.markdown-content table th, .markdown-content table td { padding: 6px 13px; border: 1px solid #dfe2e5; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta-info">
<p><strong>Created:</strong> {{.Created}}</p>
<p><strong>Last Edited:</strong> {{.Edited}}</p>
<p><strong>Labels:</strong> {{.Labels}}</p>
</div>
{{- if or .NoteHTML .Text .Checklist}}
<div class="content-section">
<h2>Note Content</h2>
{{- if .NoteHTML}}
<div class="note-content-html">
{{.NoteHTML}}
</div>
{{- else if .Text}}
<div class="note-content-text">
<pre>{{.Text}}</pre>
</div>
{{- end}}
{{- if .Checklist}}
<ul class="checklist">
{{- range .Checklist}}
<li>{{if .IsChecked}}&#9745;{{else}}&#9744;{{end}} {{.Text}}</li>
{{- end}}
</ul>
{{- end}}
</div>
<hr>
{{- end}}
{{- if .Attachments}}
<h2>Attachments</h2>
{{- range .Attachments}}
<div class="attachment-row">
<div class="attachment-column">
<details open>
<summary>Image {{.Index}}</summary>
<img src="{{.ImageURL}}" alt="Embedded Image {{.Index}}" style="max-width:100%;">
</details>
</div>
<div class="attachment-column">
<details open>
<summary>OCR Output {{.Index}}</summary>
<pre>{{.OCR}}</pre>
</details>
</div>
{{- if .Formatted}}
<div class="attachment-column">
<details open>
<summary>LLM Output {{.Index}}</summary>
<div class="markdown-content">
{{.Formatted}}
</div>
</details>
</div>
{{- end}}
</div>
{{- end}}
{{- end}}
</body>
</html>
`))

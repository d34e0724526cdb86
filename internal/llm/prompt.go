// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"text/template"
)

// systemPrompt constrains the model to correcting recognition errors.
const systemPrompt = "You are an OCR correction assistant. Your job is to fix misrecognized characters, " +
	"preserve original text structure, and correct minor errors (spacing, punctuation, " +
	"capitalization). DO NOT alter wording, meaning, or sentence structure. " +
	"Make the output as faithful to the original text as possible while cleaning up OCR artifacts. " +
	"Retain all line breaks, bullet points, and structure as closely as possible."

var userPromptTmpl = template.Must(template.New("user").Parse(
	"Convert the following OCR text to Markdown, preserving all formatting:\n\n'''{{.Raw}}'''"))

// renderPrompt executes the user prompt template with the raw OCR text.
func renderPrompt(raw string) (string, error) {
	var buf bytes.Buffer
	if err := userPromptTmpl.Execute(&buf, struct{ Raw string }{Raw: raw}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

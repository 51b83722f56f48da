// Package extract holds the prompts for the schema-guided form extraction
// call. The user prompt carries the literal target JSON shape rather than
// examples, keeping token usage low.
package extract

import (
	"bytes"
	_ "embed"
	"text/template"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// SystemPrompt returns the system prompt for form field extraction.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt builds the user prompt around the OCR text.
func UserPrompt(ocrText string) string {
	var buf bytes.Buffer
	data := struct{ OCRText string }{OCRText: ocrText}
	if err := userTemplate.Execute(&buf, data); err != nil {
		// Fallback to raw template on error
		return userPromptTmpl
	}
	return buf.String()
}

// Package providers holds the external service clients the pipeline
// depends on: the document-analysis (OCR) provider and the LLM used for
// schema-guided extraction. Both are modeled as narrow interfaces so the
// pipeline can be exercised against mocks.
package providers

import (
	"context"
	"errors"
	"time"
)

// OCRMode selects the document-analysis model.
type OCRMode string

const (
	// OCRModeLayout is the richer, slower analysis with positional
	// structure. Used for scanned PDFs.
	OCRModeLayout OCRMode = "prebuilt-layout"

	// OCRModeRead is the faster plain-text analysis. Used for photographed
	// images and as the downgrade target when layout submission stalls.
	OCRModeRead OCRMode = "prebuilt-read"
)

// Submission and result failures are distinguishable so the orchestrator
// can downgrade on a stalled submission but surface everything else.
var (
	// ErrSubmitTimeout means the analyze submission did not start within
	// its deadline.
	ErrSubmitTimeout = errors.New("ocr submission timed out")

	// ErrResultTimeout means the analysis was accepted but did not finish
	// within the result deadline.
	ErrResultTimeout = errors.New("ocr result timed out")
)

// AnalyzeOptions control a single OCR invocation.
type AnalyzeOptions struct {
	Mode OCRMode

	// Pages restricts analysis to a page range (e.g. "1-2"). Empty means
	// all pages. Only honored by layout mode.
	Pages string

	// Markdown requests markdown-structured content (layout mode only).
	Markdown bool

	// ResultTimeout bounds the wait for the analysis result. Zero uses
	// the provider default.
	ResultTimeout time.Duration
}

// LayoutWord is a recognized word with its bounding polygon
// (x1,y1,x2,y2,... in page units).
type LayoutWord struct {
	Content string    `json:"content"`
	Polygon []float64 `json:"polygon"`
}

// LayoutLine is a recognized text line with its bounding polygon.
type LayoutLine struct {
	Content string    `json:"content"`
	Polygon []float64 `json:"polygon"`
}

// LayoutPage holds the line and word geometry of one page.
type LayoutPage struct {
	Lines []LayoutLine `json:"lines"`
	Words []LayoutWord `json:"words"`
}

// DocumentLayout is the structured geometry of a recognized document.
// Only the read model returns it; layout-mode markdown output flattens
// the geometry away.
type DocumentLayout struct {
	Pages []LayoutPage `json:"pages"`
}

// OCRResult is the outcome of one document analysis.
type OCRResult struct {
	// Content is the recognized text, markdown-structured when requested.
	Content string

	// Layout carries positional geometry when the provider returned it.
	Layout *DocumentLayout

	// ModelVersion and PageCount are provider metadata, informational only.
	ModelVersion string
	PageCount    int
}

// OCRProvider is the document-analysis service.
type OCRProvider interface {
	Name() string

	// Analyze submits a document and waits for the recognition result.
	// A stalled submission surfaces as ErrSubmitTimeout; an accepted but
	// unfinished analysis as ErrResultTimeout.
	Analyze(ctx context.Context, doc []byte, opts AnalyzeOptions) (*OCRResult, error)
}

// LLMClient is the text-completion service used for schema-guided
// extraction. The result is a best-effort untyped object; callers must
// verify every field.
type LLMClient interface {
	Name() string

	// Extract sends OCR text with the extraction instructions and returns
	// the decoded JSON object. An unparseable response degrades to an
	// empty object rather than an error; provider failures are returned.
	Extract(ctx context.Context, ocrText string) (map[string]any, error)
}

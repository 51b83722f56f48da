// Package pipeline orchestrates a full claim-form extraction: file-type
// detection, OCR, LLM extraction, the deterministic repair cascade, and
// validation. A single Extract call owns the whole lifecycle; nothing is
// shared between invocations.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/claimform/claimform/internal/anchor"
	"github.com/claimform/claimform/internal/digits"
	"github.com/claimform/claimform/internal/forms"
	"github.com/claimform/claimform/internal/normalize"
	"github.com/claimform/claimform/internal/providers"
)

// Stage identifies where in the pipeline a failure happened.
type Stage string

const (
	StageOCR      Stage = "ocr"
	StageLLM      Stage = "llm-extract"
	StageValidate Stage = "validate"
)

// StageError labels a pipeline failure with the stage that produced it so
// operators can attribute it without reading stack traces.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FileType is the detected document class.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeJPG FileType = "jpg"
)

// Options bound the OCR passes. Zero values take the defaults below.
type Options struct {
	// MaxPages caps how many PDF pages are analyzed.
	MaxPages int

	// LayoutResultTimeout bounds the primary layout analysis wait.
	LayoutResultTimeout time.Duration

	// ImageReadResultTimeout bounds the read analysis of photographed
	// forms. Shorter so a stuck image surfaces quickly.
	ImageReadResultTimeout time.Duration

	// SecondaryReadResultTimeout bounds the optional second read pass
	// used by the ID and name repair fallbacks (PDFs only).
	SecondaryReadResultTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxPages == 0 {
		o.MaxPages = 2
	}
	if o.LayoutResultTimeout == 0 {
		o.LayoutResultTimeout = 45 * time.Second
	}
	if o.ImageReadResultTimeout == 0 {
		o.ImageReadResultTimeout = 30 * time.Second
	}
	if o.SecondaryReadResultTimeout == 0 {
		o.SecondaryReadResultTimeout = 60 * time.Second
	}
	return o
}

// Metadata is informational output about one extraction.
type Metadata struct {
	RequestID     string `json:"request_id"`
	FileType      string `json:"file_type"`
	OCRCharacters int    `json:"ocr_characters"`
	ModelVersion  string `json:"model_version,omitempty"`
	PageCount     int    `json:"page_count,omitempty"`
}

// Result is the output of one extraction.
type Result struct {
	Form     *forms.ExtractedForm `json:"form"`
	Report   *normalize.Report    `json:"report"`
	Metadata Metadata             `json:"metadata"`
}

// Pipeline runs extractions against a fixed pair of providers.
type Pipeline struct {
	ocr    providers.OCRProvider
	llm    providers.LLMClient
	logger *slog.Logger
	opts   Options
}

// New creates a pipeline. A nil logger falls back to slog.Default.
func New(ocr providers.OCRProvider, llm providers.LLMClient, logger *slog.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{ocr: ocr, llm: llm, logger: logger, opts: opts.withDefaults()}
}

// Extract runs the full pipeline over one uploaded document.
func (p *Pipeline) Extract(ctx context.Context, doc []byte) (*Result, error) {
	requestID := uuid.NewString()
	fileType := detectFileType(doc)
	log := p.logger.With("request_id", requestID, "file_type", string(fileType))
	log.Info("starting extraction", "bytes", len(doc))

	ocrRes, err := p.runOCR(ctx, doc, fileType, log)
	if err != nil {
		return nil, &StageError{Stage: StageOCR, Err: err}
	}
	ocrText := ocrRes.Content
	log.Info("ocr complete", "characters", len(ocrText), "pages", ocrRes.PageCount)

	raw, err := p.llm.Extract(ctx, ocrText)
	if err != nil {
		return nil, &StageError{Stage: StageLLM, Err: err}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	p.repairID(ctx, raw, ocrText, doc, fileType, log)
	overrideReceiptDate(raw, ocrText, log)
	repairNames(raw, ocrText, log)

	mode := normalize.ModeStandard
	if fileType == FileTypeJPG {
		mode = normalize.ModeLenient
	}
	form, report, err := normalize.Apply(raw, ocrText, mode, log)
	if err != nil {
		return nil, &StageError{Stage: StageValidate, Err: err}
	}

	p.repairLastName(ctx, form, report, ocrText, doc, fileType, log)

	log.Info("extraction complete",
		"completeness", report.CompletenessPercent,
		"missing_fields", len(report.MissingFields))

	return &Result{
		Form:   form,
		Report: report,
		Metadata: Metadata{
			RequestID:     requestID,
			FileType:      string(fileType),
			OCRCharacters: len(ocrText),
			ModelVersion:  ocrRes.ModelVersion,
			PageCount:     ocrRes.PageCount,
		},
	}, nil
}

// detectFileType inspects the document signature. Unknown signatures get
// PDF handling, the conservative path.
func detectFileType(doc []byte) FileType {
	if bytes.HasPrefix(doc, []byte{0xff, 0xd8, 0xff}) {
		return FileTypeJPG
	}
	if bytes.HasPrefix(doc, []byte("%PDF")) {
		return FileTypePDF
	}
	return FileTypePDF
}

// runOCR picks the analysis mode per file type. Photographed forms use the
// faster read model; PDFs use layout restricted to the first pages, with a
// downgrade to read if the layout submission stalls.
func (p *Pipeline) runOCR(ctx context.Context, doc []byte, fileType FileType, log *slog.Logger) (*providers.OCRResult, error) {
	if fileType == FileTypeJPG {
		return p.ocr.Analyze(ctx, doc, providers.AnalyzeOptions{
			Mode:          providers.OCRModeRead,
			ResultTimeout: p.opts.ImageReadResultTimeout,
		})
	}

	doc = p.boundPDF(doc, log)
	res, err := p.ocr.Analyze(ctx, doc, providers.AnalyzeOptions{
		Mode:          providers.OCRModeLayout,
		Pages:         fmt.Sprintf("1-%d", p.opts.MaxPages),
		Markdown:      true,
		ResultTimeout: p.opts.LayoutResultTimeout,
	})
	if errors.Is(err, providers.ErrSubmitTimeout) {
		log.Warn("layout submission stalled, downgrading to read mode", "error", err)
		return p.ocr.Analyze(ctx, doc, providers.AnalyzeOptions{
			Mode:          providers.OCRModeRead,
			ResultTimeout: p.opts.LayoutResultTimeout,
		})
	}
	return res, err
}

// boundPDF trims a PDF down to the analyzed page range so oversized
// uploads never reach the provider. Any trim failure keeps the original
// bytes; the provider-side page restriction still applies.
func (p *Pipeline) boundPDF(doc []byte, log *slog.Logger) []byte {
	pageCount, err := api.PageCount(bytes.NewReader(doc), nil)
	if err != nil || pageCount <= p.opts.MaxPages {
		return doc
	}
	var buf bytes.Buffer
	pages := []string{fmt.Sprintf("1-%d", p.opts.MaxPages)}
	if err := api.Trim(bytes.NewReader(doc), &buf, pages, nil); err != nil {
		log.Warn("failed to trim pdf, sending original", "pages", pageCount, "error", err)
		return doc
	}
	log.Debug("trimmed pdf", "pages", pageCount, "kept", p.opts.MaxPages)
	return buf.Bytes()
}

// repairID replaces the LLM's idNumber when it is missing, malformed, or
// fails the checksum. Strategies run in order of trust: anchored text
// search, scored global search, then (PDFs only, to bound latency on
// photographed forms) a secondary read pass with layout-row search.
func (p *Pipeline) repairID(ctx context.Context, raw map[string]any, ocrText string, doc []byte, fileType FileType, log *slog.Logger) {
	idDigits := digits.Only(stringField(raw, "idNumber"))
	needsRepair := idDigits == "" ||
		(len(idDigits) != 9 && len(idDigits) != 10) ||
		(len(idDigits) == 9 && !digits.ValidIsraeliID(idDigits))
	if !needsRepair {
		return
	}

	guess := anchor.IDNearLabel(ocrText)
	if guess == "" {
		guess = anchor.IDBestGuess(ocrText)
	}
	if guess == "" && fileType == FileTypePDF {
		res, err := p.ocr.Analyze(ctx, doc, providers.AnalyzeOptions{
			Mode:          providers.OCRModeRead,
			ResultTimeout: p.opts.SecondaryReadResultTimeout,
		})
		if err != nil {
			log.Warn("secondary read pass for id repair failed", "error", err)
		} else if res.Layout != nil {
			guess = anchor.IDFromLayout(res.Layout)
		}
	}

	if guess != "" {
		log.Debug("id repair replaced llm value", "llm_value", idDigits, "repaired", guess)
		raw["idNumber"] = guess
	}
}

// overrideReceiptDate always trusts the anchored receipt-date over the
// LLM for this one field: the label sits in a dense footer the LLM
// frequently misreads.
func overrideReceiptDate(raw map[string]any, ocrText string, log *slog.Logger) {
	day, month, year, ok := anchor.ReceiptDate(ocrText)
	if !ok {
		return
	}
	log.Debug("anchored receipt date override", "day", day, "month", month, "year", year)
	raw["formReceiptDateAtClinic"] = map[string]any{"day": day, "month": month, "year": year}
}

// repairNames fills blank name fields from label proximity.
func repairNames(raw map[string]any, ocrText string, log *slog.Logger) {
	if strings.TrimSpace(stringField(raw, "firstName")) == "" {
		if guess := anchor.NameNearLabel(ocrText, anchor.FirstName); guess != "" {
			log.Debug("first name repaired from label proximity", "value", guess)
			raw["firstName"] = guess
		}
	}
	if strings.TrimSpace(stringField(raw, "lastName")) == "" {
		if guess := anchor.NameNearLabel(ocrText, anchor.LastName); guess != "" {
			log.Debug("last name repaired from label proximity", "value", guess)
			raw["lastName"] = guess
		}
	}
}

// repairLastName runs after validation: when the plausibility guard
// blanked lastName, try the structured-text strategies and, for PDFs, a
// second plain read pass. A recovered name is written into the validated
// form and the report is recomputed - the one post-hoc report mutation.
func (p *Pipeline) repairLastName(ctx context.Context, form *forms.ExtractedForm, report *normalize.Report, ocrText string, doc []byte, fileType FileType, log *slog.Logger) {
	if form.LastName != "" {
		return
	}

	guess := anchor.LastNameFromStructuredText(ocrText)
	if guess == "" && fileType == FileTypePDF {
		res, err := p.ocr.Analyze(ctx, doc, providers.AnalyzeOptions{
			Mode:          providers.OCRModeRead,
			ResultTimeout: p.opts.SecondaryReadResultTimeout,
		})
		if err != nil {
			log.Warn("secondary read pass for last name repair failed", "error", err)
		} else {
			guess = anchor.LastNameSameLine(res.Content)
		}
	}
	if guess == "" {
		return
	}

	log.Debug("secondary last name repair", "value", guess)
	form.LastName = guess
	report.Recompute(form)
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

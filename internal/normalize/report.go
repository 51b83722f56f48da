package normalize

import (
	"math"
	"strings"

	"github.com/claimform/claimform/internal/forms"
)

// Correction records one cross-reference override of an LLM value by an
// OCR digit pattern, with enough context for an operator to audit it.
type Correction struct {
	LLMValue       string `json:"llm_value"`
	OCRPattern     string `json:"ocr_pattern"`
	CorrectedValue string `json:"corrected_value"`
	Reason         string `json:"reason"`
}

// Report summarizes how complete and trustworthy an extraction is.
type Report struct {
	CompletenessPercent    float64               `json:"completeness_percent"`
	MissingFields          []string              `json:"missing_fields"`
	ValidationType         string                `json:"validation_type,omitempty"`
	IDWarning              string                `json:"id_warning,omitempty"`
	PhoneCorrections       []string              `json:"phone_corrections,omitempty"`
	IntelligentCorrections map[string]Correction `json:"intelligent_corrections,omitempty"`
}

// Recompute walks every leaf of the form and refreshes the completeness
// percentage and missing-field paths. Called once during normalization and
// again after the secondary name repair mutates the validated form.
func (r *Report) Recompute(form *forms.ExtractedForm) {
	total, nonEmpty := 0, 0
	missing := []string{}
	form.WalkLeaves(func(path, value string) {
		total++
		if strings.TrimSpace(value) != "" {
			nonEmpty++
		} else {
			missing = append(missing, path)
		}
	})
	if total == 0 {
		r.CompletenessPercent = 0
	} else {
		r.CompletenessPercent = math.Round(1000*float64(nonEmpty)/float64(total)) / 10
	}
	r.MissingFields = missing
}

// Package normalize applies the deterministic field-correction rules to a
// raw extraction and produces the typed form plus its validation report.
// One normalizer serves both document classes, parameterized by Mode:
// standard for born-digital PDFs, lenient for photographed forms where the
// OCR misread rate justifies more aggressive repair.
package normalize

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/claimform/claimform/internal/digits"
	"github.com/claimform/claimform/internal/forms"
)

// Mode selects how aggressively normalization repairs suspected OCR errors.
type Mode int

const (
	// ModeStandard applies only the conservative rules.
	ModeStandard Mode = iota
	// ModeLenient additionally rewrites common misreads (8/9 for a leading
	// 0, 09 for 08) and cross-references the OCR text for ID candidates.
	ModeLenient
)

func (m Mode) String() string {
	if m == ModeLenient {
		return "lenient"
	}
	return "standard"
}

var dateKeys = []string{"dateOfBirth", "dateOfInjury", "formFillingDate", "formReceiptDateAtClinic"}

// Apply runs the full normalization pass over the raw LLM extraction and
// coerces it into the typed form. Heuristic repairs never fail; only the
// final schema coercion can return an error, and that indicates a contract
// violation upstream that must surface loudly.
func Apply(raw map[string]any, ocrText string, mode Mode, log *slog.Logger) (*forms.ExtractedForm, *Report, error) {
	if log == nil {
		log = slog.Default()
	}
	if raw == nil {
		raw = map[string]any{}
	}

	var intelligent map[string]Correction
	if mode == ModeLenient && ocrText != "" {
		intelligent = correctIDFromOCR(raw, ocrText, log)
		for field, c := range intelligent {
			log.Debug("applying intelligent correction", "field", field, "reason", c.Reason)
			raw[field] = c.CorrectedValue
		}
	}

	if _, ok := raw["gender"]; ok {
		raw["gender"] = NormalizeGender(asString(raw["gender"]))
	}

	for _, key := range dateKeys {
		switch triple := raw[key].(type) {
		case map[string]any:
			raw[key] = normalizeDateTriple(triple)
		case nil:
			raw[key] = map[string]any{"day": "", "month": "", "year": ""}
		default:
			d, m, y := digits.ParseDate(asString(triple))
			raw[key] = map[string]any{"day": d, "month": m, "year": y}
		}
	}

	raw["idNumber"] = NormalizeID(asString(raw["idNumber"]), mode)

	var phoneCorrections []string
	mobile, mobileCorrected := NormalizePhone(asString(raw["mobilePhone"]), true, mode)
	raw["mobilePhone"] = mobile
	if mobileCorrected && mobile != "" {
		phoneCorrections = append(phoneCorrections, correctionNote("Mobile", mode))
	}
	landline, landlineCorrected := NormalizePhone(asString(raw["landlinePhone"]), false, mode)
	raw["landlinePhone"] = landline
	if landlineCorrected && landline != "" {
		phoneCorrections = append(phoneCorrections, correctionNote("Landline", mode))
	}

	if _, ok := raw["signature"]; ok {
		raw["signature"] = NormalizeSignature(asString(raw["signature"]))
	}

	for _, field := range []string{"lastName", "firstName"} {
		v := strings.TrimSpace(asString(raw[field]))
		if v != "" && ImplausibleName(v) {
			log.Debug("blanking implausible name value", "field", field, "value", v)
			raw[field] = ""
		}
	}

	form, err := forms.FromRaw(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("coercing normalized extraction: %w", err)
	}

	report := &Report{IntelligentCorrections: intelligent, PhoneCorrections: phoneCorrections}
	report.Recompute(form)
	if mode == ModeLenient {
		report.ValidationType = "lenient"
	}
	report.IDWarning = idWarning(form.IDNumber, mode)

	return form, report, nil
}

// NormalizeID reduces an ID value to its canonical digit form.
//
// Both modes drop the leading zero of a 10-digit ID. For a 10-digit ID not
// starting with zero, standard mode preserves all 10 digits for review and
// truncates anything longer to the last 9; lenient mode instead reduces to
// the last 9 digits when that substring passes the checksum, and truncates
// only past 10 digits.
func NormalizeID(s string, mode Mode) string {
	d := digits.Only(s)
	if d == "" {
		return ""
	}
	switch mode {
	case ModeLenient:
		if len(d) == 10 {
			if d[0] == '0' {
				d = d[1:]
			} else if digits.ValidIsraeliID(d[1:]) {
				d = d[1:]
			}
		}
		if len(d) > 10 {
			d = d[len(d)-9:]
		}
	default:
		if len(d) == 10 {
			if d[0] == '0' {
				d = d[1:]
			} else {
				return d
			}
		}
		if len(d) > 9 {
			d = d[len(d)-9:]
		}
	}
	return d
}

// NormalizePhone forces an Israeli phone number into its canonical shape:
// 10 digits starting "05" for mobiles, 9 digits starting "0" for landlines.
// The second return reports whether any repair (including a length change)
// was applied.
func NormalizePhone(s string, isMobile bool, mode Mode) (string, bool) {
	d := digits.Only(s)
	if d == "" {
		return "", false
	}
	original := d
	corrected := false

	if isMobile {
		switch {
		case strings.HasPrefix(d, "5"):
			// OCR dropped the leading 0.
			d = "0" + d
			corrected = true
		case mode == ModeLenient && (d[0] == '8' || d[0] == '9'):
			// 0 commonly misreads as 8 or 9 in photographs.
			d = "05" + d[1:]
			corrected = true
		case !strings.HasPrefix(d, "05"):
			d = "05" + lastN(d, 8)
			corrected = true
		}
		if len(d) > 10 {
			d = d[:10]
		}
	} else {
		switch {
		case mode == ModeLenient && (d[0] == '8' || d[0] == '9'):
			d = "0" + d[1:]
			corrected = true
		case mode == ModeLenient && strings.HasPrefix(d, "09") && len(d) == 9:
			// 08 area codes frequently misread as 09.
			d = "08" + d[2:]
			corrected = true
		case !strings.HasPrefix(d, "0"):
			d = "0" + d
			corrected = true
		}
		if len(d) > 9 {
			d = d[:9]
		}
	}

	if len(original) != len(d) {
		corrected = true
	}
	return d, corrected
}

// NormalizeGender maps the Hebrew and English gender spellings to the
// canonical english values, passing unrecognized input through lowercased.
func NormalizeGender(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "זכר", "male", "m":
		return "male"
	case "נקבה", "female", "f":
		return "female"
	}
	return v
}

// NormalizeSignature collapses common OCR check-mark glyphs to "X".
func NormalizeSignature(s string) string {
	v := strings.TrimSpace(s)
	switch v {
	case "x", "X", "✗", "✔":
		return "X"
	}
	return v
}

var nameLabelTokens = []string{"ת.ז", "ס\"ב", "ס״ב", "מס", "ID", "id"}
var nameLabelSubstrings = []string{"ת.ז", "ת\"ז", "תעודת זהות", "מספר זהות", "ID", "id"}

// ImplausibleName reports whether a value cannot be a person name: a label
// token the LLM copied from the form, a digit run, or a single character.
func ImplausibleName(s string) bool {
	v := strings.TrimSpace(s)
	if v == "" {
		return true
	}
	for _, tok := range nameLabelTokens {
		if v == tok {
			return true
		}
	}
	allDigits := true
	for _, r := range v {
		if !unicode.IsDigit(r) {
			allDigits = false
			break
		}
	}
	if allDigits {
		return true
	}
	if len([]rune(v)) < 2 {
		return true
	}
	for _, sub := range nameLabelSubstrings {
		if strings.Contains(v, sub) {
			return true
		}
	}
	return false
}

var shortDayRE = regexp.MustCompile(`^\d{1,2}$`)

// normalizeDateTriple digit-cleans a day/month/year triple. When all three
// parts are present but day is not 1-2 digits, the LLM likely put a joined
// date string into one slot, so the concatenation is reparsed instead.
// Values stay map[string]any so the corrected object remains a plain
// JSON-decoded shape for schema validation.
func normalizeDateTriple(triple map[string]any) map[string]any {
	d := asString(triple["day"])
	m := asString(triple["month"])
	y := asString(triple["year"])
	if d != "" && m != "" && y != "" && !shortDayRE.MatchString(d) {
		nd, nm, ny := digits.ParseDate(d + " " + m + " " + y)
		return map[string]any{"day": nd, "month": nm, "year": ny}
	}
	return map[string]any{"day": digits.Only(d), "month": digits.Only(m), "year": digits.Only(y)}
}

// idRunRE matches 9-10 digit runs tolerating embedded spaces or hyphens.
var idRunRE = regexp.MustCompile(`\b\d(?:[\s\-]?\d){8,9}\b`)

// correctIDFromOCR cross-references the LLM's idNumber against digit runs
// found in the OCR text. A 10-digit run starting with 0 that differs from
// the LLM value is taken as the real ID (the leading zero is exactly what
// the LLM tends to drop or mangle), overriding even a checksum-valid LLM
// value. That precedence is deliberate and tuned to observed failures.
func correctIDFromOCR(raw map[string]any, ocrText string, log *slog.Logger) map[string]Correction {
	llmID := asString(raw["idNumber"])
	if llmID == "" {
		return nil
	}
	for _, pattern := range idRunRE.FindAllString(ocrText, -1) {
		clean := digits.Only(pattern)
		if len(clean) != 9 && len(clean) != 10 {
			continue
		}
		if clean == llmID {
			continue
		}
		if len(clean) == 10 && clean[0] == '0' {
			correctedValue := clean[1:]
			log.Debug("ocr digit run overrides llm id", "pattern", pattern, "corrected", correctedValue)
			return map[string]Correction{
				"idNumber": {
					LLMValue:       llmID,
					OCRPattern:     pattern,
					CorrectedValue: correctedValue,
					Reason: fmt.Sprintf("found 10-digit ID pattern %q starting with 0 in OCR text, more likely correct than LLM result %q",
						pattern, llmID),
				},
			}
		}
	}
	return nil
}

func correctionNote(kind string, mode Mode) string {
	note := kind + " phone auto-corrected with the standard '0' prefix"
	if mode == ModeLenient {
		note += " (image processing)"
	}
	return note
}

func idWarning(id string, mode Mode) string {
	if len(id) == 10 && id[0] != '0' {
		if mode == ModeLenient {
			return "10-digit ID starting with non-0; please verify against the source image"
		}
		return "10-digit ID starting with non-0; please check the form"
	}
	return ""
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

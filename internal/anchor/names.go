package anchor

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// NameField selects which person-name field a search targets.
type NameField int

const (
	FirstName NameField = iota
	LastName
)

var (
	firstNameLabels = []string{"שם פרטי", "פרטי", "שם פרטי:", "שם פרטי :", "first name"}
	lastNameLabels  = []string{"שם משפחה", "משפחה", "שם משפחה:", "שם משפחה :", "last name", "family name"}

	// nameSkipTokens are labels the OCR or LLM may hand back in place of
	// an actual name. Never accept them as values.
	nameSkipTokens = []string{"שם", "פרטי", "משפחה", "תעודת", "זהות", "ת.ז", "ס״ב"}

	// formVocabulary is the wider exclusion list for compound-name
	// scanning over full form text.
	formVocabulary = []string{
		"שם", "פרטי", "משפחה", "תעודת", "זהות", "ת.ז", "ס״ב", "מין", "זכר", "נקבה",
		"התובע", "המוסד", "לביטוח", "לאומי", "מינהל", "הגמלאות", "בקשה", "טיפול",
		"רפואי", "עבודה", "עצמאי", "אני", "מבקש", "לקבל", "עזרה",
	}

	lineNameSkip = []string{
		"שם", "פרטי", "משפחה", "תעודת", "זהות", "ת.ז", "ס״ב", "מין", "זכר", "נקבה", "התובע",
	}

	// hebrewToken matches a single Hebrew word of plausible name length.
	hebrewToken = regexp.MustCompile(`[\x{0590}-\x{05FF}]{2,15}`)

	// hebrewNameLine matches a line that is exactly one Hebrew token.
	hebrewNameLine = regexp.MustCompile(`^[\x{05D0}-\x{05EA}]{2,15}$`)

	// compoundName matches two adjacent Hebrew tokens ("first last").
	compoundName = regexp.MustCompile(`([\x{05D0}-\x{05EA}]{2,15})\s+([\x{05D0}-\x{05EA}]{2,15})`)
)

// NameNearLabel locates a first or last name by proximity to its Hebrew
// (or English) form label. Among all plausible Hebrew tokens it returns
// the one closest to any label occurrence, or "" when no label is found.
func NameNearLabel(text string, field NameField) string {
	if text == "" {
		return ""
	}
	labels := lastNameLabels
	if field == FirstName {
		labels = firstNameLabels
	}

	// Label end positions, case-insensitive for the English variants.
	var labelEnds []int
	lower := strings.ToLower(text)
	for _, label := range labels {
		for _, pos := range indexAll(lower, strings.ToLower(label)) {
			labelEnds = append(labelEnds, pos+len(label))
		}
	}
	if len(labelEnds) == 0 {
		return ""
	}

	best := ""
	bestDist := farAway
	for _, m := range hebrewToken.FindAllStringIndex(text, -1) {
		tok := strings.TrimSpace(text[m[0]:m[1]])
		if isSkipToken(tok, nameSkipTokens) {
			continue
		}
		if d := minDistance(m[0], labelEnds); d < bestDist {
			best, bestDist = tok, d
		}
	}
	return best
}

// isSkipToken reports whether tok appears in the given token list.
func isSkipToken(tok string, list []string) bool {
	for _, s := range list {
		if tok == s {
			return true
		}
	}
	return false
}

// LastNameFromStructuredText is the enhanced last-name extraction used
// when the plausibility guard blanked the LLM value. It analyzes the form
// structure of layout OCR text: locating both name-label lines, then
// trying (a) compound names whose first token matches a first-name
// candidate, (b) any length-plausible compound name, (c) positional
// assignment of standalone Hebrew tokens to the two labels, and (d) a
// widened search for a second distinct token. Falls back to same-line
// label patterns.
func LastNameFromStructuredText(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")

	lastLabelLine, firstLabelLine := -1, -1
	for i, line := range lines {
		switch strings.TrimSpace(line) {
		case "שם משפחה":
			lastLabelLine = i
		case "שם פרטי":
			firstLabelLine = i
		}
	}

	if lastLabelLine >= 0 && firstLabelLine >= 0 {
		name, conclusive := lastNameNearBothLabels(text, lines, lastLabelLine, firstLabelLine)
		if conclusive {
			return name
		}
	}

	// Label-adjacent line scan.
	for i, line := range lines {
		if strings.TrimSpace(line) != "שם משפחה" {
			continue
		}
		for j := i + 1; j < len(lines) && j < i+10; j++ {
			tok := strings.TrimSpace(lines[j])
			if tok != "" && hebrewNameLine.MatchString(tok) && !isSkipToken(tok, lineNameSkip) {
				return tok
			}
		}
	}

	return LastNameSameLine(text)
}

// lastNameNearBothLabels runs the strategies that need both label lines.
// conclusive is false only when no standalone name tokens were found at
// all, letting the caller fall through to the single-label strategies.
func lastNameNearBothLabels(text string, lines []string, lastLabelLine, firstLabelLine int) (name string, conclusive bool) {
	near := lastLabelLine
	if firstLabelLine < near {
		near = firstLabelLine
	}

	// First-name candidates: standalone Hebrew tokens in the 10 lines
	// after the closer label. A compound "first last" whose first token
	// matches one of these pins down the last name.
	var firstNameGuesses []string
	for i := near + 1; i < len(lines) && i < near+10; i++ {
		tok := strings.TrimSpace(lines[i])
		if hebrewNameLine.MatchString(tok) {
			firstNameGuesses = append(firstNameGuesses, tok)
		}
	}

	if len(firstNameGuesses) > 0 {
		for _, m := range compoundName.FindAllStringSubmatch(text, -1) {
			first, second := m[1], m[2]
			if isSkipToken(first, formVocabulary) || isSkipToken(second, formVocabulary) {
				continue
			}
			if isSkipToken(first, firstNameGuesses) {
				return second, true
			}
		}
	}

	// Second pass: any compound under typical name lengths.
	for _, m := range compoundName.FindAllStringSubmatch(text, -1) {
		first, second := m[1], m[2]
		if isSkipToken(first, formVocabulary) || isSkipToken(second, formVocabulary) {
			continue
		}
		if utf8.RuneCountInString(first) <= 6 && utf8.RuneCountInString(second) <= 8 {
			return second, true
		}
	}

	// Positional assignment: collect standalone tokens in a 25-line
	// window after both labels and map the two nearest to the two labels.
	type positioned struct {
		line int
		name string
	}
	var names []positioned
	for i := near + 1; i < len(lines) && i < near+25; i++ {
		tok := strings.TrimSpace(lines[i])
		if tok != "" && hebrewNameLine.MatchString(tok) && !isSkipToken(tok, lineNameSkip) {
			names = append(names, positioned{line: i, name: tok})
		}
	}

	switch {
	case len(names) >= 2:
		a, b := names[0], names[1]
		aToLast, aToFirst := abs(a.line-lastLabelLine), abs(a.line-firstLabelLine)
		bToLast, bToFirst := abs(b.line-lastLabelLine), abs(b.line-firstLabelLine)
		switch {
		case aToLast < aToFirst && bToFirst <= bToLast:
			return a.name, true
		case bToLast < bToFirst && aToFirst <= aToLast:
			return b.name, true
		default:
			// Ambiguous distances: the second token is the last name on
			// this form's usual fill order.
			return b.name, true
		}
	case len(names) == 1:
		// The single token is likely the first name; look further for a
		// second, distinct token before giving up.
		for i := near + 1; i < len(lines); i++ {
			tok := strings.TrimSpace(lines[i])
			if tok == "" || tok == names[0].name {
				continue
			}
			if hebrewNameLine.MatchString(tok) && !isSkipToken(tok, lineNameSkip) && tok != "המבקש" {
				return tok, true
			}
		}
		// One token but no distinct second: do not guess.
		return "", true
	}
	return "", false
}

var sameLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`שם משפחה\s+([\x{05D0}-\x{05EA}]{2,15})`),
	regexp.MustCompile(`משפחה\s+([\x{05D0}-\x{05EA}]{2,15})`),
	regexp.MustCompile(`שם משפחה:\s*([\x{05D0}-\x{05EA}]{2,15})`),
	regexp.MustCompile(`שם משפחה\s*:\s*([\x{05D0}-\x{05EA}]{2,15})`),
}

// LastNameSameLine extracts a last name written on the same line as its
// label ("שם משפחה <value>"). Used on plain secondary-OCR text where line
// structure is flattened.
func LastNameSameLine(text string) string {
	if text == "" {
		return ""
	}
	for _, re := range sameLinePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if !isSkipToken(candidate, nameSkipTokens) {
			return candidate
		}
	}
	return ""
}

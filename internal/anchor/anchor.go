// Package anchor implements label-anchored extraction over OCR output.
// It locates ID numbers, names, and dates by their proximity to the known
// Hebrew labels of the claim form, both in flat text and in structured
// layout geometry. Every function returns the empty string (or false)
// when nothing is found; absence is data here, not an error.
package anchor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/claimform/claimform/internal/digits"
)

// Label vocabulary of the form. Hebrew right-to-left text frequently
// places a value before its label in reading order, so searches look at
// windows on both sides of each occurrence.
var (
	idLabels = []string{"ת.ז", `ת"ז`, "ת.ז.", "תעודת זהות", "מספר זהות", "ID", "id"}

	// The global scan additionally anchors on the checksum-digit label.
	idScanLabels = []string{"ת.ז", `ת"ז`, "ת.ז.", "תעודת זהות", "מספר זהות", `ס"ב`, "ס״ב", "ID", "id"}

	phoneContextTokens = []string{"טלפון", "נייד", "קווי", "פלאפון", "סלולרי", "mobile", "phone"}

	nameContextLabels = []string{"שם פרטי", "שם משפחה", "first name", "last name"}
)

// digitRun matches 9 digits tolerating a single space or hyphen between
// any two of them. Boundary digits are checked manually since RE2 has no
// lookarounds.
var digitRun9 = regexp.MustCompile(`\d(?:[\s-]?\d){8}`)

// looseDigitRun matches digit runs of 9-14 characters with embedded
// separators, used for 9-10 digit candidate collection.
var looseDigitRun = regexp.MustCompile(`\d[\d\s-]{7,13}\d`)

const (
	anchoredWindow = 120
	scanWindow     = 220
	receiptWindow  = 250
	farAway        = 1 << 30
)

// Window sizes count runes, not bytes. Hebrew is two bytes per rune in
// UTF-8, so byte slicing would halve the reach over Hebrew-dense text
// and could split a rune at the edge.

// windowAfter returns the substring starting at byte offset start,
// spanning up to n runes.
func windowAfter(text string, start, n int) string {
	end := start
	for i := 0; i < n && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return text[start:end]
}

// windowBefore returns the substring ending at byte offset end, spanning
// up to n runes back.
func windowBefore(text string, end, n int) string {
	start := end
	for i := 0; i < n && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	return text[start:end]
}

// IDNearLabel anchors on ID labels and returns the first checksum-valid
// 9-digit run found in a window before or after any occurrence. Falls
// back to a global scan for any checksum-valid run when no label hits.
func IDNearLabel(text string) string {
	if text == "" {
		return ""
	}
	for _, label := range idLabels {
		for _, pos := range indexAll(text, label) {
			end := pos + len(label)
			fwd := windowAfter(text, end, anchoredWindow)
			bwd := windowBefore(text, pos, anchoredWindow)
			for _, window := range []string{fwd, bwd} {
				if id := firstValidRun(window); id != "" {
					return id
				}
			}
		}
	}
	return firstValidRun(text)
}

// firstValidRun returns the first standalone 9-digit run in s whose
// checksum validates.
func firstValidRun(s string) string {
	for _, span := range standaloneRuns(s, digitRun9) {
		ds := digits.Only(s[span[0]:span[1]])
		if len(ds) == 9 && digits.ValidIsraeliID(ds) {
			return ds
		}
	}
	return ""
}

// standaloneRuns returns match spans of re in s that are not directly
// adjacent to another digit.
func standaloneRuns(s string, re *regexp.Regexp) [][]int {
	var spans [][]int
	for _, m := range re.FindAllStringIndex(s, -1) {
		if m[0] > 0 && isASCIIDigit(s[m[0]-1]) {
			continue
		}
		if m[1] < len(s) && isASCIIDigit(s[m[1]]) {
			continue
		}
		spans = append(spans, m)
	}
	return spans
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }

// idCandidate is a 9-10 digit run found in the global scan.
type idCandidate struct {
	value string
	pos   int
}

// IDBestGuess performs the heuristic fallback search: anchored windows
// around ID labels first, then a global scan of all 9-10 digit runs
// scored by (digit-count class, checksum validity, phone-label context,
// distance to ID labels, distance from name labels). Lower scores win;
// ties keep the earliest occurrence.
func IDBestGuess(text string) string {
	if text == "" {
		return ""
	}

	// Label-anchored pass with a wider window.
	for _, label := range idScanLabels {
		for _, pos := range indexAll(text, label) {
			end := pos + len(label)
			fwd := windowAfter(text, end, scanWindow)
			bwd := windowBefore(text, pos, scanWindow)
			for _, window := range []string{fwd, bwd} {
				for _, m := range looseDigitRun.FindAllString(window, -1) {
					ds := digits.Only(m)
					if len(ds) == 9 && digits.ValidIsraeliID(ds) {
						return ds
					}
				}
			}
		}
	}

	// Global candidate scan.
	var candidates []idCandidate
	for _, m := range looseDigitRun.FindAllStringIndex(text, -1) {
		ds := digits.Only(text[m[0]:m[1]])
		if len(ds) == 9 || len(ds) == 10 {
			candidates = append(candidates, idCandidate{value: ds, pos: m[0]})
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	idPositions := positionsOf(text, idScanLabels, false)
	namePositions := positionsOf(text, nameContextLabels, true)

	best := candidates[0]
	bestScore := scoreCandidate(text, best, idPositions, namePositions)
	for _, c := range candidates[1:] {
		if s := scoreCandidate(text, c, idPositions, namePositions); lessScore(s, bestScore) {
			best, bestScore = c, s
		}
	}
	return best.value
}

// scoreCandidate builds the lexicographic score tuple for a candidate.
func scoreCandidate(text string, c idCandidate, idPositions, namePositions []int) [5]int {
	var s [5]int
	if len(c.value) != 9 {
		s[0] = 1 // prefer 9-digit over 10-digit
	}
	if !(len(c.value) == 9 && digits.ValidIsraeliID(c.value)) {
		s[1] = 1
	}
	ctx := windowBefore(text, c.pos, 60) + windowAfter(text, c.pos, 60)
	for _, tok := range phoneContextTokens {
		if strings.Contains(ctx, tok) {
			s[2] = 1
			break
		}
	}
	s[3] = minDistance(c.pos, idPositions)
	s[4] = minDistance(c.pos, namePositions)
	return s
}

func lessScore(a, b [5]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func minDistance(pos int, labelPositions []int) int {
	d := farAway
	for _, lp := range labelPositions {
		if diff := abs(pos - lp); diff < d {
			d = diff
		}
	}
	return d
}

// positionsOf collects the start offsets of every occurrence of the
// given tokens in text.
func positionsOf(text string, tokens []string, foldCase bool) []int {
	haystack := text
	if foldCase {
		haystack = strings.ToLower(text)
	}
	var positions []int
	for _, tok := range tokens {
		needle := tok
		if foldCase {
			needle = strings.ToLower(tok)
		}
		positions = append(positions, indexAll(haystack, needle)...)
	}
	return positions
}

func indexAll(s, substr string) []int {
	var out []int
	for from := 0; ; {
		i := strings.Index(s[from:], substr)
		if i < 0 {
			return out
		}
		out = append(out, from+i)
		from += i + len(substr)
	}
}

var receiptDateLabels = []string{
	"תאריך קבלת הטופס בקופה",
	"ת. קבלת הטופס בקופה",
	"תאריך קבלת הטופס",
}

var eightDigitRun = regexp.MustCompile(`\b\d{8}\b`)

// ReceiptDate anchors on the clinic receipt-date label and returns the
// first 8-digit ddmmyyyy run in a trailing window that is a plausible
// calendar date. Falls back to the first plausible 8-digit run anywhere.
func ReceiptDate(text string) (day, month, year string, ok bool) {
	if text == "" {
		return "", "", "", false
	}
	for _, label := range receiptDateLabels {
		for _, pos := range indexAll(text, label) {
			end := pos + len(label)
			window := windowAfter(text, end, receiptWindow)
			for _, run := range eightDigitRun.FindAllString(window, -1) {
				if d, m, y, valid := splitDate8(run); valid {
					return d, m, y, true
				}
			}
		}
	}
	if run := eightDigitRun.FindString(text); run != "" {
		if d, m, y, valid := splitDate8(run); valid {
			return d, m, y, true
		}
	}
	return "", "", "", false
}

// splitDate8 interprets an 8-digit run as ddmmyyyy and range-checks it.
func splitDate8(run string) (day, month, year string, ok bool) {
	day, month, year = run[0:2], run[2:4], run[4:8]
	d := atoi(day)
	m := atoi(month)
	y := atoi(year)
	if d < 1 || d > 31 || m < 1 || m > 12 || y < 1900 || y > 2100 {
		return "", "", "", false
	}
	return day, month, year, true
}

func atoi(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Package digits holds the digit-level utilities shared across the
// extraction pipeline: the Israeli ID (Teudat Zehut) checksum, numeral
// normalization, and loose date parsing for handwritten date fields.
package digits

import (
	"regexp"
	"strings"
)

// arabicIndic maps Arabic-Indic numerals to their ASCII equivalents.
// OCR occasionally emits these for forms filled in by Arabic speakers.
var arabicIndic = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

var nonDigitRE = regexp.MustCompile(`\D`)

// Only strips every non-digit character after translating Arabic-Indic
// numerals to ASCII.
func Only(s string) string {
	return nonDigitRE.ReplaceAllString(arabicIndic.Replace(s), "")
}

// ValidIsraeliID reports whether s is a valid 9-digit Teudat Zehut.
// Non-digit characters are stripped first; anything that does not reduce
// to exactly 9 digits is invalid.
//
// The check weights each digit by 1 (even positions) or 2 (odd positions),
// folds two-digit products to the sum of their digits, and requires the
// total to be divisible by 10.
func ValidIsraeliID(s string) bool {
	ds := Only(s)
	if len(ds) != 9 {
		return false
	}
	total := 0
	for i := 0; i < 9; i++ {
		mult := int(ds[i] - '0')
		if i%2 == 1 {
			mult *= 2
		}
		if mult > 9 {
			mult = mult/10 + mult%10
		}
		total += mult
	}
	return total%10 == 0
}

var (
	dateSepRE   = regexp.MustCompile(`[/.\-\s]+`)
	eightDigits = regexp.MustCompile(`^\d{8}$`)
	twoDigits   = regexp.MustCompile(`^\d{2}$`)
)

// ParseDate splits a loosely formatted date string into (day, month, year)
// strings. Accepted shapes: three parts separated by "/", ".", "-" or
// whitespace (year-first when the leading part has 4 digits, day-first
// otherwise, with 2-digit years expanded), or a bare 8-digit yyyymmdd run.
// Unparseable input yields three empty strings; it never fails.
func ParseDate(s string) (day, month, year string) {
	s = strings.TrimSpace(arabicIndic.Replace(s))
	if s == "" {
		return "", "", ""
	}

	if dateSepRE.MatchString(s) {
		parts := splitNonEmpty(s)
		if len(parts) != 3 {
			return "", "", ""
		}
		a, b, c := parts[0], parts[1], parts[2]
		switch {
		case len(a) == 4:
			// year-month-day order
			return c, b, a
		case len(c) == 4:
			return a, b, c
		default:
			// assume day-month-year; expand a 2-digit year
			if twoDigits.MatchString(c) {
				if c < "50" {
					c = "20" + c
				} else {
					c = "19" + c
				}
			}
			return a, b, c
		}
	}

	if eightDigits.MatchString(s) {
		// yyyymmdd
		return s[6:8], s[4:6], s[0:4]
	}
	return "", "", ""
}

func splitNonEmpty(s string) []string {
	var parts []string
	for _, p := range dateSepRE.Split(s, -1) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

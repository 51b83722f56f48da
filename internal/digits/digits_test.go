package digits

import "testing"

// referenceChecksum is an independent reimplementation of the weighted
// sum used to cross-check ValidIsraeliID.
func referenceChecksum(s string) bool {
	if len(s) != 9 {
		return false
	}
	total := 0
	for i, r := range s {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 2
		}
		total += d/10 + d%10
	}
	return total%10 == 0
}

func TestValidIsraeliID(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"000000000", true},
		{"123456782", true}, // weighted sum = 40
		{"123456789", false},
		{"12345678", false},   // too short
		{"1234567890", false}, // too long
		{"", false},
		{"abcdefghi", false},
		{"0-0000000-0", true},   // separators stripped, 9 digits
		{"0-00000000-0", false}, // separators stripped, 10 digits
		{"12-345678-2", true},   // separators stripped, 9 digits
	}
	for _, tc := range cases {
		if got := ValidIsraeliID(tc.in); got != tc.want {
			t.Errorf("ValidIsraeliID(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestValidIsraeliIDMatchesReference(t *testing.T) {
	// Spot-check a spread of 9-digit strings against the reference.
	ids := []string{
		"000000000", "123456782", "999999999", "305437397",
		"040506070", "111111118", "123456780", "876543210",
	}
	for _, id := range ids {
		if got, want := ValidIsraeliID(id), referenceChecksum(id); got != want {
			t.Errorf("ValidIsraeliID(%q) = %v, reference = %v", id, got, want)
		}
	}
}

func TestOnly(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"050-123-4567", "0501234567"},
		{"ת.ז 123456782", "123456782"},
		{"٠٥٠١٢٣٤٥٦٧", "0501234567"}, // Arabic-Indic numerals
		{"no digits", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Only(tc.in); got != tc.want {
			t.Errorf("Only(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in             string
		day, month, yr string
	}{
		{"15/03/1990", "15", "03", "1990"},
		{"1990-03-15", "15", "03", "1990"},
		{"19900315", "15", "03", "1990"},
		{"15.03.90", "15", "03", "1990"},
		{"01.02.49", "01", "02", "2049"},
		{"15 03 1990", "15", "03", "1990"},
		{"abc", "", "", ""},
		{"", "", "", ""},
		{"12/1990", "", "", ""},     // only two parts
		{"1/2/3/4", "", "", ""},     // too many parts
		{"123456789", "", "", ""},   // 9 digits, not a date
	}
	for _, tc := range cases {
		d, m, y := ParseDate(tc.in)
		if d != tc.day || m != tc.month || y != tc.yr {
			t.Errorf("ParseDate(%q) = (%q,%q,%q), want (%q,%q,%q)",
				tc.in, d, m, y, tc.day, tc.month, tc.yr)
		}
	}
}

package anchor

import (
	"strings"
	"testing"

	"github.com/claimform/claimform/internal/providers"
)

// 123456782 passes the Teudat Zehut checksum; 987654321 does not.
const (
	validID   = "123456782"
	invalidID = "987654321"
)

func TestIDNearLabel(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"after label", "שם משפחה כהן\nת.ז 123456782\nטלפון 0501234567", validID},
		{"before label (RTL order)", "123456782 ת.ז\nעוד טקסט", validID},
		{"with separators", "תעודת זהות: 12-34-56-782", validID},
		{"invalid near label, valid far", "ת.ז 987654321 ועוד שורות רבות של טקסט כאן\n\n\n123456782", validID},
		{"no digits", "טופס ללא מספרים", ""},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IDNearLabel(tc.text); got != tc.want {
				t.Errorf("IDNearLabel(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestIDNearLabelHebrewDenseWindow(t *testing.T) {
	// Hebrew filler is two bytes per rune. The anchored window counts
	// runes, so an ID ~90 runes (~150 bytes) past the label must still be
	// preferred over an earlier ID found only by the global fallback.
	decoy := "111111118 " + strings.Repeat("אב גד ", 30)
	text := decoy + "ת.ז " + strings.Repeat("אב גד ", 15) + validID
	if got := IDNearLabel(text); got != validID {
		t.Errorf("IDNearLabel = %q, want %q", got, validID)
	}
}

func TestIDNearLabelIgnoresLongerRuns(t *testing.T) {
	// An 11-digit run must not contribute a 9-digit window.
	if got := IDNearLabel("ת.ז 12345678212"); got != "" {
		t.Errorf("IDNearLabel = %q, want empty for 11-digit run", got)
	}
}

func TestIDBestGuess(t *testing.T) {
	t.Run("prefers checksum-valid candidate away from phone labels", func(t *testing.T) {
		text := "טלפון נייד 0501234567 כתובת רחוב הרצל 10 תל אביב מיקוד 6120101 שדה נוסף כלשהו בטופס 123456782"
		if got := IDBestGuess(text); got != validID {
			t.Errorf("IDBestGuess = %q, want %q", got, validID)
		}
	})

	t.Run("prefers 9-digit over 10-digit", func(t *testing.T) {
		text := "1234567890 ... 123456782"
		if got := IDBestGuess(text); got != validID {
			t.Errorf("IDBestGuess = %q, want %q", got, validID)
		}
	})

	t.Run("anchored window wins outright", func(t *testing.T) {
		text := "987654321 בתחילת הטקסט\nמספר זהות 123456782"
		if got := IDBestGuess(text); got != validID {
			t.Errorf("IDBestGuess = %q, want %q", got, validID)
		}
	})

	t.Run("single 10-digit candidate is returned", func(t *testing.T) {
		text := "מספר כלשהו 1234567890 בטופס"
		if got := IDBestGuess(text); got != "1234567890" {
			t.Errorf("IDBestGuess = %q, want 1234567890", got)
		}
	})

	t.Run("no candidates", func(t *testing.T) {
		if got := IDBestGuess("אין כאן מספרים 123"); got != "" {
			t.Errorf("IDBestGuess = %q, want empty", got)
		}
	})
}

func TestReceiptDate(t *testing.T) {
	t.Run("anchored", func(t *testing.T) {
		text := "תאריך קבלת הטופס בקופה: 15032024 חתימה"
		d, m, y, ok := ReceiptDate(text)
		if !ok || d != "15" || m != "03" || y != "2024" {
			t.Errorf("ReceiptDate = (%q,%q,%q,%v)", d, m, y, ok)
		}
	})

	t.Run("skips implausible dates near label", func(t *testing.T) {
		text := "תאריך קבלת הטופס בקופה 99887766 ולאחר מכן 01122023"
		d, m, y, ok := ReceiptDate(text)
		if !ok || d != "01" || m != "12" || y != "2023" {
			t.Errorf("ReceiptDate = (%q,%q,%q,%v)", d, m, y, ok)
		}
	})

	t.Run("global fallback", func(t *testing.T) {
		d, m, y, ok := ReceiptDate("טקסט חופשי 05061998 בלי תווית")
		if !ok || d != "05" || m != "06" || y != "1998" {
			t.Errorf("ReceiptDate = (%q,%q,%q,%v)", d, m, y, ok)
		}
	})

	t.Run("nothing plausible", func(t *testing.T) {
		if _, _, _, ok := ReceiptDate("99887766"); ok {
			t.Error("expected no plausible date")
		}
	})
}

func TestIDFromLayout(t *testing.T) {
	quad := func(x, y float64) []float64 {
		return []float64{x - 0.5, y - 0.05, x + 0.5, y - 0.05, x + 0.5, y + 0.05, x - 0.5, y + 0.05}
	}

	layout := &providers.DocumentLayout{
		Pages: []providers.LayoutPage{{
			Lines: []providers.LayoutLine{
				{Content: "שם משפחה כהן", Polygon: quad(5.0, 0.5)},
				{Content: "ת.ז", Polygon: quad(5.0, 1.0)},
			},
			Words: []providers.LayoutWord{
				// Same row as the label: an invalid and a valid candidate,
				// separated by a non-numeric token so they merge apart.
				{Content: invalidID, Polygon: quad(1.0, 1.02)},
				{Content: "מין", Polygon: quad(1.9, 1.0)},
				{Content: "123", Polygon: quad(2.6, 1.0)},
				{Content: "456", Polygon: quad(3.0, 0.98)},
				{Content: "782", Polygon: quad(3.4, 1.01)},
				{Content: "כהן", Polygon: quad(6.0, 1.0)},
				// Different row entirely.
				{Content: "000000000", Polygon: quad(3.0, 4.0)},
			},
		}},
	}

	if got := IDFromLayout(layout); got != validID {
		t.Errorf("IDFromLayout = %q, want %q", got, validID)
	}

	if got := IDFromLayout(nil); got != "" {
		t.Errorf("IDFromLayout(nil) = %q, want empty", got)
	}
}

func TestIDFromLayoutRowTolerance(t *testing.T) {
	quad := func(x, y float64) []float64 {
		return []float64{x, y, x + 1, y, x + 1, y, x, y}
	}
	layout := &providers.DocumentLayout{
		Pages: []providers.LayoutPage{{
			Lines: []providers.LayoutLine{{Content: "תעודת זהות", Polygon: quad(5.0, 1.0)}},
			Words: []providers.LayoutWord{
				// 0.5 page units below the label row: outside tolerance.
				{Content: validID, Polygon: quad(3.0, 1.5)},
			},
		}},
	}
	if got := IDFromLayout(layout); got != "" {
		t.Errorf("IDFromLayout = %q, want empty for off-row candidate", got)
	}
}

package normalize

import (
	"strings"
	"testing"

	"github.com/claimform/claimform/internal/forms"
)

func TestNormalizeID(t *testing.T) {
	cases := []struct {
		name string
		in   string
		mode Mode
		want string
	}{
		{"nine digits pass through", "123456782", ModeStandard, "123456782"},
		{"separators stripped", "12-345678-2", ModeStandard, "123456782"},
		{"ten digits leading zero dropped", "0123456789", ModeStandard, "123456789"},
		{"ten digits non-zero kept for review", "1234567890", ModeStandard, "1234567890"},
		{"eleven digits keep last nine", "12345678901", ModeStandard, "345678901"},
		{"empty", "", ModeStandard, ""},
		{"lenient leading zero dropped", "0123456789", ModeLenient, "123456789"},
		{"lenient last nine checksum valid", "9123456782", ModeLenient, "123456782"},
		{"lenient last nine checksum invalid kept", "1234567890", ModeLenient, "1234567890"},
		{"lenient eleven digits keep last nine", "12345678901", ModeLenient, "345678901"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeID(tc.in, tc.mode); got != tc.want {
				t.Errorf("NormalizeID(%q, %v) = %q, want %q", tc.in, tc.mode, got, tc.want)
			}
		})
	}
}

func TestNormalizeIDIdempotent(t *testing.T) {
	inputs := []string{
		"123456782", "0123456789", "1234567890", "12345678901",
		"9123456782", "12-345678-2", "", "abc",
	}
	for _, mode := range []Mode{ModeStandard, ModeLenient} {
		for _, in := range inputs {
			once := NormalizeID(in, mode)
			twice := NormalizeID(once, mode)
			if once != twice {
				t.Errorf("mode %v: NormalizeID(%q) not idempotent: %q then %q", mode, in, once, twice)
			}
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name      string
		in        string
		mobile    bool
		mode      Mode
		want      string
		corrected bool
	}{
		{"mobile already canonical", "0501234567", true, ModeStandard, "0501234567", false},
		{"mobile dropped leading zero", "501234567", true, ModeStandard, "0501234567", true},
		{"mobile force prefix from last eight", "771234567", true, ModeStandard, "0571234567", true},
		{"mobile lenient eight misread", "812345678", true, ModeLenient, "0512345678", true},
		{"landline already canonical", "021234567", false, ModeStandard, "021234567", false},
		{"landline missing zero", "1234567", false, ModeStandard, "01234567", true},
		{"landline lenient nine misread", "91234567", false, ModeLenient, "01234567", true},
		{"landline lenient 09 to 08", "091234567", false, ModeLenient, "081234567", true},
		{"landline truncated to nine", "0212345678", false, ModeStandard, "021234567", true},
		{"empty", "", true, ModeStandard, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, corrected := NormalizePhone(tc.in, tc.mobile, tc.mode)
			if got != tc.want || corrected != tc.corrected {
				t.Errorf("NormalizePhone(%q, mobile=%v, %v) = (%q, %v), want (%q, %v)",
					tc.in, tc.mobile, tc.mode, got, corrected, tc.want, tc.corrected)
			}
		})
	}
}

func TestNormalizeGender(t *testing.T) {
	cases := []struct{ in, want string }{
		{"זכר", "male"},
		{"Male", "male"},
		{"M", "male"},
		{"נקבה", "female"},
		{"F", "female"},
		{"other", "other"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeGender(tc.in); got != tc.want {
			t.Errorf("NormalizeGender(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeSignature(t *testing.T) {
	cases := []struct{ in, want string }{
		{"x", "X"},
		{"✗", "X"},
		{"✔", "X"},
		{" דוד כהן ", "דוד כהן"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeSignature(tc.in); got != tc.want {
			t.Errorf("NormalizeSignature(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestImplausibleName(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"כהן", false},
		{"ת.ז", true},
		{"ID", true},
		{"123456", true},
		{"א", true},
		{"", true},
		{"כהן ת.ז", true},
		{"דוד כהן", false},
	}
	for _, tc := range cases {
		if got := ImplausibleName(tc.in); got != tc.want {
			t.Errorf("ImplausibleName(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestApplyStandard(t *testing.T) {
	raw := map[string]any{
		"lastName":    "כהן",
		"firstName":   "דוד",
		"idNumber":    "0123456782",
		"gender":      "זכר",
		"mobilePhone": "501234567",
		"dateOfBirth": "15/03/1990",
		"signature":   "✗",
	}
	form, report, err := Apply(raw, "", ModeStandard, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if form.IDNumber != "123456782" {
		t.Errorf("IDNumber = %q, want 123456782", form.IDNumber)
	}
	if form.Gender != "male" {
		t.Errorf("Gender = %q, want male", form.Gender)
	}
	if form.MobilePhone != "0501234567" {
		t.Errorf("MobilePhone = %q, want 0501234567", form.MobilePhone)
	}
	if form.DateOfBirth != (forms.DateTriple{Day: "15", Month: "03", Year: "1990"}) {
		t.Errorf("DateOfBirth = %+v", form.DateOfBirth)
	}
	if form.Signature != "X" {
		t.Errorf("Signature = %q, want X", form.Signature)
	}
	if len(report.PhoneCorrections) != 1 || !strings.HasPrefix(report.PhoneCorrections[0], "Mobile") {
		t.Errorf("PhoneCorrections = %v", report.PhoneCorrections)
	}
	if report.ValidationType != "" {
		t.Errorf("ValidationType = %q, want empty in standard mode", report.ValidationType)
	}
	if report.IDWarning != "" {
		t.Errorf("IDWarning = %q, want empty", report.IDWarning)
	}
}

func TestApplyDateShapesPassSchema(t *testing.T) {
	// Dates arrive as triples, joined strings, or not at all; every shape
	// must normalize into a plain JSON object that survives validation.
	raw := map[string]any{
		"dateOfBirth":     map[string]any{"day": "7", "month": "12", "year": "1985"},
		"dateOfInjury":    "15/03/1990",
		"formFillingDate": nil,
	}
	form, _, err := Apply(raw, "", ModeStandard, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if form.DateOfBirth != (forms.DateTriple{Day: "7", Month: "12", Year: "1985"}) {
		t.Errorf("DateOfBirth = %+v", form.DateOfBirth)
	}
	if form.DateOfInjury != (forms.DateTriple{Day: "15", Month: "03", Year: "1990"}) {
		t.Errorf("DateOfInjury = %+v", form.DateOfInjury)
	}
	if form.FormFillingDate != (forms.DateTriple{}) {
		t.Errorf("FormFillingDate = %+v, want empty", form.FormFillingDate)
	}
}

func TestApplyBlanksImplausibleNames(t *testing.T) {
	raw := map[string]any{
		"lastName":  "ת.ז",
		"firstName": "123456",
	}
	form, report, err := Apply(raw, "", ModeStandard, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if form.LastName != "" || form.FirstName != "" {
		t.Errorf("names = (%q, %q), want both blanked", form.LastName, form.FirstName)
	}
	if report.MissingFields[0] != "lastName" {
		t.Errorf("MissingFields[0] = %q, want lastName", report.MissingFields[0])
	}
}

func TestApplyIDWarning(t *testing.T) {
	_, report, err := Apply(map[string]any{"idNumber": "1234567890"}, "", ModeStandard, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.IDWarning == "" {
		t.Error("expected an id_warning for a 10-digit ID not starting with 0")
	}
}

func TestApplyLenientIntelligentCorrection(t *testing.T) {
	ocr := "שם משפחה כהן\nת.ז 0123456782\nטלפון 050-1234567"
	raw := map[string]any{"idNumber": "987654321"}
	form, report, err := Apply(raw, ocr, ModeLenient, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if form.IDNumber != "123456782" {
		t.Errorf("IDNumber = %q, want 123456782 from OCR override", form.IDNumber)
	}
	c, ok := report.IntelligentCorrections["idNumber"]
	if !ok {
		t.Fatal("expected an intelligent correction for idNumber")
	}
	if c.LLMValue != "987654321" || c.CorrectedValue != "123456782" {
		t.Errorf("correction = %+v", c)
	}
	if report.ValidationType != "lenient" {
		t.Errorf("ValidationType = %q, want lenient", report.ValidationType)
	}
}

func TestApplyEmptyRaw(t *testing.T) {
	form, report, err := Apply(nil, "", ModeStandard, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.CompletenessPercent != 0 {
		t.Errorf("CompletenessPercent = %v, want 0", report.CompletenessPercent)
	}
	if len(report.MissingFields) != form.LeafCount() {
		t.Errorf("len(MissingFields) = %d, want %d", len(report.MissingFields), form.LeafCount())
	}
}

func TestReportRecompute(t *testing.T) {
	form := &forms.ExtractedForm{}
	var report Report
	report.Recompute(form)
	if report.CompletenessPercent != 0 {
		t.Errorf("empty form completeness = %v, want 0", report.CompletenessPercent)
	}

	form.LastName = "כהן"
	report.Recompute(form)
	want := 2.9 // 1 of 35 leaves, rounded to one decimal
	if report.CompletenessPercent != want {
		t.Errorf("completeness = %v, want %v", report.CompletenessPercent, want)
	}
	for _, path := range report.MissingFields {
		if path == "lastName" {
			t.Error("lastName still listed missing after recompute")
		}
	}

	full := fullForm()
	report.Recompute(full)
	if report.CompletenessPercent != 100.0 {
		t.Errorf("full form completeness = %v, want 100", report.CompletenessPercent)
	}
	if len(report.MissingFields) != 0 {
		t.Errorf("full form missing fields = %v", report.MissingFields)
	}
}

func fullForm() *forms.ExtractedForm {
	triple := forms.DateTriple{Day: "01", Month: "02", Year: "2023"}
	return &forms.ExtractedForm{
		LastName: "כהן", FirstName: "דוד", IDNumber: "123456782", Gender: "male",
		DateOfBirth: triple,
		Address: forms.Address{
			Street: "הרצל", HouseNumber: "1", Entrance: "א", Apartment: "2",
			City: "תל אביב", PostalCode: "6100000", POBox: "100",
		},
		LandlinePhone: "021234567", MobilePhone: "0501234567", JobType: "נהג",
		DateOfInjury: triple, TimeOfInjury: "08:30",
		AccidentLocation: "מפעל", AccidentAddress: "רחוב המסגר 5",
		AccidentDescription: "נפילה", InjuredBodyPart: "יד",
		Signature: "X", FormFillingDate: triple, FormReceiptDateAtClinic: triple,
		MedicalInstitution: forms.MedicalInstitutionFields{
			HealthFundMember: "כללית", NatureOfAccident: "חבלה", MedicalDiagnoses: "שבר",
		},
	}
}

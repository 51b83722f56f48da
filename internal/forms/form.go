// Package forms defines the canonical extraction model for the NII work
// injury claim form (BL/250) and the helpers that move data between the
// untrusted LLM output and the typed model.
package forms

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// DateTriple is a partially filled date. Each part is a digit string and
// independently possibly empty.
type DateTriple struct {
	Day   string `json:"day"`
	Month string `json:"month"`
	Year  string `json:"year"`
}

// Address holds the claimant's home address fields.
type Address struct {
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
	Entrance    string `json:"entrance"`
	Apartment   string `json:"apartment"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	POBox       string `json:"poBox"`
}

// MedicalInstitutionFields holds the section filled in by the clinic.
type MedicalInstitutionFields struct {
	HealthFundMember string `json:"healthFundMember"`
	NatureOfAccident string `json:"natureOfAccident"`
	MedicalDiagnoses string `json:"medicalDiagnoses"`
}

// ExtractedForm is the canonical output record. Every leaf is a string;
// the empty string means "not present on the form" - there is no
// separate unset sentinel.
//
// Field order matters: completeness reporting walks leaves depth-first in
// declaration order to produce stable dotted paths.
type ExtractedForm struct {
	LastName                string                   `json:"lastName"`
	FirstName               string                   `json:"firstName"`
	IDNumber                string                   `json:"idNumber"`
	Gender                  string                   `json:"gender"`
	DateOfBirth             DateTriple               `json:"dateOfBirth"`
	Address                 Address                  `json:"address"`
	LandlinePhone           string                   `json:"landlinePhone"`
	MobilePhone             string                   `json:"mobilePhone"`
	JobType                 string                   `json:"jobType"`
	DateOfInjury            DateTriple               `json:"dateOfInjury"`
	TimeOfInjury            string                   `json:"timeOfInjury"`
	AccidentLocation        string                   `json:"accidentLocation"`
	AccidentAddress         string                   `json:"accidentAddress"`
	AccidentDescription     string                   `json:"accidentDescription"`
	InjuredBodyPart         string                   `json:"injuredBodyPart"`
	Signature               string                   `json:"signature"`
	FormFillingDate         DateTriple               `json:"formFillingDate"`
	FormReceiptDateAtClinic DateTriple               `json:"formReceiptDateAtClinic"`
	MedicalInstitution      MedicalInstitutionFields `json:"medicalInstitutionFields"`
}

// FromRaw validates raw against the embedded form schema and coerces it
// into an ExtractedForm. A schema violation here means a correction pass
// upstream broke the contract, so it fails rather than degrading.
func FromRaw(raw map[string]any) (*ExtractedForm, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize extraction: %w", err)
	}
	var form ExtractedForm
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, fmt.Errorf("failed to coerce extraction into form model: %w", err)
	}
	form.trimScalars()
	return &form, nil
}

// trimScalars trims surrounding whitespace on the top-level scalar fields.
func (f *ExtractedForm) trimScalars() {
	for _, p := range []*string{
		&f.LastName, &f.FirstName, &f.IDNumber, &f.Gender,
		&f.LandlinePhone, &f.MobilePhone, &f.JobType, &f.TimeOfInjury,
		&f.AccidentLocation, &f.AccidentAddress, &f.AccidentDescription,
		&f.InjuredBodyPart, &f.Signature,
	} {
		*p = strings.TrimSpace(*p)
	}
}

// WalkLeaves visits every leaf field depth-first in declaration order,
// calling fn with the dotted path (e.g. "dateOfBirth.day") and value.
func (f *ExtractedForm) WalkLeaves(fn func(path, value string)) {
	walkValue(reflect.ValueOf(*f), "", fn)
}

func walkValue(v reflect.Value, prefix string, fn func(path, value string)) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		fv := v.Field(i)
		if fv.Kind() == reflect.Struct {
			walkValue(fv, path, fn)
			continue
		}
		fn(path, fv.String())
	}
}

// LeafCount returns the total number of leaf fields in the model.
func (f *ExtractedForm) LeafCount() int {
	n := 0
	f.WalkLeaves(func(string, string) { n++ })
	return n
}

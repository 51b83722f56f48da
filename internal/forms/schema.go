package forms

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/extracted_form.json
var schemaFS embed.FS

var formSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	data, err := schemaFS.ReadFile("schemas/extracted_form.json")
	if err != nil {
		panic(fmt.Sprintf("embedded form schema missing: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("extracted_form.json", bytes.NewReader(data)); err != nil {
		panic(fmt.Sprintf("failed to load form schema: %v", err))
	}
	s, err := compiler.Compile("extracted_form.json")
	if err != nil {
		panic(fmt.Sprintf("failed to compile form schema: %v", err))
	}
	return s
}

// Validate checks a raw extraction object against the canonical form
// schema. Correction passes only ever write strings, so a non-string
// leaf surviving to this point indicates an upstream contract violation.
func Validate(raw map[string]any) error {
	doc := any(raw)
	if err := formSchema.Validate(doc); err != nil {
		return fmt.Errorf("extraction does not match form schema: %w", err)
	}
	return nil
}

package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateDocument checks named arguments against a full JSON Schema
// document, typically one advertised by a remote tool catalog. A nil
// or empty schema accepts anything. Failures come back as an
// AggregateError of ValidationErrors, matching Validate.
func ValidateDocument(raw json.RawMessage, args map[string]any) error {
	if len(raw) == 0 {
		return nil
	}
	doc, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("arguments not JSON-representable: %w", err)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(raw),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		// A malformed remote schema is the catalog's defect, not the
		// caller's; report it distinctly from argument failures.
		return fmt.Errorf("schema document not loadable: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]error, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, &ValidationError{
			Key:    fieldOf(desc),
			Reason: desc.Description(),
		})
	}
	return &AggregateError{Errors: errs}
}

// fieldOf extracts the argument name from a schema result field path
// like "(root).a" or "a.0".
func fieldOf(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if field == "(root)" {
		if prop, ok := desc.Details()["property"].(string); ok {
			return prop
		}
		return ""
	}
	if i := strings.IndexByte(field, '.'); i > 0 {
		return field[:i]
	}
	return field
}

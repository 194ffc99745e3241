// Package coerce turns free-form model text into strict structured values.
//
// Invariants:
// - Incidental code fences are stripped before any parse attempt.
// - A value is only returned if it both decodes and validates against the
//   caller's JSON schema.
// - Parse failures carry the raw text so callers can apply their own
//   fallback policy; no retries happen here.
package coerce

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ParseError reports that a model reply could not be coerced into the
// expected shape. Raw holds the original (unstripped) reply so callers that
// accept plain text as a degraded success can recover it.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("coerce: %s", e.Reason)
}

// MustSchema compiles a JSON schema document and panics on failure. Schemas
// are package-level constants, so a compile failure is a programming error.
func MustSchema(doc string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("coerce: invalid schema: %v", err))
	}
	return schema
}

// Decode strips incidental fencing from raw, validates the result against
// schema, and unmarshals it into out. On any failure it returns a
// *ParseError; out is left untouched in that case.
func Decode(raw string, schema *gojsonschema.Schema, out any) error {
	text := StripFences(raw)
	if text == "" {
		return &ParseError{Raw: raw, Reason: "empty response"}
	}

	if !json.Valid([]byte(text)) {
		return &ParseError{Raw: raw, Reason: "response is not valid JSON"}
	}

	if schema != nil {
		result, err := schema.Validate(gojsonschema.NewStringLoader(text))
		if err != nil {
			return &ParseError{Raw: raw, Reason: fmt.Sprintf("schema validation: %v", err)}
		}
		if !result.Valid() {
			return &ParseError{Raw: raw, Reason: validationReason(result)}
		}
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return &ParseError{Raw: raw, Reason: fmt.Sprintf("unmarshal: %v", err)}
	}

	return nil
}

func validationReason(result *gojsonschema.Result) string {
	descs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		descs = append(descs, e.String())
	}
	return "schema mismatch: " + strings.Join(descs, "; ")
}

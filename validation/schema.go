// Package validation implements the per-resource validate capability with
// JSON Schema: schemas are generated from Go struct prototypes and
// compiled once, then applied to raw inputs and outputs.
//
// The dispatch layer itself never interprets field-level schema details;
// it only consumes the validate(raw) -> (validated, error) contract this
// package provides.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	jsonschemagen "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/resourcekit/resourcekit/resource"
)

var printer = message.NewPrinter(language.English)

// Schema is a compiled validator. A nil *Schema validates nothing and
// passes input through, so optional request/response schemas need no
// special-casing by callers.
type Schema struct {
	compiled *jsonschema.Schema
}

// ForType generates a JSON Schema from the Go struct T and compiles it.
func ForType[T any]() (*Schema, error) {
	reflector := jsonschemagen.Reflector{DoNotReference: true}
	raw, err := json.Marshal(reflector.Reflect(new(T)))
	if err != nil {
		return nil, fmt.Errorf("could not generate schema for %T: %w", *new(T), err)
	}
	return FromBytes(raw)
}

// MustForType is ForType for static schema declaration; it panics on
// error so an invalid prototype fails process startup.
func MustForType[T any]() *Schema {
	s, err := ForType[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// FromBytes compiles a raw JSON Schema document.
func FromBytes(schemaJSON []byte) (*Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("could not parse schema document: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("could not add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("could not compile schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// Validate normalizes the input to its JSON form and checks it against
// the schema. On success it returns the normalized value; on failure a
// *resource.ValidationError listing the offending fields.
func (s *Schema) Validate(input any) (any, error) {
	normalized, err := normalize(input)
	if err != nil {
		return nil, err
	}
	if s == nil || s.compiled == nil {
		return normalized, nil
	}

	if err := s.compiled.Validate(normalized); err != nil {
		var vErr *jsonschema.ValidationError
		if ok := asValidationError(err, &vErr); ok {
			return nil, &resource.ValidationError{Fields: collectFields(vErr)}
		}
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return normalized, nil
}

// normalize round-trips an arbitrary Go value through JSON so validation
// and fingerprinting both see the same canonical-ready representation.
func normalize(input any) (any, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("input is not JSON-encodable: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("could not normalize input: %w", err)
	}
	return doc, nil
}

func asValidationError(err error, target **jsonschema.ValidationError) bool {
	v, ok := err.(*jsonschema.ValidationError)
	if ok {
		*target = v
	}
	return ok
}

// collectFields flattens the cause tree into per-field messages.
func collectFields(err *jsonschema.ValidationError) []resource.FieldError {
	if len(err.Causes) == 0 {
		return []resource.FieldError{{
			Field:   "/" + strings.Join(err.InstanceLocation, "/"),
			Message: err.ErrorKind.LocalizedString(printer),
		}}
	}
	var fields []resource.FieldError
	for _, cause := range err.Causes {
		fields = append(fields, collectFields(cause)...)
	}
	return fields
}

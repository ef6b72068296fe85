package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MaxBodyBytes caps request bodies. Signature SVGs are the largest field.
const MaxBodyBytes = 1 << 20

// ErrInvalidBody is returned by DecodeJSON for unreadable or schema-violating bodies.
var ErrInvalidBody = errors.New("invalid request body")

// BodySchema validates request bodies before they are decoded into typed structs.
type BodySchema struct {
	schema *jsonschema.Schema
}

// CompileBodySchema compiles a Draft 2020-12 JSON Schema document.
func CompileBodySchema(name, document string) (*BodySchema, error) {
	schemaURL := "mem://riskmate/" + name + ".json"

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(document)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &BodySchema{schema: compiled}, nil
}

// MustCompileBodySchema is CompileBodySchema for package-level schemas.
func MustCompileBodySchema(name, document string) *BodySchema {
	s, err := CompileBodySchema(name, document)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a decoded JSON value.
func (s *BodySchema) Validate(v any) error {
	if err := s.schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidBody, schemaMessage(err))
	}
	return nil
}

// DecodeJSON reads the request body, validates it against schema when non-nil and
// decodes it into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, schema *BodySchema, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}

	if schema != nil {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		if err := schema.Validate(raw); err != nil {
			return err
		}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return nil
}

// schemaMessage flattens a validation error to its most specific causes.
func schemaMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(msgs, "; ")
}

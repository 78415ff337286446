package llm

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed certificate.schema.json
var certificateSchema []byte

var (
	// ErrNotObject is returned when an artifact is valid JSON but not an object.
	ErrNotObject = errors.New("artifact must be a JSON object")

	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("certificate.schema.json", bytes.NewReader(certificateSchema)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("certificate.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// ValidateArtifact checks that data is a single well-formed JSON object.
// The contents are otherwise opaque; see CheckSchema for the field shapes.
func ValidateArtifact(data []byte) error {
	_, err := decodeObject(data)
	return err
}

// CheckSchema reports where data departs from the certificate schema.
// Unknown top-level sections are allowed.
func CheckSchema(data []byte) error {
	v, err := decodeObject(data)
	if err != nil {
		return err
	}
	s, err := schema()
	if err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

func decodeObject(data []byte) (map[string]any, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON: trailing data after object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// NormalizeOutput strips a markdown code fence around model output and
// checks the remainder is a JSON object. The returned bytes are the model's
// JSON as written, without reformatting.
func NormalizeOutput(raw string) ([]byte, error) {
	out := stripCodeFence(strings.TrimSpace(raw))
	if out == "" {
		return nil, errors.New("empty model output")
	}
	if err := ValidateArtifact([]byte(out)); err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop an info string such as "json"
		if !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Package structured turns schema-constrained model output into Go values.
//
// Models do not always honor a response format exactly: output may arrive
// wrapped in a markdown fence or preceded by prose. Decode extracts the JSON
// object, validates it against the request schema and decodes it into a
// struct with mapstructure.
package structured

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/companion/pkg/ports"
	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
)

// ErrNoJSON is returned when the output contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in model output")

// ExtractJSON returns the outermost JSON object contained in raw.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return s[start : end+1], nil
}

// Validate checks data against schema.
func Validate(data []byte, schema *ports.Schema) error {
	if !json.Valid(data) {
		return fmt.Errorf("data is not valid JSON")
	}

	schemaDoc, err := json.Marshal(schema.JSONSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaDoc),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Decode extracts, validates and decodes raw into out. Struct fields are
// matched by their json tag.
func Decode(raw string, schema *ports.Schema, out any) error {
	doc, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := Validate([]byte(doc), schema); err != nil {
		return err
	}

	var generic map[string]any
	if err := json.Unmarshal([]byte(doc), &generic); err != nil {
		return fmt.Errorf("unmarshal output: %w", err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(generic); err != nil {
		return fmt.Errorf("decode output: %w", err)
	}
	return nil
}

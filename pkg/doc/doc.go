// Package doc decodes and encodes the JSON and YAML documents exchanged
// with the engine (hierarchy definitions, measurements and results).
package doc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a document serialization format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	errEmptyDocument   = errors.New("empty document")
	errTrailingContent = errors.New("unexpected content after document")
)

// ParseFormat converts a user supplied format name, defaulting to JSON.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Detect reports the format of b. Documents starting with '{' or '[' are
// JSON, everything else is treated as YAML.
func Detect(b []byte) Format {
	t := bytes.TrimSpace(b)
	if len(t) > 0 && (t[0] == '{' || t[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// Decode unmarshals b into v. Unknown fields are rejected in both formats.
func Decode(b []byte, v any) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return errEmptyDocument
	}

	if Detect(b) == FormatJSON {
		d := json.NewDecoder(bytes.NewReader(b))
		d.DisallowUnknownFields()
		if err := d.Decode(v); err != nil {
			return fmt.Errorf("decoding json: %w", err)
		}
		if _, err := d.Token(); !errors.Is(err, io.EOF) {
			return fmt.Errorf("decoding json: %w", errTrailingContent)
		}
		return nil
	}

	d := yaml.NewDecoder(bytes.NewReader(b))
	d.KnownFields(true)
	if err := d.Decode(v); err != nil {
		return fmt.Errorf("decoding yaml: %w", err)
	}
	var extra yaml.Node
	if err := d.Decode(&extra); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding yaml: %w", errTrailingContent)
	}
	return nil
}

// Encode writes v to w in the given format.
func Encode(w io.Writer, v any, f Format) error {
	if f == FormatYAML {
		e := yaml.NewEncoder(w)
		e.SetIndent(2)
		if err := e.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return e.Close()
	}

	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	if err := e.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// Marshal returns v encoded in the given format.
func Marshal(v any, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

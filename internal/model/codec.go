package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects a scenario file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the encoding from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Decode parses and validates a scenario file.
func Decode(b []byte, format Format) (*Scenario, error) {
	var f File
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatJSON, "":
		dec := json.NewDecoder(bytes.NewReader(b))
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown scenario format %q", format)
	}
	return f.Scenario()
}

// ReadFile loads a scenario from disk, choosing the decoder by extension.
func ReadFile(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b, FormatFromPath(path))
}

// Encode writes s in the scenario file layout. JSON uses four-space indent.
func Encode(w io.Writer, s *Scenario, format Format) error {
	f := s.ToFile()
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON, "":
		b, err := json.MarshalIndent(f, "", "    ")
		if err != nil {
			return err
		}
		b = append(b, '\n')
		_, err = w.Write(b)
		return err
	}
	return fmt.Errorf("unknown scenario format %q", format)
}

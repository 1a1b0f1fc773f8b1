package grammar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format is an on-disk grammar encoding
type Format int

const (
	// FormatYAML is a YAML document
	FormatYAML Format = iota
	// FormatJSONC is JSON extended with comments and trailing commas
	FormatJSONC
)

// ErrUnknownFormat is returned for grammar files with an unrecognized extension
var ErrUnknownFormat = errors.New("unknown grammar file format")

// FormatFromPath picks the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json", ".jsonc":
		return FormatJSONC, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// ParseDefinition decodes a definition without validating it. Unknown fields
// are rejected so that typos in grammar files surface early.
func ParseDefinition(data []byte, format Format) (Definition, error) {
	var def Definition
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return Definition{}, fmt.Errorf("parsing grammar yaml: %w", err)
		}
	case FormatJSONC:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return Definition{}, fmt.Errorf("parsing grammar json: %w", err)
		}
	default:
		return Definition{}, ErrUnknownFormat
	}
	return def, nil
}

// Parse decodes and builds a model.
func Parse(data []byte, format Format) (*Model, error) {
	def, err := ParseDefinition(data, format)
	if err != nil {
		return nil, err
	}
	return Build(def)
}

// LoadDefinition reads a grammar file from disk without building it. The
// format is chosen by extension: .yaml/.yml or .json/.jsonc.
func LoadDefinition(path string) (Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Definition{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("reading %s: %w", path, err)
	}

	def, err := ParseDefinition(data, format)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// LoadFile reads and builds a grammar file.
func LoadFile(path string) (*Model, error) {
	def, err := LoadDefinition(path)
	if err != nil {
		return nil, err
	}

	m, err := Build(def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Package registryfile reads and writes printer model registry data files.
// TOML, YAML and JSON are supported; all three use a top-level "printers" list.
package registryfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

//go:embed printers.toml
var seedData []byte

// Format is a registry data file encoding.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// document is the on-disk layout.
type document struct {
	Printers []domain.PrinterModel `json:"printers" toml:"printers" yaml:"printers"`
}

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unsupported registry file %q (want .toml, .yaml or .json)",
			domain.ErrInvalidInput, path)
	}
}

// ParseFormat converts a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTOML, FormatYAML, FormatJSON:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", domain.ErrInvalidInput, s)
	}
}

// Decode reads models and canonicalises them. Entries without an ID are rejected.
func Decode(r io.Reader, format Format) ([]domain.PrinterModel, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading registry data: %w", err)
	}

	var doc document
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", domain.ErrInvalidInput, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s registry: %w", domain.ErrInvalidInput, format, err)
	}

	seen := make(map[string]bool, len(doc.Printers))
	for i := range doc.Printers {
		m := &doc.Printers[i]
		if m.ID == "" {
			return nil, fmt.Errorf("%w: printer %d has no id", domain.ErrInvalidInput, i+1)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("%w: duplicate printer %s", domain.ErrInvalidInput, m.ID)
		}
		seen[m.ID] = true
		m.Canonicalise()
	}
	return doc.Printers, nil
}

// Encode writes models in the given format.
func Encode(w io.Writer, format Format, models []domain.PrinterModel) error {
	doc := document{Printers: models}
	if doc.Printers == nil {
		doc.Printers = []domain.PrinterModel{}
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatTOML:
		data, err = toml.Marshal(doc)
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(doc); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	case FormatJSON:
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("%w: unknown format %q", domain.ErrInvalidInput, format)
	}
	if err != nil {
		return fmt.Errorf("encoding %s registry: %w", format, err)
	}

	_, err = w.Write(data)
	return err
}

// ReadFile decodes a registry file, choosing the format from its extension.
func ReadFile(path string) ([]domain.PrinterModel, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, format)
}

// WriteFile encodes models into path, choosing the format from its extension.
func WriteFile(path string, models []domain.PrinterModel) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, format, models); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}

// Seed returns the built-in printer models.
func Seed() []domain.PrinterModel {
	models, err := Decode(bytes.NewReader(seedData), FormatTOML)
	if err != nil {
		panic(fmt.Sprintf("registryfile: embedded printers.toml is invalid: %v", err))
	}
	return models
}

package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a catalog file encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat is returned for file extensions no decoder handles.
var ErrUnknownFormat = errors.New("unknown catalog format")

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Load reads, decodes and validates a catalog file.
func Load(path string) (Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Catalog{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer file.Close()

	cat, err := Decode(file, format)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	if err := cat.Validate(); err != nil {
		return Catalog{}, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return cat, nil
}

// Save encodes a catalog into path, choosing the format from its extension.
func Save(cat Catalog, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, cat, format); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}

// Decode reads a catalog in the given format. Unknown fields are rejected.
func Decode(r io.Reader, format Format) (Catalog, error) {
	var cat Catalog
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cat); err != nil {
			return Catalog{}, err
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&cat); err != nil {
			if errors.Is(err, io.EOF) {
				return Catalog{}, errors.New("empty catalog")
			}
			return Catalog{}, err
		}
	case FormatTOML:
		if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&cat); err != nil {
			return Catalog{}, err
		}
	default:
		return Catalog{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return cat, nil
}

// Encode writes a catalog in the given format.
func Encode(w io.Writer, cat Catalog, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cat)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cat); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(cat)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

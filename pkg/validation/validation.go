// Package validation checks body descriptors, material references and asset paths
// before they reach the scene composer.
package validation

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Limits for catalog content.
const (
	MaxBodyNameLen  = 32
	MaxMoonsPerBody = 64
)

var (
	validHexColor   = regexp.MustCompile(`^#?(?:[0-9a-fA-F]{6}|[0-9a-fA-F]{3})$`)
	validMaterialID = regexp.MustCompile(`^[a-z][a-z0-9_\-]*$`)
)

// TextureExtensions lists the image formats the asset loader can decode.
var TextureExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// ValidationError reports one bad field. Field is a dotted path such as
// "planets[2].moons[0].radius".
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func fieldError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidateBodyName validates and trims a body name. Any printable Unicode is
// accepted; the length limit counts runes.
func ValidateBodyName(field, name string) (string, error) {
	if name == "" {
		return "", fieldError(field, "name cannot be empty")
	}
	if !utf8.ValidString(name) {
		return "", fieldError(field, "name contains invalid UTF-8 characters")
	}
	if n := utf8.RuneCountInString(name); n > MaxBodyNameLen {
		return "", fieldError(field, "name too long: %d characters (max %d)", n, MaxBodyNameLen)
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fieldError(field, "name cannot be only whitespace")
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", fieldError(field, "name contains control characters")
		}
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return "", fieldError(field, "name contains invalid characters")
		}
	}

	return trimmed, nil
}

// ValidateFinite rejects NaN and infinities.
func ValidateFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fieldError(field, "must be a finite number, got %v", v)
	}
	return nil
}

// ValidatePositive requires a finite value greater than zero.
func ValidatePositive(field string, v float64) error {
	if err := ValidateFinite(field, v); err != nil {
		return err
	}
	if v <= 0 {
		return fieldError(field, "must be positive, got %v", v)
	}
	return nil
}

// ValidateNonNegative requires a finite value of zero or more.
func ValidateNonNegative(field string, v float64) error {
	if err := ValidateFinite(field, v); err != nil {
		return err
	}
	if v < 0 {
		return fieldError(field, "cannot be negative, got %v", v)
	}
	return nil
}

// ValidateMaterialID checks the syntax of a material identifier.
func ValidateMaterialID(field, id string) error {
	if !validMaterialID.MatchString(id) {
		return fieldError(field, "invalid material id %q", id)
	}
	return nil
}

// ValidateHexColor accepts "", "#rgb", "#rrggbb" and the same without '#'.
func ValidateHexColor(field, s string) error {
	if s == "" {
		return nil
	}
	if !validHexColor.MatchString(s) {
		return fieldError(field, "invalid hex color %q", s)
	}
	return nil
}

// ValidateAssetPath checks that a texture path stays inside the asset root and
// names a decodable image.
func ValidateAssetPath(field, path string) error {
	if path == "" {
		return fieldError(field, "path cannot be empty")
	}
	if filepath.IsAbs(path) {
		return fieldError(field, "path must be relative to the asset root: %q", path)
	}
	clean := filepath.ToSlash(filepath.Clean(path))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fieldError(field, "path escapes the asset root: %q", path)
	}

	ext := strings.ToLower(filepath.Ext(clean))
	for _, allowed := range TextureExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fieldError(field, "unsupported texture format %q", ext)
}

// ValidateMoonCount bounds the number of moons under one body.
func ValidateMoonCount(field string, n int) error {
	if n > MaxMoonsPerBody {
		return fieldError(field, "too many moons: %d (max %d)", n, MaxMoonsPerBody)
	}
	return nil
}

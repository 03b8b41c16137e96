package scene

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/opd-ai/go-orrery/pkg/assets"
)

// MaterialKind selects how a surface responds to light.
type MaterialKind string

const (
	// Basic surfaces ignore lights and show their texture or color as is.
	Basic MaterialKind = "basic"
	// Standard surfaces are shaded by the scene lights.
	Standard MaterialKind = "standard"
)

// Material describes how a node's surface is drawn. Texture may be nil or still
// loading, in which case Color is used.
type Material struct {
	Name    string
	Kind    MaterialKind
	Texture *assets.Texture
	Color   color.NRGBA
	// SRGB marks the texture as sRGB encoded; renderers linearize it before lighting.
	SRGB bool
}

// NewMaterial creates a material with a white base color.
func NewMaterial(name string, kind MaterialKind, texture *assets.Texture) *Material {
	return &Material{
		Name:    name,
		Kind:    kind,
		Texture: texture,
		Color:   color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// DefaultMaterial is used for bodies whose material id is unknown.
func DefaultMaterial() *Material {
	m := NewMaterial("default", Standard, nil)
	m.Color = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	return m
}

// Lit reports whether lights affect the material.
func (m *Material) Lit() bool {
	return m != nil && m.Kind != Basic
}

// ColorAt returns the surface color at texture coordinates (u, v), falling back
// to the base color while the texture is missing, pending or failed.
func (m *Material) ColorAt(u, v float64) color.NRGBA {
	if m == nil {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	if m.Texture != nil {
		if c, ok := m.Texture.Sample(u, v); ok {
			return c
		}
	}
	return m.Color
}

// ParseColor parses "#rgb", "#rrggbb" or the same without '#'. An empty string is opaque white.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 0:
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}, nil
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

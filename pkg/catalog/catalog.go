// Package catalog holds the body table: the star and the planets that orbit it,
// each with its moons. The table is fixed configuration; nothing mutates it after load.
package catalog

import (
	"errors"
	"fmt"

	"github.com/opd-ai/go-orrery/pkg/physics"
	"github.com/opd-ai/go-orrery/pkg/validation"
)

// MoonMaterial is the material every moon is drawn with, whatever its descriptor says.
const MoonMaterial = "moon"

// BodyDescriptor describes one body and the bodies orbiting it.
type BodyDescriptor struct {
	Name     string           `json:"name" yaml:"name" toml:"name"`
	Radius   float64          `json:"radius" yaml:"radius" toml:"radius"`
	Distance float64          `json:"distance" yaml:"distance" toml:"distance"`
	Speed    float64          `json:"speed" yaml:"speed" toml:"speed"`
	Material string           `json:"material,omitempty" yaml:"material,omitempty" toml:"material,omitempty"`
	Color    string           `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
	Moons    []BodyDescriptor `json:"moons,omitempty" yaml:"moons,omitempty" toml:"moons,omitempty"`
}

// Orbit returns the circular orbit the descriptor defines.
func (d BodyDescriptor) Orbit() physics.Orbit {
	return physics.Orbit{Distance: d.Distance, Speed: d.Speed}
}

// Clone returns a deep copy.
func (d BodyDescriptor) Clone() BodyDescriptor {
	c := d
	if d.Moons != nil {
		c.Moons = make([]BodyDescriptor, len(d.Moons))
		for i, m := range d.Moons {
			c.Moons[i] = m.Clone()
		}
	}
	return c
}

// Catalog is the full body table.
type Catalog struct {
	Star    BodyDescriptor   `json:"star" yaml:"star" toml:"star"`
	Planets []BodyDescriptor `json:"planets" yaml:"planets" toml:"planets"`
}

// Clone returns a deep copy.
func (c Catalog) Clone() Catalog {
	out := Catalog{Star: c.Star.Clone()}
	if c.Planets != nil {
		out.Planets = make([]BodyDescriptor, len(c.Planets))
		for i, p := range c.Planets {
			out.Planets[i] = p.Clone()
		}
	}
	return out
}

// BodyCount returns the number of bodies, star and moons included.
func (c Catalog) BodyCount() int {
	n := 1
	for _, p := range c.Planets {
		n += 1 + len(p.Moons)
	}
	return n
}

// Materials returns the distinct material ids the catalog refers to, in first-use order.
// The shared moon material is included when any planet has moons.
func (c Catalog) Materials() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	add(c.Star.Material)
	for _, p := range c.Planets {
		add(p.Material)
		if len(p.Moons) > 0 {
			add(MoonMaterial)
		}
	}
	return ids
}

// Validate checks every descriptor. All problems are reported, joined.
func (c Catalog) Validate() error {
	var errs []error

	errs = append(errs, validateBody("star", c.Star, true)...)
	if len(c.Star.Moons) > 0 {
		errs = append(errs, &validation.ValidationError{Field: "star.moons", Reason: "the star cannot have moons"})
	}

	for i, p := range c.Planets {
		field := fmt.Sprintf("planets[%d]", i)
		errs = append(errs, validateBody(field, p, true)...)
		if err := validation.ValidateMoonCount(field+".moons", len(p.Moons)); err != nil {
			errs = append(errs, err)
		}
		for j, m := range p.Moons {
			moonField := fmt.Sprintf("%s.moons[%d]", field, j)
			errs = append(errs, validateBody(moonField, m, false)...)
			if len(m.Moons) > 0 {
				errs = append(errs, &validation.ValidationError{Field: moonField + ".moons", Reason: "moons cannot have moons"})
			}
		}
	}

	return errors.Join(errs...)
}

func validateBody(field string, d BodyDescriptor, materialRequired bool) []error {
	var errs []error
	if _, err := validation.ValidateBodyName(field+".name", d.Name); err != nil {
		errs = append(errs, err)
	}
	if err := validation.ValidatePositive(field+".radius", d.Radius); err != nil {
		errs = append(errs, err)
	}
	if err := validation.ValidateNonNegative(field+".distance", d.Distance); err != nil {
		errs = append(errs, err)
	}
	if err := validation.ValidateFinite(field+".speed", d.Speed); err != nil {
		errs = append(errs, err)
	}
	if d.Material != "" || materialRequired {
		if err := validation.ValidateMaterialID(field+".material", d.Material); err != nil {
			errs = append(errs, err)
		}
	}
	if err := validation.ValidateHexColor(field+".color", d.Color); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// Default returns the built-in solar system: the sun, five planets, three moons.
// Jupiter reuses Mercury's material.
func Default() Catalog {
	return Catalog{
		Star: BodyDescriptor{
			Name:     "Sun",
			Radius:   5,
			Material: "sun",
		},
		Planets: []BodyDescriptor{
			{
				Name:     "Mercury",
				Radius:   0.5,
				Distance: 10,
				Speed:    0.01,
				Material: "mercury",
			},
			{
				Name:     "Venus",
				Radius:   0.8,
				Distance: 15,
				Speed:    0.007,
				Material: "venus",
			},
			{
				Name:     "Earth",
				Radius:   1,
				Distance: 20,
				Speed:    0.005,
				Material: "earth",
				Moons: []BodyDescriptor{
					{Name: "Moon", Radius: 0.3, Distance: 3, Speed: 0.015},
				},
			},
			{
				Name:     "Mars",
				Radius:   0.7,
				Distance: 25,
				Speed:    0.003,
				Material: "mars",
				Moons: []BodyDescriptor{
					{Name: "Phobos", Radius: 0.1, Distance: 2, Speed: 0.02},
					{Name: "Deimos", Radius: 0.2, Distance: 3, Speed: 0.015, Color: "#ffffff"},
				},
			},
			{
				Name:     "Jupiter",
				Radius:   2,
				Distance: 30,
				Speed:    0.001,
				Material: "mercury",
			},
		},
	}
}

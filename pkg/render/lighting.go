package render

import (
	"image/color"
	"math"

	"github.com/opd-ai/go-orrery/pkg/physics"
	"github.com/opd-ai/go-orrery/pkg/scene"
)

// Shade returns the color of a surface point with unit normal n. Basic
// materials return base unchanged. Standard materials get Lambert diffuse from
// every light: ambient lights add color × intensity, point lights add
// color × intensity / distance^decay × max(0, n·l) / π.
func Shade(m *scene.Material, base color.NRGBA, point, n physics.Vector3D, lights []scene.Light) color.NRGBA {
	if !m.Lit() {
		return base
	}

	albedo := [3]float64{channel(base.R), channel(base.G), channel(base.B)}
	if m.SRGB {
		for i := range albedo {
			albedo[i] = srgbToLinear(albedo[i])
		}
	}

	var irradiance [3]float64
	for _, l := range lights {
		lc := [3]float64{srgbToLinear(channel(l.Color.R)), srgbToLinear(channel(l.Color.G)), srgbToLinear(channel(l.Color.B))}
		var k float64
		switch l.Kind {
		case scene.AmbientLight:
			k = l.Intensity
		case scene.PointLight:
			toLight := l.Position.Sub(point)
			dist := toLight.Length()
			if dist == 0 {
				continue
			}
			ndotl := n.Dot(toLight.Scale(1 / dist))
			if ndotl <= 0 {
				continue
			}
			k = l.Intensity * ndotl / math.Pi
			if l.Decay > 0 {
				k /= math.Pow(dist, l.Decay)
			}
		}
		for i := range irradiance {
			irradiance[i] += lc[i] * k
		}
	}

	out := color.NRGBA{A: base.A}
	out.R = toByte(linearToSRGB(albedo[0] * irradiance[0]))
	out.G = toByte(linearToSRGB(albedo[1] * irradiance[1]))
	out.B = toByte(linearToSRGB(albedo[2] * irradiance[2]))
	return out
}

// Luminance returns the relative luminance of c in [0, 1].
func Luminance(c color.NRGBA) float64 {
	return 0.2126*channel(c.R) + 0.7152*channel(c.G) + 0.0722*channel(c.B)
}

func channel(v uint8) float64 {
	return float64(v) / 255
}

func toByte(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func srgbToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func linearToSRGB(c float64) float64 {
	c = math.Max(0, math.Min(1, c))
	if c <= 0.0031308 {
		return c * 12.92
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}

package render

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-orrery/pkg/camera"
	"github.com/opd-ai/go-orrery/pkg/physics"
	"github.com/opd-ai/go-orrery/pkg/scene"
)

// CellAspect is the height of a character cell in units of its width.
const CellAspect = 2

// Ramp maps brightness to glyphs, darkest first.
const Ramp = " .:-=+*#%@"

// Cell is one character position of a Canvas.
type Cell struct {
	Glyph rune
	Color color.NRGBA
	// Depth is the distance from the camera to the surface drawn in the cell,
	// +Inf for background.
	Depth float64
	// Node is the node drawn in the cell, nil for background.
	Node *scene.Node
}

// Canvas is a grid of character cells, row major.
type Canvas struct {
	Width  int
	Height int
	Cells  []Cell
}

// NewCanvas returns a cleared width × height canvas.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{}
	c.Resize(width, height)
	return c
}

// Resize reallocates the canvas if the size changed and clears it.
func (c *Canvas) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	if width*height != len(c.Cells) {
		c.Cells = make([]Cell, width*height)
	}
	c.Width, c.Height = width, height
	c.Clear()
}

// Clear resets every cell to empty background.
func (c *Canvas) Clear() {
	for i := range c.Cells {
		c.Cells[i] = Cell{Glyph: ' ', Depth: math.Inf(1)}
	}
}

// At returns the cell at column x, row y.
func (c *Canvas) At(x, y int) Cell {
	return c.Cells[y*c.Width+x]
}

// Viewport returns the canvas size in square pixels, the units the camera
// projects into.
func (c *Canvas) Viewport() (width, height int) {
	return c.Width, c.Height * CellAspect
}

// Rasterize clears canvas and draws sc as seen by cam. Each cell casts one ray
// through its center: the nearest sphere hit is shaded with the scene lights,
// and cells that hit nothing sample the background cube map.
func Rasterize(sc *scene.Scene, cam *camera.PerspectiveCamera, canvas *Canvas) {
	canvas.Clear()
	if sc == nil || cam == nil || canvas.Width == 0 || canvas.Height == 0 {
		return
	}
	vw, vh := canvas.Viewport()

	targets := visibleSpheres(sc, cam, vw, vh)
	for row := 0; row < canvas.Height; row++ {
		py := (float64(row) + 0.5) * CellAspect
		for col := 0; col < canvas.Width; col++ {
			px := float64(col) + 0.5
			cell := &canvas.Cells[row*canvas.Width+col]
			ray := cam.Ray(px, py, vw, vh)

			for i := range targets {
				t := &targets[i]
				if !t.covers(px, py) {
					continue
				}
				dist, ok := intersectSphere(cam.Position, ray, t.Center, t.Radius)
				if !ok || dist < cam.Near || dist > cam.Far || dist >= cell.Depth {
					continue
				}
				point := cam.Position.Add(ray.Scale(dist))
				cell.Depth = dist
				cell.Node = t.Node
				cell.Color = t.shade(point, sc.Lights)
			}

			if cell.Node != nil {
				cell.Glyph = glyphFor(cell.Color)
				continue
			}
			if sc.Background != nil {
				if bg, ok := sc.Background.Sample(ray); ok {
					cell.Color = bg
					cell.Glyph = backgroundGlyph(bg)
				}
			}
		}
	}
}

type sphereTarget struct {
	scene.Drawable
	screen   physics.Vector2D
	onScreen float64
	inverse  mgl64.Mat4
}

// covers is a cheap bounding test against the projected disc, with one cell of
// slack for the rounding of cell centers.
func (t *sphereTarget) covers(px, py float64) bool {
	dx, dy := px-t.screen.X, py-t.screen.Y
	r := t.onScreen + CellAspect
	return dx*dx+dy*dy <= r*r
}

func (t *sphereTarget) shade(point physics.Vector3D, lights []scene.Light) color.NRGBA {
	normal := point.Sub(t.Center).Normalize()
	u, v := t.uv(point)
	return Shade(t.Material, t.Material.ColorAt(u, v), point, normal, lights)
}

// uv maps a world point on the sphere to equirectangular texture coordinates in
// the node's local frame, so textures turn with the body.
func (t *sphereTarget) uv(point physics.Vector3D) (u, v float64) {
	m := t.inverse
	x := m[0]*point.X + m[4]*point.Y + m[8]*point.Z + m[12]
	y := m[1]*point.X + m[5]*point.Y + m[9]*point.Z + m[13]
	z := m[2]*point.X + m[6]*point.Y + m[10]*point.Z + m[14]
	local := physics.Vec3(x, y, z).Normalize()

	phi := math.Atan2(local.Z, -local.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	theta := math.Acos(math.Max(-1, math.Min(1, local.Y)))
	return phi / (2 * math.Pi), theta / math.Pi
}

func visibleSpheres(sc *scene.Scene, cam *camera.PerspectiveCamera, vw, vh int) []sphereTarget {
	var out []sphereTarget
	for _, d := range sc.Drawables() {
		if d.Radius <= 0 {
			continue
		}
		screen, depth, ok := cam.Project(d.Center, vw, vh)
		if !ok {
			continue
		}
		out = append(out, sphereTarget{
			Drawable: d,
			screen:   screen,
			onScreen: cam.ProjectedRadius(d.Radius, depth, vh),
			inverse:  d.Node.WorldMatrix().Inv(),
		})
	}
	return out
}

// intersectSphere returns the distance along the unit ray dir from origin to the
// first hit on the sphere, if any.
func intersectSphere(origin, dir, center physics.Vector3D, radius float64) (float64, bool) {
	oc := origin.Sub(center)
	b := oc.Dot(dir)
	c := oc.LengthSquared() - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	if t := -b - sq; t > 0 {
		return t, true
	}
	if t := -b + sq; t > 0 {
		return t, true
	}
	return 0, false
}

func glyphFor(c color.NRGBA) rune {
	l := Luminance(c)
	i := 1 + int(l*float64(len(Ramp)-2)+0.5)
	return rune(Ramp[min(i, len(Ramp)-1)])
}

// backgroundGlyph keeps the backdrop to the dim end of the ramp so bodies stand out.
func backgroundGlyph(c color.NRGBA) rune {
	if Luminance(c) < 0.5 {
		return ' '
	}
	return '.'
}

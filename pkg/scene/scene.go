package scene

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-orrery/pkg/assets"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

// LightKind distinguishes light types.
type LightKind int

const (
	AmbientLight LightKind = iota
	PointLight
)

// Light illuminates standard materials. Position and Decay apply to point lights only.
type Light struct {
	Kind      LightKind
	Color     color.NRGBA
	Intensity float64
	Position  physics.Vector3D
	Decay     float64
}

// Scene is the root of the graph plus its lights and background.
type Scene struct {
	Root       *Node
	Background *assets.Cubemap
	Lights     []Light
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{Root: NewNode("root", nil, nil)}
}

// Add attaches n directly under the root.
func (s *Scene) Add(n *Node) {
	s.Root.Add(n)
}

// AddLight appends a light.
func (s *Scene) AddLight(l Light) {
	s.Lights = append(s.Lights, l)
}

// VisitFunc receives each node with its world matrix. Returning false skips the
// node's children.
type VisitFunc func(n *Node, world mgl64.Mat4) bool

// Traverse walks the graph depth first, parents before children, in insertion order.
func (s *Scene) Traverse(fn VisitFunc) {
	traverse(s.Root, mgl64.Ident4(), fn)
}

func traverse(n *Node, parent mgl64.Mat4, fn VisitFunc) {
	world := parent.Mul4(n.LocalMatrix())
	if !fn(n, world) {
		return
	}
	for _, c := range n.children {
		traverse(c, world, fn)
	}
}

// Drawable is a shaped node resolved to world space.
type Drawable struct {
	Node     *Node
	Center   physics.Vector3D
	Radius   float64
	Material *Material
}

// Drawables returns every node with a shape, in traversal order.
func (s *Scene) Drawables() []Drawable {
	var out []Drawable
	s.Traverse(func(n *Node, world mgl64.Mat4) bool {
		if n.Shape != nil {
			out = append(out, Drawable{
				Node:     n,
				Center:   physics.FromMgl(world.Col(3).Vec3()),
				Radius:   boundingRadius(n, world),
				Material: n.Material,
			})
		}
		return true
	})
	return out
}

// Find returns the first node named name, or nil.
func (s *Scene) Find(name string) *Node {
	var found *Node
	s.Traverse(func(n *Node, _ mgl64.Mat4) bool {
		if found == nil && n.Name == name {
			found = n
		}
		return found == nil
	})
	return found
}

// NodeCount returns the number of nodes below the root.
func (s *Scene) NodeCount() int {
	count := -1
	s.Traverse(func(*Node, mgl64.Mat4) bool {
		count++
		return true
	})
	return count
}

// Package scene is a small retained scene graph: nodes with a local transform,
// an optional sphere shape and material, and ordered children. World transforms
// compose as parent × translate × rotate(XYZ) × scale.
package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-orrery/pkg/physics"
)

// Sphere is a sphere geometry. Bodies share one unit sphere and carry their
// size in the node scale.
type Sphere struct {
	Radius         float64
	WidthSegments  int
	HeightSegments int
}

// NewSphere creates a sphere geometry. Segment counts below 3 and 2 are raised to them.
func NewSphere(radius float64, widthSegments, heightSegments int) *Sphere {
	return &Sphere{
		Radius:         radius,
		WidthSegments:  max(3, widthSegments),
		HeightSegments: max(2, heightSegments),
	}
}

// Transform is a local position, Euler XYZ rotation in radians and per-axis scale.
type Transform struct {
	Position physics.Vector3D
	Rotation physics.Vector3D
	Scale    physics.Vector3D
}

// Matrix returns T × Rx × Ry × Rz × S.
func (t Transform) Matrix() mgl64.Mat4 {
	m := mgl64.Translate3D(t.Position.X, t.Position.Y, t.Position.Z)
	m = m.Mul4(mgl64.HomogRotate3DX(t.Rotation.X))
	m = m.Mul4(mgl64.HomogRotate3DY(t.Rotation.Y))
	m = m.Mul4(mgl64.HomogRotate3DZ(t.Rotation.Z))
	return m.Mul4(mgl64.Scale3D(t.Scale.X, t.Scale.Y, t.Scale.Z))
}

// Node is one object in the scene graph.
type Node struct {
	Name      string
	Shape     *Sphere
	Material  *Material
	Transform Transform

	parent   *Node
	children []*Node
}

// NewNode creates a node at the origin with unit scale.
func NewNode(name string, shape *Sphere, material *Material) *Node {
	return &Node{
		Name:      name,
		Shape:     shape,
		Material:  material,
		Transform: Transform{Scale: physics.Vec3(1, 1, 1)},
	}
}

// Add attaches child under n, detaching it from any previous parent.
// Adding a node to itself or to one of its descendants is ignored.
func (n *Node) Add(child *Node) {
	if child == nil || child == n || child.isAncestorOf(n) {
		return
	}
	if child.parent != nil {
		child.parent.remove(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

func (n *Node) remove(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

func (n *Node) isAncestorOf(other *Node) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Parent returns the node n is attached to, or nil.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns a copy of n's children in insertion order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int {
	return len(n.children)
}

// SetPosition sets the local position.
func (n *Node) SetPosition(p physics.Vector3D) {
	n.Transform.Position = p
}

// SetUniformScale sets the same scale on all three axes.
func (n *Node) SetUniformScale(s float64) {
	n.Transform.Scale = physics.Vec3(s, s, s)
}

// LocalMatrix returns the node's transform relative to its parent.
func (n *Node) LocalMatrix() mgl64.Mat4 {
	return n.Transform.Matrix()
}

// WorldMatrix returns the node's transform relative to the scene root.
func (n *Node) WorldMatrix() mgl64.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// WorldPosition returns the node's origin in world space.
func (n *Node) WorldPosition() physics.Vector3D {
	return physics.FromMgl(n.WorldMatrix().Col(3).Vec3())
}

// WorldScale returns the length of each world-space basis axis.
func (n *Node) WorldScale() physics.Vector3D {
	return matrixScale(n.WorldMatrix())
}

func matrixScale(m mgl64.Mat4) physics.Vector3D {
	return physics.Vec3(m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len())
}

// BoundingRadius returns the world-space radius of the node's sphere, or 0 for
// nodes without a shape.
func (n *Node) BoundingRadius() float64 {
	return boundingRadius(n, n.WorldMatrix())
}

func boundingRadius(n *Node, world mgl64.Mat4) float64 {
	if n.Shape == nil {
		return 0
	}
	s := matrixScale(world)
	return n.Shape.Radius * math.Max(s.X, math.Max(s.Y, s.Z))
}

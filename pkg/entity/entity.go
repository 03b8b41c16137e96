// Package entity pairs each catalog descriptor with the scene node that shows it
// and owns the per-frame orbital motion of that node.
package entity

import (
	"sync/atomic"

	"github.com/opd-ai/go-orrery/pkg/catalog"
	"github.com/opd-ai/go-orrery/pkg/physics"
	"github.com/opd-ai/go-orrery/pkg/scene"
)

// ID is a unique identifier for an entity
type ID uint64

// Entity is the base interface for everything the frame loop advances
type Entity interface {
	GetID() ID
	GetPosition() physics.Vector3D
	Update()
}

// IDGenerator hands out increasing IDs starting at 1. The zero value is ready to use.
type IDGenerator struct {
	last atomic.Uint64
}

// Next returns a fresh ID.
func (g *IDGenerator) Next() ID {
	return ID(g.last.Add(1))
}

// Body is one orbiting (or fixed) body: its descriptor, its node, and the
// bodies orbiting it.
type Body struct {
	ID         ID
	Descriptor catalog.BodyDescriptor
	Node       *scene.Node
	Moons      []*Body
	// Static bodies are never advanced.
	Static bool

	orbit  physics.Orbit
	phase  float64
	frames uint64
}

// NewBody creates a body for d shown by node. Node placement is left to the caller.
func NewBody(id ID, d catalog.BodyDescriptor, node *scene.Node) *Body {
	return &Body{
		ID:         id,
		Descriptor: d,
		Node:       node,
		orbit:      d.Orbit(),
	}
}

// AddMoon attaches moon to b, both as a body and as a child node.
func (b *Body) AddMoon(moon *Body) {
	b.Moons = append(b.Moons, moon)
	b.Node.Add(moon.Node)
}

// GetID returns the body's unique identifier
func (b *Body) GetID() ID {
	return b.ID
}

// Name returns the descriptor name.
func (b *Body) Name() string {
	return b.Descriptor.Name
}

// GetPosition returns the node's position in its parent's frame.
func (b *Body) GetPosition() physics.Vector3D {
	return b.Node.Transform.Position
}

// WorldPosition returns the node's position in world space.
func (b *Body) WorldPosition() physics.Vector3D {
	return b.Node.WorldPosition()
}

// Phase returns the accumulated orbital angle in radians. It is never wrapped.
func (b *Body) Phase() float64 {
	return b.phase
}

// Frames returns how many times the body has been advanced.
func (b *Body) Frames() uint64 {
	return b.frames
}

// Orbit returns the body's circular orbit.
func (b *Body) Orbit() physics.Orbit {
	return b.orbit
}

// Advance moves the body one frame along its orbit: the phase grows by the
// orbital speed, the node turns to that phase about Y and sits at
// (sin(phase)·d, y, cos(phase)·d). y is left as it was.
func (b *Body) Advance() {
	if b.Static {
		return
	}
	b.phase = b.orbit.Advance(b.phase)
	b.frames++

	x, z := b.orbit.Offset(b.phase)
	b.Node.Transform.Rotation.Y = b.phase
	b.Node.Transform.Position.X = x
	b.Node.Transform.Position.Z = z
}

// Update advances the body and then its moons, in the body's own frame.
func (b *Body) Update() {
	b.Advance()
	for _, m := range b.Moons {
		m.Advance()
	}
}

// Package camera provides a perspective camera and orbit controls that circle it
// around a target point.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

// PerspectiveCamera looks from Position at Target. FOV is vertical, in degrees.
type PerspectiveCamera struct {
	FOV      float64
	Aspect   float64
	Near     float64
	Far      float64
	Position physics.Vector3D
	Target   physics.Vector3D
	Up       physics.Vector3D
}

// NewPerspectiveCamera creates a camera with +Y up, looking at the origin from (0, 0, 1).
func NewPerspectiveCamera(fov, aspect, near, far float64) *PerspectiveCamera {
	return &PerspectiveCamera{
		FOV:      fov,
		Aspect:   aspect,
		Near:     near,
		Far:      far,
		Position: physics.Vec3(0, 0, 1),
		Up:       physics.Vec3(0, 1, 0),
	}
}

// FromConfig creates a camera from configuration for a viewport of width × height.
func FromConfig(cfg config.CameraConfig, width, height int) *PerspectiveCamera {
	c := NewPerspectiveCamera(cfg.FOV, 1, cfg.Near, cfg.Far)
	c.Position = cfg.Position
	c.Target = cfg.Target
	c.Resize(width, height)
	return c
}

// SetAspect sets the width / height ratio. Non-positive values are ignored.
func (c *PerspectiveCamera) SetAspect(aspect float64) {
	if aspect > 0 && !math.IsInf(aspect, 0) {
		c.Aspect = aspect
	}
}

// Resize sets the aspect ratio from a viewport size.
func (c *PerspectiveCamera) Resize(width, height int) {
	if width > 0 && height > 0 {
		c.SetAspect(float64(width) / float64(height))
	}
}

// ViewMatrix returns the world-to-camera transform.
func (c *PerspectiveCamera) ViewMatrix() mgl64.Mat4 {
	return mgl64.LookAtV(c.Position.Mgl(), c.Target.Mgl(), c.Up.Mgl())
}

// ProjectionMatrix returns the camera-to-clip transform.
func (c *PerspectiveCamera) ProjectionMatrix() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// Project maps a world point to pixel coordinates in a width × height viewport,
// origin top left. depth is the distance along the view axis. ok is false for
// points behind the camera or outside the near/far range.
func (c *PerspectiveCamera) Project(p physics.Vector3D, width, height int) (screen physics.Vector2D, depth float64, ok bool) {
	view := c.ViewMatrix().Mul4x1(p.Mgl().Vec4(1))
	depth = -view.Z()
	if depth < c.Near || depth > c.Far {
		return physics.Vector2D{}, depth, false
	}

	clip := c.ProjectionMatrix().Mul4x1(view)
	if clip.W() <= 0 {
		return physics.Vector2D{}, depth, false
	}
	ndcX, ndcY := clip.X()/clip.W(), clip.Y()/clip.W()

	screen = physics.Vector2D{
		X: (ndcX + 1) / 2 * float64(width),
		Y: (1 - ndcY) / 2 * float64(height),
	}
	return screen, depth, true
}

// ProjectedRadius returns the on-screen radius in pixels of a sphere of the given
// world radius seen at depth, for a viewport height in pixels.
func (c *PerspectiveCamera) ProjectedRadius(radius, depth float64, height int) float64 {
	if depth <= 0 {
		return 0
	}
	halfFOV := mgl64.DegToRad(c.FOV) / 2
	return radius / (depth * math.Tan(halfFOV)) * float64(height) / 2
}

// Ray returns the normalized world-space direction through pixel (x, y).
func (c *PerspectiveCamera) Ray(x, y float64, width, height int) physics.Vector3D {
	forward, right, up := c.basis()
	tanHalf := math.Tan(mgl64.DegToRad(c.FOV) / 2)

	ndcX := 2*x/float64(width) - 1
	ndcY := 1 - 2*y/float64(height)

	return forward.
		Add(right.Scale(ndcX * tanHalf * c.Aspect)).
		Add(up.Scale(ndcY * tanHalf)).
		Normalize()
}

// Distance returns how far the camera is from its target.
func (c *PerspectiveCamera) Distance() float64 {
	return c.Position.Distance(c.Target)
}

func (c *PerspectiveCamera) basis() (forward, right, up physics.Vector3D) {
	forward = c.Target.Sub(c.Position).Normalize()
	right = forward.Cross(c.Up).Normalize()
	up = right.Cross(forward)
	return forward, right, up
}

package camera

import (
	"math"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

// Polar angle is kept this far from the poles so the view never flips.
const polarEpsilon = 1e-6

// OrbitControls moves a camera on a sphere around its target. Input calls
// (Rotate, Dolly) queue motion; Update applies it once per frame.
type OrbitControls struct {
	Camera *PerspectiveCamera

	MinDistance   float64
	MaxDistance   float64
	EnableDamping bool
	DampingFactor float64
	RotateSpeed   float64
	ZoomSpeed     float64

	deltaTheta float64
	deltaPhi   float64
	scale      float64
}

// NewOrbitControls creates controls for cam with no distance limits and damping off.
func NewOrbitControls(cam *PerspectiveCamera) *OrbitControls {
	return &OrbitControls{
		Camera:        cam,
		MinDistance:   0,
		MaxDistance:   math.Inf(1),
		DampingFactor: 0.05,
		RotateSpeed:   1,
		ZoomSpeed:     1,
		scale:         1,
	}
}

// ControlsFromConfig creates controls for cam from configuration.
func ControlsFromConfig(cam *PerspectiveCamera, cfg config.ControlsConfig) *OrbitControls {
	oc := NewOrbitControls(cam)
	oc.MinDistance = cfg.MinDistance
	oc.MaxDistance = cfg.MaxDistance
	oc.EnableDamping = cfg.EnableDamping
	oc.DampingFactor = cfg.DampingFactor
	oc.RotateSpeed = cfg.RotateSpeed
	oc.ZoomSpeed = cfg.ZoomSpeed
	return oc
}

// Rotate queues a turn of dTheta radians about the up axis and dPhi radians
// towards the poles, both scaled by RotateSpeed.
func (oc *OrbitControls) Rotate(dTheta, dPhi float64) {
	oc.deltaTheta += dTheta * oc.RotateSpeed
	oc.deltaPhi += dPhi * oc.RotateSpeed
}

// Dolly queues a change of distance: factors above 1 move away, below 1 move closer.
func (oc *OrbitControls) Dolly(factor float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	oc.scale *= math.Pow(factor, oc.ZoomSpeed)
}

// Update applies queued motion and clamps the distance to [MinDistance, MaxDistance].
// With damping on, queued rotation is applied gradually over following frames.
// It reports whether the camera moved.
func (oc *OrbitControls) Update() bool {
	cam := oc.Camera
	offset := cam.Position.Sub(cam.Target)

	radius := offset.Length()
	theta := math.Atan2(offset.X, offset.Z)
	phi := 0.0
	if radius > 0 {
		phi = math.Acos(clamp(offset.Y/radius, -1, 1))
	}

	if oc.EnableDamping {
		theta += oc.deltaTheta * oc.DampingFactor
		phi += oc.deltaPhi * oc.DampingFactor
	} else {
		theta += oc.deltaTheta
		phi += oc.deltaPhi
	}
	phi = clamp(phi, polarEpsilon, math.Pi-polarEpsilon)

	radius = clamp(radius*oc.scale, oc.MinDistance, oc.MaxDistance)

	sinPhi := math.Sin(phi)
	next := cam.Target.Add(physics.Vec3(
		radius*sinPhi*math.Sin(theta),
		radius*math.Cos(phi),
		radius*sinPhi*math.Cos(theta),
	))

	if oc.EnableDamping {
		oc.deltaTheta *= 1 - oc.DampingFactor
		oc.deltaPhi *= 1 - oc.DampingFactor
	} else {
		oc.deltaTheta, oc.deltaPhi = 0, 0
	}
	oc.scale = 1

	moved := next.Sub(cam.Position).LengthSquared() > 1e-18
	cam.Position = next
	return moved
}

// Reset drops any queued rotation and dolly, so a camera placed by hand stays put.
func (oc *OrbitControls) Reset() {
	oc.deltaTheta, oc.deltaPhi = 0, 0
	oc.scale = 1
}

// Pending reports whether queued rotation is still being applied.
func (oc *OrbitControls) Pending() bool {
	return math.Abs(oc.deltaTheta) > 1e-9 || math.Abs(oc.deltaPhi) > 1e-9 || oc.scale != 1
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

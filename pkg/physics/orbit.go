package physics

import "math"

// Orbit is uniform circular motion in the XZ plane around a parent's origin.
// Speed is the phase increment per frame in radians; its sign sets the direction.
type Orbit struct {
	Distance float64
	Speed    float64
}

// Advance returns phase moved on by one frame.
func (o Orbit) Advance(phase float64) float64 {
	return phase + o.Speed
}

// Offset returns the X and Z coordinates for a phase. Phase 0 sits on +Z.
func (o Orbit) Offset(phase float64) (x, z float64) {
	return math.Sin(phase) * o.Distance, math.Cos(phase) * o.Distance
}

// PositionAt is the closed form of N Advance calls from phase 0, with y kept at y0.
func (o Orbit) PositionAt(frames uint64, y0 float64) Vector3D {
	x, z := o.Offset(float64(frames) * o.Speed)
	return Vector3D{X: x, Y: y0, Z: z}
}

// PeriodFrames returns the number of frames one revolution takes, rounded to the
// nearest frame. ok is false for a body that never moves.
func (o Orbit) PeriodFrames() (frames uint64, ok bool) {
	if o.Speed == 0 {
		return 0, false
	}
	return uint64(math.Round(2 * math.Pi / math.Abs(o.Speed))), true
}

package assets

import (
	"image/color"
	"math"

	"github.com/opd-ai/go-orrery/pkg/physics"
)

// Cube face order.
const (
	FacePosX = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
)

// Cubemap is a six-face environment texture, faces in +X, -X, +Y, -Y, +Z, -Z order.
type Cubemap struct {
	Faces [6]*Texture
}

// State is Ready when every face is, Failed when any face failed, Pending otherwise.
func (c *Cubemap) State() State {
	state := Ready
	for _, f := range c.Faces {
		if f == nil {
			return Failed
		}
		switch f.State() {
		case Failed:
			return Failed
		case Pending:
			state = Pending
		}
	}
	return state
}

// Sample returns the background color seen looking along dir.
// ok is false when dir is zero or the selected face is not Ready.
func (c *Cubemap) Sample(dir physics.Vector3D) (color.NRGBA, bool) {
	face, u, v, ok := cubeFace(dir)
	if !ok || c.Faces[face] == nil {
		return color.NRGBA{}, false
	}
	return c.Faces[face].Sample(u, v)
}

// cubeFace selects the face hit by dir and the (u, v) on it, following the
// usual cube map orientation.
func cubeFace(dir physics.Vector3D) (face int, u, v float64, ok bool) {
	ax, ay, az := math.Abs(dir.X), math.Abs(dir.Y), math.Abs(dir.Z)
	var sc, tc, ma float64
	switch {
	case ax >= ay && ax >= az && ax > 0:
		ma = ax
		if dir.X > 0 {
			face, sc, tc = FacePosX, -dir.Z, -dir.Y
		} else {
			face, sc, tc = FaceNegX, dir.Z, -dir.Y
		}
	case ay >= az && ay > 0:
		ma = ay
		if dir.Y > 0 {
			face, sc, tc = FacePosY, dir.X, dir.Z
		} else {
			face, sc, tc = FaceNegY, dir.X, -dir.Z
		}
	case az > 0:
		ma = az
		if dir.Z > 0 {
			face, sc, tc = FacePosZ, dir.X, -dir.Y
		} else {
			face, sc, tc = FaceNegZ, -dir.X, -dir.Y
		}
	default:
		return 0, 0, 0, false
	}
	// Keep u off 1.0 so Texture.Sample does not wrap it to the opposite edge.
	u = math.Min((sc/ma+1)/2, math.Nextafter(1, 0))
	return face, u, (tc/ma + 1) / 2, true
}

// pkg/physics/vector.go
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vector2D represents a 2D vector with x and y components.
// Screen-space projections use it.
type Vector2D struct {
	X float64
	Y float64
}

// Add returns the sum of two vectors
func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub returns the difference between two vectors
func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{X: v.X - other.X, Y: v.Y - other.Y}
}

// Scale multiplies the vector by a scalar value
func (v Vector2D) Scale(factor float64) Vector2D {
	return Vector2D{X: v.X * factor, Y: v.Y * factor}
}

// Length returns the magnitude of the vector
func (v Vector2D) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Vector3D is a position or direction in scene space. Y is up; orbits lie in XZ.
type Vector3D struct {
	X float64 `json:"x" yaml:"x" toml:"x"`
	Y float64 `json:"y" yaml:"y" toml:"y"`
	Z float64 `json:"z" yaml:"z" toml:"z"`
}

// Vec3 builds a Vector3D.
func Vec3(x, y, z float64) Vector3D {
	return Vector3D{X: x, Y: y, Z: z}
}

// Add returns the sum of two vectors
func (v Vector3D) Add(other Vector3D) Vector3D {
	return Vector3D{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns the difference between two vectors
func (v Vector3D) Sub(other Vector3D) Vector3D {
	return Vector3D{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale multiplies the vector by a scalar value
func (v Vector3D) Scale(factor float64) Vector3D {
	return Vector3D{X: v.X * factor, Y: v.Y * factor, Z: v.Z * factor}
}

// Dot returns the dot product of two vectors
func (v Vector3D) Dot(other Vector3D) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product v × other.
func (v Vector3D) Cross(other Vector3D) Vector3D {
	return Vector3D{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// Length returns the magnitude of the vector
func (v Vector3D) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// LengthSquared returns magnitude squared (optimization for comparisons)
func (v Vector3D) LengthSquared() float64 {
	return v.Dot(v)
}

// Normalize returns a unit vector in the same direction
func (v Vector3D) Normalize() Vector3D {
	length := v.Length()
	if length == 0 {
		return Vector3D{}
	}
	return v.Scale(1 / length)
}

// Distance returns the distance between two points
func (v Vector3D) Distance(other Vector3D) float64 {
	return v.Sub(other).Length()
}

// RotateY rotates the vector around the Y axis by angle (radians), right-handed.
func (v Vector3D) RotateY(angle float64) Vector3D {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Vector3D{
		X: v.X*cos + v.Z*sin,
		Y: v.Y,
		Z: -v.X*sin + v.Z*cos,
	}
}

// ApproxEqual reports whether every component differs by at most eps.
func (v Vector3D) ApproxEqual(other Vector3D, eps float64) bool {
	return math.Abs(v.X-other.X) <= eps &&
		math.Abs(v.Y-other.Y) <= eps &&
		math.Abs(v.Z-other.Z) <= eps
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vector3D) IsFinite() bool {
	for _, c := range [...]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Mgl converts to a mathgl vector.
func (v Vector3D) Mgl() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// FromMgl converts a mathgl vector.
func FromMgl(m mgl64.Vec3) Vector3D {
	return Vector3D{X: m[0], Y: m[1], Z: m[2]}
}

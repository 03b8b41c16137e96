package scene

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-orrery/pkg/assets"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

const eps = 1e-9

func assertVec(t *testing.T, want, got physics.Vector3D) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, eps, "x")
	assert.InDelta(t, want.Y, got.Y, eps, "y")
	assert.InDelta(t, want.Z, got.Z, eps, "z")
}

func TestNewSphere_ClampsSegments(t *testing.T) {
	s := NewSphere(1, 1, 0)
	assert.Equal(t, 3, s.WidthSegments)
	assert.Equal(t, 2, s.HeightSegments)

	s = NewSphere(1, 32, 32)
	assert.Equal(t, 32, s.WidthSegments)
	assert.Equal(t, 32, s.HeightSegments)
}

func TestNewNode_Defaults(t *testing.T) {
	n := NewNode("earth", nil, nil)
	assert.Equal(t, physics.Vec3(1, 1, 1), n.Transform.Scale)
	assert.Equal(t, physics.Vector3D{}, n.Transform.Position)
	assert.Nil(t, n.Parent())
	assert.Zero(t, n.ChildCount())
}

func TestWorldPosition_ComposesParentTransform(t *testing.T) {
	planet := NewNode("earth", NewSphere(1, 32, 32), nil)
	planet.SetPosition(physics.Vec3(10, 0, 0))
	planet.SetUniformScale(2)
	planet.Transform.Rotation.Y = math.Pi / 2

	moon := NewNode("moon", NewSphere(1, 32, 32), nil)
	moon.SetPosition(physics.Vec3(3, 0, 0))
	moon.SetUniformScale(0.3)
	planet.Add(moon)

	// planet + RotY(phase) · (scale · local)
	want := physics.Vec3(10, 0, 0).Add(physics.Vec3(6, 0, 0).RotateY(math.Pi / 2))
	assertVec(t, want, moon.WorldPosition())
	assertVec(t, physics.Vec3(10, 0, -6), moon.WorldPosition())
	assertVec(t, physics.Vec3(0.6, 0.6, 0.6), moon.WorldScale())
	assert.InDelta(t, 0.6, moon.BoundingRadius(), eps)
}

func TestTransformMatrix_EulerOrder(t *testing.T) {
	tr := Transform{
		Rotation: physics.Vec3(0.3, 0.5, 0.7),
		Scale:    physics.Vec3(1, 1, 1),
	}
	want := mgl64.HomogRotate3DX(0.3).Mul4(mgl64.HomogRotate3DY(0.5)).Mul4(mgl64.HomogRotate3DZ(0.7))
	assert.True(t, want.ApproxEqualThreshold(tr.Matrix(), eps))
}

func TestNodeAdd_Reparents(t *testing.T) {
	a := NewNode("a", nil, nil)
	b := NewNode("b", nil, nil)
	child := NewNode("child", nil, nil)

	a.Add(child)
	require.Equal(t, 1, a.ChildCount())
	assert.Same(t, a, child.Parent())

	b.Add(child)
	assert.Zero(t, a.ChildCount())
	assert.Equal(t, 1, b.ChildCount())
	assert.Same(t, b, child.Parent())
}

func TestNodeAdd_IgnoresCycles(t *testing.T) {
	a := NewNode("a", nil, nil)
	b := NewNode("b", nil, nil)
	a.Add(b)

	b.Add(a)
	a.Add(a)
	a.Add(nil)

	assert.Nil(t, a.Parent())
	assert.Equal(t, 1, a.ChildCount())
	assert.Zero(t, b.ChildCount())
}

func TestChildren_ReturnsCopy(t *testing.T) {
	a := NewNode("a", nil, nil)
	a.Add(NewNode("b", nil, nil))

	children := a.Children()
	children[0] = nil
	assert.NotNil(t, a.Children()[0])
}

func TestSceneTraverse_Order(t *testing.T) {
	sc := New()
	sun := NewNode("sun", nil, nil)
	earth := NewNode("earth", nil, nil)
	moon := NewNode("moon", nil, nil)
	mars := NewNode("mars", nil, nil)
	sc.Add(sun)
	sc.Add(earth)
	earth.Add(moon)
	sc.Add(mars)

	var names []string
	sc.Traverse(func(n *Node, _ mgl64.Mat4) bool {
		names = append(names, n.Name)
		return true
	})
	assert.Equal(t, []string{"root", "sun", "earth", "moon", "mars"}, names)
	assert.Equal(t, 4, sc.NodeCount())

	names = nil
	sc.Traverse(func(n *Node, _ mgl64.Mat4) bool {
		names = append(names, n.Name)
		return n.Name != "earth"
	})
	assert.Equal(t, []string{"root", "sun", "earth", "mars"}, names)

	assert.Same(t, moon, sc.Find("moon"))
	assert.Nil(t, sc.Find("pluto"))
}

func TestSceneDrawables(t *testing.T) {
	sc := New()
	sphere := NewSphere(1, 32, 32)
	mat := NewMaterial("earth", Standard, nil)

	earth := NewNode("earth", sphere, mat)
	earth.SetPosition(physics.Vec3(20, 0, 0))
	sc.Add(earth)
	moon := NewNode("moon", sphere, mat)
	moon.SetPosition(physics.Vec3(3, 0, 0))
	moon.SetUniformScale(0.3)
	earth.Add(moon)
	sc.Add(NewNode("pivot", nil, nil))

	drawables := sc.Drawables()
	require.Len(t, drawables, 2)
	assert.Same(t, earth, drawables[0].Node)
	assertVec(t, physics.Vec3(20, 0, 0), drawables[0].Center)
	assert.InDelta(t, 1, drawables[0].Radius, eps)
	assertVec(t, physics.Vec3(23, 0, 0), drawables[1].Center)
	assert.InDelta(t, 0.3, drawables[1].Radius, eps)
	assert.Same(t, mat, drawables[1].Material)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#0fffff", color.NRGBA{R: 0x0f, G: 0xff, B: 0xff, A: 255}, false},
		{"ffffff", color.NRGBA{R: 255, G: 255, B: 255, A: 255}, false},
		{"#abc", color.NRGBA{R: 0xaa, G: 0xbb, B: 0xcc, A: 255}, false},
		{"", color.NRGBA{R: 255, G: 255, B: 255, A: 255}, false},
		{"#12345", color.NRGBA{}, true},
		{"#gggggg", color.NRGBA{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaterial_ColorAtFallsBackToBaseColor(t *testing.T) {
	base := color.NRGBA{R: 10, G: 20, B: 30, A: 255}

	m := NewMaterial("mars", Standard, nil)
	m.Color = base
	assert.Equal(t, base, m.ColorAt(0.5, 0.5))
	assert.True(t, m.Lit())

	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, A: 255})
	m.Texture = assets.NewTextureFromImage("mars", img)
	assert.Equal(t, color.NRGBA{R: 200, A: 255}, m.ColorAt(0.5, 0.5))

	sun := NewMaterial("sun", Basic, nil)
	assert.False(t, sun.Lit())

	var nilMat *Material
	assert.False(t, nilMat.Lit())
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, nilMat.ColorAt(0, 0))
}

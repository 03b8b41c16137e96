package engo

import (
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-orrery/pkg/camera"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/physics"
	"github.com/opd-ai/go-orrery/pkg/render"
	"github.com/opd-ai/go-orrery/pkg/scene"
)

func testScene() *scene.Scene {
	sc := scene.New()
	sphere := scene.NewSphere(1, 32, 32)

	sun := scene.NewNode("sun", sphere, scene.NewMaterial("sun", scene.Basic, nil))
	sun.SetUniformScale(5)
	sc.Add(sun)

	earth := scene.NewNode("earth", sphere, scene.NewMaterial("earth", scene.Standard, nil))
	earth.SetPosition(physics.Vec3(10, 0, 0))
	sc.Add(earth)

	moon := scene.NewNode("moon", sphere, scene.NewMaterial("moon", scene.Standard, nil))
	moon.SetUniformScale(0.3)
	moon.SetPosition(physics.Vec3(0, 0, 3))
	earth.Add(moon)
	return sc
}

func testCamera() *camera.PerspectiveCamera {
	cam := camera.NewPerspectiveCamera(35, 1, 0.1, 400)
	cam.Position = physics.Vec3(0, 0, 40)
	return cam
}

func TestLayoutScene(t *testing.T) {
	layouts := LayoutScene(testScene(), testCamera(), 400, 400)
	require.Len(t, layouts, 3)

	byName := map[string]Layout{}
	for _, l := range layouts {
		byName[l.Node.Name] = l
	}

	sun := byName["sun"]
	assert.True(t, sun.Visible)
	assert.InDelta(t, 40, sun.Depth, 1e-9)
	assert.InDelta(t, 200, sun.Position.X+sun.Size/2, 1, "sun centered horizontally")
	assert.InDelta(t, 200, sun.Position.Y+sun.Size/2, 1, "sun centered vertically")

	earth := byName["earth"]
	assert.True(t, earth.Visible)
	assert.Greater(t, earth.Position.X, sun.Position.X)
	assert.Less(t, earth.Size, sun.Size)

	moon := byName["moon"]
	assert.Less(t, moon.Depth, earth.Depth, "moon sits between earth and camera")
	assert.GreaterOrEqual(t, moon.Size, float32(MinSpriteSize))

	for i := 1; i < len(layouts); i++ {
		assert.GreaterOrEqual(t, layouts[i-1].Depth, layouts[i].Depth, "farthest first")
	}
}

func TestLayoutScene_HidesBodiesOutOfView(t *testing.T) {
	sc := scene.New()
	behind := scene.NewNode("behind", scene.NewSphere(1, 8, 8), nil)
	behind.SetPosition(physics.Vec3(0, 0, 60))
	sc.Add(behind)
	aside := scene.NewNode("aside", scene.NewSphere(1, 8, 8), nil)
	aside.SetPosition(physics.Vec3(200, 0, 0))
	sc.Add(aside)

	for _, l := range LayoutScene(sc, testCamera(), 400, 400) {
		assert.False(t, l.Visible, l.Node.Name)
	}
}

func TestEngoRenderer_RenderCreatesOneEntityPerNode(t *testing.T) {
	up := &countingUpload{}
	r := NewEngoRenderer(nil, NewAssetManager(up.upload), logging.Discard())
	sc := testScene()

	assert.NoError(t, r.Render(sc, testCamera()), "zero size window draws nothing")
	assert.Equal(t, 0, r.BodyCount())

	r.Resize(400, 400)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Render(sc, testCamera()))
	}
	assert.Equal(t, 3, r.BodyCount())
	assert.Equal(t, 3, up.calls, "one sprite per body, reused while nothing moves")

	e := r.bodies[sc.Find("sun")]
	require.NotNil(t, e)
	assert.False(t, e.RenderComponent.Hidden)
	assert.Equal(t, e.SpaceComponent.Width, e.RenderComponent.Scale.X*SpriteSize)
}

func TestEngoRenderer_SpritesFollowSceneLights(t *testing.T) {
	up := &countingUpload{}
	r := NewEngoRenderer(nil, NewAssetManager(up.upload), logging.Discard())
	r.Resize(400, 400)
	sc := testScene()
	sc.AddLight(scene.Light{Kind: scene.PointLight, Color: color.NRGBA{R: 255, G: 255, B: 255, A: 255}, Intensity: 1000})

	require.NoError(t, r.Render(sc, testCamera()))
	require.Equal(t, 3, up.calls)

	earth := sc.Find("earth")
	earth.SetPosition(physics.Vec3(0, 0, -10))
	require.NoError(t, r.Render(sc, testCamera()))
	assert.Equal(t, 5, up.calls, "earth and its moon see the sun from a new side")

	earth.SetPosition(physics.Vec3(0, 0, -10.01))
	require.NoError(t, r.Render(sc, testCamera()))
	assert.Equal(t, 5, up.calls, "a tiny move reuses the sprites")
}

func TestEngoRenderer_Close(t *testing.T) {
	r := NewEngoRenderer(nil, NewAssetManager((&countingUpload{}).upload), logging.Discard())
	r.Resize(400, 400)
	require.NoError(t, r.Render(testScene(), testCamera()))

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 0, r.BodyCount())
	assert.True(t, errors.Is(r.Render(testScene(), testCamera()), render.ErrClosed))
}

func TestEngoRenderer_ImplementsRenderer(t *testing.T) {
	var _ render.Renderer = (*EngoRenderer)(nil)
}

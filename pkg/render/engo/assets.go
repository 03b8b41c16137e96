package engo

import (
	"image"
	"math"

	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-orrery/pkg/assets"
	"github.com/opd-ai/go-orrery/pkg/camera"
	"github.com/opd-ai/go-orrery/pkg/physics"
	"github.com/opd-ai/go-orrery/pkg/render"
	"github.com/opd-ai/go-orrery/pkg/scene"
)

// SpriteSize is the edge in pixels of the generated body sprites. Sprites are
// scaled to the projected size of their body every frame.
const SpriteSize = 128

// BackgroundScale divides the window size to get the background resolution.
const BackgroundScale = 4

// UploadFunc turns a CPU image into something engo can draw.
type UploadFunc func(img *image.NRGBA) common.Drawable

// UploadTexture uploads img to the GPU. It needs a live OpenGL context.
func UploadTexture(img *image.NRGBA) common.Drawable {
	return common.NewTextureSingle(common.NewImageObject(img))
}

// Sprites are rebaked once a light has turned more than about 2 degrees or its
// strength at the body changed by more than 2 percent.
const (
	spriteLightTurn  = 0.9994
	spriteLightScale = 0.02
)

type sprite struct {
	drawable common.Drawable
	material *scene.Material
	state    assets.State
	lights   []scene.Light
}

// AssetManager builds and caches engo drawables for bodies and the background.
type AssetManager struct {
	upload  UploadFunc
	sprites map[*scene.Node]sprite

	background     common.Drawable
	backgroundSize image.Point
	backgroundCam  camera.PerspectiveCamera
	backgroundSet  bool
}

// NewAssetManager creates a new asset manager. A nil upload uses UploadTexture.
func NewAssetManager(upload UploadFunc) *AssetManager {
	if upload == nil {
		upload = UploadTexture
	}
	return &AssetManager{
		upload:  upload,
		sprites: make(map[*scene.Node]sprite),
	}
}

// Sprite returns the drawable for node lit by lights, given in the node's
// sprite frame (see SpriteLights). It is rebuilt when the material's texture
// settles, so a body first shows its base color and then its texture, and when
// the lights moved noticeably relative to the body. Unlit materials ignore lights.
func (am *AssetManager) Sprite(node *scene.Node, lights []scene.Light) common.Drawable {
	mat := node.Material
	if !mat.Lit() {
		lights = nil
	}
	state := textureState(mat)
	if s, ok := am.sprites[node]; ok && s.material == mat && s.state == state && similarLights(s.lights, lights) {
		return s.drawable
	}
	d := am.upload(BodyImage(mat, SpriteSize, lights))
	am.sprites[node] = sprite{drawable: d, material: mat, state: state, lights: lights}
	return d
}

// Forget drops the cached sprite of node.
func (am *AssetManager) Forget(node *scene.Node) {
	delete(am.sprites, node)
}

// SpriteLights expresses lights in the frame of a body sprite: x right, y up,
// z towards the camera, one unit per body radius, origin at the body's center.
// Point light intensities are rescaled so that decay still follows world distances.
func SpriteLights(lights []scene.Light, cam *camera.PerspectiveCamera, center physics.Vector3D, radius float64) []scene.Light {
	if len(lights) == 0 {
		return nil
	}
	if radius <= 0 {
		radius = 1
	}
	view := cam.ViewMatrix()
	c := physics.FromMgl(view.Mul4x1(center.Mgl().Vec4(1)).Vec3())

	out := make([]scene.Light, len(lights))
	for i, l := range lights {
		out[i] = l
		if l.Kind != scene.PointLight {
			continue
		}
		p := physics.FromMgl(view.Mul4x1(l.Position.Mgl().Vec4(1)).Vec3())
		out[i].Position = p.Sub(c).Scale(1 / radius)
		if l.Decay > 0 {
			out[i].Intensity = l.Intensity / math.Pow(radius, l.Decay)
		}
	}
	return out
}

func similarLights(a, b []scene.Light) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].Color != b[i].Color {
			return false
		}
		if !similarStrength(a[i].Intensity, b[i].Intensity) {
			return false
		}
		if a[i].Kind != scene.PointLight {
			continue
		}
		da, db := a[i].Position.Length(), b[i].Position.Length()
		if da == 0 || db == 0 {
			if da != db {
				return false
			}
			continue
		}
		if a[i].Position.Dot(b[i].Position)/(da*db) < spriteLightTurn {
			return false
		}
		if d := a[i].Decay; d > 0 && !similarStrength(math.Pow(da, -d), math.Pow(db, -d)) {
			return false
		}
	}
	return true
}

func similarStrength(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= spriteLightScale*math.Max(math.Abs(a), math.Abs(b))
}

// Background returns the drawable for the cube map as seen by cam in a
// width × height window, or nil when there is no background to show. The image
// is only regenerated when the camera or window changed.
func (am *AssetManager) Background(cube *assets.Cubemap, cam *camera.PerspectiveCamera, width, height int) common.Drawable {
	if cube == nil || cam == nil || cube.State() != assets.Ready {
		return nil
	}
	size := image.Pt(max(width/BackgroundScale, 1), max(height/BackgroundScale, 1))
	if am.backgroundSet && am.backgroundSize == size && am.backgroundCam == *cam {
		return am.background
	}
	am.background = am.upload(BackgroundImage(cube, cam, size.X, size.Y))
	am.backgroundSize = size
	am.backgroundCam = *cam
	am.backgroundSet = true
	return am.background
}

func textureState(mat *scene.Material) assets.State {
	if mat == nil || mat.Texture == nil {
		return assets.Ready
	}
	return mat.Texture.State()
}

// BodyImage draws the hemisphere of a unit sphere facing +Z with material mat
// into a size × size image: texture or base color, shaded by lights given in
// the sphere's frame unless the material is basic. Pixels outside the disc are
// transparent.
func BodyImage(mat *scene.Material, size int, lights []scene.Light) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	half := float64(size) / 2
	for y := 0; y < size; y++ {
		ny := -((float64(y)+0.5)/half - 1)
		for x := 0; x < size; x++ {
			nx := (float64(x)+0.5)/half - 1
			r2 := nx*nx + ny*ny
			if r2 > 1 {
				continue
			}
			n := physics.Vec3(nx, ny, math.Sqrt(1-r2))

			u := math.Atan2(n.Z, -n.X) / (2 * math.Pi)
			if u < 0 {
				u++
			}
			v := math.Acos(n.Y) / math.Pi

			c := render.Shade(mat, mat.ColorAt(u, v), n, n, lights)
			c.A = 255
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// BackgroundImage samples cube along the camera ray of every pixel of a
// width × height image.
func BackgroundImage(cube *assets.Cubemap, cam *camera.PerspectiveCamera, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			ray := cam.Ray(float64(x)+0.5, float64(y)+0.5, width, height)
			if c, ok := cube.Sample(ray); ok {
				c.A = 255
				img.SetNRGBA(x, y, c)
			}
		}
	}
	return img
}

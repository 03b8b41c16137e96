package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/physics"
	"github.com/opd-ai/go-orrery/pkg/resource"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testConfig() Config {
	return Config{
		MaxTextureSize:      64,
		MaxConsecutiveFails: 3,
		BreakerInterval:     time.Minute,
		BreakerTimeout:      time.Minute,
	}
}

func newResources(t *testing.T) *resource.ResourceManager {
	t.Helper()
	rm := resource.NewResourceManager(&config.EnvironmentConfig{
		MaxMemoryMB:           1024,
		MaxLoaderGoroutines:   8,
		ShutdownTimeout:       time.Second,
		ResourceCheckInterval: time.Second,
	}, logging.Discard())
	t.Cleanup(func() { _ = rm.Shutdown(context.Background()) })
	return rm
}

func waitLoaded(t *testing.T, l *Loader) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx))
}

func TestLoad2D_DecodesInBackground(t *testing.T) {
	fsys := fstest.MapFS{
		"2k_earth_daymap.png": {Data: pngBytes(t, solid(8, 4, color.NRGBA{R: 10, G: 20, B: 200, A: 255}))},
	}
	bus := event.NewEventBus()
	var loaded []string
	bus.Subscribe(event.TextureLoaded, func(e event.Event) {
		loaded = append(loaded, e.(*event.TextureEvent).Path)
	})

	l := NewLoader(fsys, testConfig(), newResources(t), bus, logging.Discard())
	tex := l.Load2D(context.Background(), "2k_earth_daymap.png")
	require.NotNil(t, tex)
	waitLoaded(t, l)

	assert.Equal(t, Ready, tex.State())
	assert.NoError(t, tex.Err())
	require.NotNil(t, tex.Image())
	assert.Equal(t, image.Rect(0, 0, 8, 4), tex.Image().Bounds())
	assert.Equal(t, []string{"2k_earth_daymap.png"}, loaded)

	c, ok := tex.Sample(0.5, 0.5)
	assert.True(t, ok)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 200, A: 255}, c)
}

func TestLoad2D_CachesByPath(t *testing.T) {
	fsys := fstest.MapFS{"moon.png": {Data: pngBytes(t, solid(2, 2, color.NRGBA{A: 255}))}}
	l := NewLoader(fsys, testConfig(), nil, nil, logging.Discard())

	a := l.Load2D(context.Background(), "moon.png")
	b := l.Load2D(context.Background(), "./moon.png")
	assert.Same(t, a, b)
}

func TestLoad2D_Downscales(t *testing.T) {
	fsys := fstest.MapFS{"sun.png": {Data: pngBytes(t, solid(16, 8, color.NRGBA{R: 255, G: 200, A: 255}))}}
	cfg := testConfig()
	cfg.MaxTextureSize = 4
	l := NewLoader(fsys, cfg, nil, nil, logging.Discard())

	tex := l.Load2D(context.Background(), "sun.png")
	require.Equal(t, Ready, tex.State())
	assert.Equal(t, image.Rect(0, 0, 4, 2), tex.Image().Bounds())
}

func TestLoad2D_Failures(t *testing.T) {
	fsys := fstest.MapFS{"broken.png": {Data: []byte("not an image")}}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", "2k_mars.jpg"},
		{"undecodable", "broken.png"},
		{"escaping path", "../secret.png"},
		{"unsupported extension", "earth.tga"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := event.NewEventBus()
			failed := 0
			bus.Subscribe(event.TextureFailed, func(event.Event) { failed++ })

			l := NewLoader(fsys, testConfig(), nil, bus, logging.Discard())
			tex := l.Load2D(context.Background(), tt.path)

			assert.Equal(t, Failed, tex.State())
			assert.Error(t, tex.Err())
			assert.Nil(t, tex.Image())
			assert.Equal(t, 1, failed)

			_, ok := tex.Sample(0, 0)
			assert.False(t, ok)
		})
	}
}

func TestLoad2D_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	fsys := fstest.MapFS{"earth.png": {Data: pngBytes(t, solid(2, 2, color.NRGBA{B: 255, A: 255}))}}
	cfg := testConfig()
	cfg.MaxConsecutiveFails = 2
	l := NewLoader(fsys, cfg, nil, nil, logging.Discard())
	ctx := context.Background()

	l.Load2D(ctx, "a.png")
	assert.Equal(t, gobreaker.StateClosed, l.BreakerState())
	l.Load2D(ctx, "b.png")
	assert.Equal(t, gobreaker.StateOpen, l.BreakerState())

	tex := l.Load2D(ctx, "earth.png")
	assert.Equal(t, Failed, tex.State())
	assert.ErrorIs(t, tex.Err(), ErrBreakerOpen)
	assert.ErrorIs(t, tex.Err(), gobreaker.ErrOpenState)
}

func TestLoad2D_AfterShutdown(t *testing.T) {
	fsys := fstest.MapFS{"earth.png": {Data: pngBytes(t, solid(2, 2, color.NRGBA{A: 255}))}}
	rm := newResources(t)
	require.NoError(t, rm.Shutdown(context.Background()))

	l := NewLoader(fsys, testConfig(), rm, nil, logging.Discard())
	tex := l.Load2D(context.Background(), "earth.png")
	assert.Equal(t, Failed, tex.State())
	assert.ErrorIs(t, tex.Err(), resource.ErrShuttingDown)
}

func TestTextureSample_WrapsAndClamps(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 1, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 2, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{R: 3, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{R: 4, A: 255})
	tex := NewTextureFromImage("grid", img)

	tests := []struct {
		u, v float64
		want uint8
	}{
		{0.25, 0.25, 1},
		{0.75, 0.25, 2},
		{0.25, 0.75, 3},
		{1.25, 0.25, 1},
		{-0.25, 0.25, 2},
		{0.25, -3, 1},
		{0.75, 7, 4},
	}
	for _, tt := range tests {
		c, ok := tex.Sample(tt.u, tt.v)
		require.True(t, ok)
		assert.Equal(t, tt.want, c.R, "u=%v v=%v", tt.u, tt.v)
	}
}

func TestCubemap_SelectsFaceByDirection(t *testing.T) {
	var faces [6]string
	fsys := fstest.MapFS{}
	for i, name := range []string{"px.png", "nx.png", "py.png", "ny.png", "pz.png", "nz.png"} {
		faces[i] = name
		fsys["cubeMap/"+name] = &fstest.MapFile{Data: pngBytes(t, solid(4, 4, color.NRGBA{R: uint8(i + 1), A: 255}))}
	}
	l := NewLoader(fsys, testConfig(), newResources(t), nil, logging.Discard())
	cube := l.LoadCubemap(context.Background(), "cubeMap", faces)
	waitLoaded(t, l)
	require.Equal(t, Ready, cube.State())

	tests := []struct {
		dir  physics.Vector3D
		face int
	}{
		{physics.Vec3(1, 0.2, -0.3), FacePosX},
		{physics.Vec3(-1, 0, 0), FaceNegX},
		{physics.Vec3(0.1, 2, 0), FacePosY},
		{physics.Vec3(0, -1, 0.5), FaceNegY},
		{physics.Vec3(0, 0, 1), FacePosZ},
		{physics.Vec3(0.3, 0.3, -0.9), FaceNegZ},
		{physics.Vec3(1, 0, 1), FacePosX},
	}
	for _, tt := range tests {
		c, ok := cube.Sample(tt.dir)
		require.True(t, ok, "dir %v", tt.dir)
		assert.Equal(t, uint8(tt.face+1), c.R, "dir %v", tt.dir)
	}

	_, ok := cube.Sample(physics.Vector3D{})
	assert.False(t, ok)
}

func TestCubemap_StateFollowsFaces(t *testing.T) {
	ready := NewTextureFromImage("ok", solid(1, 1, color.NRGBA{A: 255}))
	pending := newTexture("slow")
	failed := newTexture("bad")
	failed.settle(nil, assert.AnError)

	cube := &Cubemap{Faces: [6]*Texture{ready, ready, ready, ready, ready, ready}}
	assert.Equal(t, Ready, cube.State())

	cube.Faces[2] = pending
	assert.Equal(t, Pending, cube.State())

	cube.Faces[4] = failed
	assert.Equal(t, Failed, cube.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", State(9).String())
}

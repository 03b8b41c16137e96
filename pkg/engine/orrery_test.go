package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/opd-ai/go-orrery/pkg/camera"
	"github.com/opd-ai/go-orrery/pkg/catalog"
	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/render"
	"github.com/opd-ai/go-orrery/pkg/scene"
)

// stubRenderer records calls and fails with err when set.
type stubRenderer struct {
	renders int
	closes  int
	width   int
	height  int
	err     error
}

func (r *stubRenderer) Render(sc *scene.Scene, cam *camera.PerspectiveCamera) error {
	r.renders++
	return r.err
}

func (r *stubRenderer) Resize(width, height int) {
	r.width, r.height = width, height
}

func (r *stubRenderer) Close() error {
	r.closes++
	return nil
}

func newTestOrrery(t *testing.T, r render.Renderer) *Orrery {
	t.Helper()
	o, err := NewOrrery(context.Background(), config.DefaultConfig(), catalog.Default(), r, Options{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("NewOrrery() error = %v", err)
	}
	return o
}

func TestNewOrrery_BuildsSceneFromConfig(t *testing.T) {
	o := newTestOrrery(t, nil)
	cfg := config.DefaultConfig()

	if got, want := len(o.World.Planets), len(catalog.Default().Planets); got != want {
		t.Errorf("planets = %d, want %d", got, want)
	}
	if len(o.World.Scene.Lights) != 2 {
		t.Errorf("lights = %d, want 2", len(o.World.Scene.Lights))
	}
	if o.World.Scene.Background != nil {
		t.Error("background should be nil without a loader")
	}
	if o.Camera.FOV != cfg.Camera.FOV || o.Camera.Position != cfg.Camera.Position {
		t.Errorf("camera = %+v, want fov %v at %v", o.Camera, cfg.Camera.FOV, cfg.Camera.Position)
	}
	wantAspect := float64(cfg.Window.Width) / float64(cfg.Window.Height)
	if math.Abs(o.Camera.Aspect-wantAspect) > 1e-12 {
		t.Errorf("aspect = %v, want %v", o.Camera.Aspect, wantAspect)
	}
	if o.Controls.MinDistance != cfg.Controls.MinDistance || o.Controls.MaxDistance != cfg.Controls.MaxDistance {
		t.Errorf("controls distance = [%v, %v]", o.Controls.MinDistance, o.Controls.MaxDistance)
	}
}

func TestNewOrrery_InvalidMaterial(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Assets.Materials["earth"] = config.MaterialConfig{Kind: "glass", Color: "#ffffff"}

	_, err := NewOrrery(context.Background(), cfg, catalog.Default(), nil, Options{Logger: logging.Discard()})
	if err == nil {
		t.Fatal("NewOrrery() with unknown material kind should fail")
	}
}

func TestOrrery_Frame_AdvancesAndRenders(t *testing.T) {
	r := &stubRenderer{}
	o := newTestOrrery(t, r)
	earth := o.World.Body("Earth")
	if earth == nil {
		t.Fatal("earth not found in default catalog")
	}

	for i := 0; i < 3; i++ {
		if status := o.Frame(context.Background()); status != Continue {
			t.Fatalf("Frame() = %v, want continue", status)
		}
	}

	if o.World.Frames() != 3 {
		t.Errorf("world frames = %d, want 3", o.World.Frames())
	}
	if r.renders != 3 {
		t.Errorf("renders = %d, want 3", r.renders)
	}
	wantPhase := 3 * earth.Descriptor.Speed
	if math.Abs(earth.Phase()-wantPhase) > 1e-12 {
		t.Errorf("earth phase = %v, want %v", earth.Phase(), wantPhase)
	}
}

func TestOrrery_Frame_StopsWhenRendererClosed(t *testing.T) {
	r := &stubRenderer{err: render.ErrClosed}
	o := newTestOrrery(t, r)

	if status := o.Frame(context.Background()); status != Stop {
		t.Errorf("Frame() = %v, want stop", status)
	}
}

func TestOrrery_Frame_ContinuesOnRenderError(t *testing.T) {
	r := &stubRenderer{err: errors.New("gpu on fire")}
	o := newTestOrrery(t, r)

	if status := o.Frame(context.Background()); status != Continue {
		t.Errorf("Frame() = %v, want continue", status)
	}
}

func TestOrrery_Frame_WithoutRenderer(t *testing.T) {
	o := newTestOrrery(t, nil)
	if status := o.Frame(context.Background()); status != Continue {
		t.Errorf("Frame() = %v, want continue", status)
	}
}

func TestMaxFrames(t *testing.T) {
	tests := []struct {
		name string
		max  uint64
		want uint64
	}{
		{"One", 1, 1},
		{"Ten", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &stubRenderer{}
			o := newTestOrrery(t, r)
			o.StopCondition = MaxFrames(tt.max)

			ran, err := o.Run(context.Background(), NewLoop(0, nil, logging.Discard()))
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if ran != tt.want || o.World.Frames() != tt.want {
				t.Errorf("ran %d frames, world at %d, want %d", ran, o.World.Frames(), tt.want)
			}
			if r.closes != 1 {
				t.Errorf("renderer closed %d times, want 1", r.closes)
			}
		})
	}
}

func TestMaxFrames_ZeroNeverStops(t *testing.T) {
	o := newTestOrrery(t, nil)
	cond := MaxFrames(0)
	for i := 0; i < 100; i++ {
		o.World.Update()
		if cond.ShouldStop(o) {
			t.Fatalf("MaxFrames(0) stopped at frame %d", o.World.Frames())
		}
	}
}

func TestOrrery_OnResize(t *testing.T) {
	bus := event.NewEventBus()
	o, err := NewOrrery(context.Background(), config.DefaultConfig(), catalog.Default(), nil,
		Options{Logger: logging.Discard(), Bus: bus})
	if err != nil {
		t.Fatalf("NewOrrery() error = %v", err)
	}

	var got *event.ResizeEvent
	bus.Subscribe(event.ViewportResized, func(e event.Event) {
		got = e.(*event.ResizeEvent)
	})

	o.OnResize(400, 200)

	if o.Camera.Aspect != 2 {
		t.Errorf("aspect = %v, want 2", o.Camera.Aspect)
	}
	if got == nil || got.Width != 400 || got.Height != 200 {
		t.Errorf("resize event = %+v, want 400x200", got)
	}
}

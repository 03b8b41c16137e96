package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/opd-ai/go-orrery/pkg/assets"
	"github.com/opd-ai/go-orrery/pkg/camera"
	"github.com/opd-ai/go-orrery/pkg/catalog"
	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/render"
	"github.com/opd-ai/go-orrery/pkg/scene"
	"github.com/opd-ai/go-orrery/pkg/world"
)

// StopCondition decides after each frame whether the orrery should stop.
type StopCondition interface {
	ShouldStop(o *Orrery) bool
}

// StopFunc adapts a function to StopCondition.
type StopFunc func(o *Orrery) bool

// ShouldStop implements StopCondition.
func (f StopFunc) ShouldStop(o *Orrery) bool {
	return f(o)
}

// MaxFrames stops once the world has advanced n frames. n = 0 never stops.
func MaxFrames(n uint64) StopCondition {
	return StopFunc(func(o *Orrery) bool {
		return n > 0 && o.World.Frames() >= n
	})
}

// Orrery ties the world to a camera and a renderer. Frame must only be called
// from one goroutine.
type Orrery struct {
	World    *world.World
	Renderer render.Renderer
	Camera   *camera.PerspectiveCamera
	Controls *camera.OrbitControls

	StopCondition StopCondition

	Bus    *event.Bus
	Logger *logging.Logger
}

// Options carries the optional collaborators of NewOrrery.
type Options struct {
	Logger *logging.Logger
	Bus    *event.Bus
	// Loader supplies textures. Without one bodies are drawn in their base colors.
	Loader *assets.Loader
}

// NewOrrery builds the scene from cfg and cat: materials, lights, background,
// the composed world, and the camera with its controls. The renderer may be nil
// and set later, as the engo renderer only exists once its window is up.
func NewOrrery(ctx context.Context, cfg *config.SceneConfig, cat catalog.Catalog, renderer render.Renderer, opts Options) (*Orrery, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}

	materials, err := world.BuildMaterials(ctx, cfg.Assets, opts.Loader)
	if err != nil {
		return nil, fmt.Errorf("failed to build materials: %w", err)
	}
	lights, err := world.BuildLights(cfg.Lights)
	if err != nil {
		return nil, fmt.Errorf("failed to build lights: %w", err)
	}

	sc := scene.New()
	for _, l := range lights {
		sc.AddLight(l)
	}
	sc.Background = world.LoadBackground(ctx, cfg.Assets.Background, opts.Loader)

	w := world.Compose(ctx, cat, sc, materials, world.Options{Logger: logger, Bus: opts.Bus})

	cam := camera.FromConfig(cfg.Camera, cfg.Window.Width, cfg.Window.Height)
	controls := camera.ControlsFromConfig(cam, cfg.Controls)

	return &Orrery{
		World:         w,
		Renderer:      renderer,
		Camera:        cam,
		Controls:      controls,
		StopCondition: MaxFrames(cfg.Loop.MaxFrames),
		Bus:           opts.Bus,
		Logger:        logger,
	}, nil
}

// Frame advances the world one step, applies pending camera input and renders.
// It returns Stop when the renderer has been closed or the stop condition is
// met. Other render errors are logged and the orrery keeps going.
func (o *Orrery) Frame(ctx context.Context) Status {
	o.World.Update()
	if o.Controls != nil {
		o.Controls.Update()
	}

	if o.Renderer != nil {
		if err := o.Renderer.Render(o.World.Scene, o.Camera); err != nil {
			if errors.Is(err, render.ErrClosed) {
				o.Logger.Info(ctx, "renderer closed", "frame", o.World.Frames())
				return Stop
			}
			o.Logger.Error(ctx, "render failed", err, "frame", o.World.Frames())
		}
	}

	if o.StopCondition != nil && o.StopCondition.ShouldStop(o) {
		return Stop
	}
	return Continue
}

// OnResize adapts the camera to a new viewport and announces it. It does not
// resize the renderer, which is usually the one reporting the change.
func (o *Orrery) OnResize(width, height int) {
	o.Camera.Resize(width, height)
	o.Bus.Publish(event.NewResizeEvent(o, width, height))
	o.Logger.Debug(context.Background(), "viewport resized", "width", width, "height", height, "aspect", o.Camera.Aspect)
}

// Run drives Frame from loop until it stops, then closes the renderer.
func (o *Orrery) Run(ctx context.Context, loop *Loop) (uint64, error) {
	frames, err := loop.Run(ctx, o.Frame)
	if o.Renderer != nil {
		if cerr := o.Renderer.Close(); cerr != nil {
			o.Logger.Error(ctx, "failed to close renderer", cerr)
		}
	}
	return frames, err
}

// Package engo draws the orrery in a window with the engo game engine. Bodies
// are sprites placed at their perspective projection each frame; the engine's
// update callback drives the frame loop.
package engo

import (
	"context"
	"image/color"
	"sync"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/engine"
	"github.com/opd-ai/go-orrery/pkg/logging"
)

// SceneType is the engo scene type name.
const SceneType = "OrreryScene"

// OrreryScene runs an orrery inside engo.
type OrreryScene struct {
	ctx    context.Context
	orrery *engine.Orrery
	logger *logging.Logger

	renderer *EngoRenderer
	camera   *CameraSystem
	input    *InputSystem
	hud      *HUDSystem
	frames   *FrameSystem
}

// NewOrreryScene creates a scene driving o. o.Renderer is replaced by the
// window renderer during Setup.
func NewOrreryScene(ctx context.Context, o *engine.Orrery, logger *logging.Logger) *OrreryScene {
	if logger == nil {
		logger = o.Logger
	}
	return &OrreryScene{
		ctx:    ctx,
		orrery: o,
		logger: logger,
	}
}

// Type returns the scene type (required by Engo)
func (scene *OrreryScene) Type() string {
	return SceneType
}

// Preload is called before the scene starts (required by Engo)
func (scene *OrreryScene) Preload() {
	if err := LoadFont(); err != nil {
		scene.logger.Warn(scene.ctx, "HUD disabled", "error", err.Error())
	}
}

// Setup is called when the scene starts (required by Engo)
func (scene *OrreryScene) Setup(u engo.Updater) {
	world, ok := u.(*ecs.World)
	if !ok {
		scene.logger.Error(scene.ctx, "unexpected engo updater", nil)
		engo.Exit()
		return
	}
	common.SetBackground(color.Black)
	SetupInputBindings()

	renderSystem := &common.RenderSystem{}
	world.AddSystem(renderSystem)

	// Initialize renderer
	scene.renderer = NewEngoRenderer(renderSystem, NewAssetManager(nil), scene.logger)
	scene.orrery.Renderer = scene.renderer
	scene.resize(int(engo.WindowWidth()), int(engo.WindowHeight()))

	// Initialize camera and input systems
	scene.camera = NewCameraSystem(scene.orrery.Controls)
	world.AddSystem(scene.camera)
	scene.input = NewInputSystem(scene.orrery.Controls, func() { scene.renderer.Close() })
	world.AddSystem(scene.input)

	// Initialize HUD system
	scene.hud = NewHUDSystem(scene.orrery.World)
	if err := scene.hud.Setup(renderSystem); err != nil {
		scene.logger.Warn(scene.ctx, "HUD disabled", "error", err.Error())
	}
	world.AddSystem(scene.hud)

	scene.frames = NewFrameSystem(scene.ctx, scene.orrery, engo.Exit)
	world.AddSystem(scene.frames)

	engo.Mailbox.Listen("WindowResizeMessage", func(msg engo.Message) {
		if m, ok := msg.(engo.WindowResizeMessage); ok {
			scene.resize(m.NewWidth, m.NewHeight)
		}
	})

	scene.logger.Info(scene.ctx, "engo scene ready", "bodies", len(scene.orrery.World.Bodies()))
}

func (scene *OrreryScene) resize(width, height int) {
	scene.renderer.Resize(width, height)
	scene.orrery.OnResize(width, height)
}

// Exit is called when the scene is exiting
func (scene *OrreryScene) Exit() {
	if scene.renderer != nil {
		scene.renderer.Close()
	}
	scene.logger.Info(scene.ctx, "engo scene exited", "frames", scene.orrery.World.Frames())
}

// FrameSystem calls Orrery.Frame on every engo update and ends the program
// once a frame returns Stop.
type FrameSystem struct {
	ctx    context.Context
	orrery *engine.Orrery
	exit   func()
	once   sync.Once
}

// NewFrameSystem creates a frame system. exit runs once, on the first Stop.
func NewFrameSystem(ctx context.Context, o *engine.Orrery, exit func()) *FrameSystem {
	return &FrameSystem{ctx: ctx, orrery: o, exit: exit}
}

// Remove satisfies the ecs.System interface
func (fs *FrameSystem) Remove(basic ecs.BasicEntity) {}

// Priority runs frames before the render system draws.
func (fs *FrameSystem) Priority() int {
	return 10
}

// Update runs one frame.
func (fs *FrameSystem) Update(dt float32) {
	if fs.ctx.Err() != nil || fs.orrery.Frame(fs.ctx) == engine.Stop {
		fs.once.Do(fs.exit)
	}
}

// RunOptions maps the window configuration to engo run options.
func RunOptions(cfg config.WindowConfig) engo.RunOptions {
	return engo.RunOptions{
		Title:        cfg.Title,
		Width:        cfg.Width,
		Height:       cfg.Height,
		Fullscreen:   cfg.Fullscreen,
		VSync:        cfg.VSync,
		NotResizable: false,
	}
}

// Run opens the window and blocks until the scene exits.
func Run(cfg config.WindowConfig, scene *OrreryScene) {
	engo.Run(RunOptions(cfg), scene)
}

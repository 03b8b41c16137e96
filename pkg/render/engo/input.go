package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-orrery/pkg/camera"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

// Button names registered by SetupInputBindings.
const (
	ButtonRotateLeft  = "rotateLeft"
	ButtonRotateRight = "rotateRight"
	ButtonRotateUp    = "rotateUp"
	ButtonRotateDown  = "rotateDown"
	ButtonZoomIn      = "zoomIn"
	ButtonZoomOut     = "zoomOut"
	ButtonResetView   = "resetView"
	ButtonQuit        = "quit"
)

// InputSystem handles the keys that are not camera motion: quitting and
// resetting the view.
type InputSystem struct {
	controls *camera.OrbitControls
	home     physics.Vector3D
	onQuit   func()
}

// NewInputSystem creates an input system. The controlled camera's current
// position is restored by the reset key; onQuit runs when the quit key is pressed.
func NewInputSystem(controls *camera.OrbitControls, onQuit func()) *InputSystem {
	return &InputSystem{
		controls: controls,
		home:     controls.Camera.Position,
		onQuit:   onQuit,
	}
}

// Add satisfies the ecs.System interface
func (is *InputSystem) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
	// Not used for input system
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(basic ecs.BasicEntity) {
	// Not used for input system
}

// Update processes this frame's key presses.
func (is *InputSystem) Update(dt float32) {
	if engo.Input.Button(ButtonResetView).JustPressed() {
		is.ResetView()
	}
	if engo.Input.Button(ButtonQuit).JustPressed() {
		is.Quit()
	}
}

// ResetView moves the camera back to where it started and cancels motion
// still queued on the controls.
func (is *InputSystem) ResetView() {
	is.controls.Reset()
	is.controls.Camera.Position = is.home
}

// Quit runs the quit callback.
func (is *InputSystem) Quit() {
	if is.onQuit != nil {
		is.onQuit()
	}
}

// SetupInputBindings sets up the key bindings
func SetupInputBindings() {
	// Camera
	engo.Input.RegisterButton(ButtonRotateLeft, engo.KeyArrowLeft, engo.KeyA)
	engo.Input.RegisterButton(ButtonRotateRight, engo.KeyArrowRight, engo.KeyD)
	engo.Input.RegisterButton(ButtonRotateUp, engo.KeyArrowUp, engo.KeyW)
	engo.Input.RegisterButton(ButtonRotateDown, engo.KeyArrowDown, engo.KeyS)
	engo.Input.RegisterButton(ButtonZoomIn, engo.KeyEquals)
	engo.Input.RegisterButton(ButtonZoomOut, engo.KeyDash)

	// View
	engo.Input.RegisterButton(ButtonResetView, engo.KeyR)
	engo.Input.RegisterButton(ButtonQuit, engo.KeyEscape, engo.KeyQ)
}

package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"github.com/chewxy/math32"

	"github.com/opd-ai/go-orrery/pkg/camera"
)

// CameraSystem turns mouse drags, the scroll wheel and arrow keys into orbit
// control input.
type CameraSystem struct {
	controls *camera.OrbitControls

	// Radians per key press frame and zoom factor per scroll notch.
	keyRotateSpeed float32
	zoomStep       float32

	// Drag state
	dragging   bool
	lastX      float32
	lastY      float32
	viewHeight float32
}

// NewCameraSystem creates a camera system driving controls.
func NewCameraSystem(controls *camera.OrbitControls) *CameraSystem {
	return &CameraSystem{
		controls:       controls,
		keyRotateSpeed: 0.03,
		zoomStep:       0.95,
		viewHeight:     1,
	}
}

// Add satisfies the ecs.System interface
func (cs *CameraSystem) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
	// Not used for camera system
}

// Remove satisfies the ecs.System interface
func (cs *CameraSystem) Remove(basic ecs.BasicEntity) {
	// Not used for camera system
}

// Update reads this frame's input. The controls themselves are applied by the
// frame driver so damping advances once per frame in every renderer.
func (cs *CameraSystem) Update(dt float32) {
	cs.SetViewHeight(engo.WindowHeight())
	cs.handleMouse()
	cs.handleKeys()
}

func (cs *CameraSystem) handleMouse() {
	mouse := engo.Input.Mouse
	switch mouse.Action {
	case engo.Press:
		cs.BeginDrag(mouse.X, mouse.Y)
	case engo.Release:
		cs.EndDrag()
	case engo.Move:
		cs.DragTo(mouse.X, mouse.Y)
	}
	if mouse.ScrollY != 0 {
		cs.Scroll(mouse.ScrollY)
	}
}

func (cs *CameraSystem) handleKeys() {
	var dTheta, dPhi float32
	if engo.Input.Button(ButtonRotateLeft).Down() {
		dTheta -= cs.keyRotateSpeed
	}
	if engo.Input.Button(ButtonRotateRight).Down() {
		dTheta += cs.keyRotateSpeed
	}
	if engo.Input.Button(ButtonRotateUp).Down() {
		dPhi -= cs.keyRotateSpeed
	}
	if engo.Input.Button(ButtonRotateDown).Down() {
		dPhi += cs.keyRotateSpeed
	}
	if dTheta != 0 || dPhi != 0 {
		cs.controls.Rotate(float64(dTheta), float64(dPhi))
	}
	if engo.Input.Button(ButtonZoomIn).Down() {
		cs.Scroll(1)
	}
	if engo.Input.Button(ButtonZoomOut).Down() {
		cs.Scroll(-1)
	}
}

// BeginDrag starts a rotation drag at window position (x, y).
func (cs *CameraSystem) BeginDrag(x, y float32) {
	cs.dragging = true
	cs.lastX, cs.lastY = x, y
}

// DragTo rotates by the distance moved since the last drag position. A drag
// across the full window height turns the camera once around.
func (cs *CameraSystem) DragTo(x, y float32) {
	if !cs.dragging {
		return
	}
	dx, dy := x-cs.lastX, y-cs.lastY
	cs.lastX, cs.lastY = x, y
	if math32.Hypot(dx, dy) == 0 {
		return
	}
	turn := 2 * math32.Pi / cs.viewHeight
	cs.controls.Rotate(float64(-dx*turn), float64(-dy*turn))
}

// EndDrag stops the current drag.
func (cs *CameraSystem) EndDrag() {
	cs.dragging = false
}

// Dragging reports whether a drag is in progress.
func (cs *CameraSystem) Dragging() bool {
	return cs.dragging
}

// Scroll zooms in for positive notches and out for negative ones.
func (cs *CameraSystem) Scroll(notches float32) {
	cs.controls.Dolly(float64(math32.Pow(cs.zoomStep, notches)))
}

// SetViewHeight sets the window height used to scale drags. Non-positive values are ignored.
func (cs *CameraSystem) SetViewHeight(height float32) {
	if height > 0 {
		cs.viewHeight = height
	}
}

// SetZoomStep sets the zoom factor per scroll notch, clamped to (0, 1).
func (cs *CameraSystem) SetZoomStep(step float32) {
	cs.zoomStep = math32.Min(math32.Max(step, 0.01), 0.99)
}

// GetZoomStep returns the zoom factor per scroll notch.
func (cs *CameraSystem) GetZoomStep() float32 {
	return cs.zoomStep
}

// SetKeyRotateSpeed sets the rotation in radians per frame a key is held.
func (cs *CameraSystem) SetKeyRotateSpeed(speed float32) {
	cs.keyRotateSpeed = math32.Abs(speed)
}

// GetKeyRotateSpeed returns the rotation in radians per frame a key is held.
func (cs *CameraSystem) GetKeyRotateSpeed() float32 {
	return cs.keyRotateSpeed
}

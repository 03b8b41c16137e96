package render

import (
	"context"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-orrery/pkg/camera"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/scene"
)

const (
	// RotateStep is the camera rotation in radians per arrow key press.
	RotateStep = 0.05
	// DollyStep is the zoom factor per +/- key press.
	DollyStep = 1.1
)

// TerminalRenderer draws the scene as colored glyphs on a tcell screen and turns
// key presses into orbit control input.
type TerminalRenderer struct {
	screen   tcell.Screen
	logger   *logging.Logger
	canvas   *Canvas
	controls *camera.OrbitControls
	onResize func(width, height int)

	events chan tcell.Event
	quit   chan struct{}

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// NewTerminalRenderer initializes screen and starts forwarding its events.
// The renderer owns the screen from here on and finalizes it on Close.
func NewTerminalRenderer(screen tcell.Screen, logger *logging.Logger) (*TerminalRenderer, error) {
	if logger == nil {
		logger = logging.NewLogger()
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal screen: %w", err)
	}
	screen.HideCursor()
	screen.Clear()

	r := &TerminalRenderer{
		screen: screen,
		logger: logger,
		canvas: NewCanvas(screen.Size()),
		events: make(chan tcell.Event, 64),
		quit:   make(chan struct{}),
	}
	go r.pollEvents()
	return r, nil
}

// NewTerminalScreen opens the controlling terminal.
func NewTerminalScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal screen: %w", err)
	}
	return screen, nil
}

// SetControls routes arrow and +/- keys to controls.
func (r *TerminalRenderer) SetControls(controls *camera.OrbitControls) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controls = controls
}

// OnResize registers fn to receive the new viewport, in square pixels, whenever
// the terminal changes size. It is called once right away with the current size.
func (r *TerminalRenderer) OnResize(fn func(width, height int)) {
	r.mu.Lock()
	r.onResize = fn
	w, h := r.canvas.Viewport()
	r.mu.Unlock()
	if fn != nil {
		fn(w, h)
	}
}

// Canvas returns the most recently rasterized frame.
func (r *TerminalRenderer) Canvas() *Canvas {
	return r.canvas
}

func (r *TerminalRenderer) pollEvents() {
	for {
		ev := r.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case r.events <- ev:
		case <-r.quit:
			return
		}
	}
}

// Render implements Renderer. Pending input is applied before drawing; a quit
// key closes the renderer and Render returns ErrClosed.
func (r *TerminalRenderer) Render(sc *scene.Scene, cam *camera.PerspectiveCamera) error {
	if r.isClosed() {
		return ErrClosed
	}

	for drained := false; !drained; {
		select {
		case ev := <-r.events:
			if r.handleEvent(ev) {
				r.Close()
				return ErrClosed
			}
		default:
			drained = true
		}
	}

	w, h := r.screen.Size()
	if w != r.canvas.Width || h != r.canvas.Height {
		r.Resize(w, h)
	}

	Rasterize(sc, cam, r.canvas)
	r.draw()
	return nil
}

// handleEvent applies one terminal event and reports whether it asks to quit.
func (r *TerminalRenderer) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return r.handleKey(ev)
	case *tcell.EventResize:
		r.screen.Sync()
		r.Resize(ev.Size())
	}
	return false
}

func (r *TerminalRenderer) handleKey(ev *tcell.EventKey) bool {
	r.mu.Lock()
	controls := r.controls
	r.mu.Unlock()

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyLeft:
		rotate(controls, -RotateStep, 0)
	case tcell.KeyRight:
		rotate(controls, RotateStep, 0)
	case tcell.KeyUp:
		rotate(controls, 0, -RotateStep)
	case tcell.KeyDown:
		rotate(controls, 0, RotateStep)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return true
		case '+', '=':
			dolly(controls, 1/DollyStep)
		case '-', '_':
			dolly(controls, DollyStep)
		}
	}
	return false
}

func rotate(controls *camera.OrbitControls, dTheta, dPhi float64) {
	if controls != nil {
		controls.Rotate(dTheta, dPhi)
	}
}

func dolly(controls *camera.OrbitControls, factor float64) {
	if controls != nil {
		controls.Dolly(factor)
	}
}

func (r *TerminalRenderer) draw() {
	c := r.canvas
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			cell := c.Cells[y*c.Width+x]
			style := tcell.StyleDefault.
				Background(tcell.ColorBlack).
				Foreground(tcell.NewRGBColor(int32(cell.Color.R), int32(cell.Color.G), int32(cell.Color.B)))
			r.screen.SetContent(x, y, cell.Glyph, nil, style)
		}
	}
	r.screen.Show()
}

// Resize implements Renderer. width and height are in character cells.
func (r *TerminalRenderer) Resize(width, height int) {
	r.mu.Lock()
	r.canvas.Resize(width, height)
	vw, vh := r.canvas.Viewport()
	fn := r.onResize
	r.mu.Unlock()

	r.logger.Debug(context.Background(), "terminal resized", "columns", width, "rows", height)
	if fn != nil {
		fn(vw, vh)
	}
}

// Close implements Renderer. It restores the terminal.
func (r *TerminalRenderer) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.quit)
		r.screen.Fini()
	})
	return nil
}

func (r *TerminalRenderer) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

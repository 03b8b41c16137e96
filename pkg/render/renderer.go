// Package render draws a scene through a camera. Implementations: NullRenderer
// (logging only), TerminalRenderer (tcell) and the engo window renderer in the
// engo subpackage.
package render

import (
	"context"
	"errors"
	"sync"

	"github.com/opd-ai/go-orrery/pkg/camera"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/scene"
)

// ErrClosed is returned by Render once the renderer has been closed, by the
// caller or by the user closing the window or terminal.
var ErrClosed = errors.New("renderer closed")

// Renderer draws one frame of a scene.
type Renderer interface {
	Render(sc *scene.Scene, cam *camera.PerspectiveCamera) error
	Resize(width, height int)
	Close() error
}

// NullRenderer draws nothing and logs each frame at debug level.
type NullRenderer struct {
	logger *logging.Logger

	mu     sync.Mutex
	frames uint64
	width  int
	height int
	closed bool
}

// NewNullRenderer creates a new NullRenderer with structured logging. A nil
// logger logs to stdout.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &NullRenderer{logger: logger}
}

// Render implements Renderer.
func (r *NullRenderer) Render(sc *scene.Scene, cam *camera.PerspectiveCamera) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.frames++

	ctx := context.Background()
	if sc == nil {
		r.logger.Debug(ctx, "Render called with nil scene", "frame", r.frames)
		return nil
	}

	drawables := sc.Drawables()
	r.logger.Debug(ctx, "Render called",
		"frame", r.frames,
		"drawables", len(drawables),
		"lights", len(sc.Lights),
	)
	for _, d := range drawables {
		args := []any{
			"frame", r.frames,
			"node", d.Node.Name,
			"x", d.Center.X,
			"y", d.Center.Y,
			"z", d.Center.Z,
			"radius", d.Radius,
		}
		if cam != nil && r.width > 0 && r.height > 0 {
			if screen, depth, ok := cam.Project(d.Center, r.width, r.height); ok {
				args = append(args, "screen_x", screen.X, "screen_y", screen.Y, "depth", depth)
			}
		}
		r.logger.Debug(ctx, "RenderNode called", args...)
	}
	return nil
}

// Resize implements Renderer.
func (r *NullRenderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = width, height
	r.logger.Debug(context.Background(), "Resize called", "width", width, "height", height)
}

// Close implements Renderer.
func (r *NullRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Frames returns the number of frames rendered.
func (r *NullRenderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

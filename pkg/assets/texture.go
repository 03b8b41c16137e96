// Package assets loads textures off the frame thread. Handles are returned at
// once and fill in when decoding finishes; renderers fall back to a material's
// base color until then.
package assets

import (
	"image"
	"image/color"
	"math"
	"sync"
)

// State is the load state of a texture.
type State int32

const (
	Pending State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Texture is a 2D image that may still be loading.
type Texture struct {
	Path string

	mu    sync.RWMutex
	state State
	img   *image.NRGBA
	err   error
	done  chan struct{}
}

func newTexture(path string) *Texture {
	return &Texture{Path: path, done: make(chan struct{})}
}

// NewTextureFromImage returns a texture that is already Ready.
func NewTextureFromImage(name string, img image.Image) *Texture {
	t := newTexture(name)
	t.settle(toNRGBA(img), nil)
	t.release()
	return t
}

// State reports whether the texture is pending, ready or failed.
func (t *Texture) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Image returns the decoded image, or nil unless the texture is Ready.
func (t *Texture) Image() *image.NRGBA {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.img
}

// Err returns the load error of a Failed texture.
func (t *Texture) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Done is closed once the texture is Ready or Failed.
func (t *Texture) Done() <-chan struct{} {
	return t.done
}

// Sample returns the texel at (u, v). u wraps around, v is clamped to [0, 1],
// with v = 0 at the top row. ok is false until the texture is Ready.
func (t *Texture) Sample(u, v float64) (c color.NRGBA, ok bool) {
	img := t.Image()
	if img == nil {
		return color.NRGBA{}, false
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return color.NRGBA{}, false
	}

	u -= math.Floor(u)
	v = math.Max(0, math.Min(1, v))
	x := int(u * float64(w))
	y := int(v * float64(h))
	if x >= w {
		x = w - 1
	}
	if y >= h {
		y = h - 1
	}
	return img.NRGBAAt(b.Min.X+x, b.Min.Y+y), true
}

// settle moves the texture out of Pending. Only the first call has an effect;
// the caller must then call release.
func (t *Texture) settle(img *image.NRGBA, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Pending {
		return false
	}
	if err != nil {
		t.state = Failed
		t.err = err
	} else {
		t.state = Ready
		t.img = img
	}
	return true
}

// release wakes everything waiting on Done.
func (t *Texture) release() {
	close(t.done)
}

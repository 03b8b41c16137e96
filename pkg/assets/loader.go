package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"io/fs"
	"path"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/resource"
	"github.com/opd-ai/go-orrery/pkg/validation"
)

// ErrBreakerOpen is returned for loads refused while the loader's circuit breaker is open.
var ErrBreakerOpen = fmt.Errorf("texture loading suspended: %w", gobreaker.ErrOpenState)

// Config holds the loader limits.
type Config struct {
	MaxTextureSize      int
	MaxConsecutiveFails int
	BreakerInterval     time.Duration
	BreakerTimeout      time.Duration
}

// NewConfig combines the scene asset settings with the environment breaker settings.
func NewConfig(assets config.AssetsConfig, env *config.EnvironmentConfig) Config {
	return Config{
		MaxTextureSize:      assets.MaxTextureSize,
		MaxConsecutiveFails: env.AssetBreakerMaxConsecutiveFails,
		BreakerInterval:     env.AssetBreakerInterval,
		BreakerTimeout:      env.AssetBreakerTimeout,
	}
}

// Loader decodes textures from a file system on tracked goroutines. Loads run
// through a circuit breaker so a missing asset directory fails fast instead of
// repeating the same error for every material.
type Loader struct {
	fsys      fs.FS
	maxSize   int
	breaker   *gobreaker.CircuitBreaker
	resources *resource.ResourceManager
	bus       *event.Bus
	logger    *logging.Logger

	mu    sync.Mutex
	cache map[string]*Texture
}

// NewLoader creates a loader reading from fsys. resources may be nil, in which
// case loads decode on the caller's goroutine. bus may be nil.
func NewLoader(fsys fs.FS, cfg Config, resources *resource.ResourceManager, bus *event.Bus, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.NewLogger()
	}
	maxFails := cfg.MaxConsecutiveFails
	if maxFails < 1 {
		maxFails = 1
	}

	settings := gobreaker.Settings{
		Name:     "texture-loader",
		Interval: cfg.BreakerInterval,
		Timeout:  cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Loader{
		fsys:      fsys,
		maxSize:   cfg.MaxTextureSize,
		breaker:   gobreaker.NewCircuitBreaker(settings),
		resources: resources,
		bus:       bus,
		logger:    logger,
		cache:     make(map[string]*Texture),
	}
}

// Load2D returns the texture for name, starting a load if this is the first
// request for it. The handle is usable immediately.
func (l *Loader) Load2D(ctx context.Context, name string) *Texture {
	key := path.Clean(name)

	l.mu.Lock()
	if tex, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return tex
	}
	tex := newTexture(key)
	l.cache[key] = tex
	l.mu.Unlock()

	if err := validation.ValidateAssetPath("texture", name); err != nil {
		l.finish(ctx, tex, nil, err)
		return tex
	}

	load := func(ctx context.Context) {
		img, err := l.load(ctx, key)
		l.finish(ctx, tex, img, err)
	}

	if l.resources == nil {
		load(ctx)
		return tex
	}
	if err := l.resources.StartGoroutine(ctx, "texture:"+key, load); err != nil {
		if errors.Is(err, resource.ErrShuttingDown) {
			l.finish(ctx, tex, nil, err)
			return tex
		}
		// Worker limit reached: decode inline rather than drop the texture.
		l.logger.Debug(ctx, "decoding texture inline", "path", key, "reason", err.Error())
		load(ctx)
	}
	return tex
}

// LoadCubemap loads six faces from dir, in +X, -X, +Y, -Y, +Z, -Z order.
func (l *Loader) LoadCubemap(ctx context.Context, dir string, faces [6]string) *Cubemap {
	cube := &Cubemap{}
	for i, face := range faces {
		cube.Faces[i] = l.Load2D(ctx, path.Join(dir, face))
	}
	return cube
}

// Wait blocks until every texture requested so far has settled or ctx is done.
func (l *Loader) Wait(ctx context.Context) error {
	l.mu.Lock()
	pending := make([]*Texture, 0, len(l.cache))
	for _, tex := range l.cache {
		pending = append(pending, tex)
	}
	l.mu.Unlock()

	for _, tex := range pending {
		select {
		case <-tex.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// BreakerState reports the state of the loader's circuit breaker.
func (l *Loader) BreakerState() gobreaker.State {
	return l.breaker.State()
}

func (l *Loader) load(ctx context.Context, name string) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := l.breaker.Execute(func() (interface{}, error) {
		return l.decode(name)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w", name, ErrBreakerOpen)
		}
		return nil, err
	}
	return result.(*image.NRGBA), nil
}

func (l *Loader) decode(name string) (*image.NRGBA, error) {
	f, err := l.fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture %s: %w", name, err)
	}
	l.logger.Debug(context.Background(), "texture decoded",
		"path", name,
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
	)
	return downscale(img, l.maxSize), nil
}

func (l *Loader) finish(ctx context.Context, tex *Texture, img *image.NRGBA, err error) {
	if !tex.settle(img, err) {
		return
	}
	defer tex.release()
	if err != nil {
		l.logger.Warn(ctx, "texture load failed, using base color", "path", tex.Path, "error", err.Error())
	} else {
		l.logger.Debug(ctx, "texture ready", "path", tex.Path)
	}
	l.bus.Publish(event.NewTextureEvent(l, tex.Path, err))
}

// downscale converts img to NRGBA, shrinking it so neither side exceeds limit.
// A limit of zero or less keeps the original size.
func downscale(img image.Image, limit int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if limit <= 0 || (w <= limit && h <= limit) {
		return toNRGBA(img)
	}

	if w >= h {
		h = max(1, h*limit/w)
		w = limit
	} else {
		w = max(1, w*limit/h)
		h = limit
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

package engo

import (
	"context"
	"image/color"
	"sort"
	"sync"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"github.com/chewxy/math32"

	"github.com/opd-ai/go-orrery/pkg/camera"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/physics"
	"github.com/opd-ai/go-orrery/pkg/render"
	"github.com/opd-ai/go-orrery/pkg/scene"
)

// MinSpriteSize keeps distant bodies visible as at least a few pixels.
const MinSpriteSize = 2

// Z indices: the background sits below every body, bodies are ordered by depth.
const (
	backgroundZ = 0
	bodyZBase   = 1
)

// bodyEntity is the ecs entity drawing one scene node.
type bodyEntity struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

// Layout is where one node lands on screen in a frame.
type Layout struct {
	Node     *scene.Node
	Center   physics.Vector3D // world position
	Radius   float64          // world radius
	Position engo.Point       // top left corner
	Size     float32
	Depth    float64
	Visible  bool
}

// EngoRenderer implements render.Renderer by keeping one sprite entity per scene
// node in an engo RenderSystem and moving it to the node's projection every frame.
type EngoRenderer struct {
	renderSystem *common.RenderSystem
	assets       *AssetManager
	logger       *logging.Logger

	bodies     map[*scene.Node]*bodyEntity
	background *bodyEntity

	mu     sync.Mutex
	width  int
	height int
	closed bool
}

// NewEngoRenderer creates a renderer drawing through renderSystem.
func NewEngoRenderer(renderSystem *common.RenderSystem, am *AssetManager, logger *logging.Logger) *EngoRenderer {
	if am == nil {
		am = NewAssetManager(nil)
	}
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &EngoRenderer{
		renderSystem: renderSystem,
		assets:       am,
		logger:       logger,
		bodies:       make(map[*scene.Node]*bodyEntity),
	}
}

// Render implements render.Renderer.
func (r *EngoRenderer) Render(sc *scene.Scene, cam *camera.PerspectiveCamera) error {
	r.mu.Lock()
	closed, width, height := r.closed, r.width, r.height
	r.mu.Unlock()
	if closed {
		return render.ErrClosed
	}
	if sc == nil || cam == nil || width == 0 || height == 0 {
		return nil
	}

	r.updateBackground(sc, cam, width, height)
	for _, l := range LayoutScene(sc, cam, width, height) {
		e, exists := r.bodies[l.Node]
		if !l.Visible {
			if exists {
				e.RenderComponent.Hidden = true
			}
			continue
		}
		d := r.assets.Sprite(l.Node, SpriteLights(sc.Lights, cam, l.Center, l.Radius))
		if !exists {
			e = r.addBodyEntity(l.Node, d)
		}
		r.updateBodyComponents(e, l, d)
	}
	return nil
}

// Resize implements render.Renderer.
func (r *EngoRenderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = width, height
	r.logger.Debug(context.Background(), "window resized", "width", width, "height", height)
}

// Close implements render.Renderer. It removes every entity from the render system.
func (r *EngoRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for node, e := range r.bodies {
		r.remove(e)
		r.assets.Forget(node)
		delete(r.bodies, node)
	}
	if r.background != nil {
		r.remove(r.background)
		r.background = nil
	}
	return nil
}

func (r *EngoRenderer) remove(e *bodyEntity) {
	if r.renderSystem != nil {
		r.renderSystem.Remove(e.BasicEntity)
	}
}

// BodyCount returns the number of sprite entities. Entities are created the
// first time their node is on screen.
func (r *EngoRenderer) BodyCount() int {
	return len(r.bodies)
}

// addBodyEntity creates the entity drawing node with drawable d
func (r *EngoRenderer) addBodyEntity(node *scene.Node, d common.Drawable) *bodyEntity {
	e := &bodyEntity{BasicEntity: ecs.NewBasic()}
	e.RenderComponent = common.RenderComponent{
		Drawable: d,
		Color:    color.White,
		Scale:    engo.Point{X: 1, Y: 1},
	}
	e.SpaceComponent = common.SpaceComponent{
		Width:  SpriteSize,
		Height: SpriteSize,
	}
	r.bodies[node] = e
	if r.renderSystem != nil {
		r.renderSystem.Add(&e.BasicEntity, &e.RenderComponent, &e.SpaceComponent)
	}
	return e
}

// updateBodyComponents moves and scales a node entity to its layout
func (r *EngoRenderer) updateBodyComponents(e *bodyEntity, l Layout, d common.Drawable) {
	e.RenderComponent.Hidden = false
	e.RenderComponent.Drawable = d
	scale := l.Size / SpriteSize
	e.RenderComponent.Scale = engo.Point{X: scale, Y: scale}
	e.RenderComponent.SetZIndex(bodyZBase + float32(1/(1+l.Depth)))
	e.SpaceComponent.Position = l.Position
	e.SpaceComponent.Width = l.Size
	e.SpaceComponent.Height = l.Size
}

func (r *EngoRenderer) updateBackground(sc *scene.Scene, cam *camera.PerspectiveCamera, width, height int) {
	d := r.assets.Background(sc.Background, cam, width, height)
	if d == nil {
		return
	}
	if r.background == nil {
		r.background = &bodyEntity{BasicEntity: ecs.NewBasic()}
		r.background.RenderComponent.SetZIndex(backgroundZ)
		if r.renderSystem != nil {
			r.renderSystem.Add(&r.background.BasicEntity, &r.background.RenderComponent, &r.background.SpaceComponent)
		}
	}
	r.background.RenderComponent.Drawable = d
	r.background.RenderComponent.Scale = engo.Point{X: BackgroundScale, Y: BackgroundScale}
	r.background.SpaceComponent = common.SpaceComponent{
		Width:  float32(width),
		Height: float32(height),
	}
}

// LayoutScene projects every shaped node of sc through cam into a
// width × height window, farthest first.
func LayoutScene(sc *scene.Scene, cam *camera.PerspectiveCamera, width, height int) []Layout {
	drawables := sc.Drawables()
	out := make([]Layout, 0, len(drawables))
	for _, d := range drawables {
		l := Layout{Node: d.Node, Center: d.Center, Radius: d.Radius}
		screen, depth, ok := cam.Project(d.Center, width, height)
		l.Depth = depth
		if ok {
			radius := float32(cam.ProjectedRadius(d.Radius, depth, height))
			l.Size = math32.Max(2*radius, MinSpriteSize)
			l.Position = engo.Point{
				X: math32.Round(float32(screen.X) - l.Size/2),
				Y: math32.Round(float32(screen.Y) - l.Size/2),
			}
			l.Visible = onScreen(l, float32(width), float32(height))
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Depth > out[j].Depth })
	return out
}

func onScreen(l Layout, width, height float32) bool {
	return l.Position.X+l.Size >= 0 && l.Position.Y+l.Size >= 0 &&
		l.Position.X <= width && l.Position.Y <= height
}

package engo

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"github.com/chewxy/math32"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/opd-ai/go-orrery/pkg/world"
)

// FontURL is the name the HUD font is registered under in engo.Files.
const FontURL = "goregular.ttf"

// fpsSmoothing is the weight of the newest frame in the frame rate average.
const fpsSmoothing = 0.1

// LoadFont registers the bundled Go Regular font with engo.Files.
func LoadFont() error {
	if err := engo.Files.LoadReaderData(FontURL, bytes.NewReader(goregular.TTF)); err != nil {
		return fmt.Errorf("failed to load HUD font: %w", err)
	}
	return nil
}

type hudEntity struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

// HUDSystem shows the frame counter, body count and frame rate in the top left corner.
type HUDSystem struct {
	world *world.World

	font *common.Font
	text *hudEntity
	last string

	fps float32

	hudColor color.Color
	fontSize float64
	margin   float32
}

// NewHUDSystem creates a new HUD system reporting on w.
func NewHUDSystem(w *world.World) *HUDSystem {
	return &HUDSystem{
		world:    w,
		hudColor: color.RGBA{255, 255, 255, 255},
		fontSize: 14,
		margin:   10,
	}
}

// Add satisfies the ecs.System interface
func (hud *HUDSystem) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
	// Not used for HUD system
}

// Remove satisfies the ecs.System interface
func (hud *HUDSystem) Remove(basic ecs.BasicEntity) {
	// Not used for HUD system
}

// Setup creates the text entity in rs. It needs the font loaded by LoadFont.
func (hud *HUDSystem) Setup(rs *common.RenderSystem) error {
	hud.font = &common.Font{
		URL:  FontURL,
		FG:   hud.hudColor,
		Size: hud.fontSize,
	}
	if err := hud.font.CreatePreloaded(); err != nil {
		return fmt.Errorf("failed to create HUD font: %w", err)
	}

	hud.text = &hudEntity{BasicEntity: ecs.NewBasic()}
	hud.text.RenderComponent = common.RenderComponent{
		Drawable: common.Text{Font: hud.font, Text: ""},
		Color:    hud.hudColor,
	}
	hud.text.RenderComponent.SetShader(common.TextHUDShader)
	hud.text.RenderComponent.SetZIndex(1000)
	hud.text.SpaceComponent = common.SpaceComponent{
		Position: engo.Point{X: hud.margin, Y: hud.margin},
	}
	rs.Add(&hud.text.BasicEntity, &hud.text.RenderComponent, &hud.text.SpaceComponent)
	return nil
}

// Update refreshes the status text.
func (hud *HUDSystem) Update(dt float32) {
	hud.Tick(dt)
	status := hud.Status()
	if hud.text == nil || status == hud.last {
		return
	}
	hud.last = status
	hud.text.RenderComponent.Drawable = common.Text{Font: hud.font, Text: status}
	hud.text.SpaceComponent.Width = float32(len(status)) * float32(hud.fontSize) * 0.6
	hud.text.SpaceComponent.Height = float32(hud.fontSize)
}

// Tick folds one frame of dt seconds into the frame rate average.
func (hud *HUDSystem) Tick(dt float32) {
	if dt <= 0 || math32.IsInf(dt, 0) || math32.IsNaN(dt) {
		return
	}
	current := 1 / dt
	if hud.fps == 0 {
		hud.fps = current
		return
	}
	hud.fps += (current - hud.fps) * fpsSmoothing
}

// FPS returns the smoothed frame rate.
func (hud *HUDSystem) FPS() float32 {
	return hud.fps
}

// Status returns the text the HUD shows.
func (hud *HUDSystem) Status() string {
	var frames uint64
	var bodies int
	if hud.world != nil {
		frames = hud.world.Frames()
		bodies = len(hud.world.Bodies())
	}
	return fmt.Sprintf("frame %d  bodies %d  %.0f fps", frames, bodies, math32.Round(hud.fps))
}

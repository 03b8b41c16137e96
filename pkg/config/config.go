// pkg/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/opd-ai/go-orrery/pkg/physics"
	"github.com/opd-ai/go-orrery/pkg/validation"
)

// ValidationError reports one invalid configuration field.
type ValidationError = validation.ValidationError

// Renderer names accepted in SceneConfig.Renderer.
const (
	RendererEngo     = "engo"
	RendererTerminal = "terminal"
	RendererNull     = "null"
)

// Material kinds. Basic materials ignore lights; standard materials are lit.
const (
	MaterialBasic    = "basic"
	MaterialStandard = "standard"
)

// SceneConfig contains everything around the body table: window, camera, controls,
// lights, materials and the frame loop.
type SceneConfig struct {
	Renderer    string         `json:"renderer"`
	CatalogPath string         `json:"catalogPath,omitempty"`
	Window      WindowConfig   `json:"window"`
	Camera      CameraConfig   `json:"camera"`
	Controls    ControlsConfig `json:"controls"`
	Lights      LightsConfig   `json:"lights"`
	Assets      AssetsConfig   `json:"assets"`
	Loop        LoopConfig     `json:"loop"`
}

// WindowConfig contains window settings for the engo renderer
type WindowConfig struct {
	Title      string `json:"title"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Fullscreen bool   `json:"fullscreen"`
	VSync      bool   `json:"vsync"`
}

// CameraConfig describes the perspective camera. FOV is vertical, in degrees.
type CameraConfig struct {
	FOV      float64          `json:"fov"`
	Near     float64          `json:"near"`
	Far      float64          `json:"far"`
	Position physics.Vector3D `json:"position"`
	Target   physics.Vector3D `json:"target"`
}

// ControlsConfig contains orbit control settings
type ControlsConfig struct {
	EnableDamping bool    `json:"enableDamping"`
	DampingFactor float64 `json:"dampingFactor"`
	MinDistance   float64 `json:"minDistance"`
	MaxDistance   float64 `json:"maxDistance"`
	RotateSpeed   float64 `json:"rotateSpeed"`
	ZoomSpeed     float64 `json:"zoomSpeed"`
}

// LightConfig describes one light. Position and Decay only matter for point lights.
type LightConfig struct {
	Color     string           `json:"color"`
	Intensity float64          `json:"intensity"`
	Position  physics.Vector3D `json:"position"`
	Decay     float64          `json:"decay,omitempty"`
}

// LightsConfig contains the scene lights
type LightsConfig struct {
	Ambient LightConfig `json:"ambient"`
	Point   LightConfig `json:"point"`
}

// MaterialConfig describes one surface material.
type MaterialConfig struct {
	Kind    string `json:"kind"`
	Texture string `json:"texture,omitempty"`
	Color   string `json:"color,omitempty"`
	SRGB    bool   `json:"srgb"`
}

// BackgroundConfig names the six cube faces in +X, -X, +Y, -Y, +Z, -Z order.
type BackgroundConfig struct {
	Dir   string    `json:"dir"`
	Faces [6]string `json:"faces"`
}

// AssetsConfig contains texture and material settings
type AssetsConfig struct {
	TextureDir     string                    `json:"textureDir"`
	MaxTextureSize int                       `json:"maxTextureSize"`
	Materials      map[string]MaterialConfig `json:"materials"`
	Background     BackgroundConfig          `json:"background"`
}

// LoopConfig contains frame loop settings. TargetFPS 0 runs unpaced; MaxFrames 0 never stops.
type LoopConfig struct {
	TargetFPS float64 `json:"targetFPS"`
	MaxFrames uint64  `json:"maxFrames"`
}

// LoadConfig loads a configuration from a file
func LoadConfig(path string) (*SceneConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves a configuration to a file
func SaveConfig(config *SceneConfig, path string) error {
	if config == nil {
		return fmt.Errorf("cannot save nil config")
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns the default scene configuration
func DefaultConfig() *SceneConfig {
	return &SceneConfig{
		Renderer: RendererEngo,
		Window: WindowConfig{
			Title:  "Go Orrery",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Camera: CameraConfig{
			FOV:      35,
			Near:     0.1,
			Far:      400,
			Position: physics.Vector3D{X: 0, Y: 5, Z: 100},
		},
		Controls: ControlsConfig{
			EnableDamping: true,
			DampingFactor: 0.05,
			MinDistance:   20,
			MaxDistance:   200,
			RotateSpeed:   1,
			ZoomSpeed:     1,
		},
		Lights: LightsConfig{
			Ambient: LightConfig{Color: "#0fffff", Intensity: 0.4},
			Point:   LightConfig{Color: "#ffffff", Intensity: 1000, Decay: 2},
		},
		Assets: AssetsConfig{
			TextureDir:     "static/textures",
			MaxTextureSize: 512,
			Materials: map[string]MaterialConfig{
				"sun":     {Kind: MaterialBasic, Texture: "2k_sun.jpg", Color: "#ffcc33", SRGB: true},
				"mercury": {Kind: MaterialStandard, Texture: "2k_mercury.jpg", Color: "#9a9a9a", SRGB: true},
				"venus":   {Kind: MaterialStandard, Texture: "2k_venus_surface.jpg", Color: "#d9a45b", SRGB: true},
				"earth":   {Kind: MaterialStandard, Texture: "2k_earth_daymap.jpg", Color: "#3a6fd8", SRGB: true},
				"mars":    {Kind: MaterialStandard, Texture: "2k_mars.jpg", Color: "#c1440e", SRGB: true},
				"moon":    {Kind: MaterialStandard, Texture: "2k_moon.jpg", Color: "#bbbbbb", SRGB: true},
			},
			Background: BackgroundConfig{
				Dir:   "cubeMap",
				Faces: [6]string{"px.png", "nx.png", "py.png", "ny.png", "pz.png", "nz.png"},
			},
		},
		Loop: LoopConfig{
			TargetFPS: 60,
		},
	}
}

// MaterialIDs returns the configured material ids in sorted order.
func (c *SceneConfig) MaterialIDs() []string {
	ids := make([]string, 0, len(c.Assets.Materials))
	for id := range c.Assets.Materials {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks the scene configuration. The first problem found is returned.
func (c *SceneConfig) Validate() error {
	switch c.Renderer {
	case RendererEngo, RendererTerminal, RendererNull:
	default:
		return &ValidationError{Field: "Renderer", Reason: fmt.Sprintf("unknown renderer %q", c.Renderer)}
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return &ValidationError{Field: "Window", Reason: "width and height must be positive"}
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		return &ValidationError{Field: "Camera.FOV", Reason: "must be between 0 and 180 degrees"}
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return &ValidationError{Field: "Camera.Near", Reason: "need 0 < near < far"}
	}
	if c.Controls.MinDistance <= 0 || c.Controls.MaxDistance < c.Controls.MinDistance {
		return &ValidationError{Field: "Controls.MinDistance", Reason: "need 0 < minDistance <= maxDistance"}
	}
	if c.Controls.EnableDamping && (c.Controls.DampingFactor <= 0 || c.Controls.DampingFactor > 1) {
		return &ValidationError{Field: "Controls.DampingFactor", Reason: "must be in (0, 1]"}
	}
	if err := validateLight("Lights.Ambient", c.Lights.Ambient); err != nil {
		return err
	}
	if err := validateLight("Lights.Point", c.Lights.Point); err != nil {
		return err
	}
	if c.Assets.MaxTextureSize <= 0 {
		return &ValidationError{Field: "Assets.MaxTextureSize", Reason: "must be positive"}
	}
	for _, id := range c.MaterialIDs() {
		if err := validateMaterial(id, c.Assets.Materials[id]); err != nil {
			return err
		}
	}
	for i, face := range c.Assets.Background.Faces {
		if face == "" {
			continue
		}
		if err := validation.ValidateAssetPath(fmt.Sprintf("Assets.Background.Faces[%d]", i), face); err != nil {
			return err
		}
	}
	if c.Loop.TargetFPS < 0 {
		return &ValidationError{Field: "Loop.TargetFPS", Reason: "cannot be negative"}
	}
	return nil
}

func validateLight(field string, l LightConfig) error {
	if err := validation.ValidateHexColor(field+".Color", l.Color); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative(field+".Intensity", l.Intensity); err != nil {
		return err
	}
	return validation.ValidateNonNegative(field+".Decay", l.Decay)
}

func validateMaterial(id string, m MaterialConfig) error {
	field := "Assets.Materials." + id
	if err := validation.ValidateMaterialID(field, id); err != nil {
		return err
	}
	if m.Kind != MaterialBasic && m.Kind != MaterialStandard {
		return &ValidationError{Field: field + ".Kind", Reason: fmt.Sprintf("unknown material kind %q", m.Kind)}
	}
	if m.Texture != "" {
		if err := validation.ValidateAssetPath(field+".Texture", m.Texture); err != nil {
			return err
		}
	}
	return validation.ValidateHexColor(field+".Color", m.Color)
}

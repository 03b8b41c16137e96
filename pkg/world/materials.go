package world

import (
	"context"
	"fmt"
	"sort"

	"github.com/opd-ai/go-orrery/pkg/assets"
	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/scene"
)

// Materials maps material ids to materials.
type Materials map[string]*scene.Material

// IDs returns the material ids in sorted order.
func (m Materials) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BuildMaterials creates the material table from configuration. Textures are
// requested from loader, which may be nil to use base colors only.
func BuildMaterials(ctx context.Context, cfg config.AssetsConfig, loader *assets.Loader) (Materials, error) {
	out := make(Materials, len(cfg.Materials))
	ids := make([]string, 0, len(cfg.Materials))
	for id := range cfg.Materials {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		mc := cfg.Materials[id]
		base, err := scene.ParseColor(mc.Color)
		if err != nil {
			return nil, fmt.Errorf("material %s: %w", id, err)
		}

		var kind scene.MaterialKind
		switch mc.Kind {
		case config.MaterialBasic:
			kind = scene.Basic
		case config.MaterialStandard:
			kind = scene.Standard
		default:
			return nil, fmt.Errorf("material %s: unknown kind %q", id, mc.Kind)
		}

		var tex *assets.Texture
		if mc.Texture != "" && loader != nil {
			tex = loader.Load2D(ctx, mc.Texture)
		}

		m := scene.NewMaterial(id, kind, tex)
		m.Color = base
		m.SRGB = mc.SRGB
		out[id] = m
	}
	return out, nil
}

// BuildLights creates the ambient light and the point light at the origin.
func BuildLights(cfg config.LightsConfig) ([]scene.Light, error) {
	ambient, err := scene.ParseColor(cfg.Ambient.Color)
	if err != nil {
		return nil, fmt.Errorf("ambient light: %w", err)
	}
	point, err := scene.ParseColor(cfg.Point.Color)
	if err != nil {
		return nil, fmt.Errorf("point light: %w", err)
	}

	return []scene.Light{
		{Kind: scene.AmbientLight, Color: ambient, Intensity: cfg.Ambient.Intensity},
		{
			Kind:      scene.PointLight,
			Color:     point,
			Intensity: cfg.Point.Intensity,
			Position:  cfg.Point.Position,
			Decay:     cfg.Point.Decay,
		},
	}, nil
}

// LoadBackground requests the cube map faces named in cfg. It returns nil when
// no background directory is configured or loader is nil.
func LoadBackground(ctx context.Context, cfg config.BackgroundConfig, loader *assets.Loader) *assets.Cubemap {
	if cfg.Dir == "" || loader == nil {
		return nil
	}
	return loader.LoadCubemap(ctx, cfg.Dir, cfg.Faces)
}

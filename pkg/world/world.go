// Package world composes the body catalog into a scene and advances it frame by frame.
package world

import (
	"context"

	"github.com/opd-ai/go-orrery/pkg/catalog"
	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/physics"
	"github.com/opd-ai/go-orrery/pkg/scene"
)

// Sphere tessellation used for every body.
const (
	SphereWidthSegments  = 32
	SphereHeightSegments = 32
)

// Options carries the optional collaborators of Compose.
type Options struct {
	Logger *logging.Logger
	Bus    *event.Bus
}

// World owns the composed bodies. Only the frame loop goroutine may call Update.
type World struct {
	Scene   *scene.Scene
	Star    *entity.Body
	Planets []*entity.Body

	catalog catalog.Catalog
	frames  uint64
	logger  *logging.Logger
}

// Compose builds one node per catalog body and attaches them to sc: the star and
// the planets under the root, each moon under its planet. Every node shares one
// unit sphere and is scaled by its radius. Planets and the star use the material
// named by their descriptor; moons always use the shared moon material. Unknown
// material ids fall back to the default material.
func Compose(ctx context.Context, cat catalog.Catalog, sc *scene.Scene, materials Materials, opts Options) *World {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}

	w := &World{
		Scene:   sc,
		catalog: cat.Clone(),
		logger:  logger,
	}

	var ids entity.IDGenerator
	sphere := scene.NewSphere(1, SphereWidthSegments, SphereHeightSegments)
	fallback := scene.DefaultMaterial()

	resolve := func(field, id string) *scene.Material {
		if m, ok := materials[id]; ok && m != nil {
			return m
		}
		logger.Warn(ctx, "unknown material, using default", "field", field, "material", id)
		return fallback
	}

	newBody := func(d catalog.BodyDescriptor, m *scene.Material) *entity.Body {
		node := scene.NewNode(d.Name, sphere, m)
		node.SetPosition(physics.Vec3(d.Distance, 0, 0))
		node.SetUniformScale(d.Radius)
		return entity.NewBody(ids.Next(), d, node)
	}

	w.Star = newBody(w.catalog.Star, resolve("star", w.catalog.Star.Material))
	w.Star.Static = true
	sc.Add(w.Star.Node)

	moonMaterial := resolve("moons", catalog.MoonMaterial)
	moons := 0
	for _, pd := range w.catalog.Planets {
		planet := newBody(pd, resolve(pd.Name, pd.Material))
		sc.Add(planet.Node)

		for _, md := range pd.Moons {
			if md.Material != "" || md.Color != "" {
				logger.Debug(ctx, "moon drawn with shared moon material",
					"moon", md.Name,
					"material", md.Material,
					"color", md.Color,
				)
			}
			planet.AddMoon(newBody(md, moonMaterial))
			moons++
		}
		w.Planets = append(w.Planets, planet)
	}

	logger.Info(ctx, "world composed",
		"star", w.Star.Name(),
		"planets", len(w.Planets),
		"moons", moons,
	)
	opts.Bus.Publish(event.NewWorldEvent(w, len(w.Planets), moons))

	return w
}

// Update advances every planet one frame, then each planet's moons in the
// planet's local frame. The star stays where it is.
func (w *World) Update() {
	for _, p := range w.Planets {
		p.Update()
	}
	w.frames++
}

// Frames returns the number of completed updates.
func (w *World) Frames() uint64 {
	return w.frames
}

// Catalog returns a copy of the catalog the world was composed from.
func (w *World) Catalog() catalog.Catalog {
	return w.catalog.Clone()
}

// Bodies returns the star, then each planet followed by its moons.
func (w *World) Bodies() []*entity.Body {
	out := []*entity.Body{w.Star}
	for _, p := range w.Planets {
		out = append(out, p)
		out = append(out, p.Moons...)
	}
	return out
}

// Body returns the body named name, or nil.
func (w *World) Body(name string) *entity.Body {
	for _, b := range w.Bodies() {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

// BodyState is a read-only view of one body at the current frame.
type BodyState struct {
	ID     entity.ID        `json:"id"`
	Name   string           `json:"name"`
	Parent string           `json:"parent,omitempty"`
	Phase  float64          `json:"phase"`
	Local  physics.Vector3D `json:"local"`
	World  physics.Vector3D `json:"world"`
}

// Snapshot returns the state of every body in Bodies order.
func (w *World) Snapshot() []BodyState {
	out := make([]BodyState, 0, 1+len(w.Planets))
	add := func(b *entity.Body, parent string) {
		out = append(out, BodyState{
			ID:     b.ID,
			Name:   b.Name(),
			Parent: parent,
			Phase:  b.Phase(),
			Local:  b.GetPosition(),
			World:  b.WorldPosition(),
		})
	}
	add(w.Star, "")
	for _, p := range w.Planets {
		add(p, "")
		for _, m := range p.Moons {
			add(m, p.Name())
		}
	}
	return out
}

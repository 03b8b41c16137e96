package engo

import (
	"context"
	"math"
	"testing"

	"github.com/opd-ai/go-orrery/pkg/catalog"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/scene"
	"github.com/opd-ai/go-orrery/pkg/world"
)

func TestHUDSystem_Status(t *testing.T) {
	w := world.Compose(context.Background(), catalog.Default(), scene.New(), world.Materials{},
		world.Options{Logger: logging.Discard()})
	hud := NewHUDSystem(w)

	w.Update()
	w.Update()
	hud.Tick(1.0 / 60)

	want := "frame 2  bodies 9  60 fps"
	if got := hud.Status(); got != want {
		t.Errorf("Status() = %q, want %q", got, want)
	}
}

func TestHUDSystem_Status_NoWorld(t *testing.T) {
	hud := NewHUDSystem(nil)
	if got, want := hud.Status(), "frame 0  bodies 0  0 fps"; got != want {
		t.Errorf("Status() = %q, want %q", got, want)
	}
}

func TestHUDSystem_Tick(t *testing.T) {
	tests := []struct {
		name string
		dts  []float32
		want float32
	}{
		{"FirstFrameSetsRate", []float32{0.02}, 50},
		{"IgnoresZero", []float32{0.02, 0}, 50},
		{"IgnoresNegative", []float32{0.02, -1}, 50},
		{"IgnoresNaN", []float32{0.02, float32(math.NaN())}, 50},
		{"Smooths", []float32{0.02, 0.01}, 50 + (100-50)*fpsSmoothing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hud := NewHUDSystem(nil)
			for _, dt := range tt.dts {
				hud.Tick(dt)
			}
			if math.Abs(float64(hud.FPS()-tt.want)) > 1e-3 {
				t.Errorf("FPS() = %f, want %f", hud.FPS(), tt.want)
			}
		})
	}
}

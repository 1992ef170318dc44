package tui

import (
	"strings"
	"testing"

	"github.com/san-kum/pendlab/internal/chain"
	"github.com/san-kum/pendlab/internal/scene"
)

func TestBobRadius(t *testing.T) {
	tests := []struct {
		mass float64
		want int
	}{
		{-1, 1},
		{0, 1},
		{1, 1},
		{10, 3},
		{1e6, 7}, // clamped
	}
	for _, tt := range tests {
		if got := bobRadius(tt.mass); got != tt.want {
			t.Errorf("bobRadius(%v) = %d, want %d", tt.mass, got, tt.want)
		}
	}
}

func TestBobRadiusMonotonic(t *testing.T) {
	prev := 0
	for _, mass := range []float64{0.5, 1, 5, 10, 50, 100} {
		r := bobRadius(mass)
		if r < prev {
			t.Fatalf("radius decreased at mass %v: %d < %d", mass, r, prev)
		}
		prev = r
	}
}

func TestFitFactorDegenerateReach(t *testing.T) {
	if got := fitFactor(0, 160, 96, 6); got != 1 {
		t.Errorf("zero reach should give unit fit, got %v", got)
	}
	if got := fitFactor(-2, 160, 96, 6); got != 1 {
		t.Errorf("negative reach should give unit fit, got %v", got)
	}
}

func TestDrawSceneEmptyChain(t *testing.T) {
	c := NewCanvas(canvasWidth, canvasHeight)
	drawScene(c, chain.Snapshot{}, 0)

	for _, row := range c.Grid {
		for _, r := range row {
			if r != 0x2800 {
				t.Fatal("empty chain must draw nothing")
			}
		}
	}
}

func TestDrawSceneLightsPixels(t *testing.T) {
	ch := chain.Default()
	snap := scene.NormalizeChain(ch.Snapshot(), scene.DefaultScale)

	c := NewCanvas(canvasWidth, canvasHeight)
	drawScene(c, snap, 2.2)

	if !strings.ContainsFunc(c.String(), func(r rune) bool { return r > 0x2800 && r <= 0x28FF }) {
		t.Error("expected lit braille cells for a non-empty chain")
	}
}

func TestFillCircleStaysInBounds(t *testing.T) {
	c := NewCanvas(4, 4)
	c.FillCircle(0, 0, 5) // mostly off-canvas, must not panic
	c.FillCircle(100, 100, 3)
}

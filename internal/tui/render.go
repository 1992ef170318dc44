package tui

import (
	"math"

	"github.com/san-kum/pendlab/internal/chain"
)

const (
	canvasWidth  = 80
	canvasHeight = 24
)

// bobRadius maps mass to a disc radius in sub-pixels. Holding density
// constant, volume scales with mass, so radius goes with its cube root.
func bobRadius(mass float64) int {
	if mass <= 0 {
		return 1
	}
	r := int(math.Round(1.3 * math.Cbrt(mass)))
	if r < 1 {
		r = 1
	}
	if r > 7 {
		r = 7
	}
	return r
}

// fitFactor chooses sub-pixels per render unit so the fully extended chain
// stays inside the canvas. reach is the total rod length in render units.
func fitFactor(reach float64, cw, ch, cy int) float64 {
	if reach <= 0 {
		return 1
	}
	horiz := float64(cw/2 - 4)
	vert := float64(ch - cy - 4)
	return math.Min(horiz, vert) / reach
}

// drawScene renders a chain-profile snapshot (synthetic pivot at index 0)
// onto the canvas: a rod segment from each bob to its predecessor and a
// mass-sized disc per bob. An empty chain draws only the pivot mark.
func drawScene(c *Canvas, snap chain.Snapshot, reach float64) {
	c.Clear()
	if len(snap.Bobs) == 0 {
		return
	}

	cw, ch := c.Width*2, c.Height*4
	cx, cy := cw/2, 6
	fit := fitFactor(reach, cw, ch, cy)

	// pivot mark
	c.DrawLine(cx-2, cy, cx+2, cy)
	c.Set(cx, cy-1)

	px, py := cx, cy
	for _, b := range snap.Bobs[1:] {
		sx := cx + int(math.Round(b.X*fit))
		sy := cy + int(math.Round(b.Y*fit))
		c.DrawLine(px, py, sx, sy)
		c.FillCircle(sx, sy, bobRadius(b.Mass))
		px, py = sx, sy
	}
}

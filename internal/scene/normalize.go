// Package scene converts backend pixel-space snapshots into the coordinate
// space the renderer draws in. Both transforms are pure and stateless; the
// view applies one of them exactly once per inbound snapshot. Re-applying
// would double-scale, so normalized snapshots are never fed back in.
package scene

import "github.com/san-kum/pendlab/internal/chain"

// DefaultScale is the pixel-to-render-unit divisor. Fixed for the lifetime
// of a view.
const DefaultScale = 100.0

// Normalize divides position coordinates by scale. Mass, angle, angular
// velocity and rod length pass through unchanged. The input snapshot is not
// mutated.
func Normalize(snap chain.Snapshot, scale float64) chain.Snapshot {
	out := chain.Snapshot{
		Time:   snap.Time,
		Energy: snap.Energy,
		Bobs:   make([]chain.Bob, len(snap.Bobs)),
	}
	for i, b := range snap.Bobs {
		b.X /= scale
		b.Y /= scale
		out.Bobs[i] = b
	}
	return out
}

// NormalizeChain is the chain-rendering profile: a synthetic pivot point at
// the origin is prepended ahead of the real bobs, then positions are scaled.
// The pivot has no mass or rod; it only anchors the first segment.
func NormalizeChain(snap chain.Snapshot, scale float64) chain.Snapshot {
	out := chain.Snapshot{
		Time:   snap.Time,
		Energy: snap.Energy,
		Bobs:   make([]chain.Bob, len(snap.Bobs)+1),
	}
	for i, b := range snap.Bobs {
		b.X /= scale
		b.Y /= scale
		out.Bobs[i+1] = b
	}
	return out
}

package chain

import "github.com/google/uuid"

// Bob is one mass point in the pendulum chain. Theta is measured from the
// vertical below the attachment point, so theta=0 hangs straight down.
// X/Y are pixel-space coordinates relative to the fixed pivot, y growing
// downward.
type Bob struct {
	ID        uuid.UUID
	LengthRod float64
	Mass      float64
	Theta     float64
	Omega     float64
	X         float64
	Y         float64
}

// NewBob assigns a fresh identity. The ID is stable for the lifetime of the
// bob, across modifications and across removals of other bobs.
func NewBob(lengthRod, mass, theta, omega float64) Bob {
	return Bob{
		ID:        uuid.New(),
		LengthRod: lengthRod,
		Mass:      mass,
		Theta:     theta,
		Omega:     omega,
	}
}

// Snapshot is a complete, self-consistent copy of every bob at one instant.
// Slice order is chain order: Bobs[0] hangs from the fixed pivot, Bobs[i]
// from Bobs[i-1].
type Snapshot struct {
	Time   float64
	Energy float64
	Bobs   []Bob
}

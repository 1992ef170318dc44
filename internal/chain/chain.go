package chain

import (
	"errors"
	"math"
)

const Gravity = 9.81

// Validation errors reported back to command callers. These are the reject
// reasons a client sees, so the text is user-facing.
var (
	ErrIndexRange = errors.New("bob index out of range")
	ErrRodLength  = errors.New("rod length must be a positive finite number")
	ErrMass       = errors.New("mass must be a positive finite number")
	ErrNotFinite  = errors.New("theta and omega must be finite numbers")
)

// Chain is a multi-bob pendulum hanging from a fixed pivot at the origin.
// Generalized coordinates are the bob angles; the equations of motion are
//
//	M(θ) θ'' + C(θ, θ') + G(θ) = 0
//
// with the full n-link mass matrix, Christoffel-symbol Coriolis terms and
// gravity torques. Not safe for concurrent use; the owning hub serializes
// access.
type Chain struct {
	gravity float64
	time    float64
	bobs    []Bob
}

// New builds a chain from the given bobs, in chain order. Positions are
// computed immediately so the first snapshot is consistent.
func New(gravity float64, bobs ...Bob) *Chain {
	c := &Chain{gravity: gravity, bobs: append([]Bob(nil), bobs...)}
	c.updatePositions()
	return c
}

// Default returns the two-bob chain the backend starts with.
func Default() *Chain {
	return New(Gravity,
		NewBob(120, 10, math.Pi/2, 0),
		NewBob(120, 10, math.Pi/2, 0),
	)
}

func (c *Chain) Len() int { return len(c.bobs) }

// Snapshot copies the full state. The returned slice is owned by the caller.
func (c *Chain) Snapshot() Snapshot {
	return Snapshot{
		Time:   c.time,
		Energy: c.Energy(),
		Bobs:   append([]Bob(nil), c.bobs...),
	}
}

// AddBob appends a bob to the free end of the chain and returns it with its
// assigned identity.
func (c *Chain) AddBob(lengthRod, mass, theta, omega float64) (Bob, error) {
	if !(lengthRod > 0) || !isFinite(lengthRod) {
		return Bob{}, ErrRodLength
	}
	if !(mass > 0) || !isFinite(mass) {
		return Bob{}, ErrMass
	}
	if !isFinite(theta) || !isFinite(omega) {
		return Bob{}, ErrNotFinite
	}
	b := NewBob(lengthRod, mass, theta, omega)
	c.bobs = append(c.bobs, b)
	c.updatePositions()
	return b, nil
}

// RemoveBob detaches the bob at index; every later bob shifts down one
// position and re-hangs from the removed bob's parent.
func (c *Chain) RemoveBob(index int) error {
	if index < 0 || index >= len(c.bobs) {
		return ErrIndexRange
	}
	c.bobs = append(c.bobs[:index], c.bobs[index+1:]...)
	c.updatePositions()
	return nil
}

// ModifyBob overwrites the provided fields of the bob at index. Nil fields
// are left unchanged.
func (c *Chain) ModifyBob(index int, length, mass, theta, omega *float64) error {
	if index < 0 || index >= len(c.bobs) {
		return ErrIndexRange
	}
	if length != nil && (!(*length > 0) || !isFinite(*length)) {
		return ErrRodLength
	}
	if mass != nil && (!(*mass > 0) || !isFinite(*mass)) {
		return ErrMass
	}
	if theta != nil && !isFinite(*theta) {
		return ErrNotFinite
	}
	if omega != nil && !isFinite(*omega) {
		return ErrNotFinite
	}
	b := &c.bobs[index]
	if length != nil {
		b.LengthRod = *length
	}
	if mass != nil {
		b.Mass = *mass
	}
	if theta != nil {
		b.Theta = *theta
	}
	if omega != nil {
		b.Omega = *omega
	}
	c.updatePositions()
	return nil
}

// Step advances the chain by dt using semi-implicit Euler: accelerations
// from the current configuration update the angular velocities first, then
// the new velocities update the angles.
func (c *Chain) Step(dt float64) {
	n := len(c.bobs)
	if n == 0 {
		c.time += dt
		return
	}

	m := c.massMatrix()
	rhs := make([]float64, n)
	cor := c.coriolis()
	grav := c.gravityVector()
	for i := 0; i < n; i++ {
		rhs[i] = -(cor[i] + grav[i])
	}
	a := solve(m, rhs)

	for i := range c.bobs {
		c.bobs[i].Omega += a[i] * dt
		c.bobs[i].Theta += c.bobs[i].Omega * dt
	}
	c.time += dt
	c.updatePositions()
}

// massMatrix builds M(θ) with M[i][j] = s_max(i,j) l_i l_j cos(θ_i − θ_j),
// where s_k is the total mass hanging at or below bob k.
func (c *Chain) massMatrix() [][]float64 {
	n := len(c.bobs)
	m := make([][]float64, n)
	for i := 0; i < n; i++ {
		m[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			sum := 0.0
			for k := max(i, j); k < n; k++ {
				sum += c.bobs[k].Mass *
					c.bobs[i].LengthRod *
					c.bobs[j].LengthRod *
					math.Cos(c.bobs[i].Theta-c.bobs[j].Theta)
			}
			m[i][j] = sum
		}
	}
	return m
}

func (c *Chain) suffixMasses() []float64 {
	n := len(c.bobs)
	s := make([]float64, n)
	acc := 0.0
	for i := n - 1; i >= 0; i-- {
		acc += c.bobs[i].Mass
		s[i] = acc
	}
	return s
}

// dMassdTheta is ∂M[i][j]/∂θ_k.
// d/dθ_k cos(θ_i − θ_j) = −sin(θ_i − θ_j)(δ_ik − δ_jk)
func (c *Chain) dMassdTheta(i, j, k int, suffix []float64) float64 {
	dik, djk := 0.0, 0.0
	if i == k {
		dik = 1
	}
	if j == k {
		djk = 1
	}
	return -suffix[max(i, j)] *
		c.bobs[i].LengthRod * c.bobs[j].LengthRod *
		math.Sin(c.bobs[i].Theta-c.bobs[j].Theta) * (dik - djk)
}

// coriolis evaluates the velocity-dependent torques via Christoffel symbols
// Γ_ijk = ½(∂M_ik/∂θ_j + ∂M_ij/∂θ_k − ∂M_jk/∂θ_i).
func (c *Chain) coriolis() []float64 {
	n := len(c.bobs)
	out := make([]float64, n)
	suffix := c.suffixMasses()
	for i := 0; i < n; i++ {
		ci := 0.0
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				gamma := 0.5 * (c.dMassdTheta(i, k, j, suffix) +
					c.dMassdTheta(i, j, k, suffix) -
					c.dMassdTheta(j, k, i, suffix))
				ci += gamma * c.bobs[j].Omega * c.bobs[k].Omega
			}
		}
		out[i] = ci
	}
	return out
}

func (c *Chain) gravityVector() []float64 {
	n := len(c.bobs)
	suffix := c.suffixMasses()
	g := make([]float64, n)
	for i := 0; i < n; i++ {
		g[i] = suffix[i] * c.gravity * c.bobs[i].LengthRod * math.Sin(c.bobs[i].Theta)
	}
	return g
}

// updatePositions propagates coordinates down the chain from the pivot.
func (c *Chain) updatePositions() {
	px, py := 0.0, 0.0
	for i := range c.bobs {
		b := &c.bobs[i]
		b.X = px + b.LengthRod*math.Sin(b.Theta)
		b.Y = py + b.LengthRod*math.Cos(b.Theta)
		px, py = b.X, b.Y
	}
}

// Energy is kinetic plus gravitational potential. With y measured downward
// from the pivot, PE = −g Σ m_i y_i, so the straight-down rest configuration
// is the minimum.
func (c *Chain) Energy() float64 {
	ke := 0.0
	vx, vy := 0.0, 0.0
	for i := range c.bobs {
		b := c.bobs[i]
		vx += b.LengthRod * b.Omega * math.Cos(b.Theta)
		vy += -b.LengthRod * b.Omega * math.Sin(b.Theta)
		ke += 0.5 * b.Mass * (vx*vx + vy*vy)
	}
	pe := 0.0
	for _, b := range c.bobs {
		pe -= b.Mass * c.gravity * b.Y
	}
	return ke + pe
}

// solve performs Gaussian elimination with partial pivoting on a copy of m.
// A singular configuration yields zero accelerations, matching the
// reference engine's behavior of freezing rather than blowing up.
func solve(m [][]float64, rhs []float64) []float64 {
	n := len(rhs)
	a := make([][]float64, n)
	for i := range a {
		a[i] = append(append([]float64(nil), m[i]...), rhs[i])
	}

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return make([]float64, n)
		}
		a[col], a[pivot] = a[pivot], a[col]
		for row := col + 1; row < n; row++ {
			f := a[row][col] / a[col][col]
			for k := col; k <= n; k++ {
				a[row][k] -= f * a[col][k]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := a[i][n]
		for j := i + 1; j < n; j++ {
			sum -= a[i][j] * x[j]
		}
		x[i] = sum / a[i][i]
	}
	return x
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

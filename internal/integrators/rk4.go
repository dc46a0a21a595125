package integrators

import (
	"math"

	"github.com/san-kum/motorsim/internal/dynamo"
)

// DefaultRK4MaxStep resolves a millisecond-scale l/r transient with ten
// stages per time constant.
const DefaultRK4MaxStep = 1e-4

// RK4 is the classical fourth-order method. A Step longer than MaxStep is
// split into equal sub-steps; MaxStep <= 0 takes the interval in one step.
type RK4 struct {
	MaxStep float64

	k [4]dynamo.State
	y dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{MaxStep: DefaultRK4MaxStep}
}

// Substeps returns how many equal sub-steps cover dt.
func (r *RK4) Substeps(dt float64) int {
	if r.MaxStep <= 0 || dt <= r.MaxStep {
		return 1
	}
	return int(math.Ceil(dt / r.MaxStep))
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := r.Substeps(dt)
	h := dt / float64(n)

	cur := x.Clone()
	for i := 0; i < n; i++ {
		r.advance(sys, cur, u, t+float64(i)*h, h)
	}
	return cur
}

// advance updates x in place by one step of size h.
func (r *RK4) advance(sys dynamo.System, x dynamo.State, u dynamo.Control, t, h float64) {
	if len(r.y) != len(x) {
		r.y = make(dynamo.State, len(x))
	}

	stages := [4]float64{0, h / 2, h / 2, h}
	for s := range r.k {
		for i := range x {
			if s == 0 {
				r.y[i] = x[i]
			} else {
				r.y[i] = x[i] + stages[s]*r.k[s-1][i]
			}
		}
		r.k[s] = sys.Derive(r.y, u, t+stages[s])
	}

	for i := range x {
		x[i] += h / 6 * (r.k[0][i] + 2*r.k[1][i] + 2*r.k[2][i] + r.k[3][i])
	}
}

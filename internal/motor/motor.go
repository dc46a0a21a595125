// Package motor models a DC motor as a two-state linear system
// dx/dt = A x + B u with x = [angular velocity, coil current] and u the drive
// voltage.
//
// The default update is the exact zero-order-hold discretization
//
//	A_d = exp(delta*A)
//	B_d = A^-1 (A_d - I) B
//
// which stays accurate when the electrical time constant l/r is short
// compared to the tick period.
package motor

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/motorsim/internal/dynamo"
)

var identity = mat.NewDiagDense(2, []float64{1, 1})

type Motor struct {
	cfg  Config
	a    *mat.Dense
	aInv *mat.Dense
	b    *mat.VecDense
	x    *mat.VecDense

	stepper dynamo.Stepper

	position     dynamo.Integrator
	acceleration dynamo.Derivative
	torque       float64
}

type Option func(*Motor)

// WithStepper replaces the exact discretization with a numerical stepper.
// Used to compare discretizations; nil keeps the exact update.
func WithStepper(s dynamo.Stepper) Option {
	return func(m *Motor) { m.stepper = s }
}

func New(cfg Config, opts ...Option) (*Motor, error) {
	m := &Motor{}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.Reset(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// Reset applies cfg and returns the motor to rest: zero state, zero position
// and a cleared acceleration estimator.
func (m *Motor) Reset(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	a := mat.NewDense(2, 2, cfg.stateMatrix())
	var aInv mat.Dense
	if err := aInv.Inverse(a); err != nil {
		return err
	}

	m.cfg = cfg
	m.a = a
	m.aInv = &aInv
	m.b = mat.NewVecDense(2, cfg.inputVector())
	m.x = mat.NewVecDense(2, nil)
	m.position.Reset()
	m.acceleration.Reset()
	m.torque = 0
	return nil
}

// Advance moves the plant forward by delta seconds with the voltage held
// constant, then updates the derived observables.
func (m *Motor) Advance(delta, voltage float64) {
	if m.stepper != nil {
		next := m.stepper.Step(m, m.State(), dynamo.Control{voltage}, 0, delta)
		m.x = mat.NewVecDense(2, []float64{next[0], next[1]})
	} else {
		m.advanceExact(delta, voltage)
	}

	omega := m.x.AtVec(0)
	m.position.Integrate(delta, omega)
	m.acceleration.Derivate(delta, omega)
	m.torque = m.cfg.K * m.x.AtVec(1)
}

func (m *Motor) advanceExact(delta, voltage float64) {
	var scaled, ad mat.Dense
	scaled.Scale(delta, m.a)
	ad.Exp(&scaled)

	var adMinusI, gain mat.Dense
	adMinusI.Sub(&ad, identity)
	gain.Mul(m.aInv, &adMinusI)

	var bd, next mat.VecDense
	bd.MulVec(&gain, m.b)
	next.MulVec(&ad, m.x)
	next.AddScaledVec(&next, voltage, &bd)
	m.x = &next
}

// Derive evaluates A x + B u, making the motor usable with a [dynamo.Stepper].
func (m *Motor) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	var v float64
	if len(u) > 0 {
		v = u[0]
	}
	xv := mat.NewVecDense(2, []float64{x[0], x[1]})
	var dx mat.VecDense
	dx.MulVec(m.a, xv)
	dx.AddScaledVec(&dx, v, m.b)
	return dynamo.State{dx.AtVec(0), dx.AtVec(1)}
}

func (m *Motor) StateDim() int   { return 2 }
func (m *Motor) ControlDim() int { return 1 }

func (m *Motor) Config() Config {
	return m.cfg
}

// State returns a copy of [angular velocity (rad/s), current (A)].
func (m *Motor) State() dynamo.State {
	return dynamo.State{m.x.AtVec(0), m.x.AtVec(1)}
}

// Position is the accumulated shaft angle in degrees, wrapped to [0, 360).
func (m *Motor) Position() float64 {
	return dynamo.RadToDeg(m.position.State())
}

// Angle is the unwrapped accumulated shaft angle in radians.
func (m *Motor) Angle() float64 {
	return m.position.State()
}

// Velocity is the shaft speed in RPM.
func (m *Motor) Velocity() float64 {
	return dynamo.RadsToRPM(m.x.AtVec(0))
}

// AngularVelocity is the shaft speed in rad/s.
func (m *Motor) AngularVelocity() float64 {
	return m.x.AtVec(0)
}

func (m *Motor) Current() float64 {
	return m.x.AtVec(1)
}

// Acceleration is the finite-difference estimate of dω/dt in rad/s².
func (m *Motor) Acceleration() float64 {
	return m.acceleration.State()
}

// Torque is k times the coil current, in N·m.
func (m *Motor) Torque() float64 {
	return m.torque
}

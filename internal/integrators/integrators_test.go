package integrators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/motorsim/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int   { return 2 }
func (h *harmonicOscillator) ControlDim() int { return 0 }

func (h *harmonicOscillator) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

// firstOrder is dx/dt = -a x + u, with a closed-form step response.
type firstOrder struct{ a float64 }

func (f *firstOrder) StateDim() int   { return 1 }
func (f *firstOrder) ControlDim() int { return 1 }

func (f *firstOrder) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{-f.a*x[0] + u[0]}
}

func run(s dynamo.Stepper, sys dynamo.System, x dynamo.State, u dynamo.Control, dt float64, steps int) dynamo.State {
	for i := 0; i < steps; i++ {
		x = s.Step(sys, x, u, float64(i)*dt, dt)
	}
	return x
}

func TestRK4Accuracy(t *testing.T) {
	x := run(NewRK4(), &harmonicOscillator{}, dynamo.State{1, 0}, nil, 0.01, 100)

	assert.InDelta(t, math.Cos(1), x[0], 1e-4)
	assert.InDelta(t, -math.Sin(1), x[1], 1e-4)
}

func TestRK4SubstepsFastPole(t *testing.T) {
	// time constant 0.2 ms against a 1 ms control period
	sys := &firstOrder{a: 5000}
	u := dynamo.Control{5000}

	single := &RK4{}
	assert.Equal(t, 1, single.Substeps(0.001))
	blown := run(single, sys, dynamo.State{0}, u, 0.001, 100)
	assert.Greater(t, math.Abs(blown[0]), 10.0)

	r := NewRK4()
	assert.Equal(t, 10, r.Substeps(0.001))
	assert.Equal(t, 1, r.Substeps(0.00001))
	x := run(r, sys, dynamo.State{0}, u, 0.001, 100)
	assert.InDelta(t, 1.0, x[0], 1e-6)
}

func TestRK4LeavesInputUntouched(t *testing.T) {
	x := dynamo.State{1, 0}
	next := NewRK4().Step(&harmonicOscillator{}, x, nil, 0, 0.01)

	assert.Equal(t, dynamo.State{1, 0}, x)
	assert.NotEqual(t, x, next)
}

func TestEulerFirstOrderConvergence(t *testing.T) {
	sys := &firstOrder{a: 5}
	u := dynamo.Control{5}
	want := 1 - math.Exp(-5)

	coarse := run(NewEuler(), sys, dynamo.State{0}, u, 0.01, 100)
	fine := run(NewEuler(), sys, dynamo.State{0}, u, 0.001, 1000)

	errCoarse := math.Abs(coarse[0] - want)
	errFine := math.Abs(fine[0] - want)
	assert.Less(t, errFine, errCoarse)
	assert.InDelta(t, 10, errCoarse/errFine, 2)
}

func TestRK45SubstepsStiffInterval(t *testing.T) {
	sys := &firstOrder{a: 1000}
	u := dynamo.Control{1000}

	// one step spanning many time constants is unstable for RK4 but not
	// for the adaptive integrator
	x := NewRK45().Step(sys, dynamo.State{0}, u, 0, 0.05)

	require.True(t, x.IsValid())
	assert.InDelta(t, 1.0, x[0], 1e-4)
}

func TestRK45StepAdaptive(t *testing.T) {
	r := NewRK45()
	x, next, err := r.StepAdaptive(&harmonicOscillator{}, dynamo.State{1, 0}, nil, 0, 0.001)

	require.NoError(t, err)
	assert.True(t, x.IsValid())
	assert.Greater(t, next, 0.001)

	_, shrunk, err := r.StepAdaptive(&firstOrder{a: 1000}, dynamo.State{0}, dynamo.Control{1000}, 0, 0.05)
	assert.ErrorIs(t, err, ErrStepRejected)
	assert.Less(t, shrunk, 0.05)
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"", ZOH} {
		s, err := Lookup(name)
		require.NoError(t, err)
		assert.Nil(t, s)
	}

	s, err := Lookup("rk4")
	require.NoError(t, err)
	assert.IsType(t, &RK4{}, s)

	_, err = Lookup("verlet")
	assert.ErrorIs(t, err, dynamo.ErrUnknownName)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"zoh", "euler", "rk4", "rk45"}, Names())
}

func BenchmarkEuler(b *testing.B) {
	benchmarkStepper(b, NewEuler())
}

func BenchmarkRK4(b *testing.B) {
	benchmarkStepper(b, NewRK4())
}

func BenchmarkRK45(b *testing.B) {
	benchmarkStepper(b, NewRK45())
}

func benchmarkStepper(b *testing.B, s dynamo.Stepper) {
	sys := &harmonicOscillator{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = s.Step(sys, x, nil, 0, 0.001)
	}
}

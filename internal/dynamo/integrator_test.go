package dynamo

import (
	"math"
	"testing"
)

func TestIntegratorLinearity(t *testing.T) {
	tests := []struct {
		name   string
		deltas []float64
		values []float64
	}{
		{"single", []float64{0.1}, []float64{2.0}},
		{"two steps", []float64{0.1, 0.25}, []float64{2.0, -4.0}},
		{"uneven", []float64{0.001, 0.0015, 0.0009, 0.002}, []float64{12, 11.5, -3, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in Integrator
			want := 0.0
			for i := range tt.deltas {
				in.Integrate(tt.deltas[i], tt.values[i])
				want += tt.deltas[i] * tt.values[i]
				if math.Abs(in.State()-want) > 1e-12 {
					t.Fatalf("partial sum %d: got %v, want %v", i, in.State(), want)
				}
			}

			// splitting the sequence across two integrators sums to the same total
			var a, b Integrator
			half := len(tt.deltas) / 2
			for i := 0; i < half; i++ {
				a.Integrate(tt.deltas[i], tt.values[i])
			}
			for i := half; i < len(tt.deltas); i++ {
				b.Integrate(tt.deltas[i], tt.values[i])
			}
			if math.Abs(a.State()+b.State()-in.State()) > 1e-12 {
				t.Errorf("split sum %v != one pass %v", a.State()+b.State(), in.State())
			}
		})
	}
}

func TestIntegratorReset(t *testing.T) {
	var in Integrator
	in.Integrate(0.5, 3)
	in.Reset()
	if in.State() != 0 {
		t.Errorf("expected zero after reset, got %v", in.State())
	}
}

func TestDerivativeConstantSignal(t *testing.T) {
	for _, delta := range []float64{1e-4, 0.001, 0.5, 3} {
		var d Derivative
		d.Derivate(delta, 7.5)
		d.Derivate(delta, 7.5)
		if d.State() != 0 {
			t.Errorf("delta=%v: expected 0 for constant signal, got %v", delta, d.State())
		}
	}
}

func TestDerivativeResetTransient(t *testing.T) {
	var d Derivative
	d.Derivate(0.001, 4)
	d.Derivate(0.001, 4)
	d.Reset()

	d.Derivate(0.001, 4)
	if math.Abs(d.State()-4000) > 1e-9 {
		t.Errorf("expected one large estimate after reset, got %v", d.State())
	}
}

func TestDerivativeSlope(t *testing.T) {
	var d Derivative
	d.Derivate(0.1, 1)
	d.Derivate(0.1, 1.5)
	if math.Abs(d.State()-5) > 1e-9 {
		t.Errorf("expected slope 5, got %v", d.State())
	}
}

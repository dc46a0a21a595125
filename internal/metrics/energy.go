package metrics

import "github.com/san-kum/motorsim/internal/telemetry"

// Energy integrates the electrical power V·i drawn by the motor, in joules.
// The current is recovered from the torque through the motor constant k.
type Energy struct {
	name   string
	k      float64
	joules float64
	last   float64
	seen   bool
}

func NewEnergy(k float64) *Energy {
	return &Energy{
		name: "energy",
		k:    k,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s telemetry.Sample) {
	dt := s.Time
	if e.seen {
		dt = s.Time - e.last
	}
	e.last = s.Time
	e.seen = true

	current := s.Torque / e.k
	e.joules += s.Voltage * current * dt
}

func (e *Energy) Value() float64 {
	return e.joules
}

func (e *Energy) Reset() {
	e.joules = 0
	e.last = 0
	e.seen = false
}

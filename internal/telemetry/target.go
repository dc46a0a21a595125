package telemetry

import (
	"sync"

	"github.com/san-kum/motorsim/internal/dynamo"
)

// Target is the live position setpoint in degrees, written by the observer
// and read by the control loop once per tick.
type Target struct {
	mu  sync.Mutex
	deg float64
}

func NewTarget(deg float64) *Target {
	return &Target{deg: dynamo.WrapDegrees(deg)}
}

func (t *Target) Get() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deg
}

// Set stores deg wrapped into [0, 360).
func (t *Target) Set(deg float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deg = dynamo.WrapDegrees(deg)
}

// Add shifts the target by delta degrees and returns the new value.
func (t *Target) Add(delta float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deg = dynamo.WrapDegrees(t.deg + delta)
	return t.deg
}

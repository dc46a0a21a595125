package metrics

import (
	"math"

	"github.com/san-kum/motorsim/internal/telemetry"
)

// ControlEffort is the mean absolute drive voltage.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s telemetry.Sample) {
	c.sum += math.Abs(s.Voltage)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// Saturation is the fraction of samples whose drive voltage sits at the
// bound.
type Saturation struct {
	name      string
	bound     float64
	saturated int
	samples   int
}

func NewSaturation(bound float64) *Saturation {
	return &Saturation{
		name:  "saturation",
		bound: bound,
	}
}

func (s *Saturation) Name() string {
	return s.name
}

func (s *Saturation) Observe(sample telemetry.Sample) {
	s.samples++
	if math.Abs(sample.Voltage) >= s.bound {
		s.saturated++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.saturated = 0
	s.samples = 0
}

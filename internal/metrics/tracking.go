package metrics

import (
	"math"

	"github.com/san-kum/motorsim/internal/control"
	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/telemetry"
)

// TrackingError is the RMS difference between the setpoint and the quantity
// regulated by stage. Position errors take the short way around the circle.
type TrackingError struct {
	name    string
	stage   control.Stage
	sumSq   float64
	samples int
}

func NewTrackingError(stage control.Stage) *TrackingError {
	return &TrackingError{
		name:  "tracking_error",
		stage: stage,
	}
}

func (t *TrackingError) Name() string { return t.name }

func (t *TrackingError) Observe(s telemetry.Sample) {
	var e float64
	switch t.stage {
	case control.StageVelocity:
		e = s.Setpoint - s.Velocity
	case control.StageTorque:
		e = s.Setpoint - s.Torque
	default:
		e = AngleError(s.Setpoint, s.Position)
	}
	t.sumSq += e * e
	t.samples++
}

func (t *TrackingError) Value() float64 {
	if t.samples == 0 {
		return 0
	}
	return math.Sqrt(t.sumSq / float64(t.samples))
}

func (t *TrackingError) Reset() {
	t.sumSq = 0
	t.samples = 0
}

// AngleError returns target - measured in degrees, folded into [-180, 180).
func AngleError(target, measured float64) float64 {
	return dynamo.WrapDegrees(target-measured+180) - 180
}

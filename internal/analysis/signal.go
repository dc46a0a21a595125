package analysis

import (
	"github.com/san-kum/motorsim/internal/telemetry"
)

// Field extracts one quantity from a sample.
type Field func(telemetry.Sample) float64

var (
	Position Field = func(s telemetry.Sample) float64 { return s.Position }
	Velocity Field = func(s telemetry.Sample) float64 { return s.Velocity }
	Voltage  Field = func(s telemetry.Sample) float64 { return s.Voltage }
	Torque   Field = func(s telemetry.Sample) float64 { return s.Torque }
)

// Fields maps the names accepted on the command line to extractors.
var Fields = map[string]Field{
	"position": Position,
	"velocity": Velocity,
	"voltage":  Voltage,
	"torque":   Torque,
}

func Values(samples []telemetry.Sample, f Field) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = f(s)
	}
	return out
}

func Times(samples []telemetry.Sample) []float64 {
	return Values(samples, func(s telemetry.Sample) float64 { return s.Time })
}

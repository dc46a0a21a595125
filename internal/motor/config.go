package motor

import (
	"fmt"
	"math"

	"github.com/san-kum/motorsim/internal/dynamo"
)

const (
	DefaultJ = 0.00065
	DefaultB = 0.000024
	DefaultL = 0.00073
	DefaultR = 0.7
	DefaultK = 0.057
)

// Config holds the physical parameters of a brushed DC motor.
type Config struct {
	J float64 `yaml:"j" koanf:"j"` // rotor inertia, kg·m²
	B float64 `yaml:"b" koanf:"b"` // viscous damping, N·m·s
	L float64 `yaml:"l" koanf:"l"` // coil inductance, H
	R float64 `yaml:"r" koanf:"r"` // coil resistance, Ω
	K float64 `yaml:"k" koanf:"k"` // torque / back-EMF constant, N·m/A
}

func DefaultConfig() Config {
	return Config{J: DefaultJ, B: DefaultB, L: DefaultL, R: DefaultR, K: DefaultK}
}

// Validate checks that every parameter is finite and strictly positive and
// that the resulting state matrix is invertible.
func (c Config) Validate() error {
	params := []struct {
		name  string
		value float64
	}{
		{"j", c.J}, {"b", c.B}, {"l", c.L}, {"r", c.R}, {"k", c.K},
	}
	for _, p := range params {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) || p.value <= 0 {
			return &dynamo.ParameterError{Name: "motor." + p.name, Value: p.value, Wrapped: dynamo.ErrParameterBounds}
		}
	}

	a := c.stateMatrix()
	det := a[0]*a[3] - a[1]*a[2]
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return fmt.Errorf("motor: det(A)=%g: %w", det, dynamo.ErrSingularSystem)
	}
	return nil
}

// stateMatrix returns A = [[-b/j, k/j], [-k/l, -r/l]] in row-major order.
func (c Config) stateMatrix() []float64 {
	return []float64{
		-c.B / c.J, c.K / c.J,
		-c.K / c.L, -c.R / c.L,
	}
}

// inputVector returns B = [0, 1/l].
func (c Config) inputVector() []float64 {
	return []float64{0, 1 / c.L}
}

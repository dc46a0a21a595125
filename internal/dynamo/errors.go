package dynamo

import "errors"

// Domain errors for configuration and simulation.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrSingularSystem indicates a state matrix that cannot be inverted.
	ErrSingularSystem = errors.New("dynamo: state matrix is singular")

	// ErrUnknownName indicates an unrecognised mode, stage or integrator name.
	ErrUnknownName = errors.New("dynamo: unknown name")
)

// ParameterError reports which parameter violated its bounds.
type ParameterError struct {
	Name    string
	Value   float64
	Wrapped error
}

func (e *ParameterError) Error() string {
	return e.Name + ": " + e.Wrapped.Error()
}

func (e *ParameterError) Unwrap() error {
	return e.Wrapped
}

// Package dynamo provides the numeric building blocks shared by the plant and
// the controllers.
//
//   - [Integrator]: running explicit-Euler integral of a sampled signal
//   - [Derivative]: backward finite-difference rate of a sampled signal
//   - [System]: continuous-time model (dX/dt = f(X, u, t))
//   - [Stepper]: numerical integrator interface for a [System]
//
// Unit helpers convert the plant's SI quantities into the reporting units
// used by telemetry (degrees wrapped to [0, 360), revolutions per minute).
//
// # Thread Safety
//
// None of the types here are safe for concurrent use. They are owned by the
// control loop.
package dynamo

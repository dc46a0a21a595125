// Package analysis characterises recorded runs.
//
//   - [Step]: rise time, overshoot and settling time of a step response
//   - [Spectrum]: magnitude spectrum of a uniformly sampled signal
//   - [Ripple]: mean and spread of a signal once it has settled
//
// Signals are pulled out of telemetry samples with a [Field]:
//
//	resp := analysis.Step(analysis.Values(samples, analysis.Velocity), times, 750, 0.02)
//	fmt.Println(resp.RiseTime, resp.Overshoot)
package analysis

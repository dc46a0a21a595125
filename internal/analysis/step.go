package analysis

import (
	"math"
)

// StepResponse summarises how a signal approached a constant target.
// Times are in seconds; NaN marks a threshold that was never reached.
type StepResponse struct {
	Initial float64
	Final   float64
	// RiseTime is the 10% to 90% transit time.
	RiseTime float64
	// Overshoot is the furthest excursion past the target, as a fraction of
	// the step size.
	Overshoot float64
	// SettlingTime is the first time after which the signal stays within
	// tolerance*step of the target.
	SettlingTime   float64
	SteadyStateErr float64
	PeakTime       float64
	SettledSamples int
}

// Step analyses values sampled at times against target. tolerance is a
// fraction of the step size, typically 0.02.
func Step(values, times []float64, target, tolerance float64) StepResponse {
	n := min(len(values), len(times))
	resp := StepResponse{
		RiseTime:     math.NaN(),
		SettlingTime: math.NaN(),
		PeakTime:     math.NaN(),
	}
	if n == 0 {
		return resp
	}

	resp.Initial = values[0]
	resp.Final = values[n-1]
	resp.SteadyStateErr = target - resp.Final

	step := target - resp.Initial
	if step == 0 {
		resp.RiseTime, resp.SettlingTime = 0, 0
		return resp
	}
	dir := math.Copysign(1, step)
	size := math.Abs(step)

	// progress is the fraction of the step covered, positive toward target.
	progress := func(v float64) float64 { return (v - resp.Initial) * dir / size }

	t10, t90 := math.NaN(), math.NaN()
	peak := math.Inf(-1)
	for i := 0; i < n; i++ {
		p := progress(values[i])
		if math.IsNaN(t10) && p >= 0.1 {
			t10 = times[i]
		}
		if math.IsNaN(t90) && p >= 0.9 {
			t90 = times[i]
		}
		if p > peak {
			peak = p
			resp.PeakTime = times[i]
		}
	}
	if !math.IsNaN(t10) && !math.IsNaN(t90) {
		resp.RiseTime = t90 - t10
	}
	resp.Overshoot = math.Max(0, peak-1)

	band := tolerance * size
	last := -1
	for i := n - 1; i >= 0; i-- {
		if math.Abs(values[i]-target) > band {
			break
		}
		last = i
	}
	if last >= 0 {
		resp.SettlingTime = times[last]
		resp.SettledSamples = n - last
	}
	return resp
}

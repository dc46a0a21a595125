package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// Bin is one spectral line.
type Bin struct {
	Frequency float64 // Hz
	Magnitude float64
}

// Spectrum returns the one-sided magnitude spectrum of values sampled at
// rate Hz. The mean is removed first so the DC bin does not dominate.
func Spectrum(values []float64, rate float64) []Bin {
	if len(values) < 2 {
		return nil
	}

	mean := stat.Mean(values, nil)
	centred := make([]float64, len(values))
	for i, v := range values {
		centred[i] = v - mean
	}

	n := len(centred)
	coeff := fft.FFTReal(centred)

	bins := make([]Bin, n/2+1)
	scale := 2 / float64(n)
	for i := range bins {
		bins[i] = Bin{
			Frequency: float64(i) * rate / float64(n),
			Magnitude: cmplx.Abs(coeff[i]) * scale,
		}
	}
	return bins
}

// Dominant returns the strongest non-DC bin.
func Dominant(bins []Bin) (Bin, bool) {
	var best Bin
	found := false
	for _, b := range bins {
		if b.Frequency == 0 {
			continue
		}
		if !found || b.Magnitude > best.Magnitude {
			best = b
			found = true
		}
	}
	return best, found
}

// RippleStats describes a signal's behaviour after settling.
type RippleStats struct {
	Mean       float64
	StdDev     float64
	PeakToPeak float64
}

// Ripple summarises values from index from onwards.
func Ripple(values []float64, from int) RippleStats {
	if from < 0 {
		from = 0
	}
	if from >= len(values) {
		return RippleStats{}
	}
	tail := values[from:]

	lo, hi := tail[0], tail[0]
	for _, v := range tail {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	rs := RippleStats{
		Mean:       stat.Mean(tail, nil),
		PeakToPeak: hi - lo,
	}
	if len(tail) > 1 {
		rs.StdDev = stat.StdDev(tail, nil)
	}
	return rs
}

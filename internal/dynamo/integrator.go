package dynamo

// Integrator accumulates value*delta into a running sum (explicit Euler).
type Integrator struct {
	sum float64
}

func (i *Integrator) Integrate(delta, value float64) {
	i.sum += value * delta
}

func (i *Integrator) State() float64 {
	return i.sum
}

func (i *Integrator) Reset() {
	i.sum = 0
}

// Derivative estimates the rate of change of a sampled signal as
// (value - previous) / delta.
//
// After Reset the previous sample is zero, so the first estimate following a
// reset reflects the full jump from zero to the first value. delta must be
// non-zero.
type Derivative struct {
	prev     float64
	estimate float64
}

func (d *Derivative) Derivate(delta, value float64) {
	d.estimate = (value - d.prev) / delta
	d.prev = value
}

func (d *Derivative) State() float64 {
	return d.estimate
}

func (d *Derivative) Reset() {
	d.prev = 0
	d.estimate = 0
}

// Package clock implements the fixed-period scheduler that paces the control
// loop.
//
// Tick busy-waits on the time source instead of sleeping: OS sleep
// granularity is coarser than the sub-millisecond periods the loop runs at.
// The reported delta is the measured interval between ticks, not the nominal
// period, so integration stays correct under scheduling jitter.
package clock

import (
	"context"
	"math"
	"time"
)

// Bounds on the tick period. Shorter periods truncate to a zero delta and
// longer ones overflow time.Duration arithmetic in practice.
const (
	MinPeriod = time.Microsecond
	MaxPeriod = time.Hour
)

// Source supplies wall-clock instants. It must be monotonic.
type Source interface {
	Now() time.Time
}

type systemSource struct{}

func (systemSource) Now() time.Time { return time.Now() }

// SystemSource reads the monotonic wall clock.
var SystemSource Source = systemSource{}

// FixedStep is a Source that advances by Step on every call to Now. It makes
// runs deterministic: each Tick observes exactly one period.
type FixedStep struct {
	Step time.Duration
	t    time.Time
}

func NewFixedStep(step time.Duration) *FixedStep {
	return &FixedStep{Step: step, t: time.Unix(0, 0)}
}

func (f *FixedStep) Now() time.Time {
	f.t = f.t.Add(f.Step)
	return f.t
}

type Clock struct {
	src    Source
	period time.Duration
	start  time.Time
	last   time.Time
	since  float64
	delta  float64
}

// New returns a clock ticking at frequency Hz. Construction sets the start
// instant; building a new Clock is how a run re-zeroes its time base.
func New(frequency float64, src Source) *Clock {
	if src == nil {
		src = SystemSource
	}
	now := src.Now()
	return &Clock{
		src:    src,
		period: Period(frequency),
		start:  now,
		last:   now,
	}
}

// Period converts a frequency in Hz to the tick period. Callers should
// check the frequency with InRange first.
func Period(frequency float64) time.Duration {
	return time.Duration(float64(time.Second) / frequency)
}

// InRange reports whether frequency maps to a period within
// [MinPeriod, MaxPeriod].
func InRange(frequency float64) bool {
	if math.IsNaN(frequency) || math.IsInf(frequency, 0) || frequency <= 0 {
		return false
	}
	period := 1 / frequency
	return period >= MinPeriod.Seconds() && period <= MaxPeriod.Seconds()
}

// Tick spins until at least one period has elapsed since the previous tick,
// then records the elapsed time since start and the measured delta. It
// returns ctx.Err() if the context ends while waiting.
func (c *Clock) Tick(ctx context.Context) error {
	done := ctx.Done()
	for {
		now := c.src.Now()
		if elapsed := now.Sub(c.last); elapsed >= c.period {
			c.delta = elapsed.Seconds()
			c.since = now.Sub(c.start).Seconds()
			c.last = now
			return nil
		}
		select {
		case <-done:
			return ctx.Err()
		default:
		}
	}
}

// TimeSinceStart is the elapsed time in seconds at the last tick.
func (c *Clock) TimeSinceStart() float64 {
	return c.since
}

// Delta is the measured interval in seconds between the last two ticks.
func (c *Clock) Delta() float64 {
	return c.delta
}

func (c *Clock) Period() time.Duration {
	return c.period
}

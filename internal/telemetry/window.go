// Package telemetry holds the state shared between the control loop and its
// observers: the sliding sample window and the live target.
package telemetry

import "sync"

// Point is a [time, value] pair.
type Point [2]float64

// Sample is one admitted control-loop observation.
type Sample struct {
	Time     float64 `json:"time"`     // seconds since the run started
	Position float64 `json:"position"` // degrees, [0, 360)
	Velocity float64 `json:"velocity"` // rpm
	Voltage  float64 `json:"voltage"`  // volts
	Torque   float64 `json:"torque"`   // N·m

	// Setpoint is the reference of the outermost active loop, in that
	// loop's unit. It is not stored in the window.
	Setpoint float64 `json:"setpoint"`
}

// series is a FIFO of points. Popped entries are reclaimed when more than
// half of the backing array is dead.
type series struct {
	points []Point
	head   int
}

func (s *series) len() int { return len(s.points) - s.head }

func (s *series) push(p Point) { s.points = append(s.points, p) }

func (s *series) pop() {
	if s.len() == 0 {
		return
	}
	s.head++
	if s.head > len(s.points)/2 {
		n := copy(s.points, s.points[s.head:])
		s.points = s.points[:n]
		s.head = 0
	}
}

func (s *series) clone() []Point {
	out := make([]Point, s.len())
	copy(out, s.points[s.head:])
	return out
}

func (s *series) clear() {
	s.points = s.points[:0]
	s.head = 0
}

// Window is a set of four time-aligned series bounded to the run duration.
// The control loop is the only writer; observers read through the clone
// accessors. All methods are safe for concurrent use.
type Window struct {
	mu       sync.Mutex
	position series
	velocity series
	voltage  series
	torque   series
}

func NewWindow() *Window {
	return &Window{}
}

// Append records s in every series. Once s.Time exceeds duration, the oldest
// point of each series is evicted before the new one is added.
func (w *Window) Append(s Sample, duration float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, entry := range []struct {
		series *series
		value  float64
	}{
		{&w.position, s.Position},
		{&w.velocity, s.Velocity},
		{&w.voltage, s.Voltage},
		{&w.torque, s.Torque},
	} {
		if s.Time > duration && entry.series.len() > 0 {
			entry.series.pop()
		}
		entry.series.push(Point{s.Time, entry.value})
	}
}

func (w *Window) Positions() []Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.position.clone()
}

func (w *Window) Velocities() []Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.velocity.clone()
}

func (w *Window) Voltages() []Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.voltage.clone()
}

func (w *Window) Torques() []Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.torque.clone()
}

// Latest returns the most recent sample, or false if the window is empty.
func (w *Window) Latest() (Sample, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(w.position.points)
	if w.position.len() == 0 {
		return Sample{}, false
	}
	p := w.position.points[n-1]
	return Sample{
		Time:     p[0],
		Position: p[1],
		Velocity: w.velocity.points[len(w.velocity.points)-1][1],
		Voltage:  w.voltage.points[len(w.voltage.points)-1][1],
		Torque:   w.torque.points[len(w.torque.points)-1][1],
	}, true
}

func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.position.len()
}

// Span is the time between the oldest and newest point.
func (w *Window) Span() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.position.len() == 0 {
		return 0
	}
	return w.position.points[len(w.position.points)-1][0] - w.position.points[w.position.head][0]
}

func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.position.clear()
	w.velocity.clear()
	w.voltage.clear()
	w.torque.clear()
}

// Package metrics summarizes a run. Metric implementations reduce the sample
// stream to a single number; Collector exports live values to Prometheus.
package metrics

import (
	"sort"
	"sync"

	"github.com/san-kum/motorsim/internal/telemetry"
)

type Metric interface {
	Name() string
	Observe(s telemetry.Sample)
	Value() float64
	Reset()
}

// Set fans samples out to a group of metrics. It is safe for concurrent use,
// so the control loop can feed it while another goroutine reads a summary.
type Set struct {
	mu      sync.Mutex
	metrics []Metric
}

func NewSet(ms ...Metric) *Set {
	return &Set{metrics: ms}
}

func (s *Set) OnSample(sample telemetry.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.metrics {
		m.Observe(sample)
	}
}

func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.metrics {
		m.Reset()
	}
}

// Summary returns the current value of every metric keyed by name.
func (s *Set) Summary() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Names returns the metric names in sorted order.
func (s *Set) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.metrics))
	for _, m := range s.metrics {
		names = append(names, m.Name())
	}
	sort.Strings(names)
	return names
}

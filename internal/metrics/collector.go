package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/motorsim/internal/telemetry"
)

// Collector mirrors the live control loop into Prometheus gauges and
// counters.
type Collector struct {
	Position prometheus.Gauge
	Velocity prometheus.Gauge
	Voltage  prometheus.Gauge
	Torque   prometheus.Gauge

	Samples  prometheus.Counter
	Resets   *prometheus.CounterVec
	Overruns prometheus.Counter
}

// NewCollector creates the collector and registers it on reg.
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	c := &Collector{
		Position: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position_degrees",
			Help:      "Shaft position of the latest admitted sample.",
		}),
		Velocity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "velocity_rpm",
			Help:      "Shaft velocity of the latest admitted sample.",
		}),
		Voltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voltage_volts",
			Help:      "Drive voltage of the latest admitted sample.",
		}),
		Torque: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "torque_newton_meters",
			Help:      "Motor torque of the latest admitted sample.",
		}),
		Samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Samples admitted to the telemetry window.",
		}),
		Resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Configuration resets applied by the control loop.",
		}, []string{"mode"}),
		Overruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_overruns_total",
			Help:      "Ticks whose measured delta exceeded 1.5 periods.",
		}),
	}

	for _, m := range []prometheus.Collector{
		c.Position, c.Velocity, c.Voltage, c.Torque,
		c.Samples, c.Resets, c.Overruns,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) OnSample(s telemetry.Sample) {
	c.Position.Set(s.Position)
	c.Velocity.Set(s.Velocity)
	c.Voltage.Set(s.Voltage)
	c.Torque.Set(s.Torque)
	c.Samples.Inc()
}

func (c *Collector) OnReset(mode string) {
	c.Resets.WithLabelValues(mode).Inc()
}

func (c *Collector) OnOverrun() {
	c.Overruns.Inc()
}

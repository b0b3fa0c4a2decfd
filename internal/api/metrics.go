package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts two-factor operations by outcome.
type Metrics struct {
	Operations       *prometheus.CounterVec
	RequestDurations *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twofactor_operations_total",
				Help: "Total number of two-factor operations by result.",
			},
			[]string{"operation", "result"},
		),
		RequestDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "twofactor_http_request_duration_seconds",
				Help:    "Duration of two-factor HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
	for _, c := range []prometheus.Collector{m.Operations, m.RequestDurations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(operation, result string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, result).Inc()
}

package advisory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the gateway. A nil *Metrics records nothing.
type Metrics struct {
	requests       *prometheus.CounterVec
	fallbackFields prometheus.Counter
	latency        *prometheus.HistogramVec
}

// NewMetrics registers the advisory collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qntx_astro",
			Subsystem: "advisory",
			Name:      "requests_total",
			Help:      "Advisory inference attempts by outcome",
		}, []string{"outcome"}),
		fallbackFields: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "qntx_astro",
			Subsystem: "advisory",
			Name:      "fallback_fields_total",
			Help:      "Fields left to the synthetic classification after advisory failure",
		}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qntx_astro",
			Subsystem: "advisory",
			Name:      "request_seconds",
			Help:      "Advisory inference latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observe(o outcome, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(o.String()).Inc()
	m.latency.WithLabelValues(o.String()).Observe(seconds)
}

func (m *Metrics) fallback(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.fallbackFields.Add(float64(n))
}

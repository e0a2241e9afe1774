package dispatch

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics observes the dispatcher. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// ObserveError is called once per normalized error with the link that consumed it.
	ObserveError(mode Mode, statusCode int, res Resolution)

	// AsyncStarted and AsyncFinished bracket every async call.
	AsyncStarted()
	AsyncFinished()
}

type noopMetrics struct{}

func (noopMetrics) ObserveError(Mode, int, Resolution) {}
func (noopMetrics) AsyncStarted()                      {}
func (noopMetrics) AsyncFinished()                     {}

// PrometheusMetrics exports dispatcher metrics to Prometheus.
type PrometheusMetrics struct {
	errors   *prometheus.CounterVec
	inFlight prometheus.Gauge
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
// Collectors already registered under the same names are reused.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) (*PrometheusMetrics, error) {
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dispatch",
		Name:      "errors_total",
		Help:      "Normalized errors by call mode, status code and resolving handler.",
	}, []string{"mode", "status", "resolution"})

	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dispatch",
		Name:      "async_in_flight",
		Help:      "Async calls submitted and not yet completed.",
	})

	var err error
	if errs, err = register(reg, errs); err != nil {
		return nil, err
	}
	if inFlight, err = register(reg, inFlight); err != nil {
		return nil, err
	}

	return &PrometheusMetrics{errors: errs, inFlight: inFlight}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveError implements Metrics.
func (m *PrometheusMetrics) ObserveError(mode Mode, statusCode int, res Resolution) {
	m.errors.WithLabelValues(string(mode), strconv.Itoa(statusCode), string(res)).Inc()
}

// AsyncStarted implements Metrics.
func (m *PrometheusMetrics) AsyncStarted() { m.inFlight.Inc() }

// AsyncFinished implements Metrics.
func (m *PrometheusMetrics) AsyncFinished() { m.inFlight.Dec() }

package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors of the script host. It uses a
// custom registry. All methods are safe to call on a nil *Metrics.
type Metrics struct {
	Registry *prometheus.Registry

	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	RPCCallsTotal      *prometheus.CounterVec
	WorkersBusy        prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		InvocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scripthost",
			Name:      "invocations_total",
			Help:      "Total script invocations.",
		}, []string{"transport", "status"}),

		InvocationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scripthost",
			Name:      "invocation_duration_seconds",
			Help:      "Script invocation duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"transport"}),

		RPCCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scripthost",
			Name:      "rpc_calls_total",
			Help:      "Total JSON-RPC calls by error code, 0 for success.",
		}, []string{"code"}),

		WorkersBusy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scripthost",
			Name:      "workers_busy",
			Help:      "Number of workers currently running a sandbox.",
		}),
	}

	reg.MustRegister(
		m.InvocationsTotal,
		m.InvocationDuration,
		m.RPCCallsTotal,
		m.WorkersBusy,
	)

	return m
}

// ObserveInvocation records a finished invocation. status is the
// response status, or a short label for invocations without one.
func (m *Metrics) ObserveInvocation(transport, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.InvocationsTotal.WithLabelValues(transport, status).Inc()
	m.InvocationDuration.WithLabelValues(transport).Observe(duration.Seconds())
}

func (m *Metrics) ObserveRPCCall(code int) {
	if m == nil {
		return
	}
	m.RPCCallsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *Metrics) WorkerAcquired() {
	if m == nil {
		return
	}
	m.WorkersBusy.Inc()
}

func (m *Metrics) WorkerReleased() {
	if m == nil {
		return
	}
	m.WorkersBusy.Dec()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

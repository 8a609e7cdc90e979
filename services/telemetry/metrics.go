package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Metrics are the telemetry counters.
type Metrics struct {
	Drains       prometheus.Counter
	DrainErrors  prometheus.Counter
	FIFOBytes    prometheus.Counter
	Events       *prometheus.CounterVec // labels: sensor
	DecodeErrors *prometheus.CounterVec // labels: reason
	MetaEvents   *prometheus.CounterVec // labels: kind
	Carry        prometheus.Gauge       // bytes of a split record held for the next drain
	DeviceTS     prometheus.Gauge
}

// NewMetrics registers the telemetry counters with reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Drains: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensorhub_fifo_drains_total",
			Help: "FIFO drain cycles.",
		}),
		DrainErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensorhub_fifo_drain_errors_total",
			Help: "FIFO reads that failed on the bus.",
		}),
		FIFOBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensorhub_fifo_bytes_total",
			Help: "Bytes read from the FIFO.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensorhub_events_total",
			Help: "Decoded FIFO records by sensor.",
		}, []string{"sensor"}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensorhub_decode_errors_total",
			Help: "FIFO records that failed to decode.",
		}, []string{"reason"}),
		MetaEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensorhub_meta_events_total",
			Help: "Meta events by kind.",
		}, []string{"kind"}),
		Carry: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sensorhub_fifo_carry_bytes",
			Help: "Bytes of a partial record held over to the next drain.",
		}),
		DeviceTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sensorhub_device_timestamp_ticks",
			Help: "Last device timestamp (1/32000 s ticks).",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Drains, m.DrainErrors, m.FIFOBytes, m.Events, m.DecodeErrors, m.MetaEvents, m.Carry, m.DeviceTS)
	}
	return m
}

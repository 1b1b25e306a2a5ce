package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks conversion engine counters for the /metrics endpoint.
type Metrics struct {
	Uploads     prometheus.Counter
	Conversions *prometheus.CounterVec
	InFlight    prometheus.Gauge
	Rejections  prometheus.Counter
	Swept       prometheus.Counter
}

// NewMetrics builds and registers the metric set. Pass nil to skip
// registration, which tests use to avoid duplicate collector panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileconv_uploads_total",
			Help: "Accepted uploads.",
		}),
		Conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fileconv_conversions_total",
			Help: "Finished conversion jobs by outcome status.",
		}, []string{"status"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fileconv_jobs_in_flight",
			Help: "Conversion jobs currently queued or running.",
		}),
		Rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileconv_busy_rejections_total",
			Help: "Jobs rejected because the worker pool was saturated.",
		}),
		Swept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileconv_swept_files_total",
			Help: "Files removed by the retention sweep.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Uploads, m.Conversions, m.InFlight, m.Rejections, m.Swept)
	}
	return m
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch results used as the "result" label of FetchesTotal.
const (
	ResultFetched     = "fetched"
	ResultDuplicate   = "duplicate"
	ResultWriteFailed = "write_failed"
	ResultTransport   = "transport_error"
	ResultInvalidURL  = "invalid_url"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	FetchesTotal        *prometheus.CounterVec
	BytesWritten        prometheus.Counter
	ResolutionFailures  prometheus.Counter
	FilesRewritten      prometheus.Counter
	JobsTotal           *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers the metrics with reg. Pass prometheus.DefaultRegisterer to
// expose them through promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FetchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mirror_fetches_total",
			Help: "Fetch attempts by result.",
		}, []string{"result"}),
		BytesWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "mirror_bytes_written_total",
			Help: "Bytes written to the mirror output.",
		}),
		ResolutionFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "mirror_resolution_failures_total",
			Help: "References dropped because their scheme is not fetchable.",
		}),
		FilesRewritten: f.NewCounter(prometheus.CounterOpts{
			Name: "mirror_files_rewritten_total",
			Help: "HTML files rewritten for offline browsing.",
		}),
		JobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mirror_jobs_total",
			Help: "Mirror job status transitions, plus rejected submissions.",
		}, []string{"status"}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// The helpers below are no-ops on a nil *Metrics.

func (m *Metrics) IncFetch(result string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) AddBytes(n int) {
	if m == nil {
		return
	}
	m.BytesWritten.Add(float64(n))
}

func (m *Metrics) IncResolutionFailure() {
	if m == nil {
		return
	}
	m.ResolutionFailures.Inc()
}

func (m *Metrics) IncRewritten() {
	if m == nil {
		return
	}
	m.FilesRewritten.Inc()
}

func (m *Metrics) IncJob(status string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(status).Inc()
}

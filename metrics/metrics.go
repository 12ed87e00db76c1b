// Package metrics holds the Prometheus collectors for classification,
// rendering and the HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chatsnip"

// Operation label values for OperationDuration
const (
	OperationClassify = "classify"
	OperationRender   = "render"
)

// Metrics groups every collector the service exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Classifications   *prometheus.CounterVec
	MessagesPerConv   prometheus.Histogram
	NoUsableText      prometheus.Counter
	Renders           *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New registers all collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Classifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Conversations classified, by winning strategy.",
		}, []string{"strategy", "fell_back"}),
		MessagesPerConv: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "messages_per_conversation",
			Help:      "Number of messages inferred per conversation.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),
		NoUsableText: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "no_usable_text_total",
			Help:      "Inputs rejected because they held no usable text.",
		}),
		Renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Conversations rendered, by output format.",
		}, []string{"format"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by path and status code.",
		}, []string{"path", "code"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent classifying or rendering.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"operation"}),
	}
}

// ObserveClassification records one successful classification
func (m *Metrics) ObserveClassification(strategy string, fellBack bool, messages int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(strategy, strconv.FormatBool(fellBack)).Inc()
	m.MessagesPerConv.Observe(float64(messages))
	m.OperationDuration.WithLabelValues(OperationClassify).Observe(elapsed.Seconds())
}

// ObserveNoUsableText records a rejected blank input
func (m *Metrics) ObserveNoUsableText() {
	if m == nil {
		return
	}
	m.NoUsableText.Inc()
}

// ObserveRender records one successful render
func (m *Metrics) ObserveRender(format string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Renders.WithLabelValues(format).Inc()
	m.OperationDuration.WithLabelValues(OperationRender).Observe(elapsed.Seconds())
}

// ObserveHTTPRequest records one handled request
func (m *Metrics) ObserveHTTPRequest(path string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(path, strconv.Itoa(code)).Inc()
}

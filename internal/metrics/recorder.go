// Package metrics records HTTP and webhook outcomes for the service.
//
// Recorder keeps three process-wide tallies:
//
//   - http_requests_total   by (path, status)
//   - webhook_requests_total by outcome label (created, duplicate, …)
//   - request latencies in milliseconds
//
// Render produces the flat plain-text exposition served at GET /metrics.
// Every observation is also mirrored into Prometheus collectors registered on
// a Recorder-owned registry, so the same data can be scraped in the standard
// exposition format via Registry().
//
// Latency samples are kept as an ever-growing slice and only reset on
// process restart.
package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Latency bucket upper bounds in milliseconds; the final +Inf bucket is implicit.
var latencyBucketsMS = []float64{100, 500}

type httpKey struct {
	path   string
	status string
}

// Recorder is safe for concurrent use. All mutations and Render are mutually
// exclusive.
type Recorder struct {
	mu        sync.Mutex
	http      map[httpKey]int64
	webhook   map[string]int64
	latencies []int64

	registry    *prometheus.Registry
	promHTTP    *prometheus.CounterVec
	promWebhook *prometheus.CounterVec
	promLatency prometheus.Histogram
	inFlight    prometheus.Gauge
	respSize    prometheus.Histogram
}

// New returns an empty Recorder with its own Prometheus registry. Go runtime
// and process collectors are registered alongside the service collectors.
func New() *Recorder {
	r := &Recorder{
		http:     make(map[httpKey]int64),
		webhook:  make(map[string]int64),
		registry: prometheus.NewRegistry(),
		promHTTP: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_http_requests_total",
				Help: "Total number of HTTP requests by path and status.",
			},
			[]string{"path", "status"},
		),
		promWebhook: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_outcomes_total",
				Help: "Webhook requests by outcome label.",
			},
			[]string{"result"},
		),
		promLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webhook_request_latency_ms",
				Help:    "HTTP request latency in milliseconds.",
				Buckets: latencyBucketsMS,
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "webhook_http_requests_inflight",
				Help: "Current number of in-flight HTTP requests.",
			},
		),
		respSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webhook_http_response_size_bytes",
				Help:    "Size of HTTP responses in bytes.",
				Buckets: []float64{64, 256, 1 << 10, 4 << 10, 16 << 10, 64 << 10, 256 << 10, 1 << 20},
			},
		),
	}
	r.registry.MustRegister(
		r.promHTTP,
		r.promWebhook,
		r.promLatency,
		r.inFlight,
		r.respSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry exposes the Prometheus registry backing the mirrored collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// IncHTTP counts one request for (path, status).
func (r *Recorder) IncHTTP(path string, status int) {
	s := strconv.Itoa(status)
	r.mu.Lock()
	r.http[httpKey{path: path, status: s}]++
	r.mu.Unlock()
	r.promHTTP.WithLabelValues(path, s).Inc()
}

// IncWebhook counts one webhook request resolved with the given outcome label.
func (r *Recorder) IncWebhook(result string) {
	r.mu.Lock()
	r.webhook[result]++
	r.mu.Unlock()
	r.promWebhook.WithLabelValues(result).Inc()
}

// ObserveLatency appends one latency sample in milliseconds.
func (r *Recorder) ObserveLatency(ms int64) {
	r.mu.Lock()
	r.latencies = append(r.latencies, ms)
	r.mu.Unlock()
	r.promLatency.Observe(float64(ms))
}

// AddInFlight adjusts the in-flight request gauge by delta. It is only
// exported through Registry, not Render.
func (r *Recorder) AddInFlight(delta float64) { r.inFlight.Add(delta) }

// ObserveResponseSize records the bytes written for one response. Negative
// sizes (nothing written) are ignored.
func (r *Recorder) ObserveResponseSize(n int) {
	if n < 0 {
		return
	}
	r.respSize.Observe(float64(n))
}

// Render returns the flat text exposition: one line per (path,status)
// counter, one line per webhook outcome, cumulative latency buckets for
// 100ms, 500ms and +Inf, then the sample count. Counter lines are sorted
// by label values. The output ends with a newline.
func (r *Recorder) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder

	keys := make([]httpKey, 0, len(r.http))
	for k := range r.http {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].path != keys[j].path {
			return keys[i].path < keys[j].path
		}
		return keys[i].status < keys[j].status
	})
	for _, k := range keys {
		fmt.Fprintf(&b, "http_requests_total{path=%q,status=%q} %d\n", k.path, k.status, r.http[k])
	}

	results := make([]string, 0, len(r.webhook))
	for k := range r.webhook {
		results = append(results, k)
	}
	sort.Strings(results)
	for _, k := range results {
		fmt.Fprintf(&b, "webhook_requests_total{result=%q} %d\n", k, r.webhook[k])
	}

	counts := make([]int, len(latencyBucketsMS))
	for _, ms := range r.latencies {
		for i, le := range latencyBucketsMS {
			if float64(ms) <= le {
				counts[i]++
			}
		}
	}
	for i, le := range latencyBucketsMS {
		fmt.Fprintf(&b, "request_latency_ms_bucket{le=\"%s\"} %d\n", strconv.FormatFloat(le, 'f', -1, 64), counts[i])
	}
	fmt.Fprintf(&b, "request_latency_ms_bucket{le=\"+Inf\"} %d\n", len(r.latencies))
	fmt.Fprintf(&b, "request_latency_ms_count %d\n", len(r.latencies))

	return b.String()
}

package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRender_EmptyRecorder(t *testing.T) {
	got := New().Render()
	want := "" +
		"request_latency_ms_bucket{le=\"100\"} 0\n" +
		"request_latency_ms_bucket{le=\"500\"} 0\n" +
		"request_latency_ms_bucket{le=\"+Inf\"} 0\n" +
		"request_latency_ms_count 0\n"
	if got != want {
		t.Fatalf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRender_CountersAndCumulativeBuckets(t *testing.T) {
	r := New()
	r.IncHTTP("/webhook", 200)
	r.IncHTTP("/webhook", 200)
	r.IncHTTP("/webhook", 401)
	r.IncHTTP("/messages", 200)
	r.IncWebhook("created")
	r.IncWebhook("duplicate")
	r.IncWebhook("created")
	r.IncWebhook("invalid_signature")
	for _, ms := range []int64{0, 100, 101, 500, 501, 9000} {
		r.ObserveLatency(ms)
	}

	want := "" +
		"http_requests_total{path=\"/messages\",status=\"200\"} 1\n" +
		"http_requests_total{path=\"/webhook\",status=\"200\"} 2\n" +
		"http_requests_total{path=\"/webhook\",status=\"401\"} 1\n" +
		"webhook_requests_total{result=\"created\"} 2\n" +
		"webhook_requests_total{result=\"duplicate\"} 1\n" +
		"webhook_requests_total{result=\"invalid_signature\"} 1\n" +
		"request_latency_ms_bucket{le=\"100\"} 2\n" +
		"request_latency_ms_bucket{le=\"500\"} 4\n" +
		"request_latency_ms_bucket{le=\"+Inf\"} 6\n" +
		"request_latency_ms_count 6\n"
	if got := r.Render(); got != want {
		t.Fatalf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRecorder_MirrorsIntoPrometheus(t *testing.T) {
	r := New()
	r.IncHTTP("/stats", 200)
	r.IncWebhook("validation_error")
	r.ObserveLatency(42)
	r.AddInFlight(1)
	r.AddInFlight(1)
	r.AddInFlight(-1)
	r.ObserveResponseSize(15)
	r.ObserveResponseSize(-1)

	if v := testutil.ToFloat64(r.promHTTP.WithLabelValues("/stats", "200")); v != 1 {
		t.Fatalf("prom http counter = %v; want 1", v)
	}
	if v := testutil.ToFloat64(r.promWebhook.WithLabelValues("validation_error")); v != 1 {
		t.Fatalf("prom webhook counter = %v; want 1", v)
	}
	if n := testutil.CollectAndCount(r.promLatency); n != 1 {
		t.Fatalf("latency histogram series = %d; want 1", n)
	}
	if v := testutil.ToFloat64(r.inFlight); v != 1 {
		t.Fatalf("in-flight gauge = %v; want 1", v)
	}
	if strings.Contains(r.Render(), "inflight") {
		t.Fatalf("in-flight gauge must not appear in flat output")
	}

	mfs, err := r.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, n := range []string{"webhook_http_requests_total", "webhook_outcomes_total", "webhook_request_latency_ms", "go_goroutines"} {
		if !names[n] {
			t.Fatalf("registry missing %s", n)
		}
	}
}

func TestRecorder_ConcurrentUse(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				r.IncHTTP("/webhook", 200)
				r.IncWebhook("created")
				r.ObserveLatency(int64(i))
				_ = r.Render()
			}
		}()
	}
	wg.Wait()

	out := r.Render()
	for _, line := range []string{
		"http_requests_total{path=\"/webhook\",status=\"200\"} 2000",
		"webhook_requests_total{result=\"created\"} 2000",
		"request_latency_ms_count 2000",
	} {
		if !strings.Contains(out, line+"\n") {
			t.Fatalf("missing %q in\n%s", line, out)
		}
	}
}

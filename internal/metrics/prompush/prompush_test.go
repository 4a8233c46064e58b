package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dep/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// readCounterValue reads the current value of a Counter for assertions in tests.
func readCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write() error = %v", err)
	}
	if m.GetCounter() == nil {
		t.Fatalf("metric did not contain Counter value")
	}
	return m.GetCounter().GetValue()
}

func readSummaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()

	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	if !ok {
		t.Fatalf("SummaryVec.WithLabelValues(...) does not implement prometheus.Metric")
	}
	if err := metric.Write(m); err != nil {
		t.Fatalf("Summary.Write() error = %v", err)
	}
	if m.GetSummary() == nil {
		t.Fatalf("metric did not contain Summary value")
	}
	sum := m.GetSummary()
	return sum.GetSampleCount(), sum.GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		jobName     string
		gatewayURL  string
		wantErr     bool
		wantJobName string
	}{
		{name: "missing gateway URL returns error", jobName: "nightly", wantErr: true},
		{name: "empty job name uses default", gatewayURL: "http://pushgateway:9091", wantJobName: "dep"},
		{name: "explicit job name is preserved", jobName: "kpf-nightly", gatewayURL: "http://pushgateway:9091", wantJobName: "kpf-nightly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend(tt.jobName, tt.gatewayURL, nil)
			if tt.wantErr {
				if err == nil || b != nil {
					t.Fatalf("NewBackend(%q, %q) = %v, %v; want nil, error", tt.jobName, tt.gatewayURL, b, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend(%q, %q) error = %v", tt.jobName, tt.gatewayURL, err)
			}
			if b.jobName != tt.wantJobName {
				t.Fatalf("backend.jobName = %q, want %q", b.jobName, tt.wantJobName)
			}
			if b.stepCounter == nil || b.stepDuration == nil || b.recordCounter == nil || b.compareCounter == nil {
				t.Fatalf("collectors not initialized: %+v", b)
			}
		})
	}
}

func TestIncCounter(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("nightly", "http://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}

	b.IncCounter(metrics.StepTotal, 2, metrics.Labels{"step": "render", "status": "success"})
	b.IncCounter(metrics.RecordsTotal, 5, metrics.Labels{"kind": metrics.KindWritten})
	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": metrics.KindTruncation})
	b.IncCounter(metrics.CompareWarning, 3, metrics.Labels{"kind": "value_mismatch"})
	b.IncCounter("unknown_metric", 9, metrics.Labels{"kind": metrics.KindWritten})

	checks := []struct {
		name string
		c    prometheus.Counter
		want float64
	}{
		{"step", b.stepCounter.WithLabelValues("render", "success"), 2},
		{"written", b.recordCounter.WithLabelValues(metrics.KindWritten), 5},
		{"truncation", b.recordCounter.WithLabelValues(metrics.KindTruncation), 1},
		{"compare", b.compareCounter.WithLabelValues("value_mismatch"), 3},
	}
	for _, c := range checks {
		if got := readCounterValue(t, c.c); got != c.want {
			t.Errorf("%s counter = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestIncCounterNilMetrics(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "s", "status": "ok"})
	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": metrics.KindWritten})
	b.IncCounter(metrics.CompareWarning, 1, metrics.Labels{})
	b.ObserveHistogram(metrics.StepDuration, 1, metrics.Labels{})
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("nightly", "http://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	b.ObserveHistogram(metrics.StepDuration, 1.5, metrics.Labels{"step": "compare", "status": "success"})
	b.ObserveHistogram("other_metric", 2, metrics.Labels{"step": "compare", "status": "success"})

	n, sum := readSummaryCountSum(t, b.stepDuration, "compare", "success")
	if n != 1 || sum != 1.5 {
		t.Fatalf("summary = %d samples, sum %v; want 1, 1.5", n, sum)
	}
}

// TestFlush pushes to a fake Pushgateway and checks the grouping path.
func TestFlush(t *testing.T) {
	t.Parallel()

	type pushRequestInfo struct {
		method string
		path   string
		body   string
	}
	reqCh := make(chan pushRequestInfo, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushRequestInfo{method: r.Method, path: r.URL.Path, body: string(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("nightly", server.URL, map[string]string{"instrument": "KPF"})
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter(metrics.RecordsTotal, 4, metrics.Labels{"kind": metrics.KindWritten})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got pushRequestInfo
	select {
	case got = <-reqCh:
	default:
		t.Fatalf("Flush() did not result in any HTTP request to the Pushgateway")
	}

	if got.method != http.MethodPut {
		t.Fatalf("method = %q, want PUT", got.method)
	}
	if got.path != "/metrics/job/nightly/instrument/KPF" {
		t.Fatalf("path = %q", got.path)
	}
	if got.body == "" {
		t.Fatalf("push body is empty")
	}
}

func TestFlush_GatewayError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	b, err := NewBackend("nightly", server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = b.Flush()
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("Flush() error = %v, want status 500 error", err)
	}
}

func BenchmarkIncCounterRecord(b *testing.B) {
	backend, err := NewBackend("nightly", "http://example.com", nil)
	if err != nil {
		b.Fatalf("NewBackend() error = %v", err)
	}
	labels := metrics.Labels{"kind": metrics.KindWritten}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		backend.IncCounter(metrics.RecordsTotal, 1, labels)
	}
}

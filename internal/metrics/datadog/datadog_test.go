package datadog

import (
	"net"
	"reflect"
	"strings"
	"testing"
	"time"

	"dep/internal/metrics"
)

func TestNewBackend_RequiresAddr(t *testing.T) {
	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("expected error for empty Addr")
	}
}

func TestLabelsToTags(t *testing.T) {
	got := labelsToTags(metrics.Labels{"kind": "written", "job": "nightly"})
	want := []string{"job:nightly", "kind:written"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tags = %v, want %v", got, want)
	}
	if labelsToTags(nil) != nil {
		t.Fatal("nil labels should give nil tags")
	}
}

func TestBackend_SendsToAgent(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp not available: %v", err)
	}
	defer pc.Close()

	b, err := NewBackend(Config{Addr: pc.LocalAddr().String(), Namespace: "archive.", GlobalTags: []string{"env:test"}})
	if err != nil {
		t.Fatal(err)
	}
	b.IncCounter(metrics.RecordsTotal, 3, metrics.Labels{"job": "nightly", "kind": metrics.KindWritten})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	buf := make([]byte, 64<<10)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = pc.SetReadDeadline(deadline)
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			break
		}
		for _, line := range strings.Split(string(buf[:n]), "\n") {
			if strings.HasPrefix(line, "archive."+metrics.RecordsTotal+":3|c") {
				if !strings.Contains(line, "kind:written") || !strings.Contains(line, "env:test") {
					t.Fatalf("packet tags missing: %q", line)
				}
				return
			}
		}
	}
	t.Fatal("counter packet not received")
}

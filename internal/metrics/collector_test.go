package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading scrape body failed: %v", err)
	}
	return string(body)
}

func TestNewCollector(t *testing.T) {
	t.Parallel()

	t.Run("with valid config", func(t *testing.T) {
		config := &Config{
			Enabled:   true,
			Namespace: "gluu",
			Subsystem: "test",
		}
		collector, err := NewCollector(config)
		if err != nil {
			t.Fatalf("NewCollector() error = %v, want nil", err)
		}
		if collector == nil {
			t.Fatal("NewCollector() returned nil collector")
		}
		if collector.config != config {
			t.Error("collector.config does not match input config")
		}
		if collector.registry == nil {
			t.Error("collector.registry is nil")
		}
	})

	t.Run("with nil config uses defaults", func(t *testing.T) {
		collector, err := NewCollector(nil)
		if err != nil {
			t.Fatalf("NewCollector(nil) error = %v, want nil", err)
		}
		if collector.config.Namespace != "gluu" {
			t.Errorf("default namespace = %q, want %q", collector.config.Namespace, "gluu")
		}
		if collector.config.Subsystem != "persistence" {
			t.Errorf("default subsystem = %q, want %q", collector.config.Subsystem, "persistence")
		}
	})
}

func TestRecordOperation(t *testing.T) {
	t.Parallel()

	collector, err := NewCollector(nil)
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	collector.RecordOperation("couchbase", "exec_query", 5*time.Millisecond, nil)
	collector.RecordOperation("couchbase", "exec_query", 7*time.Millisecond, errors.New("boom"))
	collector.RecordOperation("sql", "insert_into", time.Millisecond, nil)

	body := scrape(t, collector)

	wantLines := []string{
		`gluu_persistence_operations_total{backend="couchbase",operation="exec_query",status="success"} 1`,
		`gluu_persistence_operations_total{backend="couchbase",operation="exec_query",status="error"} 1`,
		`gluu_persistence_operations_total{backend="sql",operation="insert_into",status="success"} 1`,
		`gluu_persistence_operation_duration_seconds_count{backend="couchbase",operation="exec_query"} 2`,
	}
	for _, want := range wantLines {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestRecordProbe(t *testing.T) {
	t.Parallel()

	collector, err := NewCollector(nil)
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	collector.RecordProbe("data", false)
	collector.RecordProbe("data", false)
	collector.RecordProbe("data", true)
	collector.RecordProbe("query", true)

	body := scrape(t, collector)

	wantLines := []string{
		`gluu_persistence_host_probes_total{service="data",status="unreachable"} 2`,
		`gluu_persistence_host_probes_total{service="data",status="reachable"} 1`,
		`gluu_persistence_host_probes_total{service="query",status="reachable"} 1`,
	}
	for _, want := range wantLines {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestDisabledCollector(t *testing.T) {
	t.Parallel()

	collector, err := NewCollector(&Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	// Recording must be a no-op, not a panic
	collector.RecordOperation("couchbase", "exec_query", time.Millisecond, nil)
	collector.RecordProbe("data", true)

	srv := httptest.NewServer(collector.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("disabled collector handler status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestDefaultIsSingleton(t *testing.T) {
	t.Parallel()

	if Default() != Default() {
		t.Error("Default() should return the same collector instance")
	}
}

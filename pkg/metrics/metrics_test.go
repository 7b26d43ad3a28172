package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsAvailability(t *testing.T) {
	RecordChildTransition("nexus0", "child0", "Open", "Online")
	SetRebuildProgress("nexus0", "child1", 42)
	RecordStatusSaveFailure()
	RecordErrorHistoryEntry("child0", "read")
	RecordVolumeOperation(OpFreezeVolume, "success", 100*time.Millisecond)

	server := httptest.NewServer(promhttp.Handler())
	defer server.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	content := string(body)

	expectedMetrics := []string{
		"nexus_core_child_transitions_total",
		"nexus_core_child_status",
		"nexus_core_child_rebuild_progress",
		"nexus_core_status_save_failures_total",
		"nexus_core_error_history_entries_total",
		"nexus_core_volume_operations_total",
		"nexus_core_volume_operation_duration_seconds",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(content, metric) {
			t.Errorf("Expected metric %s not found in metrics output", metric)
		}
	}

	DeleteRebuildProgress("nexus0", "child1")
}

func TestRecordChildTransition(t *testing.T) {
	RecordChildTransition("nexus1", "child1", "Faulted", "Faulted")
	RecordChildTransition("nexus1", "child1", "Open", "Online")
}

func TestOperationTimer(t *testing.T) {
	timer := NewOperationTimer(OpFreezeVolume)
	time.Sleep(5 * time.Millisecond)
	timer.ObserveSuccess()

	timer2 := NewOperationTimer(OpUnfreezeVolume)
	time.Sleep(5 * time.Millisecond)
	timer2.ObserveError()
}

func TestMetricsConstants(t *testing.T) {
	if OpFreezeVolume == "" || OpUnfreezeVolume == "" || OpFindVolume == "" {
		t.Error("operation constants should not be empty")
	}
}

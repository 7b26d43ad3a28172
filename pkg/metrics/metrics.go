// Package metrics provides Prometheus metrics for the nexus child lifecycle
// core and the volume service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nexus_core"

// Volume Service operation names.
const (
	OpFreezeVolume   = "FreezeVolume"
	OpUnfreezeVolume = "UnfreezeVolume"
	OpFindVolume     = "FindVolume"
)

var (
	childTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "child_transitions_total",
			Help:      "Total number of child state transitions by parent nexus and resulting state",
		},
		[]string{"parent", "to_state"},
	)

	childStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "child_status",
			Help:      "Externally projected child status (1 = current status for that child/status pair)",
		},
		[]string{"parent", "child", "status"},
	)

	childRebuildProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "child_rebuild_progress",
			Help:      "Rebuild progress percentage for a child currently rebuilding (0..100)",
		},
		[]string{"parent", "child"},
	)

	statusSaveFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_save_failures_total",
			Help:      "Total number of failed status-persistence save attempts",
		},
	)

	errHistoryEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "error_history_entries_total",
			Help:      "Total number of I/O error records appended to a child's error history",
		},
		[]string{"child", "op"},
	)

	volumeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "volume_operations_total",
			Help:      "Total number of volume service operations by operation type and status",
		},
		[]string{"operation", "status"},
	)

	volumeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "volume_operation_duration_seconds",
			Help:      "Duration of volume service operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation"},
	)
)

// RecordChildTransition increments the transition counter and sets the
// status gauge for the given child's new state.
func RecordChildTransition(parent, child, toState, externalStatus string) {
	childTransitionsTotal.WithLabelValues(parent, toState).Inc()
	for _, s := range []string{"Online", "Degraded", "Faulted"} {
		if s == externalStatus {
			childStatus.WithLabelValues(parent, child, s).Set(1)
		} else {
			childStatus.WithLabelValues(parent, child, s).Set(0)
		}
	}
}

// SetRebuildProgress records the current rebuild progress for a child.
func SetRebuildProgress(parent, child string, progress int) {
	childRebuildProgress.WithLabelValues(parent, child).Set(float64(progress))
}

// DeleteRebuildProgress removes the rebuild-progress gauge for a child that
// is no longer rebuilding.
func DeleteRebuildProgress(parent, child string) {
	childRebuildProgress.DeleteLabelValues(parent, child)
}

// RecordStatusSaveFailure records a failed best-effort persistence save.
func RecordStatusSaveFailure() {
	statusSaveFailuresTotal.Inc()
}

// RecordErrorHistoryEntry records an appended error-history entry.
func RecordErrorHistoryEntry(child, op string) {
	errHistoryEntriesTotal.WithLabelValues(child, op).Inc()
}

// RecordVolumeOperation records the outcome of a volume service operation.
func RecordVolumeOperation(operation, status string, duration time.Duration) {
	volumeOperationsTotal.WithLabelValues(operation, status).Inc()
	volumeOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// OperationTimer times a volume service operation and records the outcome
// on ObserveSuccess/ObserveError.
type OperationTimer struct {
	start     time.Time
	operation string
}

// NewOperationTimer starts timing a volume service operation.
func NewOperationTimer(operation string) *OperationTimer {
	return &OperationTimer{start: time.Now(), operation: operation}
}

// ObserveSuccess records a successful operation.
func (t *OperationTimer) ObserveSuccess() {
	RecordVolumeOperation(t.operation, "success", time.Since(t.start))
}

// ObserveError records a failed operation.
func (t *OperationTimer) ObserveError() {
	RecordVolumeOperation(t.operation, "error", time.Since(t.start))
}

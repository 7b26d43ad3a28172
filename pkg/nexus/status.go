package nexus

import (
	"github.com/nexus-storage/nexus-core/pkg/metrics"
	"github.com/nexus-storage/nexus-core/pkg/registry"
	"k8s.io/klog/v2"
)

// projectStatus derives the externally visible Status from the internal
// ChildState, per spec.md §3:
//
//	Open                              -> Online
//	Faulted(OutOfSync) + rebuild job  -> Degraded
//	any other Faulted(_)              -> Faulted
//	Init | Closed | ConfigInvalid      -> Faulted (not usable)
func projectStatus(state ChildState, rebuilding bool) Status {
	switch state.Kind {
	case StateOpen:
		return StatusOnline
	case StateFaulted:
		if state.Reason == ReasonOutOfSync && rebuilding {
			return StatusDegraded
		}
		return StatusFaulted
	default:
		return StatusFaulted
	}
}

// saveStatusChange invokes the persistence hook after a state transition is
// already visible. Save failures are logged, never propagated, per
// spec.md §4.6 and the Open Question in §9 that this is intentionally
// best-effort even when called redundantly (e.g. close() on an
// already-closed child).
func saveStatusChange(store registry.StatusStore, parent, child string) {
	if store == nil {
		return
	}
	if err := store.Save(); err != nil {
		metrics.RecordStatusSaveFailure()
		klog.Errorf("%s: failed to save status information for child %s: %v", parent, child, err)
	}
}

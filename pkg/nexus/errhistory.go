package nexus

import (
	"time"

	"github.com/nexus-storage/nexus-core/pkg/metrics"
)

// IOOp discriminates the operation that produced an ErrorRecord.
type IOOp int

const (
	OpRead IOOp = iota
	OpWrite
)

func (o IOOp) String() string {
	if o == OpWrite {
		return "write"
	}
	return "read"
}

// ErrorRecord is one entry in an ErrorHistory ring.
type ErrorRecord struct {
	Timestamp time.Time
	Op        IOOp
	Offset    uint64
	Err       error
}

// ErrorHistory is a fixed-capacity circular log of recent I/O errors.
// It is only allocated for a child when error tracking is enabled in
// configuration at open() time (spec.md §4.5): it is not re-enabled
// automatically on a later open if configuration changes in between,
// and its capacity is fixed for the lifetime of the allocation.
type ErrorHistory struct {
	childName string
	entries   []ErrorRecord
	next      int
	filled    bool
}

// NewErrorHistory allocates a ring of the given capacity. A non-positive
// size yields a ring that silently drops every record, which mirrors
// "tracking disabled" without requiring callers to nil-check.
func NewErrorHistory(childName string, size int) *ErrorHistory {
	if size < 0 {
		size = 0
	}
	return &ErrorHistory{childName: childName, entries: make([]ErrorRecord, size)}
}

// Record appends an error record, overwriting the oldest entry once the
// ring is full.
func (h *ErrorHistory) Record(op IOOp, offset uint64, err error) {
	if len(h.entries) == 0 {
		return
	}
	h.entries[h.next] = ErrorRecord{Timestamp: time.Now(), Op: op, Offset: offset, Err: err}
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.filled = true
	}
	metrics.RecordErrorHistoryEntry(h.childName, op.String())
}

// Len returns the number of entries currently populated.
func (h *ErrorHistory) Len() int {
	if h.filled {
		return len(h.entries)
	}
	return h.next
}

// Cap returns the ring's fixed capacity.
func (h *ErrorHistory) Cap() int { return len(h.entries) }

// Entries returns the populated entries in oldest-to-newest order.
func (h *ErrorHistory) Entries() []ErrorRecord {
	n := h.Len()
	out := make([]ErrorRecord, 0, n)
	if !h.filled {
		out = append(out, h.entries[:h.next]...)
		return out
	}
	out = append(out, h.entries[h.next:]...)
	out = append(out, h.entries[:h.next]...)
	return out
}

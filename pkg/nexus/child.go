package nexus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nexus-storage/nexus-core/pkg/breaker"
	"github.com/nexus-storage/nexus-core/pkg/metrics"
	"github.com/nexus-storage/nexus-core/pkg/registry"
	"k8s.io/klog/v2"
)

// ErrStoreOpts mirrors the Configuration entry in spec.md §6: whether the
// error-history ring is enabled for newly opened children, and its size.
type ErrStoreOpts struct {
	Enable bool
	Size   int
}

// Deps bundles the external collaborators a Child needs, all consumed as
// interfaces per spec.md §6. ErrStoreOpts and Breaker may be the zero value
// / nil: a nil Breaker disables the circuit-breaker guard and a disabled
// ErrStoreOpts simply never allocates an error-history ring.
type Deps struct {
	Driver   registry.BlockDeviceDriver
	Rebuilds registry.RebuildRegistry
	Status   registry.StatusStore
	Breaker  *breaker.ChildBreaker
	ErrStore ErrStoreOpts
}

// Child owns one block device participating as a replica in a nexus. Per
// spec.md §5/§9, the state machine is single-threaded by contract: callers
// must serialize operations on a given Child. The embedded mutex is not a
// substitute for that discipline: it serializes concurrent calls so they
// cannot corrupt the child's fields, but it does not detect or report them,
// and a method re-entered while the mutex is held deadlocks.
type Child struct {
	mu sync.Mutex

	parent string
	name   string

	bdev       registry.Bdev
	descriptor registry.Descriptor
	ioHandle   registry.IOHandle

	state ChildState

	errHistory *ErrorHistory

	deps Deps
}

// NewChild constructs a Child in StateInit. bdev may be nil if the
// underlying device is not yet known to exist (mirrors the original
// NexusChild::new(name, parent, bdev: Option<Bdev>)).
func NewChild(parent, name string, bdev registry.Bdev, deps Deps) *Child {
	return &Child{
		parent: parent,
		name:   name,
		bdev:   bdev,
		state:  stateInit,
		deps:   deps,
	}
}

// ParentName returns the name of the nexus this child belongs to.
func (c *Child) ParentName() string { return c.parent }

// Name returns the child's identity (the URI it was created with).
func (c *Child) Name() string { return c.name }

func (c *Child) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bdev != nil {
		return fmt.Sprintf("%s: %s/%s, blk_cnt: %d, blk_size: %d",
			c.name, c.state, c.status(), c.bdev.NumBlocks(), c.bdev.BlockLen())
	}
	return fmt.Sprintf("%s: state %s/%s", c.name, c.state, c.status())
}

// Status returns the internal ChildState.
func (c *Child) Status() ChildState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ExternalStatus returns the externally-visible projection (spec.md §3).
func (c *Child) ExternalStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status()
}

func (c *Child) status() Status {
	return projectStatus(c.state, c.rebuilding())
}

func (c *Child) setState(state ChildState) {
	klog.V(5).Infof("%s: child %s: state change from %s to %s", c.parent, c.name, c.state, state)
	c.state = state
	metrics.RecordChildTransition(c.parent, c.name, state.Kind.String(), c.status().String())
}

// Open claims the child's block device exclusively and brings it to
// StateOpen, per spec.md §4.3's open() algorithm.
func (c *Child) Open(parentSize uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	klog.V(4).Infof("%s: opening child device %s", c.parent, c.name)

	switch c.state.Kind {
	case StateFaulted:
		klog.Errorf("%s: cannot open child %s, reason %s", c.parent, c.name, c.state.Reason)
		return "", ErrChildFaulted
	case StateOpen:
		if c.bdev == nil {
			return "", ErrChildInvalid
		}
		// Already open: idempotent, no re-claim attempted.
		return c.name, nil
	}

	if c.bdev == nil {
		return "", ErrOpenWithoutBdev
	}

	childSize := c.bdev.SizeInBytes()
	if parentSize > childSize {
		klog.Errorf("%s: child %s too small, parent size: %d child size: %d",
			c.parent, c.name, parentSize, childSize)
		c.setState(stateConfigInvalid)
		saveStatusChange(c.deps.Status, c.parent, c.name)
		return "", &ChildTooSmallError{ParentSize: parentSize, ChildSize: childSize}
	}

	claim := func() (registry.Descriptor, error) {
		return c.deps.Driver.OpenByName(c.bdev, true)
	}

	var desc registry.Descriptor
	var err error
	if c.deps.Breaker != nil {
		err = c.deps.Breaker.Guard(c.name, func() error {
			var innerErr error
			desc, innerErr = claim()
			return innerErr
		})
		if errors.Is(err, breaker.ErrBreakerOpen) {
			// The claim was never attempted; the breaker's own state
			// tracks this rejection, so the child's state is untouched.
			return "", err
		}
	} else {
		desc, err = claim()
	}
	if err != nil {
		c.setState(Faulted(ReasonCantOpen))
		saveStatusChange(c.deps.Status, c.parent, c.name)
		return "", &OpenChildError{Source: err}
	}

	handle, err := desc.IOHandle()
	if err != nil {
		// Precondition violation: the descriptor was just produced.
		c.deps.Driver.ReleaseClaim(desc)
		c.setState(Faulted(ReasonCantOpen))
		saveStatusChange(c.deps.Status, c.parent, c.name)
		return "", fmt.Errorf("%w: %v", ErrHandleCreate, err)
	}

	c.descriptor = desc
	c.ioHandle = handle

	if c.deps.ErrStore.Enable {
		c.errHistory = NewErrorHistory(c.name, c.deps.ErrStore.Size)
	} else {
		c.errHistory = nil
	}

	c.setState(stateOpen)
	saveStatusChange(c.deps.Status, c.parent, c.name)

	klog.V(4).Infof("%s: child %s opened successfully", c.parent, c.name)
	return c.name, nil
}

// release performs the Child Device Adapter release sequence from
// spec.md §4.4: release the claim, drop the handle, then the descriptor,
// in that order so the handle (which references the descriptor) is never
// left dangling.
func (c *Child) release() {
	klog.V(5).Infof("%s: closing child %s", c.parent, c.name)
	if c.descriptor != nil {
		c.deps.Driver.ReleaseClaim(c.descriptor)
	}
	if c.ioHandle != nil {
		_ = c.ioHandle.Close()
	}
	c.ioHandle = nil
	c.descriptor = nil
}

// Close releases resources and transitions to StateClosed. Idempotent:
// calling Close twice in a row is safe and always invokes the persistence
// hook, per the documented Open Question in spec.md §9.
func (c *Child) Close() ChildState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release()
	c.setState(stateClosed)
	saveStatusChange(c.deps.Status, c.parent, c.name)
	return c.state
}

// Offline is an alias for Close.
func (c *Child) Offline() { c.Close() }

// Online is an alias for Open.
func (c *Child) Online(parentSize uint64) (string, error) { return c.Open(parentSize) }

// Fault releases resources and transitions to Faulted(reason). If reason
// is nil, ReasonUndefined is used.
func (c *Child) Fault(reason *Reason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release()
	r := ReasonUndefined
	if reason != nil {
		r = *reason
	}
	c.setState(Faulted(r))
	saveStatusChange(c.deps.Status, c.parent, c.name)
}

// OutOfSync marks (or, per the documented asymmetry, does not unmark) the
// child as out of sync with the nexus. out_of_sync(false) is a documented
// no-op — spec.md §9 explicitly directs against inventing a transition
// back to Open from here.
func (c *Child) OutOfSync(outOfSync bool) {
	if !outOfSync {
		return
	}
	r := ReasonOutOfSync
	c.Fault(&r)
}

// Destroy requests destruction of the underlying bdev. Precondition:
// state must be StateClosed (spec.md §3 I5, §4.3).
func (c *Child) Destroy(ctx context.Context) error {
	c.mu.Lock()
	bdev := c.bdev
	name := c.name
	state := c.state
	c.mu.Unlock()

	if state.Kind != StateClosed {
		return ErrChildNotClosed
	}

	klog.V(5).Infof("destroying child %s", name)
	if bdev == nil {
		klog.Warningf("destroy child %s without bdev", name)
		return nil
	}
	return c.deps.Driver.Destroy(ctx, name)
}

// CanRW reports whether the child is open for reads/writes.
func (c *Child) CanRW() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Kind == StateOpen
}

// GetDescriptor returns the current descriptor, or an *InvalidDescriptorError
// if none is present.
func (c *Child) GetDescriptor() (registry.Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.descriptor == nil {
		return nil, &InvalidDescriptorError{Name: c.name}
	}
	return c.descriptor, nil
}

// GetDev returns the child's bdev and descriptor, both of which must be
// present (the child must be open).
func (c *Child) GetDev() (registry.Bdev, registry.Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Kind != StateOpen {
		klog.Infof("%s: closed child: %s", c.parent, c.name)
		return nil, nil, ErrChildClosed
	}
	if c.bdev != nil && c.descriptor != nil {
		return c.bdev, c.descriptor, nil
	}
	return nil, nil, ErrChildInvalid
}

// rebuilding reports whether a rebuild job exists for this child and the
// state is Faulted(OutOfSync). Caller must hold c.mu.
func (c *Child) rebuilding() bool {
	if c.deps.Rebuilds == nil {
		return false
	}
	job, ok := c.deps.Rebuilds.Lookup(c.name)
	if !ok {
		return false
	}
	if c.state.Kind == StateFaulted && c.state.Reason == ReasonOutOfSync {
		metrics.SetRebuildProgress(c.parent, c.name, job.Progress())
		return true
	}
	return false
}

// Rebuilding reports whether a rebuild job exists (queried by child name
// from the external rebuild registry) and the state is Faulted(OutOfSync).
func (c *Child) Rebuilding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuilding()
}

// GetRebuildProgress returns the rebuild progress 0..100, or -1 exactly
// when no rebuild job exists or the lookup fails.
func (c *Child) GetRebuildProgress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deps.Rebuilds == nil {
		return -1
	}
	job, ok := c.deps.Rebuilds.Lookup(c.name)
	if !ok {
		return -1
	}
	progress := job.Progress()
	metrics.SetRebuildProgress(c.parent, c.name, progress)
	return progress
}

// ErrorHistory returns the child's error-history ring, or nil if error
// tracking is disabled or the child has never been opened with it enabled.
func (c *Child) ErrorHistory() *ErrorHistory {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errHistory
}

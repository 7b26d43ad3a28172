// Package registry defines the collaborator interfaces the lifecycle core
// consumes from the rest of the node agent: device lookup, block-device
// claim/IO, the local mount table, subprocess execution, the rebuild job
// registry, and the status persistence store. This package implements none
// of them: the production CommandRunner and MountTable live in
// pkg/mountprobe (exec_runner.go, proc_mounttable.go), callers supply the
// rest, and tests use the fakes in pkg/registry/registrytest.
package registry

import (
	"context"

	"github.com/google/uuid"
)

// Device is a single entry returned by the DeviceRegistry.
type Device interface {
	// DevName returns the registered block-device name backing this
	// volume, e.g. "nvme0n1" or a bdev alias.
	DevName() string
}

// DeviceRegistry resolves a volume UUID to the Device backing it.
type DeviceRegistry interface {
	Lookup(ctx context.Context, id uuid.UUID) (Device, bool, error)
}

// Bdev is a lightweight, pre-claim reference to a block device: enough to
// know it exists and to read its geometry, without having opened it.
// Child.Open compares Bdev.SizeInBytes() against the parent's required
// size before ever attempting a claim.
type Bdev interface {
	Name() string
	SizeInBytes() uint64
	NumBlocks() uint64
	BlockLen() uint32
}

// Descriptor is the opaque token obtained by opening a block device. It is
// the identity half of the descriptor/handle split described in the
// lifecycle core's design notes: the descriptor stays alive as long as
// anything references it, the IOHandle is the read/write interface built
// on top.
type Descriptor interface {
	// IOHandle constructs (or returns) the read/write handle for this
	// descriptor. Failing here after a successful claim is a precondition
	// violation from the driver's perspective (HandleCreate).
	IOHandle() (IOHandle, error)
}

// IOHandle is the read/write interface built on top of a Descriptor.
type IOHandle interface {
	ReadAt(ctx context.Context, offset uint64, buf []byte) (int, error)
	WriteAt(ctx context.Context, offset uint64, buf []byte) (int, error)
	Close() error
}

// BlockDeviceDriver is the underlying block-device layer: it knows how to
// open a device by name under an exclusive claim, and how to release that
// claim again.
type BlockDeviceDriver interface {
	// OpenByName claims the given bdev exclusively and returns a
	// descriptor for it. write requests RW access; the driver may reject a
	// second open of an already-claimed device.
	OpenByName(bdev Bdev, write bool) (Descriptor, error)
	// ReleaseClaim releases a previously obtained claim. It is a no-op if
	// the descriptor carries no claim token at the driver level.
	ReleaseClaim(d Descriptor)
	// Destroy asynchronously destroys the named bdev. Used by Child.Destroy.
	Destroy(ctx context.Context, name string) error
}

// MountEntry is a single mount returned by MountTable.FindMount.
type MountEntry struct {
	Source string
	Dest   string
	FSType string
}

// MountTable is the local, in-process mount lookup used by the Volume
// Service ahead of falling back to the Mount Probe's findmnt subprocess.
// Source and target are optional filters; at least one should be set.
type MountTable interface {
	FindMount(ctx context.Context, source, target string) (*MountEntry, bool, error)
}

// CommandRunner executes an external command and captures its streams.
// Production code shells out via exec.CommandContext (see exec_runner.go
// in pkg/mountprobe); tests substitute a fake.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// RebuildJob is a handle to an in-progress rebuild of one child.
type RebuildJob interface {
	// Progress returns 0..100.
	Progress() int
	// Nexus returns the name of the nexus this rebuild belongs to.
	Nexus() string
}

// RebuildRegistry looks up the rebuild job for a child by name, if any.
type RebuildRegistry interface {
	Lookup(childName string) (RebuildJob, bool)
}

// StatusStore persists the externally visible status snapshot. Save
// failures are logged by the caller and never propagated.
type StatusStore interface {
	Save() error
}

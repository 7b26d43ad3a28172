// Package registrytest provides func-field fakes for the registry
// interfaces, used across pkg/nexus, pkg/volume and pkg/mountprobe tests.
package registrytest

import (
	"context"

	"github.com/google/uuid"
	"github.com/nexus-storage/nexus-core/pkg/registry"
)

// Device is a fake registry.Device.
type Device struct {
	Name string
}

func (d Device) DevName() string { return d.Name }

// DeviceRegistry is a fake registry.DeviceRegistry.
type DeviceRegistry struct {
	LookupFunc func(ctx context.Context, id uuid.UUID) (registry.Device, bool, error)
}

func (r *DeviceRegistry) Lookup(ctx context.Context, id uuid.UUID) (registry.Device, bool, error) {
	if r.LookupFunc != nil {
		return r.LookupFunc(ctx, id)
	}
	return nil, false, nil
}

// Bdev is a fake registry.Bdev: a pre-claim device reference.
type Bdev struct {
	NameVal   string
	Size      uint64
	Blocks    uint64
	BlockSize uint32
}

func (b *Bdev) Name() string        { return b.NameVal }
func (b *Bdev) SizeInBytes() uint64 { return b.Size }
func (b *Bdev) NumBlocks() uint64   { return b.Blocks }
func (b *Bdev) BlockLen() uint32    { return b.BlockSize }

// Descriptor is a fake registry.Descriptor backed by an in-memory buffer.
type Descriptor struct {
	Handle      registry.IOHandle
	IOHandleErr error
}

func (d *Descriptor) IOHandle() (registry.IOHandle, error) {
	if d.IOHandleErr != nil {
		return nil, d.IOHandleErr
	}
	return d.Handle, nil
}

// IOHandle is a fake registry.IOHandle over an in-memory byte slice.
type IOHandle struct {
	Data     []byte
	Closed   bool
	ReadErr  error
	WriteErr error
}

func (h *IOHandle) ReadAt(_ context.Context, offset uint64, buf []byte) (int, error) {
	if h.ReadErr != nil {
		return 0, h.ReadErr
	}
	n := copy(buf, h.Data[offset:])
	return n, nil
}

func (h *IOHandle) WriteAt(_ context.Context, offset uint64, buf []byte) (int, error) {
	if h.WriteErr != nil {
		return 0, h.WriteErr
	}
	end := offset + uint64(len(buf))
	if end > uint64(len(h.Data)) {
		grown := make([]byte, end)
		copy(grown, h.Data)
		h.Data = grown
	}
	n := copy(h.Data[offset:], buf)
	return n, nil
}

func (h *IOHandle) Close() error {
	h.Closed = true
	return nil
}

// BlockDeviceDriver is a fake registry.BlockDeviceDriver.
type BlockDeviceDriver struct {
	OpenByNameFunc   func(bdev registry.Bdev, write bool) (registry.Descriptor, error)
	ReleaseClaimFunc func(d registry.Descriptor)
	DestroyFunc      func(ctx context.Context, name string) error
	ReleasedClaims   []registry.Descriptor
	DestroyedNames   []string
}

func (b *BlockDeviceDriver) OpenByName(bdev registry.Bdev, write bool) (registry.Descriptor, error) {
	if b.OpenByNameFunc != nil {
		return b.OpenByNameFunc(bdev, write)
	}
	return &Descriptor{Handle: &IOHandle{Data: make([]byte, bdev.SizeInBytes())}}, nil
}

func (b *BlockDeviceDriver) ReleaseClaim(d registry.Descriptor) {
	b.ReleasedClaims = append(b.ReleasedClaims, d)
	if b.ReleaseClaimFunc != nil {
		b.ReleaseClaimFunc(d)
	}
}

func (b *BlockDeviceDriver) Destroy(ctx context.Context, name string) error {
	b.DestroyedNames = append(b.DestroyedNames, name)
	if b.DestroyFunc != nil {
		return b.DestroyFunc(ctx, name)
	}
	return nil
}

// MountTable is a fake registry.MountTable.
type MountTable struct {
	FindMountFunc func(ctx context.Context, source, target string) (*registry.MountEntry, bool, error)
}

func (m *MountTable) FindMount(ctx context.Context, source, target string) (*registry.MountEntry, bool, error) {
	if m.FindMountFunc != nil {
		return m.FindMountFunc(ctx, source, target)
	}
	return nil, false, nil
}

// CommandRunner is a fake registry.CommandRunner.
type CommandRunner struct {
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)
}

func (c *CommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if c.RunFunc != nil {
		return c.RunFunc(ctx, name, args...)
	}
	return nil, nil, nil
}

// RebuildJob is a fake registry.RebuildJob.
type RebuildJob struct {
	ProgressVal int
	NexusName   string
}

func (j RebuildJob) Progress() int   { return j.ProgressVal }
func (j RebuildJob) Nexus() string   { return j.NexusName }

// RebuildRegistry is a fake registry.RebuildRegistry.
type RebuildRegistry struct {
	LookupFunc func(childName string) (registry.RebuildJob, bool)
}

func (r *RebuildRegistry) Lookup(childName string) (registry.RebuildJob, bool) {
	if r.LookupFunc != nil {
		return r.LookupFunc(childName)
	}
	return nil, false
}

// StatusStore is a fake registry.StatusStore.
type StatusStore struct {
	SaveFunc   func() error
	SaveCalled int
}

func (s *StatusStore) Save() error {
	s.SaveCalled++
	if s.SaveFunc != nil {
		return s.SaveFunc()
	}
	return nil
}

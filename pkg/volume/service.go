// Package volume resolves a volume UUID to the block device backing it and
// drives filesystem freeze/thaw for consistent snapshots, per the shared
// resolution pipeline in spec.md §4.2.
package volume

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nexus-storage/nexus-core/pkg/metrics"
	"github.com/nexus-storage/nexus-core/pkg/mountprobe"
	"github.com/nexus-storage/nexus-core/pkg/registry"
	"k8s.io/klog/v2"
)

// Classification is the result of find_volume: a mounted filesystem or a
// raw block device.
type Classification int

const (
	ClassFileSystem Classification = iota
	ClassRawBlock
)

func (c Classification) String() string {
	if c == ClassRawBlock {
		return "RawBlock"
	}
	return "FileSystem"
}

// Prober is the subset of mountprobe.Probe consumed here, so tests can
// substitute a fake without standing up a real Probe.
type Prober interface {
	GetMountsForDevice(ctx context.Context, devicePath string) ([]mountprobe.DeviceMount, error)
}

// Service implements freeze_volume/unfreeze_volume/find_volume.
type Service struct {
	Devices registry.DeviceRegistry
	Mounts  registry.MountTable
	Probe   Prober
	Runner  registry.CommandRunner
}

// NewService constructs a Service from its external collaborators.
func NewService(devices registry.DeviceRegistry, mounts registry.MountTable, probe Prober, runner registry.CommandRunner) *Service {
	return &Service{Devices: devices, Mounts: mounts, Probe: probe, Runner: runner}
}

func parseVolumeID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.UUID{}, &InvalidVolumeIDError{ID: id, Source: err}
	}
	return u, nil
}

func (s *Service) resolveDevicePath(ctx context.Context, id string) (string, error) {
	u, err := parseVolumeID(id)
	if err != nil {
		return "", err
	}
	dev, ok, err := s.Devices.Lookup(ctx, u)
	if err != nil {
		return "", &IOError{Op: "device lookup", Source: err}
	}
	if !ok {
		return "", &VolumeNotFoundError{ID: id}
	}
	return dev.DevName(), nil
}

// runFsfreeze invokes the freeze/unfreeze helper. A non-zero exit carries a
// stderr payload and maps to FsfreezeFailedError; a runner-level failure
// with nothing on stderr (the process never ran) maps to IOError.
func (s *Service) runFsfreeze(ctx context.Context, flag, target string) error {
	_, stderr, err := s.Runner.Run(ctx, "fsfreeze", "--"+flag, target)
	if err != nil {
		if len(stderr) > 0 {
			return &FsfreezeFailedError{Target: target, Stderr: string(stderr)}
		}
		return &IOError{Op: "fsfreeze", Source: err}
	}
	return nil
}

func (s *Service) freezeOrUnfreeze(ctx context.Context, id, flag, opName string) error {
	timer := metrics.NewOperationTimer(opName)
	err := s.doFreezeOrUnfreeze(ctx, id, flag)
	if err != nil {
		timer.ObserveError()
	} else {
		timer.ObserveSuccess()
	}
	return err
}

func (s *Service) doFreezeOrUnfreeze(ctx context.Context, id, flag string) error {
	devicePath, err := s.resolveDevicePath(ctx, id)
	if err != nil {
		return err
	}

	entry, found, err := s.Mounts.FindMount(ctx, devicePath, "")
	if err != nil {
		return &IOError{Op: "mount table lookup", Source: err}
	}

	if found {
		return s.runFsfreeze(ctx, flag, entry.Dest)
	}

	mounts, err := s.Probe.GetMountsForDevice(ctx, devicePath)
	if err != nil {
		return &IOError{Op: "mount probe", Source: err}
	}
	if len(mounts) > 0 {
		return ErrBlockDeviceMount
	}
	return &VolumeNotFoundError{ID: id}
}

// FreezeVolume quiesces the filesystem backing the volume.
func (s *Service) FreezeVolume(ctx context.Context, id string) error {
	klog.V(4).Infof("freezing volume %s", id)
	return s.freezeOrUnfreeze(ctx, id, "freeze", metrics.OpFreezeVolume)
}

// UnfreezeVolume thaws a previously frozen filesystem.
func (s *Service) UnfreezeVolume(ctx context.Context, id string) error {
	klog.V(4).Infof("unfreezing volume %s", id)
	return s.freezeOrUnfreeze(ctx, id, "unfreeze", metrics.OpUnfreezeVolume)
}

// FindVolume classifies the volume as a mounted filesystem or raw block
// device.
func (s *Service) FindVolume(ctx context.Context, id string) (Classification, error) {
	timer := metrics.NewOperationTimer(metrics.OpFindVolume)
	c, err := s.doFindVolume(ctx, id)
	if err != nil {
		timer.ObserveError()
	} else {
		timer.ObserveSuccess()
	}
	return c, err
}

func (s *Service) doFindVolume(ctx context.Context, id string) (Classification, error) {
	devicePath, err := s.resolveDevicePath(ctx, id)
	if err != nil {
		return 0, err
	}

	entry, found, err := s.Mounts.FindMount(ctx, devicePath, "")
	if err != nil {
		return 0, &IOError{Op: "mount table lookup", Source: err}
	}
	if found {
		if entry.FSType == "devtmpfs" {
			return ClassRawBlock, nil
		}
		return ClassFileSystem, nil
	}

	mounts, err := s.Probe.GetMountsForDevice(ctx, devicePath)
	if err != nil {
		return 0, &IOError{Op: "mount probe", Source: err}
	}
	if len(mounts) == 0 {
		return 0, fmt.Errorf("find_volume %s: no mounts observed", id)
	}

	fstype := mounts[0].FSType
	for _, m := range mounts[1:] {
		if m.FSType != fstype {
			return 0, ErrInconsistentMountFs
		}
	}
	if fstype == "devtmpfs" {
		return ClassRawBlock, nil
	}
	return ClassFileSystem, nil
}

package e2e

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/google/uuid"
	"github.com/nexus-storage/nexus-core/pkg/mountprobe"
	"github.com/nexus-storage/nexus-core/pkg/registry"
	"github.com/nexus-storage/nexus-core/pkg/registry/registrytest"
	"github.com/nexus-storage/nexus-core/pkg/volume"
)

type stubProbe struct {
	mounts []mountprobe.DeviceMount
}

func (s *stubProbe) GetMountsForDevice(ctx context.Context, devicePath string) ([]mountprobe.DeviceMount, error) {
	return s.mounts, nil
}

var _ = Describe("Volume Service", func() {
	const volumeID = "11111111-1111-1111-1111-111111111111"

	It("freezes a filesystem-mounted volume end to end", func() {
		devices := &registrytest.DeviceRegistry{
			LookupFunc: func(ctx context.Context, id uuid.UUID) (registry.Device, bool, error) {
				return registrytest.Device{Name: "/dev/sda1"}, true, nil
			},
		}
		mounts := &registrytest.MountTable{
			FindMountFunc: func(ctx context.Context, source, target string) (*registry.MountEntry, bool, error) {
				return &registry.MountEntry{Source: "/dev/sda1", Dest: "/mnt/vol1", FSType: "ext4"}, true, nil
			},
		}
		var invokedArgs []string
		runner := &registrytest.CommandRunner{
			RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
				invokedArgs = append([]string{name}, args...)
				return nil, nil, nil
			},
		}
		svc := volume.NewService(devices, mounts, &stubProbe{}, runner)

		Expect(svc.FreezeVolume(context.Background(), volumeID)).To(Succeed())
		Expect(invokedArgs).To(Equal([]string{"fsfreeze", "--freeze", "/mnt/vol1"}))

		Expect(svc.UnfreezeVolume(context.Background(), volumeID)).To(Succeed())
		Expect(invokedArgs).To(Equal([]string{"fsfreeze", "--unfreeze", "/mnt/vol1"}))

		class, err := svc.FindVolume(context.Background(), volumeID)
		Expect(err).NotTo(HaveOccurred())
		Expect(class).To(Equal(volume.ClassFileSystem))
	})

	It("rejects freeze on a raw-block mount", func() {
		devices := &registrytest.DeviceRegistry{
			LookupFunc: func(ctx context.Context, id uuid.UUID) (registry.Device, bool, error) {
				return registrytest.Device{Name: "/dev/sdb"}, true, nil
			},
		}
		mounts := &registrytest.MountTable{}
		probe := &stubProbe{mounts: []mountprobe.DeviceMount{{MountPath: "/dev/sdb", FSType: "devtmpfs"}}}
		svc := volume.NewService(devices, mounts, probe, &registrytest.CommandRunner{})

		err := svc.FreezeVolume(context.Background(), volumeID)
		Expect(err).To(MatchError(volume.ErrBlockDeviceMount))
	})

	It("classifies a raw block device", func() {
		devices := &registrytest.DeviceRegistry{
			LookupFunc: func(ctx context.Context, id uuid.UUID) (registry.Device, bool, error) {
				return registrytest.Device{Name: "/dev/sdb"}, true, nil
			},
		}
		mounts := &registrytest.MountTable{}
		probe := &stubProbe{mounts: []mountprobe.DeviceMount{{MountPath: "/mnt/x", FSType: "devtmpfs"}}}
		svc := volume.NewService(devices, mounts, probe, &registrytest.CommandRunner{})

		class, err := svc.FindVolume(context.Background(), volumeID)
		Expect(err).NotTo(HaveOccurred())
		Expect(class).To(Equal(volume.ClassRawBlock))
	})
})

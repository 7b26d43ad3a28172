package e2e

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nexus-storage/nexus-core/pkg/mountprobe"
	"github.com/nexus-storage/nexus-core/pkg/registry/registrytest"
)

var _ = Describe("Mount probe normalization", func() {
	It("normalizes a bracketed udev SOURCE field and resolves the target", func() {
		runner := &registrytest.CommandRunner{
			RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
				return []byte(`{"filesystems":[{"source":"udev[/nvme0n1]","target":"/mnt/x","fstype":"ext4"}]}`), nil, nil
			},
		}
		probe := mountprobe.NewProbe(runner, "findmnt")

		mounts, err := probe.GetMountsForDevice(context.Background(), "/dev/nvme0n1")
		Expect(err).NotTo(HaveOccurred())
		Expect(mounts).To(HaveLen(1))
		Expect(mounts[0].MountPath).To(Equal("/mnt/x"))
		Expect(mounts[0].FSType).To(Equal("ext4"))
	})
})

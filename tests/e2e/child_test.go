package e2e

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nexus-storage/nexus-core/pkg/nexus"
	"github.com/nexus-storage/nexus-core/pkg/registry"
	"github.com/nexus-storage/nexus-core/pkg/registry/registrytest"
)

var _ = Describe("Child state machine", func() {
	It("rejects open with an undersized child and transitions to ConfigInvalid", func() {
		driver := &registrytest.BlockDeviceDriver{}
		bdev := &registrytest.Bdev{NameVal: "bdev0", Size: 1024, Blocks: 2, BlockSize: 512}
		c := nexus.NewChild("nexus0", "child0", bdev, nexus.Deps{Driver: driver})

		_, err := c.Open(2048)
		var tooSmall *nexus.ChildTooSmallError
		Expect(err).To(BeAssignableToTypeOf(tooSmall))
		Expect(c.Status().Kind).To(Equal(nexus.StateConfigInvalid))
	})

	It("observes Open, Closed, Open across a close/reopen round trip", func() {
		driver := &registrytest.BlockDeviceDriver{}
		bdev := &registrytest.Bdev{NameVal: "bdev0", Size: 1024, Blocks: 2, BlockSize: 512}
		c := nexus.NewChild("nexus0", "child0", bdev, nexus.Deps{Driver: driver})

		var observed []nexus.ChildStateKind

		_, err := c.Open(1024)
		Expect(err).NotTo(HaveOccurred())
		observed = append(observed, c.Status().Kind)

		c.Close()
		observed = append(observed, c.Status().Kind)

		_, err = c.Open(1024)
		Expect(err).NotTo(HaveOccurred())
		observed = append(observed, c.Status().Kind)

		Expect(observed).To(Equal([]nexus.ChildStateKind{
			nexus.StateOpen, nexus.StateClosed, nexus.StateOpen,
		}))
	})

	It("reports Degraded when faulted out-of-sync with a rebuild in progress", func() {
		driver := &registrytest.BlockDeviceDriver{}
		bdev := &registrytest.Bdev{NameVal: "bdev0", Size: 1024, Blocks: 2, BlockSize: 512}
		rebuilds := &registrytest.RebuildRegistry{
			LookupFunc: func(childName string) (registry.RebuildJob, bool) {
				return registrytest.RebuildJob{ProgressVal: 10, NexusName: "nexus0"}, true
			},
		}
		c := nexus.NewChild("nexus0", "child0", bdev, nexus.Deps{Driver: driver, Rebuilds: rebuilds})

		_, err := c.Open(1024)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.ExternalStatus()).To(Equal(nexus.StatusOnline))

		c.OutOfSync(true)
		Expect(c.Status().Kind).To(Equal(nexus.StateFaulted))
		Expect(c.Status().Reason).To(Equal(nexus.ReasonOutOfSync))
		Expect(c.ExternalStatus()).To(Equal(nexus.StatusDegraded))
	})

	It("returns -1 rebuild progress when no rebuild job exists", func() {
		driver := &registrytest.BlockDeviceDriver{}
		bdev := &registrytest.Bdev{NameVal: "bdev0", Size: 1024, Blocks: 2, BlockSize: 512}
		c := nexus.NewChild("nexus0", "child0", bdev, nexus.Deps{Driver: driver})

		Expect(c.GetRebuildProgress()).To(Equal(-1))
	})
})

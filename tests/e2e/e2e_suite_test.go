// Package e2e exercises the nexus child lifecycle core's literal
// end-to-end scenarios across package boundaries (mountprobe, volume,
// nexus) the way a single running agent would see them.
package e2e

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestE2E(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Nexus Child Lifecycle Core E2E Suite")
}

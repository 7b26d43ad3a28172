package main

import (
	"github.com/nexus-storage/nexus-core/pkg/breaker"
	"github.com/nexus-storage/nexus-core/pkg/config"
	"github.com/nexus-storage/nexus-core/pkg/mountprobe"
	"github.com/nexus-storage/nexus-core/pkg/volume"
)

// agent bundles the lifecycle core's external collaborators the way a real
// nexus orchestrator would construct them at startup. It exposes no RPC
// surface of its own (out of scope here); an enclosing orchestrator process
// would hold a reference to volumes and childBreaker directly.
type agent struct {
	probe        *mountprobe.Probe
	childBreaker *breaker.ChildBreaker
	volumes      *volume.Service
}

func newAgent(cfg config.Config) *agent {
	runner := mountprobe.NewExecRunner()
	probe := mountprobe.NewProbe(runner, cfg.FindmntBinary)

	var childBreaker *breaker.ChildBreaker
	if cfg.BreakerEnabled {
		childBreaker = breaker.NewChildBreaker()
	}

	return &agent{
		probe:        probe,
		childBreaker: childBreaker,
		volumes:      volume.NewService(nil, mountprobe.NewProcMountTable(), probe, runner),
	}
}

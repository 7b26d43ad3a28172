package main

import (
	"github.com/nexus-storage/nexus-core/pkg/config"
	"github.com/nexus-storage/nexus-core/pkg/mountprobe"
	"github.com/nexus-storage/nexus-core/pkg/volume"
)

func buildVolumeService(configPath, deviceMapPath string) (*volume.Service, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	devices, err := loadFileDeviceRegistry(deviceMapPath)
	if err != nil {
		return nil, err
	}

	runner := mountprobe.NewExecRunner()
	probe := mountprobe.NewProbe(runner, cfg.FindmntBinary)
	mounts := mountprobe.NewProcMountTable()

	return volume.NewService(devices, mounts, probe, runner), nil
}

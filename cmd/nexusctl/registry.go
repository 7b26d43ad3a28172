package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/nexus-storage/nexus-core/pkg/registry"
	"gopkg.in/yaml.v3"
)

// fileDevice is a registry.Device backed by a plain device name string.
type fileDevice string

func (d fileDevice) DevName() string { return string(d) }

// fileDeviceRegistry is a registry.DeviceRegistry loaded from a small YAML
// map of volume UUID to device name. The core's real Device Registry is an
// external collaborator reached over whatever transport the enclosing
// orchestrator uses (out of this repository's scope); this file-backed
// adapter lets nexusctl operate standalone against a known device map.
type fileDeviceRegistry struct {
	devices map[uuid.UUID]string
}

func loadFileDeviceRegistry(path string) (*fileDeviceRegistry, error) {
	if path == "" {
		return &fileDeviceRegistry{devices: map[uuid.UUID]string{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read device map %s: %w", path, err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse device map %s: %w", path, err)
	}

	devices := make(map[uuid.UUID]string, len(raw))
	for id, dev := range raw {
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("device map %s: invalid volume id %q: %w", path, id, err)
		}
		devices[u] = dev
	}
	return &fileDeviceRegistry{devices: devices}, nil
}

func (r *fileDeviceRegistry) Lookup(_ context.Context, id uuid.UUID) (registry.Device, bool, error) {
	dev, ok := r.devices[id]
	if !ok {
		return nil, false, nil
	}
	return fileDevice(dev), true, nil
}

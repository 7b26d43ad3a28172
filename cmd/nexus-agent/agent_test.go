package main

import (
	"testing"

	"github.com/nexus-storage/nexus-core/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAgentWiresCollaborators(t *testing.T) {
	cfg := config.Default()
	a := newAgent(cfg)

	require.NotNil(t, a.probe)
	require.NotNil(t, a.volumes)
	assert.NotNil(t, a.childBreaker)
}

func TestNewAgentSkipsBreakerWhenDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.BreakerEnabled = false
	a := newAgent(cfg)

	assert.Nil(t, a.childBreaker)
}

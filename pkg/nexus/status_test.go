package nexus

import (
	"errors"
	"testing"

	"github.com/nexus-storage/nexus-core/pkg/registry/registrytest"
	"github.com/stretchr/testify/assert"
)

func TestProjectStatus(t *testing.T) {
	cases := []struct {
		name       string
		state      ChildState
		rebuilding bool
		want       Status
	}{
		{"open", stateOpen, false, StatusOnline},
		{"out-of-sync rebuilding", Faulted(ReasonOutOfSync), true, StatusDegraded},
		{"out-of-sync not rebuilding", Faulted(ReasonOutOfSync), false, StatusFaulted},
		{"cant-open faulted", Faulted(ReasonCantOpen), true, StatusFaulted},
		{"init", stateInit, false, StatusFaulted},
		{"closed", stateClosed, false, StatusFaulted},
		{"config invalid", stateConfigInvalid, false, StatusFaulted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, projectStatus(tc.state, tc.rebuilding))
		})
	}
}

func TestSaveStatusChangeLogsOnFailure(t *testing.T) {
	store := &registrytest.StatusStore{SaveFunc: func() error { return errors.New("disk full") }}
	saveStatusChange(store, "nexus0", "child0")
	assert.Equal(t, 1, store.SaveCalled)
}

func TestSaveStatusChangeNilStoreIsNoOp(t *testing.T) {
	saveStatusChange(nil, "nexus0", "child0")
}

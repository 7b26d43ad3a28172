package nexus

import (
	"context"
	"errors"
	"testing"

	"github.com/nexus-storage/nexus-core/pkg/registry"
	"github.com/nexus-storage/nexus-core/pkg/registry/registrytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildReadWriteRoundTrip(t *testing.T) {
	driver := &registrytest.BlockDeviceDriver{}
	c := NewChild("nexus0", "child0", newTestBdev(1024), Deps{Driver: driver})
	_, err := c.Open(1024)
	require.NoError(t, err)

	data := []byte("hello world")
	n, err := c.WriteAt(context.Background(), 0, data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	buf := make([]byte, len(data))
	n, err = c.ReadAt(context.Background(), 0, buf)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, buf)
}

func TestChildReadWriteRejectedWhenNotOpen(t *testing.T) {
	driver := &registrytest.BlockDeviceDriver{}
	c := NewChild("nexus0", "child0", newTestBdev(1024), Deps{Driver: driver})

	_, err := c.ReadAt(context.Background(), 0, make([]byte, 4))
	var invalidDesc *InvalidDescriptorError
	require.ErrorAs(t, err, &invalidDesc)

	_, err = c.WriteAt(context.Background(), 0, []byte("x"))
	require.ErrorAs(t, err, &invalidDesc)
}

func TestChildReadErrorRecordedInHistory(t *testing.T) {
	readErr := errors.New("medium error")
	handle := &registrytest.IOHandle{Data: make([]byte, 1024), ReadErr: readErr}
	driver := &registrytest.BlockDeviceDriver{
		OpenByNameFunc: func(bdev registry.Bdev, write bool) (registry.Descriptor, error) {
			return &registrytest.Descriptor{Handle: handle}, nil
		},
	}
	c := NewChild("nexus0", "child0", newTestBdev(1024), Deps{Driver: driver, ErrStore: ErrStoreOpts{Enable: true, Size: 4}})
	_, err := c.Open(1024)
	require.NoError(t, err)

	_, err = c.ReadAt(context.Background(), 0, make([]byte, 8))
	var readWrap *ReadError
	require.ErrorAs(t, err, &readWrap)
	assert.ErrorIs(t, err, readErr)

	require.Equal(t, 1, c.ErrorHistory().Len())
	entries := c.ErrorHistory().Entries()
	assert.Equal(t, OpRead, entries[0].Op)
}

func TestChildWriteErrorRecordedInHistory(t *testing.T) {
	writeErr := errors.New("medium error")
	handle := &registrytest.IOHandle{Data: make([]byte, 1024), WriteErr: writeErr}
	driver := &registrytest.BlockDeviceDriver{
		OpenByNameFunc: func(bdev registry.Bdev, write bool) (registry.Descriptor, error) {
			return &registrytest.Descriptor{Handle: handle}, nil
		},
	}
	c := NewChild("nexus0", "child0", newTestBdev(1024), Deps{Driver: driver, ErrStore: ErrStoreOpts{Enable: true, Size: 4}})
	_, err := c.Open(1024)
	require.NoError(t, err)

	_, err = c.WriteAt(context.Background(), 0, []byte("x"))
	var writeWrap *WriteError
	require.ErrorAs(t, err, &writeWrap)
	assert.ErrorIs(t, err, writeErr)

	require.Equal(t, 1, c.ErrorHistory().Len())
	entries := c.ErrorHistory().Entries()
	assert.Equal(t, OpWrite, entries[0].Op)
}

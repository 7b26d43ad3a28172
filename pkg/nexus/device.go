package nexus

import "context"

// ReadAt reads len(buf) bytes from the child's device at offset, through
// the IOHandle obtained when the child was opened. A failed read is
// recorded into the error-history ring (if enabled) before being wrapped
// and returned; it does not itself fault the child — that decision
// belongs to the nexus-level I/O path, which sees every child's result.
func (c *Child) ReadAt(ctx context.Context, offset uint64, buf []byte) (int, error) {
	c.mu.Lock()
	handle := c.ioHandle
	errHistory := c.errHistory
	name := c.name
	canRW := c.state.Kind == StateOpen
	c.mu.Unlock()

	if !canRW || handle == nil {
		return 0, &InvalidDescriptorError{Name: name}
	}

	n, err := handle.ReadAt(ctx, offset, buf)
	if err != nil {
		if errHistory != nil {
			errHistory.Record(OpRead, offset, err)
		}
		return n, &ReadError{Name: name, Source: err}
	}
	return n, nil
}

// WriteAt writes buf to the child's device at offset, through the
// IOHandle. See ReadAt for the error-history/fault-decision split.
func (c *Child) WriteAt(ctx context.Context, offset uint64, buf []byte) (int, error) {
	c.mu.Lock()
	handle := c.ioHandle
	errHistory := c.errHistory
	name := c.name
	canRW := c.state.Kind == StateOpen
	c.mu.Unlock()

	if !canRW || handle == nil {
		return 0, &InvalidDescriptorError{Name: name}
	}

	n, err := handle.WriteAt(ctx, offset, buf)
	if err != nil {
		if errHistory != nil {
			errHistory.Record(OpWrite, offset, err)
		}
		return n, &WriteError{Name: name, Source: err}
	}
	return n, nil
}

package mountprobe

import (
	"context"
	"fmt"
	"time"

	"github.com/moby/sys/mountinfo"
	"github.com/nexus-storage/nexus-core/pkg/registry"
)

// ProcMountTableTimeout bounds how long a single /proc/self/mountinfo parse
// is allowed to take before the lookup is treated as failed; a corrupted or
// storming mount table can otherwise make this call hang.
const ProcMountTableTimeout = 10 * time.Second

// ProcMountTable is the production registry.MountTable: the Volume Service's
// local, in-process lookup ahead of falling back to the Mount Probe (A).
type ProcMountTable struct{}

// NewProcMountTable constructs a ProcMountTable.
func NewProcMountTable() *ProcMountTable { return &ProcMountTable{} }

// FindMount looks up a single mount by source and/or target. At least one
// of source/target should be non-empty; both given requires both to match.
func (t *ProcMountTable) FindMount(ctx context.Context, source, target string) (*registry.MountEntry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, ProcMountTableTimeout)
	defer cancel()

	type result struct {
		mounts []*mountinfo.Info
		err    error
	}
	resultCh := make(chan result, 1)
	go func() {
		mounts, err := mountinfo.GetMounts(nil)
		resultCh <- result{mounts: mounts, err: err}
	}()

	var mounts []*mountinfo.Info
	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, false, fmt.Errorf("read mount table: %w", res.err)
		}
		mounts = res.mounts
	case <-ctx.Done():
		return nil, false, fmt.Errorf("mount table read timed out: %w", ctx.Err())
	}

	for _, m := range mounts {
		if source != "" && m.Source != source {
			continue
		}
		if target != "" && m.Mountpoint != target {
			continue
		}
		return &registry.MountEntry{Source: m.Source, Dest: m.Mountpoint, FSType: m.FSType}, true, nil
	}
	return nil, false, nil
}

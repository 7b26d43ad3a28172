// Package mountprobe walks the JSON tree produced by an external mount
// enumerator (findmnt) and answers "what is mounted where" queries with
// device paths normalized to canonical /dev/<name> form.
package mountprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/nexus-storage/nexus-core/pkg/registry"
	"k8s.io/klog/v2"
)

// FilterField discriminates which mount-record field a FilterPredicate
// matches against.
type FilterField int

const (
	FieldTarget FilterField = iota
	FieldSource
	FieldFSType
)

func (f FilterField) key() string {
	switch f {
	case FieldTarget:
		return "TARGET"
	case FieldSource:
		return "SOURCE"
	case FieldFSType:
		return "FSTYPE"
	default:
		return ""
	}
}

// FilterPredicate selects leaf records whose field equals value, with
// SOURCE compared after normalization (spec §3).
type FilterPredicate struct {
	Field FilterField
	Value string
}

// DeviceMount is an observed pairing of a mount target with its filesystem
// type, as returned by GetMountsForDevice.
type DeviceMount struct {
	MountPath string
	FSType    string
}

// sourceNormalizeRe rewrites a raw SOURCE field of the form
// "prefix[/dev-tail]" (e.g. "udev[/nvme0n1]") into "/dev/nvme0n1".
var sourceNormalizeRe = regexp.MustCompile(`.*\[(?P<dev>/.*)\]`)

// NormalizeSource applies the mount-enumerator device-path normalization
// rule. Inputs that do not match the bracketed form pass through unchanged.
func NormalizeSource(raw string) string {
	m := sourceNormalizeRe.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	dev := m[sourceNormalizeRe.SubexpIndex("dev")]
	return "/dev" + dev
}

// MultipleDevicesError reports that more than one mount record shares a
// target, violating invariant I6.
type MultipleDevicesError struct {
	Target string
	Count  int
}

func (e *MultipleDevicesError) Error() string {
	return fmt.Sprintf("multiple devices mounted at %s (%d records)", e.Target, e.Count)
}

// Probe queries an external mount enumerator via a CommandRunner and walks
// the resulting JSON tree. It is stateless: concurrent calls are independent.
type Probe struct {
	runner registry.CommandRunner
	binary string
}

// NewProbe constructs a Probe that invokes binary (normally "findmnt")
// through runner.
func NewProbe(runner registry.CommandRunner, binary string) *Probe {
	if binary == "" {
		binary = "findmnt"
	}
	return &Probe{runner: runner, binary: binary}
}

// record is a single normalized leaf. source is normalized when the tree is
// walked, and SOURCE filter matching compares against it; rawSource keeps
// the unnormalized form as read from the enumerator.
type record struct {
	source    string
	rawSource string
	target    string
	hasTarget bool
	fstype    string
	hasFSType bool
}

func (p *Probe) fetch(ctx context.Context) ([]record, error) {
	stdout, stderr, err := p.runner.Run(ctx, p.binary, "-J", "-o", "SOURCE,TARGET,FSTYPE")
	if err != nil {
		return nil, fmt.Errorf("mount enumerator failed: %w (stderr: %s)", err, string(stderr))
	}
	if !utf8.Valid(stdout) {
		return nil, fmt.Errorf("mount enumerator produced non-UTF-8 output")
	}

	var root map[string]interface{}
	if err := json.Unmarshal(stdout, &root); err != nil {
		return nil, fmt.Errorf("decode mount enumerator output: %w", err)
	}

	var out []record
	walk(root, &out)
	return out, nil
}

// walk descends a tree node, collecting a record for every node that
// carries string-valued SOURCE/TARGET/FSTYPE fields, and recursing into
// any array-valued field regardless of its key (the enumerator's nesting
// key is not assumed, per spec §6).
func walk(node map[string]interface{}, out *[]record) {
	rec := record{}
	hasFields := false
	if v, ok := node["source"].(string); ok {
		rec.rawSource = v
		rec.source = NormalizeSource(v)
		hasFields = true
	}
	if v, ok := node["target"].(string); ok {
		rec.target = v
		rec.hasTarget = true
		hasFields = true
	}
	if v, ok := node["fstype"].(string); ok {
		rec.fstype = v
		rec.hasFSType = true
		hasFields = true
	}
	if hasFields {
		*out = append(*out, rec)
	}

	for _, v := range node {
		switch children := v.(type) {
		case []interface{}:
			for _, item := range children {
				if child, ok := item.(map[string]interface{}); ok {
					walk(child, out)
				}
			}
		}
	}
}

func matches(r record, filter FilterPredicate) bool {
	switch filter.Field {
	case FieldSource:
		return r.source == NormalizeSource(filter.Value)
	case FieldTarget:
		return r.hasTarget && r.target == filter.Value
	case FieldFSType:
		return r.hasFSType && r.fstype == filter.Value
	default:
		return false
	}
}

// GetDeviceForMount resolves the device backing a mount target. 0 matches
// returns ("", false, nil); >1 matches is a MultipleDevicesError.
func (p *Probe) GetDeviceForMount(ctx context.Context, mountPath string) (string, bool, error) {
	records, err := p.fetch(ctx)
	if err != nil {
		return "", false, err
	}

	var found []record
	for _, r := range records {
		if matches(r, FilterPredicate{Field: FieldTarget, Value: mountPath}) {
			found = append(found, r)
		}
	}

	switch len(found) {
	case 0:
		return "", false, nil
	case 1:
		return found[0].source, true, nil
	default:
		return "", false, &MultipleDevicesError{Target: mountPath, Count: len(found)}
	}
}

// GetMountsForDevice returns every mount of the given device path. A
// matched record missing fstype is tolerated with substitution
// "unspecified"; a record missing target is dropped with a warning.
func (p *Probe) GetMountsForDevice(ctx context.Context, devicePath string) ([]DeviceMount, error) {
	records, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}

	var out []DeviceMount
	for _, r := range records {
		if !matches(r, FilterPredicate{Field: FieldSource, Value: devicePath}) {
			continue
		}
		if !r.hasTarget {
			klog.Warningf("mount probe: record for device %s missing target, dropping", devicePath)
			continue
		}
		fstype := r.fstype
		if !r.hasFSType {
			fstype = "unspecified"
		}
		out = append(out, DeviceMount{MountPath: r.target, FSType: fstype})
	}
	return out, nil
}

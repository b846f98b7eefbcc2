package lottery

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"
)

// probeBase carries the identity shared by all probes
type probeBase struct {
	name string
	kind ProbeKind
}

// Name returns the probe name
func (p probeBase) Name() string { return p.name }

// Kind returns the probe kind
func (p probeBase) Kind() ProbeKind { return p.kind }

// partialReadings returns the readings gathered so far, or the joined errors
// when nothing could be read
func partialReadings(readings []SourceReading, errs []error) ([]SourceReading, error) {
	if len(readings) == 0 {
		if len(errs) == 0 {
			return nil, ErrProbeUnavailable.WithDetails("no readings")
		}
		return nil, errors.Join(errs...)
	}
	return readings, nil
}

// ================================================================================

// OSRandomProbe reads bytes from the operating system CSPRNG
type OSRandomProbe struct {
	probeBase
	size   int
	reader io.Reader
}

// NewOSRandomProbe creates an OS random probe reading OSRandomBytes bytes
func NewOSRandomProbe(name string) *OSRandomProbe {
	return &OSRandomProbe{
		probeBase: probeBase{name: name, kind: StaticProbe},
		size:      OSRandomBytes,
		reader:    rand.Reader,
	}
}

// Strong reports that OS random readings satisfy the strong source requirement
func (p *OSRandomProbe) Strong() bool { return true }

// Sample reads fresh random bytes
func (p *OSRandomProbe) Sample(ctx context.Context) ([]SourceReading, error) {
	buf := make([]byte, p.size)
	if _, err := io.ReadFull(p.reader, buf); err != nil {
		return nil, ErrSystemError.WithOperation("read os random").WithCause(err)
	}
	return []SourceReading{BytesReading(p.name, buf, time.Now())}, nil
}

// ================================================================================

// HostProbe reads host identity: hostname, platform, kernel, host id and boot time
type HostProbe struct {
	probeBase
	metrics SystemMetrics
}

// NewHostProbe creates a host identity probe
func NewHostProbe(metrics SystemMetrics) *HostProbe {
	return &HostProbe{probeBase: probeBase{name: "host", kind: StaticProbe}, metrics: metrics}
}

// Sample reads host information
func (p *HostProbe) Sample(ctx context.Context) ([]SourceReading, error) {
	now := time.Now()
	readings := []SourceReading{
		StringReading("host.runtime", runtime.GOOS+"/"+runtime.GOARCH+"/"+runtime.Version(), now),
	}

	info, err := p.metrics.HostInfo(ctx)
	if err != nil {
		// 回退到标准库主机名
		hostname, herr := os.Hostname()
		if herr != nil {
			return nil, errors.Join(err, herr)
		}
		return append(readings, StringReading("host.hostname", hostname, now)), nil
	}

	return append(readings,
		StringReading("host.hostname", info.Hostname, now),
		StringReading("host.platform", strings.Join([]string{info.OS, info.Platform, info.PlatformVersion}, " "), now),
		StringReading("host.kernel", info.KernelVersion+" "+info.KernelArch, now),
		StringReading("host.id", info.HostID, now),
		IntReading("host.boot_time", int64(info.BootTime), now),
	), nil
}

// ================================================================================

// HardwareProbe reads processor, memory and network hardware identity
type HardwareProbe struct {
	probeBase
	metrics SystemMetrics
}

// NewHardwareProbe creates a hardware identity probe
func NewHardwareProbe(metrics SystemMetrics) *HardwareProbe {
	return &HardwareProbe{probeBase: probeBase{name: "hardware", kind: StaticProbe}, metrics: metrics}
}

// Sample reads hardware information; any single part may be missing
func (p *HardwareProbe) Sample(ctx context.Context) ([]SourceReading, error) {
	now := time.Now()
	var (
		readings []SourceReading
		errs     []error
	)

	if info, err := p.metrics.CPUInfo(ctx); err != nil {
		errs = append(errs, fmt.Errorf("cpu info: %w", err))
	} else {
		readings = append(readings,
			StringReading("hardware.cpu_model", info.ModelName, now),
			IntReading("hardware.cpu_logical", int64(info.Logical), now),
			IntReading("hardware.cpu_physical", int64(info.Physical), now),
		)
	}

	if total, err := p.metrics.TotalMemory(ctx); err != nil {
		errs = append(errs, fmt.Errorf("total memory: %w", err))
	} else {
		readings = append(readings, IntReading("hardware.memory_total", int64(total), now))
	}

	if addrs, err := p.metrics.HardwareAddrs(ctx); err != nil {
		errs = append(errs, fmt.Errorf("hardware addrs: %w", err))
	} else if len(addrs) > 0 {
		readings = append(readings, StringReading("hardware.mac", strings.Join(addrs, ","), now))
	}

	return partialReadings(readings, errs)
}

// ================================================================================

// DiskProbe reads the partition layout
type DiskProbe struct {
	probeBase
	metrics SystemMetrics
}

// NewDiskProbe creates a partition layout probe
func NewDiskProbe(metrics SystemMetrics) *DiskProbe {
	return &DiskProbe{probeBase: probeBase{name: "disk", kind: StaticProbe}, metrics: metrics}
}

// Sample reads the partitions as one "device:mountpoint:fstype" list
func (p *DiskProbe) Sample(ctx context.Context) ([]SourceReading, error) {
	parts, err := p.metrics.Partitions(ctx)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, ErrProbeUnavailable.WithDetails("no partitions")
	}

	entries := make([]string, len(parts))
	for i, part := range parts {
		entries[i] = part.Device + ":" + part.Mountpoint + ":" + part.Fstype
	}
	return []SourceReading{StringReading("disk.partitions", strings.Join(entries, ";"), time.Now())}, nil
}

// ================================================================================

// ProcessStartProbe reads the creation time of the current process
type ProcessStartProbe struct {
	probeBase
	metrics SystemMetrics
}

// NewProcessStartProbe creates a process start time probe
func NewProcessStartProbe(metrics SystemMetrics) *ProcessStartProbe {
	return &ProcessStartProbe{probeBase: probeBase{name: "process.start", kind: StaticProbe}, metrics: metrics}
}

// Sample reads the process creation time in unix milliseconds
func (p *ProcessStartProbe) Sample(ctx context.Context) ([]SourceReading, error) {
	created, err := p.metrics.ProcessCreateTime(ctx, int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return []SourceReading{IntReading("process.start", created, time.Now())}, nil
}

// ================================================================================

// EnvironmentProbe hashes the process environment
type EnvironmentProbe struct {
	probeBase
	environ func() []string
}

// NewEnvironmentProbe creates an environment digest probe
func NewEnvironmentProbe() *EnvironmentProbe {
	return &EnvironmentProbe{probeBase: probeBase{name: "environment", kind: StaticProbe}, environ: os.Environ}
}

// Sample returns the SHA-256 of the sorted environment and the variable count
func (p *EnvironmentProbe) Sample(ctx context.Context) ([]SourceReading, error) {
	env := slices.Clone(p.environ())
	if len(env) == 0 {
		return nil, ErrProbeUnavailable.WithDetails("empty environment")
	}
	slices.Sort(env)

	digest := sha256.Sum256([]byte(strings.Join(env, "\n")))
	now := time.Now()
	return []SourceReading{
		BytesReading("environment.digest", digest[:], now),
		IntReading("environment.count", int64(len(env)), now),
	}, nil
}

package lottery

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// HostSnapshot describes the machine the process runs on
type HostSnapshot struct {
	Hostname        string
	OS              string
	Platform        string
	PlatformVersion string
	KernelVersion   string
	KernelArch      string
	HostID          string
	BootTime        uint64
}

// CPUSnapshot describes the installed processors
type CPUSnapshot struct {
	ModelName string
	Logical   int
	Physical  int
}

// PartitionInfo is one mounted filesystem
type PartitionInfo struct {
	Device     string
	Mountpoint string
	Fstype     string
}

// SystemMetrics reads host and process counters.
//
// Every method may fail independently; probes treat a failure as an
// unavailable source.
type SystemMetrics interface {
	HostInfo(ctx context.Context) (*HostSnapshot, error)
	CPUInfo(ctx context.Context) (*CPUSnapshot, error)
	TotalMemory(ctx context.Context) (uint64, error)
	HardwareAddrs(ctx context.Context) ([]string, error)
	Partitions(ctx context.Context) ([]PartitionInfo, error)
	ProcessCreateTime(ctx context.Context, pid int32) (int64, error)
	ProcessThreads(ctx context.Context, pid int32) (int32, error)

	CPUPercent(ctx context.Context) (float64, error)
	CPUTimesTotal(ctx context.Context) (float64, error)
	MemoryUsedPercent(ctx context.Context) (float64, error)
	DiskUsedPercent(ctx context.Context, path string) (float64, error)
	NetIOCounters(ctx context.Context) (sent, recv uint64, err error)
}

// HostMetrics implements SystemMetrics with gopsutil
type HostMetrics struct {
	cpuInterval time.Duration
}

// NewHostMetrics creates a gopsutil backed SystemMetrics. cpuInterval is the
// window CPUPercent measures over.
func NewHostMetrics(cpuInterval time.Duration) *HostMetrics {
	if cpuInterval <= 0 {
		cpuInterval = DefaultCPUSampleInterval
	}
	return &HostMetrics{cpuInterval: cpuInterval}
}

// HostInfo returns hostname, platform and boot time
func (m *HostMetrics) HostInfo(ctx context.Context) (*HostSnapshot, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return &HostSnapshot{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		KernelArch:      info.KernelArch,
		HostID:          info.HostID,
		BootTime:        info.BootTime,
	}, nil
}

// CPUInfo returns the model name of the first processor and the core counts
func (m *HostMetrics) CPUInfo(ctx context.Context) (*CPUSnapshot, error) {
	infos, err := cpu.InfoWithContext(ctx)
	physical, perr := cpu.CountsWithContext(ctx, false)
	if err != nil && perr != nil {
		return nil, err
	}

	snapshot := &CPUSnapshot{}
	if err == nil && len(infos) > 0 {
		snapshot.ModelName = infos[0].ModelName
	}
	if perr == nil {
		snapshot.Physical = physical
	}

	logical, lerr := cpu.CountsWithContext(ctx, true)
	if lerr != nil {
		logical = runtime.NumCPU()
	}
	snapshot.Logical = logical

	return snapshot, nil
}

// TotalMemory returns installed memory in bytes
func (m *HostMetrics) TotalMemory(ctx context.Context) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.Total, nil
}

// HardwareAddrs returns the non-empty MAC addresses of all interfaces
func (m *HostMetrics) HardwareAddrs(ctx context.Context) ([]string, error) {
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(ifaces))
	for _, iface := range ifaces {
		if iface.HardwareAddr != "" {
			addrs = append(addrs, iface.HardwareAddr)
		}
	}
	return addrs, nil
}

// Partitions returns the physical partitions
func (m *HostMetrics) Partitions(ctx context.Context) ([]PartitionInfo, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}

	out := make([]PartitionInfo, len(parts))
	for i, p := range parts {
		out[i] = PartitionInfo{Device: p.Device, Mountpoint: p.Mountpoint, Fstype: p.Fstype}
	}
	return out, nil
}

// ProcessCreateTime returns the creation time of pid in unix milliseconds
func (m *HostMetrics) ProcessCreateTime(ctx context.Context, pid int32) (int64, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return 0, err
	}
	return p.CreateTimeWithContext(ctx)
}

// ProcessThreads returns the number of OS threads of pid
func (m *HostMetrics) ProcessThreads(ctx context.Context, pid int32) (int32, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return 0, err
	}
	return p.NumThreadsWithContext(ctx)
}

// CPUPercent returns the overall CPU utilization over the sample interval
func (m *HostMetrics) CPUPercent(ctx context.Context) (float64, error) {
	values, err := cpu.PercentWithContext(ctx, m.cpuInterval, false)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, ErrProbeUnavailable.WithDetails("no cpu percent sample")
	}
	return values[0], nil
}

// CPUTimesTotal returns the sum of all CPU time counters in seconds
func (m *HostMetrics) CPUTimesTotal(ctx context.Context) (float64, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return 0, err
	}
	if len(times) == 0 {
		return 0, ErrProbeUnavailable.WithDetails("no cpu times sample")
	}

	t := times[0]
	return t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq +
		t.Softirq + t.Steal + t.Guest + t.GuestNice, nil
}

// MemoryUsedPercent returns the used share of virtual memory
func (m *HostMetrics) MemoryUsedPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

// DiskUsedPercent returns the used share of the filesystem holding path
func (m *HostMetrics) DiskUsedPercent(ctx context.Context, path string) (float64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return usage.UsedPercent, nil
}

// NetIOCounters returns total bytes sent and received on all interfaces
func (m *HostMetrics) NetIOCounters(ctx context.Context) (uint64, uint64, error) {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return 0, 0, err
	}
	if len(counters) == 0 {
		return 0, 0, ErrProbeUnavailable.WithDetails("no network counters")
	}
	return counters[0].BytesSent, counters[0].BytesRecv, nil
}

// rootPath returns the root of the filesystem the working directory lives on
func rootPath() string {
	if runtime.GOOS != "windows" {
		return "/"
	}
	wd, err := os.Getwd()
	if err != nil {
		return `C:\`
	}
	return filepath.VolumeName(wd) + `\`
}

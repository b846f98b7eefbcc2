package lottery

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"
)

// processEpoch anchors the monotonic clock reading
var processEpoch = time.Now()

// ClockProbe reads wall clock and monotonic time
type ClockProbe struct {
	probeBase
	now func() time.Time
}

// NewClockProbe creates a clock probe
func NewClockProbe() *ClockProbe {
	return &ClockProbe{probeBase: probeBase{name: "clock", kind: DynamicProbe}, now: time.Now}
}

// Sample returns wall nanoseconds, monotonic nanoseconds since start and the microsecond component
func (p *ClockProbe) Sample(ctx context.Context) ([]SourceReading, error) {
	now := p.now()
	return []SourceReading{
		IntReading("clock.wall", now.UnixNano(), now),
		IntReading("clock.monotonic", int64(now.Sub(processEpoch)), now),
		IntReading("clock.micros", int64(now.Nanosecond()/1000), now),
	}, nil
}

// ================================================================================

// metricProbe samples a single float counter from SystemMetrics
type metricProbe struct {
	probeBase
	read func(ctx context.Context) (float64, error)
}

// Sample reads the counter
func (p *metricProbe) Sample(ctx context.Context) ([]SourceReading, error) {
	v, err := p.read(ctx)
	if err != nil {
		return nil, err
	}
	return []SourceReading{FloatReading(p.name, v, time.Now())}, nil
}

// NewCPUUsageProbe creates a probe reading CPU utilization
func NewCPUUsageProbe(metrics SystemMetrics) Probe {
	return &metricProbe{probeBase: probeBase{name: "cpu.percent", kind: DynamicProbe}, read: metrics.CPUPercent}
}

// NewCPUTimesProbe creates a probe reading the sum of CPU time counters
func NewCPUTimesProbe(metrics SystemMetrics) Probe {
	return &metricProbe{probeBase: probeBase{name: "cpu.times", kind: DynamicProbe}, read: metrics.CPUTimesTotal}
}

// NewMemoryUsageProbe creates a probe reading memory utilization
func NewMemoryUsageProbe(metrics SystemMetrics) Probe {
	return &metricProbe{probeBase: probeBase{name: "memory", kind: DynamicProbe}, read: metrics.MemoryUsedPercent}
}

// NewDiskUsageProbe creates a probe reading the utilization of the filesystem at path
func NewDiskUsageProbe(metrics SystemMetrics, path string) Probe {
	return &metricProbe{
		probeBase: probeBase{name: "disk.usage", kind: DynamicProbe},
		read: func(ctx context.Context) (float64, error) {
			return metrics.DiskUsedPercent(ctx, path)
		},
	}
}

// ================================================================================

// ProcessProbe reads process, thread and goroutine identity
type ProcessProbe struct {
	probeBase
	metrics SystemMetrics
}

// NewProcessProbe creates a process probe
func NewProcessProbe(metrics SystemMetrics) *ProcessProbe {
	return &ProcessProbe{probeBase: probeBase{name: "process", kind: DynamicProbe}, metrics: metrics}
}

// Sample reads pid, OS thread id, goroutine count and OS thread count
func (p *ProcessProbe) Sample(ctx context.Context) ([]SourceReading, error) {
	now := time.Now()
	pid := os.Getpid()

	readings := []SourceReading{
		IntReading("process.pid", int64(pid), now),
		IntReading("process.goroutines", int64(runtime.NumGoroutine()), now),
	}
	if tid, ok := threadID(); ok {
		readings = append(readings, IntReading("process.tid", tid, now))
	}
	// 线程数不可用时忽略
	if threads, err := p.metrics.ProcessThreads(ctx, int32(pid)); err == nil {
		readings = append(readings, IntReading("process.threads", int64(threads), now))
	}
	return readings, nil
}

// ================================================================================

// NetIOProbe reads network traffic counters
type NetIOProbe struct {
	probeBase
	metrics SystemMetrics
}

// NewNetIOProbe creates a network counter probe
func NewNetIOProbe(metrics SystemMetrics) *NetIOProbe {
	return &NetIOProbe{probeBase: probeBase{name: "net.io", kind: DynamicProbe}, metrics: metrics}
}

// Sample reads bytes sent and received since boot
func (p *NetIOProbe) Sample(ctx context.Context) ([]SourceReading, error) {
	sent, recv, err := p.metrics.NetIOCounters(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return []SourceReading{
		IntReading("net.bytes_sent", int64(sent), now),
		IntReading("net.bytes_recv", int64(recv), now),
	}, nil
}

// ================================================================================

// RuntimeProbe reads Go allocator counters and the address of a fresh allocation
type RuntimeProbe struct {
	probeBase
}

// NewRuntimeProbe creates a runtime probe
func NewRuntimeProbe() *RuntimeProbe {
	return &RuntimeProbe{probeBase: probeBase{name: "runtime", kind: DynamicProbe}}
}

// Sample reads allocator statistics
func (p *RuntimeProbe) Sample(ctx context.Context) ([]SourceReading, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	now := time.Now()
	fresh := new([16]byte)
	return []SourceReading{
		IntReading("runtime.heap_alloc", int64(ms.HeapAlloc), now),
		IntReading("runtime.total_alloc", int64(ms.TotalAlloc), now),
		IntReading("runtime.mallocs", int64(ms.Mallocs), now),
		IntReading("runtime.num_gc", int64(ms.NumGC), now),
		StringReading("runtime.alloc_addr", fmt.Sprintf("%p", fresh), now),
	}, nil
}

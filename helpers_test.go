package lottery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// recordingLogger keeps formatted messages per level
type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
	debugs []string
}

func (l *recordingLogger) Info(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf(msg, args...))
}

func (l *recordingLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(msg, args...))
}

func (l *recordingLogger) Debug(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugs = append(l.debugs, fmt.Sprintf(msg, args...))
}

func (l *recordingLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

func (l *recordingLogger) Infos() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.infos...)
}

// stubProbe returns fixed readings or a fixed error
type stubProbe struct {
	name     string
	kind     ProbeKind
	strong   bool
	readings []SourceReading
	err      error
	panics   bool
	calls    atomic.Int64
}

func (p *stubProbe) Name() string    { return p.name }
func (p *stubProbe) Kind() ProbeKind { return p.kind }
func (p *stubProbe) Strong() bool    { return p.strong }

func (p *stubProbe) Sample(ctx context.Context) ([]SourceReading, error) {
	p.calls.Add(1)
	if p.panics {
		panic("probe exploded")
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.readings, nil
}

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)

func newStubProbe(name string, kind ProbeKind, readings ...SourceReading) *stubProbe {
	return &stubProbe{name: name, kind: kind, readings: readings}
}

func newFailingProbe(name string, kind ProbeKind) *stubProbe {
	return &stubProbe{name: name, kind: kind, err: errors.New(name + " offline")}
}

// counterProbe emits an increasing integer on each call, making every
// dynamic bundle distinct
type counterProbe struct {
	n atomic.Int64
}

func (p *counterProbe) Name() string    { return "counter" }
func (p *counterProbe) Kind() ProbeKind { return DynamicProbe }

func (p *counterProbe) Sample(ctx context.Context) ([]SourceReading, error) {
	return []SourceReading{IntReading("counter", p.n.Add(1), fixedTime)}, nil
}

// fakeSystemMetrics returns canned values; failAll makes every call fail
type fakeSystemMetrics struct {
	failAll bool
}

var errFakeMetrics = errors.New("metrics unavailable")

func (f *fakeSystemMetrics) HostInfo(ctx context.Context) (*HostSnapshot, error) {
	if f.failAll {
		return nil, errFakeMetrics
	}
	return &HostSnapshot{
		Hostname:        "draw-host",
		OS:              "linux",
		Platform:        "debian",
		PlatformVersion: "12",
		KernelVersion:   "6.1.0",
		KernelArch:      "x86_64",
		HostID:          "host-id-1",
		BootTime:        1700000000,
	}, nil
}

func (f *fakeSystemMetrics) CPUInfo(ctx context.Context) (*CPUSnapshot, error) {
	if f.failAll {
		return nil, errFakeMetrics
	}
	return &CPUSnapshot{ModelName: "Test CPU", Logical: 8, Physical: 4}, nil
}

func (f *fakeSystemMetrics) TotalMemory(ctx context.Context) (uint64, error) {
	if f.failAll {
		return 0, errFakeMetrics
	}
	return 16 << 30, nil
}

func (f *fakeSystemMetrics) HardwareAddrs(ctx context.Context) ([]string, error) {
	if f.failAll {
		return nil, errFakeMetrics
	}
	return []string{"02:42:ac:11:00:02", "02:42:ac:11:00:03"}, nil
}

func (f *fakeSystemMetrics) Partitions(ctx context.Context) ([]PartitionInfo, error) {
	if f.failAll {
		return nil, errFakeMetrics
	}
	return []PartitionInfo{
		{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
		{Device: "/dev/sdb1", Mountpoint: "/data", Fstype: "xfs"},
	}, nil
}

func (f *fakeSystemMetrics) ProcessCreateTime(ctx context.Context, pid int32) (int64, error) {
	if f.failAll {
		return 0, errFakeMetrics
	}
	return 1700000123456, nil
}

func (f *fakeSystemMetrics) ProcessThreads(ctx context.Context, pid int32) (int32, error) {
	if f.failAll {
		return 0, errFakeMetrics
	}
	return 12, nil
}

func (f *fakeSystemMetrics) CPUPercent(ctx context.Context) (float64, error) {
	if f.failAll {
		return 0, errFakeMetrics
	}
	return 12.5, nil
}

func (f *fakeSystemMetrics) CPUTimesTotal(ctx context.Context) (float64, error) {
	if f.failAll {
		return 0, errFakeMetrics
	}
	return 98765.25, nil
}

func (f *fakeSystemMetrics) MemoryUsedPercent(ctx context.Context) (float64, error) {
	if f.failAll {
		return 0, errFakeMetrics
	}
	return 42.75, nil
}

func (f *fakeSystemMetrics) DiskUsedPercent(ctx context.Context, path string) (float64, error) {
	if f.failAll {
		return 0, errFakeMetrics
	}
	return 61.5, nil
}

func (f *fakeSystemMetrics) NetIOCounters(ctx context.Context) (uint64, uint64, error) {
	if f.failAll {
		return 0, 0, errFakeMetrics
	}
	return 123456, 654321, nil
}

// fakeWeather returns a fixed observation for every requested variable
type fakeWeather struct {
	mu      sync.Mutex
	err     error
	queries []WeatherQuery
}

func (f *fakeWeather) Observe(ctx context.Context, query WeatherQuery) (*WeatherObservation, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	values := make(map[string][]float64, len(query.Variables))
	for i, v := range query.Variables {
		values[v] = []float64{float64(i) + 0.5, float64(i) + 1.5}
	}
	return &WeatherObservation{
		Latitude:  query.Latitude,
		Longitude: query.Longitude,
		Values:    values,
	}, nil
}

func (f *fakeWeather) Queries() []WeatherQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WeatherQuery(nil), f.queries...)
}

// recordingMetrics counts MetricsRecorder calls
type recordingMetrics struct {
	mu       sync.Mutex
	probes   map[string][]bool
	draws    []bool
	pNumbers float64
	pStars   float64
	analyses int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{probes: make(map[string][]bool)}
}

func (m *recordingMetrics) RecordProbe(name string, success bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes[name] = append(m.probes[name], success)
}

func (m *recordingMetrics) RecordDraw(success bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draws = append(m.draws, success)
}

func (m *recordingMetrics) RecordAnalysis(pValueNumbers, pValueStars float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pNumbers, m.pStars = pValueNumbers, pValueStars
	m.analyses++
}

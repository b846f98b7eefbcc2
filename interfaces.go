package lottery

import (
	"context"
	"time"
)

// ProgressCallback defines the callback function for batch progress updates
type ProgressCallback func(completed, total int, current *Draw)

// ProbeKind tells the collector when a probe has to run
type ProbeKind int

const (
	// StaticProbe readings are collected once and reused for a whole batch
	StaticProbe ProbeKind = iota
	// DynamicProbe readings are collected again for every draw
	DynamicProbe
)

// String returns the probe kind name
func (k ProbeKind) String() string {
	switch k {
	case StaticProbe:
		return "static"
	case DynamicProbe:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Probe samples one entropy source.
//
// A probe returns one or more readings, or an error when its source is
// unavailable. Errors never abort a collection pass.
type Probe interface {
	// Name identifies the probe in logs and metrics
	Name() string

	// Kind reports whether the probe is static or dynamic
	Kind() ProbeKind

	// Sample reads the source
	Sample(ctx context.Context) ([]SourceReading, error)
}

// StrongProbe is implemented by probes whose readings satisfy the
// cryptographically strong source requirement of a bundle
type StrongProbe interface {
	Probe
	Strong() bool
}

// WeatherProvider returns weather observations for a coordinate
type WeatherProvider interface {
	Observe(ctx context.Context, query WeatherQuery) (*WeatherObservation, error)
}

// MetricsRecorder receives collection and draw measurements
type MetricsRecorder interface {
	// RecordProbe records one probe invocation
	RecordProbe(name string, success bool, duration time.Duration)

	// RecordDraw records one draw generation attempt
	RecordDraw(success bool, duration time.Duration)

	// RecordAnalysis records the p-values of an analysis run
	RecordAnalysis(pValueNumbers, pValueStars float64)
}

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

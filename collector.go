package lottery

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultStaticProbes returns the static probes in collection order. The
// weather probe is appended only when weather is enabled and a provider is set.
func DefaultStaticProbes(cfg *Config, sys SystemMetrics, weather WeatherProvider) []Probe {
	probes := []Probe{
		NewOSRandomProbe("os.random"),
		NewOSRandomProbe("os.random.secondary"),
		NewHostProbe(sys),
		NewHardwareProbe(sys),
		NewDiskProbe(sys),
		NewProcessStartProbe(sys),
		NewEnvironmentProbe(),
	}
	if cfg.Weather.Enabled && weather != nil {
		probes = append(probes, NewWeatherProbe(weather, cfg.Weather))
	}
	return probes
}

// DefaultDynamicProbes returns the dynamic probes in collection order
func DefaultDynamicProbes(cfg *Config, sys SystemMetrics) []Probe {
	return []Probe{
		NewClockProbe(),
		NewCPUUsageProbe(sys),
		NewCPUTimesProbe(sys),
		NewMemoryUsageProbe(sys),
		NewDiskUsageProbe(sys, cfg.Collector.DiskPath),
		NewProcessProbe(sys),
		NewNetIOProbe(sys),
		NewRuntimeProbe(),
	}
}

// EntropyCollector runs probes and assembles entropy bundles.
//
// Static readings are collected once and reused until ResetStatic; dynamic
// readings are collected on every call. Probe failures never fail a
// collection: the probe is logged, recorded and skipped.
type EntropyCollector struct {
	static  []Probe
	dynamic []Probe
	logger  Logger
	metrics MetricsRecorder

	mu           sync.Mutex
	staticBundle *EntropyBundle
}

// NewEntropyCollector creates a collector over the given probes
func NewEntropyCollector(static, dynamic []Probe, logger Logger, metrics MetricsRecorder) *EntropyCollector {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &EntropyCollector{
		static:  append([]Probe(nil), static...),
		dynamic: append([]Probe(nil), dynamic...),
		logger:  loggerOrDefault(logger),
		metrics: metrics,
	}
}

// CollectStatic returns the static bundle, running the static probes on first use
func (c *EntropyCollector) CollectStatic(ctx context.Context) EntropyBundle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.staticBundle != nil {
		return *c.staticBundle
	}

	bundle := c.run(ctx, c.static)
	// 被取消的采集结果不缓存
	if ctx.Err() == nil {
		c.staticBundle = &bundle
	}
	return bundle
}

// CollectDynamic runs the dynamic probes now
func (c *EntropyCollector) CollectDynamic(ctx context.Context) EntropyBundle {
	return c.run(ctx, c.dynamic)
}

// Collect returns the static readings followed by fresh dynamic readings
func (c *EntropyCollector) Collect(ctx context.Context) EntropyBundle {
	return c.CollectStatic(ctx).Append(c.CollectDynamic(ctx))
}

// ResetStatic drops the cached static readings
func (c *EntropyCollector) ResetStatic() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.staticBundle = nil
}

// run invokes probes in order and concatenates their readings
func (c *EntropyCollector) run(ctx context.Context, probes []Probe) EntropyBundle {
	var (
		readings   []SourceReading
		strong     bool
		wantStrong bool
	)

	for _, p := range probes {
		sp, isStrong := p.(StrongProbe)
		isStrong = isStrong && sp.Strong()
		wantStrong = wantStrong || isStrong

		start := time.Now()
		out, err := c.sample(ctx, p)
		c.metrics.RecordProbe(p.Name(), err == nil, time.Since(start))

		if err != nil {
			c.logger.Info("Entropy probe %s unavailable: %v",
				p.Name(), ErrProbeUnavailable.WithOperation(p.Name()).WithCause(err))
			continue
		}

		readings = append(readings, out...)
		if isStrong && len(out) > 0 {
			strong = true
		}
	}

	if wantStrong && !strong {
		c.logger.Error("No cryptographically strong entropy source produced a reading")
	}
	c.logger.Debug("Collected %d readings from %d probes", len(readings), len(probes))

	return NewEntropyBundle(strong, readings...)
}

// sample calls the probe, turning a panic into an error
func (c *EntropyCollector) sample(ctx context.Context, p Probe) (readings []SourceReading, err error) {
	defer func() {
		if r := recover(); r != nil {
			readings = nil
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Sample(ctx)
}

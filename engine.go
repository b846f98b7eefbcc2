package lottery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// EngineOption customizes a LotteryEngine
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger    Logger
	metrics   MetricsRecorder
	weather   WeatherProvider
	system    SystemMetrics
	static    []Probe
	dynamic   []Probe
	probesSet bool
	redis     redis.Cmdable
	store     *DrawStore
}

// WithLogger sets the engine logger
func WithLogger(logger Logger) EngineOption {
	return func(o *engineOptions) { o.logger = logger }
}

// WithMetrics adds a recorder next to the built-in PerformanceMonitor
func WithMetrics(metrics MetricsRecorder) EngineOption {
	return func(o *engineOptions) { o.metrics = metrics }
}

// WithWeatherProvider replaces the Open-Meteo client used by the weather probe
func WithWeatherProvider(provider WeatherProvider) EngineOption {
	return func(o *engineOptions) { o.weather = provider }
}

// WithSystemMetrics replaces the gopsutil backed host metrics
func WithSystemMetrics(system SystemMetrics) EngineOption {
	return func(o *engineOptions) { o.system = system }
}

// WithProbes replaces the default static and dynamic probes
func WithProbes(static, dynamic []Probe) EngineOption {
	return func(o *engineOptions) {
		o.static = static
		o.dynamic = dynamic
		o.probesSet = true
	}
}

// WithRedis enables the weather cache and the draw store on client
func WithRedis(client redis.Cmdable) EngineOption {
	return func(o *engineOptions) { o.redis = client }
}

// WithDrawStore sets the draw store explicitly
func WithDrawStore(store *DrawStore) EngineOption {
	return func(o *engineOptions) { o.store = store }
}

// LotteryEngine generates, selects, analyzes and stores draws.
//
// Every draw goes through collect -> derive -> generate; no pseudo-random
// state is shared between draws.
type LotteryEngine struct {
	config    *Config
	logger    Logger
	collector *EntropyCollector
	deriver   *SeedDeriver
	generator *DrawGenerator
	analyzer  *RandomnessAnalyzer
	store     *DrawStore
	breaker   *BreakerWeatherProvider
	metrics   MetricsRecorder

	performanceMonitor *PerformanceMonitor
}

// NewLotteryEngine validates cfg and wires the engine. A nil cfg uses DefaultConfig.
func NewLotteryEngine(cfg *Config, opts ...EngineOption) (*LotteryEngine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}
	logger := loggerOrDefault(o.logger)

	monitor := NewPerformanceMonitor()
	var metrics MetricsRecorder = monitor
	if o.metrics != nil {
		metrics = MultiRecorder{monitor, o.metrics}
	}

	generator, err := NewDrawGenerator(cfg.Draw)
	if err != nil {
		return nil, err
	}
	analyzer, err := NewRandomnessAnalyzer(cfg.Draw)
	if err != nil {
		return nil, err
	}

	e := &LotteryEngine{
		config:             cfg,
		logger:             logger,
		deriver:            NewSeedDeriver(),
		generator:          generator,
		analyzer:           analyzer,
		store:              o.store,
		metrics:            metrics,
		performanceMonitor: monitor,
	}

	if e.store == nil && o.redis != nil {
		e.store = NewDrawStore(o.redis, logger)
	}

	static, dynamic := o.static, o.dynamic
	if !o.probesSet {
		system := o.system
		if system == nil {
			system = NewHostMetrics(cfg.Collector.CPUSampleInterval)
		}
		weather := o.weather
		if weather == nil && cfg.Weather.Enabled {
			weather = e.buildWeatherProvider(o.redis)
		}
		static = DefaultStaticProbes(cfg, system, weather)
		dynamic = DefaultDynamicProbes(cfg, system)
	}
	e.collector = NewEntropyCollector(static, dynamic, logger, metrics)

	return e, nil
}

// buildWeatherProvider wires Open-Meteo behind the circuit breaker and,
// when Redis is available, the observation cache
func (e *LotteryEngine) buildWeatherProvider(client redis.Cmdable) WeatherProvider {
	e.breaker = NewBreakerWeatherProvider(
		NewOpenMeteoClient(e.config.Weather, e.logger), e.config.CircuitBreaker, e.logger)

	var provider WeatherProvider = e.breaker
	if client != nil {
		provider = NewRedisWeatherCache(provider, client, e.config.Weather.CacheTTL, e.logger)
	}
	return provider
}

// Config returns the configuration the engine was built with
func (e *LotteryEngine) Config() *Config { return e.config }

// Collector returns the entropy collector
func (e *LotteryEngine) Collector() *EntropyCollector { return e.collector }

// WeatherBreaker returns the breaker around the default weather client, or nil
func (e *LotteryEngine) WeatherBreaker() *BreakerWeatherProvider { return e.breaker }

// GenerateDraw collects entropy, derives a seed and generates one draw
func (e *LotteryEngine) GenerateDraw(ctx context.Context) (*Draw, error) {
	start := time.Now()
	draw, err := e.generateOne(ctx)
	e.metrics.RecordDraw(err == nil, time.Since(start))
	if err != nil {
		e.logger.Error("Draw generation failed: %v", err)
		return nil, err
	}

	e.logger.Debug("Generated draw %s", draw)
	return draw, nil
}

// generateOne runs collect -> derive -> generate
func (e *LotteryEngine) generateOne(ctx context.Context) (*Draw, error) {
	seed, err := e.freshSeed(ctx)
	if err != nil {
		return nil, err
	}
	return e.generator.Generate(seed)
}

// freshSeed collects a bundle and derives its seed
func (e *LotteryEngine) freshSeed(ctx context.Context) (Seed, error) {
	bundle := e.collector.Collect(ctx)
	if err := ctx.Err(); err != nil {
		return Seed{}, ErrDrawInterrupted.WithCause(err)
	}
	if !bundle.HasStrongSource() {
		return Seed{}, ErrInsufficientEntropy.WithDetails(
			fmt.Sprintf("no OS random reading among %d readings", bundle.Len()))
	}
	return e.deriver.Derive(bundle)
}

// Replay regenerates the draw of a known seed
func (e *LotteryEngine) Replay(seed Seed) (*Draw, error) {
	return e.generator.Generate(seed)
}

// GenerateDraws generates a batch of n draws. Static readings are collected
// once for the batch, dynamic readings for every draw. The first error aborts
// the batch and no partial batch is returned.
func (e *LotteryEngine) GenerateDraws(ctx context.Context, n int, progress ProgressCallback) (DrawBatch, error) {
	if err := ValidateCount(n); err != nil {
		return nil, err
	}

	start := time.Now()
	e.collector.ResetStatic()
	e.collector.CollectStatic(ctx)

	workers := effectiveWorkers(e.config.Collector.Workers, n)
	e.logger.Info("Generating %d draws with %d workers", n, workers)

	var (
		batch DrawBatch
		err   error
	)
	if workers == 1 {
		batch, err = e.generateSequential(ctx, n, progress)
	} else {
		batch, err = e.generateParallel(ctx, n, workers, progress)
	}
	if err != nil {
		e.logger.Error("Batch generation aborted: %v", err)
		return nil, err
	}

	e.logger.Info("Generated %d draws in %v", n, time.Since(start))
	return batch, nil
}

func (e *LotteryEngine) generateSequential(ctx context.Context, n int, progress ProgressCallback) (DrawBatch, error) {
	batch := make(DrawBatch, 0, n)
	for i := range n {
		if err := ctx.Err(); err != nil {
			e.logger.Info("Batch cancelled after %d of %d draws", i, n)
			return nil, ErrDrawInterrupted.WithCause(err)
		}

		draw, err := e.GenerateDraw(ctx)
		if err != nil {
			return nil, err
		}
		batch = append(batch, draw)

		if progress != nil {
			progress(len(batch), n, draw)
		}
	}
	return batch, nil
}

// generateParallel fills the batch with a bounded worker pool; every draw
// keeps its index in the batch
func (e *LotteryEngine) generateParallel(ctx context.Context, n, workers int, progress ProgressCallback) (DrawBatch, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batch := make(DrawBatch, n)
	indexes := make(chan int)

	var (
		wg        sync.WaitGroup
		errOnce   sync.Once
		firstErr  error
		progressM sync.Mutex
		completed int
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				draw, err := e.GenerateDraw(ctx)
				if err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
				batch[i] = draw

				progressM.Lock()
				completed++
				if progress != nil {
					progress(completed, n, draw)
				}
				progressM.Unlock()
			}
		}()
	}

feed:
	for i := range n {
		select {
		case <-ctx.Done():
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, ErrDrawInterrupted.WithCause(err)
	}
	return batch, nil
}

// SelectDraw picks the final draw of a batch with a freshly derived seed
func (e *LotteryEngine) SelectDraw(ctx context.Context, batch DrawBatch) (*Draw, int, error) {
	if len(batch) == 0 {
		return nil, -1, ErrEmptyBatch
	}

	seed, err := e.freshSeed(ctx)
	if err != nil {
		return nil, -1, err
	}

	idx := NewDRBG(seed).IntN(len(batch))
	e.logger.Info("Selected draw %d of %d: %s", idx+1, len(batch), batch[idx])
	return batch[idx], idx, nil
}

// Analyze runs the randomness analysis over batch
func (e *LotteryEngine) Analyze(batch DrawBatch) (*AnalysisReport, error) {
	report, err := e.analyzer.Analyze(batch)
	if err != nil {
		return nil, err
	}

	e.metrics.RecordAnalysis(report.PValueNumbers(), report.PValueStars())
	e.logger.Info("Analyzed %d draws: numbers %s (p=%.4f), stars %s (p=%.4f)",
		report.SampleSize, report.Numbers.Assessment, report.PValueNumbers(),
		report.Stars.Assessment, report.PValueStars())
	return report, nil
}

// SaveBatch persists batch in the draw store and returns its id
func (e *LotteryEngine) SaveBatch(ctx context.Context, batch DrawBatch) (string, error) {
	if e.store == nil {
		return "", ErrServiceUnavailable.WithDetails("draw store is not configured")
	}
	return e.store.SaveBatch(ctx, *e.config.Draw, batch, DefaultBatchTTL)
}

// LoadBatch loads a batch from the draw store
func (e *LotteryEngine) LoadBatch(ctx context.Context, id string) (DrawBatch, error) {
	if e.store == nil {
		return nil, ErrServiceUnavailable.WithDetails("draw store is not configured")
	}
	stored, err := e.store.LoadBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	return stored.Draws, nil
}

// PerformanceMetrics 获取性能指标
func (e *LotteryEngine) PerformanceMetrics() PerformanceMetrics {
	return e.performanceMonitor.GetMetrics()
}

// ResetPerformanceMetrics 重置性能指标
func (e *LotteryEngine) ResetPerformanceMetrics() {
	e.performanceMonitor.ResetMetrics()
}

// ProbeFailures returns the failure count of every probe that failed at least once
func (e *LotteryEngine) ProbeFailures() map[string]int64 {
	return e.performanceMonitor.ProbeFailures()
}

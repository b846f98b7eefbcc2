package lottery

import (
	"maps"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// PerformanceMetrics 性能指标收集器
type PerformanceMetrics struct {
	// 开奖统计
	TotalDraws      int64 `json:"total_draws"`      // 总开奖次数
	SuccessfulDraws int64 `json:"successful_draws"` // 成功开奖次数
	FailedDraws     int64 `json:"failed_draws"`     // 失败开奖次数

	// 熵探针统计
	ProbeInvocations int64 `json:"probe_invocations"` // 探针调用次数
	ProbeFailures    int64 `json:"probe_failures"`    // 探针失败次数
	ProbeTime        int64 `json:"probe_time"`        // 探针总耗时(纳秒)

	// 性能统计
	AverageDrawTime int64 `json:"average_draw_time"` // 平均开奖时间(纳秒)
	TotalDrawTime   int64 `json:"total_draw_time"`   // 总开奖时间(纳秒)

	// 最近一次分析的 p 值 (float64 bits)
	LastPValueNumbers uint64 `json:"-"`
	LastPValueStars   uint64 `json:"-"`
	Analyses          int64  `json:"analyses"`

	// 时间戳
	StartTime      int64 `json:"start_time"`       // 开始时间
	LastUpdateTime int64 `json:"last_update_time"` // 最后更新时间
}

// GetSuccessRate 获取成功率
func (pm *PerformanceMetrics) GetSuccessRate() float64 {
	total := atomic.LoadInt64(&pm.TotalDraws)
	if total == 0 {
		return 0.0
	}
	successful := atomic.LoadInt64(&pm.SuccessfulDraws)
	return float64(successful) / float64(total) * 100.0
}

// GetAverageProbeTime 获取平均探针耗时
func (pm *PerformanceMetrics) GetAverageProbeTime() time.Duration {
	invocations := atomic.LoadInt64(&pm.ProbeInvocations)
	if invocations == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&pm.ProbeTime) / invocations)
}

// GetLastPValues 获取最近一次分析的 p 值
func (pm *PerformanceMetrics) GetLastPValues() (numbers, stars float64) {
	return math.Float64frombits(atomic.LoadUint64(&pm.LastPValueNumbers)),
		math.Float64frombits(atomic.LoadUint64(&pm.LastPValueStars))
}

// GetThroughput 获取吞吐量(每秒开奖数)
func (pm *PerformanceMetrics) GetThroughput() float64 {
	startTime := atomic.LoadInt64(&pm.StartTime)
	lastUpdate := atomic.LoadInt64(&pm.LastUpdateTime)
	if startTime == 0 || lastUpdate <= startTime {
		return 0.0
	}

	duration := time.Duration(lastUpdate - startTime)
	totalDraws := atomic.LoadInt64(&pm.TotalDraws)

	return float64(totalDraws) / duration.Seconds()
}

// Reset 重置性能指标
func (pm *PerformanceMetrics) Reset() {
	atomic.StoreInt64(&pm.TotalDraws, 0)
	atomic.StoreInt64(&pm.SuccessfulDraws, 0)
	atomic.StoreInt64(&pm.FailedDraws, 0)
	atomic.StoreInt64(&pm.ProbeInvocations, 0)
	atomic.StoreInt64(&pm.ProbeFailures, 0)
	atomic.StoreInt64(&pm.ProbeTime, 0)
	atomic.StoreInt64(&pm.AverageDrawTime, 0)
	atomic.StoreInt64(&pm.TotalDrawTime, 0)
	atomic.StoreUint64(&pm.LastPValueNumbers, 0)
	atomic.StoreUint64(&pm.LastPValueStars, 0)
	atomic.StoreInt64(&pm.Analyses, 0)
	atomic.StoreInt64(&pm.StartTime, time.Now().UnixNano())
	atomic.StoreInt64(&pm.LastUpdateTime, time.Now().UnixNano())
}

// ================================================================================

// PerformanceMonitor 性能监控器, 实现 MetricsRecorder
type PerformanceMonitor struct {
	metrics *PerformanceMetrics
	mu      sync.RWMutex
	enabled bool

	failuresMu    sync.Mutex
	probeFailures map[string]int64
}

// NewPerformanceMonitor 创建新的性能监控器
func NewPerformanceMonitor() *PerformanceMonitor {
	pm := &PerformanceMonitor{
		metrics:       &PerformanceMetrics{},
		enabled:       true,
		probeFailures: make(map[string]int64),
	}
	pm.metrics.Reset()
	return pm
}

// Enable 启用性能监控
func (pm *PerformanceMonitor) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.enabled = true
}

// Disable 禁用性能监控
func (pm *PerformanceMonitor) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.enabled = false
}

// IsEnabled 检查是否启用了性能监控
func (pm *PerformanceMonitor) IsEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return pm.enabled
}

// RecordProbe 记录探针调用
func (pm *PerformanceMonitor) RecordProbe(name string, success bool, duration time.Duration) {
	if !pm.IsEnabled() {
		return
	}

	atomic.AddInt64(&pm.metrics.ProbeInvocations, 1)
	atomic.AddInt64(&pm.metrics.ProbeTime, int64(duration))
	if !success {
		atomic.AddInt64(&pm.metrics.ProbeFailures, 1)

		pm.failuresMu.Lock()
		pm.probeFailures[name]++
		pm.failuresMu.Unlock()
	}

	atomic.StoreInt64(&pm.metrics.LastUpdateTime, time.Now().UnixNano())
}

// RecordDraw 记录开奖操作
func (pm *PerformanceMonitor) RecordDraw(success bool, duration time.Duration) {
	if !pm.IsEnabled() {
		return
	}

	atomic.AddInt64(&pm.metrics.TotalDraws, 1)
	atomic.AddInt64(&pm.metrics.TotalDrawTime, int64(duration))

	// 更新开奖统计
	if success {
		atomic.AddInt64(&pm.metrics.SuccessfulDraws, 1)
	} else {
		atomic.AddInt64(&pm.metrics.FailedDraws, 1)
	}

	// 更新平均开奖时间
	totalDraws := atomic.LoadInt64(&pm.metrics.TotalDraws)
	totalTime := atomic.LoadInt64(&pm.metrics.TotalDrawTime)
	atomic.StoreInt64(&pm.metrics.AverageDrawTime, totalTime/totalDraws)

	// 更新最后更新时间
	atomic.StoreInt64(&pm.metrics.LastUpdateTime, time.Now().UnixNano())
}

// RecordAnalysis 记录分析结果
func (pm *PerformanceMonitor) RecordAnalysis(pValueNumbers, pValueStars float64) {
	if !pm.IsEnabled() {
		return
	}

	atomic.AddInt64(&pm.metrics.Analyses, 1)
	atomic.StoreUint64(&pm.metrics.LastPValueNumbers, math.Float64bits(pValueNumbers))
	atomic.StoreUint64(&pm.metrics.LastPValueStars, math.Float64bits(pValueStars))
	atomic.StoreInt64(&pm.metrics.LastUpdateTime, time.Now().UnixNano())
}

// ProbeFailures 返回每个探针的失败次数
func (pm *PerformanceMonitor) ProbeFailures() map[string]int64 {
	pm.failuresMu.Lock()
	defer pm.failuresMu.Unlock()

	return maps.Clone(pm.probeFailures)
}

// GetMetrics 获取性能指标的副本
func (pm *PerformanceMonitor) GetMetrics() PerformanceMetrics {
	return PerformanceMetrics{
		TotalDraws:        atomic.LoadInt64(&pm.metrics.TotalDraws),
		SuccessfulDraws:   atomic.LoadInt64(&pm.metrics.SuccessfulDraws),
		FailedDraws:       atomic.LoadInt64(&pm.metrics.FailedDraws),
		ProbeInvocations:  atomic.LoadInt64(&pm.metrics.ProbeInvocations),
		ProbeFailures:     atomic.LoadInt64(&pm.metrics.ProbeFailures),
		ProbeTime:         atomic.LoadInt64(&pm.metrics.ProbeTime),
		AverageDrawTime:   atomic.LoadInt64(&pm.metrics.AverageDrawTime),
		TotalDrawTime:     atomic.LoadInt64(&pm.metrics.TotalDrawTime),
		LastPValueNumbers: atomic.LoadUint64(&pm.metrics.LastPValueNumbers),
		LastPValueStars:   atomic.LoadUint64(&pm.metrics.LastPValueStars),
		Analyses:          atomic.LoadInt64(&pm.metrics.Analyses),
		StartTime:         atomic.LoadInt64(&pm.metrics.StartTime),
		LastUpdateTime:    atomic.LoadInt64(&pm.metrics.LastUpdateTime),
	}
}

// ResetMetrics 重置性能指标
func (pm *PerformanceMonitor) ResetMetrics() {
	pm.metrics.Reset()

	pm.failuresMu.Lock()
	clear(pm.probeFailures)
	pm.failuresMu.Unlock()
}

// ================================================================================

// MultiRecorder fans measurements out to several recorders
type MultiRecorder []MetricsRecorder

// RecordProbe implements MetricsRecorder
func (m MultiRecorder) RecordProbe(name string, success bool, duration time.Duration) {
	for _, r := range m {
		r.RecordProbe(name, success, duration)
	}
}

// RecordDraw implements MetricsRecorder
func (m MultiRecorder) RecordDraw(success bool, duration time.Duration) {
	for _, r := range m {
		r.RecordDraw(success, duration)
	}
}

// RecordAnalysis implements MetricsRecorder
func (m MultiRecorder) RecordAnalysis(pValueNumbers, pValueStars float64) {
	for _, r := range m {
		r.RecordAnalysis(pValueNumbers, pValueStars)
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordProbe(string, bool, time.Duration) {}
func (nopMetrics) RecordDraw(bool, time.Duration)          {}
func (nopMetrics) RecordAnalysis(float64, float64)         {}

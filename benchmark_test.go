package lottery

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"
)

// BenchmarkSingleDraw 单次开奖性能基准测试
func BenchmarkSingleDraw(b *testing.B) {
	engine := newTestEngine(b, nil)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.GenerateDraw(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDefaultProbes 使用默认探针(伪造主机指标)的开奖
func BenchmarkDefaultProbes(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Weather.Enabled = false

	engine, err := NewLotteryEngine(cfg,
		WithLogger(NewSilentLogger()),
		WithSystemMetrics(&fakeSystemMetrics{}))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.GenerateDraw(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkGenerateDraws 批量开奖性能基准测试
func BenchmarkGenerateDraws(b *testing.B) {
	testCases := []struct {
		name    string
		count   int
		workers int
	}{
		{"小批量_10次", 10, 1},
		{"中批量_100次", 100, 1},
		{"中批量_100次_并发", 100, 4},
		{"大批量_1000次_并发", 1000, runtime.NumCPU()},
	}

	for _, tc := range testCases {
		b.Run(tc.name, func(b *testing.B) {
			cfg := testEngineConfig()
			cfg.Collector.Workers = min(tc.workers, MaxCollectorWorkers)
			engine := newTestEngine(b, cfg)
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := engine.GenerateDraws(ctx, tc.count, nil); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(float64(tc.count*b.N)/b.Elapsed().Seconds(), "draws/s")
		})
	}
}

// BenchmarkConcurrentDraw 并发开奖性能基准测试
func BenchmarkConcurrentDraw(b *testing.B) {
	engine := newTestEngine(b, nil)
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := engine.GenerateDraw(ctx); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

func BenchmarkSeedDeriver_Derive(b *testing.B) {
	deriver := NewSeedDeriver()

	for _, n := range []int{4, 32, 256} {
		readings := make([]SourceReading, n)
		for i := range readings {
			readings[i] = BytesReading(fmt.Sprintf("probe.%d", i), make([]byte, 32), fixedTime)
		}
		bundle := NewEntropyBundle(true, readings...)

		b.Run(fmt.Sprintf("readings_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := deriver.Derive(bundle); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkMemoryUsage 大批量开奖内存使用
func BenchmarkMemoryUsage(b *testing.B) {
	engine := newTestEngine(b, nil)
	ctx := context.Background()

	var m1, m2 runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.GenerateDraws(ctx, 1000, nil); err != nil {
			b.Fatal(err)
		}
	}

	runtime.GC()
	runtime.ReadMemStats(&m2)

	b.ReportMetric(float64(m2.TotalAlloc-m1.TotalAlloc)/float64(b.N), "bytes/batch")
	b.ReportMetric(float64(m2.Mallocs-m1.Mallocs)/float64(b.N), "allocs/batch")
}

func BenchmarkPerformanceMonitor_Operations(b *testing.B) {
	monitor := NewPerformanceMonitor()

	b.Run("RecordDraw", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			monitor.RecordDraw(true, time.Microsecond*10)
		}
	})

	b.Run("RecordProbe", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			monitor.RecordProbe("weather", i%2 == 0, time.Microsecond*5)
		}
	})

	b.Run("GetMetrics", func(b *testing.B) {
		// 预先记录一些数据
		for i := 0; i < 1000; i++ {
			monitor.RecordDraw(true, time.Microsecond*10)
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = monitor.GetMetrics()
		}
	})
}

func BenchmarkPerformanceMonitor_Concurrent(b *testing.B) {
	monitor := NewPerformanceMonitor()

	b.Run("并发记录操作", func(b *testing.B) {
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				monitor.RecordDraw(true, time.Microsecond*10)
				monitor.RecordProbe("clock", true, time.Microsecond*5)
			}
		})
	})

	b.Run("并发获取指标", func(b *testing.B) {
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				_ = monitor.GetMetrics()
			}
		})
	})
}

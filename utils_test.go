package lottery

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRangeUtils(t *testing.T) {
	tests := []struct {
		name        string
		min         int
		max         int
		expectError bool
	}{
		{"valid_range", 1, 100, false},
		{"equal_values", 5, 5, false},
		{"invalid_range", 100, 1, true},
		{"negative_range", -10, -5, false},
		{"mixed_range", -5, 10, false},
		{"zero_range", 0, 0, false},
		{"large_range", 1, 1000000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange(tt.min, tt.max)
			if tt.expectError {
				assert.Error(t, err)
				assert.Equal(t, ErrInvalidRange, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCountUtils(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		expectError bool
	}{
		{"valid_count", 1, false},
		{"valid_large_count", 1000, false},
		{"maximum_count", MaxNumberOfDraws, false},
		{"above_maximum", MaxNumberOfDraws + 1, true},
		{"zero_count", 0, true},
		{"negative_count", -1, true},
		{"negative_large_count", -100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCount(tt.count)
			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidCount)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerateBatchID(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{8}_\d{6}_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

	seen := make(map[string]struct{})
	for range 100 {
		id := generateBatchID()
		assert.Regexp(t, pattern, id)

		_, dup := seen[id]
		assert.False(t, dup, "duplicate batch id %s", id)
		seen[id] = struct{}{}
	}
}

func TestEffectiveWorkers(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		count   int
		want    int
	}{
		{"single", 1, 100, 1},
		{"zero_workers", 0, 100, 1},
		{"negative_workers", -3, 100, 1},
		{"bounded_by_count", 8, 3, 3},
		{"bounded_by_max", 1000, 1_000_000, MaxCollectorWorkers},
		{"normal", 4, 100, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, effectiveWorkers(tt.workers, tt.count))
		})
	}
}

// ================================================================================
// Logger Tests
// ================================================================================

func TestSilentLogger(t *testing.T) {
	logger := NewSilentLogger()

	// 测试所有方法都不会panic
	t.Run("Info方法", func(t *testing.T) {
		assert.NotPanics(t, func() { logger.Info("test info message") })
	})

	t.Run("Error方法", func(t *testing.T) {
		assert.NotPanics(t, func() { logger.Error("test error message") })
	})

	t.Run("Debug方法", func(t *testing.T) {
		assert.NotPanics(t, func() { logger.Debug("test debug message") })
	})

	t.Run("多次调用", func(t *testing.T) {
		for i := range 100 {
			logger.Info("info %d", i)
			logger.Error("error %d", i)
			logger.Debug("debug %d", i)
		}
	})

	t.Run("长消息", func(t *testing.T) {
		longMessage := strings.Repeat("a", 10000)
		logger.Info(longMessage)
		logger.Error(longMessage)
		logger.Debug(longMessage)
	})
}

func TestDefaultLogger(t *testing.T) {
	// DefaultLogger 使用标准库 log 包, 只测试不会 panic
	logger := &DefaultLogger{}

	assert.NotPanics(t, func() {
		logger.Info("test info message %d", 1)
		logger.Error("test error message %s", "x")
		logger.Debug("test debug message")
	})
}

func TestLoggerOrDefault(t *testing.T) {
	assert.IsType(t, &DefaultLogger{}, loggerOrDefault(nil))

	silent := NewSilentLogger()
	assert.Same(t, silent, loggerOrDefault(silent))
}

func BenchmarkSilentLogger(b *testing.B) {
	logger := NewSilentLogger()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark info message %d", i)
	}
}

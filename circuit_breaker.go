package lottery

import (
	"context"
	"errors"
	"sync"

	"github.com/sony/gobreaker"
)

// BreakerWeatherProvider 带熔断器的天气服务
//
// 天气服务不可用时熔断器打开, 同一批次后续的天气探针快速失败而不是逐个等待超时.
type BreakerWeatherProvider struct {
	provider WeatherProvider

	mu      sync.RWMutex
	breaker *gobreaker.CircuitBreaker
	logger  Logger
	config  *CircuitBreakerConfig
}

// NewBreakerWeatherProvider 创建带熔断器的天气服务
func NewBreakerWeatherProvider(provider WeatherProvider, config *CircuitBreakerConfig, logger Logger) *BreakerWeatherProvider {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}

	b := &BreakerWeatherProvider{
		provider: provider,
		logger:   loggerOrDefault(logger),
		config:   config,
	}
	if config.Enabled {
		b.breaker = b.newBreaker()
	}
	return b
}

// newBreaker 按配置创建熔断器实例
func (b *BreakerWeatherProvider) newBreaker() *gobreaker.CircuitBreaker {
	config := b.config
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// 当请求数达到最小要求且失败率超过阈值时触发熔断
			return counts.Requests >= config.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= config.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if config.OnStateChange {
				b.logger.Info("Circuit breaker '%s' state changed from %s to %s", name, from, to)
			}
		},
		IsSuccessful: func(err error) bool {
			// 调用方取消不算天气服务故障
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// Observe 通过熔断器获取天气观测
func (b *BreakerWeatherProvider) Observe(ctx context.Context, query WeatherQuery) (*WeatherObservation, error) {
	b.mu.RLock()
	breaker := b.breaker
	b.mu.RUnlock()

	if breaker == nil {
		// 熔断器未启用，直接执行
		return b.provider.Observe(ctx, query)
	}

	result, err := breaker.Execute(func() (any, error) {
		return b.provider.Observe(ctx, query)
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			return nil, ErrCircuitBreakerOpen.WithDetails("weather service circuit is open")
		case errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, ErrCircuitBreakerOpen.WithDetails("too many requests, circuit breaker is half-open")
		}
		return nil, err
	}

	return result.(*WeatherObservation), nil
}

// State 获取熔断器状态
func (b *BreakerWeatherProvider) State() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.breaker == nil {
		return "disabled"
	}

	switch b.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Counts 获取熔断器统计信息
func (b *BreakerWeatherProvider) Counts() gobreaker.Counts {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.breaker == nil {
		return gobreaker.Counts{}
	}
	return b.breaker.Counts()
}

// Reset 重置熔断器 (重新创建熔断器实例)
func (b *BreakerWeatherProvider) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.breaker == nil {
		return
	}
	// gobreaker 没有 Reset 方法，我们重新创建一个实例
	b.breaker = b.newBreaker()
	b.logger.Info("Circuit breaker '%s' has been reset (recreated)", b.config.Name)
}

// HealthCheck 熔断器健康检查
func (b *BreakerWeatherProvider) HealthCheck() map[string]any {
	result := map[string]any{
		"circuit_breaker_enabled": b.config.Enabled,
	}

	state := b.State()
	result["state"] = state
	if state == "disabled" {
		result["healthy"] = true
		return result
	}

	counts := b.Counts()
	result["requests"] = counts.Requests
	result["total_successes"] = counts.TotalSuccesses
	result["total_failures"] = counts.TotalFailures
	result["consecutive_failures"] = counts.ConsecutiveFailures

	// 计算成功率
	if counts.Requests > 0 {
		result["success_rate"] = float64(counts.TotalSuccesses) / float64(counts.Requests)
	} else {
		result["success_rate"] = 0.0
	}

	// 健康状态判断
	healthy := true
	switch state {
	case "open":
		healthy = false
	case "half-open":
		// 半开状态下，如果连续失败次数过多，认为不健康
		if counts.ConsecutiveFailures > 2 {
			healthy = false
		}
	}
	result["healthy"] = healthy

	return result
}

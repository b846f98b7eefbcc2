package lottery

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// Config 生产环境配置结构
type Config struct {
	// 开奖形态
	Draw *DrawConfig `mapstructure:"draw"`

	// 天气熵源
	Weather *WeatherConfig `mapstructure:"weather"`

	// 熵采集
	Collector *CollectorConfig `mapstructure:"collector"`

	// Redis 配置
	Redis *RedisConfig `mapstructure:"redis"`

	// 熔断器配置
	CircuitBreaker *CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// Prometheus 指标
	Metrics *MetricsConfig `mapstructure:"metrics"`
}

// DefaultConfig returns a configuration with every section at its default
func DefaultConfig() *Config {
	return &Config{
		Draw:           DefaultDrawConfig(),
		Weather:        DefaultWeatherConfig(),
		Collector:      DefaultCollectorConfig(),
		Redis:          DefaultRedisConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig(),
		Metrics:        DefaultMetricsConfig(),
	}
}

// Validate checks every section. The first problem found is returned as
// ErrInvalidConfig with details.
func (c *Config) Validate() error {
	if c == nil {
		return ErrInvalidConfig.WithDetails("config is nil")
	}
	if c.Draw == nil || c.Weather == nil || c.Collector == nil ||
		c.Redis == nil || c.CircuitBreaker == nil || c.Metrics == nil {
		return ErrInvalidConfig.WithDetails("config section missing")
	}

	// 验证开奖配置
	if err := c.Draw.Validate(); err != nil {
		return err
	}
	if err := ValidateCount(c.Draw.NumberOfDraws); err != nil {
		return ErrInvalidConfig.WithDetails("draw.number_of_draws").WithCause(err)
	}

	if err := c.Weather.Validate(); err != nil {
		return err
	}

	// 验证采集配置
	if c.Collector.CPUSampleInterval <= 0 || c.Collector.CPUSampleInterval > time.Second {
		return ErrInvalidConfig.WithDetails("collector.cpu_sample_interval must be in (0, 1s]")
	}
	if c.Collector.Workers < 1 || c.Collector.Workers > MaxCollectorWorkers {
		return ErrInvalidConfig.WithDetails(fmt.Sprintf("collector.workers must be in [1, %d]", MaxCollectorWorkers))
	}

	// 验证 Redis 配置
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return ErrInvalidConfig.WithDetails("redis address is required")
		}
		if c.Redis.PoolSize <= 0 {
			return ErrInvalidConfig.WithDetails("redis pool size must be positive")
		}
	}

	// 验证熔断器配置
	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.FailureRatio <= 0 || c.CircuitBreaker.FailureRatio > 1 {
			return ErrInvalidConfig.WithDetails("circuit_breaker.failure_ratio must be in (0, 1]")
		}
		if c.CircuitBreaker.Timeout <= 0 {
			return ErrInvalidConfig.WithDetails("circuit_breaker.timeout must be positive")
		}
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return ErrInvalidConfig.WithDetails("metrics.addr is required")
	}

	return nil
}

// WeatherConfig 天气熵源配置
type WeatherConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	APIURL       string        `mapstructure:"api_url"`
	LatMin       float64       `mapstructure:"lat_min"`
	LatMax       float64       `mapstructure:"lat_max"`
	LonMin       float64       `mapstructure:"lon_min"`
	LonMax       float64       `mapstructure:"lon_max"`
	GridStep     float64       `mapstructure:"grid_step"`
	Variables    []string      `mapstructure:"variables"`
	MinVariables int           `mapstructure:"min_variables"`
	MaxVariables int           `mapstructure:"max_variables"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Retries      int           `mapstructure:"retries"`
	Backoff      time.Duration `mapstructure:"backoff"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// DefaultWeatherConfig 返回默认天气配置
func DefaultWeatherConfig() *WeatherConfig {
	return &WeatherConfig{
		Enabled:      true,
		APIURL:       DefaultWeatherAPIURL,
		LatMin:       DefaultWeatherLatMin,
		LatMax:       DefaultWeatherLatMax,
		LonMin:       DefaultWeatherLonMin,
		LonMax:       DefaultWeatherLonMax,
		GridStep:     DefaultWeatherGridStep,
		Variables:    append([]string(nil), DefaultWeatherVariables...),
		MinVariables: DefaultWeatherMinVariables,
		MaxVariables: DefaultWeatherMaxVariables,
		Timeout:      DefaultWeatherTimeout,
		Retries:      DefaultWeatherRetries,
		Backoff:      DefaultWeatherBackoff,
		CacheTTL:     DefaultWeatherCacheTTL,
	}
}

// Validate checks the weather section; a disabled section is always valid
func (c *WeatherConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidConfig.WithDetails(fmt.Sprintf("weather.api_url %q is not an absolute URL", c.APIURL))
	}
	if c.LatMin < -90 || c.LatMax > 90 || c.LatMin >= c.LatMax {
		return ErrInvalidConfig.WithDetails("weather latitude bounds must satisfy -90 <= lat_min < lat_max <= 90")
	}
	if c.LonMin < -180 || c.LonMax > 180 || c.LonMin >= c.LonMax {
		return ErrInvalidConfig.WithDetails("weather longitude bounds must satisfy -180 <= lon_min < lon_max <= 180")
	}
	if c.GridStep < 0 {
		return ErrInvalidConfig.WithDetails("weather.grid_step cannot be negative")
	}
	if len(c.Variables) == 0 {
		return ErrInvalidConfig.WithDetails("weather.variables is empty")
	}
	if c.MinVariables < 1 || c.MinVariables > c.MaxVariables || c.MaxVariables > len(c.Variables) {
		return ErrInvalidConfig.WithDetails(fmt.Sprintf(
			"weather variable bounds must satisfy 1 <= min_variables (%d) <= max_variables (%d) <= %d",
			c.MinVariables, c.MaxVariables, len(c.Variables)))
	}
	if c.Timeout <= 0 {
		return ErrInvalidConfig.WithDetails("weather.timeout must be positive")
	}
	if c.Retries < 0 || c.Retries > MaxWeatherRetries {
		return ErrInvalidConfig.WithDetails(fmt.Sprintf("weather.retries must be in [0, %d]", MaxWeatherRetries))
	}
	if c.Backoff < 0 || c.CacheTTL < 0 {
		return ErrInvalidConfig.WithDetails("weather.backoff and weather.cache_ttl cannot be negative")
	}
	return nil
}

// CollectorConfig 熵采集配置
type CollectorConfig struct {
	CPUSampleInterval time.Duration `mapstructure:"cpu_sample_interval"`
	Workers           int           `mapstructure:"workers"`
	DiskPath          string        `mapstructure:"disk_path"`
}

// DefaultCollectorConfig 返回默认采集配置
func DefaultCollectorConfig() *CollectorConfig {
	return &CollectorConfig{
		CPUSampleInterval: DefaultCPUSampleInterval,
		Workers:           DefaultCollectorWorkers,
		DiskPath:          rootPath(),
	}
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// 连接配置
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// 连接池配置
	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	MaxRetries   int `mapstructure:"max_retries"`

	// 超时配置
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
}

// DefaultRedisConfig 返回默认的Redis配置
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Enabled:      DefaultRedisEnabled,
		Addr:         DefaultRedisAddr,
		Password:     DefaultRedisPassword,
		DB:           DefaultRedisDB,
		PoolSize:     DefaultRedisPoolSize,
		MinIdleConns: DefaultRedisMinIdleConns,
		MaxRetries:   DefaultRedisMaxRetries,
		DialTimeout:  DefaultRedisDialTimeout,
		ReadTimeout:  DefaultRedisReadTimeout,
		WriteTimeout: DefaultRedisWriteTimeout,
		PoolTimeout:  DefaultRedisPoolTimeout,
	}
}

// NewRedisClientFromConfig 从配置创建Redis客户端
func NewRedisClientFromConfig(config *RedisConfig) *redis.Client {
	if config == nil {
		config = DefaultRedisConfig()
	}

	return redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolTimeout:  config.PoolTimeout,
	})
}

// CircuitBreakerConfig 熔断器配置
type CircuitBreakerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Name          string        `mapstructure:"name"`
	MaxRequests   uint32        `mapstructure:"max_requests"`
	Interval      time.Duration `mapstructure:"interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
	FailureRatio  float64       `mapstructure:"failure_ratio"`
	MinRequests   uint32        `mapstructure:"min_requests"`
	OnStateChange bool          `mapstructure:"on_state_change"`
}

// DefaultCircuitBreakerConfig 返回默认熔断器配置
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Enabled:       true,
		Name:          DefaultCircuitBreakerName,
		MaxRequests:   DefaultCircuitBreakerMaxRequests,
		Interval:      DefaultCircuitBreakerInterval,
		Timeout:       DefaultCircuitBreakerTimeout,
		FailureRatio:  DefaultCircuitBreakerFailureRatio,
		MinRequests:   DefaultCircuitBreakerMinRequests,
		OnStateChange: DefaultCircuitBreakerOnStateChange,
	}
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{Enabled: DefaultMetricsEnabled, Addr: DefaultMetricsAddr}
}

// ================================================================================

// ConfigManager 配置管理器
type ConfigManager struct {
	viper      *viper.Viper
	logger     Logger
	configFile string

	mu     sync.RWMutex
	config *Config
}

// NewConfigManager 创建配置管理器
func NewConfigManager(logger Logger) *ConfigManager {
	v := viper.New()

	// 设置配置文件名和路径
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/lottery")
	v.AddConfigPath("$HOME/.lottery")

	// 设置环境变量前缀
	v.SetEnvPrefix("LOTTERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cm := &ConfigManager{viper: v, logger: loggerOrDefault(logger)}
	cm.setDefaults()
	return cm
}

// SetConfigFile 使用指定的配置文件, 替代默认搜索路径
func (cm *ConfigManager) SetConfigFile(path string) {
	cm.configFile = path
	cm.viper.SetConfigFile(path)
}

// LoadConfig 加载配置
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	// 读取配置文件
	if err := cm.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cm.configFile != "" || !errors.As(err, &notFound) {
			return nil, ErrInvalidConfig.WithDetails("failed to read config file").WithCause(err)
		}
		// 配置文件不存在时使用默认配置
		cm.logger.Debug("No config file found, using defaults and environment")
	}

	config, err := cm.decode()
	if err != nil {
		return nil, err
	}

	cm.mu.Lock()
	cm.config = config
	cm.mu.Unlock()
	return config, nil
}

// decode 解析并验证配置
func (cm *ConfigManager) decode() (*Config, error) {
	config := &Config{}
	if err := cm.viper.Unmarshal(config); err != nil {
		return nil, ErrInvalidConfig.WithDetails("failed to unmarshal config").WithCause(err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// setDefaults 设置默认配置值
func (cm *ConfigManager) setDefaults() {
	// 开奖默认配置
	cm.viper.SetDefault("draw.number_of_draws", DefaultNumberOfDraws)
	cm.viper.SetDefault("draw.number_of_numbers", DefaultNumberOfNumbers)
	cm.viper.SetDefault("draw.max_number", DefaultMaxNumber)
	cm.viper.SetDefault("draw.number_of_stars", DefaultNumberOfStars)
	cm.viper.SetDefault("draw.max_star", DefaultMaxStar)

	// 天气默认配置
	cm.viper.SetDefault("weather.enabled", true)
	cm.viper.SetDefault("weather.api_url", DefaultWeatherAPIURL)
	cm.viper.SetDefault("weather.lat_min", DefaultWeatherLatMin)
	cm.viper.SetDefault("weather.lat_max", DefaultWeatherLatMax)
	cm.viper.SetDefault("weather.lon_min", DefaultWeatherLonMin)
	cm.viper.SetDefault("weather.lon_max", DefaultWeatherLonMax)
	cm.viper.SetDefault("weather.grid_step", DefaultWeatherGridStep)
	cm.viper.SetDefault("weather.variables", DefaultWeatherVariables)
	cm.viper.SetDefault("weather.min_variables", DefaultWeatherMinVariables)
	cm.viper.SetDefault("weather.max_variables", DefaultWeatherMaxVariables)
	cm.viper.SetDefault("weather.timeout", "5s")
	cm.viper.SetDefault("weather.retries", DefaultWeatherRetries)
	cm.viper.SetDefault("weather.backoff", "200ms")
	cm.viper.SetDefault("weather.cache_ttl", "15m")

	// 采集默认配置
	cm.viper.SetDefault("collector.cpu_sample_interval", "10ms")
	cm.viper.SetDefault("collector.workers", DefaultCollectorWorkers)
	cm.viper.SetDefault("collector.disk_path", rootPath())

	// Redis 默认配置
	cm.viper.SetDefault("redis.enabled", DefaultRedisEnabled)
	cm.viper.SetDefault("redis.addr", DefaultRedisAddr)
	cm.viper.SetDefault("redis.password", DefaultRedisPassword)
	cm.viper.SetDefault("redis.db", DefaultRedisDB)
	cm.viper.SetDefault("redis.pool_size", DefaultRedisPoolSize)
	cm.viper.SetDefault("redis.min_idle_conns", DefaultRedisMinIdleConns)
	cm.viper.SetDefault("redis.max_retries", DefaultRedisMaxRetries)
	cm.viper.SetDefault("redis.dial_timeout", "5s")
	cm.viper.SetDefault("redis.read_timeout", "3s")
	cm.viper.SetDefault("redis.write_timeout", "3s")
	cm.viper.SetDefault("redis.pool_timeout", "4s")

	// 熔断器默认配置
	cm.viper.SetDefault("circuit_breaker.enabled", true)
	cm.viper.SetDefault("circuit_breaker.name", DefaultCircuitBreakerName)
	cm.viper.SetDefault("circuit_breaker.max_requests", DefaultCircuitBreakerMaxRequests)
	cm.viper.SetDefault("circuit_breaker.interval", "60s")
	cm.viper.SetDefault("circuit_breaker.timeout", "30s")
	cm.viper.SetDefault("circuit_breaker.failure_ratio", DefaultCircuitBreakerFailureRatio)
	cm.viper.SetDefault("circuit_breaker.min_requests", DefaultCircuitBreakerMinRequests)
	cm.viper.SetDefault("circuit_breaker.on_state_change", DefaultCircuitBreakerOnStateChange)

	// 指标默认配置
	cm.viper.SetDefault("metrics.enabled", DefaultMetricsEnabled)
	cm.viper.SetDefault("metrics.addr", DefaultMetricsAddr)
}

// WatchConfig 监听配置变化. 新配置只影响下一次运行, 正在进行的批次不受影响
func (cm *ConfigManager) WatchConfig(callback func(*Config)) {
	cm.viper.OnConfigChange(func(e fsnotify.Event) {
		config, err := cm.decode()
		if err != nil {
			// 记录错误但不中断服务
			cm.logger.Error("Ignoring config change from %s: %v", e.Name, err)
			return
		}

		cm.mu.Lock()
		cm.config = config
		cm.mu.Unlock()

		cm.logger.Info("Config reloaded from %s", e.Name)
		if callback != nil {
			callback(config)
		}
	})
	cm.viper.WatchConfig()
}

// GetConfig 获取当前配置
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return cm.config
}

// ReloadConfig 重新加载配置
func (cm *ConfigManager) ReloadConfig() (*Config, error) { return cm.LoadConfig() }

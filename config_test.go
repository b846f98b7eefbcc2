package lottery

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigManager_LoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		expectError bool
		validate    func(*testing.T, *Config)
	}{
		{
			name: "default_config",
			validate: func(t *testing.T, config *Config) {
				assert.Equal(t, DefaultDrawConfig(), config.Draw)
				assert.True(t, config.Weather.Enabled)
				assert.Equal(t, DefaultWeatherAPIURL, config.Weather.APIURL)
				assert.Equal(t, 5*time.Second, config.Weather.Timeout)
				assert.Equal(t, 10*time.Millisecond, config.Collector.CPUSampleInterval)
				assert.Equal(t, 1, config.Collector.Workers)
				assert.False(t, config.Redis.Enabled)
				assert.Equal(t, "localhost:6379", config.Redis.Addr)
				assert.Equal(t, 30*time.Second, config.CircuitBreaker.Timeout)
				assert.Equal(t, DefaultWeatherGridStep, config.Weather.GridStep)
				assert.Equal(t, 15*time.Minute, config.Weather.CacheTTL)
				assert.False(t, config.Metrics.Enabled)
			},
		},
		{
			name: "environment_variables",
			env: map[string]string{
				"LOTTERY_DRAW_MAX_NUMBER":               "70",
				"LOTTERY_DRAW_NUMBER_OF_DRAWS":          "500",
				"LOTTERY_WEATHER_ENABLED":               "false",
				"LOTTERY_COLLECTOR_WORKERS":             "4",
				"LOTTERY_COLLECTOR_CPU_SAMPLE_INTERVAL": "25ms",
				"LOTTERY_REDIS_ADDR":                    "redis-cluster:6379",
			},
			validate: func(t *testing.T, config *Config) {
				assert.Equal(t, 70, config.Draw.MaxNumber)
				assert.Equal(t, 500, config.Draw.NumberOfDraws)
				assert.False(t, config.Weather.Enabled)
				assert.Equal(t, 4, config.Collector.Workers)
				assert.Equal(t, 25*time.Millisecond, config.Collector.CPUSampleInterval)
				assert.Equal(t, "redis-cluster:6379", config.Redis.Addr)
			},
		},
		{
			name:        "more_numbers_than_domain",
			env:         map[string]string{"LOTTERY_DRAW_NUMBER_OF_NUMBERS": "51"},
			expectError: true,
		},
		{
			name:        "too_many_workers",
			env:         map[string]string{"LOTTERY_COLLECTOR_WORKERS": "1000"},
			expectError: true,
		},
		{
			name:        "zero_draws",
			env:         map[string]string{"LOTTERY_DRAW_NUMBER_OF_DRAWS": "0"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cm := NewConfigManager(NewSilentLogger())
			config, err := cm.LoadConfig()

			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Nil(t, cm.GetConfig())
				return
			}

			require.NoError(t, err)
			require.NotNil(t, config)
			assert.Same(t, config, cm.GetConfig())

			if tt.validate != nil {
				tt.validate(t, config)
			}
		})
	}
}

func TestConfigManager_ConfigFile(t *testing.T) {
	t.Run("yaml_file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lottery.yaml")
		content := `
draw:
  number_of_draws: 20
  number_of_numbers: 6
  max_number: 49
  number_of_stars: 1
  max_star: 10
weather:
  enabled: true
  variables: [temperature_2m, visibility, cloud_cover]
  min_variables: 1
  max_variables: 3
  retries: 1
redis:
  enabled: true
  addr: cache:6380
metrics:
  enabled: true
  addr: ":9100"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cm := NewConfigManager(NewSilentLogger())
		cm.SetConfigFile(path)

		config, err := cm.LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, &DrawConfig{
			NumberOfDraws:   20,
			NumberOfNumbers: 6,
			MaxNumber:       49,
			NumberOfStars:   1,
			MaxStar:         10,
		}, config.Draw)
		assert.Equal(t, []string{"temperature_2m", "visibility", "cloud_cover"}, config.Weather.Variables)
		assert.Equal(t, 3, config.Weather.MaxVariables)
		assert.Equal(t, 1, config.Weather.Retries)
		// 未设置的字段保持默认值
		assert.Equal(t, DefaultWeatherTimeout, config.Weather.Timeout)
		assert.True(t, config.Redis.Enabled)
		assert.Equal(t, "cache:6380", config.Redis.Addr)
		assert.Equal(t, ":9100", config.Metrics.Addr)
	})

	t.Run("missing_explicit_file", func(t *testing.T) {
		cm := NewConfigManager(NewSilentLogger())
		cm.SetConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))

		_, err := cm.LoadConfig()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("malformed_file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("draw: [unclosed"), 0o600))

		cm := NewConfigManager(NewSilentLogger())
		cm.SetConfigFile(path)

		_, err := cm.LoadConfig()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("reload_picks_up_changes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lottery.yaml")
		require.NoError(t, os.WriteFile(path, []byte("draw:\n  max_star: 12\n"), 0o600))

		cm := NewConfigManager(NewSilentLogger())
		cm.SetConfigFile(path)

		config, err := cm.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 12, config.Draw.MaxStar)

		require.NoError(t, os.WriteFile(path, []byte("draw:\n  max_star: 11\n"), 0o600))
		config, err = cm.ReloadConfig()
		require.NoError(t, err)
		assert.Equal(t, 11, config.Draw.MaxStar)
		assert.Equal(t, 11, cm.GetConfig().Draw.MaxStar)
	})
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name         string
		modifyConfig func(*Config)
		expectError  bool
	}{
		{
			name:         "valid_config",
			modifyConfig: func(config *Config) {},
		},
		{
			name:         "missing_section",
			modifyConfig: func(config *Config) { config.Collector = nil },
			expectError:  true,
		},
		{
			name:         "numbers_exceed_domain",
			modifyConfig: func(config *Config) { config.Draw.NumberOfNumbers = 51 },
			expectError:  true,
		},
		{
			name:         "stars_exceed_domain",
			modifyConfig: func(config *Config) { config.Draw.NumberOfStars = 13 },
			expectError:  true,
		},
		{
			name:         "zero_numbers",
			modifyConfig: func(config *Config) { config.Draw.NumberOfNumbers = 0 },
			expectError:  true,
		},
		{
			name:         "full_domain_is_valid",
			modifyConfig: func(config *Config) { config.Draw.NumberOfNumbers = 50 },
		},
		{
			name:         "too_many_draws",
			modifyConfig: func(config *Config) { config.Draw.NumberOfDraws = MaxNumberOfDraws + 1 },
			expectError:  true,
		},
		{
			name:         "relative_weather_url",
			modifyConfig: func(config *Config) { config.Weather.APIURL = "/v1/forecast" },
			expectError:  true,
		},
		{
			name:         "invalid_weather_url_ignored_when_disabled",
			modifyConfig: func(config *Config) { config.Weather.Enabled = false; config.Weather.APIURL = "" },
		},
		{
			name:         "latitude_out_of_bounds",
			modifyConfig: func(config *Config) { config.Weather.LatMax = 91 },
			expectError:  true,
		},
		{
			name:         "longitude_inverted",
			modifyConfig: func(config *Config) { config.Weather.LonMin, config.Weather.LonMax = 10, -10 },
			expectError:  true,
		},
		{
			name:         "more_variables_than_available",
			modifyConfig: func(config *Config) { config.Weather.MaxVariables = len(config.Weather.Variables) + 1 },
			expectError:  true,
		},
		{
			name:         "negative_grid_step",
			modifyConfig: func(config *Config) { config.Weather.GridStep = -1 },
			expectError:  true,
		},
		{
			name:         "grid_disabled",
			modifyConfig: func(config *Config) { config.Weather.GridStep = 0 },
		},
		{
			name:         "weather_retries_too_high",
			modifyConfig: func(config *Config) { config.Weather.Retries = MaxWeatherRetries + 1 },
			expectError:  true,
		},
		{
			name:         "cpu_interval_zero",
			modifyConfig: func(config *Config) { config.Collector.CPUSampleInterval = 0 },
			expectError:  true,
		},
		{
			name:         "cpu_interval_too_long",
			modifyConfig: func(config *Config) { config.Collector.CPUSampleInterval = 2 * time.Second },
			expectError:  true,
		},
		{
			name:         "redis_without_addr",
			modifyConfig: func(config *Config) { config.Redis.Enabled = true; config.Redis.Addr = "" },
			expectError:  true,
		},
		{
			name:         "redis_disabled_without_addr",
			modifyConfig: func(config *Config) { config.Redis.Addr = "" },
		},
		{
			name:         "breaker_ratio_out_of_range",
			modifyConfig: func(config *Config) { config.CircuitBreaker.FailureRatio = 1.5 },
			expectError:  true,
		},
		{
			name:         "metrics_without_addr",
			modifyConfig: func(config *Config) { config.Metrics.Enabled = true; config.Metrics.Addr = "" },
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modifyConfig(config)

			err := config.Validate()
			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("nil_config", func(t *testing.T) {
		var config *Config
		assert.ErrorIs(t, config.Validate(), ErrInvalidConfig)
	})
}

func TestNewRedisClientFromConfig(t *testing.T) {
	t.Run("nil_uses_defaults", func(t *testing.T) {
		client := NewRedisClientFromConfig(nil)
		defer client.Close()

		assert.Equal(t, DefaultRedisAddr, client.Options().Addr)
		assert.Equal(t, DefaultRedisPoolSize, client.Options().PoolSize)
	})

	t.Run("custom_config", func(t *testing.T) {
		config := DefaultRedisConfig()
		config.Addr = "redis:6380"
		config.DB = 3
		config.ReadTimeout = time.Second

		client := NewRedisClientFromConfig(config)
		defer client.Close()

		assert.Equal(t, "redis:6380", client.Options().Addr)
		assert.Equal(t, 3, client.Options().DB)
		assert.Equal(t, time.Second, client.Options().ReadTimeout)
	})
}

package lottery

import "time"

const (
	// DefaultNumberOfDraws is the default size of a generated batch
	DefaultNumberOfDraws = 100

	// DefaultNumberOfNumbers is the default count of main numbers per draw
	DefaultNumberOfNumbers = 5

	// DefaultMaxNumber is the default upper bound of the main number domain
	DefaultMaxNumber = 50

	// DefaultNumberOfStars is the default count of stars per draw
	DefaultNumberOfStars = 2

	// DefaultMaxStar is the default upper bound of the star domain
	DefaultMaxStar = 12

	// MaxNumberOfDraws caps a single batch request
	MaxNumberOfDraws = 1_000_000

	// SignificanceLevel is the p-value threshold used by the randomness assessment
	SignificanceLevel = 0.05
)

const (
	// SeedSize is the width in bytes of a derived seed (256 bits)
	SeedSize = 32

	// OSRandomBytes is the number of bytes read by each OS random probe
	OSRandomBytes = 32

	// drbgRequestSize is the number of bytes requested from the DRBG per refill
	drbgRequestSize = 64
)

const (
	// DefaultCPUSampleInterval is the window used to measure CPU utilization
	DefaultCPUSampleInterval = 10 * time.Millisecond

	// DefaultCollectorWorkers is the default number of parallel draw workers
	DefaultCollectorWorkers = 1

	// MaxCollectorWorkers bounds the draw worker pool
	MaxCollectorWorkers = 64
)

const (
	// DefaultWeatherAPIURL is the Open-Meteo forecast endpoint
	DefaultWeatherAPIURL = "https://api.open-meteo.com/v1/forecast"

	DefaultWeatherLatMin = -70.0
	DefaultWeatherLatMax = 70.0
	DefaultWeatherLonMin = -180.0
	DefaultWeatherLonMax = 180.0

	// DefaultWeatherGridStep is the cell size, in degrees, coordinates are snapped to
	DefaultWeatherGridStep = 1.0

	// DefaultWeatherMinVariables and DefaultWeatherMaxVariables bound the random
	// subset of hourly variables requested per observation
	DefaultWeatherMinVariables = 3
	DefaultWeatherMaxVariables = 6

	DefaultWeatherTimeout  = 5 * time.Second
	DefaultWeatherRetries  = 2
	DefaultWeatherBackoff  = 200 * time.Millisecond
	DefaultWeatherCacheTTL = 15 * time.Minute

	// MaxWeatherRetries bounds the retry budget of the weather client
	MaxWeatherRetries = 5

	// maxWeatherBackoff caps a single retry delay
	maxWeatherBackoff = 2 * time.Second
)

// DefaultWeatherVariables lists the Open-Meteo hourly variables a weather probe may request.
var DefaultWeatherVariables = []string{
	"temperature_2m", "relative_humidity_2m", "wind_speed_10m",
	"visibility", "precipitation", "cloud_cover", "pressure_msl",
	"surface_pressure", "wind_direction_10m", "shortwave_radiation",
	"direct_radiation", "diffuse_radiation", "dew_point_2m",
}

const (
	// WeatherCacheKeyPrefix is the prefix for Redis weather cache keys
	WeatherCacheKeyPrefix = "lottery:weather:"

	// BatchKeyPrefix is the prefix for Redis draw batch keys
	BatchKeyPrefix = "lottery:batch:"

	// BatchIndexKey holds the sorted set of stored batch ids
	BatchIndexKey = "lottery:batches"

	// DefaultBatchTTL is the default retention of a stored batch
	DefaultBatchTTL = 24 * time.Hour

	// MaxSerializationSize is the maximum allowed size for a serialized batch (10MB)
	MaxSerializationSize = 10 * 1024 * 1024

	// DefaultRetryAttempts is the default number of Redis retry attempts
	DefaultRetryAttempts = 3

	// DefaultRetryInterval is the base interval between Redis retry attempts
	DefaultRetryInterval = 100 * time.Millisecond

	// maxRetryDelay caps the exponential backoff of Redis retries
	maxRetryDelay = 5 * time.Second
)

const (
	// DefaultCircuitBreakerName is the default name for Circuit Breaker
	DefaultCircuitBreakerName = "weather-probe"

	// DefaultCircuitBreakerMaxRequests is the default max requests
	DefaultCircuitBreakerMaxRequests = 1

	// DefaultCircuitBreakerInterval is the default interval
	DefaultCircuitBreakerInterval = 60 * time.Second

	// DefaultCircuitBreakerTimeout is the default timeout
	DefaultCircuitBreakerTimeout = 30 * time.Second

	// DefaultCircuitBreakerFailureRatio is the default failure ratio
	DefaultCircuitBreakerFailureRatio = 0.6

	// DefaultCircuitBreakerMinRequests is the default min requests
	DefaultCircuitBreakerMinRequests = 3

	// DefaultCircuitBreakerOnStateChange is the default on state change
	DefaultCircuitBreakerOnStateChange = true
)

const (
	DefaultRedisEnabled      = false
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPassword     = ""
	DefaultRedisDB           = 0
	DefaultRedisPoolSize     = 10
	DefaultRedisMinIdleConns = 2
	DefaultRedisMaxRetries   = 3
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultRedisPoolTimeout  = 4 * time.Second
)

const (
	DefaultMetricsEnabled = false
	DefaultMetricsAddr    = ":9090"
)

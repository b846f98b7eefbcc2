package lottery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// WeatherQuery selects a coordinate and the hourly variables to observe
type WeatherQuery struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Variables []string `json:"variables"`
}

// WeatherObservation holds the hourly series returned for a query. Variables
// the service did not return are absent from Values.
type WeatherObservation struct {
	Latitude  float64              `json:"latitude"`
	Longitude float64              `json:"longitude"`
	Values    map[string][]float64 `json:"values"`
}

// OpenMeteoClient fetches hourly forecasts from the Open-Meteo API
type OpenMeteoClient struct {
	apiURL  string
	client  *http.Client
	timeout time.Duration
	retries int
	backoff time.Duration
	logger  Logger
}

// NewOpenMeteoClient creates a client from the weather configuration
func NewOpenMeteoClient(cfg *WeatherConfig, logger Logger) *OpenMeteoClient {
	if cfg == nil {
		cfg = DefaultWeatherConfig()
	}
	return &OpenMeteoClient{
		apiURL:  cfg.APIURL,
		client:  &http.Client{},
		timeout: cfg.Timeout,
		retries: cfg.Retries,
		backoff: cfg.Backoff,
		logger:  loggerOrDefault(logger),
	}
}

type openMeteoResponse struct {
	Latitude  float64                    `json:"latitude"`
	Longitude float64                    `json:"longitude"`
	Hourly    map[string]json.RawMessage `json:"hourly"`
	Error     bool                       `json:"error"`
	Reason    string                     `json:"reason"`
}

// Observe fetches the query with bounded retries. Every attempt has its own
// timeout; backoff doubles between attempts.
func (c *OpenMeteoClient) Observe(ctx context.Context, query WeatherQuery) (*WeatherObservation, error) {
	if len(query.Variables) == 0 {
		return nil, ErrInvalidParameters.WithDetails("weather query has no variables")
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, backoffDelay(attempt, c.backoff, maxWeatherBackoff)); err != nil {
				return nil, ErrWeatherUnavailable.WithCause(err)
			}
			c.logger.Debug("Retrying weather request, attempt %d/%d", attempt+1, c.retries+1)
		}

		obs, err := c.fetch(ctx, query)
		if err == nil {
			return obs, nil
		}
		lastErr = err

		if !IsRetryableError(err) || ctx.Err() != nil {
			break
		}
	}

	return nil, ErrWeatherUnavailable.
		WithDetails(fmt.Sprintf("lat=%.4f lon=%.4f", query.Latitude, query.Longitude)).
		WithCause(lastErr)
}

// fetch performs one attempt
func (c *OpenMeteoClient) fetch(ctx context.Context, query WeatherQuery) (*WeatherObservation, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.requestURL(query), nil)
	if err != nil {
		return nil, ErrInvalidParameters.WithCause(err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxSerializationSize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		httpErr := NewError(ErrCodeWeatherUnavailable, "weather service returned "+resp.Status)
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			httpErr.Retryable = true
		}
		return nil, httpErr
	}

	return parseOpenMeteo(body, query)
}

// requestURL builds api_url?latitude=..&longitude=..&hourly=a,b&timezone=auto
func (c *OpenMeteoClient) requestURL(query WeatherQuery) string {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(query.Latitude, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(query.Longitude, 'f', 4, 64))
	params.Set("hourly", strings.Join(query.Variables, ","))
	params.Set("timezone", "auto")

	sep := "?"
	if strings.Contains(c.apiURL, "?") {
		sep = "&"
	}
	return c.apiURL + sep + params.Encode()
}

// parseOpenMeteo extracts hourly.<variable> series; null entries are skipped
func parseOpenMeteo(body []byte, query WeatherQuery) (*WeatherObservation, error) {
	var resp openMeteoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, ErrDeserializationFailed.WithDetails("open-meteo response").WithCause(err)
	}
	if resp.Error {
		return nil, NewError(ErrCodeWeatherUnavailable, "weather service error: "+resp.Reason)
	}

	obs := &WeatherObservation{
		Latitude:  resp.Latitude,
		Longitude: resp.Longitude,
		Values:    make(map[string][]float64, len(query.Variables)),
	}
	for _, name := range query.Variables {
		raw, ok := resp.Hourly[name]
		if !ok {
			continue
		}

		var series []*float64
		if err := json.Unmarshal(raw, &series); err != nil {
			return nil, ErrDeserializationFailed.WithDetails("hourly." + name).WithCause(err)
		}

		values := make([]float64, 0, len(series))
		for _, v := range series {
			if v != nil {
				values = append(values, *v)
			}
		}
		if len(values) > 0 {
			obs.Values[name] = values
		}
	}

	if len(obs.Values) == 0 {
		return nil, NewError(ErrCodeWeatherUnavailable, "response contains none of the requested variables")
	}
	return obs, nil
}

package lottery

import (
	"context"
	"encoding/binary"
	"math"
	"time"
)

// WeatherProbe observes the weather at a random coordinate.
//
// Coordinates are uniform within the configured bounds, snapped down to the
// grid cell that contains them. The variables are a random subset of the
// configured list. Both are picked from crypto/rand.
type WeatherProbe struct {
	probeBase
	provider WeatherProvider
	config   WeatherConfig
	random   *SecureRandomGenerator
}

// NewWeatherProbe creates a weather probe over provider
func NewWeatherProbe(provider WeatherProvider, cfg *WeatherConfig) *WeatherProbe {
	if cfg == nil {
		cfg = DefaultWeatherConfig()
	}
	return &WeatherProbe{
		probeBase: probeBase{name: "weather", kind: StaticProbe},
		provider:  provider,
		config:    *cfg,
		random:    NewSecureRandomGenerator(),
	}
}

// Query picks the coordinate and the variables of the next observation
func (p *WeatherProbe) Query() (WeatherQuery, error) {
	lat, err := p.random.GenerateFloatInRange(p.config.LatMin, p.config.LatMax)
	if err != nil {
		return WeatherQuery{}, err
	}
	lon, err := p.random.GenerateFloatInRange(p.config.LonMin, p.config.LonMax)
	if err != nil {
		return WeatherQuery{}, err
	}

	k, err := p.random.GenerateInRange(p.config.MinVariables, p.config.MaxVariables)
	if err != nil {
		return WeatherQuery{}, err
	}
	vars, err := p.random.Subset(p.config.Variables, k)
	if err != nil {
		return WeatherQuery{}, err
	}

	return WeatherQuery{
		Latitude:  snapToGrid(lat, p.config.LatMin, p.config.GridStep),
		Longitude: snapToGrid(lon, p.config.LonMin, p.config.GridStep),
		Variables: vars,
	}, nil
}

// snapToGrid returns the lower edge of the cell of size step, anchored at
// origin, that contains v. A zero step leaves v unchanged.
func snapToGrid(v, origin, step float64) float64 {
	if step <= 0 {
		return v
	}
	return origin + math.Floor((v-origin)/step)*step
}

// Sample observes the weather and emits the coordinate followed by one
// reading per returned variable, in query order
func (p *WeatherProbe) Sample(ctx context.Context) ([]SourceReading, error) {
	query, err := p.Query()
	if err != nil {
		return nil, err
	}

	obs, err := p.provider.Observe(ctx, query)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	readings := []SourceReading{
		BytesReading("weather.coordinates", encodeFloats([]float64{obs.Latitude, obs.Longitude}), now),
	}
	for _, name := range query.Variables {
		values, ok := obs.Values[name]
		if !ok {
			continue
		}
		readings = append(readings, BytesReading("weather."+name, encodeFloats(values), now))
	}

	if len(readings) == 1 {
		return nil, ErrWeatherUnavailable.WithDetails("observation has none of the requested variables")
	}
	return readings, nil
}

// encodeFloats writes values as big-endian IEEE-754 bits
func encodeFloats(values []float64) []byte {
	buf := make([]byte, 0, 8*len(values))
	for _, v := range values {
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}

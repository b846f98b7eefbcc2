package lottery

import (
	"encoding/json"
	"fmt"
	"slices"
)

// DrawConfig describes the shape of a draw
type DrawConfig struct {
	NumberOfDraws   int `mapstructure:"number_of_draws" json:"number_of_draws"`
	NumberOfNumbers int `mapstructure:"number_of_numbers" json:"number_of_numbers"`
	MaxNumber       int `mapstructure:"max_number" json:"max_number"`
	NumberOfStars   int `mapstructure:"number_of_stars" json:"number_of_stars"`
	MaxStar         int `mapstructure:"max_star" json:"max_star"`
}

// DefaultDrawConfig returns the EuroMillions shape: 5 of 50 and 2 of 12
func DefaultDrawConfig() *DrawConfig {
	return &DrawConfig{
		NumberOfDraws:   DefaultNumberOfDraws,
		NumberOfNumbers: DefaultNumberOfNumbers,
		MaxNumber:       DefaultMaxNumber,
		NumberOfStars:   DefaultNumberOfStars,
		MaxStar:         DefaultMaxStar,
	}
}

// Validate checks that rejection sampling can terminate. NumberOfDraws is
// checked separately by ValidateCount since a generator never reads it.
func (c *DrawConfig) Validate() error {
	if c == nil {
		return ErrInvalidConfig.WithDetails("draw config is nil")
	}
	if c.NumberOfNumbers < 1 || c.MaxNumber < 1 {
		return ErrInvalidConfig.WithDetails(fmt.Sprintf("number_of_numbers (%d) and max_number (%d) must be positive", c.NumberOfNumbers, c.MaxNumber))
	}
	if c.NumberOfStars < 1 || c.MaxStar < 1 {
		return ErrInvalidConfig.WithDetails(fmt.Sprintf("number_of_stars (%d) and max_star (%d) must be positive", c.NumberOfStars, c.MaxStar))
	}
	if c.NumberOfNumbers > c.MaxNumber {
		return ErrInvalidConfig.WithDetails(fmt.Sprintf("number_of_numbers (%d) exceeds max_number (%d)", c.NumberOfNumbers, c.MaxNumber))
	}
	if c.NumberOfStars > c.MaxStar {
		return ErrInvalidConfig.WithDetails(fmt.Sprintf("number_of_stars (%d) exceeds max_star (%d)", c.NumberOfStars, c.MaxStar))
	}
	return nil
}

// Draw is one generated set of numbers and stars. It is immutable.
type Draw struct {
	numbers []int
	stars   []int
	seed    Seed
}

// NewDraw builds a draw from already validated values; the slices are copied and sorted
func NewDraw(numbers, stars []int, seed Seed) *Draw {
	n := slices.Clone(numbers)
	s := slices.Clone(stars)
	slices.Sort(n)
	slices.Sort(s)
	return &Draw{numbers: n, stars: s, seed: seed}
}

// Numbers returns the main numbers in ascending order
func (d *Draw) Numbers() []int { return slices.Clone(d.numbers) }

// Stars returns the stars in ascending order
func (d *Draw) Stars() []int { return slices.Clone(d.stars) }

// Seed returns the seed the draw was generated from
func (d *Draw) Seed() Seed { return d.seed }

// Validate checks the draw against a draw configuration
func (d *Draw) Validate(cfg *DrawConfig) error {
	if err := validateDomain(d.numbers, cfg.NumberOfNumbers, cfg.MaxNumber); err != nil {
		return ErrInvalidParameters.WithDetails("numbers: " + err.Error())
	}
	if err := validateDomain(d.stars, cfg.NumberOfStars, cfg.MaxStar); err != nil {
		return ErrInvalidParameters.WithDetails("stars: " + err.Error())
	}
	return nil
}

func validateDomain(values []int, count, max int) error {
	if len(values) != count {
		return fmt.Errorf("want %d values, got %d", count, len(values))
	}
	seen := make(map[int]struct{}, len(values))
	for _, v := range values {
		if v < 1 || v > max {
			return fmt.Errorf("value %d outside [1, %d]", v, max)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("duplicate value %d", v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// String renders the draw like "numbers=[..] stars=[..]"
func (d *Draw) String() string {
	return fmt.Sprintf("numbers=%v stars=%v", d.numbers, d.stars)
}

type drawJSON struct {
	Numbers []int  `json:"numbers"`
	Stars   []int  `json:"stars"`
	Seed    string `json:"seed"`
}

// MarshalJSON implements custom JSON marshaling for Draw; the seed is a decimal string
func (d *Draw) MarshalJSON() ([]byte, error) {
	return json.Marshal(drawJSON{Numbers: d.numbers, Stars: d.stars, Seed: d.seed.String()})
}

// UnmarshalJSON implements custom JSON unmarshaling for Draw
func (d *Draw) UnmarshalJSON(data []byte) error {
	var temp drawJSON
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	seed, err := ParseSeed(temp.Seed)
	if err != nil {
		return err
	}

	*d = *NewDraw(temp.Numbers, temp.Stars, seed)
	return nil
}

// DrawBatch is an ordered sequence of draws produced in one run
type DrawBatch []*Draw

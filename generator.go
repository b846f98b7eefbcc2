package lottery

import (
	"slices"
)

// DrawGenerator turns a seed into a draw.
//
// Numbers and then stars are taken by rejection sampling from one DRBG stream
// instantiated from the seed; stars continue the stream left after the numbers.
type DrawGenerator struct {
	config DrawConfig
}

// NewDrawGenerator validates cfg and creates a generator
func NewDrawGenerator(cfg *DrawConfig) (*DrawGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &DrawGenerator{config: *cfg}, nil
}

// Config returns a copy of the draw configuration
func (g *DrawGenerator) Config() DrawConfig { return g.config }

// Generate produces the draw for seed. The same seed always yields the same draw.
func (g *DrawGenerator) Generate(seed Seed) (*Draw, error) {
	rng := NewDRBG(seed)

	numbers := sampleUnique(rng, g.config.NumberOfNumbers, g.config.MaxNumber)
	stars := sampleUnique(rng, g.config.NumberOfStars, g.config.MaxStar)

	return &Draw{numbers: numbers, stars: stars, seed: seed}, nil
}

// sampleUnique draws count distinct values in [1, max], sorted ascending.
// The caller guarantees count <= max.
func sampleUnique(rng *DRBG, count, max int) []int {
	seen := make(map[int]struct{}, count)
	values := make([]int, 0, count)
	for len(values) < count {
		v := rng.IntN(max) + 1
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	slices.Sort(values)
	return values
}

package lottery

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDrawGenerator(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *DrawConfig
		wantErr bool
	}{
		{"default", DefaultDrawConfig(), false},
		{"nil", nil, true},
		{"more_numbers_than_domain", &DrawConfig{NumberOfNumbers: 51, MaxNumber: 50, NumberOfStars: 2, MaxStar: 12}, true},
		{"more_stars_than_domain", &DrawConfig{NumberOfNumbers: 5, MaxNumber: 50, NumberOfStars: 13, MaxStar: 12}, true},
		{"zero_stars", &DrawConfig{NumberOfNumbers: 5, MaxNumber: 50, NumberOfStars: 0, MaxStar: 12}, true},
		{"full_domains", &DrawConfig{NumberOfNumbers: 50, MaxNumber: 50, NumberOfStars: 12, MaxStar: 12}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewDrawGenerator(tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Nil(t, g)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, *tt.cfg, g.Config())
		})
	}
}

func TestDrawGenerator_Generate(t *testing.T) {
	g, err := NewDrawGenerator(DefaultDrawConfig())
	require.NoError(t, err)

	t.Run("golden", func(t *testing.T) {
		tests := []struct {
			name    string
			seed    Seed
			numbers []int
			stars   []int
		}{
			{"zero", Seed{}, []int{3, 12, 14, 39, 48}, []int{3, 9}},
			{"one", seedOne(), []int{24, 25, 31, 34, 41}, []int{2, 4}},
			{"derived", mustDerive(t, goldenBundle()), []int{8, 34, 38, 41, 47}, []int{1, 8}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				draw, err := g.Generate(tt.seed)
				require.NoError(t, err)
				assert.Equal(t, tt.numbers, draw.Numbers())
				assert.Equal(t, tt.stars, draw.Stars())
				assert.Equal(t, tt.seed, draw.Seed())
			})
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := g.Generate(seedOne())
		require.NoError(t, err)
		b, err := g.Generate(seedOne())
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("valid_for_many_seeds", func(t *testing.T) {
		cfg := DefaultDrawConfig()
		for i := range 500 {
			draw, err := g.Generate(indexSeed(uint64(i)))
			require.NoError(t, err)
			require.NoError(t, draw.Validate(cfg))
			assert.IsIncreasing(t, draw.Numbers())
			assert.IsIncreasing(t, draw.Stars())
		}
	})

	t.Run("other_shape", func(t *testing.T) {
		g, err := NewDrawGenerator(&DrawConfig{NumberOfNumbers: 6, MaxNumber: 49, NumberOfStars: 1, MaxStar: 10})
		require.NoError(t, err)

		draw, err := g.Generate(seedOne())
		require.NoError(t, err)
		assert.Equal(t, []int{1, 4, 11, 15, 17, 22}, draw.Numbers())
		assert.Equal(t, []int{10}, draw.Stars())
	})

	t.Run("full_domain", func(t *testing.T) {
		g, err := NewDrawGenerator(&DrawConfig{NumberOfNumbers: 50, MaxNumber: 50, NumberOfStars: 12, MaxStar: 12})
		require.NoError(t, err)

		draw, err := g.Generate(seedOne())
		require.NoError(t, err)
		assert.Len(t, draw.Numbers(), 50)
		assert.Equal(t, 1, draw.Numbers()[0])
		assert.Equal(t, 50, draw.Numbers()[49])
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, draw.Stars())
	})
}

// indexSeed derives a reproducible seed from i
func indexSeed(i uint64) Seed {
	return Seed(sha256.Sum256(binary.BigEndian.AppendUint64(nil, i)))
}

func mustDerive(t *testing.T, bundle EntropyBundle) Seed {
	t.Helper()
	seed, err := NewSeedDeriver().Derive(bundle)
	require.NoError(t, err)
	return seed
}

func TestDraw(t *testing.T) {
	t.Run("copies_and_sorts", func(t *testing.T) {
		numbers := []int{41, 3, 17, 8, 25}
		draw := NewDraw(numbers, []int{9, 2}, seedOne())

		numbers[0] = 99
		assert.Equal(t, []int{3, 8, 17, 25, 41}, draw.Numbers())
		assert.Equal(t, []int{2, 9}, draw.Stars())

		got := draw.Numbers()
		got[0] = 100
		assert.Equal(t, 3, draw.Numbers()[0])
	})

	t.Run("validate", func(t *testing.T) {
		cfg := DefaultDrawConfig()
		tests := []struct {
			name    string
			numbers []int
			stars   []int
			wantErr bool
		}{
			{"valid", []int{1, 2, 3, 4, 50}, []int{1, 12}, false},
			{"too_few_numbers", []int{1, 2, 3, 4}, []int{1, 12}, true},
			{"number_out_of_range", []int{1, 2, 3, 4, 51}, []int{1, 12}, true},
			{"zero_number", []int{0, 2, 3, 4, 5}, []int{1, 12}, true},
			{"duplicate_number", []int{1, 2, 3, 4, 4}, []int{1, 12}, true},
			{"star_out_of_range", []int{1, 2, 3, 4, 5}, []int{1, 13}, true},
			{"duplicate_star", []int{1, 2, 3, 4, 5}, []int{7, 7}, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := NewDraw(tt.numbers, tt.stars, Seed{}).Validate(cfg)
				if tt.wantErr {
					assert.ErrorIs(t, err, ErrInvalidParameters)
				} else {
					assert.NoError(t, err)
				}
			})
		}
	})

	t.Run("string", func(t *testing.T) {
		draw := NewDraw([]int{1, 2, 3, 4, 5}, []int{6, 7}, Seed{})
		assert.Equal(t, "numbers=[1 2 3 4 5] stars=[6 7]", draw.String())
	})

	t.Run("json", func(t *testing.T) {
		draw := NewDraw([]int{24, 25, 31, 34, 41}, []int{2, 4}, seedOne())

		data, err := json.Marshal(draw)
		require.NoError(t, err)
		assert.JSONEq(t, `{"numbers":[24,25,31,34,41],"stars":[2,4],"seed":"1"}`, string(data))

		var decoded Draw
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, draw, &decoded)
	})

	t.Run("json_bad_seed", func(t *testing.T) {
		var decoded Draw
		err := json.Unmarshal([]byte(`{"numbers":[1],"stars":[2],"seed":"abc"}`), &decoded)
		assert.ErrorIs(t, err, ErrInvalidSeed)
	})
}

func BenchmarkDrawGenerator_Generate(b *testing.B) {
	g, err := NewDrawGenerator(DefaultDrawConfig())
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := g.Generate(indexSeed(uint64(i))); err != nil {
			b.Fatal(err)
		}
	}
}

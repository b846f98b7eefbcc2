package lottery

import (
	"crypto/rand"
	"io"
	"math/big"
	"slices"
)

// SecureRandomGenerator picks probe parameters (weather coordinates and
// variables) from crypto/rand. Picks are not reproducible; only the readings
// they lead to enter the seed.
type SecureRandomGenerator struct {
	reader io.Reader
}

// NewSecureRandomGenerator creates a new secure random generator
func NewSecureRandomGenerator() *SecureRandomGenerator {
	return &SecureRandomGenerator{reader: rand.Reader}
}

// GenerateInRange generates a secure random number within the specified range [min, max] (inclusive)
func (g *SecureRandomGenerator) GenerateInRange(min, max int) (int, error) {
	if err := ValidateRange(min, max); err != nil {
		return 0, err
	}
	if min == max {
		return min, nil
	}

	n, err := rand.Int(g.reader, big.NewInt(int64(max)-int64(min)+1))
	if err != nil {
		return 0, ErrSystemError.WithOperation("crypto/rand").WithCause(err)
	}
	return int(n.Int64()) + min, nil
}

// GenerateFloat generates a secure random float between 0 and 1 (exclusive of 1)
func (g *SecureRandomGenerator) GenerateFloat() (float64, error) {
	n, err := rand.Int(g.reader, big.NewInt(1<<53))
	if err != nil {
		return 0, ErrSystemError.WithOperation("crypto/rand").WithCause(err)
	}
	return float64(n.Int64()) / float64(1<<53), nil
}

// GenerateFloatInRange generates a secure random float in [min, max)
func (g *SecureRandomGenerator) GenerateFloatInRange(min, max float64) (float64, error) {
	if min > max {
		return 0, ErrInvalidRange
	}
	f, err := g.GenerateFloat()
	if err != nil {
		return 0, err
	}
	return min + f*(max-min), nil
}

// Subset returns k distinct items chosen uniformly, in random order
func (g *SecureRandomGenerator) Subset(items []string, k int) ([]string, error) {
	if k < 0 || k > len(items) {
		return nil, ErrInvalidCount
	}

	// 部分 Fisher-Yates 洗牌
	pool := slices.Clone(items)
	for i := 0; i < k; i++ {
		j, err := g.GenerateInRange(i, len(pool)-1)
		if err != nil {
			return nil, err
		}
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k], nil
}

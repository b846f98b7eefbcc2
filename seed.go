package lottery

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// readingDelimiter separates serialized readings in the hashed stream
var readingDelimiter = []byte{0x1e, 0x00}

// Seed is a 256-bit seed, read as a big-endian non-negative integer
type Seed [SeedSize]byte

// SeedFromBytes copies a 32-byte digest into a Seed
func SeedFromBytes(b []byte) (Seed, error) {
	var s Seed
	if len(b) != SeedSize {
		return s, ErrInvalidSeed.WithDetails(fmt.Sprintf("want %d bytes, got %d", SeedSize, len(b)))
	}
	copy(s[:], b)
	return s, nil
}

// ParseSeed parses a decimal integer or a 0x-prefixed hex string
func ParseSeed(text string) (Seed, error) {
	var s Seed
	text = strings.TrimSpace(text)
	if text == "" {
		return s, ErrInvalidSeed.WithDetails("empty seed")
	}

	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		_, ok = n.SetString(text[2:], 16)
	} else {
		_, ok = n.SetString(text, 10)
	}
	if !ok || n.Sign() < 0 {
		return s, ErrInvalidSeed.WithDetails(fmt.Sprintf("cannot parse %q", text))
	}
	if n.BitLen() > SeedSize*8 {
		return s, ErrInvalidSeed.WithDetails(fmt.Sprintf("seed exceeds %d bits", SeedSize*8))
	}

	n.FillBytes(s[:])
	return s, nil
}

// BigInt returns the seed as a non-negative integer
func (s Seed) BigInt() *big.Int {
	return new(big.Int).SetBytes(s[:])
}

// String returns the decimal form of the seed
func (s Seed) String() string {
	return s.BigInt().String()
}

// Hex returns the hex form of the seed
func (s Seed) Hex() string {
	return hex.EncodeToString(s[:])
}

// IsZero reports whether the seed is all zero bytes
func (s Seed) IsZero() bool {
	return s == Seed{}
}

// SeedDeriver reduces an entropy bundle to a Seed.
//
// Derivation is a pure function of the serialized bundle:
// SHA-512, then BLAKE2b-512 of that digest, then SHA-256 of that digest.
type SeedDeriver struct{}

// NewSeedDeriver creates a seed deriver
func NewSeedDeriver() *SeedDeriver {
	return &SeedDeriver{}
}

// Serialize returns the byte stream hashed by Derive
func (d *SeedDeriver) Serialize(bundle EntropyBundle) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range bundle.readings {
		data, err := r.MarshalBinary()
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		buf.Write(readingDelimiter)
	}
	return buf.Bytes(), nil
}

// Derive hashes the bundle into a seed. An empty bundle is rejected.
func (d *SeedDeriver) Derive(bundle EntropyBundle) (Seed, error) {
	if bundle.IsEmpty() {
		return Seed{}, ErrInsufficientEntropy.WithDetails("bundle has no readings")
	}

	stream, err := d.Serialize(bundle)
	if err != nil {
		return Seed{}, err
	}

	return hashChain(stream), nil
}

// hashChain applies SHA-512 -> BLAKE2b-512 -> SHA-256
func hashChain(data []byte) Seed {
	first := sha512.Sum512(data)
	second := blake2b.Sum512(first[:])
	return Seed(sha256.Sum256(second[:]))
}

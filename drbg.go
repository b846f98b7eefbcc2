package lottery

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// DRBG is an HMAC-DRBG (NIST SP 800-90A, SHA-256) used as the seeded
// pseudo-random stream of one draw. It is not safe for concurrent use and is
// never shared between draws.
type DRBG struct {
	k   []byte
	v   []byte
	buf []byte
}

// NewDRBG instantiates the generator with the seed as entropy input
func NewDRBG(seed Seed) *DRBG {
	d := &DRBG{
		k: make([]byte, sha256.Size),
		v: make([]byte, sha256.Size),
	}
	for i := range d.v {
		d.v[i] = 0x01
	}
	d.update(seed[:])
	return d
}

func (d *DRBG) hmac(key []byte, parts ...[]byte) []byte {
	mac := hmac.New(sha256.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

// update is the HMAC_DRBG_Update function
func (d *DRBG) update(data []byte) {
	d.k = d.hmac(d.k, d.v, []byte{0x00}, data)
	d.v = d.hmac(d.k, d.v)
	if len(data) == 0 {
		return
	}
	d.k = d.hmac(d.k, d.v, []byte{0x01}, data)
	d.v = d.hmac(d.k, d.v)
}

// Generate returns n pseudo-random bytes as one DRBG request
func (d *DRBG) Generate(n int) []byte {
	out := make([]byte, 0, n+sha256.Size)
	for len(out) < n {
		d.v = d.hmac(d.k, d.v)
		out = append(out, d.v...)
	}
	d.update(nil)
	return out[:n]
}

// Uint64 returns the next 8 bytes of the stream as a big-endian integer.
// Bytes are requested from the DRBG in drbgRequestSize chunks.
func (d *DRBG) Uint64() uint64 {
	if len(d.buf) < 8 {
		d.buf = append(d.buf, d.Generate(drbgRequestSize)...)
	}
	v := binary.BigEndian.Uint64(d.buf[:8])
	d.buf = d.buf[8:]
	return v
}

// IntN returns a uniform integer in [0, n) by rejecting the biased tail of
// the 64-bit range. It panics if n <= 0.
func (d *DRBG) IntN(n int) int {
	if n <= 0 {
		panic("lottery: DRBG.IntN called with n <= 0")
	}

	bound := uint64(n)
	limit := math.MaxUint64 - (math.MaxUint64%bound+1)%bound
	for {
		v := d.Uint64()
		if v <= limit {
			return int(v % bound)
		}
	}
}

// Float64 returns a uniform float in [0, 1)
func (d *DRBG) Float64() float64 {
	return float64(d.Uint64()>>11) / (1 << 53)
}

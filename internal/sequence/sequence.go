package sequence

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
)

// SeedBytes is the length of a raw seed before hex encoding.
const SeedBytes = 16

// NewSeed returns a random hex-encoded seed for a session or challenge.
// Both sides of a challenge replay the exact same light timing from it.
func NewSeed() (string, error) {
	buf := make([]byte, SeedBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating seed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashSeed returns the SHA-256 hex digest of a seed, safe to expose
// before the seed itself is revealed.
func HashSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// Stream produces a deterministic byte stream from HMAC-SHA256 rounds
// keyed on the seed. Each round hashes "nonce:round" so distinct nonces
// under one seed yield independent streams.
type Stream struct {
	seed   string
	nonce  uint64
	round  uint64
	pos    int
	buffer [32]byte
}

// NewStream creates a stream positioned at the first byte.
func NewStream(seed string, nonce uint64) *Stream {
	st := &Stream{seed: seed, nonce: nonce}
	st.fill()
	return st
}

func (st *Stream) fill() {
	h := hmac.New(sha256.New, []byte(st.seed))
	fmt.Fprintf(h, "%d:%d", st.nonce, st.round)
	copy(st.buffer[:], h.Sum(nil))
}

// Next returns the next byte, advancing to a new HMAC round every 32 bytes.
func (st *Stream) Next() byte {
	if st.pos >= len(st.buffer) {
		st.round++
		st.pos = 0
		st.fill()
	}
	b := st.buffer[st.pos]
	st.pos++
	return b
}

// NextFloat consumes four bytes and maps them into [0, 1).
func (st *Stream) NextFloat() float64 {
	result := 0.0
	for i := 1; i <= 4; i++ {
		result += float64(st.Next()) / math.Pow(256, float64(i))
	}
	return result
}

// Floats returns count floats in [0, 1) for the given seed and nonce.
func Floats(seed string, nonce uint64, count int) []float64 {
	st := NewStream(seed, nonce)
	out := make([]float64, count)
	for i := range out {
		out[i] = st.NextFloat()
	}
	return out
}

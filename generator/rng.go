package generator

import (
	crand "crypto/rand"
	"crypto/sha256"
	"math/rand/v2"
)

// RNG is the random source the generator samples with. Each request owns its
// own instance so seeded runs stay reproducible under concurrency.
type RNG interface {
	// Float64 returns a uniform value in [0,1)
	Float64() float64
	// IntN returns a uniform value in [0,n)
	IntN(n int) int
}

// NewSeededRNG returns a deterministic source: equal seeds yield equal sequences
func NewSeededRNG(seed string) RNG {
	return rand.New(rand.NewChaCha8(sha256.Sum256([]byte(seed))))
}

// NewEntropyRNG returns a non-reproducible source seeded from the OS
func NewEntropyRNG() RNG {
	var seed [32]byte
	// crypto/rand.Read never returns an error on supported platforms
	_, _ = crand.Read(seed[:])
	return rand.New(rand.NewChaCha8(seed))
}

// NewRNG picks the seeded variant when a seed is given, entropy otherwise
func NewRNG(seed string) RNG {
	if seed == "" {
		return NewEntropyRNG()
	}
	return NewSeededRNG(seed)
}

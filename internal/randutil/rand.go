package randutil

import (
	crand "crypto/rand"
	"encoding/binary"
	rand "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// Simulations and tests use it to replay a hand exactly.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Secure returns a *rand.Rand keyed from the operating system's entropy
// source. Live tables shuffle with it so deals cannot be predicted from a seed.
func Secure() *rand.Rand {
	var key [32]byte
	if _, err := crand.Read(key[:]); err != nil {
		// crypto/rand only fails if the kernel RNG is unavailable
		panic(err)
	}
	return rand.New(rand.NewChaCha8(key))
}

// Seed returns a fresh random seed suitable for New, so a live hand can be
// logged and replayed later.
func Seed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic(err)
	}
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

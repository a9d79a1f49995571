// Package randutil derives the deterministic random sources the server runs
// on. One root seed fans out into independent PCG streams, one per table,
// so a seeded run deals the same cards regardless of table scheduling.
package randutil

import (
	crand "crypto/rand"
	"encoding/binary"
	rand "math/rand/v2"
	"sync"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from seed.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// RandomSeed returns a seed from the operating system's entropy source.
func RandomSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("failed to read random seed: " + err.Error())
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// Streams hands out child generators derived from one root seed. The n-th
// call to Next returns the same sequence for the same seed. It is safe for
// concurrent use.
type Streams struct {
	mu   sync.Mutex
	seed uint64
	n    uint64
}

// NewStreams creates a stream source for seed.
func NewStreams(seed int64) *Streams {
	return &Streams{seed: uint64(seed)}
}

// Next returns the next child generator.
func (s *Streams) Next() *rand.Rand {
	s.mu.Lock()
	s.n++
	n := s.n
	s.mu.Unlock()

	base := mix(s.seed ^ mix(n*goldenRatio64))
	return rand.New(rand.NewPCG(base, mix(base+goldenRatio64)))
}

// splitmix64 finalizer.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

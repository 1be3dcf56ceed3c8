package main

import (
	"strings"
	"time"

	"github.com/dgryski/go-wyhash"
	"pgregory.net/rand"
)

const alphanumerics = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Rng is a per-session random source. It is not safe for concurrent use;
// every session owns its own.
type Rng struct {
	rng *rand.Rand
}

// NewRng seeds a generator from a string, so a given seed always
// reproduces the same stream of pastes and choices.
func NewRng(s string) Rng {
	return Rng{rand.New(wyhash.Hash([]byte(s), 2467825690))}
}

func (r Rng) Intn(n int) int {
	return r.rng.Intn(n)
}

func (r Rng) Choice(a []string) string {
	return a[r.Intn(len(a))]
}

// String returns n characters drawn uniformly from [A-Za-z0-9].
func (r Rng) String(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphanumerics[r.Intn(len(alphanumerics))])
	}
	return b.String()
}

// Between returns a duration uniformly distributed in [min, max].
func (r Rng) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(r.rng.Int63n(int64(max-min)+1))
}

// Weighted picks an index with probability weights[i] / sum(weights).
// Non-positive weights are never picked; it returns -1 if nothing can be.
func (r Rng) Weighted(weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return -1
	}
	n := r.Intn(total)
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if n < w {
			return i
		}
		n -= w
	}
	return -1
}

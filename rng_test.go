package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRngString(t *testing.T) {
	rng := NewRng("string")

	for i := 0; i < 100; i++ {
		s := rng.String(ContentLength)
		assert.Len(t, s, ContentLength)
		for _, c := range s {
			assert.True(t, strings.ContainsRune(alphanumerics, c), "unexpected %q", c)
		}
	}
}

func TestRngStringCoversAlphabet(t *testing.T) {
	rng := NewRng("alphabet")
	seen := make(map[rune]bool)
	for i := 0; i < 50; i++ {
		for _, c := range rng.String(ContentLength) {
			seen[c] = true
		}
	}
	assert.Len(t, seen, len(alphanumerics))
}

func TestRngIsSeeded(t *testing.T) {
	a, b := NewRng("same"), NewRng("same")
	assert.Equal(t, a.String(32), b.String(32))

	c := NewRng("other")
	assert.NotEqual(t, NewRng("same").String(32), c.String(32))
}

func TestRngBetween(t *testing.T) {
	rng := NewRng("between")

	t.Run("range", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			d := rng.Between(time.Second, 2*time.Second)
			assert.GreaterOrEqual(t, d, time.Second)
			assert.LessOrEqual(t, d, 2*time.Second)
		}
	})

	t.Run("empty range", func(t *testing.T) {
		assert.Equal(t, time.Second, rng.Between(time.Second, time.Second))
		assert.Equal(t, time.Second, rng.Between(time.Second, 0))
	})
}

func TestRngWeighted(t *testing.T) {
	rng := NewRng("weighted")

	tests := []struct {
		name    string
		weights []int
		want    int
	}{
		{name: "nothing", weights: nil, want: -1},
		{name: "all zero", weights: []int{0, 0}, want: -1},
		{name: "negative", weights: []int{-3, 0}, want: -1},
		{name: "only first", weights: []int{4, 0}, want: 0},
		{name: "only second", weights: []int{0, 1}, want: 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				assert.Equal(t, test.want, rng.Weighted(test.weights))
			}
		})
	}

	t.Run("distribution", func(t *testing.T) {
		counts := make([]int, 2)
		for i := 0; i < 60000; i++ {
			counts[rng.Weighted([]int{1, 5})]++
		}
		assert.InDelta(t, 1.0/6, float64(counts[0])/60000, 0.01)
		assert.InDelta(t, 5.0/6, float64(counts[1])/60000, 0.01)
	})
}

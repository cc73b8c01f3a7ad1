package weather

import (
	"math/rand"
	"testing"
)

func TestPoolSelectDistribution(t *testing.T) {
	var p Pool[string]
	p.Add(1, "rare")
	p.Add(9, "common")

	r := rand.New(rand.NewSource(1))
	counts := map[string]int{}
	const n = 10000
	for i := 0; i < n; i++ {
		counts[p.Select(r)]++
	}
	ratio := float64(counts["common"]) / float64(n)
	if ratio < 0.8 || ratio > 0.95 {
		t.Fatalf("common should be selected ~90%% of the time, got %.2f", ratio)
	}
}

func TestPoolIgnoresNonPositiveWeight(t *testing.T) {
	var p Pool[string]
	p.Add(0, "never")
	p.Add(-1, "never-either")
	p.Add(5, "always")
	if p.Size() != 1 {
		t.Fatalf("expected 1 entry, got %d", p.Size())
	}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		if got := p.Select(r); got != "always" {
			t.Fatalf("Select() = %q, want %q", got, "always")
		}
	}
}

func TestPoolEmptySelectReturnsZero(t *testing.T) {
	var p Pool[string]
	r := rand.New(rand.NewSource(1))
	if got := p.Select(r); got != "" {
		t.Fatalf("Select() on empty pool = %q, want zero value", got)
	}
}

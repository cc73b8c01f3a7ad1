package layout

import (
	"math"
	"testing"
)

func baseConfig(width float64) Config {
	return Config{RegionBlending: 4, Width: width}
}

// Scenario 6 — world-layout expansion (spec.md §8).
func TestScenarioWorldLayoutExpansion(t *testing.T) {
	width := 1000.0
	l := New(baseConfig(width))
	l.AddLayer(0, WorldRegion{BiomeIndex: 1})  // lower layer
	l.AddLayer(50, WorldRegion{BiomeIndex: 2}) // upper layer

	rects := l.AddBiomeRegion(0, width/2, 100, WorldRegion{BiomeIndex: 3})
	if len(rects) != 1 {
		t.Fatalf("expected a single covering rect, got %d: %v", len(rects), rects)
	}
	r := rects[0]
	wantMinX, wantMaxX := width/2-50, width/2+50
	if math.Abs(r.MinX-wantMinX) > 1e-9 || math.Abs(r.MaxX-wantMaxX) > 1e-9 {
		t.Fatalf("rect = %v, want MinX=%v MaxX=%v", r, wantMinX, wantMaxX)
	}
}

func TestGetWeightingSumsToOne(t *testing.T) {
	width := 200.0
	l := New(baseConfig(width))
	l.AddLayer(0, WorldRegion{BiomeIndex: 1})
	l.AddLayer(20, WorldRegion{BiomeIndex: 2})
	l.AddLayer(40, WorldRegion{BiomeIndex: 3})

	for _, p := range [][2]float64{{10, 10}, {10, 19.5}, {10, 20}, {100, 39}, {5, 41}} {
		weights := l.GetWeighting(p[0], p[1])
		total := 0.0
		for _, w := range weights {
			total += w.Weight
		}
		if math.Abs(total-1) > 1e-9 {
			t.Fatalf("GetWeighting(%v, %v) weights sum to %v, want 1", p[0], p[1], total)
		}
		for i := 1; i < len(weights); i++ {
			if weights[i].Weight > weights[i-1].Weight {
				t.Fatalf("weights not sorted descending: %v", weights)
			}
		}
	}
}

// Vertical blending is a linear ramp centered on the inter-layer seam: at
// the seam itself the two layers split 50/50, and outside the blend band
// the containing layer holds full weight.
func TestVerticalBlendFiftyFiftyAtSeam(t *testing.T) {
	l := New(baseConfig(200))
	l.AddLayer(0, WorldRegion{BiomeIndex: 1})
	l.AddLayer(20, WorldRegion{BiomeIndex: 2})

	atSeam := l.GetWeighting(10, 20)
	if len(atSeam) != 2 {
		t.Fatalf("expected two blended layers at the seam, got %d", len(atSeam))
	}
	for _, w := range atSeam {
		if math.Abs(w.Weight-0.5) > 1e-9 {
			t.Fatalf("weight at seam = %v, want 0.5", w.Weight)
		}
	}

	outside := l.GetWeighting(10, 10)
	if len(outside) != 1 || math.Abs(outside[0].Weight-1) > 1e-9 {
		t.Fatalf("expected full weight outside the blend band, got %v", outside)
	}
}

func TestAddBiomeRegionInsertsNewRegion(t *testing.T) {
	width := 100.0
	l := New(baseConfig(width))
	l.AddLayer(0, WorldRegion{BiomeIndex: 1})

	rects := l.AddBiomeRegion(0, 50, 10, WorldRegion{BiomeIndex: 99})
	if len(rects) == 0 {
		t.Fatal("expected at least one covering rect")
	}
	li, ci := l.FindLayerAndCell(50, 0)
	if l.layers[li].cells[ci].region.BiomeIndex != 99 {
		t.Fatalf("expected newly inserted region at x=50, got biome %d", l.layers[li].cells[ci].region.BiomeIndex)
	}
}

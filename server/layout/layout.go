// Package layout implements the horizontal/vertical biome layering system
// (spec.md §4.C): a stack of Y layers, each holding an X-wrapping sequence
// of cells, each cell carrying a WorldRegion describing what a tile in that
// area semantically is. GetWeighting blends neighboring regions near layer
// and cell boundaries so biome transitions aren't hard edges.
package layout

import (
	"math"
	"sort"

	"github.com/aquilax/go-perlin"
)

// RegionLiquids describes the liquid profile a WorldRegion assigns to its
// tiles.
type RegionLiquids struct {
	CaveLiquid            int
	CaveLiquidSeedDensity float64
	OceanLiquid           int
	OceanLiquidLevel      float64
	EncloseLiquids        bool
	FillMicrodungeons     bool
}

// WorldRegion is the semantic description assigned to a layout cell: biome,
// selector indices into a shared selector table, and liquid profile.
type WorldRegion struct {
	BiomeIndex            int
	EnvironmentBiomeIndex int
	TerrainSelector       int
	FgCaveSelector        int
	BgCaveSelector        int
	FgOreSelector         int
	BgOreSelector         int
	SubBlockSelector      int
	Liquids               RegionLiquids
}

// Weighted pairs a region with its blend weight for a single GetWeighting
// query.
type Weighted struct {
	Region WorldRegion
	Weight float64
}

type cell struct {
	region      WorldRegion
	left, right float64 // [left, right) in world X; right < left means the cell wraps the seam
}

type layer struct {
	yStart float64
	cells  []cell
}

// Config parameterizes the layout's blending and noise behavior.
type Config struct {
	RegionBlending float64
	Width          float64 // world width; 0 disables wrap
	Seed           int64

	BlockNoiseEnabled bool
	BlockNoiseScale   float64
	BlendNoiseEnabled bool
	BlendNoiseScale   float64
}

// Layout is the full vertical/horizontal biome map for a world.
type Layout struct {
	cfg        Config
	layers     []layer
	blockNoise *perlin.Perlin
	blendNoise *perlin.Perlin
}

// New constructs an empty Layout. Layers must be added bottom-up via
// AddLayer before any queries are made.
func New(cfg Config) *Layout {
	l := &Layout{cfg: cfg}
	if cfg.BlockNoiseEnabled {
		l.blockNoise = perlin.NewPerlin(2, 2, 3, cfg.Seed)
	}
	if cfg.BlendNoiseEnabled {
		l.blendNoise = perlin.NewPerlin(2, 2, 2, cfg.Seed+1)
	}
	return l
}

// AddLayer appends a layer starting at yStart holding one initial cell that
// spans the full width with the given region.
func (l *Layout) AddLayer(yStart float64, initial WorldRegion) {
	l.layers = append(l.layers, layer{
		yStart: yStart,
		cells:  []cell{{region: initial, left: 0, right: l.cfg.Width}},
	})
	sort.Slice(l.layers, func(i, j int) bool { return l.layers[i].yStart < l.layers[j].yStart })
}

func (l *Layout) wrap(x float64) float64 {
	if l.cfg.Width == 0 {
		return x
	}
	r := math.Mod(x, l.cfg.Width)
	if r < 0 {
		r += l.cfg.Width
	}
	return r
}

// findLayerIndex returns the index of the layer containing y (the last
// layer whose yStart <= y).
func (l *Layout) findLayerIndex(y float64) int {
	idx := 0
	for i, ly := range l.layers {
		if ly.yStart <= y {
			idx = i
		} else {
			break
		}
	}
	return idx
}

// findCellIndex returns the index of the cell in layer li containing x.
func (l *Layout) findCellIndex(li int, x float64) int {
	ly := l.layers[li]
	x = l.wrap(x)
	for i, c := range ly.cells {
		if c.right > c.left {
			if x >= c.left && x < c.right {
				return i
			}
		} else { // wrapped cell spanning the seam
			if x >= c.left || x < c.right {
				return i
			}
		}
	}
	return len(ly.cells) - 1
}

// FindLayerAndCell locates the (layer, cell) indices containing (x, y).
func (l *Layout) FindLayerAndCell(x, y float64) (layerIndex, cellIndex int) {
	li := l.findLayerIndex(y)
	return li, l.findCellIndex(li, x)
}

// GetWeighting returns up to nine weighted regions (the up-to-three
// vertically blended layers at y, each up-to-three horizontally blended
// cells at x), normalised to sum to 1 and sorted descending by weight.
func (l *Layout) GetWeighting(x, y float64) []Weighted {
	if len(l.layers) == 0 {
		return nil
	}
	dx, dy := x, y
	if l.blockNoise != nil {
		dx += l.blockNoise.Noise2D(x*l.cfg.BlockNoiseScale, y*l.cfg.BlockNoiseScale) * l.cfg.RegionBlending
		dy += l.blockNoise.Noise2D(x*l.cfg.BlockNoiseScale+1000, y*l.cfg.BlockNoiseScale+1000) * l.cfg.RegionBlending
	}

	li := l.findLayerIndex(dy)
	vLayers, vWeights := l.verticalBlend(li, dy)

	type acc struct {
		region WorldRegion
		weight float64
	}
	var out []acc
	for k, layerIdx := range vLayers {
		ly := l.layers[layerIdx]
		ci := l.findCellIndex(layerIdx, dx)
		hCells, hWeights := l.horizontalBlend(ly, ci, dx)
		for j, cellIdx := range hCells {
			w := vWeights[k] * hWeights[j]
			if l.blendNoise != nil {
				w *= 1 + 0.1*l.blendNoise.Noise2D(x*l.cfg.BlendNoiseScale, y*l.cfg.BlendNoiseScale)
				w = math.Max(w, 0)
			}
			out = append(out, acc{region: ly.cells[cellIdx].region, weight: w})
		}
	}

	total := 0.0
	for _, a := range out {
		total += a.weight
	}
	result := make([]Weighted, len(out))
	for i, a := range out {
		w := 0.0
		if total > 0 {
			w = a.weight / total
		}
		result[i] = Weighted{Region: a.region, Weight: w}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Weight > result[j].Weight })
	return result
}

// verticalBlend picks the layer at li plus its neighbor across the nearest
// boundary if y falls within RegionBlending of it, returning layer indices
// and their (un-normalised) ramp weights.
func (l *Layout) verticalBlend(li int, y float64) ([]int, []float64) {
	band := l.cfg.RegionBlending
	if band <= 0 || len(l.layers) == 1 {
		return []int{li}, []float64{1}
	}

	// The neighbor's weight ramps from 0 at the band edge to 0.5 at the
	// boundary itself, so both sides of a seam agree on a 50/50 split there.
	if li+1 < len(l.layers) {
		boundary := l.layers[li+1].yStart
		if d := boundary - y; d >= 0 && d < band {
			t := 0.5 * (band - d) / band
			return []int{li, li + 1}, []float64{1 - t, t}
		}
	}
	if li > 0 {
		boundary := l.layers[li].yStart
		if d := y - boundary; d >= 0 && d < band {
			t := 0.5 * (band - d) / band
			return []int{li - 1, li}, []float64{t, 1 - t}
		}
	}
	return []int{li}, []float64{1}
}

// horizontalBlend picks the cell at ci plus its left/right neighbor if x
// falls within RegionBlending/2 of the cell midpoint's far edge.
func (l *Layout) horizontalBlend(ly layer, ci int, x float64) ([]int, []float64) {
	half := l.cfg.RegionBlending / 2
	if half <= 0 || len(ly.cells) == 1 {
		return []int{ci}, []float64{1}
	}
	n := len(ly.cells)
	right := ly.cells[ci].right
	left := ly.cells[ci].left

	if d := right - x; d >= 0 && d < half {
		t := 0.5 * (half - d) / half
		return []int{ci, (ci + 1) % n}, []float64{1 - t, t}
	}
	if d := x - left; d >= 0 && d < half {
		t := 0.5 * (half - d) / half
		return []int{(ci - 1 + n) % n, ci}, []float64{t, 1 - t}
	}
	return []int{ci}, []float64{1}
}

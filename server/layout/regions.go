package layout

import "math"

// Rect is a simple axis-aligned rectangle in world space, used to report
// which area a region insertion/expansion newly covers.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// AddBiomeRegion inserts a new zero-width region at x on the given layer,
// then symmetrically expands it to width, splitting (and if necessary
// eliminating) neighboring cells as the boundary crosses them. It returns
// the rectangles newly covered by the inserted region.
//
// Inserting at x == 0 is coerced to x == 1, matching the original engine's
// quiet boundary shift (spec.md §9 Open Question 3, DESIGN.md decision 3) —
// this is intentional fidelity to the source behavior, not an off-by-one
// left unfixed.
func (l *Layout) AddBiomeRegion(layerIndex int, x, width float64, region WorldRegion) []Rect {
	if x == 0 {
		x = 1
	}
	x = l.wrap(x)
	ly := &l.layers[layerIndex]

	ci := l.findCellIndex(layerIndex, x)
	target := ly.cells[ci]

	left := cell{region: target.region, left: target.left, right: x}
	right := cell{region: target.region, left: x, right: target.right}
	inserted := cell{region: region, left: x, right: x}

	newCells := make([]cell, 0, len(ly.cells)+2)
	newCells = append(newCells, ly.cells[:ci]...)
	newCells = append(newCells, left, inserted, right)
	newCells = append(newCells, ly.cells[ci+1:]...)
	ly.cells = newCells

	insertedIdx := ci + 1
	return l.expandCell(layerIndex, insertedIdx, width)
}

// ExpandBiomeRegion grows the cell at x on the given layer to newWidth
// (steps 2-4 of AddBiomeRegion, applied to the existing cell rather than a
// freshly inserted one), returning the rectangles newly covered.
func (l *Layout) ExpandBiomeRegion(layerIndex int, x, newWidth float64) []Rect {
	x = l.wrap(x)
	ci := l.findCellIndex(layerIndex, x)
	return l.expandCell(layerIndex, ci, newWidth)
}

// expandCell grows the cell at index ci on layerIndex to width, expanding
// ceil(width/2) to the left and floor(width/2) to the right of its current
// midpoint, absorbing or trimming neighboring cells as the new boundaries
// cross them, re-wrapping any boundary that falls outside [0, W).
func (l *Layout) expandCell(layerIndex, ci int, width float64) []Rect {
	ly := &l.layers[layerIndex]
	target := ly.cells[ci]
	mid := cellMid(target, l.cfg.Width)

	growLeft := math.Ceil(width / 2)
	growRight := math.Floor(width / 2)
	newLeft := l.wrapBoundary(mid - growLeft)
	newRight := l.wrapBoundary(mid + growRight)

	top := l.layers[layerIndex].yStart
	layerTop := l.cfg.Width // placeholder overwritten below if there's a next layer
	if layerIndex+1 < len(l.layers) {
		layerTop = l.layers[layerIndex+1].yStart
	}

	oldLeft, oldRight := target.left, target.right

	// Absorb/trim neighbors whose span the new boundaries now cross.
	n := len(ly.cells)
	kept := make([]cell, 0, n)
	for i, c := range ly.cells {
		if i == ci {
			continue
		}
		if cellFullyInside(c, newLeft, newRight) {
			continue // eliminated: fully absorbed by the expanded cell
		}
		if c.right > newLeft && c.left < newLeft && i < ci {
			c.right = newLeft
		}
		if c.left < newRight && c.right > newRight && i > ci {
			c.left = newRight
		}
		kept = append(kept, c)
	}
	expanded := cell{region: target.region, left: newLeft, right: newRight}
	kept = append(kept, expanded)
	resortCells(kept)
	ly.cells = kept

	var rects []Rect
	if newLeft != oldLeft {
		lo, hi := math.Min(newLeft, oldLeft), math.Max(newLeft, oldLeft)
		rects = append(rects, Rect{MinX: lo, MinY: top, MaxX: hi, MaxY: layerTop})
	}
	if newRight != oldRight {
		lo, hi := math.Min(newRight, oldRight), math.Max(newRight, oldRight)
		rects = append(rects, Rect{MinX: lo, MinY: top, MaxX: hi, MaxY: layerTop})
	}
	if len(rects) == 2 {
		return []Rect{{MinX: rects[0].MinX, MinY: top, MaxX: rects[1].MaxX, MaxY: layerTop}}
	}
	return rects
}

func cellMid(c cell, width float64) float64 {
	if c.right >= c.left {
		return (c.left + c.right) / 2
	}
	return math.Mod((c.left+c.right+width)/2, width)
}

func cellFullyInside(c cell, left, right float64) bool {
	return c.left >= left && c.right <= right && c.right >= c.left
}

func (l *Layout) wrapBoundary(b float64) float64 {
	if l.cfg.Width == 0 {
		return b
	}
	return l.wrap(b)
}

func resortCells(cells []cell) {
	// Cells must stay ordered by left boundary for findCellIndex's linear
	// scan to behave sensibly near the seam.
	for i := 1; i < len(cells); i++ {
		for j := i; j > 0 && cells[j].left < cells[j-1].left; j-- {
			cells[j], cells[j-1] = cells[j-1], cells[j]
		}
	}
}

// PlayerStartRegions accumulates rectangles on every cell on layerIndex
// whose region's BiomeIndex equals primaryBiome, padded by yRange above and
// below the layer's base height — candidate search areas for placing a new
// player's spawn point.
func (l *Layout) PlayerStartRegions(layerIndex, primaryBiome int, yRange float64) []Rect {
	ly := l.layers[layerIndex]
	var out []Rect
	for _, c := range ly.cells {
		if c.region.BiomeIndex != primaryBiome {
			continue
		}
		left, right := c.left, c.right
		if right < left {
			right += l.cfg.Width
		}
		out = append(out, Rect{
			MinX: left, MaxX: right,
			MinY: ly.yStart - yRange, MaxY: ly.yStart + yRange,
		})
	}
	return out
}

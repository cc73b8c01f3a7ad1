package light

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Params configures the spread and point-light falloff rates. BorderCells is
// derived as ceil(max(0, SpreadMaxAir, PointMaxAir)) — callers must seed
// valid obstacle/light state that many cells beyond the query region.
type Params struct {
	SpreadPasses        int
	SpreadMaxAir         float64
	SpreadMaxObstacle    float64
	PointMaxAir          float64
	PointMaxObstacle     float64
	PointObstacleBoost   float64
	PointAdditive        bool
}

// BorderCells is the padding callers must provide around any query region.
func (p Params) BorderCells() int {
	return int(math.Ceil(max(0, max(p.SpreadMaxAir, p.PointMaxAir))))
}

type cell[V any] struct {
	light    V
	obstacle bool
}

type spreadLight[V any] struct {
	position mgl64.Vec2
	value    V
}

type pointLight[V any] struct {
	position    mgl64.Vec2
	value       V
	beam        float64
	beamAngle   float64
	beamAmbience float64
	asSpread    bool
}

// Array is the cellular light calculator for a Value type V driven by
// Traits T. Zero value is unusable; construct with NewArray.
type Array[V any, T Traits[V]] struct {
	traits T
	params Params

	width, height int
	cells         []cell[V]

	spreadLights []spreadLight[V]
	pointLights  []pointLight[V]
}

// NewArray constructs an Array with the given traits implementation (pass
// the zero value of ScalarTraits{} or ColoredTraits{}) and parameters.
func NewArray[V any, T Traits[V]](traits T, params Params) *Array[V, T] {
	return &Array[V, T]{traits: traits, params: params}
}

// SetParameters updates the spread/point configuration for subsequent
// calculations; it does not affect cell state already seeded with Begin.
func (a *Array[V, T]) SetParameters(p Params) { a.params = p }

// BorderCells returns the padding callers must supply around the query
// region, per the configured parameters.
func (a *Array[V, T]) BorderCells() int { return a.params.BorderCells() }

// Begin resets the array to width x height. A call with identical
// dimensions reuses the existing storage; a differing size reallocates.
// Both clear obstacle and light state, and drop any previously queued
// lights.
func (a *Array[V, T]) Begin(width, height int) {
	if a.width != width || a.height != height || a.cells == nil {
		a.cells = make([]cell[V], width*height)
	} else {
		for i := range a.cells {
			a.cells[i] = cell[V]{}
		}
	}
	a.width, a.height = width, height
	a.spreadLights = a.spreadLights[:0]
	a.pointLights = a.pointLights[:0]
}

func (a *Array[V, T]) index(x, y int) int { return x*a.height + y }

// inBounds reports whether (x, y) addresses a live cell.
func (a *Array[V, T]) inBounds(x, y int) bool {
	return x >= 0 && x < a.width && y >= 0 && y < a.height
}

// SetLight seeds a pre-lit cell (e.g. sky light carried in from a
// neighboring sector). Out-of-range access is a programmer error, per spec.
func (a *Array[V, T]) SetLight(x, y int, v V) {
	a.mustBeInBounds(x, y)
	a.cells[a.index(x, y)].light = v
}

// GetLight returns the cell's light value after Calculate has run (or the
// seeded value beforehand).
func (a *Array[V, T]) GetLight(x, y int) V {
	a.mustBeInBounds(x, y)
	return a.cells[a.index(x, y)].light
}

// SetObstacle marks whether a cell blocks/attenuates light.
func (a *Array[V, T]) SetObstacle(x, y int, obstacle bool) {
	a.mustBeInBounds(x, y)
	a.cells[a.index(x, y)].obstacle = obstacle
}

// GetObstacle reports whether a cell is marked as an obstacle.
func (a *Array[V, T]) GetObstacle(x, y int) bool {
	a.mustBeInBounds(x, y)
	return a.cells[a.index(x, y)].obstacle
}

func (a *Array[V, T]) mustBeInBounds(x, y int) {
	if !a.inBounds(x, y) {
		panic(fmt.Sprintf("light: cell (%d, %d) out of bounds for %dx%d array", x, y, a.width, a.height))
	}
}

// AddSpreadLight queues a grid-resident light value at a sub-tile position
// to be propagated by the cellular spread passes.
func (a *Array[V, T]) AddSpreadLight(position mgl64.Vec2, value V) {
	a.spreadLights = append(a.spreadLights, spreadLight[V]{position: position, value: value})
}

// AddPointLight queues a positional emitter evaluated per target cell with
// line-of-sight attenuation. beam/beamAngle/beamAmbience implement a
// directional cone; pass beam == 0 for an omnidirectional point light.
func (a *Array[V, T]) AddPointLight(position mgl64.Vec2, value V, beam, beamAngle, beamAmbience float64, asSpread bool) {
	a.pointLights = append(a.pointLights, pointLight[V]{
		position: position, value: value, beam: beam, beamAngle: beamAngle,
		beamAmbience: beamAmbience, asSpread: asSpread,
	})
}

// Calculate runs the full pipeline (seed spread lights, spread passes,
// point lights) over [xMin, xMax) x [yMin, yMax), which must lie within the
// array bounds once padded by BorderCells().
func (a *Array[V, T]) Calculate(xMin, yMin, xMax, yMax int) {
	a.seedSpreadLights()
	a.spread(xMin, yMin, xMax, yMax)
	a.pointLighting(xMin, yMin, xMax, yMax)
}

func (a *Array[V, T]) seedSpreadLights() {
	for _, l := range a.spreadLights {
		minX := int(math.Floor(l.position[0] - 0.5))
		minY := int(math.Floor(l.position[1] - 0.5))
		maxX := minX + 1
		maxY := minY + 1

		xdist := l.position[0] - float64(minX) - 0.5
		ydist := l.position[1] - float64(minY) - 0.5

		px, py := int(math.Floor(l.position[0])), int(math.Floor(l.position[1]))
		var oneBlockAtt float64
		if a.inBounds(px, py) && a.GetObstacle(px, py) {
			oneBlockAtt = 1.0 / a.params.SpreadMaxObstacle
		} else {
			oneBlockAtt = 1.0 / a.params.SpreadMaxAir
		}

		seed := func(x, y int, att float64) {
			if !a.inBounds(x, y) {
				return
			}
			idx := a.index(x, y)
			a.cells[idx].light = a.traits.Max(a.cells[idx].light, a.traits.Subtract(l.value, oneBlockAtt*att))
		}
		seed(minX, minY, 2.0-(1.0-xdist)-(1.0-ydist))
		seed(minX, maxY, 2.0-(1.0-xdist)-ydist)
		seed(maxX, minY, 2.0-xdist-(1.0-ydist))
		seed(maxX, maxY, 2.0-xdist-ydist)
	}
}

const sqrt2 = math.Sqrt2

func (a *Array[V, T]) spread(xMin, yMin, xMax, yMax int) {
	dropoffAir := 1.0 / a.params.SpreadMaxAir
	dropoffObstacle := 1.0 / a.params.SpreadMaxObstacle
	dropoffAirDiag := dropoffAir * sqrt2
	dropoffObstacleDiag := dropoffObstacle * sqrt2

	pad := int(math.Ceil(a.params.SpreadMaxAir))
	xMin = max(0, xMin-pad)
	yMin = max(0, yMin-pad)
	xMax = min(a.width, xMax+pad)
	yMax = min(a.height, yMax+pad)

	if xMax-xMin < 3 || yMax-yMin < 3 {
		return
	}

	for p := 0; p < a.params.SpreadPasses; p++ {
		// Forward sweep: right, up, diag-up-right, diag-down-right.
		for x := xMin + 1; x < xMax-1; x++ {
			xOff, xRightOff := x*a.height, (x+1)*a.height
			for y := yMin + 1; y < yMax-1; y++ {
				src := a.cells[xOff+y]
				straight, diag := dropoffAir, dropoffAirDiag
				if src.obstacle {
					straight, diag = dropoffObstacle, dropoffObstacleDiag
				}
				a.cells[xRightOff+y].light = a.traits.Spread(src.light, a.cells[xRightOff+y].light, straight)
				a.cells[xOff+y+1].light = a.traits.Spread(src.light, a.cells[xOff+y+1].light, straight)
				a.cells[xRightOff+y+1].light = a.traits.Spread(src.light, a.cells[xRightOff+y+1].light, diag)
				a.cells[xRightOff+y-1].light = a.traits.Spread(src.light, a.cells[xRightOff+y-1].light, diag)
			}
		}
		// Reverse sweep: left, down, diag-up-left, diag-down-left.
		for x := xMax - 2; x > xMin; x-- {
			xOff, xLeftOff := x*a.height, (x-1)*a.height
			for y := yMax - 2; y > yMin; y-- {
				src := a.cells[xOff+y]
				straight, diag := dropoffAir, dropoffAirDiag
				if src.obstacle {
					straight, diag = dropoffObstacle, dropoffObstacleDiag
				}
				a.cells[xLeftOff+y].light = a.traits.Spread(src.light, a.cells[xLeftOff+y].light, straight)
				a.cells[xOff+y-1].light = a.traits.Spread(src.light, a.cells[xOff+y-1].light, straight)
				a.cells[xLeftOff+y+1].light = a.traits.Spread(src.light, a.cells[xLeftOff+y+1].light, diag)
				a.cells[xLeftOff+y-1].light = a.traits.Spread(src.light, a.cells[xLeftOff+y-1].light, diag)
			}
		}
	}
}

func (a *Array[V, T]) pointLighting(xMin, yMin, xMax, yMax int) {
	for _, l := range a.pointLights {
		reach := int(math.Ceil(a.params.PointMaxAir))
		lx, ly := int(math.Floor(l.position[0])), int(math.Floor(l.position[1]))
		boxMinX, boxMinY := max(xMin, lx-reach), max(yMin, ly-reach)
		boxMaxX, boxMaxY := min(xMax, lx+reach+1), min(yMax, ly+reach+1)

		for x := boxMinX; x < boxMaxX; x++ {
			for y := boxMinY; y < boxMaxY; y++ {
				// Distance is measured to the tile coordinate itself, so a
				// light sitting exactly on a tile contributes its full value
				// there.
				target := mgl64.Vec2{float64(x), float64(y)}
				dist := target.Sub(l.position).Len()
				falloff := max(0, 1-dist/a.params.PointMaxAir)
				if falloff <= 0 {
					continue
				}
				contribution := a.traits.Multiply(l.value, falloff)

				att := a.lineAttenuation(l.position, target, 1.0/a.params.PointMaxObstacle*a.params.PointObstacleBoost, 1.0)
				contribution = a.traits.Multiply(contribution, max(0, 1-att))

				if l.beam > 0 {
					dir := target.Sub(l.position)
					if dir.Len() > 0 {
						angle := math.Atan2(dir[1], dir[0])
						diff := angleDiff(angle, l.beamAngle)
						weight := max(l.beamAmbience, math.Cos(diff))
						contribution = a.traits.Multiply(contribution, weight)
					}
				}

				idx := a.index(x, y)
				if a.params.PointAdditive || l.asSpread {
					a.cells[idx].light = a.traits.Add(a.cells[idx].light, contribution)
				} else {
					a.cells[idx].light = a.traits.Max(a.cells[idx].light, contribution)
				}
			}
		}
	}
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b+math.Pi, 2*math.Pi) - math.Pi
	if d < -math.Pi {
		d += 2 * math.Pi
	}
	return math.Abs(d)
}

// lineAttenuation runs Xiaolin Wu's anti-aliased line algorithm from start
// to end, summing perObstacleAttenuation weighted by each crossed pixel's
// coverage for every cell flagged as an obstacle, stopping early once
// maxAttenuation is reached.
func (a *Array[V, T]) lineAttenuation(start, end mgl64.Vec2, perObstacleAttenuation, maxAttenuation float64) float64 {
	// Integer coordinates address a tile's lower-left corner; shift both
	// endpoints by half a tile so the line runs through tile centers.
	x1, y1 := start[0]-0.5, start[1]-0.5
	x2, y2 := end[0]-0.5, end[1]-0.5

	dx, dy := x2-x1, y2-y1
	if dx == 0 && dy == 0 {
		return 0
	}
	obstacleAt := func(x, y int) bool {
		if !a.inBounds(x, y) {
			return false
		}
		return a.GetObstacle(x, y)
	}

	var att float64
	add := func(v float64) bool {
		att += v
		return att >= maxAttenuation
	}

	if math.Abs(dx) < math.Abs(dy) {
		if y2 < y1 {
			x1, x2 = x2, x1
			y1, y2 = y2, y1
		}
		gradient := dx / dy

		yend := math.Round(y1)
		xend := x1 + gradient*(yend-y1)
		ygap := rfpart(y1 + 0.5)
		ypxl1 := int(yend)
		xpxl1 := ipart(xend)

		if obstacleAt(xpxl1, ypxl1) {
			if add(rfpart(xend) * ygap * perObstacleAttenuation) {
				return maxAttenuation
			}
		}
		if obstacleAt(xpxl1+1, ypxl1) {
			if add(fpart(xend) * ygap * perObstacleAttenuation) {
				return maxAttenuation
			}
		}
		interx := xend + gradient

		yend2 := math.Round(y2)
		xend2 := x2 + gradient*(yend2-y2)
		ygap2 := fpart(y2 + 0.5)
		ypxl2 := int(yend2)
		xpxl2 := ipart(xend2)

		if obstacleAt(xpxl2, ypxl2) {
			if add(rfpart(xend2) * ygap2 * perObstacleAttenuation) {
				return maxAttenuation
			}
		}
		if obstacleAt(xpxl2+1, ypxl2) {
			if add(fpart(xend2) * ygap2 * perObstacleAttenuation) {
				return maxAttenuation
			}
		}

		for y := ypxl1 + 1; y < ypxl2; y++ {
			ix := ipart(interx)
			fx := interx - float64(ix)
			if obstacleAt(ix, y) {
				if add((1 - fx) * perObstacleAttenuation) {
					return maxAttenuation
				}
			}
			if obstacleAt(ix+1, y) {
				if add(fx * perObstacleAttenuation) {
					return maxAttenuation
				}
			}
			interx += gradient
		}
	} else {
		if x2 < x1 {
			x1, x2 = x2, x1
			y1, y2 = y2, y1
		}
		gradient := dy / dx

		xend := math.Round(x1)
		yend := y1 + gradient*(xend-x1)
		xgap := rfpart(x1 + 0.5)
		xpxl1 := int(xend)
		ypxl1 := ipart(yend)

		if obstacleAt(xpxl1, ypxl1) {
			if add(rfpart(yend) * xgap * perObstacleAttenuation) {
				return maxAttenuation
			}
		}
		if obstacleAt(xpxl1, ypxl1+1) {
			if add(fpart(yend) * xgap * perObstacleAttenuation) {
				return maxAttenuation
			}
		}
		intery := yend + gradient

		xend2 := math.Round(x2)
		yend2 := y2 + gradient*(xend2-x2)
		xgap2 := fpart(x2 + 0.5)
		xpxl2 := int(xend2)
		ypxl2 := ipart(yend2)

		if obstacleAt(xpxl2, ypxl2) {
			if add(rfpart(yend2) * xgap2 * perObstacleAttenuation) {
				return maxAttenuation
			}
		}
		if obstacleAt(xpxl2, ypxl2+1) {
			if add(fpart(yend2) * xgap2 * perObstacleAttenuation) {
				return maxAttenuation
			}
		}

		for x := xpxl1 + 1; x < xpxl2; x++ {
			iy := ipart(intery)
			fy := intery - float64(iy)
			if obstacleAt(x, iy) {
				if add((1 - fy) * perObstacleAttenuation) {
					return maxAttenuation
				}
			}
			if obstacleAt(x, iy+1) {
				if add(fy * perObstacleAttenuation) {
					return maxAttenuation
				}
			}
			intery += gradient
		}
	}

	return min(att, maxAttenuation)
}

func ipart(v float64) int    { return int(math.Floor(v)) }
func fpart(v float64) float64  { return v - math.Floor(v) }
func rfpart(v float64) float64 { return 1 - fpart(v) }

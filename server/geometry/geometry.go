// Package geometry implements the toroidal-in-X world metric shared by every
// other package that reasons about positions: tile diffing, wrap
// normalisation, and seam-aware splitting of rects, lines and polygons.
package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rect is an axis-aligned rectangle in world space, min inclusive, max
// exclusive, matching the tile-grid convention used throughout the spec.
type Rect struct {
	Min, Max mgl64.Vec2
}

// Line is a directed segment from A to B.
type Line struct {
	A, B mgl64.Vec2
}

// Poly is an ordered, convex polygon. The caller guarantees convexity; this
// package does not validate it.
type Poly struct {
	Points []mgl64.Vec2
}

// World carries the dimensions split/diff/xwrap operate against. W == 0
// disables wrapping.
type World struct {
	W, H float64
}

func (w World) wraps() bool { return w.W != 0 }

// XWrap reduces x into [0, W) when wrapping is enabled, and returns x
// unchanged otherwise. Repeated application is idempotent (invariant 1).
func (w World) XWrap(x float64) float64 {
	if !w.wraps() {
		return x
	}
	r := math.Mod(x, w.W)
	if r < 0 {
		r += w.W
	}
	return r
}

// YClamp clamps y into [0, H).
func (w World) YClamp(y float64) float64 {
	if y < 0 {
		return 0
	}
	if y >= w.H {
		return math.Nextafter(w.H, 0)
	}
	return y
}

// Wrap applies XWrap/YClamp to both components of p.
func (w World) Wrap(p mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{w.XWrap(p[0]), w.YClamp(p[1])}
}

// Diff returns the shortest signed delta from a to b: X takes the seam into
// account (magnitude never exceeds W/2, invariant 2), Y is a plain
// subtraction.
func (w World) Diff(a, b mgl64.Vec2) mgl64.Vec2 {
	dx := b[0] - a[0]
	if w.wraps() {
		dx = math.Mod(dx, w.W)
		if dx > w.W/2 {
			dx -= w.W
		} else if dx < -w.W/2 {
			dx += w.W
		}
	}
	return mgl64.Vec2{dx, b[1] - a[1]}
}

// SplitRect returns at most two rectangles covering r modulo the wrap seam.
// r must not be wider than W; the caller is responsible for pre-splitting
// wider rectangles (the spec documents this as a caller contract, not an
// error condition the package signals).
func (w World) SplitRect(r Rect) []Rect {
	if !w.wraps() {
		return []Rect{r}
	}
	min0 := w.XWrap(r.Min[0])
	width := r.Max[0] - r.Min[0]
	max0 := min0 + width
	if max0 <= w.W {
		return []Rect{{Min: mgl64.Vec2{min0, r.Min[1]}, Max: mgl64.Vec2{max0, r.Max[1]}}}
	}
	return []Rect{
		{Min: mgl64.Vec2{min0, r.Min[1]}, Max: mgl64.Vec2{w.W, r.Max[1]}},
		{Min: mgl64.Vec2{0, r.Min[1]}, Max: mgl64.Vec2{max0 - w.W, r.Max[1]}},
	}
}

// SplitLine splits a line crossing the seam into two collinear segments.
// When preserveDirection is true, the returned slice is ordered so that
// concatenating the segments reproduces the original direction of travel
// (the segment touching l.A comes first).
func (w World) SplitLine(l Line, preserveDirection bool) []Line {
	if !w.wraps() {
		return []Line{l}
	}
	a := mgl64.Vec2{w.XWrap(l.A[0]), l.A[1]}
	dx := w.Diff(a, mgl64.Vec2{w.XWrap(l.B[0]), l.B[1]})[0]
	b := mgl64.Vec2{a[0] + dx, l.B[1]}
	if b[0] >= 0 && b[0] <= w.W {
		return []Line{{A: a, B: b}}
	}

	// Crosses the seam: find the parametric t where x hits the boundary
	// (0 or W depending on direction) and split there.
	var boundary float64
	if dx > 0 {
		boundary = w.W
	} else {
		boundary = 0
	}
	t := (boundary - a[0]) / (b[0] - a[0])
	seamY := a[1] + t*(b[1]-a[1])
	seam := mgl64.Vec2{boundary, seamY}
	wrappedSeam := mgl64.Vec2{w.W - boundary, seamY} // the same seam point on the other edge

	first := Line{A: a, B: seam}
	second := Line{A: wrappedSeam, B: mgl64.Vec2{w.XWrap(b[0]), b[1]}}
	if preserveDirection {
		return []Line{first, second}
	}
	return []Line{second, first}
}

// SplitPoly splits a convex polygon at most once at the seam, inserting the
// two seam-crossing intersection points as new vertices on each half.
func (w World) SplitPoly(p Poly) []Poly {
	if !w.wraps() || len(p.Points) < 3 {
		return []Poly{p}
	}
	minX, maxX := p.Points[0][0], p.Points[0][0]
	for _, pt := range p.Points {
		wrapped := w.XWrap(pt[0])
		if wrapped < minX {
			minX = wrapped
		}
		if wrapped > maxX {
			maxX = wrapped
		}
	}
	if maxX-minX <= w.W {
		return []Poly{{Points: wrapPoints(w, p.Points)}}
	}

	var left, right []mgl64.Vec2
	pts := wrapPoints(w, p.Points)
	n := len(pts)
	for i := 0; i < n; i++ {
		cur := pts[i]
		next := pts[(i+1)%n]
		left = append(left, cur)
		if (cur[0] < w.W/2) != (next[0] < w.W/2) {
			t := crossingT(cur[0], next[0], w.W)
			y := cur[1] + t*(next[1]-cur[1])
			left = append(left, mgl64.Vec2{w.W, y})
			right = append(right, mgl64.Vec2{0, y})
		}
		right = append(right, next)
	}
	return []Poly{{Points: left}, {Points: right}}
}

func crossingT(a, b, w float64) float64 {
	// Picks the fraction along a->b at which the seam (x == 0 == w) is
	// crossed, choosing whichever direction is shorter.
	if math.Abs(b-a) <= w/2 {
		return 0.5
	}
	if a < b {
		return (w - a) / ((b - w) - a + w)
	}
	return (0 - a) / ((b + w) - a - w)
}

func wrapPoints(w World, pts []mgl64.Vec2) []mgl64.Vec2 {
	out := make([]mgl64.Vec2, len(pts))
	for i, p := range pts {
		out[i] = mgl64.Vec2{w.XWrap(p[0]), p[1]}
	}
	return out
}

// RectContains reports whether p lies within r, accounting for wrap.
func (w World) RectContains(r Rect, p mgl64.Vec2) bool {
	for _, half := range w.SplitRect(r) {
		if p[0] >= half.Min[0] && p[0] < half.Max[0] && p[1] >= half.Min[1] && p[1] < half.Max[1] {
			return true
		}
	}
	return false
}

// RectIntersectsRect reports whether a and b overlap, accounting for wrap.
func (w World) RectIntersectsRect(a, b Rect) bool {
	for _, ha := range w.SplitRect(a) {
		for _, hb := range w.SplitRect(b) {
			if rectsOverlap(ha, hb) {
				return true
			}
		}
	}
	return false
}

func rectsOverlap(a, b Rect) bool {
	return a.Min[0] < b.Max[0] && a.Max[0] > b.Min[0] && a.Min[1] < b.Max[1] && a.Max[1] > b.Min[1]
}

// LineIntersectsRect reports whether l crosses r, accounting for wrap.
func (w World) LineIntersectsRect(l Line, r Rect) bool {
	for _, hl := range w.SplitLine(l, false) {
		for _, hr := range w.SplitRect(r) {
			if lineIntersectsRect(hl, hr) {
				return true
			}
		}
	}
	return false
}

func lineIntersectsRect(l Line, r Rect) bool {
	if pointInRect(l.A, r) || pointInRect(l.B, r) {
		return true
	}
	corners := []mgl64.Vec2{
		{r.Min[0], r.Min[1]}, {r.Max[0], r.Min[1]},
		{r.Max[0], r.Max[1]}, {r.Min[0], r.Max[1]},
	}
	for i := 0; i < 4; i++ {
		if segmentsIntersect(l.A, l.B, corners[i], corners[(i+1)%4]) {
			return true
		}
	}
	return false
}

func pointInRect(p mgl64.Vec2, r Rect) bool {
	return p[0] >= r.Min[0] && p[0] <= r.Max[0] && p[1] >= r.Min[1] && p[1] <= r.Max[1]
}

func segmentsIntersect(p1, p2, p3, p4 mgl64.Vec2) bool {
	d1 := cross(sub(p4, p3), sub(p1, p3))
	d2 := cross(sub(p4, p3), sub(p2, p3))
	d3 := cross(sub(p2, p1), sub(p3, p1))
	d4 := cross(sub(p2, p1), sub(p4, p1))
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func sub(a, b mgl64.Vec2) mgl64.Vec2 { return mgl64.Vec2{a[0] - b[0], a[1] - b[1]} }
func cross(a, b mgl64.Vec2) float64  { return a[0]*b[1] - a[1]*b[0] }

// PolyOverlapArea returns the approximate overlap area between two convex
// polygons using a Sutherland-Hodgman clip, summed across wrap-split halves.
func (w World) PolyOverlapArea(a, b Poly) float64 {
	total := 0.0
	for _, ha := range w.SplitPoly(a) {
		for _, hb := range w.SplitPoly(b) {
			clipped := clipPoly(ha.Points, hb.Points)
			total += polyArea(clipped)
		}
	}
	return total
}

// PolyIntersectsPoly reports whether a and b overlap at all.
func (w World) PolyIntersectsPoly(a, b Poly) bool {
	return w.PolyOverlapArea(a, b) > 0
}

func polyArea(pts []mgl64.Vec2) float64 {
	if len(pts) < 3 {
		return 0
	}
	area := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		area += pts[i][0]*pts[j][1] - pts[j][0]*pts[i][1]
	}
	return math.Abs(area) / 2
}

// clipPoly clips subject against convex clipPolygon using Sutherland-Hodgman.
func clipPoly(subject, clipPolygon []mgl64.Vec2) []mgl64.Vec2 {
	output := subject
	for i := range clipPolygon {
		if len(output) == 0 {
			return nil
		}
		input := output
		output = nil
		a := clipPolygon[i]
		b := clipPolygon[(i+1)%len(clipPolygon)]
		for j := range input {
			cur := input[j]
			prev := input[(j-1+len(input))%len(input)]
			curIn := cross(sub(b, a), sub(cur, a)) >= 0
			prevIn := cross(sub(b, a), sub(prev, a)) >= 0
			if curIn {
				if !prevIn {
					output = append(output, lineLineIntersect(prev, cur, a, b))
				}
				output = append(output, cur)
			} else if prevIn {
				output = append(output, lineLineIntersect(prev, cur, a, b))
			}
		}
	}
	return output
}

func lineLineIntersect(p1, p2, p3, p4 mgl64.Vec2) mgl64.Vec2 {
	d1 := sub(p2, p1)
	d2 := sub(p4, p3)
	denom := cross(d1, d2)
	if denom == 0 {
		return p1
	}
	t := cross(sub(p3, p1), d2) / denom
	return mgl64.Vec2{p1[0] + t*d1[0], p1[1] + t*d1[1]}
}

// LineIntersectsCircle reports whether the segment l passes within radius r
// of center.
func (w World) LineIntersectsCircle(l Line, center mgl64.Vec2, r float64) bool {
	for _, hl := range w.SplitLine(l, false) {
		if segmentCircleDist(hl.A, hl.B, center) <= r {
			return true
		}
	}
	return false
}

func segmentCircleDist(a, b, c mgl64.Vec2) float64 {
	ab := sub(b, a)
	ac := sub(c, a)
	lenSq := ab[0]*ab[0] + ab[1]*ab[1]
	if lenSq == 0 {
		return ac.Len()
	}
	t := (ac[0]*ab[0] + ac[1]*ab[1]) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := mgl64.Vec2{a[0] + t*ab[0], a[1] + t*ab[1]}
	return sub(c, closest).Len()
}

// LineIntersectsPoly reports whether l crosses the boundary of or lies
// inside p.
func (w World) LineIntersectsPoly(l Line, p Poly) bool {
	for _, hl := range w.SplitLine(l, false) {
		for _, hp := range w.SplitPoly(p) {
			n := len(hp.Points)
			for i := 0; i < n; i++ {
				if segmentsIntersect(hl.A, hl.B, hp.Points[i], hp.Points[(i+1)%n]) {
					return true
				}
			}
			if pointInPoly(hl.A, hp.Points) {
				return true
			}
		}
	}
	return false
}

func pointInPoly(p mgl64.Vec2, poly []mgl64.Vec2) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := poly[i], poly[j]
		if (pi[1] > p[1]) != (pj[1] > p[1]) &&
			p[0] < (pj[0]-pi[0])*(p[1]-pi[1])/(pj[1]-pi[1])+pi[0] {
			inside = !inside
		}
	}
	return inside
}

package geometry

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestXWrapIdempotent(t *testing.T) {
	w := World{W: 100, H: 100}
	for _, x := range []float64{-150, -1, 0, 50, 99, 150, 1000.5} {
		got := w.XWrap(x)
		if got < 0 || got >= w.W {
			t.Fatalf("XWrap(%v) = %v, want in [0, %v)", x, got, w.W)
		}
		if again := w.XWrap(got); again != got {
			t.Fatalf("XWrap not idempotent: XWrap(%v)=%v, XWrap(XWrap(%v))=%v", x, got, x, again)
		}
	}
}

func TestDiffMagnitudeBound(t *testing.T) {
	w := World{W: 100, H: 100}
	for _, pair := range [][2]float64{{0, 99}, {10, 90}, {5, 5}, {0, 50}, {99, 0}} {
		d := w.Diff(mgl64.Vec2{pair[0], 0}, mgl64.Vec2{pair[1], 0})
		if math.Abs(d[0]) > w.W/2+1e-9 {
			t.Fatalf("diff(%v, %v) = %v exceeds W/2", pair[0], pair[1], d[0])
		}
	}
}

func TestSplitRectCoversAndInBounds(t *testing.T) {
	w := World{W: 100, H: 100}
	r := Rect{Min: mgl64.Vec2{90, 0}, Max: mgl64.Vec2{110, 10}}
	halves := w.SplitRect(r)
	if len(halves) != 2 {
		t.Fatalf("expected 2 halves for a seam-crossing rect, got %d", len(halves))
	}
	totalWidth := 0.0
	for _, h := range halves {
		if h.Min[0] < 0 || h.Max[0] > w.W {
			t.Fatalf("half %v out of bounds", h)
		}
		totalWidth += h.Max[0] - h.Min[0]
	}
	if totalWidth != 20 {
		t.Fatalf("split halves do not cover full width: got %v want 20", totalWidth)
	}
}

func TestSplitRectNonWrapping(t *testing.T) {
	r := Rect{Min: mgl64.Vec2{10, 10}, Max: mgl64.Vec2{20, 20}}
	halves := World{}.SplitRect(r)
	if len(halves) != 1 || halves[0] != r {
		t.Fatalf("non-wrapping world should not split: got %v", halves)
	}
}

func TestRectIntersectsRectAcrossSeam(t *testing.T) {
	w := World{W: 100, H: 100}
	a := Rect{Min: mgl64.Vec2{95, 0}, Max: mgl64.Vec2{105, 10}}
	b := Rect{Min: mgl64.Vec2{2, 0}, Max: mgl64.Vec2{8, 10}}
	if !w.RectIntersectsRect(a, b) {
		t.Fatal("expected rects to intersect across the seam")
	}
}

func TestPolyOverlapAreaSimple(t *testing.T) {
	w := World{W: 100, H: 100}
	square := func(minX, minY, size float64) Poly {
		return Poly{Points: []mgl64.Vec2{
			{minX, minY}, {minX + size, minY}, {minX + size, minY + size}, {minX, minY + size},
		}}
	}
	a := square(0, 0, 10)
	b := square(5, 0, 10)
	area := w.PolyOverlapArea(a, b)
	if math.Abs(area-50) > 1e-6 {
		t.Fatalf("expected overlap area 50, got %v", area)
	}
}

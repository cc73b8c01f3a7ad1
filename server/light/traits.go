// Package light implements the cellular lighting engine: a padded tile
// window over which spread sources, point sources and obstacle flags are
// seeded, then relaxed by a fixed number of cellular-automaton sweeps.
//
// Scalar and colored lighting share one generic pipeline (Array[V, T])
// parameterised by a small Traits interface, rather than duplicating the
// sweep/point-light/line-attenuation code per channel count.
package light

import "github.com/go-gl/mathgl/mgl64"

// Traits supplies the per-channel arithmetic a Value type needs to
// participate in the cellular lighting pipeline. Implementations are
// stateless; methods take and return values, never pointers.
type Traits[V any] interface {
	Spread(source, dest V, drop float64) V
	Subtract(value V, drop float64) V
	Multiply(value V, scale float64) V
	Add(a, b V) V
	Max(a, b V) V
	MaxIntensity(v V) float64
	MinIntensity(v V) float64
	Zero() V
}

// ScalarTraits implements Traits[float64] for single-channel light.
type ScalarTraits struct{}

func (ScalarTraits) Spread(source, dest float64, drop float64) float64 {
	return max(source-drop, dest)
}
func (ScalarTraits) Subtract(value float64, drop float64) float64 { return max(value-drop, 0) }
func (ScalarTraits) Multiply(value, scale float64) float64        { return value * scale }
func (ScalarTraits) Add(a, b float64) float64                     { return a + b }
func (ScalarTraits) Max(a, b float64) float64                     { return max(a, b) }
func (ScalarTraits) MaxIntensity(v float64) float64                { return v }
func (ScalarTraits) MinIntensity(v float64) float64                { return v }
func (ScalarTraits) Zero() float64                                 { return 0 }

// ColoredTraits implements Traits[mgl64.Vec3] for three-channel (RGB) light.
// Spread and subtract are applied proportionally to the source's dominant
// channel so that color ratios (hue) are preserved as light attenuates —
// see DESIGN.md Open Question 1 for the drop > maxChannel edge case.
type ColoredTraits struct{}

func (ColoredTraits) Spread(source, dest mgl64.Vec3, drop float64) mgl64.Vec3 {
	m := maxChannel(source)
	if m <= 0 {
		return dest
	}
	var out mgl64.Vec3
	for i := 0; i < 3; i++ {
		out[i] = max(source[i]-source[i]*drop/m, dest[i])
	}
	return out
}

func (ColoredTraits) Subtract(value mgl64.Vec3, drop float64) mgl64.Vec3 {
	m := maxChannel(value)
	if m <= 0 {
		return value
	}
	var out mgl64.Vec3
	for i := 0; i < 3; i++ {
		out[i] = max(value[i]-drop*value[i]/m, 0)
	}
	return out
}

func (ColoredTraits) Multiply(value mgl64.Vec3, scale float64) mgl64.Vec3 {
	return mgl64.Vec3{value[0] * scale, value[1] * scale, value[2] * scale}
}

func (ColoredTraits) Add(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func (ColoredTraits) Max(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])}
}

func (ColoredTraits) MaxIntensity(v mgl64.Vec3) float64 { return maxChannel(v) }
func (ColoredTraits) MinIntensity(v mgl64.Vec3) float64 { return min(v[0], min(v[1], v[2])) }
func (ColoredTraits) Zero() mgl64.Vec3                  { return mgl64.Vec3{} }

func maxChannel(v mgl64.Vec3) float64 { return max(v[0], max(v[1], v[2])) }

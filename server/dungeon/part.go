// Package dungeon implements the constraint-satisfying structure placer:
// pre-authored "parts" are composed via directional connectors under rule
// predicates (spec.md §4.D).
package dungeon

// Vec2I is an integer tile-space position.
type Vec2I struct{ X, Y int }

func (v Vec2I) Add(o Vec2I) Vec2I { return Vec2I{v.X + o.X, v.Y + o.Y} }
func (v Vec2I) Sub(o Vec2I) Vec2I { return Vec2I{v.X - o.X, v.Y - o.Y} }

// Direction is a connector's facing.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
	Unknown
	Any
)

// Opposite returns the direction that mates with d (Left<->Right,
// Up<->Down); Unknown and Any are their own opposite for matching purposes.
func (d Direction) Opposite() Direction {
	switch d {
	case Left:
		return Right
	case Right:
		return Left
	case Up:
		return Down
	case Down:
		return Up
	default:
		return d
	}
}

// Connector is a directional attachment point scanned from a part's tiles.
type Connector struct {
	Direction   Direction
	Value       string
	ForwardOnly bool
	Offset      Vec2I
}

// ConnectsTo reports whether a matches b: same value, opposite directions,
// and not forbidden by b's ForwardOnly flag (a forward-only connector may
// only be approached, never approached-from, in the reverse direction).
func (a Connector) ConnectsTo(b Connector) bool {
	if a.Value != b.Value {
		return false
	}
	if a.Direction != Any && b.Direction != Any && a.Direction.Opposite() != b.Direction {
		return false
	}
	if b.ForwardOnly && a.Direction == b.Direction {
		return false
	}
	return true
}

// Phase is a fixed-order paint pass applied to every tile of a placed part.
type Phase int

const (
	PhaseClear Phase = iota
	PhaseWall
	PhaseMods
	PhaseObject
	PhaseBiomeTrees
	PhaseBiomeItems
	PhaseWire
	PhaseItem
	PhaseNpc
	PhaseDungeonId
)

// Phases lists every phase in fixed application order.
var Phases = []Phase{
	PhaseClear, PhaseWall, PhaseMods, PhaseObject, PhaseBiomeTrees,
	PhaseBiomeItems, PhaseWire, PhaseItem, PhaseNpc, PhaseDungeonId,
}

// Paint is one brush application at a tile position within a part,
// scheduled to run during its Phase.
type Paint struct {
	Pos   Vec2I
	Phase Phase
	Brush Brush
}

// Rules aggregates a part's rule-derived constraints, each contributed by
// one or more tile-local rule predicates but tracked at part granularity
// (spec.md §4.D: "a rule on a tile implies the rule on the part").
type Rules struct {
	Overdrawable         bool
	IgnorePartMaximum    bool
	MaxSpawnCount        int // 0 means unlimited
	DoNotConnectToPart   []string
	DoNotCombineWith     []string
	MustContainAir       bool
	MustContainSolid     bool
	MustContainLiquid    bool
	MustNotContainLiquid bool
}

func (r Rules) forbidsPart(name string) bool {
	for _, n := range r.DoNotConnectToPart {
		if n == name {
			return true
		}
	}
	return false
}

func (r Rules) forbidsCombination(placed map[string]int) bool {
	for _, n := range r.DoNotCombineWith {
		if placed[n] > 0 {
			return true
		}
	}
	return false
}

// Part is a rectangular tile template: its footprint size, anchor point
// used to align it on placement, the connectors scanned from its tiles,
// its aggregated rule set, and the brushes that paint it.
type Part struct {
	Name       string
	Size       Vec2I
	Anchor     Vec2I
	Connectors []Connector
	Rules      Rules
	Paints     []Paint
}

// PaintsByPhase returns p's paints in Clear->Wall->...->DungeonId order.
func (p *Part) PaintsByPhase() []Paint {
	out := make([]Paint, 0, len(p.Paints))
	for _, phase := range Phases {
		for _, paint := range p.Paints {
			if paint.Phase == phase {
				out = append(out, paint)
			}
		}
	}
	return out
}

package dungeon

import (
	"math"
	"math/rand"
)

// Anchor is a weighted candidate for the part that starts a placement.
type Anchor struct {
	PartName string
	Chance   float64
}

// Definition is a named dungeon: its parts, anchors, and placement limits.
type Definition struct {
	Name      string
	Parts     map[string]*Part
	Anchors   []Anchor
	MaxParts  int
	MaxRadius float64
}

// PlacedPart records one part instance placed during generation.
type PlacedPart struct {
	Name   string
	Origin Vec2I
}

// Result is what a successful Place call returns: the bounding rectangles
// touched (one per placed part, in placement order) and the full set of
// occupied tile positions.
type Result struct {
	Bounds []Bounds
	Places map[Vec2I]string
}

// Bounds is an inclusive-exclusive tile rectangle.
type Bounds struct {
	MinX, MinY, MaxX, MaxY int
}

type openConnector struct {
	worldPos    Vec2I
	connector   Connector
	fromPart    string
}

// Generator runs the connector-driven BFS placement algorithm for one
// Definition against one Writer/WorldFacade pair.
type Generator struct {
	def    *Definition
	rand   *rand.Rand
	writer *Writer
	facade WorldFacade

	places           map[Vec2I]string
	placementCounter map[string]int
	frontier         []openConnector
	placedParts      []PlacedPart
	anchorPos        Vec2I
}

// NewGenerator constructs a Generator for def, using seed for both anchor
// selection and placement-order randomisation, writing through w against
// facade's read-only solid/open/ocean predicates for per-tile can_place
// checks (spec.md §4.D placement step 3).
func NewGenerator(def *Definition, seed int64, w *Writer, facade WorldFacade) *Generator {
	return &Generator{
		def:              def,
		rand:             rand.New(rand.NewSource(seed)),
		writer:           w,
		facade:           facade,
		places:           map[Vec2I]string{},
		placementCounter: map[string]int{},
	}
}

// Place runs the full algorithm anchored at position, returning the
// placement result, or ok=false if the anchor itself could not be placed
// and forcePlacement is false.
func (g *Generator) Place(position Vec2I, forcePlacement bool) (Result, bool) {
	g.anchorPos = position
	anchorName := g.pickAnchor()
	anchorPart, ok := g.def.Parts[anchorName]
	if !ok {
		return Result{}, false
	}

	if !g.tryPlace(anchorPart, position, "", Connector{}) {
		if !forcePlacement {
			return Result{}, false
		}
		g.commitPlacement(anchorPart, position)
	}

	bounds := []Bounds{boundsOf(position, anchorPart.Size)}

	for len(g.frontier) > 0 && len(g.placedParts) < g.def.MaxParts {
		c := g.frontier[0]
		g.frontier = g.frontier[1:]

		candidates := g.candidatesFor(c.connector)
		g.shuffle(candidates)

		for _, cand := range candidates {
			origin := c.worldPos.Sub(candidateConnectorOffset(cand.part, c.connector))
			if distance(g.anchorPos, origin) > g.def.MaxRadius {
				continue
			}
			if !g.canPlace(cand.part, origin, c.fromPart) {
				continue
			}
			g.commitPlacementFrom(cand.part, origin, c)
			bounds = append(bounds, boundsOf(origin, cand.part.Size))
			break
		}
	}

	return Result{Bounds: bounds, Places: g.places}, true
}

func (g *Generator) pickAnchor() string {
	total := 0.0
	for _, a := range g.def.Anchors {
		total += a.Chance
	}
	if total <= 0 {
		if len(g.def.Anchors) > 0 {
			return g.def.Anchors[0].PartName
		}
		return ""
	}
	target := g.rand.Float64() * total
	for _, a := range g.def.Anchors {
		if target < a.Chance {
			return a.PartName
		}
		target -= a.Chance
	}
	return g.def.Anchors[len(g.def.Anchors)-1].PartName
}

func (g *Generator) tryPlace(part *Part, origin Vec2I, fromPart string, matched Connector) bool {
	if !g.canPlace(part, origin, fromPart) {
		return false
	}
	g.commitPlacement(part, origin)
	return true
}

func (g *Generator) canPlace(part *Part, origin Vec2I, fromPart string) bool {
	if fromPart != "" {
		if part.Rules.forbidsPart(fromPart) {
			return false
		}
		// spec.md §4.D step 3: "the part's do_not_connect_to_part list does
		// not contain the matching part's name (and vice versa)" — the
		// already-placed part's own rules veto the candidate too, not just
		// the other way round.
		if fromPartDef, ok := g.def.Parts[fromPart]; ok && fromPartDef.Rules.forbidsPart(part.Name) {
			return false
		}
	}
	if part.Rules.forbidsCombination(g.placementCounter) {
		return false
	}
	if !part.Rules.IgnorePartMaximum && part.Rules.MaxSpawnCount > 0 &&
		g.placementCounter[part.Name] >= part.Rules.MaxSpawnCount {
		return false
	}
	if !part.Rules.Overdrawable {
		for dx := 0; dx < part.Size.X; dx++ {
			for dy := 0; dy < part.Size.Y; dy++ {
				pos := origin.Add(Vec2I{dx, dy})
				if owner, occupied := g.places[pos]; occupied && owner != part.Name {
					return false
				}
			}
		}
	}
	return g.satisfiesTileContentRules(part, origin)
}

// satisfiesTileContentRules evaluates the per-tile WorldGenMustContain{Air,
// Solid,Liquid}/MustNotContainLiquid rules spec.md §4.D aggregates to part
// granularity, reading the underlying world through facade's solid/open/
// ocean predicates (the facade exposes no separate liquid predicate, so
// ocean doubles as the liquid test per spec.md §6's "predicates for
// solid/open/ocean"). A nil facade (e.g. a Generator built for tests that
// never exercise these rules) always satisfies them.
func (g *Generator) satisfiesTileContentRules(part *Part, origin Vec2I) bool {
	r := part.Rules
	if g.facade == nil || (!r.MustContainAir && !r.MustContainSolid && !r.MustContainLiquid && !r.MustNotContainLiquid) {
		return true
	}
	var haveAir, haveSolid, haveLiquid bool
	for dx := 0; dx < part.Size.X; dx++ {
		for dy := 0; dy < part.Size.Y; dy++ {
			pos := origin.Add(Vec2I{dx, dy})
			if g.facade.IsOcean(pos) {
				if r.MustNotContainLiquid {
					return false
				}
				haveLiquid = true
			}
			if g.facade.IsOpen(pos) {
				haveAir = true
			}
			if g.facade.IsSolid(pos) {
				haveSolid = true
			}
		}
	}
	if r.MustContainAir && !haveAir {
		return false
	}
	if r.MustContainSolid && !haveSolid {
		return false
	}
	if r.MustContainLiquid && !haveLiquid {
		return false
	}
	return true
}

func (g *Generator) commitPlacement(part *Part, origin Vec2I) {
	g.commitPlacementExcept(part, origin, nil)
}

// commitPlacementExcept paints part at origin and opens its connectors on
// the frontier, skipping the one that mated with the frontier connector
// that brought it in.
func (g *Generator) commitPlacementExcept(part *Part, origin Vec2I, mated *Connector) {
	for _, paint := range part.PaintsByPhase() {
		paint.Brush.Paint(g.writer, origin.Add(paint.Pos))
	}
	if !part.Rules.Overdrawable {
		for dx := 0; dx < part.Size.X; dx++ {
			for dy := 0; dy < part.Size.Y; dy++ {
				g.places[origin.Add(Vec2I{dx, dy})] = part.Name
			}
		}
	}
	g.placementCounter[part.Name]++
	g.placedParts = append(g.placedParts, PlacedPart{Name: part.Name, Origin: origin})
	g.writer.FinishPart()

	for _, c := range part.Connectors {
		if mated != nil && c == *mated {
			continue
		}
		g.frontier = append(g.frontier, openConnector{
			worldPos:  origin.Add(c.Offset),
			connector: c,
			fromPart:  part.Name,
		})
	}
}

func (g *Generator) commitPlacementFrom(part *Part, origin Vec2I, mated openConnector) {
	own := candidateConnector(part, mated.connector)
	g.commitPlacementExcept(part, origin, own)
}

type candidate struct {
	part      *Part
	connector Connector
}

func (g *Generator) candidatesFor(target Connector) []candidate {
	var out []candidate
	for _, part := range g.def.Parts {
		for _, c := range part.Connectors {
			if c.ConnectsTo(target) {
				out = append(out, candidate{part: part, connector: c})
			}
		}
	}
	return out
}

// candidateConnector finds the candidate's own connector that mates with
// the frontier connector: placement aligns the candidate so that connector
// lands on the frontier connector's world position.
func candidateConnector(part *Part, mated Connector) *Connector {
	for i, c := range part.Connectors {
		if c.Direction.Opposite() == mated.Direction && c.Value == mated.Value {
			return &part.Connectors[i]
		}
	}
	return nil
}

func candidateConnectorOffset(part *Part, mated Connector) Vec2I {
	if c := candidateConnector(part, mated); c != nil {
		return c.Offset
	}
	return Vec2I{}
}

func (g *Generator) shuffle(c []candidate) {
	g.rand.Shuffle(len(c), func(i, j int) { c[i], c[j] = c[j], c[i] })
}

func boundsOf(origin, size Vec2I) Bounds {
	return Bounds{MinX: origin.X, MinY: origin.Y, MaxX: origin.X + size.X, MaxY: origin.Y + size.Y}
}

func distance(a, b Vec2I) float64 {
	dx, dy := float64(a.X-b.X), float64(a.Y-b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

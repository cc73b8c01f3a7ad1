package dungeon

import "testing"

func fiveByFivePart(name string) *Part {
	p := &Part{Name: name, Size: Vec2I{5, 5}}
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			p.Paints = append(p.Paints, Paint{
				Pos:   Vec2I{x, y},
				Phase: PhaseWall,
				Brush: MaterialBrush{Material: 1},
			})
		}
	}
	return p
}

type recordingFacade struct {
	foreground map[Vec2I]int
}

func newRecordingFacade() *recordingFacade {
	return &recordingFacade{foreground: map[Vec2I]int{}}
}

func (f *recordingFacade) SetForeground(pos Vec2I, material int, hue uint8) { f.foreground[pos] = material }
func (f *recordingFacade) SetBackground(pos Vec2I, material int, hue uint8) {}
func (f *recordingFacade) SetLiquid(pos Vec2I, liquid int, level float64)  {}
func (f *recordingFacade) SetDungeonId(pos Vec2I, id uint16)               {}
func (f *recordingFacade) AddObject(pos Vec2I, name string, params map[string]any) {}
func (f *recordingFacade) AddNpc(pos Vec2I, species string, params map[string]any) {}
func (f *recordingFacade) AddDrop(pos Vec2I, item string)                  {}
func (f *recordingFacade) ClearTileEntities(pos Vec2I)                     {}
func (f *recordingFacade) IsSolid(pos Vec2I) bool                          { return false }
func (f *recordingFacade) IsOpen(pos Vec2I) bool                           { return true }
func (f *recordingFacade) IsOcean(pos Vec2I) bool                          { return false }
func (f *recordingFacade) DungeonIdAt(pos Vec2I) uint16                    { return 0 }
func (f *recordingFacade) SetForegroundMod(pos Vec2I, mod int, hue uint8)  {}
func (f *recordingFacade) SetBackgroundMod(pos Vec2I, mod int, hue uint8)  {}
func (f *recordingFacade) SetForegroundColor(pos Vec2I, color [3]uint8)    {}
func (f *recordingFacade) SetBackgroundColor(pos Vec2I, color [3]uint8)    {}
func (f *recordingFacade) AddVehicle(pos Vec2I, name string, params map[string]any) {}
func (f *recordingFacade) AddBiomeTree(pos Vec2I, species string)          {}
func (f *recordingFacade) AddBiomeItem(pos Vec2I, name string)             {}
func (f *recordingFacade) AddStagehand(pos Vec2I, kind string, params map[string]any) {}
func (f *recordingFacade) ConnectWire(pos Vec2I, group string, isInput bool, port int) {}
func (f *recordingFacade) SetPlayerStart(pos Vec2I)                        {}

// Scenario 3 — anchor-only placement (spec.md §8): a dungeon whose anchor
// part has no connectors produces exactly one bounding rect (50,50,55,55)
// and paints 25 tile positions into foreground.
func TestScenarioAnchorOnlyPlacement(t *testing.T) {
	anchor := fiveByFivePart("anchor")
	def := &Definition{
		Name:      "anchor-only",
		Parts:     map[string]*Part{"anchor": anchor},
		Anchors:   []Anchor{{PartName: "anchor", Chance: 1}},
		MaxParts:  64,
		MaxRadius: 1000,
	}

	facade := newRecordingFacade()
	w := NewWriter(nil, []byte("seed"))
	g := NewGenerator(def, 1, w, facade)

	result, ok := g.Place(Vec2I{50, 50}, false)
	if !ok {
		t.Fatal("expected anchor placement to succeed")
	}
	w.Flush(facade)

	if len(result.Bounds) != 1 {
		t.Fatalf("expected exactly one bounding rect, got %d: %v", len(result.Bounds), result.Bounds)
	}
	b := result.Bounds[0]
	want := Bounds{MinX: 50, MinY: 50, MaxX: 55, MaxY: 55}
	if b != want {
		t.Fatalf("bounds = %+v, want %+v", b, want)
	}
	if len(facade.foreground) != 25 {
		t.Fatalf("expected 25 painted tiles, got %d", len(facade.foreground))
	}
}

// Invariant 10 — no part with a MaxSpawnCount is ever placed more times than
// that count, even when many connectors could mate with it.
func TestMaxSpawnCountEnforced(t *testing.T) {
	anchor := &Part{
		Name: "hub",
		Size: Vec2I{1, 1},
		Connectors: []Connector{
			{Direction: Left, Value: "a", Offset: Vec2I{0, 0}},
			{Direction: Right, Value: "a", Offset: Vec2I{1, 0}},
			{Direction: Up, Value: "a", Offset: Vec2I{0, 1}},
			{Direction: Down, Value: "a", Offset: Vec2I{0, -1}},
		},
	}
	limited := &Part{
		Name: "limited",
		Size: Vec2I{1, 1},
		Connectors: []Connector{
			{Direction: Right, Value: "a", Offset: Vec2I{0, 0}},
			{Direction: Left, Value: "a", Offset: Vec2I{1, 0}},
		},
		Rules: Rules{MaxSpawnCount: 1},
	}

	def := &Definition{
		Name:      "capped",
		Parts:     map[string]*Part{"hub": anchor, "limited": limited},
		Anchors:   []Anchor{{PartName: "hub", Chance: 1}},
		MaxParts:  64,
		MaxRadius: 1000,
	}

	w := NewWriter(nil, nil)
	g := NewGenerator(def, 7, w, newRecordingFacade())
	result, ok := g.Place(Vec2I{0, 0}, false)
	if !ok {
		t.Fatal("expected placement to succeed")
	}

	count := 0
	for _, name := range result.Places {
		if name == "limited" {
			count++
		}
	}
	// Places only records non-overdrawable footprint tiles, each part here
	// is a single tile, so the count above is a tile count not a placement
	// count — cross-check against the counter the generator itself tracked.
	if g.placementCounter["limited"] > limited.Rules.MaxSpawnCount {
		t.Fatalf("limited placed %d times, want at most %d", g.placementCounter["limited"], limited.Rules.MaxSpawnCount)
	}
}

// Boundary behavior — max_radius = 0 places exactly the anchor part and
// then halts: the only mating candidate would sit one tile from the anchor,
// outside the zero-radius bound.
func TestMaxRadiusZeroPlacesOnlyAnchor(t *testing.T) {
	anchor := &Part{
		Name: "anchor",
		Size: Vec2I{1, 1},
		Connectors: []Connector{
			{Direction: Right, Value: "a", Offset: Vec2I{1, 0}},
		},
	}
	other := &Part{
		Name: "other",
		Size: Vec2I{1, 1},
		Connectors: []Connector{
			{Direction: Left, Value: "a", Offset: Vec2I{0, 0}},
		},
	}
	def := &Definition{
		Name:      "zero-radius",
		Parts:     map[string]*Part{"anchor": anchor, "other": other},
		Anchors:   []Anchor{{PartName: "anchor", Chance: 1}},
		MaxParts:  64,
		MaxRadius: 0,
	}

	w := NewWriter(nil, nil)
	g := NewGenerator(def, 3, w, newRecordingFacade())
	result, ok := g.Place(Vec2I{0, 0}, false)
	if !ok {
		t.Fatal("expected anchor placement to succeed")
	}
	if len(result.Bounds) != 1 {
		t.Fatalf("expected only the anchor to be placed, got %d parts", len(result.Bounds))
	}
	if len(g.placedParts) != 1 {
		t.Fatalf("expected exactly 1 placed part, got %d", len(g.placedParts))
	}
}

// spec.md §4.D step 3 requires the do_not_connect_to_part check to run both
// ways: a candidate whose own rules don't forbid the already-placed part is
// still rejected if that already-placed part forbids the candidate.
func TestDoNotConnectToPartIsBidirectional(t *testing.T) {
	anchor := &Part{
		Name:       "anchor",
		Size:       Vec2I{1, 1},
		Connectors: []Connector{{Direction: Right, Value: "a", Offset: Vec2I{1, 0}}},
		Rules:      Rules{DoNotConnectToPart: []string{"blocked"}},
	}
	blocked := &Part{
		Name:       "blocked",
		Size:       Vec2I{1, 1},
		Connectors: []Connector{{Direction: Left, Value: "a", Offset: Vec2I{0, 0}}},
	}
	def := &Definition{
		Name:      "bidirectional",
		Parts:     map[string]*Part{"anchor": anchor, "blocked": blocked},
		Anchors:   []Anchor{{PartName: "anchor", Chance: 1}},
		MaxParts:  64,
		MaxRadius: 1000,
	}

	w := NewWriter(nil, nil)
	g := NewGenerator(def, 11, w, newRecordingFacade())
	result, ok := g.Place(Vec2I{0, 0}, false)
	if !ok {
		t.Fatal("expected anchor placement to succeed")
	}
	if len(result.Bounds) != 1 {
		t.Fatalf("expected only the anchor to place (anchor's own rule forbids 'blocked'), got %d parts", len(result.Bounds))
	}
}

// oceanFacade reports a single ocean tile, for exercising the
// MustNotContainLiquid content-rule gate.
type oceanFacade struct{ *recordingFacade }

func (oceanFacade) IsOcean(pos Vec2I) bool { return pos == (Vec2I{0, 0}) }

// spec.md §4.D step 3's per-tile can_place rules include
// WorldGenMustContain{Air,Solid,Liquid}/MustNotContainLiquid; this exercises
// the generator actually reading the facade's content predicates.
func TestMustNotContainLiquidRejectsOceanOverlap(t *testing.T) {
	anchor := &Part{Name: "anchor", Size: Vec2I{1, 1}, Rules: Rules{MustNotContainLiquid: true}}
	def := &Definition{
		Name:      "liquid-check",
		Parts:     map[string]*Part{"anchor": anchor},
		Anchors:   []Anchor{{PartName: "anchor", Chance: 1}},
		MaxParts:  1,
		MaxRadius: 0,
	}

	w := NewWriter(nil, nil)
	g := NewGenerator(def, 5, w, oceanFacade{newRecordingFacade()})
	if _, ok := g.Place(Vec2I{0, 0}, false); ok {
		t.Fatal("expected placement over an ocean tile to fail when MustNotContainLiquid is set")
	}
}

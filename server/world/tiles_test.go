package world

import (
	"testing"

	"github.com/sandboxverse/universe/server/dungeon"
)

type recordingTileFacade struct {
	foreground     map[dungeon.Vec2I]int
	background     map[dungeon.Vec2I]int
	foregroundMod  map[dungeon.Vec2I]int
	backgroundMod  map[dungeon.Vec2I]int
	foregroundHue  map[dungeon.Vec2I][3]uint8
	backgroundHue  map[dungeon.Vec2I][3]uint8
	liquid         map[dungeon.Vec2I]int
}

func newRecordingTileFacade() *recordingTileFacade {
	return &recordingTileFacade{
		foreground:    map[dungeon.Vec2I]int{},
		background:    map[dungeon.Vec2I]int{},
		foregroundMod: map[dungeon.Vec2I]int{},
		backgroundMod: map[dungeon.Vec2I]int{},
		foregroundHue: map[dungeon.Vec2I][3]uint8{},
		backgroundHue: map[dungeon.Vec2I][3]uint8{},
		liquid:        map[dungeon.Vec2I]int{},
	}
}

func (f *recordingTileFacade) SetForeground(pos dungeon.Vec2I, material int, hue uint8) { f.foreground[pos] = material }
func (f *recordingTileFacade) SetBackground(pos dungeon.Vec2I, material int, hue uint8) { f.background[pos] = material }
func (f *recordingTileFacade) SetForegroundMod(pos dungeon.Vec2I, mod int, hue uint8)   { f.foregroundMod[pos] = mod }
func (f *recordingTileFacade) SetBackgroundMod(pos dungeon.Vec2I, mod int, hue uint8)   { f.backgroundMod[pos] = mod }
func (f *recordingTileFacade) SetForegroundColor(pos dungeon.Vec2I, color [3]uint8)     { f.foregroundHue[pos] = color }
func (f *recordingTileFacade) SetBackgroundColor(pos dungeon.Vec2I, color [3]uint8)     { f.backgroundHue[pos] = color }
func (f *recordingTileFacade) SetLiquid(pos dungeon.Vec2I, liquid int, level float64)   { f.liquid[pos] = liquid }
func (f *recordingTileFacade) SetDungeonId(dungeon.Vec2I, uint16)                       {}
func (f *recordingTileFacade) AddObject(dungeon.Vec2I, string, map[string]any)          {}
func (f *recordingTileFacade) AddVehicle(dungeon.Vec2I, string, map[string]any)         {}
func (f *recordingTileFacade) AddBiomeTree(dungeon.Vec2I, string)                       {}
func (f *recordingTileFacade) AddBiomeItem(dungeon.Vec2I, string)                       {}
func (f *recordingTileFacade) AddNpc(dungeon.Vec2I, string, map[string]any)             {}
func (f *recordingTileFacade) AddDrop(dungeon.Vec2I, string)                            {}
func (f *recordingTileFacade) AddStagehand(dungeon.Vec2I, string, map[string]any)       {}
func (f *recordingTileFacade) ConnectWire(dungeon.Vec2I, string, bool, int)             {}
func (f *recordingTileFacade) SetPlayerStart(dungeon.Vec2I)                            {}
func (f *recordingTileFacade) ClearTileEntities(dungeon.Vec2I)                          {}
func (f *recordingTileFacade) IsSolid(dungeon.Vec2I) bool                              { return false }
func (f *recordingTileFacade) IsOpen(dungeon.Vec2I) bool                               { return true }
func (f *recordingTileFacade) IsOcean(dungeon.Vec2I) bool                              { return false }
func (f *recordingTileFacade) DungeonIdAt(dungeon.Vec2I) uint16                        { return 0 }

var _ dungeon.WorldFacade = (*recordingTileFacade)(nil)

type stubTileSource struct{}

func (stubTileSource) DungeonIDAt(dungeon.Vec2I) uint16                 { return 0 }
func (stubTileSource) EntityAt(dungeon.Vec2I) bool                      { return false }
func (stubTileSource) MaterialAllowsLayer(material int, layer Layer) bool { return true }

// spec.md §8's round-trip invariant requires every Modification kind to
// actually mutate the facade, not just pass validity gating; this exercises
// all four kinds landing on the right facade setter.
func TestApplyTileModificationsWiresAllKinds(t *testing.T) {
	w := New(Config{})
	defer w.Close()
	facade := newRecordingTileFacade()

	mods := []Modification{
		{Pos: dungeon.Vec2I{X: 0, Y: 0}, Kind: ModPlaceMaterial, Material: 5, Layer: LayerForeground},
		{Pos: dungeon.Vec2I{X: 1, Y: 0}, Kind: ModPlaceMod, Mod: 7, Layer: LayerBackground},
		{Pos: dungeon.Vec2I{X: 2, Y: 0}, Kind: ModPlaceMaterialColor, Color: [3]uint8{1, 2, 3}, Layer: LayerForeground},
		{Pos: dungeon.Vec2I{X: 3, Y: 0}, Kind: ModPlaceLiquid, Liquid: 2, Level: 0.5},
	}

	result := w.ApplyTileModifications(mods, true, false, stubTileSource{}, facade)
	if len(result.Valid) != 4 || len(result.Invalid) != 0 {
		t.Fatalf("result = %+v, want all 4 valid", result)
	}
	if facade.foreground[dungeon.Vec2I{X: 0, Y: 0}] != 5 {
		t.Fatalf("material not wired: %v", facade.foreground)
	}
	if facade.backgroundMod[dungeon.Vec2I{X: 1, Y: 0}] != 7 {
		t.Fatalf("mod not wired: %v", facade.backgroundMod)
	}
	if facade.foregroundHue[dungeon.Vec2I{X: 2, Y: 0}] != [3]uint8{1, 2, 3} {
		t.Fatalf("material color not wired: %v", facade.foregroundHue)
	}
	if facade.liquid[dungeon.Vec2I{X: 3, Y: 0}] != 2 {
		t.Fatalf("liquid not wired: %v", facade.liquid)
	}

	if len(w.dirtyTiles) != 3 {
		t.Fatalf("dirtyTiles = %d, want 3 (everything but the liquid mod)", len(w.dirtyTiles))
	}
	if len(w.dirtyLiquids) != 1 {
		t.Fatalf("dirtyLiquids = %d, want 1", len(w.dirtyLiquids))
	}
}

func TestApplyTileModificationsRejectsUnknownKind(t *testing.T) {
	w := New(Config{})
	defer w.Close()
	facade := newRecordingTileFacade()

	result := w.ApplyTileModifications([]Modification{{Pos: dungeon.Vec2I{}, Kind: ModKind(99)}}, true, false, stubTileSource{}, facade)
	if len(result.Invalid) != 1 || len(result.Valid) != 0 {
		t.Fatalf("result = %+v, want the unknown kind rejected", result)
	}
}

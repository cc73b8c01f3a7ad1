package dungeon

import (
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// Brush is a paint operation applied at one tile position during a part's
// placement. Brushes write through a Writer rather than touching the world
// directly, so placement can be buffered and flushed atomically.
type Brush interface {
	Paint(w *Writer, pos Vec2I)
}

// MaterialBrush sets the foreground or background material at a tile.
type MaterialBrush struct {
	Background bool
	Material   int
	Hue        uint8
}

func (b MaterialBrush) Paint(w *Writer, pos Vec2I) {
	if b.Background {
		w.SetBackground(pos, b.Material, b.Hue)
	} else {
		w.SetForeground(pos, b.Material, b.Hue)
	}
}

// ModBrush sets the foreground or background mod at a tile (PhaseMods).
type ModBrush struct {
	Background bool
	Mod        int
	Hue        uint8
}

func (b ModBrush) Paint(w *Writer, pos Vec2I) {
	if b.Background {
		w.SetBackgroundMod(pos, b.Mod, b.Hue)
	} else {
		w.SetForegroundMod(pos, b.Mod, b.Hue)
	}
}

// MaterialColorBrush recolors the foreground or background material at a
// tile without changing its material id.
type MaterialColorBrush struct {
	Background bool
	Color      [3]uint8
}

func (b MaterialColorBrush) Paint(w *Writer, pos Vec2I) {
	if b.Background {
		w.SetBackgroundColor(pos, b.Color)
	} else {
		w.SetForegroundColor(pos, b.Color)
	}
}

// ObjectBrush places a named object at a tile.
type ObjectBrush struct {
	ObjectName string
	Parameters map[string]any
}

func (b ObjectBrush) Paint(w *Writer, pos Vec2I) {
	w.AddObject(pos, b.ObjectName, b.Parameters)
}

// VehicleBrush places a named vehicle at a tile (PhaseObject).
type VehicleBrush struct {
	VehicleName string
	Parameters  map[string]any
}

func (b VehicleBrush) Paint(w *Writer, pos Vec2I) {
	w.AddVehicle(pos, b.VehicleName, b.Parameters)
}

// BiomeTreeBrush plants a biome-appropriate tree at a tile (PhaseBiomeTrees).
type BiomeTreeBrush struct {
	Species string
}

func (b BiomeTreeBrush) Paint(w *Writer, pos Vec2I) {
	w.AddBiomeTree(pos, b.Species)
}

// BiomeItemBrush drops a biome-appropriate item at a tile (PhaseBiomeItems).
type BiomeItemBrush struct {
	ItemName string
}

func (b BiomeItemBrush) Paint(w *Writer, pos Vec2I) {
	w.AddBiomeItem(pos, b.ItemName)
}

// WireBrush connects a tile's wire node into a named group (PhaseWire).
type WireBrush struct {
	Group   string
	IsInput bool
	Port    int
}

func (b WireBrush) Paint(w *Writer, pos Vec2I) {
	w.ConnectWire(pos, b.Group, b.IsInput, b.Port)
}

// StagehandBrush spawns a stagehand entity at a tile.
type StagehandBrush struct {
	Kind       string
	Parameters map[string]any
}

func (b StagehandBrush) Paint(w *Writer, pos Vec2I) {
	w.AddStagehand(pos, b.Kind, b.Parameters)
}

// PlayerStartBrush marks a tile as a valid player spawn point.
type PlayerStartBrush struct{}

func (b PlayerStartBrush) Paint(w *Writer, pos Vec2I) {
	w.SetPlayerStart(pos)
}

// LiquidBrush requests a liquid at a tile; liquids are two-phase (request
// then Flush applies them), so placement order doesn't matter relative to
// the material brushes that carve the tile out.
type LiquidBrush struct {
	Liquid int
	Level  float64
}

func (b LiquidBrush) Paint(w *Writer, pos Vec2I) {
	w.RequestLiquid(pos, b.Liquid, b.Level)
}

// DungeonIdBrush stamps the dungeon id onto a tile.
type DungeonIdBrush struct {
	DungeonId uint16
}

func (b DungeonIdBrush) Paint(w *Writer, pos Vec2I) {
	w.SetDungeonId(pos, b.DungeonId)
}

// RandomBrush deterministically picks one of Options using a seed derived
// from the Writer's seed salt and the tile position, so repeated generation
// with the same seed salt paints the same variant.
type RandomBrush struct {
	Options []Brush
}

func (b RandomBrush) Paint(w *Writer, pos Vec2I) {
	if len(b.Options) == 0 {
		return
	}
	h := xxhash.New()
	seedBytes := [16]byte{}
	putInt(seedBytes[0:8], int64(pos.X))
	putInt(seedBytes[8:16], int64(pos.Y))
	_, _ = h.Write(seedBytes[:])
	_, _ = h.Write(w.seedSalt)
	idx := rand.New(rand.NewSource(int64(h.Sum64()))).Intn(len(b.Options))
	b.Options[idx].Paint(w, pos)
}

func putInt(dst []byte, v int64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

// InvalidBrush is a placeholder for a removed/unresolvable asset. Painting
// it reports a non-fatal structured warning rather than mutating the tile.
type InvalidBrush struct {
	AssetPath string
}

func (b InvalidBrush) Paint(w *Writer, pos Vec2I) {
	w.Warnings = append(w.Warnings, InvalidBrushWarning{Pos: pos, AssetPath: b.AssetPath})
}

// InvalidBrushWarning records one InvalidBrush encountered during painting.
type InvalidBrushWarning struct {
	Pos       Vec2I
	AssetPath string
}

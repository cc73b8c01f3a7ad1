package world

import "github.com/sandboxverse/universe/server/dungeon"

// Layer distinguishes foreground/background tile layers for material and
// mod placements.
type Layer int

const (
	LayerForeground Layer = iota
	LayerBackground
)

// Modification is one pending tile change (spec.md §4.E "Tile
// modifications"). Exactly one of the embedded fields is meaningful,
// selected by Kind.
type Modification struct {
	Pos  dungeon.Vec2I
	Kind ModKind

	Layer             Layer
	Material          int
	Hue               uint8
	Color             [3]uint8
	CollisionOverride *bool

	Mod int

	Liquid int
	Level  float64
}

// ModKind discriminates Modification's variant.
type ModKind int

const (
	ModPlaceMaterial ModKind = iota
	ModPlaceMod
	ModPlaceLiquid
	ModPlaceMaterialColor
)

// ModResult partitions a batch of modifications into what was applied and
// what was rejected, per spec's apply_tile_modifications contract.
type ModResult struct {
	Valid   []Modification
	Invalid []Modification
}

// TileSource answers the predicates apply_tile_modifications checks before
// admitting a modification.
type TileSource interface {
	DungeonIDAt(pos dungeon.Vec2I) uint16
	EntityAt(pos dungeon.Vec2I) bool
	MaterialAllowsLayer(material int, layer Layer) bool
}

// ApplyTileModifications partitions mods into valid/invalid against
// protection, material-database rules, entity overlap and dungeon id, and
// applies every valid one to facade. allowEntityOverlap bypasses the
// entity-overlap check (used for admin/world-gen placements).
func (w *World) ApplyTileModifications(mods []Modification, allowEntityOverlap bool, admin bool, src TileSource, facade dungeon.WorldFacade) ModResult {
	var result ModResult
	for _, m := range mods {
		if !w.protection.Allows(src.DungeonIDAt(m.Pos), admin) {
			result.Invalid = append(result.Invalid, m)
			continue
		}
		if !allowEntityOverlap && src.EntityAt(m.Pos) {
			result.Invalid = append(result.Invalid, m)
			continue
		}
		switch m.Kind {
		case ModPlaceMaterial:
			if !src.MaterialAllowsLayer(m.Material, m.Layer) {
				result.Invalid = append(result.Invalid, m)
				continue
			}
			if m.Layer == LayerBackground {
				facade.SetBackground(m.Pos, m.Material, m.Hue)
			} else {
				facade.SetForeground(m.Pos, m.Material, m.Hue)
			}
		case ModPlaceLiquid:
			facade.SetLiquid(m.Pos, m.Liquid, m.Level)
		case ModPlaceMod:
			if m.Layer == LayerBackground {
				facade.SetBackgroundMod(m.Pos, m.Mod, m.Hue)
			} else {
				facade.SetForegroundMod(m.Pos, m.Mod, m.Hue)
			}
		case ModPlaceMaterialColor:
			if m.Layer == LayerBackground {
				facade.SetBackgroundColor(m.Pos, m.Color)
			} else {
				facade.SetForegroundColor(m.Pos, m.Color)
			}
		default:
			result.Invalid = append(result.Invalid, m)
			continue
		}
		result.Valid = append(result.Valid, m)
		if m.Kind == ModPlaceLiquid {
			w.dirtyLiquids = append(w.dirtyLiquids, m)
		} else {
			w.dirtyTiles = append(w.dirtyTiles, m)
		}
	}
	return result
}

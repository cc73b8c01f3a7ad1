package world

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sandboxverse/universe/server/geometry"
	"github.com/sandboxverse/universe/server/protocol"
)

// queueClientUpdates is tick step 12 (spec.md §4.E): for every connected
// client, diff the tiles/liquids/tile-damage touched since the last pass and
// the entities currently inside the client's visible area against what that
// client was last sent, and emit the resulting TileUpdate/LiquidUpdate/
// TileDamageUpdate/EntityCreate/EntityUpdate/EntityDestroy packets.
// net_state_cache (w.netCache) memoizes one entity's serialised snapshot
// across clients sharing the same NetRules within this tick, so a crowded
// area doesn't re-encode the same entity once per viewer.
func (w *World) queueClientUpdates() {
	for id, cw := range w.clients {
		area := cw.VisibleArea()

		for _, m := range w.dirtyTiles {
			if !w.conf.Geometry.RectContains(area, tilePoint(m)) {
				continue
			}
			w.emit(id, int(protocol.KindTileUpdate), encodeTileUpdate(m))
		}
		for _, m := range w.dirtyLiquids {
			if !w.conf.Geometry.RectContains(area, tilePoint(m)) {
				continue
			}
			w.emit(id, int(protocol.KindLiquidUpdate), encodeLiquidUpdate(m))
		}
		for _, c := range w.dirtyTileDamage {
			if !w.conf.Geometry.RectContains(area, tileDamagePoint(c)) {
				continue
			}
			w.emit(id, int(protocol.KindTileDamageUpdate), encodeTileDamageUpdate(c))
		}

		w.queueEntityUpdatesForClient(id, cw, area)
	}

	w.dirtyTiles = nil
	w.dirtyLiquids = nil
	w.dirtyTileDamage = nil
}

// queueEntityUpdatesForClient reconciles one client's entityViewState
// against the entities currently visible to it, emitting EntityCreate for
// newly-visible entities, EntityUpdate when a visible entity's Version has
// advanced past what the client was last sent, and EntityDestroy for
// entities the client was tracking that are no longer visible or no longer
// exist.
func (w *World) queueEntityUpdatesForClient(id ClientID, cw *ClientWindow, area geometry.Rect) {
	seen := w.entityViewState[id]
	if seen == nil {
		seen = map[EntityID]uint64{}
	}

	visible := map[EntityID]uint64{}
	w.entities.Each(func(e *Entity) {
		if !w.conf.Geometry.RectIntersectsRect(area, e.MetaBounds) {
			return
		}
		visible[e.ID] = e.Version

		lastSent, known := seen[e.ID]
		if known && lastSent == e.Version {
			return
		}
		body, cached := w.netCache.Get(cw.NetRules, e.ID, e.Version)
		if !cached {
			body = encodeEntitySnapshot(e)
			w.netCache.Put(cw.NetRules, e.ID, e.Version, body)
		}
		if known {
			w.emit(id, int(protocol.KindEntityUpdate), body)
		} else {
			w.emit(id, int(protocol.KindEntityCreate), body)
		}
	})

	for entID := range seen {
		if _, stillVisible := visible[entID]; !stillVisible {
			w.emit(id, int(protocol.KindEntityDestroy), encodeEntityDestroy(entID))
		}
	}
	w.entityViewState[id] = visible
}

func tilePoint(m Modification) mgl64.Vec2 {
	return mgl64.Vec2{float64(m.Pos.X), float64(m.Pos.Y)}
}

func encodeTileUpdate(m Modification) []byte {
	buf := make([]byte, 18)
	binary.BigEndian.PutUint32(buf[0:4], uint32(m.Pos.X))
	binary.BigEndian.PutUint32(buf[4:8], uint32(m.Pos.Y))
	buf[8] = byte(m.Layer)
	material := uint32(m.Material)
	if m.Kind == ModPlaceMod {
		material = uint32(m.Mod)
	}
	binary.BigEndian.PutUint32(buf[9:13], material)
	buf[13] = m.Hue
	buf[14], buf[15], buf[16] = m.Color[0], m.Color[1], m.Color[2]
	buf[17] = byte(m.Kind)
	return buf
}

func tileDamagePoint(c TileDamageChange) mgl64.Vec2 {
	return mgl64.Vec2{float64(c.Pos.X), float64(c.Pos.Y)}
}

// encodeTileDamageUpdate mirrors the original engine's
// queueTileDamageUpdates notification: position, layer, remaining health
// (out of defaultTileHealth) and whether the tile slot was destroyed this
// tick.
func encodeTileDamageUpdate(c TileDamageChange) []byte {
	buf := make([]byte, 18)
	binary.BigEndian.PutUint32(buf[0:4], uint32(c.Pos.X))
	binary.BigEndian.PutUint32(buf[4:8], uint32(c.Pos.Y))
	buf[8] = byte(c.Layer)
	binary.BigEndian.PutUint64(buf[9:17], math.Float64bits(c.Health))
	if c.Destroyed {
		buf[17] = 1
	}
	return buf
}

func encodeLiquidUpdate(m Modification) []byte {
	buf := make([]byte, 20)
	binary.BigEndian.PutUint32(buf[0:4], uint32(m.Pos.X))
	binary.BigEndian.PutUint32(buf[4:8], uint32(m.Pos.Y))
	binary.BigEndian.PutUint32(buf[8:12], uint32(m.Liquid))
	binary.BigEndian.PutUint64(buf[12:20], math.Float64bits(m.Level))
	return buf
}

// encodeEntitySnapshot serialises the wire-relevant subset of an entity's
// state: its type, position and version, enough for a client to render and
// order updates without a full game-object codec (spec.md §1 leaves per-type
// payload schemas out of scope).
func encodeEntitySnapshot(e *Entity) []byte {
	buf := make([]byte, 29)
	binary.BigEndian.PutUint32(buf[0:4], uint32(e.ID))
	buf[4] = byte(e.Type)
	binary.BigEndian.PutUint64(buf[5:13], math.Float64bits(e.Position[0]))
	binary.BigEndian.PutUint64(buf[13:21], math.Float64bits(e.Position[1]))
	binary.BigEndian.PutUint64(buf[21:29], e.Version)
	return buf
}

func encodeEntityDestroy(id EntityID) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(id))
	return buf
}

package world

import "github.com/sandboxverse/universe/server/dungeon"

// TileDamageKey identifies one damageable tile slot: a position and the
// layer (foreground/background) being damaged, as the original engine keyed
// its pendingTileDamageUpdates set.
type TileDamageKey struct {
	Pos   dungeon.Vec2I
	Layer Layer
}

// TileDamageEvent is one queued tile damage application pending resolution
// into a health change and a TileDamageUpdate notification (spec.md §4.E
// step 8, the same resolution pass entity damage goes through).
type TileDamageEvent struct {
	Pos    dungeon.Vec2I
	Layer  Layer
	Kind   DamageKind
	Amount float64
	Source EntityID
}

// TileDamageChange is the resolved effect of one tile's accumulated damage
// this tick: its remaining health (out of defaultTileHealth) and whether it
// was destroyed.
type TileDamageChange struct {
	Pos       dungeon.Vec2I
	Layer     Layer
	Health    float64
	Destroyed bool
}

// defaultTileHealth is the starting health budget for a freshly-damaged
// tile slot, restored once the slot is reported destroyed so later damage
// starts a fresh health track.
const defaultTileHealth = 100.0

// TileDamageManager queues tile damage events for one tick and resolves
// them into TileDamageChanges, tracking remaining health per
// (position, layer) across ticks the way DamageManager tracks per-entity
// notification dedupe.
type TileDamageManager struct {
	pending []TileDamageEvent
	health  map[TileDamageKey]float64
}

// NewTileDamageManager returns an empty TileDamageManager.
func NewTileDamageManager() *TileDamageManager {
	return &TileDamageManager{health: map[TileDamageKey]float64{}}
}

// Queue enqueues a tile damage event for the next Resolve call.
func (m *TileDamageManager) Queue(e TileDamageEvent) {
	m.pending = append(m.pending, e)
}

// Resolve drains the pending queue into TileDamageChanges, applying each
// event's amount against the slot's tracked health and resetting a
// destroyed slot back to full health so it can be damaged again.
func (m *TileDamageManager) Resolve() []TileDamageChange {
	changes := make([]TileDamageChange, 0, len(m.pending))
	touched := map[TileDamageKey]bool{}
	for _, e := range m.pending {
		key := TileDamageKey{Pos: e.Pos, Layer: e.Layer}
		health, ok := m.health[key]
		if !ok {
			health = defaultTileHealth
		}
		health -= e.Amount
		m.health[key] = health
		touched[key] = true
	}
	m.pending = m.pending[:0]
	for key := range touched {
		health := m.health[key]
		destroyed := health <= 0
		if destroyed {
			delete(m.health, key)
			health = 0
		}
		changes = append(changes, TileDamageChange{Pos: key.Pos, Layer: key.Layer, Health: health, Destroyed: destroyed})
	}
	return changes
}

package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sandboxverse/universe/server/geometry"
)

// EntityType tags an entity's kind from the closed set spec.md §3 requires.
// Polymorphism is over this closed capability set, not open reflection.
type EntityType int

const (
	EntityPlayer EntityType = iota
	EntityMonster
	EntityNpc
	EntityObject
	EntityItemDrop
	EntityProjectile
	EntityVehicle
	EntityPlant
	EntityPlantDrop
	EntityEffect
	EntityStagehand
)

// EntityID is a world-assigned 32-bit entity handle. 0 is reserved; negative
// values are reserved by convention for client-authoritative entities.
type EntityID int32

// Capabilities is a bitset of the capability-specific views an entity
// exposes (spec.md §3 "zero or more capability-specific views"). Checking a
// bit is the polymorphism mechanism in place of open reflection.
type Capabilities uint16

const (
	CapScripted Capabilities = 1 << iota
	CapTileBound
	CapPortrait
	CapChatty
	CapDamageable
	CapToolUser
	CapLoungeable
	CapInteractive
)

func (c Capabilities) Has(cap Capabilities) bool { return c&cap != 0 }

// Entity is a polymorphic simulated object. Capability-specific behavior is
// read off Caps rather than through a type switch over a closed interface
// set, mirroring the spec's "polymorphism is over a closed capability set".
type Entity struct {
	ID         EntityID
	Type       EntityType
	Position   mgl64.Vec2
	MetaBounds geometry.Rect
	Collision  *geometry.Rect
	UniqueID   string
	DamageTeam int
	Master     bool
	Caps       Capabilities

	// Version increments on every master-side mutation; slaves only apply
	// an incoming update if its version is >= the last one they applied
	// (spec.md §5 "Ordering guarantees").
	Version uint64
}

// EntityMap is an arena of entity slots plus a free list, the model spec.md
// §9 prescribes in place of raw references: all cross-entity links are by
// EntityID, never by pointer, so ownership is purely the world's.
type EntityMap struct {
	slots    []*Entity
	free     []EntityID
	nextID   EntityID
	uniqueID map[string]EntityID
}

// NewEntityMap returns an empty arena. IDs start at 1 (0 is reserved).
func NewEntityMap() *EntityMap {
	return &EntityMap{slots: make([]*Entity, 1), uniqueID: map[string]EntityID{}}
}

// ErrDuplicateUniqueID is the fatal precondition failure spec.md §3
// describes for adding an entity whose UniqueID is already live in the
// world.
type ErrDuplicateUniqueID struct{ UniqueID string }

func (e ErrDuplicateUniqueID) Error() string {
	return fmt.Sprintf("world: duplicate unique entity id %q", e.UniqueID)
}

// Add assigns e a fresh EntityID and inserts it into the arena. It panics
// with ErrDuplicateUniqueID if e.UniqueID is already taken: spec.md §3
// calls a uniqueness violation on add "a fatal precondition failure".
func (m *EntityMap) Add(e *Entity) EntityID {
	if e.UniqueID != "" {
		if _, exists := m.uniqueID[e.UniqueID]; exists {
			panic(ErrDuplicateUniqueID{UniqueID: e.UniqueID})
		}
	}
	var id EntityID
	if n := len(m.free); n > 0 {
		id = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		m.nextID++
		id = m.nextID
		for int(id) >= len(m.slots) {
			m.slots = append(m.slots, nil)
		}
	}
	e.ID = id
	m.slots[id] = e
	if e.UniqueID != "" {
		m.uniqueID[e.UniqueID] = id
	}
	return id
}

// Get returns the entity at id, or nil if it does not exist.
func (m *EntityMap) Get(id EntityID) *Entity {
	if id <= 0 || int(id) >= len(m.slots) {
		return nil
	}
	return m.slots[id]
}

// ByUniqueID resolves a string unique id to an entity id, per the
// messaging step's "resolving uniqueIds to entity ids" requirement.
func (m *EntityMap) ByUniqueID(uid string) (EntityID, bool) {
	id, ok := m.uniqueID[uid]
	return id, ok
}

// Remove deletes id from the arena, freeing its slot for reuse. EntityMap
// does no broadcasting; it only reports back whether id existed and what
// it was, so the caller (World) can broadcast a death if it chooses.
func (m *EntityMap) Remove(id EntityID) (*Entity, bool) {
	e := m.Get(id)
	if e == nil {
		return nil, false
	}
	if e.UniqueID != "" {
		delete(m.uniqueID, e.UniqueID)
	}
	m.slots[id] = nil
	m.free = append(m.free, id)
	return e, true
}

// Each calls f for every live entity, in ascending id order.
func (m *EntityMap) Each(f func(*Entity)) {
	for _, e := range m.slots {
		if e != nil {
			f(e)
		}
	}
}

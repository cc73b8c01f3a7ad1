// Package universe implements the multi-world orchestrator (spec.md §4.G):
// connection acceptance, world creation and lifecycle, warp and ship-flight
// resolution, bans, and the persistence cadence, sitting atop the
// world.WorldServerThread per-world simulation.
package universe

import (
	"fmt"

	"github.com/google/uuid"
)

// WorldHandleKind discriminates WorldHandle's three variants.
type WorldHandleKind int

const (
	WorldHandleCelestial WorldHandleKind = iota
	WorldHandleClientShip
	WorldHandleInstance
)

// CelestialCoordinate is an opaque system/planet location; equality is
// structural. The actual coordinate schema lives in the celestial database
// collaborator (spec.md §1 non-goal), so this type only carries what the
// core needs to key worlds and route requests by.
type CelestialCoordinate struct {
	System [3]int32
	Planet int32
	Satellite int32
}

// WorldHandle identifies one simulated world. Structural equality and
// hashing (spec.md §3) go through Key(); == on WorldHandle itself compares
// the UUID and Level pointers by identity, not by value.
type WorldHandle struct {
	Kind      WorldHandleKind
	Celestial CelestialCoordinate // WorldHandleCelestial
	ShipUUID  uuid.UUID           // WorldHandleClientShip

	Instance string     // WorldHandleInstance
	UUID     *uuid.UUID // WorldHandleInstance; nil denotes a shared instance
	Level    *int        // WorldHandleInstance
}

// key is the comparable projection used as a map key; WorldHandle itself
// holds pointer fields (UUID, Level) that == compares by address, so every
// internal map keys on key instead.
type key struct {
	kind      WorldHandleKind
	celestial CelestialCoordinate
	shipUUID  uuid.UUID
	instance  string
	uuid      uuid.UUID
	hasUUID   bool
	level     int
	hasLevel  bool
}

// Key returns h's comparable map-key projection.
func (h WorldHandle) Key() key {
	k := key{kind: h.Kind, celestial: h.Celestial, shipUUID: h.ShipUUID, instance: h.Instance}
	if h.UUID != nil {
		k.uuid = *h.UUID
		k.hasUUID = true
	}
	if h.Level != nil {
		k.level = *h.Level
		k.hasLevel = true
	}
	return k
}

// CelestialWorldID constructs a celestial world handle.
func CelestialWorldID(coord CelestialCoordinate) WorldHandle {
	return WorldHandle{Kind: WorldHandleCelestial, Celestial: coord}
}

// ClientShipWorldID constructs a client-ship world handle.
func ClientShipWorldID(u uuid.UUID) WorldHandle {
	return WorldHandle{Kind: WorldHandleClientShip, ShipUUID: u}
}

// InstanceWorldID constructs an instance world handle. A nil playerUUID
// denotes a shared instance.
func InstanceWorldID(instance string, playerUUID *uuid.UUID, level *int) WorldHandle {
	return WorldHandle{Kind: WorldHandleInstance, Instance: instance, UUID: playerUUID, Level: level}
}

// Shared reports whether an instance handle denotes a shared (non-per-player)
// instance. Only meaningful when Kind == WorldHandleInstance.
func (h WorldHandle) Shared() bool { return h.Kind == WorldHandleInstance && h.UUID == nil }

func (h WorldHandle) String() string {
	switch h.Kind {
	case WorldHandleCelestial:
		return fmt.Sprintf("CelestialWorld(%+v)", h.Celestial)
	case WorldHandleClientShip:
		return fmt.Sprintf("ClientShipWorld(%s)", h.ShipUUID)
	case WorldHandleInstance:
		s := "InstanceWorld(" + h.Instance
		if h.UUID != nil {
			s += "-" + h.UUID.String()
		}
		if h.Level != nil {
			s += fmt.Sprintf("-%d", *h.Level)
		}
		return s + ")"
	default:
		return "InvalidWorldHandle"
	}
}

// FileBaseName returns the on-disk base name spec.md §6 assigns to h's
// persisted world file, sans extension.
func (h WorldHandle) FileBaseName() string {
	switch h.Kind {
	case WorldHandleCelestial:
		return fmt.Sprintf("%d_%d_%d_%d_%d", h.Celestial.System[0], h.Celestial.System[1], h.Celestial.System[2], h.Celestial.Planet, h.Celestial.Satellite)
	case WorldHandleClientShip:
		return h.ShipUUID.String()
	case WorldHandleInstance:
		s := h.Instance
		if h.UUID != nil {
			s += "-" + h.UUID.String()
		}
		if h.Level != nil {
			s += fmt.Sprintf("-%d", *h.Level)
		}
		return s
	default:
		return "invalid"
	}
}

// PersistentFileName and TempFileName name the two file shapes an instance
// world may be saved to: a unique-<...>.world file or a <...>.tempworld
// scratch file (spec.md §6). Only meaningful for WorldHandleInstance;
// callers decide persistence per-instance-definition.
func (h WorldHandle) PersistentFileName() string {
	return "unique-" + h.FileBaseName() + ".world"
}

func (h WorldHandle) TempFileName() string {
	return h.FileBaseName() + ".tempworld"
}

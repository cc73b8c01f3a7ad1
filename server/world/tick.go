package world

import (
	"fmt"
	"time"

	"github.com/sandboxverse/universe/server/protocol"
)

// ErrUnknownEntity is returned (via EntityMessage.Reply) when a message's
// TargetUniqueID does not resolve to a live entity (spec.md §4.E step 2).
type ErrUnknownEntity struct{ UniqueID string }

func (e ErrUnknownEntity) Error() string {
	return fmt.Sprintf("world: unknown entity %q", e.UniqueID)
}

// QueueIncoming enqueues one client's packet for dispatch on the next Tick.
func (w *World) QueueIncoming(pkt IncomingPacket) {
	w.incoming = append(w.incoming, pkt)
}

// QueueEntityMessage enqueues a message addressed to an entity by its
// unique string id, resolved during step 2 of the next Tick.
func (w *World) QueueEntityMessage(msg EntityMessage) {
	w.entityMessages = append(w.entityMessages, msg)
}

// DrainOutgoing returns and clears every packet produced since the last
// call, for the owning WorldServerThread to route to clients.
func (w *World) DrainOutgoing() []OutgoingPacket {
	out := w.outgoing
	w.outgoing = nil
	return out
}

func (w *World) emit(client ClientID, kind int, body []byte) {
	w.outgoing = append(w.outgoing, OutgoingPacket{Client: client, Kind: kind, Body: body})
}

// QueueOutgoing appends a packet destined for client, the emission surface
// Handler implementations outside this package use (e.g. a packet
// dispatcher replying to a ChatSend).
func (w *World) QueueOutgoing(client ClientID, kind int, body []byte) {
	w.emit(client, kind, body)
}

// Tick runs one full simulation step in the 14-step order spec.md §4.E
// prescribes. WorldServerThread runs Tick under its own lock, the same lock
// Execute takes, so nothing here takes a lock.
func (w *World) Tick(dt time.Duration) {
	w.currentTick++

	// 1. Advance clock and per-entity interpolation trackers.
	w.advanceInterpolation(dt)

	// 2. Handle messaging.
	w.resolveEntityMessages()

	// 3. Process incoming packets per client.
	w.dispatchIncoming()

	// 4. Update entities.
	w.updateEntities(dt)

	// 5. Cellular liquid step (fidelity-gated).
	if _, ok := w.shouldRunThisStep("liquid"); ok {
		w.handler.StepLiquids(w)
	}

	// 6. Wire processor (gated).
	if _, ok := w.shouldRunThisStep("wire"); ok {
		w.handler.StepWires(w)
	}

	// 7. Falling-blocks agent (gated).
	if _, ok := w.shouldRunThisStep("falling"); ok {
		w.handler.StepFallingBlocks(w)
	}

	// 8. Damage manager.
	w.resolveDamage()

	// 9. Weather server step.
	if w.weather != nil {
		w.weather.Step(time.Now())
	}

	// 10. Sector paging. Freshly loaded sectors are generated on demand:
	// layout region sampling, light recalculation, and queued microdungeon
	// placement.
	freshSectors := w.pageSectors()
	for _, coord := range freshSectors {
		w.generateSector(coord)
	}
	for _, coord := range w.sectors.AgeOut(w.currentTick) {
		delete(w.sectorLight, coord)
		delete(w.sectorRegions, coord)
	}

	// 11. Spawner (gated), once per freshly-loaded sector.
	if _, ok := w.shouldRunThisStep("spawner"); ok {
		for _, coord := range freshSectors {
			w.handler.SpawnInSector(w, coord)
		}
	}

	// 12. Per-client outgoing queueing.
	w.netCache.Reset()
	w.queueClientUpdates()

	// 13. Timers.
	w.timers = stepTimers(w.timers)

	// 14. Expiry timer is evaluated by WorldServerThread.ShouldExpire, not
	// here: whether to stop the thread is the thread's concern, not the
	// simulation's.

	w.noClients = len(w.clients) == 0
	if !w.noClients {
		w.lastActivity = time.Now()
	}
}

func (w *World) advanceInterpolation(dt time.Duration) {
	// Entities interpolate toward their last network-authoritative state;
	// master-side entities have nothing to interpolate. Left as a hook
	// point for Handler.UpdateEntity, which receives dt directly.
	_ = dt
}

func (w *World) resolveEntityMessages() {
	msgs := w.entityMessages
	w.entityMessages = nil
	for _, msg := range msgs {
		id, ok := w.entities.ByUniqueID(msg.TargetUniqueID)
		if !ok {
			if msg.Reply != nil {
				msg.Reply(nil, ErrUnknownEntity{UniqueID: msg.TargetUniqueID})
			}
			continue
		}
		reply, err := w.handler.ScriptMessage(w, EntityMessage{TargetUniqueID: msg.TargetUniqueID, Name: msg.Name, Args: msg.Args})
		_ = id
		if msg.Reply != nil {
			msg.Reply(reply, err)
		}
	}
}

func (w *World) dispatchIncoming() {
	pkts := w.incoming
	w.incoming = nil
	for _, pkt := range pkts {
		if err := w.handler.DispatchPacket(w, pkt); err != nil {
			w.log.Warn("packet dispatch failed", "client", pkt.Client, "kind", pkt.Kind, "err", err)
		}
	}
}

func (w *World) updateEntities(dt time.Duration) {
	w.entities.Each(func(e *Entity) {
		for _, pkt := range w.handler.UpdateEntity(w, e, dt) {
			w.outgoing = append(w.outgoing, pkt)
		}
	})
}

func (w *World) resolveDamage() {
	for _, change := range w.damage.Resolve() {
		if !change.Notify {
			continue
		}
		if e := w.entities.Get(change.Target); e != nil {
			e.Version++
		}
	}
	w.damage.EndTick()

	w.dirtyTileDamage = append(w.dirtyTileDamage, w.tileDamage.Resolve()...)
}

// pageSectors ensures every active client window's sectors are marked
// loaded/touched for this tick, returning the ones that loaded for the
// first time (spec.md §4.E step 10: "Sector load triggers dungeon queue
// processing for microdungeons").
func (w *World) pageSectors() []SectorCoord {
	var fresh []SectorCoord
	for _, cw := range w.clients {
		area := cw.VisibleArea()
		fresh = append(fresh, w.sectors.TouchArea(
			int(area.Min[0]), int(area.Min[1]), int(area.Max[0]), int(area.Max[1]), w.currentTick)...)
	}
	return fresh
}

// AddEntity assigns e a fresh id and inserts it into the world, per spec.md
// §3 "created on add_entity".
func (w *World) AddEntity(e *Entity) EntityID {
	return w.entities.Add(e)
}

// RemoveEntity deletes id from the world and from every client's view
// state. If die is true it also emits an EntityDestroy to every connected
// client; if false the removal is silent.
func (w *World) RemoveEntity(id EntityID, die bool) (*Entity, bool) {
	e, ok := w.entities.Remove(id)
	if ok {
		for _, seen := range w.entityViewState {
			delete(seen, id)
		}
		if die {
			body := encodeEntityDestroy(id)
			for clientID := range w.clients {
				w.emit(clientID, int(protocol.KindEntityDestroy), body)
			}
		}
	}
	return e, ok
}

// Entity returns the live entity with the given id, or nil.
func (w *World) Entity(id EntityID) *Entity { return w.entities.Get(id) }

// SetClientWindow installs or updates a client's visible-area window.
func (w *World) SetClientWindow(cw ClientWindow) {
	c := cw
	w.clients[cw.ID] = &c
}

// RemoveClient drops a client's window, e.g. on warp-out or disconnect.
func (w *World) RemoveClient(id ClientID) {
	delete(w.clients, id)
	delete(w.entityViewState, id)
}

// NoClients reports whether the world currently has zero connected clients,
// as observed after the most recently completed Tick.
func (w *World) NoClients() bool { return w.noClients }

// IdleSince returns how long it has been since the world last had at least
// one connected client.
func (w *World) IdleSince() time.Duration { return time.Since(w.lastActivity) }

// SetTileProtection and SetTileProtectionEnabled forward to the world's
// ProtectionSet (spec.md §4.E "Protection").
func (w *World) SetTileProtection(dungeonID uint16, protected bool) {
	w.protection.SetTileProtection(dungeonID, protected)
}

func (w *World) SetTileProtectionEnabled(enabled bool) {
	w.protection.SetEnabled(enabled)
}

// QueueDamage enqueues a damage event for resolution on the next Tick.
func (w *World) QueueDamage(e DamageEvent) {
	w.damage.Queue(e)
}

// QueueTileDamage enqueues a tile damage event for resolution on the next
// Tick, mirroring the original engine's queueTileDamageUpdates: repeated
// damage to the same (position, layer) accumulates against that slot's
// tracked health until it is reported destroyed.
func (w *World) QueueTileDamage(e TileDamageEvent) {
	w.tileDamage.Queue(e)
}

// ScheduleTimer adds a timer that fires after the given number of ticks.
func (w *World) ScheduleTimer(ticks int, fire func()) {
	w.timers = append(w.timers, Timer{TicksRemaining: ticks, Fire: fire})
}

package world

import "time"

// Handler receives the tick-phase call-outs a World invokes during Tick
// for concerns this package treats as pluggable collaborators (script
// message execution, AI/movement, liquid/wire/falling-block simulation,
// spawning) rather than hard-wiring them in, mirroring the teacher's
// Handler/NopHandler split (grounded on
// _examples/dm-vev-adamant/server/world/handler_wrap.go).
type Handler interface {
	// DispatchPacket handles one client's incoming packet (tick step 3).
	DispatchPacket(w *World, pkt IncomingPacket) error
	// UpdateEntity runs script hooks/movement/AI for one entity (step 4),
	// returning any packets that update produced.
	UpdateEntity(w *World, e *Entity, dt time.Duration) []OutgoingPacket
	// StepLiquids runs the cellular liquid model over dirty cells (step 5).
	StepLiquids(w *World)
	// StepWires propagates signals across wire components (step 6).
	StepWires(w *World)
	// StepFallingBlocks converts unsupported granular tiles to entities
	// (step 7).
	StepFallingBlocks(w *World)
	// SpawnInSector attempts one spawn group in a newly active sector
	// (step 11).
	SpawnInSector(w *World, coord SectorCoord)
	// ScriptMessage executes one scripted world message forwarded from the
	// universe server (step 2), returning its reply payload.
	ScriptMessage(w *World, msg EntityMessage) ([]byte, error)
}

// NopHandler implements Handler with every call-out a no-op, the default
// installed by New so a World is usable (if inert) before a real Handler is
// attached.
type NopHandler struct{}

func (NopHandler) DispatchPacket(*World, IncomingPacket) error                { return nil }
func (NopHandler) UpdateEntity(*World, *Entity, time.Duration) []OutgoingPacket { return nil }
func (NopHandler) StepLiquids(*World)                                          {}
func (NopHandler) StepWires(*World)                                            {}
func (NopHandler) StepFallingBlocks(*World)                                    {}
func (NopHandler) SpawnInSector(*World, SectorCoord)                           {}
func (NopHandler) ScriptMessage(*World, EntityMessage) ([]byte, error)         { return nil, nil }

// Handle installs h as the world's tick-phase collaborator. A nil h
// restores NopHandler.
func (w *World) Handle(h Handler) {
	if h == nil {
		h = NopHandler{}
	}
	w.handler = h
}

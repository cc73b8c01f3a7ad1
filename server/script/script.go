// Package script defines the scripting sandbox call-out interface spec.md
// §6 treats as an external boundary: the core never interprets script
// bytecode itself, it only exposes a narrow message-passing contract a
// Module implementation is expected to honor.
package script

import (
	"errors"

	"github.com/sandboxverse/universe/server/rpc"
)

// Host is the set of world operations a loaded script module may call back
// into. Implementations run on the owning WorldServerThread and must not
// block past a single tick (spec.md §9 design notes: promises resolved off
// the world lock).
type Host interface {
	// FindUniqueEntity resolves a script-visible unique id to the engine's
	// internal entity id, mirroring world.EntityMap.ByUniqueID.
	FindUniqueEntity(uniqueID string) (entityID uint32, ok bool)

	// SendEntityMessage delivers a named message with opaque args to the
	// entity behind uniqueID and returns a promise for its reply, matching
	// World's entity_messages drain (spec.md §4.E step 2).
	SendEntityMessage(uniqueID, name string, args []byte) rpc.Promise[[]byte]

	// Log writes a script-originated diagnostic line through the owning
	// world's logger.
	Log(level, message string)
}

// ErrModuleNotLoaded is returned by operations on a Module that failed
// Init or was never loaded.
var ErrModuleNotLoaded = errors.New("script: module not loaded")

// Module is one loaded script's lifecycle: init/update/uninit plus
// message dispatch, the shape spec.md §6 calls out as the sandbox's
// contract regardless of backing runtime.
type Module interface {
	// Init runs once after load, before the first Update.
	Init(h Host) error
	// Update runs once per world tick, receiving the elapsed wall time in
	// milliseconds since the previous call.
	Update(dtMillis int64) error
	// Dispatch delivers a world- or script-originated message by name to
	// the module and returns its reply bytes.
	Dispatch(name string, args []byte) ([]byte, error)
	// Uninit runs once before the module is unloaded.
	Uninit() error
}

// NopModule satisfies Module without running any script code; it is the
// default for worlds that load no script (spec.md §4.H: the interface
// remains the contract, a no-op host satisfies it for callers that don't
// need a scripting backend).
type NopModule struct{}

func (NopModule) Init(Host) error                        { return nil }
func (NopModule) Update(int64) error                      { return nil }
func (NopModule) Dispatch(string, []byte) ([]byte, error) { return nil, ErrModuleNotLoaded }
func (NopModule) Uninit() error                           { return nil }

var _ Module = NopModule{}

package script

import (
	"fmt"
	"sync"

	"github.com/sandboxverse/universe/server/rpc"
	"github.com/wasmerio/wasmer-go/wasmer"
)

// WasmHost wraps one wasmer-go instance per loaded script module, exposing
// init/update/uninit/dispatch as exported WASM functions and
// find_unique_entity/send_entity_message/log as host-imported functions.
// find_unique_entity answers synchronously; send_entity_message obtains an
// rpc.Promise from the Host but returns a fixed token and does not deliver
// the reply back to the module (spec.md §4.H).
type WasmHost struct {
	mu       sync.Mutex
	engine   *wasmer.Engine
	store    *wasmer.Store
	host     Host
	memory   *wasmer.Memory
	instance *wasmer.Instance

	initFn   wasmer.NativeFunction
	updateFn wasmer.NativeFunction
	uninitFn wasmer.NativeFunction
	dispatch wasmer.NativeFunction
}

// NewWasmHost compiles and instantiates wasmBytes against h, wiring the
// host-imported functions a script module may call into the world.
func NewWasmHost(wasmBytes []byte, h Host) (*WasmHost, error) {
	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)

	module, err := wasmer.NewModule(store, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("script: compile module: %w", err)
	}

	wh := &WasmHost{engine: engine, store: store, host: h}

	imports := wasmer.NewImportObject()
	imports.Register("env", map[string]wasmer.IntoExtern{
		"find_unique_entity": wasmer.NewFunction(
			store,
			wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I32, wasmer.I32), wasmer.NewValueTypes(wasmer.I32, wasmer.I32)),
			wh.findUniqueEntity,
		),
		"send_entity_message": wasmer.NewFunction(
			store,
			wasmer.NewFunctionType(
				wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32),
				wasmer.NewValueTypes(wasmer.I32),
			),
			wh.sendEntityMessage,
		),
		"log": wasmer.NewFunction(
			store,
			wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32), wasmer.NewValueTypes()),
			wh.hostLog,
		),
	})

	instance, err := wasmer.NewInstance(module, imports)
	if err != nil {
		return nil, fmt.Errorf("script: instantiate module: %w", err)
	}
	wh.instance = instance

	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, fmt.Errorf("script: module exports no memory: %w", err)
	}
	wh.memory = mem

	wh.initFn, err = instance.Exports.GetFunction("init")
	if err != nil {
		return nil, fmt.Errorf("script: module exports no init: %w", err)
	}
	wh.updateFn, err = instance.Exports.GetFunction("update")
	if err != nil {
		return nil, fmt.Errorf("script: module exports no update: %w", err)
	}
	wh.uninitFn, err = instance.Exports.GetFunction("uninit")
	if err != nil {
		return nil, fmt.Errorf("script: module exports no uninit: %w", err)
	}
	wh.dispatch, err = instance.Exports.GetFunction("dispatch")
	if err != nil {
		return nil, fmt.Errorf("script: module exports no dispatch: %w", err)
	}

	return wh, nil
}

func (w *WasmHost) Init(h Host) error {
	w.mu.Lock()
	w.host = h
	w.mu.Unlock()
	_, err := w.initFn()
	return err
}

func (w *WasmHost) Update(dtMillis int64) error {
	_, err := w.updateFn(int32(dtMillis))
	return err
}

func (w *WasmHost) Uninit() error {
	_, err := w.uninitFn()
	return err
}

// Dispatch writes name+args into the module's linear memory and calls its
// exported dispatch function, returning whatever reply bytes it writes
// back. The memory layout (a simple bump region the module manages) is a
// convention between host and module, not a format this package enforces.
func (w *WasmHost) Dispatch(name string, args []byte) ([]byte, error) {
	namePtr, nameLen := w.writeBytes([]byte(name))
	// args follow name in the scratch region so neither overwrites the other.
	argsPtr := namePtr + nameLen
	argsLen := int32(copy(w.memory.Data()[argsPtr:], args))

	replyPtr, err := w.dispatch(namePtr, nameLen, argsPtr, argsLen)
	if err != nil {
		return nil, fmt.Errorf("script: dispatch %q: %w", name, err)
	}
	ptr, _ := replyPtr.(int32)
	return w.readCString(ptr), nil
}

func (w *WasmHost) writeBytes(b []byte) (int32, int32) {
	data := w.memory.Data()
	off := int32(0) // convention: module reserves a scratch region at offset 0
	n := copy(data[off:], b)
	return off, int32(n)
}

func (w *WasmHost) readCString(ptr int32) []byte {
	if ptr == 0 {
		return nil
	}
	data := w.memory.Data()
	end := ptr
	for int(end) < len(data) && data[end] != 0 {
		end++
	}
	out := make([]byte, end-ptr)
	copy(out, data[ptr:end])
	return out
}

// findUniqueEntity is the env.find_unique_entity import: (ptr, len) -> (id, ok).
func (w *WasmHost) findUniqueEntity(args []wasmer.Value) ([]wasmer.Value, error) {
	ptr, length := args[0].I32(), args[1].I32()
	data := w.memory.Data()
	uniqueID := string(data[ptr : ptr+length])

	id, ok := w.host.FindUniqueEntity(uniqueID)
	okInt := int32(0)
	if ok {
		okInt = 1
	}
	return []wasmer.Value{wasmer.NewI32(int32(id)), wasmer.NewI32(okInt)}, nil
}

// sendEntityMessage is the env.send_entity_message import: (idPtr, idLen,
// namePtr, nameLen, argsPtr, argsLen) -> replyToken. The reply is resolved
// asynchronously; replyToken is opaque to the module and only meaningful
// to a matching host-side poll, which this package does not define further
// (spec.md §4.H treats this as additive, not prescriptive, wiring).
func (w *WasmHost) sendEntityMessage(args []wasmer.Value) ([]wasmer.Value, error) {
	data := w.memory.Data()
	idPtr, idLen := args[0].I32(), args[1].I32()
	namePtr, nameLen := args[2].I32(), args[3].I32()
	argsPtr, argsLen := args[4].I32(), args[5].I32()

	uniqueID := string(data[idPtr : idPtr+idLen])
	name := string(data[namePtr : namePtr+nameLen])
	msgArgs := append([]byte(nil), data[argsPtr:argsPtr+argsLen]...)

	promise := w.host.SendEntityMessage(uniqueID, name, msgArgs)
	w.trackPromise(promise)
	return []wasmer.Value{wasmer.NewI32(1)}, nil
}

// trackPromise is a hook point for a module-specific reply delivery
// mechanism (e.g. queuing the resolved bytes for the next dispatch call);
// left empty here since the wire format between host and module is a
// convention the loaded module defines.
func (w *WasmHost) trackPromise(rpc.Promise[[]byte]) {}

func (w *WasmHost) hostLog(args []wasmer.Value) ([]wasmer.Value, error) {
	data := w.memory.Data()
	levelPtr, levelLen := args[0].I32(), args[1].I32()
	msgPtr, msgLen := args[2].I32(), args[3].I32()
	w.host.Log(string(data[levelPtr:levelPtr+levelLen]), string(data[msgPtr:msgPtr+msgLen]))
	return nil, nil
}

var _ Module = (*WasmHost)(nil)

package universe

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/sandboxverse/universe/server/world"
	"golang.org/x/sync/singleflight"
)

// PromiseState is trigger_world_creation's three-state result (spec.md
// §4.G).
type PromiseState int

const (
	PromisePending PromiseState = iota
	PromiseReady
	PromiseFailed
)

// Loader constructs a running WorldServerThread for h, loading from disk if
// present or building fresh from a template otherwise (spec.md §4.G "First
// call enqueues a worker job that..."). Errors are logged by the caller and
// transition the promise to Failed.
type Loader func(h WorldHandle) (*world.WorldServerThread, error)

// WorldRegistry tracks one WorldCreationPromise per distinct WorldHandle
// and the live WorldServerThread once ready, deduplicating concurrent warps
// into the same not-yet-created world onto a single worker job via
// singleflight, matching the teacher's generatorQueue/generatorWorker
// dedupe intent (SPEC_FULL.md §4.G).
type WorldRegistry struct {
	log    *slog.Logger
	load   Loader
	group  singleflight.Group

	mu      sync.Mutex
	threads map[key]*world.WorldServerThread
	states  map[key]PromiseState
	errs    map[key]error

	// OnFailed, if set, is called (outside any lock) whenever a world
	// fails to create, so the universe server can schedule affected
	// clients for disconnection (spec.md §4.G: "for client ship worlds,
	// all clients with that ship are scheduled for disconnection").
	OnFailed func(h WorldHandle, err error)
}

// NewWorldRegistry returns a registry backed by load.
func NewWorldRegistry(log *slog.Logger, load Loader) *WorldRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &WorldRegistry{
		log:     log,
		load:    load,
		threads: map[key]*world.WorldServerThread{},
		states:  map[key]PromiseState{},
		errs:    map[key]error{},
	}
}

// Trigger implements trigger_world_creation(world_id): the first call for a
// handle enqueues (via singleflight, so concurrent callers share one job) a
// background load; subsequent calls observe Pending/Ready/Failed without
// blocking.
func (r *WorldRegistry) Trigger(h WorldHandle) (thread any, state PromiseState) {
	k := h.Key()

	r.mu.Lock()
	if st, ok := r.states[k]; ok {
		t := r.threads[k]
		r.mu.Unlock()
		return t, st
	}
	r.states[k] = PromisePending
	r.mu.Unlock()

	go func() {
		_, _, _ = r.group.Do(fmt.Sprintf("%+v", k), func() (any, error) {
			t, err := r.load(h)
			r.mu.Lock()
			if err != nil {
				r.states[k] = PromiseFailed
				r.errs[k] = err
			} else {
				r.threads[k] = t
				r.states[k] = PromiseReady
			}
			r.mu.Unlock()
			if err != nil {
				r.log.Error("world creation failed", "world", h.String(), "err", err)
				if r.OnFailed != nil {
					r.OnFailed(h, err)
				}
			}
			return t, err
		})
	}()

	return nil, PromisePending
}

// AsCreator adapts r to the WorldCreator function signature ResolveWarp
// expects.
func (r *WorldRegistry) AsCreator() WorldCreator {
	return r.Trigger
}

// Thread returns the live thread for h, if its promise has resolved Ready.
func (r *WorldRegistry) Thread(h WorldHandle) (*world.WorldServerThread, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[h.Key()]
	return t, ok
}

// Err returns the failure reason for h, if its promise resolved Failed.
func (r *WorldRegistry) Err(h WorldHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errs[h.Key()]
}

// Active returns every WorldHandle with a currently-ready thread.
func (r *WorldRegistry) Active() []WorldHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	handles := make([]WorldHandle, 0, len(r.threads))
	for k := range r.threads {
		handles = append(handles, handleFromKey(k))
	}
	return handles
}

func handleFromKey(k key) WorldHandle {
	h := WorldHandle{Kind: k.kind, Celestial: k.celestial, ShipUUID: k.shipUUID, Instance: k.instance}
	if k.hasUUID {
		u := k.uuid
		h.UUID = &u
	}
	if k.hasLevel {
		l := k.level
		h.Level = &l
	}
	return h
}

// Evict stops and forgets h's thread, e.g. once WorldServerThread.ShouldExpire
// is true and the universe's reaper confirms no pending warp targets it.
func (r *WorldRegistry) Evict(h WorldHandle) {
	k := h.Key()
	r.mu.Lock()
	t := r.threads[k]
	delete(r.threads, k)
	delete(r.states, k)
	delete(r.errs, k)
	r.mu.Unlock()
	if t != nil {
		t.Stop()
	}
}

package world

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// ServerGlobalTimestep is the default fixed tick duration every
// WorldServerThread steps at (spec.md §4.F).
const ServerGlobalTimestep = 50 * time.Millisecond

// maxCatchUpSteps bounds how many ticks a thread will run back-to-back to
// absorb wall-clock skew after a late wake-up, per spec.md §4.F "wall-clock
// skew is absorbed by running up to a bounded number of catch-up steps".
const maxCatchUpSteps = 8

// UpdateAction is invoked once after every successfully completed tick, the
// hook set_update_action installs (spec.md §4.F).
type UpdateAction func(*World)

// InstanceExpiry configures when a WorldServerThread for an instance world
// becomes eligible to stop: spec.md §4.F "should_expire()".
type InstanceExpiry struct {
	// IdleDeadline is how long the world must have had zero clients before
	// it is eligible to expire.
	IdleDeadline time.Duration
	// WallClockDeadline, if nonzero, additionally expires a temp instance
	// world once this much wall-clock time has passed since the thread was
	// created, even before IdleDeadline; the world must still have no
	// clients and no pending messages.
	WallClockDeadline time.Duration
	// PendingMessages reports whether any world messages are still
	// in-flight; should_expire additionally requires this to be false.
	PendingMessages func() bool
}

// ThreadConfig bundles a WorldServerThread's construction-time dependencies.
type ThreadConfig struct {
	Log      *slog.Logger
	Timestep time.Duration
	// Pause is shared by reference with the universe server (spec.md §4.F:
	// "Pause flag is *atomic.Bool shared by reference with the universe
	// server"). If nil, a private flag is allocated (never paused
	// externally).
	Pause *atomic.Bool
	// Timescale is likewise shared; 0 is treated as 1 (real time).
	Timescale *atomic.Uint64 // bits of a float64, via math.Float64bits
	Expiry    *InstanceExpiry
}

// WorldServerThread owns one World and its dedicated tick loop, plus the
// per-client packet queues. A client marked errored through
// MarkClientErrored has its further packets dropped. Packet dispatch does
// not recover from a handler panic: like any other panic during a world
// step, it ends the thread, which is then reaped by the universe server.
type WorldServerThread struct {
	conf  ThreadConfig
	log   *slog.Logger
	world *World

	mu sync.Mutex

	started   atomic.Bool
	closing   chan struct{}
	running   sync.WaitGroup
	closeOnce sync.Once

	errorOccurred atomic.Bool
	lastError     atomic.Value // error

	erroredClients sync.Map // ClientID -> struct{}

	updateAction atomic.Value // UpdateAction

	createdAt time.Time
}

// NewWorldServerThread wraps w in a thread. The simulation does not begin
// stepping until Start is called, matching the "lazy until first tick"
// distinction spec.md §9/original_source draws between an active world and
// a placeholder kept only for routing.
func NewWorldServerThread(w *World, conf ThreadConfig) *WorldServerThread {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Timestep <= 0 {
		conf.Timestep = ServerGlobalTimestep
	}
	if conf.Pause == nil {
		conf.Pause = &atomic.Bool{}
	}
	return &WorldServerThread{
		conf:      conf,
		log:       conf.Log,
		world:     w,
		closing:   make(chan struct{}),
		createdAt: time.Now(),
	}
}

// SetUpdateAction installs fn to run after each completed tick.
func (t *WorldServerThread) SetUpdateAction(fn UpdateAction) {
	t.updateAction.Store(fn)
}

// World returns the wrapped World. Callers outside the thread's own
// goroutine must use Execute, not this accessor, to mutate it.
func (t *WorldServerThread) World() *World { return t.world }

// Start launches the thread's tick loop goroutine. Safe to call once; a
// second call is a no-op.
func (t *WorldServerThread) Start() {
	if !t.started.CompareAndSwap(false, true) {
		return
	}
	t.running.Add(1)
	go t.loop()
}

func (t *WorldServerThread) loop() {
	defer t.running.Done()
	defer func() {
		if r := recover(); r != nil {
			t.errorOccurred.Store(true)
			err, ok := r.(error)
			if !ok {
				err = errors.New("world thread panic")
			}
			t.lastError.Store(err)
			t.log.Error("world thread step panicked, thread exiting", "err", err)
		}
	}()

	ticker := time.NewTicker(t.conf.Timestep)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-t.closing:
			return
		case now := <-ticker.C:
			if t.conf.Pause.Load() {
				last = now
				continue
			}
			elapsed := now.Sub(last)
			steps := int(elapsed / t.conf.Timestep)
			if steps > maxCatchUpSteps {
				steps = maxCatchUpSteps
			}
			if steps < 1 {
				steps = 1
			}
			last = now
			dt := t.scaledTimestep()
			for i := 0; i < steps; i++ {
				t.mu.Lock()
				t.world.Tick(dt)
				t.mu.Unlock()
				if fn, ok := t.updateAction.Load().(UpdateAction); ok && fn != nil {
					fn(t.world)
				}
			}
		}
	}
}

// scaledTimestep is the simulated time one step advances: the fixed
// timestep multiplied by the universe's shared timescale. The loop still
// wakes at the real-time Timestep cadence; only the simulated dt stretches
// or shrinks.
func (t *WorldServerThread) scaledTimestep() time.Duration {
	if t.conf.Timescale == nil {
		return t.conf.Timestep
	}
	scale := math.Float64frombits(t.conf.Timescale.Load())
	if scale <= 0 || scale == 1 {
		return t.conf.Timestep
	}
	return time.Duration(float64(t.conf.Timestep) * scale)
}

// Stop signals the loop to exit and blocks until it has. Safe to call once;
// safe to call even if Start was never called.
func (t *WorldServerThread) Stop() {
	t.closeOnce.Do(func() {
		close(t.closing)
	})
	t.running.Wait()
}

// ErrorOccurred reports whether the world step itself panicked, at which
// point the thread has already exited and must be reaped by the universe
// server (spec.md §4.F, §7 "Errors at the boundary of a world thread").
func (t *WorldServerThread) ErrorOccurred() (error, bool) {
	if !t.errorOccurred.Load() {
		return nil, false
	}
	err, _ := t.lastError.Load().(error)
	return err, true
}

// PushIncomingPacket enqueues one client's packet for the next tick,
// skipping clients already marked errored (spec.md §4.F: "no further
// packets from that client are handled").
func (t *WorldServerThread) PushIncomingPacket(pkt IncomingPacket) {
	if _, errored := t.erroredClients.Load(pkt.Client); errored {
		return
	}
	t.Execute(func(w *World) {
		w.QueueIncoming(pkt)
	})
}

// MarkClientErrored records client as errored, so subsequent
// PushIncomingPacket calls for it are silently dropped while the
// thread continues serving every other client.
func (t *WorldServerThread) MarkClientErrored(client ClientID) {
	t.erroredClients.Store(client, struct{}{})
}

// ClientErrored reports whether client has been marked errored.
func (t *WorldServerThread) ClientErrored(client ClientID) bool {
	_, errored := t.erroredClients.Load(client)
	return errored
}

// PullOutgoingPackets drains and returns every packet queued for clients
// since the last call.
func (t *WorldServerThread) PullOutgoingPackets() []OutgoingPacket {
	var out []OutgoingPacket
	t.Execute(func(w *World) {
		out = w.DrainOutgoing()
	})
	return out
}

// Execute runs fn against the world under the thread's lock, serializing it
// against the tick loop exactly as spec.md §4.F's execute_action does.
func (t *WorldServerThread) Execute(fn func(*World)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.world)
}

// ShouldExpire reports whether this thread is eligible to be stopped and
// reaped: all clients have left, the configured idle (or, for temp
// instances, wall-clock) deadline has elapsed, and no world messages remain
// pending (spec.md §4.F "Instance world expiry").
func (t *WorldServerThread) ShouldExpire() bool {
	if t.conf.Expiry == nil {
		return false
	}
	if !t.world.NoClients() {
		return false
	}
	if t.conf.Expiry.PendingMessages != nil && t.conf.Expiry.PendingMessages() {
		return false
	}
	if t.conf.Expiry.WallClockDeadline > 0 && time.Since(t.createdAt) >= t.conf.Expiry.WallClockDeadline {
		return true
	}
	return t.world.IdleSince() >= t.conf.Expiry.IdleDeadline
}

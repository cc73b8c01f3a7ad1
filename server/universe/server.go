package universe

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/sandboxverse/universe/server/config"
	"github.com/sandboxverse/universe/server/geometry"
	"github.com/sandboxverse/universe/server/protocol"
	"github.com/sandboxverse/universe/server/rpc"
	"github.com/sandboxverse/universe/server/storage"
	"github.com/sandboxverse/universe/server/world"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// SpeciesInfo describes one playable species' intro-instance configuration.
type SpeciesInfo struct {
	IntroInstance string // empty if the species has no intro instance
}

// Settings bundles config.Config with the species registry and a few
// runtime knobs the §4.G acceptance/warp logic needs beyond what the
// config package itself validates.
type Settings struct {
	config.Config
	SpeciesTable     map[string]SpeciesInfo
	AcceptPoolSize   int
	WorkerPoolSize   int
	MainWakeupBudget time.Duration
	// ExpectedAssetsDigest is the blake3 digest of the asset blob store's
	// manifest bytes clients must match unless the server's
	// AllowAssetsMismatch is set (spec.md §4.G step 3; SPEC_FULL.md §6).
	// ClientConnect carries no client-side allow flag, so a client cannot
	// waive the check.
	ExpectedAssetsDigest []byte
}

// ServerUser looks up an account in the configured serverUsers table.
func (s Settings) ServerUser(account string) (config.ServerUser, bool) {
	u, ok := s.ServerUsers[account]
	return u, ok
}

// Species looks up a species' intro-instance configuration.
func (s Settings) Species(name string) (SpeciesInfo, bool) {
	info, ok := s.SpeciesTable[name]
	return info, ok
}

// clientContextPath / universeDatPath / tempWorldsIndexPath name the
// persisted files spec.md §6 lists.
func (u *UniverseServer) clientContextPath(id uuid.UUID) string {
	return u.conf.StorageDir + "/" + id.String() + ".clientcontext"
}
func (u *UniverseServer) universeDatPath() string     { return u.conf.StorageDir + "/universe.dat" }
func (u *UniverseServer) tempWorldsIndexPath() string { return u.conf.StorageDir + "/tempworlds.index" }

var clientContextSchema = storage.Schema{Kind: "clientcontext", CurrentVersion: 1}
var universeDatSchema = storage.Schema{Kind: "universe", CurrentVersion: 1}
var tempWorldsSchema = storage.Schema{Kind: "tempworlds", CurrentVersion: 1}

// universeDat is the persisted shape of universe.dat (spec.md §6).
type universeDat struct {
	TimeMS int64 `json:"timeMs"`
}

// tempWorldEntry is one row of tempworlds.index: when the world's thread
// last shut down, and after how long its .tempworld file may be deleted.
type tempWorldEntry struct {
	ShutdownMS    int64 `json:"shutdownMs"`
	DeleteAfterMS int64 `json:"deleteAfterMs"`
}

// tempWorldDeleteAfter is how long an evicted temp instance world's file
// sticks around before cleanup may remove it.
const tempWorldDeleteAfter = 24 * time.Hour

// UniverseServer orchestrates connection acceptance, world lifecycle, warp
// and flight resolution, bans and persistence (spec.md §4.G). Concurrency
// matches spec.md §5: one universe goroutine runs the periodic loop, a
// clientsMu rw-mutex guards client iteration separately from mainMu, which
// guards the pending-warp queue and the temp-world index (the ban list and
// world registry carry their own locks).
type UniverseServer struct {
	conf Settings
	log  *slog.Logger
	uuid uuid.UUID

	mainMu sync.Mutex

	clientsMu sync.RWMutex
	clients   map[ClientConnectionID]*ClientContext

	idMap    *rpc.IdMap
	bans     *BanList
	registry *WorldRegistry

	limiters sync.Map // remote IP -> *rate.Limiter

	pause     atomic.Bool
	timescale atomic.Uint64 // math.Float64bits

	clockMS atomic.Int64

	stopping chan struct{}
	stopOnce sync.Once
	running  sync.WaitGroup

	pendingDisconnects chan ClientConnectionID

	warps []*pendingWarp

	tempWorlds map[string]tempWorldEntry // FileBaseName -> index row, under mainMu
}

// New constructs a UniverseServer. load is the world loader passed to the
// backing WorldRegistry (spec.md §4.G "trigger_world_creation").
func New(conf Settings, load Loader) *UniverseServer {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	u := &UniverseServer{
		conf:               conf,
		log:                conf.Log,
		uuid:                uuid.New(),
		clients:             map[ClientConnectionID]*ClientContext{},
		idMap:               rpc.NewIdMap(int64(MinClientConnectionID), int64(MaxClientConnectionID)),
		bans:                NewBanList(conf.BannedIPs, conf.BannedUuids),
		stopping:            make(chan struct{}),
		pendingDisconnects:  make(chan ClientConnectionID, 256),
	}
	u.registry = NewWorldRegistry(conf.Log, load)
	u.registry.OnFailed = u.onWorldCreationFailed
	u.timescale.Store(math.Float64bits(1.0))

	u.tempWorlds = map[string]tempWorldEntry{}
	if err := storage.LoadJSON(tempWorldsSchema, u.tempWorldsIndexPath(), &u.tempWorlds); err != nil && !os.IsNotExist(err) {
		u.log.Error("failed to load temp-world index, starting empty", "err", err)
	}
	return u
}

// markTempWorldStopped records an evicted temp instance world in the index
// persisted as tempworlds.index (spec.md §6), so a later cleanup pass knows
// when its .tempworld file becomes safe to delete.
func (u *UniverseServer) markTempWorldStopped(h WorldHandle) {
	now := time.Now().UnixMilli()
	u.mainMu.Lock()
	u.tempWorlds[h.FileBaseName()] = tempWorldEntry{
		ShutdownMS:    now,
		DeleteAfterMS: now + tempWorldDeleteAfter.Milliseconds(),
	}
	u.mainMu.Unlock()
}

// Timescale returns the universe's current shared timescale multiplier.
func (u *UniverseServer) Timescale() float64 {
	return math.Float64frombits(u.timescale.Load())
}

// SetTimescale updates the shared timescale every world thread reads.
func (u *UniverseServer) SetTimescale(v float64) {
	u.timescale.Store(math.Float64bits(v))
}

// TimescaleFlag exposes the shared timescale bits by reference so a
// world's Loader can hand the same atomic to each WorldServerThread it
// constructs (spec.md §4.F ThreadConfig.Timescale).
func (u *UniverseServer) TimescaleFlag() *atomic.Uint64 { return &u.timescale }

// acceptBurst is the per-IP burst of pending handshakes allowed before
// limiterFor starts refusing, when Settings.AcceptPoolSize doesn't set one.
const acceptBurst = 8

// limiterFor returns the per-source-IP rate limiter bounding how fast one
// address may open handshakes (spec.md §5: "a global cap on pending accepts
// is enforced"; the per-IP limiter keeps one flooding address from eating
// the whole cap).
func (u *UniverseServer) limiterFor(ip string) *rate.Limiter {
	if l, ok := u.limiters.Load(ip); ok {
		return l.(*rate.Limiter)
	}
	burst := u.conf.AcceptPoolSize
	if burst <= 0 {
		burst = acceptBurst
	}
	l, _ := u.limiters.LoadOrStore(ip, rate.NewLimiter(rate.Every(time.Second), burst))
	return l.(*rate.Limiter)
}

// onWorldCreationFailed implements spec.md §4.G's "for client ship worlds,
// all clients with that ship are scheduled for disconnection" on a failed
// world creation.
func (u *UniverseServer) onWorldCreationFailed(h WorldHandle, err error) {
	if h.Kind != WorldHandleClientShip {
		return
	}
	u.clientsMu.RLock()
	defer u.clientsMu.RUnlock()
	for _, c := range u.clients {
		if c.PlayerUUID == h.ShipUUID {
			select {
			case u.pendingDisconnects <- c.ConnectionID:
			default:
				u.log.Warn("pending-disconnect queue full, dropping", "client", c.ConnectionID)
			}
		}
	}
}

// loadOrCreateClient restores a persisted ClientContext for playerUUID, or
// builds a fresh one if no file exists yet (spec.md §4.G step 4).
func (u *UniverseServer) loadOrCreateClient(playerUUID uuid.UUID) *ClientContext {
	var persisted persistedClientContext
	err := storage.LoadJSON(clientContextSchema, u.clientContextPath(playerUUID), &persisted)
	if err == nil {
		c := fromPersisted(persisted)
		c.PlayerUUID = playerUUID
		return c
	}
	return &ClientContext{PlayerUUID: playerUUID}
}

// FlushClientContext persists client to its <uuid>.clientcontext file.
func (u *UniverseServer) FlushClientContext(client *ClientContext) error {
	return storage.SaveJSON(clientContextSchema, u.clientContextPath(client.PlayerUUID), client.toPersisted())
}

// placeNewClient implements spec.md §4.G step 5: place the client onto its
// ship-coordinate system world, then queue a warp to its revive warp (or
// the species intro instance if applicable, else its own ship).
func (u *UniverseServer) placeNewClient(client *ClientContext) {
	initial := Alias(WarpAliasOwnShip)
	if client.ReviveWarp != nil {
		initial = *client.ReviveWarp
	} else if info, ok := u.conf.Species(client.Species); ok && info.IntroInstance != "" && !client.IntroComplete {
		initial = ToWorld(InstanceWorldID(info.IntroInstance, &client.PlayerUUID, nil), nil)
	}
	client.CurrentWorld = CelestialWorldID(client.ShipCoordinate)
	u.QueueWarp(client, initial)
}

// pendingWarp tracks one client's in-flight warp resolution across ticks
// (spec.md §4.G "Resolution pipeline", §8 invariant 8).
type pendingWarp struct {
	client  *ClientContext
	action  WarpAction
	attempt int
}

// QueueWarp begins resolving action for client; ProcessWarps advances it on
// every main-loop tick until it resolves.
func (u *UniverseServer) QueueWarp(client *ClientContext, action WarpAction) {
	u.mainMu.Lock()
	defer u.mainMu.Unlock()
	u.warps = append(u.warps, &pendingWarp{client: client, action: action})
}

// ProcessWarps advances every pending warp by one resolution attempt,
// removing those that resolve (whether to their target or a fallback) and
// sending each a PlayerWarpResult via send.
func (u *UniverseServer) ProcessWarps(send func(*ClientContext, bool, WarpAction, bool)) {
	u.mainMu.Lock()
	remaining := u.warps[:0]
	pending := append([]*pendingWarp(nil), u.warps...)
	u.mainMu.Unlock()

	for _, pw := range pending {
		target, spawn, ready, fellBack, err := ResolveWarp(pw.client, pw.action, nil, u.registry.AsCreator(), u.locatePlayer, pw.attempt)
		if !ready {
			if err == ErrWorldNotReady {
				pw.attempt++
				remaining = append(remaining, pw)
				continue
			}
			send(pw.client, false, pw.action, fellBack)
			continue
		}
		u.completeWarp(pw.client, target, spawn)
		send(pw.client, true, ToWorld(target, spawn), fellBack)
	}

	u.mainMu.Lock()
	u.warps = remaining
	u.mainMu.Unlock()
}

// clientWindowRadius is the half-extent of the visible-area window a
// freshly warped client starts with, before the client declares its own.
const clientWindowRadius = 48.0

// completeWarp moves client out of its current world and into target:
// the old world's final packets are drained and routed first (spec.md §5
// ordering), the client's player entity and window are removed from the
// old simulation, and a fresh player entity and window are materialized in
// the destination at the spawn target.
func (u *UniverseServer) completeWarp(client *ClientContext, target WorldHandle, spawn *SpawnTarget) {
	if t, ok := u.registry.Thread(client.CurrentWorld); ok {
		u.routeOutgoing(t.PullOutgoingPackets())
		departing := client.PlayerEntity
		t.Execute(func(w *world.World) {
			if departing != 0 {
				w.RemoveEntity(departing, false)
			}
			w.RemoveClient(world.ClientID(client.ConnectionID))
		})
		client.PlayerEntity = 0
	}

	if t, ok := u.registry.Thread(target); ok {
		var pos mgl64.Vec2
		if spawn != nil {
			pos = mgl64.Vec2{spawn.X, spawn.Y}
		}
		t.Execute(func(w *world.World) {
			client.PlayerEntity = w.AddEntity(&world.Entity{
				Type:     world.EntityPlayer,
				Position: pos,
				Master:   true,
				MetaBounds: geometry.Rect{
					Min: mgl64.Vec2{pos[0] - 1, pos[1] - 2},
					Max: mgl64.Vec2{pos[0] + 1, pos[1] + 2},
				},
			})
			w.SetClientWindow(world.ClientWindow{
				ID: world.ClientID(client.ConnectionID),
				Window: geometry.Rect{
					Min: mgl64.Vec2{pos[0] - clientWindowRadius, pos[1] - clientWindowRadius},
					Max: mgl64.Vec2{pos[0] + clientWindowRadius, pos[1] + clientWindowRadius},
				},
			})
		})
	}
	client.CurrentWorld = target
}

func (u *UniverseServer) locatePlayer(id uuid.UUID) (WorldHandle, bool) {
	c := u.clientByUUID(id)
	if c == nil {
		return WorldHandle{}, false
	}
	return c.CurrentWorld, true
}

// BanUser implements spec.md §4.G ban_user: banning by connection id, with
// independent IP/UUID toggles and an optional timeout (0 = permanent).
func (u *UniverseServer) BanUser(clientID ClientConnectionID, reason string, banIP, banUUID bool, timeout time.Duration, remoteIP func(ClientConnectionID) string) error {
	u.clientsMu.RLock()
	client, ok := u.clients[clientID]
	u.clientsMu.RUnlock()
	if !ok {
		return fmt.Errorf("universe: unknown client %d", clientID)
	}
	if banIP && remoteIP != nil {
		u.bans.BanIP(remoteIP(clientID), reason, timeout)
	}
	if banUUID {
		u.bans.BanUUID(client.PlayerUUID, reason, timeout)
	}
	return nil
}

// BanOffline bans a target without requiring it to be currently connected,
// for operator use from the admin console: a target that parses as a uuid
// is banned as a player uuid, anything else is banned as an IP.
func (u *UniverseServer) BanOffline(target, reason string, timeout time.Duration) error {
	if id, err := uuid.Parse(target); err == nil {
		u.bans.BanUUID(id, reason, timeout)
		return nil
	}
	u.bans.BanIP(target, reason, timeout)
	return nil
}

// Pause / Unpause / SetTimescale control the shared pause flag and
// timescale every world thread reads (spec.md §9 "Model pause as a
// reference-counted atomic flag").
func (u *UniverseServer) Pause()    { u.pause.Store(true) }
func (u *UniverseServer) Unpause()  { u.pause.Store(false) }
func (u *UniverseServer) PauseFlag() *atomic.Bool { return &u.pause }

// persistAll implements spec.md §4.G's persistence cadence: flush every
// client context, write universe.dat and write the temp-world index —
// fanned out with an errgroup so one slow disk write doesn't serialize the
// others. It does not save active ship worlds' chunks; ShipChunks are
// written only as the bytes already held on each ClientContext.
func (u *UniverseServer) persistAll() error {
	var g errgroup.Group
	g.SetLimit(max(1, u.conf.WorkerPoolSize))

	u.clientsMu.RLock()
	clients := make([]*ClientContext, 0, len(u.clients))
	for _, c := range u.clients {
		clients = append(clients, c)
	}
	u.clientsMu.RUnlock()

	for _, c := range clients {
		c := c
		g.Go(func() error { return u.FlushClientContext(c) })
	}
	g.Go(func() error {
		return storage.SaveJSON(universeDatSchema, u.universeDatPath(), universeDat{TimeMS: u.clockMS.Load()})
	})
	g.Go(func() error {
		u.mainMu.Lock()
		index := make(map[string]tempWorldEntry, len(u.tempWorlds))
		for k, v := range u.tempWorlds {
			index[k] = v
		}
		u.mainMu.Unlock()
		return storage.SaveJSON(tempWorldsSchema, u.tempWorldsIndexPath(), index)
	})
	return g.Wait()
}

// Run starts the universe server's periodic main loop: it wakes every
// MainWakeupInterval, advances the universe clock, processes pending warps
// (pending ship flights are not processed here), reaps expired world
// threads, broadcasts coalesced clock
// updates on ClockUpdateInterval, and persists state on StorageInterval.
// It blocks until Stop is called.
func (u *UniverseServer) Run() {
	wakeup := time.NewTicker(u.conf.MainWakeupInterval)
	defer wakeup.Stop()
	persistTick := time.NewTicker(u.conf.StorageInterval)
	defer persistTick.Stop()
	clockTick := time.NewTicker(max(u.conf.ClockUpdateInterval, time.Second))
	defer clockTick.Stop()

	for {
		select {
		case <-u.stopping:
			return
		case <-wakeup.C:
			u.clockMS.Add(u.conf.MainWakeupInterval.Milliseconds())
			u.ProcessWarps(func(c *ClientContext, success bool, action WarpAction, fellBack bool) {
				_ = success
				_ = action
				_ = fellBack
				// Sending the PlayerWarpResult packet is the connection
				// server's codec concern; this closure is the extension
				// point it installs.
			})
			u.pumpPackets()
			u.reapExpiredWorlds()
		case <-clockTick.C:
			u.broadcastTimeUpdate()
		case <-persistTick.C:
			if err := u.persistAll(); err != nil {
				u.log.Error("persistence cycle failed", "err", err)
			}
		}
	}
}

// pumpPackets moves client traffic across the universe/world boundary
// every wakeup: each client's queued incoming packets are pushed onto its
// current world's thread, and every active thread's outgoing packets are
// drained and routed back to their owning clients' outgoing queues for the
// connection server to write (spec.md §2: "Outgoing packets are drained
// from each world per tick and routed by the UniverseServer").
func (u *UniverseServer) pumpPackets() {
	u.clientsMu.RLock()
	clients := make([]*ClientContext, 0, len(u.clients))
	for _, c := range u.clients {
		clients = append(clients, c)
	}
	u.clientsMu.RUnlock()

	for _, c := range clients {
		pkts := c.DrainIncoming()
		if len(pkts) == 0 {
			continue
		}
		t, ok := u.registry.Thread(c.CurrentWorld)
		if !ok {
			// World not ready (mid-warp); requeue and retry next wakeup.
			for _, p := range pkts {
				c.QueueIncoming(p)
			}
			continue
		}
		for _, p := range pkts {
			t.PushIncomingPacket(world.IncomingPacket{
				Client: world.ClientID(c.ConnectionID),
				Kind:   int(p.Kind),
				Body:   p.Body,
			})
		}
	}

	for _, h := range u.registry.Active() {
		if t, ok := u.registry.Thread(h); ok {
			u.routeOutgoing(t.PullOutgoingPackets())
		}
	}
}

// routeOutgoing fans a batch of world-produced packets out to the owning
// clients' outgoing queues, dropping packets for clients that have since
// disconnected.
func (u *UniverseServer) routeOutgoing(pkts []world.OutgoingPacket) {
	if len(pkts) == 0 {
		return
	}
	u.clientsMu.RLock()
	defer u.clientsMu.RUnlock()
	for _, p := range pkts {
		if c, ok := u.clients[ClientConnectionID(p.Client)]; ok {
			c.QueueOutgoing(protocol.Packet{Kind: protocol.Kind(p.Kind), Body: p.Body})
		}
	}
}

// broadcastTimeUpdate queues one UniverseTimeUpdate on every connected
// client. It runs off the ClockUpdateInterval ticker rather than every
// wakeup, so clients see at most one clock packet per interval (spec.md §5
// "Broadcast clock updates are coalesced").
func (u *UniverseServer) broadcastTimeUpdate() {
	body := make([]byte, 8)
	binary.BigEndian.PutUint64(body, uint64(u.clockMS.Load()))
	u.clientsMu.RLock()
	defer u.clientsMu.RUnlock()
	for _, c := range u.clients {
		c.QueueOutgoing(protocol.Packet{Kind: protocol.KindUniverseTimeUpdate, Body: body})
	}
}

func (u *UniverseServer) reapExpiredWorlds() {
	for _, h := range u.registry.Active() {
		t, ok := u.registry.Thread(h)
		if !ok {
			continue
		}
		if err, failed := t.ErrorOccurred(); failed {
			u.log.Error("world thread errored, reaping", "world", h.String(), "err", err)
			u.registry.Evict(h)
			continue
		}
		if t.ShouldExpire() {
			u.registry.Evict(h)
			if h.Kind == WorldHandleInstance {
				u.markTempWorldStopped(h)
			}
		}
	}
}

// Stop signals Run's loop to exit. Safe to call once.
func (u *UniverseServer) Stop() {
	u.stopOnce.Do(func() { close(u.stopping) })
}

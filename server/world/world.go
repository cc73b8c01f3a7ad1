// Package world implements the World Server simulation loop (spec.md §4.E)
// and its threading wrapper (§4.F): a tick-driven, server-authoritative
// simulation of one tile-based world. WorldServerThread serialises Tick and
// every Execute call under one lock.
package world

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sandboxverse/universe/server/dungeon"
	"github.com/sandboxverse/universe/server/geometry"
	"github.com/sandboxverse/universe/server/layout"
	"github.com/sandboxverse/universe/server/light"
	"github.com/sandboxverse/universe/server/weather"
)

// Fidelity gates how often optional tick phases run.
type Fidelity int

const (
	FidelityMinimum Fidelity = iota
	FidelityLow
	FidelityMedium
	FidelityHigh
)

// TimingEntry is one named phase's schedule: Enabled gates whether it ever
// runs; Ratio is its stride in ticks (every Ratio-th tick it runs).
type TimingEntry struct {
	Enabled bool
	Ratio   int
}

// TimingPlan maps a phase name to its schedule for the world's current
// Fidelity level.
type TimingPlan map[string]TimingEntry

// DefaultTimingPlan returns a TimingPlan whose optional phases are gated
// more aggressively at lower fidelity.
func DefaultTimingPlan(f Fidelity) TimingPlan {
	ratio := map[Fidelity]int{FidelityMinimum: 8, FidelityLow: 4, FidelityMedium: 2, FidelityHigh: 1}[f]
	if ratio == 0 {
		ratio = 1
	}
	return TimingPlan{
		"liquid":   {Enabled: f >= FidelityLow, Ratio: ratio},
		"wire":     {Enabled: f >= FidelityLow, Ratio: ratio},
		"falling":  {Enabled: f >= FidelityMedium, Ratio: ratio},
		"spawner":  {Enabled: f >= FidelityMedium, Ratio: ratio * 2},
	}
}

// ExecFunc is a function run on a World under its transaction queue,
// guaranteeing serialized access to world state.
type ExecFunc func(*World)

type transaction struct {
	f    ExecFunc
	done chan struct{}
}

// Config bundles construction-time dependencies for a World.
type Config struct {
	Log       *slog.Logger
	Geometry  geometry.World
	Fidelity  Fidelity
	Weather   *weather.Server
	QueueSize int

	// Layout is the biome layer map sector generation samples to decide
	// what a freshly loaded sector's tiles mean. Nil leaves sectors
	// region-less (tests, featureless instance worlds).
	Layout *layout.Layout

	// Light parameterizes the per-sector scalar light recalculation run
	// when a sector first loads. The zero value selects defaults.
	Light light.Params

	// Obstacle reports whether the tile at (x, y) blocks light, seeding
	// the light array's obstacle flags before a sector is relit. Nil
	// treats the whole world as open air.
	Obstacle func(x, y int) bool

	// Dungeons is the microdungeon placement queue worker; positions
	// queued via QueueMicrodungeon are placed through it when their
	// sector first loads. DungeonFacade receives the flushed paints.
	Dungeons      *dungeon.Worker
	DungeonFacade dungeon.WorldFacade
}

// defaultLightParams is used when Config.Light is left zero, so a World
// always has a workable relighting configuration.
var defaultLightParams = light.Params{
	SpreadPasses:       4,
	SpreadMaxAir:       8,
	SpreadMaxObstacle:  2,
	PointMaxAir:        8,
	PointMaxObstacle:   2,
	PointObstacleBoost: 1,
}

// World is one simulated tile-space region: its geometry, tick clock,
// connected clients, and the phase state (protection set, timers, damage
// queue, net cache) the tick orchestrator threads through every step.
type World struct {
	conf Config
	log  *slog.Logger

	queue        chan transaction
	queueClosing chan struct{}
	queueing     sync.WaitGroup
	closeOnce    sync.Once

	currentTick uint64
	timing      TimingPlan

	clients map[ClientID]*ClientWindow

	protection *ProtectionSet

	entities *EntityMap

	damage     *DamageManager
	tileDamage *TileDamageManager

	timers []Timer

	netCache *NetStateCache

	weather *weather.Server

	sectors *SectorSet

	lightArray      *light.Array[float64, light.ScalarTraits]
	sectorLight     map[SectorCoord]*light.Lightmap
	sectorRegions   map[SectorCoord]layout.WorldRegion
	pendingDungeons []dungeon.Vec2I

	incoming []IncomingPacket
	outgoing []OutgoingPacket

	entityMessages []EntityMessage

	// dirtyTiles/dirtyLiquids accumulate the modifications applied since the
	// last step-12 pass, so queueClientUpdates only has to diff against what
	// actually changed rather than rescanning the whole tile grid every tick.
	dirtyTiles      []Modification
	dirtyLiquids    []Modification
	dirtyTileDamage []TileDamageChange

	// entityViewState tracks, per client, the last Entity.Version each
	// client was sent for each entity currently inside its visible area
	// (spec.md §4.E step 12): it is what lets queueClientUpdates tell
	// EntityCreate (not yet in the map), EntityUpdate (version changed) and
	// EntityDestroy (was in the map, no longer visible or removed) apart.
	entityViewState map[ClientID]map[EntityID]uint64

	handler Handler

	lastActivity time.Time
	noClients    bool
}

// IncomingPacket is one packet received from a client, queued for dispatch
// at tick step 3 (spec.md §4.E).
type IncomingPacket struct {
	Client  ClientID
	Kind    int
	Body    []byte
}

// OutgoingPacket is one packet produced by the tick, destined for a single
// client's outgoing queue (drained by the owning WorldServerThread).
type OutgoingPacket struct {
	Client ClientID
	Kind   int
	Body   []byte
}

// EntityMessage is a message addressed to an entity by its stable unique
// string id, resolved to an EntityID during step 2 of the tick. Unresolved
// messages fail with ErrUnknownEntity rather than being silently dropped.
type EntityMessage struct {
	TargetUniqueID string
	Name           string
	Args           []byte
	Reply          func(result []byte, err error)
}

// ClientID identifies a connected client within one world.
type ClientID uint32

// ClientWindow is a client's visible-area state as tracked by the world:
// its declared window plus any presence-entity bounding boxes, unioned and
// padded to form the area fed to cellular light and sector paging.
type ClientWindow struct {
	ID             ClientID
	Window         geometry.Rect
	PresenceBounds []geometry.Rect
	Border         float64

	// NetRules selects which net_state_cache bucket this client's
	// serialisations fall into (spec.md §4.E step 12): two clients sharing
	// NetRules and watching the same entity share one cached serialisation.
	NetRules uint32
}

// VisibleArea returns the union of w's window and presence bounds, padded
// by Border (spec.md §4.E "Visible area").
func (w ClientWindow) VisibleArea() geometry.Rect {
	area := w.Window
	for _, b := range w.PresenceBounds {
		area = unionRect(area, b)
	}
	return padRect(area, w.Border)
}

func unionRect(a, b geometry.Rect) geometry.Rect {
	return geometry.Rect{
		Min: mgl64.Vec2{min(a.Min[0], b.Min[0]), min(a.Min[1], b.Min[1])},
		Max: mgl64.Vec2{max(a.Max[0], b.Max[0]), max(a.Max[1], b.Max[1])},
	}
}

func padRect(r geometry.Rect, pad float64) geometry.Rect {
	return geometry.Rect{
		Min: mgl64.Vec2{r.Min[0] - pad, r.Min[1] - pad},
		Max: mgl64.Vec2{r.Max[0] + pad, r.Max[1] + pad},
	}
}

// New constructs a World and starts its transaction-handling goroutine.
func New(conf Config) *World {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.QueueSize <= 0 {
		conf.QueueSize = 64
	}
	lightParams := conf.Light
	if lightParams == (light.Params{}) {
		lightParams = defaultLightParams
	}
	// Fidelity's zero value is FidelityMinimum, the most conservative
	// setting a caller gets by leaving Config.Fidelity unset.
	w := &World{
		conf:         conf,
		log:          conf.Log,
		queue:        make(chan transaction, conf.QueueSize),
		queueClosing: make(chan struct{}),
		timing:       DefaultTimingPlan(conf.Fidelity),
		clients:      map[ClientID]*ClientWindow{},
		protection:   NewProtectionSet(),
		entities:     NewEntityMap(),
		damage:       NewDamageManager(),
		tileDamage:   NewTileDamageManager(),
		netCache:     NewNetStateCache(),
		weather:      conf.Weather,
		sectors:      NewSectorSet(),
		handler:      NopHandler{},
		lastActivity:    time.Now(),
		entityViewState: map[ClientID]map[EntityID]uint64{},
		lightArray:      light.NewArray[float64](light.ScalarTraits{}, lightParams),
		sectorLight:     map[SectorCoord]*light.Lightmap{},
		sectorRegions:   map[SectorCoord]layout.WorldRegion{},
	}
	w.queueing.Add(1)
	go w.handleTransactions()
	return w
}

// Exec serializes f against every other Exec transaction, returning a
// channel closed once f has run. f runs on the World's transaction
// goroutine without the WorldServerThread lock, so it is not serialized
// against Tick or WorldServerThread.Execute.
func (w *World) Exec(f ExecFunc) <-chan struct{} {
	done := make(chan struct{})
	w.queue <- transaction{f: f, done: done}
	return done
}

func (w *World) handleTransactions() {
	for {
		select {
		case tx := <-w.queue:
			tx.f(w)
			close(tx.done)
		case <-w.queueClosing:
			w.queueing.Done()
			return
		}
	}
}

// Close stops the transaction-handling goroutine. Safe to call once.
func (w *World) Close() {
	w.closeOnce.Do(func() {
		close(w.queueClosing)
		w.queueing.Wait()
	})
}

// CurrentTick returns the number of ticks simulated so far.
func (w *World) CurrentTick() uint64 { return w.currentTick }

// shouldRunThisStep returns the number of ticks elapsed since name last ran,
// or false if name is disabled or not yet due.
func (w *World) shouldRunThisStep(name string) (int, bool) {
	entry, ok := w.timing[name]
	if !ok || !entry.Enabled || entry.Ratio <= 0 {
		return 0, false
	}
	if int(w.currentTick)%entry.Ratio != 0 {
		return 0, false
	}
	return entry.Ratio, true
}

// netCacheKey derives the xxhash-backed key used by net_state_cache to
// avoid reserialising identical entity slices across clients within a tick
// (spec.md §4.E step 12).
func netCacheKey(netRules uint32, entityID uint64, entityVersion uint64) uint64 {
	h := xxhash.New()
	var buf [20]byte
	buf[0] = byte(netRules)
	buf[1] = byte(netRules >> 8)
	buf[2] = byte(netRules >> 16)
	buf[3] = byte(netRules >> 24)
	for i := 0; i < 8; i++ {
		buf[4+i] = byte(entityID >> (8 * i))
		buf[12+i] = byte(entityVersion >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

package universe

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sandboxverse/universe/server/protocol"
	"github.com/sandboxverse/universe/server/world"
)

// ClientConnectionID is the server-assigned connection id, allocated from
// rpc.IdMap over [MinClientConnectionID, MaxClientConnectionID] (spec.md
// §3).
type ClientConnectionID uint16

const (
	MinClientConnectionID ClientConnectionID = 1
	MaxClientConnectionID ClientConnectionID = 65000
)

// ShipUpgrades is a client's interstellar ship capability block (spec.md
// §3).
type ShipUpgrades struct {
	Level          int
	MaxFuel        float64
	CrewSize       int
	FuelEfficiency float64
	Speed          float64
}

// ShipLocation discriminates where a client's ship currently sits within a
// system: orbiting a celestial body, or at a raw system-local position.
type ShipLocation struct {
	Celestial *CelestialCoordinate
	System    *[3]float64
}

// NetCompatibility carries the protocol rules a client negotiated at
// handshake time.
type NetCompatibility struct {
	ProtocolVersion uint32
	Legacy          bool
}

// ClientContext is the durable per-connected-player server-side state
// spec.md §3 describes. It is created on successful handshake and written
// to its clientcontext file on every persistence cycle. The universe
// package has no disconnect path: a ClientContext is dropped again only
// when sending ConnectSuccess fails.
type ClientContext struct {
	mu sync.Mutex

	ConnectionID ClientConnectionID
	PlayerUUID   uuid.UUID
	Nickname     string
	Species      string

	Admin             bool
	DamageTeamOverride *int

	ShipUpgrades ShipUpgrades

	ShipCoordinate CelestialCoordinate
	ShipLocation   ShipLocation

	CurrentWorld WorldHandle
	ReturnWarp   *WarpAction
	ReviveWarp   *WarpAction

	// PlayerEntity is the id of this client's player entity inside
	// CurrentWorld's simulation, 0 while the client is between worlds.
	// Runtime-only: it is reassigned on every warp, never persisted.
	PlayerEntity world.EntityID

	// ShipChunks is an opaque serialized per-player persistent world
	// (spec.md §3); the core treats it as a byte blob it round-trips, not
	// a structure it interprets.
	ShipChunks []byte

	NetRules NetCompatibility

	incoming []protocol.Packet
	outgoing []protocol.Packet

	// Revision dedupes per-client sky/weather/entity updates: a producer
	// bumps it whenever it emits state for this client so a later producer
	// in the same tick can tell whether it's already current.
	Revision uint64

	IntroComplete bool
}

// QueueIncoming appends a packet to the client's incoming queue.
func (c *ClientContext) QueueIncoming(p protocol.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.incoming = append(c.incoming, p)
}

// DrainIncoming returns and clears the client's incoming queue.
func (c *ClientContext) DrainIncoming() []protocol.Packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.incoming
	c.incoming = nil
	return out
}

// QueueOutgoing appends a packet to the client's outgoing queue.
func (c *ClientContext) QueueOutgoing(p protocol.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outgoing = append(c.outgoing, p)
}

// DrainOutgoing returns and clears the client's outgoing queue, for the
// connection server to write to the client's transport.
func (c *ClientContext) DrainOutgoing() []protocol.Packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.outgoing
	c.outgoing = nil
	return out
}

// BumpRevision increments and returns the client's dedupe revision.
func (c *ClientContext) BumpRevision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Revision++
	return c.Revision
}

// persistedClientContext is the JSON shape written to <uuid>.clientcontext
// (spec.md §6), and the content payload of its versioned envelope.
type persistedClientContext struct {
	PlayerUUID     uuid.UUID        `json:"playerUuid"`
	Nickname       string           `json:"nickname"`
	Species        string           `json:"species"`
	Admin          bool             `json:"admin"`
	ShipUpgrades   ShipUpgrades     `json:"shipUpgrades"`
	ShipCoordinate CelestialCoordinate `json:"shipCoordinate"`
	ShipChunks     []byte           `json:"shipChunks"`
	ReturnWarp     *WarpAction      `json:"returnWarp,omitempty"`
	ReviveWarp     *WarpAction      `json:"reviveWarp,omitempty"`
	IntroComplete  bool             `json:"introComplete"`
}

// toPersisted / fromPersisted round-trip a ClientContext through its
// on-disk JSON shape, matching spec.md §8's "Serializing and deserializing
// a ClientContext ... yields an equal ClientContext" round-trip property.
func (c *ClientContext) toPersisted() persistedClientContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return persistedClientContext{
		PlayerUUID:     c.PlayerUUID,
		Nickname:       c.Nickname,
		Species:        c.Species,
		Admin:          c.Admin,
		ShipUpgrades:   c.ShipUpgrades,
		ShipCoordinate: c.ShipCoordinate,
		ShipChunks:     append([]byte(nil), c.ShipChunks...),
		ReturnWarp:     c.ReturnWarp,
		ReviveWarp:     c.ReviveWarp,
		IntroComplete:  c.IntroComplete,
	}
}

func fromPersisted(p persistedClientContext) *ClientContext {
	return &ClientContext{
		PlayerUUID:     p.PlayerUUID,
		Nickname:       p.Nickname,
		Species:        p.Species,
		Admin:          p.Admin,
		ShipUpgrades:   p.ShipUpgrades,
		ShipCoordinate: p.ShipCoordinate,
		ShipChunks:     append([]byte(nil), p.ShipChunks...),
		ReturnWarp:     p.ReturnWarp,
		ReviveWarp:     p.ReviveWarp,
		IntroComplete:  p.IntroComplete,
	}
}

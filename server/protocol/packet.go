// Package protocol implements the wire framing and closed packet-kind set
// exchanged between clients, world servers and the universe server (spec.md
// §6 External Interfaces).
package protocol

// Kind enumerates every packet type the core consumes or produces. The set
// is closed: Conn.ReadPacket reports an unrecognised Kind on the wire as
// ErrUnknownKind rather than ignoring it. Nothing in this module acts on
// that error by marking the sending client errored.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindProtocolRequest
	KindProtocolResponse
	KindClientConnect
	KindHandshakeChallenge
	KindHandshakeResponse
	KindConnectSuccess
	KindConnectFailure
	KindUniverseTimeUpdate
	KindPause
	KindClientDisconnectRequest
	KindServerDisconnect
	KindChatSend
	KindChatReceive
	KindPlayerWarp
	KindPlayerWarpResult
	KindFlyShip
	KindCelestialRequest
	KindCelestialResponse
	KindClientContextUpdate
	KindWorldStart
	KindWorldStop
	KindTileUpdate
	KindLiquidUpdate
	KindTileDamageUpdate
	KindEntityCreate
	KindEntityUpdate
	KindEntityDestroy
	KindPlanetTypeUpdate
	KindServerInfo

	kindCount
)

// Valid reports whether k is a recognised packet kind.
func (k Kind) Valid() bool { return k > KindUnknown && k < kindCount }

func (k Kind) String() string {
	switch k {
	case KindProtocolRequest:
		return "ProtocolRequest"
	case KindProtocolResponse:
		return "ProtocolResponse"
	case KindClientConnect:
		return "ClientConnect"
	case KindHandshakeChallenge:
		return "HandshakeChallenge"
	case KindHandshakeResponse:
		return "HandshakeResponse"
	case KindConnectSuccess:
		return "ConnectSuccess"
	case KindConnectFailure:
		return "ConnectFailure"
	case KindUniverseTimeUpdate:
		return "UniverseTimeUpdate"
	case KindPause:
		return "Pause"
	case KindClientDisconnectRequest:
		return "ClientDisconnectRequest"
	case KindServerDisconnect:
		return "ServerDisconnect"
	case KindChatSend:
		return "ChatSend"
	case KindChatReceive:
		return "ChatReceive"
	case KindPlayerWarp:
		return "PlayerWarp"
	case KindPlayerWarpResult:
		return "PlayerWarpResult"
	case KindFlyShip:
		return "FlyShip"
	case KindCelestialRequest:
		return "CelestialRequest"
	case KindCelestialResponse:
		return "CelestialResponse"
	case KindClientContextUpdate:
		return "ClientContextUpdate"
	case KindWorldStart:
		return "WorldStart"
	case KindWorldStop:
		return "WorldStop"
	case KindTileUpdate:
		return "TileUpdate"
	case KindLiquidUpdate:
		return "LiquidUpdate"
	case KindTileDamageUpdate:
		return "TileDamageUpdate"
	case KindEntityCreate:
		return "EntityCreate"
	case KindEntityUpdate:
		return "EntityUpdate"
	case KindEntityDestroy:
		return "EntityDestroy"
	case KindPlanetTypeUpdate:
		return "PlanetTypeUpdate"
	case KindServerInfo:
		return "ServerInfo"
	default:
		return "Unknown"
	}
}

// Packet is a decoded wire message: its kind plus an opaque body the caller
// is responsible for interpreting (the core ships framing, not a full codec
// for every payload shape).
type Packet struct {
	Kind Kind
	Body []byte
}

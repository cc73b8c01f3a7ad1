package universe

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sandboxverse/universe/server/protocol"
	"golang.org/x/text/unicode/norm"
	"lukechampine.com/blake3"
)

// ProtocolVersion is the protocol version this server implements; a client
// advertising a different version is rejected at step 1 of the acceptance
// state machine (spec.md §4.G).
const ProtocolVersion uint32 = 1

// ProtocolRequest is the client's handshake-initiating payload.
type ProtocolRequest struct {
	ProtoVersion uint32
}

// ProtocolInfo accompanies an allowed ProtocolResponse.
type ProtocolInfo struct {
	Compression         protocol.Compression
	OpenProtocolVersion uint32
}

// ProtocolResponse is the server's reply to ProtocolRequest.
type ProtocolResponse struct {
	Allowed bool
	Info    *ProtocolInfo
}

// ClientConnect is the client's profile/account payload sent once the
// protocol handshake has been accepted.
type ClientConnect struct {
	Account       string
	PasswordSHA   []byte
	PlayerUUID    uuid.UUID
	Nickname      string
	Species       string
	AssetsDigest  []byte
	ShipSpecies   string
	ShipChunks    []byte
	ShipUpgrades  ShipUpgrades
	IntroComplete bool
}

// HandshakeResponse carries the client's salted password digest.
type HandshakeResponse struct {
	PassHash []byte
}

// ConnectSuccess is sent once a ClientContext has been fully allocated.
type ConnectSuccess struct {
	ClientID          ClientConnectionID
	UniverseUUID      uuid.UUID
	CelestialBaseInfo []byte
}

// Transport is the per-connection handshake surface the accept state
// machine drives. It deliberately stops at payload structs, not wire
// bytes: spec.md §1 scopes "wire serialization details of every packet
// type" out, so encoding Transport onto an actual socket (length-prefixed
// frames via protocol.Conn, compression negotiation) is the connection
// server's job, not this package's.
type Transport interface {
	RemoteIP() string
	ReceiveProtocolRequest(timeout time.Duration) (ProtocolRequest, error)
	SendProtocolResponse(ProtocolResponse) error
	EnableCompression(protocol.Compression) error
	ReceiveClientConnect(timeout time.Duration) (ClientConnect, error)
	SendHandshakeChallenge(salt []byte) error
	ReceiveHandshakeResponse(timeout time.Duration) (HandshakeResponse, error)
	SendConnectSuccess(ConnectSuccess) error
	SendConnectFailure(reason string) error
	Close() error
}

// ErrConnectTimeout is returned when a bounded receive exceeds
// ClientWaitLimit (spec.md §5 "Cancellation & timeouts").
var ErrConnectTimeout = errors.New("universe: connect timeout")

// Accept runs the full connection acceptance state machine (spec.md §4.G)
// against t: protocol handshake, account/ban/capacity checks, password
// authentication, ClientContext allocation (restoring any persisted
// clientcontext file), and initial packet send. On any rejection it sends
// the appropriate failure/response packet, closes t, and returns a non-nil
// error; on success it returns the new ClientContext with t not yet closed
// (the caller now owns routing its packets).
func (u *UniverseServer) Accept(t Transport) (*ClientContext, error) {
	if !u.limiterFor(t.RemoteIP()).Allow() {
		_ = t.Close()
		return nil, fmt.Errorf("universe: accept rate limit exceeded for %s", t.RemoteIP())
	}

	req, err := t.ReceiveProtocolRequest(u.conf.ClientWaitLimit)
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("universe: receive ProtocolRequest: %w", err)
	}
	if req.ProtoVersion != ProtocolVersion {
		_ = t.SendProtocolResponse(ProtocolResponse{Allowed: false})
		_ = t.Close()
		return nil, fmt.Errorf("universe: protocol version mismatch: got %d, want %d", req.ProtoVersion, ProtocolVersion)
	}

	compression := protocol.CompressionZstd
	if err := t.SendProtocolResponse(ProtocolResponse{
		Allowed: true,
		Info:    &ProtocolInfo{Compression: compression, OpenProtocolVersion: ProtocolVersion},
	}); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("universe: send ProtocolResponse: %w", err)
	}
	if err := t.EnableCompression(compression); err != nil {
		u.log.Warn("failed to enable negotiated compression, continuing uncompressed", "err", err)
	}

	connect, err := t.ReceiveClientConnect(u.conf.ClientWaitLimit)
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("universe: receive ClientConnect: %w", err)
	}

	if reason, ok := u.rejectClientConnect(t.RemoteIP(), connect); !ok {
		_ = t.SendConnectFailure(reason)
		_ = t.Close()
		return nil, fmt.Errorf("universe: rejected connect: %s", reason)
	}

	if account, ok := u.conf.ServerUser(connect.Account); ok && account.Password != "" {
		salt, err := protocol.NewSalt()
		if err != nil {
			_ = t.SendConnectFailure("internal error")
			_ = t.Close()
			return nil, fmt.Errorf("universe: generate salt: %w", err)
		}
		if err := t.SendHandshakeChallenge(salt); err != nil {
			_ = t.Close()
			return nil, fmt.Errorf("universe: send HandshakeChallenge: %w", err)
		}
		resp, err := t.ReceiveHandshakeResponse(u.conf.ClientWaitLimit)
		if err != nil {
			_ = t.Close()
			return nil, fmt.Errorf("universe: receive HandshakeResponse: %w", err)
		}
		if !protocol.CheckPassword(resp.PassHash, account.Password, connect.Account, salt) {
			// Unified message regardless of whether the account exists or
			// the password was wrong, to avoid user enumeration (spec.md
			// §7 "Authentication errors").
			_ = t.SendConnectFailure("no such account or incorrect password")
			_ = t.Close()
			return nil, fmt.Errorf("universe: auth failed for account %q", connect.Account)
		}
	}

	client := u.allocateClient(connect)

	if err := t.SendConnectSuccess(ConnectSuccess{
		ClientID:     client.ConnectionID,
		UniverseUUID: u.uuid,
	}); err != nil {
		u.releaseClient(client.ConnectionID)
		_ = t.Close()
		return nil, fmt.Errorf("universe: send ConnectSuccess: %w", err)
	}

	u.placeNewClient(client)
	return client, nil
}

// rejectClientConnect checks the sequence of ClientConnect-time rejections
// spec.md §4.G step 3 lists, in order, short-circuiting on the first that
// fires.
func (u *UniverseServer) rejectClientConnect(ip string, c ClientConnect) (reason string, ok bool) {
	if banned, why := u.bans.IsBanned(ip, c.PlayerUUID); banned {
		return fmt.Sprintf("You are banned: %s", why), false
	}
	if len(u.conf.ExpectedAssetsDigest) > 0 && !u.conf.AllowAssetsMismatch &&
		!constantTimeEqualBytes(c.AssetsDigest, u.conf.ExpectedAssetsDigest) {
		return "assets mismatch", false
	}
	if _, known := u.conf.Species(c.ShipSpecies); !known {
		return "unknown species", false
	}
	admin := false
	if account, found := u.conf.ServerUser(c.Account); found {
		admin = account.Admin
	}
	if u.clientCount() >= u.conf.MaxPlayers && !admin {
		return "server full", false
	}
	if existing := u.clientByUUID(c.PlayerUUID); existing != nil && !admin {
		return "duplicate uuid", false
	}
	if c.Account == "" {
		if len(u.conf.ServerUsers) > 0 {
			return "account required", false
		}
		return "", true
	}
	if _, found := u.conf.ServerUser(c.Account); !found {
		return "no such account or incorrect password", false
	}
	return "", true
}

// allocateClient assigns a fresh ClientConnectionID and builds (or, on
// disk, restores) a ClientContext for connect.
func (u *UniverseServer) allocateClient(connect ClientConnect) *ClientContext {
	id, err := u.idMap.Next()
	if err != nil {
		// Capacity was already checked in rejectClientConnect; exhaustion
		// here means max players exceeds the connection id range, a
		// configuration error, not a per-connection one.
		panic(fmt.Sprintf("universe: connection id space exhausted: %v", err))
	}

	nickname := norm.NFC.String(connect.Nickname)

	client := u.loadOrCreateClient(connect.PlayerUUID)
	client.ConnectionID = ClientConnectionID(id)
	client.Nickname = nickname
	client.Species = connect.Species
	client.ShipUpgrades = connect.ShipUpgrades
	client.ShipChunks = connect.ShipChunks
	client.IntroComplete = connect.IntroComplete
	if account, found := u.conf.ServerUser(connect.Account); found {
		client.Admin = account.Admin
	}

	u.clientsMu.Lock()
	u.clients[client.ConnectionID] = client
	u.clientsMu.Unlock()
	return client
}

func (u *UniverseServer) releaseClient(id ClientConnectionID) {
	u.clientsMu.Lock()
	delete(u.clients, id)
	u.clientsMu.Unlock()
	u.idMap.Remove(int64(id))
}

func (u *UniverseServer) clientCount() int {
	u.clientsMu.RLock()
	defer u.clientsMu.RUnlock()
	return len(u.clients)
}

func (u *UniverseServer) clientByUUID(id uuid.UUID) *ClientContext {
	u.clientsMu.RLock()
	defer u.clientsMu.RUnlock()
	for _, c := range u.clients {
		if c.PlayerUUID == id {
			return c
		}
	}
	return nil
}

// AssetsDigest computes the digest of an asset store's manifest bytes.
// Clients send the same digest in ClientConnect; Settings.ExpectedAssetsDigest
// is this value computed over the server's own manifest.
func AssetsDigest(manifest []byte) []byte {
	sum := blake3.Sum256(manifest)
	return sum[:]
}

// constantTimeEqualBytes is a small helper kept alongside the handshake
// check for symmetry with protocol.CheckPassword's constant-time
// discipline, used wherever this package compares a client-supplied digest
// (e.g. assets_digest) against a server-known value.
func constantTimeEqualBytes(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}

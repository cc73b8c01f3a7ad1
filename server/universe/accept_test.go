package universe

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sandboxverse/universe/server/config"
	"github.com/sandboxverse/universe/server/protocol"
	"github.com/sandboxverse/universe/server/world"
)

// fakeTransport is a scripted, in-memory Transport: no actual socket, just
// canned responses and capture of what the server sent back.
type fakeTransport struct {
	protoReq     ProtocolRequest
	connect      ClientConnect
	handshake    HandshakeResponse
	closed       bool
	sentResponse *ProtocolResponse
	sentSuccess  *ConnectSuccess
	sentFailure  string
}

func (f *fakeTransport) RemoteIP() string { return "203.0.113.5" }
func (f *fakeTransport) ReceiveProtocolRequest(time.Duration) (ProtocolRequest, error) {
	return f.protoReq, nil
}
func (f *fakeTransport) SendProtocolResponse(r ProtocolResponse) error {
	f.sentResponse = &r
	return nil
}
func (f *fakeTransport) EnableCompression(protocol.Compression) error { return nil }
func (f *fakeTransport) ReceiveClientConnect(time.Duration) (ClientConnect, error) {
	return f.connect, nil
}
func (f *fakeTransport) SendHandshakeChallenge([]byte) error { return nil }
func (f *fakeTransport) ReceiveHandshakeResponse(time.Duration) (HandshakeResponse, error) {
	return f.handshake, nil
}
func (f *fakeTransport) SendConnectSuccess(s ConnectSuccess) error {
	f.sentSuccess = &s
	return nil
}
func (f *fakeTransport) SendConnectFailure(reason string) error {
	f.sentFailure = reason
	return nil
}
func (f *fakeTransport) Close() error { f.closed = true; return nil }

var _ Transport = (*fakeTransport)(nil)

func newAcceptTestServer(t *testing.T, maxPlayers int) *UniverseServer {
	t.Helper()
	load := func(h WorldHandle) (*world.WorldServerThread, error) {
		t.Fatal("loader should not be invoked by Accept")
		return nil, nil
	}
	return New(Settings{
		Config: config.Config{
			MaxPlayers:      maxPlayers,
			StorageDir:      t.TempDir(),
			ClientWaitLimit: time.Second,
		},
		SpeciesTable: map[string]SpeciesInfo{"human": {}},
	}, load)
}

func TestAcceptSucceedsAndPlacesClient(t *testing.T) {
	srv := newAcceptTestServer(t, 10)
	tr := &fakeTransport{
		protoReq: ProtocolRequest{ProtoVersion: ProtocolVersion},
		connect: ClientConnect{
			PlayerUUID:  uuid.New(),
			Nickname:    "Zeph",
			Species:     "human",
			ShipSpecies: "human",
		},
	}

	client, err := srv.Accept(tr)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if client == nil {
		t.Fatal("Accept() returned nil client on success")
	}
	if tr.sentSuccess == nil {
		t.Fatal("expected ConnectSuccess to be sent")
	}
	if tr.closed {
		t.Fatal("Transport should stay open on successful accept")
	}
	if srv.clientCount() != 1 {
		t.Fatalf("clientCount() = %d, want 1", srv.clientCount())
	}
	if len(srv.warps) != 1 {
		t.Fatalf("expected one queued warp for the newly placed client, got %d", len(srv.warps))
	}
}

func TestAcceptRejectsWrongProtocolVersion(t *testing.T) {
	srv := newAcceptTestServer(t, 10)
	tr := &fakeTransport{protoReq: ProtocolRequest{ProtoVersion: ProtocolVersion + 1}}

	_, err := srv.Accept(tr)
	if err == nil {
		t.Fatal("expected an error for a mismatched protocol version")
	}
	if !tr.closed {
		t.Fatal("Transport should be closed on rejection")
	}
	if tr.sentResponse == nil || tr.sentResponse.Allowed {
		t.Fatal("expected a disallowed ProtocolResponse")
	}
}

func TestAcceptRejectsBannedUUID(t *testing.T) {
	srv := newAcceptTestServer(t, 10)
	banned := uuid.New()
	srv.bans.BanUUID(banned, "test ban", 0)

	tr := &fakeTransport{
		protoReq: ProtocolRequest{ProtoVersion: ProtocolVersion},
		connect: ClientConnect{
			PlayerUUID:  banned,
			Species:     "human",
			ShipSpecies: "human",
		},
	}

	_, err := srv.Accept(tr)
	if err == nil {
		t.Fatal("expected an error for a banned player")
	}
	if tr.sentFailure == "" {
		t.Fatal("expected a ConnectFailure reason to be sent")
	}
}

func TestAcceptRejectsWhenServerFull(t *testing.T) {
	srv := newAcceptTestServer(t, 1)
	first := &fakeTransport{
		protoReq: ProtocolRequest{ProtoVersion: ProtocolVersion},
		connect: ClientConnect{
			PlayerUUID:  uuid.New(),
			Species:     "human",
			ShipSpecies: "human",
		},
	}
	if _, err := srv.Accept(first); err != nil {
		t.Fatalf("first Accept() error = %v", err)
	}

	second := &fakeTransport{
		protoReq: ProtocolRequest{ProtoVersion: ProtocolVersion},
		connect: ClientConnect{
			PlayerUUID:  uuid.New(),
			Species:     "human",
			ShipSpecies: "human",
		},
	}
	_, err := srv.Accept(second)
	if err == nil {
		t.Fatal("expected rejection once the server is at MaxPlayers")
	}
	if second.sentFailure != "server full" {
		t.Fatalf("sentFailure = %q, want %q", second.sentFailure, "server full")
	}
}

func TestAcceptRejectsAssetsDigestMismatch(t *testing.T) {
	srv := newAcceptTestServer(t, 10)
	srv.conf.ExpectedAssetsDigest = AssetsDigest([]byte("server manifest"))

	tr := &fakeTransport{
		protoReq: ProtocolRequest{ProtoVersion: ProtocolVersion},
		connect: ClientConnect{
			PlayerUUID:   uuid.New(),
			Species:      "human",
			ShipSpecies:  "human",
			AssetsDigest: AssetsDigest([]byte("modded client manifest")),
		},
	}
	if _, err := srv.Accept(tr); err == nil {
		t.Fatal("expected rejection for a mismatched assets digest")
	}
	if tr.sentFailure != "assets mismatch" {
		t.Fatalf("sentFailure = %q, want %q", tr.sentFailure, "assets mismatch")
	}

	matching := &fakeTransport{
		protoReq: ProtocolRequest{ProtoVersion: ProtocolVersion},
		connect: ClientConnect{
			PlayerUUID:   uuid.New(),
			Species:      "human",
			ShipSpecies:  "human",
			AssetsDigest: AssetsDigest([]byte("server manifest")),
		},
	}
	if _, err := srv.Accept(matching); err != nil {
		t.Fatalf("matching digest should be accepted: %v", err)
	}
}

func TestAcceptRateLimitsPerIP(t *testing.T) {
	srv := newAcceptTestServer(t, 10)
	srv.conf.AcceptPoolSize = 1

	first := &fakeTransport{
		protoReq: ProtocolRequest{ProtoVersion: ProtocolVersion},
		connect: ClientConnect{
			PlayerUUID:  uuid.New(),
			Species:     "human",
			ShipSpecies: "human",
		},
	}
	if _, err := srv.Accept(first); err != nil {
		t.Fatalf("first Accept() error = %v", err)
	}

	second := &fakeTransport{protoReq: ProtocolRequest{ProtoVersion: ProtocolVersion}}
	if _, err := srv.Accept(second); err == nil {
		t.Fatal("expected the second immediate handshake from the same IP to be refused")
	}
	if !second.closed {
		t.Fatal("rate-limited transport should be closed")
	}
}

func TestAcceptRejectsUnknownSpecies(t *testing.T) {
	srv := newAcceptTestServer(t, 10)
	tr := &fakeTransport{
		protoReq: ProtocolRequest{ProtoVersion: ProtocolVersion},
		connect: ClientConnect{
			PlayerUUID:  uuid.New(),
			ShipSpecies: "robot",
		},
	}

	_, err := srv.Accept(tr)
	if err == nil {
		t.Fatal("expected rejection for an unknown species")
	}
	if tr.sentFailure != "unknown species" {
		t.Fatalf("sentFailure = %q, want %q", tr.sentFailure, "unknown species")
	}
}

package universe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sandboxverse/universe/server/config"
	"github.com/sandboxverse/universe/server/world"
)

func newTestServer(t *testing.T) *UniverseServer {
	t.Helper()
	load := func(h WorldHandle) (*world.WorldServerThread, error) {
		t.Fatal("loader should not be invoked by the health surface tests")
		return nil, nil
	}
	return New(Settings{Config: config.Config{MaxPlayers: 16}}, load)
}

func TestHealthzReportsOK(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.HealthRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestServerInfoReflectsState(t *testing.T) {
	srv := newTestServer(t)
	srv.Pause()
	srv.SetTimescale(2.5)

	ts := httptest.NewServer(srv.HealthRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/serverinfo")
	if err != nil {
		t.Fatalf("GET /serverinfo: %v", err)
	}
	defer resp.Body.Close()

	var info serverInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !info.Paused {
		t.Error("Paused = false, want true")
	}
	if info.Timescale != 2.5 {
		t.Errorf("Timescale = %v, want 2.5", info.Timescale)
	}
	if info.MaxPlayers != 16 {
		t.Errorf("MaxPlayers = %d, want 16", info.MaxPlayers)
	}
	if info.ActiveWorlds != 0 {
		t.Errorf("ActiveWorlds = %d, want 0", info.ActiveWorlds)
	}
}

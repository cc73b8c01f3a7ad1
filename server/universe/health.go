package universe

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ClientCount returns the number of currently connected clients, for
// operator-facing surfaces (the admin console, the health HTTP mux).
func (u *UniverseServer) ClientCount() int { return u.clientCount() }

// serverInfo is the JSON body served at /serverinfo, a plain-HTTP sibling
// to the ServerInfo wire packet (spec.md §6) meant for load balancers and
// uptime monitors that would rather not speak the game protocol.
type serverInfo struct {
	ClientCount int     `json:"clientCount"`
	MaxPlayers  int     `json:"maxPlayers"`
	Paused      bool    `json:"paused"`
	Timescale   float64 `json:"timescale"`
	ActiveWorlds int    `json:"activeWorlds"`
}

// HealthRouter builds the health/server-info HTTP surface SPEC_FULL.md §6
// describes, served on Settings.HealthAddress when non-empty.
func (u *UniverseServer) HealthRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/serverinfo", func(w http.ResponseWriter, r *http.Request) {
		info := serverInfo{
			ClientCount:  u.ClientCount(),
			MaxPlayers:   u.conf.MaxPlayers,
			Paused:       u.PauseFlag().Load(),
			Timescale:    u.Timescale(),
			ActiveWorlds: len(u.registry.Active()),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	})
	return r
}

package config

import (
	"os"
	"testing"
)

func TestDefaultUserConfigProducesValidRuntimeConfig(t *testing.T) {
	uc := DefaultUserConfig()
	cfg, err := uc.Config(nil)
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if cfg.StorageDir == "" {
		t.Fatal("expected a non-empty default storage directory")
	}
	if cfg.MaxPlayers <= 0 {
		t.Fatalf("expected positive MaxPlayers, got %d", cfg.MaxPlayers)
	}
}

func TestLoadUserConfigMissingFileReturnsDefaults(t *testing.T) {
	uc, err := LoadUserConfig("/nonexistent/path/universe.toml")
	if err != nil {
		t.Fatalf("LoadUserConfig: %v", err)
	}
	if uc.Network.Address != DefaultUserConfig().Network.Address {
		t.Fatalf("expected default address, got %q", uc.Network.Address)
	}
}

func TestServerUserPasswordOverlaidFromEnv(t *testing.T) {
	os.Setenv("UNIVERSE_PASSWORD_ALICE", "s3cret")
	defer os.Unsetenv("UNIVERSE_PASSWORD_ALICE")

	uc := DefaultUserConfig()
	uc.ServerUsers["alice"] = ServerUser{Password: "placeholder", Admin: true}
	cfg, err := uc.Config(nil)
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if cfg.ServerUsers["alice"].Password != "s3cret" {
		t.Fatalf("expected env override to win, got %q", cfg.ServerUsers["alice"].Password)
	}
	if !cfg.ServerUsers["alice"].Admin {
		t.Fatal("expected admin flag to be preserved")
	}
}

func TestParseBoolTolerant(t *testing.T) {
	cases := map[string]bool{"1": true, "true": true, "yes": true, "on": true, "0": false, "false": false, "": false}
	for in, want := range cases {
		got, err := ParseBool(in)
		if err != nil {
			t.Fatalf("ParseBool(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseBool(%q) = %v, want %v", in, got, want)
		}
	}
}

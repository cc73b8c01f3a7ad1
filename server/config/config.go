// Package config implements the two-layer configuration split described in
// SPEC_FULL.md §2: a human-editable TOML UserConfig, overlaid with
// environment secrets, converted to a validated runtime Config.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
)

// ServerUser is one entry of the serverUsers map: an account's password and
// admin flag.
type ServerUser struct {
	Password string `toml:"password"`
	Admin    bool   `toml:"admin"`
}

// UserConfig is the operator-facing bootstrap file, loaded from TOML.
type UserConfig struct {
	Network struct {
		Address           string `toml:"address"`
		HealthAddress     string `toml:"healthAddress"`
		MainWakeupMs      int    `toml:"mainWakeupMs"`
		ClockUpdateMs     int    `toml:"clockUpdateMs"`
		ClientWaitLimitMs int    `toml:"clientWaitLimitMs"`
		ConnectionTimeout int    `toml:"connectionTimeoutMs"`
	} `toml:"network"`
	Players struct {
		MaxCount           int  `toml:"maxCount"`
		AllowAssetsMismatch bool `toml:"allowAssetsMismatch"`
	} `toml:"players"`
	Storage struct {
		Directory          string `toml:"directory"`
		StorageIntervalMs  int    `toml:"storageIntervalMs"`
	} `toml:"storage"`
	Bans struct {
		IPs   []string `toml:"ips"`
		Uuids []string `toml:"uuids"`
	} `toml:"bans"`
	ServerUsers map[string]ServerUser `toml:"serverUsers"`
}

// DefaultUserConfig returns a UserConfig with sensible defaults, mirroring
// the teacher's DefaultConfig.
func DefaultUserConfig() UserConfig {
	var c UserConfig
	c.Network.Address = ":21025"
	c.Network.HealthAddress = ""
	c.Network.MainWakeupMs = 100
	c.Network.ClockUpdateMs = 1000
	c.Network.ClientWaitLimitMs = 5000
	c.Network.ConnectionTimeout = 30000
	c.Players.MaxCount = 32
	c.Storage.Directory = "storage"
	c.Storage.StorageIntervalMs = 300000
	c.ServerUsers = map[string]ServerUser{}
	return c
}

// LoadUserConfig reads and parses a TOML file at path. A missing file is not
// an error: DefaultUserConfig is returned instead, matching the teacher's
// tolerance for a fresh install with no config file yet.
func LoadUserConfig(path string) (UserConfig, error) {
	c := DefaultUserConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c, nil
}

// Config is the validated, defaulted runtime structure the rest of the
// module consumes.
type Config struct {
	Log *slog.Logger

	Address       string
	HealthAddress string

	MainWakeupInterval  time.Duration
	ClockUpdateInterval time.Duration
	ClientWaitLimit     time.Duration
	ConnectionTimeout   time.Duration

	MaxPlayers          int
	AllowAssetsMismatch bool

	StorageDir       string
	StorageInterval  time.Duration

	BannedIPs   []string
	BannedUuids []string

	ServerUsers map[string]ServerUser
}

// Config converts uc to a runtime Config, overlaying environment secrets
// loaded via godotenv (account passwords and storage path overrides are
// expected as env vars rather than checked into the TOML file).
func (uc UserConfig) Config(log *slog.Logger) (Config, error) {
	if log == nil {
		log = slog.Default()
	}
	_ = godotenv.Load() // best effort; absence of a .env file is normal

	cfg := Config{
		Log:                 log,
		Address:             uc.Network.Address,
		HealthAddress:       uc.Network.HealthAddress,
		MainWakeupInterval:  durationMs(uc.Network.MainWakeupMs, 100),
		ClockUpdateInterval: durationMs(uc.Network.ClockUpdateMs, 1000),
		ClientWaitLimit:     durationMs(uc.Network.ClientWaitLimitMs, 5000),
		ConnectionTimeout:   durationMs(uc.Network.ConnectionTimeout, 30000),
		MaxPlayers:          uc.Players.MaxCount,
		AllowAssetsMismatch: uc.Players.AllowAssetsMismatch,
		StorageDir:          uc.Storage.Directory,
		StorageInterval:     durationMs(uc.Storage.StorageIntervalMs, 300000),
		BannedIPs:           append([]string(nil), uc.Bans.IPs...),
		BannedUuids:         append([]string(nil), uc.Bans.Uuids...),
		ServerUsers:         map[string]ServerUser{},
	}
	for account, user := range uc.ServerUsers {
		cfg.ServerUsers[account] = user
	}
	if override := os.Getenv("UNIVERSE_STORAGE_DIR"); override != "" {
		cfg.StorageDir = override
	}
	if err := overlayServerUserSecrets(cfg.ServerUsers); err != nil {
		return cfg, err
	}
	if cfg.StorageDir == "" {
		return cfg, fmt.Errorf("config: storage directory must not be empty")
	}
	if cfg.MaxPlayers <= 0 {
		log.Warn("config: maxCount unset or non-positive, defaulting to 32")
		cfg.MaxPlayers = 32
	}
	return cfg, nil
}

// overlayServerUserSecrets lets an operator supply/override a server user's
// password via UNIVERSE_PASSWORD_<ACCOUNT> rather than storing it in the
// checked-in TOML file.
func overlayServerUserSecrets(users map[string]ServerUser) error {
	const prefix = "UNIVERSE_PASSWORD_"
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, prefix) {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		account := strings.ToLower(strings.TrimPrefix(parts[0], prefix))
		u := users[account]
		u.Password = parts[1]
		users[account] = u
	}
	return nil
}

func durationMs(ms, fallback int) time.Duration {
	if ms <= 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// ParseBool mirrors the teacher's tolerant boolean parsing for env/CLI
// overrides ("1"/"true"/"yes" and their opposites).
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off", "":
		return false, nil
	}
	return strconv.ParseBool(s)
}

package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

// envelope is the on-disk shape of every versioned JSON file: a kind tag
// (used to sanity-check the file matches what's being loaded), a schema
// version, and the payload itself.
type envelope struct {
	Kind    string          `json:"kind"`
	Version int             `json:"version"`
	Content json.RawMessage `json:"content"`
}

// Migration upgrades one version's raw content to the next version's raw
// content. A kind's registry must supply a contiguous chain from the oldest
// supported version up to CurrentVersion.
type Migration func(old json.RawMessage) (json.RawMessage, error)

// Schema describes how to load/save one kind of versioned file.
type Schema struct {
	Kind           string
	CurrentVersion int
	// Migrations maps a version v to the function that upgrades it to v+1.
	Migrations map[int]Migration
}

// ErrKindMismatch is returned by Load when the file's kind tag doesn't
// match the schema being used to read it.
type ErrKindMismatch struct{ Got, Want string }

func (e ErrKindMismatch) Error() string {
	return fmt.Sprintf("storage: kind mismatch: file is %q, expected %q", e.Got, e.Want)
}

// SaveJSON writes v to path as a versioned envelope at schema.CurrentVersion,
// atomically (write to a temp file, then rename).
func SaveJSON(schema Schema, path string, v any) error {
	content, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", schema.Kind, err)
	}
	data, err := json.Marshal(envelope{Kind: schema.Kind, Version: schema.CurrentVersion, Content: content})
	if err != nil {
		return fmt.Errorf("storage: marshal envelope for %s: %w", schema.Kind, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("storage: rename %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads path, migrates its content up to schema.CurrentVersion, and
// unmarshals it into v. If the file is missing, it returns os.ErrNotExist
// unchanged so callers can substitute a default. On any other load failure,
// the bad file is renamed to "<path>.<unixMillis>.fail" per spec §6, and the
// original error is still returned so the caller substitutes a default.
func LoadJSON(schema Schema, path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return err
	}
	if err != nil {
		return fmt.Errorf("storage: read %s: %w", path, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		quarantine(path, len(data))
		return fmt.Errorf("storage: decode envelope %s: %w", path, err)
	}
	if env.Kind != schema.Kind {
		quarantine(path, len(data))
		return ErrKindMismatch{Got: env.Kind, Want: schema.Kind}
	}

	content := env.Content
	for version := env.Version; version < schema.CurrentVersion; version++ {
		migrate, ok := schema.Migrations[version]
		if !ok {
			quarantine(path, len(data))
			return fmt.Errorf("storage: no migration from version %d for %s", version, schema.Kind)
		}
		content, err = migrate(content)
		if err != nil {
			quarantine(path, len(data))
			return fmt.Errorf("storage: migrate %s from version %d: %w", schema.Kind, version, err)
		}
	}
	if err := json.Unmarshal(content, v); err != nil {
		quarantine(path, len(data))
		return fmt.Errorf("storage: unmarshal %s content: %w", schema.Kind, err)
	}
	return nil
}

// quarantine renames a file that failed to load to <name>.<unixMillis>.fail,
// per spec §6 ("On load failure, the file is renamed ... and a default is
// substituted"). Failure to rename is swallowed: the caller already has a
// load error to report, and a missing quarantine is not itself fatal.
func quarantine(path string, size int) {
	failPath := fmt.Sprintf("%s.%d.fail", path, time.Now().UnixMilli())
	if err := os.Rename(path, failPath); err != nil {
		return
	}
	slog.Default().Warn("quarantined unreadable storage file",
		"file", filepath.Base(path), "size", humanize.Bytes(uint64(size)), "renamedTo", filepath.Base(failPath))
}

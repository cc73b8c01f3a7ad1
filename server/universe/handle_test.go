package universe

import (
	"testing"

	"github.com/google/uuid"
)

func TestWorldHandleKeyEquality(t *testing.T) {
	a := CelestialWorldID(CelestialCoordinate{System: [3]int32{1, 2, 3}, Planet: 4})
	b := CelestialWorldID(CelestialCoordinate{System: [3]int32{1, 2, 3}, Planet: 4})
	if a.Key() != b.Key() {
		t.Fatal("structurally equal celestial handles should have equal keys")
	}

	u := uuid.New()
	lvl := 2
	i1 := InstanceWorldID("dungeon", &u, &lvl)
	i2 := InstanceWorldID("dungeon", &u, &lvl)
	if i1.Key() != i2.Key() {
		t.Fatal("structurally equal instance handles should have equal keys")
	}

	shared := InstanceWorldID("dungeon", nil, nil)
	if !shared.Shared() {
		t.Fatal("nil uuid instance handle should be Shared()")
	}
	if i1.Shared() {
		t.Fatal("per-player instance handle should not be Shared()")
	}
}

func TestWorldHandleFileNames(t *testing.T) {
	u := uuid.New()
	h := ClientShipWorldID(u)
	if h.FileBaseName() != u.String() {
		t.Fatalf("FileBaseName() = %q, want %q", h.FileBaseName(), u.String())
	}

	inst := InstanceWorldID("arena", nil, nil)
	if inst.PersistentFileName() != "unique-arena.world" {
		t.Fatalf("PersistentFileName() = %q", inst.PersistentFileName())
	}
	if inst.TempFileName() != "arena.tempworld" {
		t.Fatalf("TempFileName() = %q", inst.TempFileName())
	}
}

func TestHandleFromKeyRoundTrip(t *testing.T) {
	u := uuid.New()
	lvl := 3
	h := InstanceWorldID("vault", &u, &lvl)
	got := handleFromKey(h.Key())
	if got.Key() != h.Key() {
		t.Fatalf("handleFromKey round-trip mismatch: %+v vs %+v", got, h)
	}
}

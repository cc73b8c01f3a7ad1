package world

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sandboxverse/universe/server/dungeon"
	"github.com/sandboxverse/universe/server/geometry"
	"github.com/sandboxverse/universe/server/layout"
)

// A freshly loaded sector is generated on demand: the layout is sampled
// for its region, a light window is computed, and microdungeons queued
// inside it are placed through the dungeon worker (spec.md §4.E step 10).
func TestFreshSectorGeneratesLightRegionAndMicrodungeons(t *testing.T) {
	lay := layout.New(layout.Config{RegionBlending: 4, Width: 1000})
	lay.AddLayer(0, layout.WorldRegion{BiomeIndex: 7})

	shrine := &dungeon.Part{
		Name:   "shrine",
		Size:   dungeon.Vec2I{X: 1, Y: 1},
		Paints: []dungeon.Paint{{Phase: dungeon.PhaseWall, Brush: dungeon.MaterialBrush{Material: 3}}},
	}
	def := &dungeon.Definition{
		Name:      "micro",
		Parts:     map[string]*dungeon.Part{"shrine": shrine},
		Anchors:   []dungeon.Anchor{{PartName: "shrine", Chance: 1}},
		MaxParts:  1,
		MaxRadius: 10,
	}
	facade := newRecordingTileFacade()
	worker := dungeon.NewWorker(dungeon.NewGenerator(def, 1, dungeon.NewWriter(nil, nil), facade))
	defer worker.Stop()

	w := New(Config{Layout: lay, Dungeons: worker, DungeonFacade: facade})
	defer w.Close()

	w.SetClientWindow(ClientWindow{ID: 1, Window: geometry.Rect{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{10, 10}}})
	w.QueueMicrodungeon(dungeon.Vec2I{X: 5, Y: 5})
	w.Tick(50 * time.Millisecond)

	coord := SectorCoord{X: 0, Y: 0}
	if w.SectorLight(coord) == nil {
		t.Fatal("expected a lightmap for the freshly loaded sector")
	}
	region, ok := w.SectorRegion(coord)
	if !ok || region.BiomeIndex != 7 {
		t.Fatalf("SectorRegion = %+v, %v, want the layout's biome 7", region, ok)
	}
	if facade.foreground[dungeon.Vec2I{X: 5, Y: 5}] != 3 {
		t.Fatalf("queued microdungeon was not placed on sector load: %v", facade.foreground)
	}
	if len(w.pendingDungeons) != 0 {
		t.Fatalf("microdungeon queue not drained: %v", w.pendingDungeons)
	}
}

// A queued microdungeon outside the loaded sector stays queued until its
// own sector loads.
func TestMicrodungeonOutsideSectorStaysQueued(t *testing.T) {
	facade := newRecordingTileFacade()
	def := &dungeon.Definition{
		Name:      "micro",
		Parts:     map[string]*dungeon.Part{},
		Anchors:   nil,
		MaxParts:  1,
		MaxRadius: 10,
	}
	worker := dungeon.NewWorker(dungeon.NewGenerator(def, 1, dungeon.NewWriter(nil, nil), facade))
	defer worker.Stop()

	w := New(Config{Dungeons: worker, DungeonFacade: facade})
	defer w.Close()

	w.SetClientWindow(ClientWindow{ID: 1, Window: geometry.Rect{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{10, 10}}})
	w.QueueMicrodungeon(dungeon.Vec2I{X: 500, Y: 500})
	w.Tick(50 * time.Millisecond)

	if len(w.pendingDungeons) != 1 {
		t.Fatalf("out-of-sector microdungeon should stay queued, got %v", w.pendingDungeons)
	}
}

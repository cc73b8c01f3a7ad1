package world

import (
	"github.com/sandboxverse/universe/server/dungeon"
	"github.com/sandboxverse/universe/server/layout"
	"github.com/sandboxverse/universe/server/light"
)

// SectorSize is the fixed edge length, in tiles, of one loadable sector
// (spec.md §4.E step 10, glossary "Sector").
const SectorSize = 32

// SectorCoord identifies one sector by its grid coordinate (world X divided
// by SectorSize, with wrap handled by the caller before indexing).
type SectorCoord struct{ X, Y int }

// sectorOf returns the sector containing world tile (x, y).
func sectorOf(x, y int) SectorCoord {
	return SectorCoord{X: floorDiv(x, SectorSize), Y: floorDiv(y, SectorSize)}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// sectorState tracks a loaded sector's last-touched tick so it can be aged
// out once no client window has covered it for SectorExpiryTicks.
type sectorState struct {
	lastTouchedTick uint64
	loaded          bool
}

// SectorExpiryTicks is how many ticks a sector may go untouched by any
// client window before SectorSet.AgeOut unloads it.
const SectorExpiryTicks = 600

// SectorSet tracks which sectors are currently loaded and when they were
// last touched by an active client window (spec.md §4.E step 10).
type SectorSet struct {
	states map[SectorCoord]*sectorState
}

// NewSectorSet returns an empty SectorSet.
func NewSectorSet() *SectorSet {
	return &SectorSet{states: map[SectorCoord]*sectorState{}}
}

// Touch marks coord as loaded and freshly touched at tick, returning true if
// this is the sector's first load (the caller should then run dungeon
// microdungeon queue processing and the spawner against it).
func (s *SectorSet) Touch(coord SectorCoord, tick uint64) (firstLoad bool) {
	st, ok := s.states[coord]
	if !ok {
		st = &sectorState{}
		s.states[coord] = st
	}
	firstLoad = !st.loaded
	st.loaded = true
	st.lastTouchedTick = tick
	return firstLoad
}

// TouchArea marks every sector overlapping [xMin, xMax) x [yMin, yMax) at
// tick and returns the newly-loaded ones.
func (s *SectorSet) TouchArea(xMin, yMin, xMax, yMax int, tick uint64) []SectorCoord {
	var fresh []SectorCoord
	for y := floorDiv(yMin, SectorSize); y <= floorDiv(yMax-1, SectorSize); y++ {
		for x := floorDiv(xMin, SectorSize); x <= floorDiv(xMax-1, SectorSize); x++ {
			coord := SectorCoord{X: x, Y: y}
			if s.Touch(coord, tick) {
				fresh = append(fresh, coord)
			}
		}
	}
	return fresh
}

// AgeOut unloads every sector untouched for more than SectorExpiryTicks as
// of currentTick, returning the unloaded coordinates.
func (s *SectorSet) AgeOut(currentTick uint64) []SectorCoord {
	var aged []SectorCoord
	for coord, st := range s.states {
		if st.loaded && currentTick-st.lastTouchedTick > SectorExpiryTicks {
			st.loaded = false
			aged = append(aged, coord)
		}
	}
	return aged
}

// generateSector runs the on-demand generation a freshly loaded sector
// needs before it is served: sample the world layout for the sector's
// region, recalculate its light window, and place any microdungeons queued
// inside it (spec.md §4.E step 10).
func (w *World) generateSector(coord SectorCoord) {
	if w.conf.Layout != nil {
		w.sectorRegions[coord] = w.regionFor(coord)
	}
	w.relightSector(coord)
	w.processMicrodungeons(coord)
}

// regionFor samples the layout at the sector's center and returns the
// dominant region there; the spawner reads it back via SectorRegion to pick
// biome spawn profiles.
func (w *World) regionFor(coord SectorCoord) layout.WorldRegion {
	cx := float64(coord.X*SectorSize) + SectorSize/2
	cy := float64(coord.Y*SectorSize) + SectorSize/2
	weights := w.conf.Layout.GetWeighting(cx, cy)
	if len(weights) == 0 {
		return layout.WorldRegion{}
	}
	return weights[0].Region
}

// SectorRegion returns the dominant layout region sampled when coord was
// generated. ok is false for sectors generated without a layout or never
// loaded.
func (w *World) SectorRegion(coord SectorCoord) (layout.WorldRegion, bool) {
	r, ok := w.sectorRegions[coord]
	return r, ok
}

// relightSector recomputes the sector's scalar light window. The array is
// owned by this world alone, one calculation at a time, so Begin can reuse
// its storage every call (spec.md §5: the light array is never shared
// across threads).
func (w *World) relightSector(coord SectorCoord) {
	border := w.lightArray.BorderCells()
	span := SectorSize + 2*border
	w.lightArray.Begin(span, span)

	baseX := coord.X*SectorSize - border
	baseY := coord.Y*SectorSize - border
	if w.conf.Obstacle != nil {
		for x := 0; x < span; x++ {
			for y := 0; y < span; y++ {
				if w.conf.Obstacle(baseX+x, baseY+y) {
					w.lightArray.SetObstacle(x, y, true)
				}
			}
		}
	}
	w.lightArray.Calculate(border, border, border+SectorSize, border+SectorSize)

	lm := w.sectorLight[coord]
	if lm == nil {
		lm = light.NewLightmap(SectorSize, SectorSize)
		w.sectorLight[coord] = lm
	}
	for x := 0; x < SectorSize; x++ {
		for y := 0; y < SectorSize; y++ {
			_ = lm.Set(x, y, w.lightArray.GetLight(x+border, y+border))
		}
	}
}

// SectorLight returns the lightmap computed when coord was generated, or
// nil if the sector has never loaded.
func (w *World) SectorLight(coord SectorCoord) *light.Lightmap {
	return w.sectorLight[coord]
}

// QueueMicrodungeon schedules a microdungeon placement at pos. Placement is
// deferred until the sector containing pos first loads, at which point the
// queued position is handed to the dungeon worker.
func (w *World) QueueMicrodungeon(pos dungeon.Vec2I) {
	w.pendingDungeons = append(w.pendingDungeons, pos)
}

// processMicrodungeons places every queued microdungeon whose position
// falls inside the freshly loaded sector, flushing the worker's buffered
// paints into the world facade afterwards.
func (w *World) processMicrodungeons(coord SectorCoord) {
	if w.conf.Dungeons == nil || len(w.pendingDungeons) == 0 {
		return
	}
	remaining := w.pendingDungeons[:0]
	placed := false
	for _, pos := range w.pendingDungeons {
		if sectorOf(pos.X, pos.Y) != coord {
			remaining = append(remaining, pos)
			continue
		}
		res := w.conf.Dungeons.Place(pos, false)
		if !res.OK {
			w.log.Warn("microdungeon placement failed", "x", pos.X, "y", pos.Y)
			continue
		}
		placed = true
	}
	w.pendingDungeons = remaining
	if placed && w.conf.DungeonFacade != nil {
		w.conf.Dungeons.Flush(w.conf.DungeonFacade)
	}
}

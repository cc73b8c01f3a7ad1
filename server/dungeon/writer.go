package dungeon

// WorldFacade is the subset of the world server the dungeon generator
// writes through (spec.md §6 DungeonGeneratorWorldFacade). The generator
// never mutates the world directly — all paints go through a Writer, which
// applies them to a WorldFacade only on Flush.
type WorldFacade interface {
	SetForeground(pos Vec2I, material int, hue uint8)
	SetBackground(pos Vec2I, material int, hue uint8)
	SetForegroundMod(pos Vec2I, mod int, hue uint8)
	SetBackgroundMod(pos Vec2I, mod int, hue uint8)
	SetForegroundColor(pos Vec2I, color [3]uint8)
	SetBackgroundColor(pos Vec2I, color [3]uint8)
	SetLiquid(pos Vec2I, liquid int, level float64)
	SetDungeonId(pos Vec2I, id uint16)
	AddObject(pos Vec2I, name string, params map[string]any)
	AddVehicle(pos Vec2I, name string, params map[string]any)
	AddBiomeTree(pos Vec2I, species string)
	AddBiomeItem(pos Vec2I, name string)
	AddNpc(pos Vec2I, species string, params map[string]any)
	AddDrop(pos Vec2I, item string)
	AddStagehand(pos Vec2I, kind string, params map[string]any)
	ConnectWire(pos Vec2I, group string, isInput bool, port int)
	SetPlayerStart(pos Vec2I)
	ClearTileEntities(pos Vec2I)
	IsSolid(pos Vec2I) bool
	IsOpen(pos Vec2I) bool
	IsOcean(pos Vec2I) bool
	DungeonIdAt(pos Vec2I) uint16
}

type liquidRequest struct {
	pos    Vec2I
	liquid int
	level  float64
}

// Writer buffers one part's (or one generation run's) paint operations so
// they can be applied atomically on Flush, and so FinishPart can compute a
// bounding box from what was actually touched.
type Writer struct {
	// Wrap normalises a position into world-valid range (handles X wrap);
	// required before any position reaches the facade.
	Wrap func(Vec2I) Vec2I

	seedSalt []byte

	objects []func(WorldFacade)
	liquids []liquidRequest

	touched map[Vec2I]struct{}
	partMin, partMax Vec2I
	havePartBounds   bool

	// Warnings collects non-fatal InvalidBrush reports.
	Warnings []InvalidBrushWarning
}

// NewWriter constructs a Writer. wrap must normalise any position into
// world-valid range; seedSalt seeds RandomBrush selection deterministically
// per generation run.
func NewWriter(wrap func(Vec2I) Vec2I, seedSalt []byte) *Writer {
	if wrap == nil {
		wrap = func(v Vec2I) Vec2I { return v }
	}
	return &Writer{Wrap: wrap, seedSalt: seedSalt, touched: map[Vec2I]struct{}{}}
}

func (w *Writer) markTouched(pos Vec2I) {
	pos = w.Wrap(pos)
	w.touched[pos] = struct{}{}
	if !w.havePartBounds {
		w.partMin, w.partMax = pos, pos
		w.havePartBounds = true
		return
	}
	if pos.X < w.partMin.X {
		w.partMin.X = pos.X
	}
	if pos.Y < w.partMin.Y {
		w.partMin.Y = pos.Y
	}
	if pos.X > w.partMax.X {
		w.partMax.X = pos.X
	}
	if pos.Y > w.partMax.Y {
		w.partMax.Y = pos.Y
	}
}

func (w *Writer) SetForeground(pos Vec2I, material int, hue uint8) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.SetForeground(p, material, hue) })
}

func (w *Writer) SetBackground(pos Vec2I, material int, hue uint8) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.SetBackground(p, material, hue) })
}

// SetForegroundMod and SetBackgroundMod buffer a PhaseMods brush paint.
func (w *Writer) SetForegroundMod(pos Vec2I, mod int, hue uint8) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.SetForegroundMod(p, mod, hue) })
}

func (w *Writer) SetBackgroundMod(pos Vec2I, mod int, hue uint8) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.SetBackgroundMod(p, mod, hue) })
}

func (w *Writer) SetForegroundColor(pos Vec2I, color [3]uint8) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.SetForegroundColor(p, color) })
}

func (w *Writer) SetBackgroundColor(pos Vec2I, color [3]uint8) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.SetBackgroundColor(p, color) })
}

func (w *Writer) AddObject(pos Vec2I, name string, params map[string]any) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.AddObject(p, name, params) })
}

// AddVehicle buffers a PhaseObject vehicle paint.
func (w *Writer) AddVehicle(pos Vec2I, name string, params map[string]any) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.AddVehicle(p, name, params) })
}

// AddBiomeTree and AddBiomeItem buffer PhaseBiomeTrees/PhaseBiomeItems paints.
func (w *Writer) AddBiomeTree(pos Vec2I, species string) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.AddBiomeTree(p, species) })
}

func (w *Writer) AddBiomeItem(pos Vec2I, name string) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.AddBiomeItem(p, name) })
}

// AddStagehand buffers a stagehand spawn paint.
func (w *Writer) AddStagehand(pos Vec2I, kind string, params map[string]any) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.AddStagehand(p, kind, params) })
}

// ConnectWire buffers a PhaseWire connection paint.
func (w *Writer) ConnectWire(pos Vec2I, group string, isInput bool, port int) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.ConnectWire(p, group, isInput, port) })
}

// SetPlayerStart buffers a player-start marker paint.
func (w *Writer) SetPlayerStart(pos Vec2I) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.SetPlayerStart(p) })
}

func (w *Writer) AddNpc(pos Vec2I, species string, params map[string]any) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.AddNpc(p, species, params) })
}

func (w *Writer) AddDrop(pos Vec2I, item string) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.AddDrop(p, item) })
}

func (w *Writer) SetDungeonId(pos Vec2I, id uint16) {
	w.markTouched(pos)
	p := w.Wrap(pos)
	w.objects = append(w.objects, func(f WorldFacade) { f.SetDungeonId(p, id) })
}

// RequestLiquid queues a liquid placement for the request phase; liquids
// are applied after every other paint so carved-out tiles exist first.
func (w *Writer) RequestLiquid(pos Vec2I, liquid int, level float64) {
	w.markTouched(pos)
	w.liquids = append(w.liquids, liquidRequest{pos: w.Wrap(pos), liquid: liquid, level: level})
}

// FinishPart returns the bounding box of everything touched since the last
// FinishPart call, and resets the per-part touched-bounds tracker (the
// buffered operations themselves are NOT cleared — Flush still applies
// them; this only resets bookkeeping used to report per-part bounds).
func (w *Writer) FinishPart() (min, max Vec2I, ok bool) {
	min, max, ok = w.partMin, w.partMax, w.havePartBounds
	w.havePartBounds = false
	return
}

// Flush applies every buffered operation to facade in two phases: all
// non-liquid paints first, then queued liquid requests.
func (w *Writer) Flush(facade WorldFacade) {
	for _, op := range w.objects {
		op(facade)
	}
	for _, l := range w.liquids {
		facade.SetLiquid(l.pos, l.liquid, l.level)
	}
	w.objects = w.objects[:0]
	w.liquids = w.liquids[:0]
}

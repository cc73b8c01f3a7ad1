package dungeon

import "testing"

func TestWorkerPlaceAndFlush(t *testing.T) {
	anchor := fiveByFivePart("anchor")
	def := &Definition{
		Name:      "worker-anchor",
		Parts:     map[string]*Part{"anchor": anchor},
		Anchors:   []Anchor{{PartName: "anchor", Chance: 1}},
		MaxParts:  8,
		MaxRadius: 100,
	}
	w := NewWriter(nil, nil)
	gen := NewGenerator(def, 42, w, newRecordingFacade())
	worker := NewWorker(gen)
	defer worker.Stop()

	res := worker.Place(Vec2I{0, 0}, false)
	if !res.OK {
		t.Fatal("expected placement to succeed")
	}
	facade := newRecordingFacade()
	worker.Flush(facade)
	if len(facade.foreground) != 25 {
		t.Fatalf("expected 25 painted tiles after flush, got %d", len(facade.foreground))
	}
}

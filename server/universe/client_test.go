package universe

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/sandboxverse/universe/server/protocol"
)

// TestClientContextRoundTrip is spec.md §8's "Serializing and
// deserializing a ClientContext ... yields an equal ClientContext".
func TestClientContextRoundTrip(t *testing.T) {
	original := &ClientContext{
		PlayerUUID:     uuid.New(),
		Nickname:       "Zeph",
		Species:        "human",
		Admin:          true,
		ShipUpgrades:   ShipUpgrades{Level: 3, MaxFuel: 500, CrewSize: 2, FuelEfficiency: 1.1, Speed: 2.2},
		ShipCoordinate: CelestialCoordinate{System: [3]int32{1, 2, 3}, Planet: 4},
		ShipChunks:     []byte{1, 2, 3, 4},
		ReturnWarp:     warpPtr(Alias(WarpAliasOwnShip)),
		IntroComplete:  true,
	}

	restored := fromPersisted(original.toPersisted())
	restored.ConnectionID = original.ConnectionID // not part of the persisted shape

	if !reflect.DeepEqual(original.toPersisted(), restored.toPersisted()) {
		t.Fatalf("round trip mismatch:\noriginal: %+v\nrestored: %+v", original, restored)
	}
}

func warpPtr(w WarpAction) *WarpAction { return &w }

func TestDrainQueuesAreFIFOAndClearing(t *testing.T) {
	c := &ClientContext{}
	c.QueueOutgoing(protocol.Packet{Kind: protocol.KindChatReceive, Body: []byte("one")})
	c.QueueOutgoing(protocol.Packet{Kind: protocol.KindChatReceive, Body: []byte("two")})

	got := c.DrainOutgoing()
	if len(got) != 2 {
		t.Fatalf("DrainOutgoing() len = %d, want 2", len(got))
	}
	if string(got[0].Body) != "one" || string(got[1].Body) != "two" {
		t.Fatalf("DrainOutgoing() not FIFO: %+v", got)
	}
	if len(c.DrainOutgoing()) != 0 {
		t.Fatal("second DrainOutgoing() should be empty")
	}
}

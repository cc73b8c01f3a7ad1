package universe

import (
	"testing"

	"github.com/google/uuid"
)

func TestProcessFlightSameSystemOnlyUpdatesDestination(t *testing.T) {
	coord := CelestialCoordinate{System: [3]int32{1, 2, 3}, Planet: 1}
	client := &ClientContext{PlayerUUID: uuid.New(), ShipCoordinate: coord}

	dest := coord
	dest.Planet = 1 // same system, same planet
	res := ProcessFlight(PendingFlight{Client: client, Destination: dest})
	if !res.SameSystem {
		t.Fatal("flight within the current system should not transition worlds")
	}
}

func TestProcessFlightCrossSystemDepartsAndArrives(t *testing.T) {
	from := CelestialCoordinate{System: [3]int32{1, 2, 3}}
	to := CelestialCoordinate{System: [3]int32{4, 5, 6}}
	client := &ClientContext{PlayerUUID: uuid.New(), ShipCoordinate: from}

	res := ProcessFlight(PendingFlight{Client: client, Destination: to, Settings: FlightSettings{Interstellar: true}})
	if res.SameSystem {
		t.Fatal("interstellar flight should transition worlds")
	}
	if res.DepartedWorld != CelestialWorldID(from) {
		t.Fatalf("DepartedWorld = %v, want the origin system", res.DepartedWorld)
	}
	if res.ArrivalWorld != CelestialWorldID(to) {
		t.Fatalf("ArrivalWorld = %v, want the destination system", res.ArrivalWorld)
	}

	ProcessArrival(client, to)
	if client.ShipCoordinate != to {
		t.Fatalf("ShipCoordinate = %v after arrival, want %v", client.ShipCoordinate, to)
	}
	if client.ShipLocation.Celestial == nil || *client.ShipLocation.Celestial != to {
		t.Fatalf("ShipLocation = %+v after arrival, want orbit at destination", client.ShipLocation)
	}
}

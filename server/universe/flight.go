package universe

// FlightSettings carries client-requested interstellar travel parameters
// (spec.md §4.G "Ship flight"); the concrete fields (e.g. requested speed)
// are opaque to the core beyond what routing needs, per spec.md §1's wire
// non-goal.
type FlightSettings struct {
	Interstellar bool
}

// PendingFlight is one client's in-progress FlyShip request.
type PendingFlight struct {
	Client      *ClientContext
	Destination CelestialCoordinate
	Settings    FlightSettings
}

// FlightResult reports how ProcessFlight classified a pending flight, for
// the caller to act on (updating world membership, queuing an arrival,
// sending PlayerWarpResult).
type FlightResult struct {
	// SameSystem is true if Destination equals the client's current
	// system: only the ship's destination marker was updated, no world
	// transition happens.
	SameSystem bool
	// DepartedWorld is the handle the client should be removed from, when
	// !SameSystem.
	DepartedWorld WorldHandle
	// ArrivalWorld is the handle to create/reuse and place the client into
	// once flight completes, when !SameSystem.
	ArrivalWorld WorldHandle
}

func sameCoordinate(a, b CelestialCoordinate) bool {
	return a.System == b.System && a.Planet == b.Planet && a.Satellite == b.Satellite
}

// ProcessFlight classifies one pending flight (spec.md §4.G): if the
// destination system equals the client's current system the result has
// SameSystem set; otherwise it names the world being departed and the one
// to arrive in. It does not modify the client, mark the ship world in
// flight or queue an arrival; ProcessArrival applies the arrival.
func ProcessFlight(f PendingFlight) FlightResult {
	current := f.Client.ShipCoordinate
	if current.System == f.Destination.System {
		return FlightResult{SameSystem: true}
	}
	return FlightResult{
		SameSystem:    false,
		DepartedWorld: CelestialWorldID(current),
		ArrivalWorld:  CelestialWorldID(f.Destination),
	}
}

// ProcessArrival implements the "On arrival" half of spec.md §4.G's ship
// flight: the destination system world is created (or reused) and the
// client's ship coordinate/location are updated to reflect having arrived,
// so subsequent warps for this and any other client aboard the same ship
// resolve against the new system.
func ProcessArrival(client *ClientContext, destination CelestialCoordinate) {
	client.ShipCoordinate = destination
	client.ShipLocation = ShipLocation{Celestial: &destination}
}

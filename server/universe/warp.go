package universe

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// WarpActionKind discriminates WarpAction's variants (spec.md §4.G).
type WarpActionKind int

const (
	WarpToWorld WarpActionKind = iota
	WarpToPlayer
	WarpAlias
)

// WarpAliasKind enumerates the Return/OrbitedWorld/OwnShip aliases.
type WarpAliasKind int

const (
	WarpAliasReturn WarpAliasKind = iota
	WarpAliasOrbitedWorld
	WarpAliasOwnShip
)

// SpawnTarget is an optional landing position hint within the destination
// world; nil lets the world pick its own sensible start.
type SpawnTarget struct {
	X, Y float64
}

// WarpAction is the closed sum spec.md §4.G describes: a concrete world +
// optional spawn target, a warp to wherever a named player currently is, or
// one of the three aliases.
type WarpAction struct {
	Kind WarpActionKind

	World       WorldHandle // WarpToWorld
	SpawnTarget *SpawnTarget // WarpToWorld, optional

	Player uuid.UUID // WarpToPlayer

	Alias WarpAliasKind // WarpAlias
}

// ToWorld constructs a WarpToWorld action.
func ToWorld(h WorldHandle, target *SpawnTarget) WarpAction {
	return WarpAction{Kind: WarpToWorld, World: h, SpawnTarget: target}
}

// ToPlayer constructs a WarpToPlayer action.
func ToPlayer(player uuid.UUID) WarpAction {
	return WarpAction{Kind: WarpToPlayer, Player: player}
}

// Alias constructs a WarpAlias action.
func Alias(kind WarpAliasKind) WarpAction { return WarpAction{Kind: WarpAlias, Alias: kind} }

// ErrWorldNotReady signals the destination world's creation promise hasn't
// resolved yet; callers retry next tick (spec.md §4.G warp resolution step
// 3).
var ErrWorldNotReady = errors.New("universe: destination world not ready yet")

// maxWarpRetries bounds how many ticks ResolveWarp will wait for a pending
// world-creation promise before falling back (spec.md §8 invariant 8: "≤ 2
// retries then fallback").
const maxWarpRetries = 2

// ScriptOverride, if non-nil, lets scripted world logic override a warp
// before the built-in resolution runs; the first non-nil result wins
// (spec.md §4.G warp resolution step 1).
type ScriptOverride func(client *ClientContext, action WarpAction) (WarpAction, bool)

// WorldCreator resolves a WorldHandle to a running thread, matching
// trigger_world_creation's Pending/Ready/Failed contract (spec.md §4.G).
// WorldRegistry.AsCreator (promise.go) is the concrete implementation;
// tests can supply a fake satisfying this signature directly.
type WorldCreator func(h WorldHandle) (thread any, state PromiseState)

// resolveAlias translates an alias against the client's stored warps
// (spec.md §4.G step 2).
func resolveAlias(client *ClientContext, kind WarpAliasKind) (WarpAction, error) {
	switch kind {
	case WarpAliasReturn:
		if client.ReturnWarp != nil {
			return *client.ReturnWarp, nil
		}
		return ownShipWarp(client), nil
	case WarpAliasOrbitedWorld:
		if client.ShipLocation.Celestial != nil {
			return ToWorld(CelestialWorldID(*client.ShipLocation.Celestial), nil), nil
		}
		return ownShipWarp(client), nil
	case WarpAliasOwnShip:
		return ownShipWarp(client), nil
	default:
		return WarpAction{}, fmt.Errorf("universe: unknown warp alias %d", kind)
	}
}

func ownShipWarp(client *ClientContext) WarpAction {
	return ToWorld(ClientShipWorldID(client.PlayerUUID), nil)
}

// ResolveWarp implements spec.md §4.G's resolution pipeline: script
// override, alias translation, world-creation triggering (retried up to
// maxWarpRetries times), and fallback to the return warp then the client's
// own ship if the destination can't be readied (spec.md §8 invariant 8,
// scenario 4).
//
// attempt is the 0-based retry count for action as already translated to a
// concrete WarpToWorld/WarpToPlayer target; callers track this themselves
// across ticks (the universe server retains the in-flight WarpAction and
// its attempt count per client until it resolves).
func ResolveWarp(client *ClientContext, action WarpAction, override ScriptOverride, create WorldCreator, locatePlayer func(uuid.UUID) (WorldHandle, bool), attempt int) (target WorldHandle, spawn *SpawnTarget, ready bool, fellBack bool, err error) {
	if override != nil {
		if overridden, ok := override(client, action); ok {
			action = overridden
		}
	}

	if action.Kind == WarpAlias {
		action, err = resolveAlias(client, action.Alias)
		if err != nil {
			return WorldHandle{}, nil, false, false, err
		}
	}

	if action.Kind == WarpToPlayer {
		handle, ok := locatePlayer(action.Player)
		if !ok {
			return fallbackWarp(client)
		}
		action = ToWorld(handle, nil)
	}

	_, state := create(action.World)
	switch state {
	case PromiseFailed:
		return fallbackWarp(client)
	case PromisePending:
		if attempt >= maxWarpRetries {
			return fallbackWarp(client)
		}
		return WorldHandle{}, nil, false, false, ErrWorldNotReady
	default: // PromiseReady
		return action.World, action.SpawnTarget, true, false, nil
	}
}

func fallbackWarp(client *ClientContext) (WorldHandle, *SpawnTarget, bool, bool, error) {
	if client.ReturnWarp != nil && client.ReturnWarp.Kind == WarpToWorld {
		return client.ReturnWarp.World, client.ReturnWarp.SpawnTarget, true, true, nil
	}
	return ClientShipWorldID(client.PlayerUUID), nil, true, true, nil
}

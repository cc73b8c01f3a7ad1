package universe

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sandboxverse/universe/server/world"
)

var assertErr = errors.New("simulated load failure")

func mustUUID() uuid.UUID { return uuid.New() }

func TestWorldRegistryTriggerResolvesReady(t *testing.T) {
	var calls atomic.Int32
	reg := NewWorldRegistry(nil, func(h WorldHandle) (*world.WorldServerThread, error) {
		calls.Add(1)
		return world.NewWorldServerThread(world.New(world.Config{}), world.ThreadConfig{}), nil
	})

	h := CelestialWorldID(CelestialCoordinate{Planet: 1})
	_, state := reg.Trigger(h)
	if state != PromisePending {
		t.Fatalf("first Trigger state = %v, want Pending", state)
	}

	deadline := time.After(time.Second)
	for {
		if _, state := reg.Trigger(h); state == PromiseReady {
			break
		}
		select {
		case <-deadline:
			t.Fatal("world never became ready")
		case <-time.After(time.Millisecond):
		}
	}

	if _, ok := reg.Thread(h); !ok {
		t.Fatal("Thread() not found after Ready")
	}
	if calls.Load() != 1 {
		t.Fatalf("loader called %d times, want exactly 1 (dedup via singleflight)", calls.Load())
	}
}

func TestWorldRegistryTriggerResolvesFailed(t *testing.T) {
	var failedWith error
	reg := NewWorldRegistry(nil, func(h WorldHandle) (*world.WorldServerThread, error) {
		return nil, assertErr
	})
	reg.OnFailed = func(h WorldHandle, err error) { failedWith = err }

	h := ClientShipWorldID(mustUUID())
	reg.Trigger(h)

	deadline := time.After(time.Second)
	for {
		if _, state := reg.Trigger(h); state == PromiseFailed {
			break
		}
		select {
		case <-deadline:
			t.Fatal("world never failed")
		case <-time.After(time.Millisecond):
		}
	}
	if failedWith != assertErr {
		t.Fatalf("OnFailed err = %v, want %v", failedWith, assertErr)
	}
}

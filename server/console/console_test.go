package console

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sandboxverse/universe/server/universe"
)

func TestConsolePauseUnpause(t *testing.T) {
	srv := universe.New(universe.Settings{}, nil)
	c := New(srv, nil).WithReader(strings.NewReader("pause\nunpause\n"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c.Run(ctx)

	if srv.PauseFlag().Load() {
		t.Fatal("expected unpaused after pause;unpause sequence")
	}
}

func TestConsoleTimescale(t *testing.T) {
	srv := universe.New(universe.Settings{}, nil)
	c := New(srv, nil).WithReader(strings.NewReader("timescale 2.5\n"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c.Run(ctx)

	if got := srv.Timescale(); got != 2.5 {
		t.Fatalf("Timescale() = %v, want 2.5", got)
	}
}

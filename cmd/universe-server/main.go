// Command universe-server is the process entrypoint: it loads
// configuration, wires the universe server, starts the admin console, and
// runs until an interrupt or SIGTERM (spec.md §6
// external interfaces; SPEC_FULL.md §6 "CLI surface gains a
// universe-server root command").
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sandboxverse/universe/server/config"
	"github.com/sandboxverse/universe/server/console"
	"github.com/sandboxverse/universe/server/geometry"
	"github.com/sandboxverse/universe/server/universe"
	"github.com/sandboxverse/universe/server/weather"
	"github.com/sandboxverse/universe/server/world"
)

func main() {
	var configPath, assetsManifest string
	var worldWidth, worldHeight float64

	root := &cobra.Command{
		Use:   "universe-server",
		Short: "run a universe server",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "universe.toml", "path to the operator TOML config")
	root.PersistentFlags().Float64Var(&worldWidth, "worldWidth", 4000, "tile width of newly created worlds (0 disables x-wrap)")
	root.PersistentFlags().Float64Var(&worldHeight, "worldHeight", 2000, "tile height of newly created worlds")
	root.PersistentFlags().StringVar(&assetsManifest, "assetsManifest", "", "path to the asset manifest clients must match (empty disables the digest check)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "start the universe server and admin console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath, assetsManifest, worldWidth, worldHeight)
		},
	}
	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(configPath, assetsManifest string, worldWidth, worldHeight float64) error {
	log := slog.Default()

	uc, err := config.LoadUserConfig(configPath)
	if err != nil {
		return fmt.Errorf("universe-server: %w", err)
	}
	cfg, err := uc.Config(log)
	if err != nil {
		return fmt.Errorf("universe-server: %w", err)
	}

	settings := universe.Settings{Config: cfg, SpeciesTable: map[string]universe.SpeciesInfo{}}
	if assetsManifest != "" {
		manifest, err := os.ReadFile(assetsManifest)
		if err != nil {
			return fmt.Errorf("universe-server: read assets manifest: %w", err)
		}
		settings.ExpectedAssetsDigest = universe.AssetsDigest(manifest)
	}

	var srv *universe.UniverseServer
	loader := func(h universe.WorldHandle) (*world.WorldServerThread, error) {
		w := world.New(world.Config{
			Log:      log,
			Geometry: geometry.World{W: worldWidth, H: worldHeight},
			Fidelity: world.FidelityMedium,
			Weather:  weather.NewServer(weather.Pool[string]{}, map[string]weather.Type{}, 0),
		})
		t := world.NewWorldServerThread(w, world.ThreadConfig{
			Log:       log,
			Pause:     srv.PauseFlag(),
			Timescale: srv.TimescaleFlag(),
		})
		t.Start()
		return t, nil
	}
	srv = universe.New(settings, loader)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go srv.Run()
	go func() {
		<-ctx.Done()
		srv.Stop()
	}()

	var healthSrv *http.Server
	if cfg.HealthAddress != "" {
		healthSrv = &http.Server{Addr: cfg.HealthAddress, Handler: srv.HealthRouter()}
		go func() {
			if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("health server stopped", "error", err)
			}
		}()
	}

	console.New(srv, log).Run(ctx)
	srv.Stop()
	if healthSrv != nil {
		_ = healthSrv.Shutdown(context.Background())
	}
	return nil
}

// Command dungeonbench times repeated dungeon generation the way
// dungeon_generation_benchmark.cpp did for the original engine: generate
// the named dungeon world some number of times and report a rolling
// generations-per-second figure.
//
// Asset-backed named dungeon worlds aren't part of this module's scope
// (spec.md §1 non-goal: reproducing individual asset JSON schemas), so
// --dungeonWorld only labels the run; the generator exercises a
// synthetic definition sized to stress the same connector-BFS placement
// loop a real dungeon would.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandboxverse/universe/server/dungeon"
)

type benchFacade struct{}

func (benchFacade) SetForeground(dungeon.Vec2I, int, uint8)          {}
func (benchFacade) SetBackground(dungeon.Vec2I, int, uint8)          {}
func (benchFacade) SetLiquid(dungeon.Vec2I, int, float64)            {}
func (benchFacade) SetDungeonId(dungeon.Vec2I, uint16)               {}
func (benchFacade) AddObject(dungeon.Vec2I, string, map[string]any)  {}
func (benchFacade) AddNpc(dungeon.Vec2I, string, map[string]any)     {}
func (benchFacade) AddDrop(dungeon.Vec2I, string)                    {}
func (benchFacade) ClearTileEntities(dungeon.Vec2I)                  {}
func (benchFacade) IsSolid(dungeon.Vec2I) bool                       { return false }
func (benchFacade) IsOpen(dungeon.Vec2I) bool                        { return true }
func (benchFacade) IsOcean(dungeon.Vec2I) bool                       { return false }
func (benchFacade) DungeonIdAt(dungeon.Vec2I) uint16                 { return 0 }
func (benchFacade) SetForegroundMod(dungeon.Vec2I, int, uint8)        {}
func (benchFacade) SetBackgroundMod(dungeon.Vec2I, int, uint8)        {}
func (benchFacade) SetForegroundColor(dungeon.Vec2I, [3]uint8)        {}
func (benchFacade) SetBackgroundColor(dungeon.Vec2I, [3]uint8)        {}
func (benchFacade) AddVehicle(dungeon.Vec2I, string, map[string]any)  {}
func (benchFacade) AddBiomeTree(dungeon.Vec2I, string)                {}
func (benchFacade) AddBiomeItem(dungeon.Vec2I, string)                {}
func (benchFacade) AddStagehand(dungeon.Vec2I, string, map[string]any) {}
func (benchFacade) ConnectWire(dungeon.Vec2I, string, bool, int)      {}
func (benchFacade) SetPlayerStart(dungeon.Vec2I)                      {}

var _ dungeon.WorldFacade = benchFacade{}

// syntheticDefinition builds a dungeon definition with enough parts and
// connectors to make the BFS placement loop representative of a real
// dungeon, seeded off name so different --dungeonWorld values exercise
// different (but reproducible) shapes.
func syntheticDefinition(name string, maxParts int) *dungeon.Definition {
	mkPart := func(partName string, size dungeon.Vec2I, connectors []dungeon.Connector) *dungeon.Part {
		p := &dungeon.Part{Name: partName, Size: size, Connectors: connectors}
		for x := 0; x < size.X; x++ {
			for y := 0; y < size.Y; y++ {
				p.Paints = append(p.Paints, dungeon.Paint{
					Pos: dungeon.Vec2I{X: x, Y: y}, Phase: dungeon.PhaseWall,
					Brush: dungeon.MaterialBrush{Material: 1},
				})
			}
		}
		return p
	}

	room := mkPart("room", dungeon.Vec2I{X: 8, Y: 8}, []dungeon.Connector{
		{Direction: dungeon.Left, Value: "door", Offset: dungeon.Vec2I{X: 0, Y: 4}},
		{Direction: dungeon.Right, Value: "door", Offset: dungeon.Vec2I{X: 7, Y: 4}},
		{Direction: dungeon.Up, Value: "door", Offset: dungeon.Vec2I{X: 4, Y: 0}},
		{Direction: dungeon.Down, Value: "door", Offset: dungeon.Vec2I{X: 4, Y: 7}},
	})
	corridor := mkPart("corridor", dungeon.Vec2I{X: 4, Y: 4}, []dungeon.Connector{
		{Direction: dungeon.Left, Value: "door", Offset: dungeon.Vec2I{X: 0, Y: 2}},
		{Direction: dungeon.Right, Value: "door", Offset: dungeon.Vec2I{X: 3, Y: 2}},
	})

	return &dungeon.Definition{
		Name:      name,
		Parts:     map[string]*dungeon.Part{"room": room, "corridor": corridor},
		Anchors:   []dungeon.Anchor{{PartName: "room", Chance: 1}},
		MaxParts:  maxParts,
		MaxRadius: 200,
	}
}

func main() {
	var repetitions, reportEvery, maxParts int
	var dungeonWorldName string

	root := &cobra.Command{
		Use:   "dungeonbench",
		Short: "time repeated dungeon generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, dungeonWorldName, repetitions, reportEvery, maxParts)
		},
	}
	root.Flags().StringVar(&dungeonWorldName, "dungeonWorld", "outpost", "dungeonWorld to test")
	root.Flags().IntVar(&repetitions, "repetitions", 5, "number of times to generate")
	root.Flags().IntVar(&reportEvery, "reportevery", 1, "number of repetitions before each progress report")
	root.Flags().IntVar(&maxParts, "maxParts", 64, "parts budget per generation, for scaling the benchmark")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, dungeonWorldName string, repetitions, reportEvery, maxParts int) error {
	out := cmd.OutOrStdout()
	def := syntheticDefinition(dungeonWorldName, maxParts)

	fmt.Fprintf(out, "testing %d generations of dungeonWorld %s\n", repetitions, dungeonWorldName)

	start := time.Now()
	lastReport := start
	for i := 0; i < repetitions; i++ {
		if i > 0 && reportEvery > 0 && i%reportEvery == 0 {
			elapsed := time.Since(lastReport).Seconds()
			gps := float64(reportEvery)
			if elapsed > 0 {
				gps /= elapsed
			}
			lastReport = time.Now()
			fmt.Fprintf(out, "[%d] %.3fs | Generations Per Second: %.2f\n", i, time.Since(start).Seconds(), gps)
		}

		writer := dungeon.NewWriter(nil, nil)
		gen := dungeon.NewGenerator(def, rand.Int63(), writer, benchFacade{})
		gen.Place(dungeon.Vec2I{X: 0, Y: 0}, true)
		writer.Flush(benchFacade{})
	}

	fmt.Fprintf(out, "finished %d generations of dungeonWorld %s in %.3f seconds\n", repetitions, dungeonWorldName, time.Since(start).Seconds())
	return nil
}

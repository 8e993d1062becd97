package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/ShayCichocki/swarm/internal/config"
	"github.com/ShayCichocki/swarm/internal/orchestrator"
	"github.com/ShayCichocki/swarm/internal/persist"
	"github.com/ShayCichocki/swarm/internal/resonance"
	"github.com/ShayCichocki/swarm/internal/stigmergy"
)

// storagePath resolves the configured store location, defaulting to the
// user data directory.
func storagePath(sc config.StorageConfig) string {
	if sc.Path != "" {
		return sc.Path
	}
	if sc.Driver == persist.DriverYAML {
		return filepath.Join(filepath.Dir(persist.DefaultDBPath()), "state.yaml")
	}
	return persist.DefaultDBPath()
}

// inboxDir resolves the inbox directory, defaulting to the user data directory.
func inboxDir(ic config.InboxConfig) string {
	if ic.Dir != "" {
		return ic.Dir
	}
	return filepath.Join(filepath.Dir(persist.DefaultDBPath()), "inbox")
}

func newRouter(c *config.Config) *resonance.Router {
	return resonance.New(
		resonance.WithVigilance(c.Router.VigilanceThreshold),
		resonance.WithMaxSpecialists(c.Router.MaxSpecialists),
		resonance.WithLearningRate(c.Router.LearningRate),
		resonance.WithHistoryCap(c.Router.HistoryCap),
		resonance.WithLogger(logger),
	)
}

func newBoard(c *config.Config) *stigmergy.Board {
	return stigmergy.New(
		stigmergy.WithDecayRate(c.Board.DecayRate),
		stigmergy.WithAmplification(c.Board.AmplificationFactor),
		stigmergy.WithAttenuation(c.Board.AttenuationFactor),
		stigmergy.WithFloor(c.Board.SignalFloor),
		stigmergy.WithShards(c.Board.Shards),
		stigmergy.WithLogger(logger),
	)
}

// openCoordinator opens the configured store and loads its state into a
// fresh coordinator. Callers must Close it.
func openCoordinator(ctx context.Context) (*orchestrator.Coordinator, error) {
	path := storagePath(cfg.Storage)
	store, err := persist.OpenStore(cfg.Storage.Driver, path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	coord := orchestrator.New(orchestrator.RequiredConfig{
		Router: newRouter(cfg),
		Board:  newBoard(cfg),
	},
		orchestrator.WithStore(store),
		orchestrator.WithSweepInterval(cfg.Board.SweepInterval),
		orchestrator.WithExploration(cfg.Coordination.Exploration),
		orchestrator.WithLogger(logger),
	)
	if err := coord.Load(ctx); err != nil {
		coord.Close()
		return nil, err
	}
	return coord, nil
}

// closeCoordinator closes coord and warns about writes that did not make it
// to the store.
func closeCoordinator(w io.Writer, coord *orchestrator.Coordinator) {
	if n := coord.PersistFailures(); n > 0 {
		printStatus(w, "⚠", fmt.Sprintf("%d store writes failed: %v", n, coord.LastPersistError()), color.FgYellow)
	}
	if err := coord.Close(); err != nil {
		printStatus(w, "⚠", fmt.Sprintf("close store: %v", err), color.FgYellow)
	}
}

// printStatus prints a status line with color
func printStatus(w io.Writer, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

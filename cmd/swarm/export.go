package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/persist"
)

var importMerge bool

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write specialists and signals to a YAML snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load specialists and signals from a YAML snapshot",
	Long: `Load a snapshot written by export into the configured store.

By default the snapshot replaces the current state. With --merge,
specialists and signals from the snapshot are added to what is already
stored, replacing entries with the same id.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importMerge, "merge", false, "Merge into the current state instead of replacing it")
}

func runExport(cmd *cobra.Command, args []string) error {
	coord, err := openCoordinator(cmd.Context())
	if err != nil {
		return err
	}
	defer closeCoordinator(cmd.ErrOrStderr(), coord)

	snap := persist.Snapshot{
		Version:     persist.SnapshotVersion,
		SavedAt:     time.Now().UTC(),
		Specialists: coord.Router().Profiles(),
		Signals:     coord.Board().Signals(),
	}
	if err := persist.WriteSnapshot(args[0], snap); err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), "✓", fmt.Sprintf("Exported %d specialists and %d signals to %s",
		len(snap.Specialists), len(snap.Signals), args[0]), color.FgGreen)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	snap, err := persist.ReadSnapshot(args[0])
	if err != nil {
		return err
	}

	coord, err := openCoordinator(cmd.Context())
	if err != nil {
		return err
	}
	defer closeCoordinator(cmd.ErrOrStderr(), coord)

	profiles, signals := snap.Specialists, snap.Signals
	// Stored profiles are revision guarded, so replaced ones are deleted
	// before the imported ones are written.
	var stale []string
	if importMerge {
		profiles = append(coord.Router().Profiles(), profiles...)
		signals = append(coord.Board().Signals(), signals...)
		for _, p := range snap.Specialists {
			stale = append(stale, p.ID)
		}
	} else {
		for _, p := range coord.Router().Profiles() {
			stale = append(stale, p.ID)
		}
	}
	if err := coord.DeleteProfiles(cmd.Context(), stale); err != nil {
		return err
	}
	if pruned := coord.Router().Restore(profiles); len(pruned) > 0 {
		if err := coord.DeleteProfiles(cmd.Context(), pruned); err != nil {
			return err
		}
	}
	coord.Board().Restore(signals)
	if err := coord.Flush(cmd.Context()); err != nil {
		return err
	}

	printStatus(cmd.OutOrStdout(), "✓", fmt.Sprintf("Imported %d specialists and %d signals from %s",
		len(snap.Specialists), len(snap.Signals), args[0]), color.FgGreen)
	return nil
}

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove faded signals from the board",
	RunE:  runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	coord, err := openCoordinator(cmd.Context())
	if err != nil {
		return err
	}
	defer closeCoordinator(cmd.ErrOrStderr(), coord)

	res := coord.Sweep(cmd.Context())
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}
	printStatus(out, "✓", fmt.Sprintf("Removed %d of %d signals (%d tasks cleared, %d remaining)",
		res.Removed, res.Examined, res.TasksRemoved, res.Remaining), color.FgGreen)
	return nil
}

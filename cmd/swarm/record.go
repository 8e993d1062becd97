package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var recordSuccess bool

var recordCmd = &cobra.Command{
	Use:   "record <specialist-id> <quality>",
	Short: "Record an execution outcome for a specialist",
	Long: `Record how a specialist performed. Quality is clamped to [0,1] and feeds
the specialist's moving average; --success counts the run as a success.

Example:
  swarm record sp-1a2b3c4d 0.85 --success`,
	Args: cobra.ExactArgs(2),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().BoolVarP(&recordSuccess, "success", "s", false, "The execution succeeded")
}

func runRecord(cmd *cobra.Command, args []string) error {
	quality, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid quality %q: %w", args[1], err)
	}

	coord, err := openCoordinator(cmd.Context())
	if err != nil {
		return err
	}
	defer closeCoordinator(cmd.ErrOrStderr(), coord)

	p, err := coord.RecordOutcome(cmd.Context(), args[0], recordSuccess, quality)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, p)
	}
	printStatus(out, "✓", fmt.Sprintf("%s: %d/%d successful, average quality %.3f",
		p.ID, p.SuccessCount, p.TotalExecutions(), p.AverageQuality), color.FgGreen)
	return nil
}

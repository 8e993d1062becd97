package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/stigmergy"
)

var depositBy string

var depositCmd = &cobra.Command{
	Use:   "deposit <task-id> <approach> <metric>",
	Short: "Deposit a signal on the board",
	Long: `Deposit a signal for an approach to a task. The metric is clamped to
[0,1]; the initial strength is metric x 100.

Redepositing on an existing signal amplifies it when the same worker laid it
or the metric is above 0.7, and attenuates it otherwise.

Example:
  swarm deposit t-42 approach_B 0.9 --by worker-1`,
	Args: cobra.ExactArgs(3),
	RunE: runDeposit,
}

func init() {
	depositCmd.Flags().StringVar(&depositBy, "by", "cli", "Depositor identity")
}

func runDeposit(cmd *cobra.Command, args []string) error {
	metric, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid metric %q: %w", args[2], err)
	}

	coord, err := openCoordinator(cmd.Context())
	if err != nil {
		return err
	}
	defer closeCoordinator(cmd.ErrOrStderr(), coord)

	res, err := coord.Deposit(cmd.Context(), args[0], args[1], metric, depositBy)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}
	attr := color.FgGreen
	if res.Action == stigmergy.ActionAttenuated {
		attr = color.FgYellow
	}
	msg := fmt.Sprintf("%s/%s %s: strength %.2f", res.TaskID, res.Approach, res.Action, res.Strength)
	if res.Action != stigmergy.ActionCreated {
		msg += fmt.Sprintf(" (was %.2f)", res.Previous)
	}
	printStatus(out, "✓", msg, attr)
	return nil
}

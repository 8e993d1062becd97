package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/stigmergy"
)

var signalsReader string

var signalsCmd = &cobra.Command{
	Use:   "signals [task-id]",
	Short: "Show board signals",
	Long: `Show the signals on the board.

With a task id, lists the visible signals for that task, strongest first.
Without one, lists every stored signal with its decayed strength, including
faded ones the next sweep will remove.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSignals,
}

func init() {
	signalsCmd.Flags().StringVar(&signalsReader, "reader", "", "Mark signals laid by this worker")
}

func runSignals(cmd *cobra.Command, args []string) error {
	coord, err := openCoordinator(cmd.Context())
	if err != nil {
		return err
	}
	defer closeCoordinator(cmd.ErrOrStderr(), coord)

	out := cmd.OutOrStdout()
	board := coord.Board()

	if len(args) == 0 {
		state := board.State()
		if jsonOutput {
			return printJSON(out, state)
		}
		if state.TotalSignals == 0 {
			fmt.Fprintln(out, "No signals on the board.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TASK\tAPPROACH\tSTRENGTH\tMETRIC\tAGE\tBY")
		for _, ts := range state.Tasks {
			for _, r := range ts.Signals {
				strength := fmt.Sprintf("%.2f", r.Strength)
				if r.Strength <= board.Floor() {
					strength = color.New(color.Faint).Sprint(strength)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\t%s\t%s\n",
					ts.TaskID, r.Approach, strength, r.SuccessMetric, r.Age.Round(time.Second), r.DepositedBy)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d signals across %d tasks (decay rate %s, floor %.2f)\n",
			state.TotalSignals, state.TotalTasks, board.DecayRate(), board.Floor())
		return nil
	}

	readings, err := board.Read(args[0], signalsReader)
	if errors.Is(err, stigmergy.ErrTaskNotFound) {
		if jsonOutput {
			return printJSON(out, []stigmergy.Reading{})
		}
		fmt.Fprintf(out, "No signals for task %s.\n", args[0])
		return nil
	}
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, readings)
	}
	if len(readings) == 0 {
		fmt.Fprintf(out, "All signals for task %s have faded.\n", args[0])
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "APPROACH\tSTRENGTH\tMETRIC\tAGE\tBY")
	for _, r := range readings {
		by := r.DepositedBy
		if r.FromSelf {
			by += " (you)"
		}
		fmt.Fprintf(w, "%s\t%.2f\t%.3f\t%s\t%s\n",
			r.Approach, r.Strength, r.SuccessMetric, r.Age.Round(time.Second), by)
	}
	return w.Flush()
}

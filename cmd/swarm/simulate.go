package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/orchestrator"
	"github.com/ShayCichocki/swarm/pkg/models"
)

var (
	simWorkers    int
	simCycles     int
	simTaskID     string
	simDomain     string
	simComplexity float64
	simMinQuality float64
	simMaxQuality float64
	simThreshold  float64
	simSeed       uint64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run simulated workers against one task",
	Long: `Run a number of simulated workers concurrently against one task.

Each cycle routes the task to a specialist, lets the worker pick an approach
from the board, draws a random quality, deposits it, and records it against
the specialist. Results are persisted like any other outcome.

Example:
  swarm simulate --workers 5 --cycles 20 --task demo --seed 42`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().IntVarP(&simWorkers, "workers", "w", 3, "Number of concurrent workers")
	simulateCmd.Flags().IntVarP(&simCycles, "cycles", "n", 10, "Cycles per worker")
	simulateCmd.Flags().StringVarP(&simTaskID, "task", "t", "simulated-task", "Task id used as the board key")
	simulateCmd.Flags().StringVarP(&simDomain, "domain", "d", "research", "Task domain")
	simulateCmd.Flags().Float64Var(&simComplexity, "complexity", 0.5, "Task complexity in [0,1]")
	simulateCmd.Flags().Float64Var(&simMinQuality, "min-quality", orchestrator.DefaultMinQuality, "Lowest simulated quality")
	simulateCmd.Flags().Float64Var(&simMaxQuality, "max-quality", orchestrator.DefaultMaxQuality, "Highest simulated quality")
	simulateCmd.Flags().Float64Var(&simThreshold, "success-threshold", orchestrator.DefaultSuccessThreshold, "Quality counted as a success")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 0, "Random seed (0 for random)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	coord, err := openCoordinator(cmd.Context())
	if err != nil {
		return err
	}
	defer closeCoordinator(cmd.ErrOrStderr(), coord)

	res, err := coord.Simulate(cmd.Context(), orchestrator.SimulationConfig{
		Task: models.Task{
			ID:         simTaskID,
			Domain:     simDomain,
			Complexity: models.Float(simComplexity),
			InputType:  "text",
			OutputType: "text",
		},
		Workers:          simWorkers,
		Cycles:           simCycles,
		MinQuality:       simMinQuality,
		MaxQuality:       simMaxQuality,
		SuccessThreshold: simThreshold,
		Seed:             simSeed,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}

	printStatus(out, "✓", fmt.Sprintf("Ran %d workers x %d cycles on %s", simWorkers, simCycles, res.TaskID), color.FgGreen)

	approaches := make([]string, 0, len(res.ApproachCounts))
	for a := range res.ApproachCounts {
		approaches = append(approaches, a)
	}
	sort.Strings(approaches)

	fmt.Fprintln(out, "\nApproach choices:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, a := range approaches {
		fmt.Fprintf(w, "  %s\t%d\n", a, res.ApproachCounts[a])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nFinal signals:")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, r := range res.Final {
		fmt.Fprintf(w, "  %s\t%.2f\tmetric %.3f\n", r.Approach, r.Strength, r.SuccessMetric)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nSpecialists in pool: %d\n", res.Specialists)
	return nil
}

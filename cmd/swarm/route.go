package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/swarm/pkg/models"
)

var (
	routeTaskFile   string
	routeTaskID     string
	routeDomain     string
	routeComplexity float64
	routeInputType  string
	routeOutputType string
	routeKeywords   []string
	routeDuration   float64
)

var routeCmd = &cobra.Command{
	Use:   "route [description]",
	Short: "Route a task to a specialist",
	Long: `Route a task to the specialist that resonates with it most.

When no specialist clears the vigilance threshold a new one is created,
pruning the weakest specialist if the pool is full.

Examples:
  swarm route --domain research --complexity 0.7 --input text --output report \
    --keywords analysis,trends "Quarterly market review"
  swarm route --file task.yaml
  cat task.yaml | swarm route --file -`,
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().StringVarP(&routeTaskFile, "file", "f", "", "Read the task from a YAML or JSON file (- for stdin)")
	routeCmd.Flags().StringVar(&routeTaskID, "id", "", "Task identifier")
	routeCmd.Flags().StringVarP(&routeDomain, "domain", "d", "", "Task domain")
	routeCmd.Flags().Float64VarP(&routeComplexity, "complexity", "c", 0, "Complexity in [0,1]")
	routeCmd.Flags().StringVar(&routeInputType, "input", "", "Input type")
	routeCmd.Flags().StringVar(&routeOutputType, "output", "", "Output type")
	routeCmd.Flags().StringSliceVarP(&routeKeywords, "keywords", "k", nil, "Comma-separated keywords")
	routeCmd.Flags().Float64Var(&routeDuration, "duration", 0, "Estimated duration in hours")
}

func runRoute(cmd *cobra.Command, args []string) error {
	task, err := taskFromFlags(cmd, args)
	if err != nil {
		return err
	}

	coord, err := openCoordinator(cmd.Context())
	if err != nil {
		return err
	}
	defer closeCoordinator(cmd.ErrOrStderr(), coord)

	d := coord.Route(cmd.Context(), task)

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, d)
	}
	if d.Created {
		printStatus(out, "+", fmt.Sprintf("Created specialist %s (best resonance %.3f)", d.SpecialistID, d.Resonance), color.FgGreen)
	} else {
		printStatus(out, "✓", fmt.Sprintf("Routed to %s (resonance %.3f)", d.SpecialistID, d.Resonance), color.FgGreen)
	}
	for _, id := range d.Pruned {
		printStatus(out, "-", fmt.Sprintf("Pruned specialist %s", id), color.FgYellow)
	}
	return nil
}

// taskFromFlags builds a task from --file or the individual flags. Flags
// given alongside --file override the file's values.
func taskFromFlags(cmd *cobra.Command, args []string) (models.Task, error) {
	var task models.Task
	if routeTaskFile != "" {
		t, err := readTaskFile(cmd.InOrStdin(), routeTaskFile)
		if err != nil {
			return task, err
		}
		task = t
	}

	flags := cmd.Flags()
	if flags.Changed("id") {
		task.ID = routeTaskID
	}
	if flags.Changed("domain") {
		task.Domain = routeDomain
	}
	if flags.Changed("complexity") {
		task.Complexity = models.Float(routeComplexity)
	}
	if flags.Changed("input") {
		task.InputType = routeInputType
	}
	if flags.Changed("output") {
		task.OutputType = routeOutputType
	}
	if flags.Changed("keywords") {
		task.Keywords = routeKeywords
	}
	if flags.Changed("duration") {
		task.EstimatedDuration = models.Float(routeDuration)
	}
	if len(args) > 0 {
		task.Description = strings.Join(args, " ")
	}
	return task, nil
}

func readTaskFile(stdin io.Reader, path string) (models.Task, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("read task: %w", err)
	}

	var task models.Task
	if err := yaml.Unmarshal(data, &task); err != nil {
		return models.Task{}, fmt.Errorf("parse task %s: %w", path, err)
	}
	return task, nil
}

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var specialistsCmd = &cobra.Command{
	Use:     "specialists",
	Aliases: []string{"stats"},
	Short:   "Show the specialist pool",
	RunE:    runSpecialists,
}

func runSpecialists(cmd *cobra.Command, args []string) error {
	coord, err := openCoordinator(cmd.Context())
	if err != nil {
		return err
	}
	defer closeCoordinator(cmd.ErrOrStderr(), coord)

	stats := coord.Router().Stats()
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, stats)
	}

	capacity := "unbounded"
	if stats.Capacity > 0 {
		capacity = fmt.Sprintf("%d", stats.Capacity)
	}
	fmt.Fprintf(out, "Specialists: %d (capacity %s, vigilance %.2f)\n", stats.TotalSpecialists, capacity, stats.Vigilance)
	if stats.TotalSpecialists == 0 {
		return nil
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXECUTIONS\tSUCCESS\tQUALITY\tSPECIALIZATION\tHISTORY")
	for _, s := range stats.Specialists {
		fmt.Fprintf(w, "%s\t%d\t%.0f%%\t%.3f\t%.3f\t%d\n",
			s.ID, s.Executions, s.SuccessRate*100, s.AverageQuality, s.Specialization, s.HistoryLen)
	}
	return w.Flush()
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"diffusion-sim/simulation"

	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <base-dir> <name>",
		Short: "Print the iteration log of a scenario",
		Long: `Print the per-iteration counters stored in the event database of a
scenario, or the events of a single iteration with --step.

Examples:
  diffusion-sim inspect ./runs gossip
  diffusion-sim inspect ./runs gossip --step 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, _ := cmd.Flags().GetInt("step")

			path := filepath.Join(args[0], args[1], simulation.EVENT_DB_NAME)
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("no event database for scenario %q: %w", args[1], err)
			}
			db, err := simulation.OpenEventDB(path, 1)
			if err != nil {
				return err
			}
			defer db.Close()

			runID, err := db.RunID(args[1])
			if err != nil {
				return err
			}

			if step >= 0 {
				return printEvents(cmd.OutOrStdout(), db, runID, step)
			}
			return printIterations(cmd.OutOrStdout(), db, runID)
		},
	}

	cmd.Flags().Int("step", -1, "Print the events of this iteration")
	return cmd
}

func printIterations(out io.Writer, db *simulation.EventDB, runID string) error {
	records, err := db.GetIterations(runID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tTIMESTAMP\tSENT\tSENDERS\tDELIVERED\tNEW\tREPEAT\tDISCARDED\tTOTAL")
	for _, r := range records {
		ts := "-"
		if r.Timestamp != nil {
			ts = strconv.FormatInt(*r.Timestamp, 10)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.Step, ts, r.NumPropagated, r.NumPropagatingUsers, r.NewlyPropagated,
			r.NewlySeen, r.NumReReceived, r.NumDiscarded, r.TotalPropagated)
	}
	return w.Flush()
}

func printEvents(out io.Writer, db *simulation.EventDB, runID string, step int) error {
	events, err := db.GetEvents(runID, step)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tUSER\tPIECE\tFROM")
	for _, e := range events {
		from := ""
		if e.Carriers != nil {
			from = fmt.Sprint(e.Carriers)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", e.Type, e.User, e.Piece, from)
	}
	return w.Flush()
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canvasflow/canvasflow/internal/cascade"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <canvas.json> <label>",
	Short: "Show the impact of deleting a label",
	Long: `Inspect loads a canvas document and reports what a cascading delete
of the given label would remove: dependent files, affected actions, and
connections. Nothing is changed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := newWorkspace(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		impact, err := ws.RequestDelete(args[1])
		if err != nil {
			return err
		}
		ws.CancelDelete(args[1])

		out := cmd.OutOrStdout()
		if impact.Empty() {
			fmt.Fprintf(out, "deleting %s affects nothing else\n", impact.Label)
			return nil
		}

		fmt.Fprintf(out, "deleting %s also removes:\n", impact.Label)
		for _, lbl := range impact.CascadingLabels {
			fmt.Fprintf(out, "  file       %s\n", lbl)
		}
		for _, affected := range impact.AffectedNodes {
			verb := "modifies"
			if affected.Action == cascade.NodeActionDelete {
				verb = "deletes"
			}
			fmt.Fprintf(out, "  action     %s %s (%s)\n", verb, affected.NodeID, affected.Reason)
		}
		if n := len(impact.RemovedConnections); n > 0 {
			fmt.Fprintf(out, "  connection %d removed\n", n)
		}
		return nil
	},
}

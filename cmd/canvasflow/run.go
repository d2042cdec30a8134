package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <canvas.json>",
	Short: "Execute a canvas workflow",
	Long: `Run loads a canvas document, validates it, and executes every
action in dependency order using the simulated processing backend.
Execution stops at the first failing action.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := newWorkspace(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		results, runErr := ws.Execute(cmd.Context())

		out := cmd.OutOrStdout()
		for _, r := range results {
			n, ok := ws.Node(r.NodeID)
			toolType := "?"
			if ok {
				toolType = n.Type.String()
			}
			if r.Success {
				fmt.Fprintf(out, "ok   %-12s %s\n", toolType, r.NodeID)
			} else {
				fmt.Fprintf(out, "FAIL %-12s %s: %s\n", toolType, r.NodeID, r.Error)
			}
		}
		if runErr != nil {
			return runErr
		}

		fmt.Fprintf(out, "executed %d action(s)\n", len(results))
		return nil
	},
}

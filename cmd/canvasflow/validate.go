package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <canvas.json>",
	Short: "Run structural checks on a canvas document",
	Long: `Validate loads a canvas document and runs the checks that gate
execution: readiness, cycle detection, and duplicate-action detection.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := newWorkspace(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if err := ws.Validate(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "canvas is valid: %d file(s), %d action(s), %d connection(s)\n",
			len(ws.InputFiles())+len(ws.TextFiles()), len(ws.Nodes()), len(ws.Connections()))
		return nil
	},
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/canvasflow/canvasflow/internal/store"
)

var snapshotOutput string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage canvas snapshots",
	Long:  `Snapshot keeps named canvas documents in a local database.`,
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save <name> <canvas.json>",
	Short: "Save a canvas document as a named snapshot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Import and re-export so only documents that parse get stored.
		ws, err := newWorkspace(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		document, err := ws.Export()
		if err != nil {
			return err
		}

		db, err := store.Open(cfg.Snapshot.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		if _, err := store.NewSnapshotDAO(db).Save(cmd.Context(), args[0], document); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved snapshot %q\n", args[0])
		return nil
	},
}

var snapshotLoadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Write a snapshot's canvas document to a file or stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.Snapshot.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		snapshot, err := store.NewSnapshotDAO(db).GetByName(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if snapshotOutput == "" {
			fmt.Fprintln(cmd.OutOrStdout(), string(snapshot.Document))
			return nil
		}
		return os.WriteFile(snapshotOutput, snapshot.Document, 0o644)
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.Snapshot.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		snapshots, err := store.NewSnapshotDAO(db).List(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(snapshots) == 0 {
			fmt.Fprintln(out, "no snapshots")
			return nil
		}
		for _, s := range snapshots {
			fmt.Fprintf(out, "%-24s updated %s\n", s.Name, s.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.Snapshot.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := store.NewSnapshotDAO(db).Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted snapshot %q\n", args[0])
		return nil
	},
}

func init() {
	snapshotLoadCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "", "write the document to this file instead of stdout")

	snapshotCmd.AddCommand(snapshotSaveCmd)
	snapshotCmd.AddCommand(snapshotLoadCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotDeleteCmd)
}

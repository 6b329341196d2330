package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fathom/ledgerdesk/internal/backup"
	"github.com/fathom/ledgerdesk/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export <file>",
	GroupID: "data",
	Short:   "Export all records to a JSONL file",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer sess.close()

		res, err := backup.Export(sess.local, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s Exported %d records to %s\n", ui.Pass("✓"), res.RecordsWritten, args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "data",
	Short:   "Import records from a JSONL file",
	Long: `Import records from a JSONL export.

Imported records merge with existing ones by id, so re-importing the
same file is safe. Use --dry-run to preview without writing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		noBackup, _ := cmd.Flags().GetBool("no-backup")

		sess, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer sess.close()

		res, err := backup.Import(cmd.Context(), sess.sync, sess.id, sess.local, args[0],
			backup.ImportOptions{DryRun: dryRun, Backup: !noBackup})
		if err != nil {
			return err
		}

		verb := "Imported"
		if dryRun {
			verb = "Would import"
		}
		fmt.Printf("%s %s %d records", ui.Pass("✓"), verb, res.RecordsWritten)
		if res.RecordsSkipped > 0 {
			fmt.Printf(" (%d skipped)", res.RecordsSkipped)
		}
		fmt.Println()
		if res.BackupCreated != "" {
			fmt.Println(ui.Faint("Backup of previous data: " + res.BackupCreated))
		}
		for _, e := range res.Errors {
			fmt.Printf("  %s %s\n", ui.Warn("!"), e)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("dry-run", false, "Preview the import without writing")
	importCmd.Flags().Bool("no-backup", false, "Skip exporting current data first")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

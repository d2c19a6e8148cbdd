package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/runway/internal/cli"
	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/ingest"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <files...>",
		Short: "Import CSV or OFX/QFX bank statements",
		Long: `Import bank statements into the local database.

The format is picked from each file's extension: .csv, .ofx or .qfx.
Lines already imported are skipped, so re-importing overlapping
statements is safe.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, files []string) error {
	ctx := cmd.Context()
	user, err := currentUser()
	if err != nil {
		return err
	}

	e, closeEngine, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeEngine()

	out := cmd.OutOrStdout()
	progress := cli.NewProgress(cmd.ErrOrStderr(), len(files), "Importing statements...")

	var read, inserted, skipped int
	for _, file := range files {
		result, err := ingest.ReadFile(ctx, file, slog.Default())
		if err != nil {
			return err
		}

		n, err := e.Import(ctx, user, result.Transactions)
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", filepath.Base(file), err)
		}

		common.LogDebug("imported statement", common.Fields{
			"file":     filepath.Base(file),
			"read":     len(result.Transactions),
			"inserted": n,
			"skipped":  result.Skipped,
		})

		read += len(result.Transactions)
		inserted += n
		skipped += result.Skipped
		progress.Step()
	}
	progress.Finish()

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d new transactions (%d read, %d duplicates)",
		inserted, read, read-inserted)))
	if skipped > 0 {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Skipped %d malformed lines; run with --log-level debug for details", skipped)))
	}
	return nil
}

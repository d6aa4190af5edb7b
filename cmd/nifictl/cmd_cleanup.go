package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func runCleanup(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()
	ctx := cmd.Context()

	v, cleanup, err := app.openVault(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	days := retentionDays
	if days <= 0 {
		days = app.cfg.Backup.RetentionDays
	}

	report, err := v.Cleanup(ctx, days, cleanupDryRun)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(report.Deleted) == 0 && len(report.Failed) == 0 {
		fmt.Fprintln(out, "Nothing to clean up.")
		return nil
	}
	if report.DryRun {
		fmt.Fprintf(out, "Would delete %d object(s) older than %d days:\n", len(report.Deleted), days)
		for _, key := range report.Deleted {
			fmt.Fprintf(out, "  %s\n", key)
		}
		return nil
	}
	fmt.Fprintf(out, "Deleted %d object(s) older than %d days.\n", len(report.Deleted), days)
	if len(report.Failed) > 0 {
		fmt.Fprintf(out, "%d object(s) could not be deleted and will be retried next run:\n", len(report.Failed))
		for _, key := range report.Failed {
			fmt.Fprintf(out, "  %s\n", key)
		}
	}
	return nil
}

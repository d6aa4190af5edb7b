package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/reconcile"
)

func runRestore(cmd *cobra.Command, args []string) error {
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

	key, err := app.resolveSnapshotKey(ctx, v)
	if err != nil {
		return err
	}

	opts := reconcile.Options{
		StopProcessors: stopProcessors,
		PreBackup:      !skipPreBackup,
	}
	var sink reconcile.PreBackupSink
	if opts.PreBackup {
		sink = v.PreBackupSink(app.cfg.NiFi.Host)
	}

	engine := reconcile.NewEngine(app.nifiClient(), v.Source(key), sink,
		newConfirmer(app.logger), opts, app.logger)

	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if result.Cancelled {
		fmt.Fprintln(out, "Restore cancelled; nothing was changed.")
		return nil
	}

	fmt.Fprintf(out, "Restore complete (run %s)\n", result.RunID)
	fmt.Fprintf(out, "  snapshot: %s\n", result.SnapshotRef)
	if result.PreBackupRef != "" {
		fmt.Fprintf(out, "  pre-restore safety copy: %s\n", result.PreBackupRef)
	}
	fmt.Fprintf(out, "  deleted: %d components\n", result.Teardown.Deleted.Total())
	fmt.Fprintf(out, "  created: %d components\n", result.Import.Created.Total())

	if n := result.FailureCount(); n > 0 {
		fmt.Fprintf(out, "  %d component(s) could not be processed:\n", n)
		for _, f := range append(result.Teardown.Failures, result.Import.Failures...) {
			fmt.Fprintf(out, "    %s %s %q: %v\n",
				f.Op, f.Component.Kind.String(), f.Component.DisplayName(), f.Err)
		}
	}
	return nil
}

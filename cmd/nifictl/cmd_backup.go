package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/flow"
	"github.com/medalizaidi/nifi-jar-automation-option2/internal/reconcile"
	"github.com/medalizaidi/nifi-jar-automation-option2/internal/vault"
)

func runBackup(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()
	ctx := cmd.Context()

	client := app.nifiClient()
	if err := client.Authenticate(ctx); err != nil {
		return err
	}
	rootID, err := client.RootGroupID(ctx)
	if err != nil {
		return err
	}

	// Walk the live tree first so the snapshot metadata carries the
	// component counts without re-parsing the export.
	tree, err := reconcile.FetchSubtree(ctx, client, rootID)
	if err != nil {
		return err
	}
	stats := flow.Aggregate(tree)

	data, err := client.ExportGroup(ctx, rootID)
	if err != nil {
		return err
	}

	v, cleanup, err := app.openVault(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	key, err := v.SaveSnapshot(ctx, data, vault.SnapshotMetadata{
		Host:        app.cfg.NiFi.Host,
		RootGroupID: rootID,
		Statistics:  stats,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Snapshot saved: %s (%d components)\n", key, stats.Total())
	return nil
}

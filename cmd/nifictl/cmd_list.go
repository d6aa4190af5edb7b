package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func runList(cmd *cobra.Command, args []string) error {
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

	snapshots, err := v.ListSnapshots(ctx)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshots found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tCAPTURED\tCOMPONENTS\tSIZE")
	for _, s := range snapshots {
		captured := "-"
		if !s.CapturedAt.IsZero() {
			captured = s.CapturedAt.UTC().Format("2006-01-02 15:04 UTC")
		}
		size := "-"
		if s.SizeBytes > 0 {
			size = fmt.Sprintf("%d B", s.SizeBytes)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Key, captured, s.Statistics.Total(), size)
	}
	return w.Flush()
}

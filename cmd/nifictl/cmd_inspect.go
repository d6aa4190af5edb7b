package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/flow"
)

func runInspect(cmd *cobra.Command, args []string) error {
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

	data, meta, err := v.LoadSnapshot(ctx, key)
	if err != nil {
		return err
	}
	g, err := flow.DecodeSnapshot(data)
	if err != nil {
		return err
	}
	stats := flow.Aggregate(g)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Snapshot: %s\n", key)
	if meta != nil {
		if !meta.CapturedAt.IsZero() {
			fmt.Fprintf(out, "Captured: %s\n", meta.CapturedAt.UTC().Format("2006-01-02 15:04 UTC"))
		}
		if meta.Host != "" {
			fmt.Fprintf(out, "Host:     %s\n", meta.Host)
		}
	}
	fmt.Fprintf(out, "Root:     %s\n\n", g.DisplayName())
	fmt.Fprintf(out, "  process groups  %d\n", stats.ProcessGroups)
	fmt.Fprintf(out, "  processors      %d\n", stats.Processors)
	fmt.Fprintf(out, "  connections     %d\n", stats.Connections)
	fmt.Fprintf(out, "  input ports     %d\n", stats.InputPorts)
	fmt.Fprintf(out, "  output ports    %d\n", stats.OutputPorts)
	fmt.Fprintf(out, "  funnels         %d\n", stats.Funnels)
	fmt.Fprintf(out, "  labels          %d\n", stats.Labels)
	fmt.Fprintf(out, "  total           %d\n", stats.Total())
	return nil
}

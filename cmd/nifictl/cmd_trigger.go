package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/cicd"
)

func runTrigger(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()
	ctx := cmd.Context()

	client := cicd.NewClient(
		app.cfg.CircleCI.Token,
		app.cfg.CircleCI.ProjectSlug,
		app.cfg.CircleCI.Branch,
		app.logger,
	)

	var pipeline *cicd.Pipeline
	switch {
	case triggerList:
		pipeline, err = client.TriggerList(ctx)
	case snapshotDate != "" && snapshotTime != "":
		pipeline, err = client.TriggerRestore(ctx, snapshotDate, snapshotTime)
	default:
		return fmt.Errorf("either --list or both --date and --time are required")
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Pipeline %d triggered.\n", pipeline.Number)
	fmt.Fprintf(out, "View it at: %s\n", client.PipelineURL(pipeline))
	if !triggerList {
		fmt.Fprintln(out, "Approve the hold step in the CircleCI UI to run the restore.")
	}
	return nil
}

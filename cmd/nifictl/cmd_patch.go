package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/dockerfile"
)

func runPatchDockerfile(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	n, err := dockerfile.PatchFile(dockerfilePath, jarsFolder, app.logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if n == 0 {
		fmt.Fprintln(out, "No JAR manifests found; Dockerfile unchanged.")
		return nil
	}
	fmt.Fprintf(out, "Updated %s with %d JAR(s).\n", dockerfilePath, n)
	return nil
}

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string
	logLevel   string

	snapshotDate string
	snapshotTime string
	snapshotKey  string
	useLatest    bool

	autoConfirm    bool
	stopProcessors bool
	skipPreBackup  bool

	retentionDays int
	cleanupDryRun bool

	triggerList bool

	dockerfilePath string
	jarsFolder     string

	rootCmd = &cobra.Command{
		Use:   "nifictl",
		Short: "Snapshot, restore and reconcile NiFi flow graphs",
		Long: `nifictl captures the live NiFi component graph into timestamped
snapshots and replays them for disaster recovery: statistics, ordered
teardown, identity-remapping replication, and the surrounding backup
plumbing (retention cleanup, CI triggers, image patching).`,
		SilenceUsage: true,
	}

	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Capture the live flow into a timestamped snapshot",
		RunE:  runBackup, // Defined in cmd_backup.go
	}

	restoreCmd = &cobra.Command{
		Use:   "restore",
		Short: "Tear down the live flow and replay a snapshot",
		Long: `Restore empties the root process group and recreates every
component from the chosen snapshot with fresh server-assigned ids.
The destructive phase only starts after an explicit confirmation.`,
		RunE: runRestore, // Defined in cmd_restore.go
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		RunE:  runList, // Defined in cmd_list.go
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Show component statistics for a stored snapshot",
		RunE:  runInspect, // Defined in cmd_inspect.go
	}

	cleanupCmd = &cobra.Command{
		Use:   "cleanup",
		Short: "Delete snapshots older than the retention window",
		RunE:  runCleanup, // Defined in cmd_cleanup.go
	}

	triggerCmd = &cobra.Command{
		Use:   "trigger",
		Short: "Trigger the CircleCI restore pipeline",
		RunE:  runTrigger, // Defined in cmd_trigger.go
	}

	patchDockerfileCmd = &cobra.Command{
		Use:   "patch-dockerfile",
		Short: "Splice JAR manifests into the server image Dockerfile",
		RunE:  runPatchDockerfile, // Defined in cmd_patch.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default ~/.config/nifictl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override log level (debug|info|warn|error)")

	rootCmd.AddCommand(backupCmd)

	restoreCmd.Flags().StringVar(&snapshotDate, "date", "", "snapshot date (YYYY-MM-DD)")
	restoreCmd.Flags().StringVar(&snapshotTime, "time", "", "snapshot time (HH-MM-UTC)")
	restoreCmd.Flags().StringVar(&snapshotKey, "key", "", "full snapshot key (overrides --date/--time)")
	restoreCmd.Flags().BoolVar(&useLatest, "latest", false, "restore the newest snapshot")
	restoreCmd.Flags().BoolVarP(&autoConfirm, "yes", "y", false,
		"skip the interactive confirmation (for scheduled runs)")
	restoreCmd.Flags().BoolVar(&stopProcessors, "stop-processors", true,
		"stop running processors before teardown")
	restoreCmd.Flags().BoolVar(&skipPreBackup, "skip-pre-backup", false,
		"do not take a safety export before teardown")
	rootCmd.AddCommand(restoreCmd)

	rootCmd.AddCommand(listCmd)

	inspectCmd.Flags().StringVar(&snapshotDate, "date", "", "snapshot date (YYYY-MM-DD)")
	inspectCmd.Flags().StringVar(&snapshotTime, "time", "", "snapshot time (HH-MM-UTC)")
	inspectCmd.Flags().StringVar(&snapshotKey, "key", "", "full snapshot key")
	inspectCmd.Flags().BoolVar(&useLatest, "latest", false, "inspect the newest snapshot")
	rootCmd.AddCommand(inspectCmd)

	cleanupCmd.Flags().IntVar(&retentionDays, "retention-days", 0,
		"override the configured retention window")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false,
		"list what would be deleted without deleting anything")
	rootCmd.AddCommand(cleanupCmd)

	triggerCmd.Flags().BoolVar(&triggerList, "list", false,
		"trigger the snapshot-listing job instead of a restore")
	triggerCmd.Flags().StringVar(&snapshotDate, "date", "", "snapshot date (YYYY-MM-DD)")
	triggerCmd.Flags().StringVar(&snapshotTime, "time", "", "snapshot time (HH-MM-UTC)")
	rootCmd.AddCommand(triggerCmd)

	patchDockerfileCmd.Flags().StringVar(&dockerfilePath, "dockerfile", "Dockerfile",
		"path to the Dockerfile to update")
	patchDockerfileCmd.Flags().StringVar(&jarsFolder, "jars", "jars",
		"folder holding JAR manifest JSON files")
	rootCmd.AddCommand(patchDockerfileCmd)
}

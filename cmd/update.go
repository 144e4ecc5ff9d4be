package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"modsync/logger"
	"modsync/updater"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for updates and replace outdated mod files",
	Long: `Checks Modrinth for newer compatible versions of the installed mods
and replaces the outdated files. Each replaced file is backed up first
(unless backups are disabled), every download is hash-verified, and the
swap is atomic.`,
	Run: func(cmd *cobra.Command, _ []string) {
		yes, _ := cmd.Flags().GetBool("yes")
		noBackup, _ := cmd.Flags().GetBool("no-backup")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		runUpdate(yes, noBackup, concurrency)
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().BoolP("yes", "y", false, "Apply updates even when the profile has auto_update disabled")
	updateCmd.Flags().Bool("no-backup", false, "Skip the pre-update backup for this run")
	updateCmd.Flags().Int("concurrency", 0, "Maximum parallel downloads (0 for the default)")
}

func runUpdate(yes, noBackup bool, concurrency int) {
	cfg, profile, client := bootstrap()

	apply := profile.AutoUpdate || yes
	if !apply {
		logger.Log.Infow("auto_update is disabled for this profile; resolving only",
			zap.String("profile", profile.Name),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	u := updater.New(client, client, logger.Log)
	summary, err := u.Run(ctx, profile, updater.Options{
		Apply:       apply,
		Backup:      profile.BackupMods && !noBackup,
		Concurrency: concurrency,
	})
	if err != nil {
		logger.Log.Fatalw("Update run failed", zap.Error(err))
	}

	recordApplied(ctx, client, profile, summary)
	renderSummary(summary)

	if !apply && summary.Available > 0 {
		fmt.Printf("\n%d update(s) available; rerun with --yes to apply them.\n", summary.Available)
	}

	if err := cfg.TouchLastCheck(time.Now()); err != nil {
		logger.Log.Warnw("Failed to persist last check time", zap.Error(err))
	}
}

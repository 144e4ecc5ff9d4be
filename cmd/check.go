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

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the profile's mod folder for available updates",
	Long: `Hashes every mod file in the profile's folder, resolves each hash
against Modrinth and reports which mods are outdated. No files are
modified.`,
	Run: func(cmd *cobra.Command, _ []string) {
		force, _ := cmd.Flags().GetBool("force")
		runCheck(force)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolP("force", "f", false, "Check even if the last check is within the configured interval")
}

func runCheck(force bool) {
	cfg, profile, client := bootstrap()

	now := time.Now()
	if !force && cfg.WithinCheckInterval(now) {
		logger.Log.Infow("Skipping check, interval not elapsed",
			zap.String("last_check", cfg.LastCheck),
			zap.Int("interval_days", cfg.CheckIntervalDays),
		)
		fmt.Printf("Last check was within %d days; use --force to check anyway.\n", cfg.CheckIntervalDays)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.Infow("Checking for updates",
		zap.String("profile", profile.Name),
		zap.String("folder", profile.Folder),
		zap.Strings("game_versions", profile.GameVersions),
		zap.Strings("loaders", profile.Loaders),
	)

	u := updater.New(client, client, logger.Log)
	summary, err := u.Run(ctx, profile, updater.Options{Apply: false})
	if err != nil {
		logger.Log.Fatalw("Update check failed", zap.Error(err))
	}

	renderSummary(summary)

	if err := cfg.TouchLastCheck(now); err != nil {
		logger.Log.Warnw("Failed to persist last check time", zap.Error(err))
	}
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"modsync/db"
	"modsync/logger"
	"modsync/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// rollbackCmd represents the rollback command
var rollbackCmd = &cobra.Command{
	Use:   "rollback [fileName]",
	Short: "Restore a mod file from its most recent backup",
	Long: `Restore a mod file to the state it had before its last update.
Example: modsync rollback sodium-fabric-0.5.8.jar

The current file is removed and the backup taken before the update is
copied back into place.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		rollbackMod(args[0])
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}

// rollbackMod handles the rollback process for a specific mod file.
func rollbackMod(fileName string) {
	_, profile, _ := bootstrap()

	var update db.AppliedUpdate
	result := db.DB.Where("profile = ? AND file_name = ?", profile.Name, fileName).
		Order("created_at DESC").First(&update)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			logger.Log.Fatalw("No recorded update for file", zap.String("file", fileName))
		}
		logger.Log.Fatalw("Failed to query update history", zap.Error(result.Error))
	}

	log := logger.Log.With(zap.String("file", fileName))

	if update.BackupPath == "" {
		log.Fatalw("Update was applied without a backup; nothing to restore")
	}
	if _, err := os.Stat(update.BackupPath); errors.Is(err, os.ErrNotExist) {
		log.Fatalw("Backup file not found", zap.String("backup_path", update.BackupPath))
	}

	log.Infow(ui.Warn("Removing updated version"), zap.String("path", update.NewPath))
	if err := os.Remove(update.NewPath); err != nil && !os.IsNotExist(err) {
		log.Warnw("Failed to remove updated version", zap.String("path", update.NewPath), zap.Error(err))
	}

	if err := copyFile(update.BackupPath, update.OldPath); err != nil {
		log.Fatalw("Failed to restore backup", zap.Error(err))
	}

	// Drop the history row so a repeated rollback walks further back.
	if err := db.DB.Delete(&update).Error; err != nil {
		log.Warnw("Failed to delete history record", zap.Error(err))
	}

	log.Infow(ui.Good("Rollback successful"),
		zap.String("restored_path", update.OldPath),
		zap.String("restored_version_id", update.OldVersionID),
	)
	fmt.Printf("Successfully restored %s from %s\n", update.OldPath, update.BackupPath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

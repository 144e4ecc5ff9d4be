package cmd

import (
	"fmt"
	"sort"

	"modsync/config"
	"modsync/logger"
	"modsync/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// profileCmd groups the non-interactive profile management commands.
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage named mod folder profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured profiles",
	Run: func(_ *cobra.Command, _ []string) {
		cfg := loadConfigOrDie()

		names := make([]string, 0, len(cfg.ModFolders))
		for name := range cfg.ModFolders {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			marker := "  "
			label := name
			if name == cfg.CurrentFolder {
				marker = "* "
				label = ui.Bold(name)
			}
			fmt.Printf("%s%s\t%s\n", marker, label, cfg.ModFolders[name])
		}
	},
}

var profileAddCmd = &cobra.Command{
	Use:   "add [name] [folder]",
	Short: "Add a named mod folder",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		cfg := loadConfigOrDie()
		if err := cfg.AddProfile(args[0], args[1]); err != nil {
			logger.Log.Fatalw("Failed to add profile", zap.Error(err))
		}
		saveConfigOrDie(cfg)
		fmt.Printf("Added profile %s -> %s\n", args[0], args[1])
	},
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a named mod folder",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		cfg := loadConfigOrDie()
		if err := cfg.RemoveProfile(args[0]); err != nil {
			logger.Log.Fatalw("Failed to remove profile", zap.Error(err))
		}
		saveConfigOrDie(cfg)
		fmt.Printf("Removed profile %s\n", args[0])
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the active profile",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		cfg := loadConfigOrDie()
		if err := cfg.SetActiveProfile(args[0]); err != nil {
			logger.Log.Fatalw("Failed to switch profile", zap.Error(err))
		}
		saveConfigOrDie(cfg)
		fmt.Printf("Active profile is now %s\n", args[0])
	},
}

func init() {
	profileCmd.AddCommand(profileListCmd, profileAddCmd, profileRemoveCmd, profileUseCmd)
	rootCmd.AddCommand(profileCmd)
}

func loadConfigOrDie() config.Config {
	cfg, err := config.LoadConfig(cfgDir)
	if err != nil {
		logger.Log.Fatalw("Failed to load configuration", zap.Error(err))
	}
	return cfg
}

func saveConfigOrDie(cfg config.Config) {
	if err := cfg.Save(); err != nil {
		logger.Log.Fatalw("Failed to save configuration", zap.Error(err))
	}
}

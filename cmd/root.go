package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	cfgDir      string
	profileName string
)

// rootCmd is the base command; running modsync with no subcommand
// performs an update check, matching the tool's original behavior.
var rootCmd = &cobra.Command{
	Use:   "modsync",
	Short: "Keeps a local Minecraft mod folder in sync with Modrinth",
	Long: `modsync identifies the mods installed in a folder by content hash,
checks Modrinth for newer versions compatible with the configured game
versions and loaders, and can replace outdated files safely.`,
	Run: func(cmd *cobra.Command, _ []string) {
		force, _ := cmd.Flags().GetBool("force")
		runCheck(force)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config-dir", defaultConfigDir(), "Directory holding modsync.json and modsync.db")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "Profile to operate on (defaults to the active profile)")
	rootCmd.Flags().BoolP("force", "f", false, "Check even if the last check is within the configured interval")
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "modsync")
	}
	return "."
}

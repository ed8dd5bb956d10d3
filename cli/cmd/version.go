package cmd

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version information",
	Long:  `Display the version, commit hash, and build date of the assetmanifest CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		formatter.PrintSuccess("assetmanifest %s", Version)
		formatter.PrintSuccess("Commit: %s", Commit)
		formatter.PrintSuccess("Build Date: %s", BuildDate)
	},
}

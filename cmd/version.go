package cmd

import (
	"github.com/bnema/wayskk/internal/logger"
	"github.com/bnema/wayskk/internal/xkb"
	"github.com/spf13/cobra"
)

var (
	// Version info set by main package
	Version = "0.1.0-dev"
	Commit  string
	Date    string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		logger.Infof("wayskk %s", Version)
		logger.Infof("commit: %s", Commit)
		logger.Infof("built: %s", Date)
		logger.Infof("libxkbcommon: %v", xkb.Supported)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

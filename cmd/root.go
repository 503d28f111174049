package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/bnema/wayskk/internal/config"
	"github.com/bnema/wayskk/internal/daemon"
	"github.com/bnema/wayskk/internal/logger"
	"github.com/bnema/wayskk/internal/xkb"
	"github.com/spf13/cobra"
)

var (
	debugFlag  bool
	configFlag string

	rootCmd = &cobra.Command{
		Use:   "wayskk",
		Short: "wayskk - SKK input method for Wayland",
		Long: `wayskk is an SKK Japanese input method for Wayland compositors.
It registers as the seat's input method, grabs the keyboard while a text
field is focused, and converts romaji to kana and kanji. Keys the engine
does not consume are passed through a virtual keyboard.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
		RunE:              runDaemon,
	}
)

// outcomeError carries the daemon's terminal outcome out of cobra.
type outcomeError struct {
	daemon.Outcome
}

func (e *outcomeError) Error() string {
	return e.Outcome.String()
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var oe *outcomeError
	if errors.As(err, &oe) {
		return oe.ExitCode()
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default $XDG_CONFIG_HOME/wayskk/wayskk.toml)")
}

func initConfig(cmd *cobra.Command, args []string) error {
	if configFlag != "" {
		config.SetConfigPath(configFlag)
	}
	if err := config.Init(); err != nil {
		return err
	}

	if lvl := config.Get().Logging.LogLevel; lvl != "" && !logger.SetLevel(lvl) {
		logger.Warn("Unknown log level in config, keeping default", "level", lvl)
	}
	if debugFlag {
		logger.SetLevel("debug")
	}
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	logger.Info("Starting wayskk", "version", Version, "mode", engine.InputMode())

	outcome := daemon.Run("", engine, xkb.NewResolver())
	outcome.Log()
	return &outcomeError{outcome}
}

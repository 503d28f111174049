package cmd

import (
	"fmt"
	"os"

	"github.com/bnema/wayskk/internal/config"
	"github.com/bnema/wayskk/internal/logger"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wayskk configuration",
	Long:  `Manage wayskk configuration including dictionaries and the initial input mode.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		logger.Info("Current Configuration:")
		logger.Infof("Config file: %s\n", config.GetConfigPath())

		logger.Info("[Engine]")
		logger.Infof("  Initial Input Mode: %s", cfg.Engine.InitialInputMode)

		logger.Info("\n[Logging]")
		level := cfg.Logging.LogLevel
		if level == "" {
			level = "(from LOG_LEVEL)"
		}
		logger.Infof("  Log Level: %s", level)

		logger.Info("\n[User Dictionaries]")
		for _, d := range cfg.UserDictionary {
			logger.Infof("  %s (%s)", d.Path, d.Encoding)
		}

		logger.Info("\n[Static Dictionaries]")
		for _, d := range cfg.StaticDictionary {
			logger.Infof("  %s (%s)", d.Path, d.Encoding)
		}

		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save current configuration to file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Save(); err != nil {
			return err
		}
		logger.Infof("Configuration saved to: %s", config.GetConfigPath())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long: `Write a configuration file. Unless --defaults is given, an interactive
form asks for the initial input mode and the user dictionary encoding.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			logger.Infof("Configuration file already exists at: %s", configPath)

			force, _ := cmd.Flags().GetBool("force")
			if !force {
				logger.Info("Use --force to overwrite")
				return nil
			}
		}

		useDefaults, _ := cmd.Flags().GetBool("defaults")
		if !useDefaults {
			if err := runConfigForm(); err != nil {
				return err
			}
		}

		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		logger.Info("\nYou can now:")
		logger.Info("  - Edit the configuration file directly")
		logger.Info("  - Use 'wayskk dict add' to add dictionaries")
		logger.Info("  - Use 'wayskk dict list' to check them")

		return nil
	},
}

func runConfigForm() error {
	cfg := config.Get()

	mode := cfg.Engine.InitialInputMode
	encoding := "utf-8"
	if len(cfg.UserDictionary) > 0 && cfg.UserDictionary[0].Encoding != "" {
		encoding = cfg.UserDictionary[0].Encoding
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Initial input mode").
				Description("Mode the engine starts in").
				Options(
					huh.NewOption("ASCII", "ascii"),
					huh.NewOption("Hiragana", "hiragana"),
					huh.NewOption("Katakana", "katakana"),
					huh.NewOption("Full-width ASCII", "zenkaku"),
				).
				Value(&mode),
			huh.NewSelect[string]().
				Title("User dictionary encoding").
				Description("Encoding learned entries are written in").
				Options(
					huh.NewOption("UTF-8", "utf-8"),
					huh.NewOption("EUC-JP", "euc-jp"),
				).
				Value(&encoding),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("configuration cancelled: %w", err)
	}

	config.SetInitialInputMode(mode)
	if len(cfg.UserDictionary) > 0 {
		return config.AddDictionary(true, config.DictionaryConfig{
			Path:     cfg.UserDictionary[0].Path,
			Encoding: encoding,
		})
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")
	configInitCmd.Flags().Bool("defaults", false, "Write defaults without prompting")
}

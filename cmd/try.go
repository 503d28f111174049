package cmd

import (
	"fmt"

	"github.com/bnema/wayskk/internal/config"
	"github.com/bnema/wayskk/internal/logger"
	"github.com/bnema/wayskk/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var tryCmd = &cobra.Command{
	Use:   "try",
	Short: "Try the conversion engine in the terminal",
	Long: `Start an interactive playground that feeds terminal keystrokes through
the SKK engine with the configured dictionaries. No compositor is needed.
User dictionaries learn from what you commit here, as they do in the daemon.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine(config.Get())
		if err != nil {
			return err
		}

		m := ui.NewPlaygroundModel(engine)
		if _, err := tea.NewProgram(m).Run(); err != nil {
			return fmt.Errorf("playground failed: %w", err)
		}
		if text := m.Text(); text != "" {
			fmt.Println(text)
		}

		if err := engine.SaveState(); err != nil {
			logger.Warn("Saving user dictionaries failed", "error", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tryCmd)
}

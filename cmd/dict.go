package cmd

import (
	"fmt"
	"strconv"

	"github.com/bnema/wayskk/internal/config"
	"github.com/bnema/wayskk/internal/logger"
	"github.com/bnema/wayskk/internal/skk"
	"github.com/bnema/wayskk/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/htmlindex"
)

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Manage SKK dictionaries",
}

// dictionaryRows loads every source and reports one table row per source.
func dictionaryRows(sources []skk.Source) [][]string {
	rows := make([][]string, 0, len(sources))
	for _, src := range sources {
		entries, status := "-", "ok"
		d, err := skk.Load(src)
		if err != nil {
			status = err.Error()
		} else {
			entries = strconv.Itoa(d.Len())
		}
		rows = append(rows, []string{string(src.Kind), src.Path, src.Encoding, entries, status})
	}
	return rows
}

var dictListCmd = &cobra.Command{
	Use:   "list",
	Short: "Load and list configured dictionaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		sources := dictionarySources(config.Get())
		if len(sources) == 0 {
			fmt.Println(ui.FormatWarning("No dictionaries configured"))
			return nil
		}

		rows := dictionaryRows(sources)
		fmt.Println(ui.FormatHeader("Dictionaries"))
		fmt.Println(ui.Table([]string{"KIND", "PATH", "ENCODING", "ENTRIES", "STATUS"}, rows, 4, "ok"))
		return nil
	},
}

var dictAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Add a dictionary",
	Long:  `Add a dictionary to the configuration. Static dictionaries are read-only; user dictionaries learn and are saved on exit.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetBool("user")
		encoding, _ := cmd.Flags().GetString("encoding")

		if _, err := htmlindex.Get(encoding); err != nil {
			return fmt.Errorf("unknown encoding %q: %w", encoding, err)
		}

		if err := config.AddDictionary(user, config.DictionaryConfig{Path: args[0], Encoding: encoding}); err != nil {
			return err
		}

		logger.Infof("Added %s dictionary '%s' (%s)", dictKind(user), args[0], encoding)
		return nil
	},
}

var dictRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Remove a dictionary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetBool("user")

		if err := config.RemoveDictionary(user, args[0]); err != nil {
			return err
		}

		logger.Infof("Removed %s dictionary '%s'", dictKind(user), args[0])
		return nil
	},
}

func dictKind(user bool) skk.Kind {
	if user {
		return skk.KindUser
	}
	return skk.KindStatic
}

func init() {
	rootCmd.AddCommand(dictCmd)

	dictCmd.AddCommand(dictListCmd)
	dictCmd.AddCommand(dictAddCmd)
	dictCmd.AddCommand(dictRemoveCmd)

	dictAddCmd.Flags().Bool("user", false, "Add as a user dictionary")
	dictAddCmd.Flags().String("encoding", "euc-jp", "Dictionary encoding (WHATWG label)")
	dictRemoveCmd.Flags().Bool("user", false, "Remove from the user dictionaries")
}

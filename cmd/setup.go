package cmd

import (
	"errors"
	"fmt"

	"github.com/bnema/wayskk/internal/protocols"
	"github.com/bnema/wayskk/internal/ui"
	"github.com/bnema/wayskk/internal/xkb"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Check compositor support for wayskk",
	Long: `Connect to the compositor and check that it advertises the globals
wayskk needs: wl_seat, zwp_virtual_keyboard_manager_v1 and
zwp_input_method_manager_v2.`,
	RunE: runSetup,
}

var requiredGlobals = []string{
	protocols.SeatInterface,
	protocols.VirtualKeyboardManagerInterface,
	protocols.InputMethodManagerInterface,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// checkGlobals renders one checklist line per required global and reports
// whether all of them are present.
func checkGlobals(c *protocols.Client) ([]string, bool) {
	lines := make([]string, 0, len(requiredGlobals))
	all := true
	for _, iface := range requiredGlobals {
		g, ok := c.FindGlobal(iface)
		if !ok {
			all = false
			lines = append(lines, ui.FormatCheck(false, iface, "not advertised"))
			continue
		}
		lines = append(lines, ui.FormatCheck(true, iface, fmt.Sprintf("version %d", g.Version)))
	}
	return lines, all
}

func probeCompositor() (*protocols.Client, error) {
	c, err := protocols.Connect("")
	if err != nil {
		return nil, err
	}
	if _, err := c.Registry(); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.Roundtrip(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(ui.FormatHeader("wayskk Setup"))
	fmt.Println("Checking compositor globals...")
	fmt.Println()

	c, err := probeCompositor()
	if err != nil {
		fmt.Println(ui.FormatCheck(false, "Wayland connection", err.Error()))
		return fmt.Errorf("cannot reach the compositor: %w", err)
	}
	defer c.Close()

	lines, ok := checkGlobals(c)
	for _, l := range lines {
		fmt.Println(l)
	}
	fmt.Println(ui.FormatCheck(xkb.Supported, "libxkbcommon", supportDetail(xkb.Supported)))
	fmt.Println()

	if !ok {
		fmt.Println("   Your compositor does not expose the input method protocols.")
		fmt.Println("   wlroots-based compositors (Sway, Hyprland, river) support them.")
		return errors.New("compositor support for input methods is missing")
	}
	fmt.Println(ui.SuccessStyle.Render("   Ready: run 'wayskk' to start the input method"))
	return nil
}

func supportDetail(ok bool) string {
	if ok {
		return "keys are converted"
	}
	return "built without cgo; keys are passed through unconverted"
}

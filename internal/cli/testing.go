package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:       "testing on|off",
		Short:     "Toggle testing/override mode (collapses dispatch delays)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		Run: func(cmd *cobra.Command, args []string) {
			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
				enabled = false
			default:
				exitErr("testing", fmt.Errorf("argument must be on or off, got %q", args[0]))
			}
			out, err := call(http.MethodPost, "/testing-mode", map[string]bool{"enabled": enabled})
			if err != nil {
				exitErr("testing", err)
			}
			printJSON(out)
		},
	}
	RootCmd.AddCommand(cmd)
}

package cli

import (
	"net/http"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show controller state and recent cycle metrics",
		Run: func(cmd *cobra.Command, args []string) {
			out, err := call(http.MethodGet, "/status", nil)
			if err != nil {
				exitErr("status", err)
			}
			printJSON(out)
		},
	}
	RootCmd.AddCommand(cmd)
}

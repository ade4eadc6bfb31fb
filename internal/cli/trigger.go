package cli

import (
	"net/http"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Force an out-of-band scheduler cycle and wait for it",
		Run: func(cmd *cobra.Command, args []string) {
			out, err := call(http.MethodPost, "/cycle/trigger", nil)
			if err != nil {
				exitErr("trigger", err)
			}
			printJSON(out)
		},
	}
	RootCmd.AddCommand(cmd)
}

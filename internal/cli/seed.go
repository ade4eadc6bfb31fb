package cli

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

var (
	seedUser   string
	seedTier   string
	seedLevel  string
	seedMood   int
	seedEnergy int
	seedStress int
)

func init() {
	cmd := &cobra.Command{
		Use:   "seed <entry text...>",
		Short: "Create a development journal entry (requires testing mode)",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			body := map[string]any{
				"user_id": seedUser,
				"content": strings.Join(args, " "),
				"mood":    seedMood,
				"energy":  seedEnergy,
				"stress":  seedStress,
				"tier":    seedTier,
				"level":   seedLevel,
			}
			out, err := call(http.MethodPost, "/dev/entry", body)
			if err != nil {
				exitErr("seed", err)
			}
			printJSON(out)
		},
	}
	cmd.Flags().StringVarP(&seedUser, "user", "u", "dev-user", "User id to post as")
	cmd.Flags().StringVar(&seedTier, "tier", "", "Set the user's tier (free, premium, beta)")
	cmd.Flags().StringVar(&seedLevel, "level", "", "Set the interaction level (low, normal, high)")
	cmd.Flags().IntVar(&seedMood, "mood", 0, "Mood signal 1-10 (0 = unset)")
	cmd.Flags().IntVar(&seedEnergy, "energy", 0, "Energy signal 1-10 (0 = unset)")
	cmd.Flags().IntVar(&seedStress, "stress", 0, "Stress signal 1-10 (0 = unset)")
	RootCmd.AddCommand(cmd)
}

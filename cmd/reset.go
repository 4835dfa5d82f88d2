package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget all review progress of a user, keeping the cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return errors.New("reset deletes all review history, pass --yes to confirm")
		}
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		userID, _ := cmd.Flags().GetString("user")
		if err := a.cards.ResetProgress(ctx, userID, a.clock.Now()); err != nil {
			return err
		}
		if err := a.progress.DeleteProgress(ctx, userID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Progress of user %s was reset\n", userID)
		return nil
	},
}

func init() {
	userFlag(resetCmd)
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
}

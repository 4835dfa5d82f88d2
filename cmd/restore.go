package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore a JSON backup into a user's account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open backup: %w", err)
		}
		defer f.Close()

		userID, _ := cmd.Flags().GetString("user")
		res, err := a.backups().Restore(cmd.Context(), userID, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %d decks, %d cards and %d days of activity\n", res.Decks, res.Cards, res.Activity)
		if res.Repaired > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Repaired %d cards with invalid scheduling data\n", res.Repaired)
		}
		return nil
	},
}

func init() {
	userFlag(restoreCmd)
}

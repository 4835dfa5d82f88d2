package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a JSON backup of a user's decks, cards and progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		userID, _ := cmd.Flags().GetString("user")
		path, _ := cmd.Flags().GetString("out")

		var w io.Writer = cmd.OutOrStdout()
		if path != "" && path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create backup file: %w", err)
			}
			defer f.Close()
			w = f
		}

		archive, err := a.backups().Export(cmd.Context(), userID, w)
		if err != nil {
			return err
		}
		if path != "" && path != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d decks and %d cards to %s\n", len(archive.Decks), len(archive.Cards), path)
		}
		return nil
	},
}

func init() {
	userFlag(exportCmd)
	exportCmd.Flags().StringP("out", "o", "", "Output file (stdout when empty)")
}

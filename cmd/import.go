package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/luxcards/internal/excel"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import cards from an .xlsx or .csv file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		userID, _ := cmd.Flags().GetString("user")
		cfg := excel.DefaultImportConfig()
		if deck, _ := cmd.Flags().GetString("deck"); deck != "" {
			cfg.DefaultDeck = deck
		}
		if sheet, _ := cmd.Flags().GetString("sheet"); sheet != "" {
			cfg.SheetName = sheet
		}

		res, err := a.importer().ImportFile(cmd.Context(), userID, args[0], cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Processed %d rows: %d new, %d updated, %d skipped in %d decks\n",
			res.TotalProcessed, res.Created, res.Updated, res.Skipped, res.DecksTouched)
		for _, e := range res.Errors {
			fmt.Fprintln(out, "  "+e)
		}
		return nil
	},
}

func init() {
	userFlag(importCmd)
	importCmd.Flags().String("deck", "", "Deck for rows without a deck column")
	importCmd.Flags().String("sheet", "", "Worksheet to read from .xlsx files")
}

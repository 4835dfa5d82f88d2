// Package cmd holds the luxcards command line.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "luxcards",
	Short:         "Luxembourgish flashcards with spaced repetition",
	Long:          "luxcards runs the Telegram flashcard bot and the tools to manage decks and progress.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite database file (overrides DB_PATH)")

	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(resetCmd)
}

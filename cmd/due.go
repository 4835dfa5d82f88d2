package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/luxcards/internal/spaced_repetition"
	"github.com/example/luxcards/pkg/models"
)

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List the cards the next session would present",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		userID, _ := cmd.Flags().GetString("user")
		mode, _ := cmd.Flags().GetString("mode")

		settings, err := a.settings.GetOrDefault(ctx, userID)
		if err != nil {
			return err
		}
		cards, err := a.cards.LoadCards(ctx, userID)
		if err != nil {
			return err
		}
		now := a.clock.Now()
		limits := spaced_repetition.DailyLimits{NewCards: settings.NewCardsPerDay, Reviews: settings.ReviewsPerDay}
		queue, err := spaced_repetition.BuildQueue(models.StudyMode(mode), cards, now, limits,
			spaced_repetition.CountStudiedOn(cards, now))
		if errors.Is(err, spaced_repetition.ErrNoCardsAvailable) {
			fmt.Fprintln(cmd.OutOrStdout(), "No cards available.")
			return nil
		}
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FRONT\tBACK\tINTERVAL\tNEXT REVIEW")
		for _, c := range queue.Cards {
			next := "new"
			if c.ReviewCount > 0 {
				next = c.NextReview.In(now.Location()).Format("2006-01-02")
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.Front, c.Back, c.Interval, next)
		}
		return tw.Flush()
	},
}

func init() {
	userFlag(dueCmd)
	dueCmd.Flags().String("mode", string(models.ModeReview), "review, new or all")
}

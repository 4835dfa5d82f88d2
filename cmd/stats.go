package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/luxcards/internal/progress"
	"github.com/example/luxcards/pkg/models"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a user's progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		userID, _ := cmd.Flags().GetString("user")
		cards, err := a.cards.LoadCards(ctx, userID)
		if err != nil {
			return err
		}
		p, err := a.progress.LoadProgress(ctx, userID)
		if err != nil {
			return err
		}
		if p == nil {
			p = models.NewUserProgress(userID)
		}
		now := a.clock.Now()
		activity, err := a.activity.Recent(ctx, userID, now, a.cfg.Study.ActivityDays)
		if err != nil {
			return err
		}

		due := a.sm2.Summarize(cards, now)
		goals := progress.GoalProgress(p, activity, now)
		streak := progress.ComputeStreak(progress.IndexActivity(activity), now)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cards:     %d total, %d due, %d new, %d mastered\n", due.Total, due.Due, due.New, due.Mastered)
		if !due.NextDue.IsZero() {
			fmt.Fprintf(out, "Next due:  %s\n", due.NextDue.In(now.Location()).Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(out, "Studied:   %d answers, %d correct, %.1f%% accuracy\n", p.CardsStudied, p.CorrectAnswers, p.Accuracy)
		fmt.Fprintf(out, "Sessions:  %d, total %s\n", p.TotalSessions, p.TotalStudyTime.Round(time.Second))
		fmt.Fprintf(out, "Streak:    %d days (best %d)\n", streak, max(streak, p.LongestStreak))
		fmt.Fprintf(out, "Today:     %d/%d cards, %d/%d min\n", goals.DailyCards, goals.DailyCardsGoal, goals.DailyMinutes, goals.DailyMinutesGoal)
		fmt.Fprintf(out, "This week: %d/%d cards\n", goals.WeeklyCards, goals.WeeklyCardsGoal)
		fmt.Fprintf(out, "Unlocked:  %d achievements\n", len(p.Achievements))
		return nil
	},
}

func init() {
	userFlag(statsCmd)
}

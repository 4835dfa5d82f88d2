package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/example/luxcards/internal/progress"
	"github.com/example/luxcards/internal/quiz"
	"github.com/example/luxcards/internal/spaced_repetition"
	"github.com/example/luxcards/internal/study"
	"github.com/example/luxcards/pkg/models"
)

const welcomeText = `Moien! Welcome to the Luxembourgish flashcard bot 🇱🇺

Available commands:
/menu - Show main menu
/review - Review the cards that are due
/learn - Learn new cards
/all - Practice your whole collection
/quiz - Multiple choice quiz
/type - Type the Luxembourgish word
/end - End the current session
/stats - Your progress
/decks - List your decks
/settings - Reminders and daily limits
/goal - Set your goals, e.g. /goal 30 150 15
/import - Import cards from an Excel or CSV file
/export - Download a backup of your data
/reset - Forget all review progress`

const importHelpText = `Send me an .xlsx or .csv file with one card per row:

A: Luxembourgish, B: translation, C: pronunciation,
D: category, E: level (A1-B2), F: notes, G: deck

The first row is treated as a header.`

func cardCount(n int) string {
	if n == 1 {
		return "1 card"
	}
	return fmt.Sprintf("%d cards", n)
}

func reminderText(due int) string {
	return fmt.Sprintf("⏰ Moien! You have %s waiting for review.", cardCount(due))
}

func position(s *study.Session) string {
	return fmt.Sprintf("(%d/%d)", s.Cursor()+1, s.Len())
}

// cardFrontText shows the prompt side of a card
func cardFrontText(c models.Card, pos string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🃏 <b>%s</b>", html.EscapeString(c.Front))
	if c.Pronunciation != "" {
		fmt.Fprintf(&sb, "\n<i>[%s]</i>", html.EscapeString(c.Pronunciation))
	}
	if c.Category != "" {
		fmt.Fprintf(&sb, "\n🏷 %s · %s", html.EscapeString(c.Category), c.Difficulty)
	}
	fmt.Fprintf(&sb, "\n\n%s", pos)
	return sb.String()
}

// cardBackText reveals the answer below the prompt
func cardBackText(c models.Card, pos string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🃏 <b>%s</b>", html.EscapeString(c.Front))
	if c.Pronunciation != "" {
		fmt.Fprintf(&sb, "\n<i>[%s]</i>", html.EscapeString(c.Pronunciation))
	}
	fmt.Fprintf(&sb, "\n\n➡️ %s", html.EscapeString(c.Back))
	if c.Notes != "" {
		fmt.Fprintf(&sb, "\n📝 %s", html.EscapeString(c.Notes))
	}
	fmt.Fprintf(&sb, "\n\n%s How well did you know it?", pos)
	return sb.String()
}

func questionText(q quiz.Question, pos string) string {
	if q.Type == models.ModeQuizTypeIn {
		return fmt.Sprintf("⌨️ Type the Luxembourgish for:\n\n<b>%s</b>\n\n%s", html.EscapeString(q.Prompt), pos)
	}
	return fmt.Sprintf("❓ What does <b>%s</b> mean?\n\n%s", html.EscapeString(q.Prompt), pos)
}

func quizFeedbackText(a quiz.Answer) string {
	if a.Correct {
		return "✅ Richteg! " + html.EscapeString(a.Card.Front) + " = " + html.EscapeString(a.Card.Back)
	}
	return fmt.Sprintf("❌ Not quite. The answer is <b>%s</b>", html.EscapeString(a.Expected))
}

func nextReviewText(c models.Card) string {
	if c.Interval == 1 {
		return "Next review tomorrow."
	}
	return fmt.Sprintf("Next review in %d days.", c.Interval)
}

func sessionSummaryText(st study.Stats) string {
	if st.Total == 0 {
		return "Session ended. No cards were answered."
	}
	return fmt.Sprintf("🏁 Session complete!\n\nAnswered: %d\nCorrect: %d (%.0f%%)\nTime: %s",
		st.Total, st.Correct, st.Accuracy, formatDuration(st.Duration))
}

func noCardsText(mode models.StudyMode) string {
	switch mode {
	case models.ModeReview:
		return "🎉 Nothing is due right now. Come back later or learn new cards with /learn."
	case models.ModeNew:
		return "No new cards left for today. Import more with /import or raise the daily limit in /settings."
	}
	return "You have no cards yet. Import a deck with /import."
}

// statsText is the dashboard shown by /stats
func statsText(p *models.UserProgress, due spaced_repetition.DueSummary, goals progress.GoalStatus, quizzes []models.QuizResult, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("📊 <b>Your progress</b>\n\n")
	fmt.Fprintf(&sb, "Cards: %d total, %d due, %d new, %d mastered\n", due.Total, due.Due, due.New, due.Mastered)
	if !due.NextDue.IsZero() && due.Due == 0 {
		fmt.Fprintf(&sb, "Next review: %s\n", formatUntil(due.NextDue.Sub(now)))
	}
	fmt.Fprintf(&sb, "\nStudied: %d answers, %.1f%% accuracy\n", p.CardsStudied, p.Accuracy)
	fmt.Fprintf(&sb, "Sessions: %d, average %s\n", p.TotalSessions, formatDuration(p.AverageSessionTime))
	fmt.Fprintf(&sb, "Total time: %s\n", formatDuration(p.TotalStudyTime))
	fmt.Fprintf(&sb, "🔥 Streak: %d days (best %d)\n", p.CurrentStreak, p.LongestStreak)

	sb.WriteString("\n🎯 <b>Goals</b>\n")
	fmt.Fprintf(&sb, "%s Today: %d/%d cards, %d/%d min\n", check(goals.DailyMet()),
		goals.DailyCards, goals.DailyCardsGoal, goals.DailyMinutes, goals.DailyMinutesGoal)
	fmt.Fprintf(&sb, "%s This week: %d/%d cards\n", check(goals.WeeklyMet()), goals.WeeklyCards, goals.WeeklyCardsGoal)

	if len(p.Achievements) > 0 {
		fmt.Fprintf(&sb, "\n🏆 Achievements: %d\n", len(p.Achievements))
	}
	if len(quizzes) > 0 {
		sb.WriteString("\n❓ <b>Recent quizzes</b>\n")
		for _, q := range quizzes {
			fmt.Fprintf(&sb, "%s %s: %d/%d\n", q.TakenAt.In(now.Location()).Format("02.01"), quizName(q.QuizType), q.CorrectCards, q.TotalCards)
		}
	}
	return sb.String()
}

func check(ok bool) string {
	if ok {
		return "✅"
	}
	return "▫️"
}

func quizName(m models.StudyMode) string {
	if m == models.ModeQuizTypeIn {
		return "type-in"
	}
	return "multiple choice"
}

// achievementText names an unlocked achievement
func achievementText(id string) string {
	var n int
	switch {
	case id == progress.AchievementPerfectSession:
		return "🏆 Perfect session! Every answer was right."
	case id == progress.AchievementSpeed:
		return "⚡ Speed learner! That was fast."
	case scan(id, "cards_%d", &n):
		if n == 1 {
			return "🏆 Your first card!"
		}
		return fmt.Sprintf("🏆 %d cards studied!", n)
	case scan(id, "streak_%d", &n):
		return fmt.Sprintf("🔥 %d day streak!", n)
	case scan(id, "sessions_%d", &n):
		return fmt.Sprintf("🏆 %d sessions completed!", n)
	}
	return "🏆 Achievement unlocked: " + id
}

func scan(s, format string, n *int) bool {
	_, err := fmt.Sscanf(s, format, n)
	return err == nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func formatUntil(d time.Duration) string {
	switch {
	case d < time.Hour:
		return "within the hour"
	case d < 24*time.Hour:
		return fmt.Sprintf("in %d hours", int(d.Hours()))
	}
	return fmt.Sprintf("in %d days", int(d.Hours()/24))
}

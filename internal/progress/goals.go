package progress

import (
	"time"

	"github.com/example/luxcards/pkg/models"
)

// GoalStatus is how far the learner is towards their goals
type GoalStatus struct {
	DailyCards       int
	DailyCardsGoal   int
	DailyMinutes     int
	DailyMinutesGoal int
	WeeklyCards      int
	WeeklyCardsGoal  int
}

// DailyMet reports whether both daily goals are reached
func (g GoalStatus) DailyMet() bool {
	return g.DailyCards >= g.DailyCardsGoal && g.DailyMinutes >= g.DailyMinutesGoal
}

// WeeklyMet reports whether the weekly card goal is reached
func (g GoalStatus) WeeklyMet() bool {
	return g.WeeklyCards >= g.WeeklyCardsGoal
}

// GoalProgress measures p's goals against the recorded activity.
// Weeks start on Monday.
func GoalProgress(p *models.UserProgress, activity []models.DailyActivity, today time.Time) GoalStatus {
	return goalStatus(p.Goals, IndexActivity(activity), today)
}

func goalStatus(goals models.Goals, idx ActivityIndex, today time.Time) GoalStatus {
	day := calendarDay(today)
	todayActivity := idx[models.DateKey(day)]

	gs := GoalStatus{
		DailyCards:       todayActivity.CardsStudied,
		DailyCardsGoal:   goals.DailyCards,
		DailyMinutes:     int(todayActivity.StudyTime / time.Minute),
		DailyMinutesGoal: goals.DailyMinutes,
		WeeklyCardsGoal:  goals.WeeklyCards,
	}

	offset := (int(day.Weekday()) + 6) % 7 // days since Monday
	monday := day.AddDate(0, 0, -offset)
	for d := monday; !d.After(day); d = d.AddDate(0, 0, 1) {
		gs.WeeklyCards += idx[models.DateKey(d)].CardsStudied
	}
	return gs
}

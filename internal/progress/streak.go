package progress

import (
	"time"

	"github.com/example/luxcards/pkg/models"
)

// ActivityIndex maps a date key to that day's activity
type ActivityIndex map[string]models.DailyActivity

// IndexActivity builds an ActivityIndex from records
func IndexActivity(records []models.DailyActivity) ActivityIndex {
	idx := make(ActivityIndex, len(records))
	for _, r := range records {
		idx[r.Date] = r
	}
	return idx
}

func (idx ActivityIndex) studied(day time.Time) bool {
	return idx[models.DateKey(day)].CardsStudied > 0
}

// ComputeStreak counts consecutive days with at least one studied card,
// ending today, or yesterday when nothing has been studied yet today.
func ComputeStreak(idx ActivityIndex, today time.Time) int {
	day := calendarDay(today)
	if !idx.studied(day) {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for idx.studied(day) {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// calendarDay pins t to noon so that AddDate steps whole days across DST changes
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, t.Location())
}

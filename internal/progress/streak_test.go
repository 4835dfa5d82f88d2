package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/luxcards/pkg/models"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t.Add(20 * time.Hour)
}

func studied(dates ...string) ActivityIndex {
	idx := ActivityIndex{}
	for _, d := range dates {
		idx[d] = models.DailyActivity{Date: d, CardsStudied: 5}
	}
	return idx
}

func TestComputeStreak(t *testing.T) {
	tests := []struct {
		name     string
		activity ActivityIndex
		today    string
		want     int
	}{
		{"no activity", studied(), "2025-06-05", 0},
		{"only today", studied("2025-06-05"), "2025-06-05", 1},
		{"ends yesterday", studied("2025-06-03", "2025-06-04"), "2025-06-05", 2},
		{"gap breaks run", studied("2025-06-01", "2025-06-03", "2025-06-04"), "2025-06-05", 2},
		{"today and yesterday", studied("2025-06-04", "2025-06-05"), "2025-06-05", 2},
		{"stale run", studied("2025-06-01", "2025-06-02"), "2025-06-05", 0},
		{"across month", studied("2025-05-30", "2025-05-31", "2025-06-01"), "2025-06-01", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStreak(tt.activity, day(tt.today)))
		})
	}
}

func TestComputeStreak_ZeroCardDaysDoNotCount(t *testing.T) {
	idx := studied("2025-06-03")
	idx["2025-06-04"] = models.DailyActivity{Date: "2025-06-04", SessionsCompleted: 1}
	assert.Equal(t, 0, ComputeStreak(idx, day("2025-06-05")))
}

func TestComputeStreak_AcrossDST(t *testing.T) {
	lux, err := time.LoadLocation("Europe/Luxembourg")
	if err != nil {
		t.Skip("tzdata not available")
	}
	idx := studied("2025-03-29", "2025-03-30", "2025-03-31")
	today := time.Date(2025, 3, 31, 0, 30, 0, 0, lux)
	assert.Equal(t, 3, ComputeStreak(idx, today))
}

func TestGoalProgress(t *testing.T) {
	p := models.NewUserProgress("u1")
	p.Goals = models.Goals{DailyCards: 10, WeeklyCards: 30, DailyMinutes: 5}
	activity := []models.DailyActivity{
		{Date: "2025-06-01", CardsStudied: 50}, // previous week (Sunday)
		{Date: "2025-06-02", CardsStudied: 12},
		{Date: "2025-06-04", CardsStudied: 10, StudyTime: 6 * time.Minute},
	}

	// 2025-06-04 is a Wednesday
	gs := GoalProgress(p, activity, day("2025-06-04"))
	assert.Equal(t, 10, gs.DailyCards)
	assert.Equal(t, 6, gs.DailyMinutes)
	assert.Equal(t, 22, gs.WeeklyCards)
	assert.True(t, gs.DailyMet())
	assert.False(t, gs.WeeklyMet())
}

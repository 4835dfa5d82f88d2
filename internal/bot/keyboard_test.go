package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/luxcards/internal/progress"
	"github.com/example/luxcards/pkg/models"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data   string
		action string
		n      int
		ok     bool
	}{
		{"quality_3", prefixQuality, 3, true},
		{"quiz_option_2", prefixQuizOption, 2, true},
		{"set_notification_time_18", prefixReminderHour, 18, true},
		{"set_new_cards_30", prefixNewCards, 30, true},
		{"set_notification_time_x", "set_notification_time_x", 0, false},
		{cbShowAnswer, cbShowAnswer, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			action, n, ok := parseCallback(tt.data)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.n, n)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestCreateKeyboard(t *testing.T) {
	kb := createKeyboard([][]MenuButton{
		{{Text: "a", CallbackData: "1"}, {Text: "b", CallbackData: "2"}},
		{{Text: "c", CallbackData: "3"}},
	})
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, "b", kb.InlineKeyboard[0][1].Text)
	assert.Equal(t, "3", *kb.InlineKeyboard[1][0].CallbackData)
}

func TestQualityButtonsCoverAllQualities(t *testing.T) {
	rows := qualityButtons()
	require.Len(t, rows[0], 4)
	for i, b := range rows[0] {
		action, n, ok := parseCallback(b.CallbackData)
		require.True(t, ok)
		assert.Equal(t, prefixQuality, action)
		q := models.Quality(n)
		assert.True(t, q.Valid())
		assert.Equal(t, models.QualityAgain+models.Quality(i), q)
	}
}

func TestChoiceButtonsMarkCurrent(t *testing.T) {
	rows := choiceButtons(reminderHours, 15, prefixReminderHour, "%d:00")
	require.Len(t, rows, len(reminderHours)+1)
	assert.Equal(t, "9:00", rows[0][0].Text)
	assert.Equal(t, "✓ 15:00", rows[2][0].Text)
	assert.Equal(t, prefixReminderHour+"15", rows[2][0].CallbackData)
	assert.Equal(t, cbSettings, rows[len(rows)-1][0].CallbackData)
}

func TestSettingsButtonsToggleLabel(t *testing.T) {
	s := models.DefaultSettings("u")
	assert.Equal(t, "🔕 Turn reminders off", settingsButtons(s)[1][0].Text)
	s.RemindersEnabled = false
	assert.Equal(t, "🔔 Turn reminders on", settingsButtons(s)[1][0].Text)
}

func TestAchievementText(t *testing.T) {
	assert.Equal(t, "🏆 Your first card!", achievementText("cards_1"))
	assert.Equal(t, "🏆 100 cards studied!", achievementText("cards_100"))
	assert.Equal(t, "🔥 7 day streak!", achievementText("streak_7"))
	assert.Equal(t, "🏆 10 sessions completed!", achievementText("sessions_10"))
	assert.Contains(t, achievementText(progress.AchievementPerfectSession), "Perfect")
	assert.Equal(t, "🏆 Achievement unlocked: custom", achievementText("custom"))
}

func TestParseGoals(t *testing.T) {
	g, err := parseGoals([]string{"30", "150", "15"})
	require.NoError(t, err)
	assert.Equal(t, models.Goals{DailyCards: 30, WeeklyCards: 150, DailyMinutes: 15}, g)

	_, err = parseGoals([]string{"30", "150"})
	assert.Error(t, err)
	_, err = parseGoals([]string{"30", "-1", "15"})
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "2m 5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h 30m", formatDuration(90*time.Minute))
}

func TestCardTextEscapesHTML(t *testing.T) {
	c := models.NewCard("u", "d", "<b>Moien</b>", "Hello & welcome", time.Now())
	assert.Contains(t, cardFrontText(c, "(1/1)"), "&lt;b&gt;Moien&lt;/b&gt;")
	assert.Contains(t, cardBackText(c, "(1/1)"), "Hello &amp; welcome")
}

package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/luxcards/pkg/models"
)

// Callback data of the inline buttons
const (
	cbMenu            = "main_menu"
	cbReview          = "start_review"
	cbLearn           = "start_learning"
	cbAll             = "practice_all"
	cbQuiz            = "start_quiz"
	cbTypeIn          = "start_type_in"
	cbStats           = "show_stats"
	cbSettings        = "settings"
	cbShowAnswer      = "show_answer"
	cbEnd             = "end_session"
	cbReminderTime    = "notification_time"
	cbToggleReminders = "toggle_reminders"
	cbNewCards        = "new_cards_per_day"

	prefixQuality      = "quality_"
	prefixQuizOption   = "quiz_option_"
	prefixReminderHour = "set_notification_time_"
	prefixNewCards     = "set_new_cards_"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// MainMenuButtons returns the buttons for the main menu
func MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "🔁 Review", CallbackData: cbReview},
			{Text: "🆕 Learn new", CallbackData: cbLearn},
		},
		{
			{Text: "🎲 Practice all", CallbackData: cbAll},
			{Text: "❓ Quiz", CallbackData: cbQuiz},
		},
		{
			{Text: "⌨️ Type the word", CallbackData: cbTypeIn},
			{Text: "📊 Statistics", CallbackData: cbStats},
		},
		{
			{Text: "⚙️ Settings", CallbackData: cbSettings},
		},
	}
}

func showAnswerButtons() [][]MenuButton {
	return [][]MenuButton{
		{{Text: "👀 Show answer", CallbackData: cbShowAnswer}},
		{{Text: "⏹ End session", CallbackData: cbEnd}},
	}
}

func qualityButtons() [][]MenuButton {
	row := make([]MenuButton, 0, 4)
	for q := models.QualityAgain; q <= models.QualityEasy; q++ {
		row = append(row, MenuButton{Text: qualityLabel(q), CallbackData: fmt.Sprintf("%s%d", prefixQuality, int(q))})
	}
	return [][]MenuButton{row, {{Text: "⏹ End session", CallbackData: cbEnd}}}
}

func qualityLabel(q models.Quality) string {
	switch q {
	case models.QualityAgain:
		return "❌ Again"
	case models.QualityHard:
		return "😬 Hard"
	case models.QualityGood:
		return "🙂 Good"
	case models.QualityEasy:
		return "🚀 Easy"
	}
	return q.String()
}

func quizOptionButtons(options []string) [][]MenuButton {
	rows := make([][]MenuButton, 0, len(options)+1)
	for i, opt := range options {
		rows = append(rows, []MenuButton{{Text: opt, CallbackData: fmt.Sprintf("%s%d", prefixQuizOption, i+1)}})
	}
	return append(rows, []MenuButton{{Text: "⏹ End quiz", CallbackData: cbEnd}})
}

func settingsButtons(s models.Settings) [][]MenuButton {
	toggle := "🔕 Turn reminders off"
	if !s.RemindersEnabled {
		toggle = "🔔 Turn reminders on"
	}
	return [][]MenuButton{
		{{Text: "🕒 Reminder time", CallbackData: cbReminderTime}},
		{{Text: toggle, CallbackData: cbToggleReminders}},
		{{Text: "🆕 New cards per day", CallbackData: cbNewCards}},
		{{Text: "⬅️ Back to menu", CallbackData: cbMenu}},
	}
}

// choiceButtons lists one button per option and marks the current one
func choiceButtons(options []int, current int, prefix, format string) [][]MenuButton {
	rows := make([][]MenuButton, 0, len(options)+1)
	for _, opt := range options {
		text := fmt.Sprintf(format, opt)
		if opt == current {
			text = "✓ " + text
		}
		rows = append(rows, []MenuButton{{Text: text, CallbackData: fmt.Sprintf("%s%d", prefix, opt)}})
	}
	return append(rows, []MenuButton{{Text: "⬅️ Back to Settings", CallbackData: cbSettings}})
}

var numericPrefixes = []string{prefixQuality, prefixQuizOption, prefixReminderHour, prefixNewCards}

// parseCallback splits prefixed callback data into its prefix and number.
// Plain data comes back unchanged with ok set to false.
func parseCallback(data string) (action string, n int, ok bool) {
	for _, prefix := range numericPrefixes {
		if !strings.HasPrefix(data, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(data, prefix))
		if err != nil {
			return data, 0, false
		}
		return prefix, n, true
	}
	return data, 0, false
}

package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/example/luxcards/internal/excel"
	"github.com/example/luxcards/internal/spaced_repetition"
	"github.com/example/luxcards/internal/study"
	"github.com/example/luxcards/pkg/models"
)

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, b.config.RequestTimeout)
	defer cancel()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}
	chatID := message.Chat.ID
	l, err := b.learnerFor(ctx, message.From.ID, chatID)
	if err != nil {
		log.Error().Err(err).Int64("telegram_id", message.From.ID).Msg("failed to load learner")
		b.reply(chatID, "❌ Something went wrong. Please try again later.", nil)
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if message.IsCommand() {
		l.awaitingImport = false
		switch message.Command() {
		case "start", "help":
			b.reply(chatID, welcomeText, MainMenuButtons())
		case "menu":
			b.showMainMenu(chatID)
		case "review":
			b.beginSession(ctx, l, chatID, models.ModeReview)
		case "learn":
			b.beginSession(ctx, l, chatID, models.ModeNew)
		case "all":
			b.beginSession(ctx, l, chatID, models.ModeAll)
		case "quiz":
			b.beginSession(ctx, l, chatID, models.ModeQuizMultipleChoice)
		case "type":
			b.beginSession(ctx, l, chatID, models.ModeQuizTypeIn)
		case "end":
			b.endSession(ctx, l, chatID)
		case "stats":
			b.handleStatsCommand(ctx, l, chatID)
		case "decks":
			b.handleDecksCommand(ctx, l, chatID)
		case "settings":
			b.handleSettingsCommand(l, chatID)
		case "goal":
			b.handleGoalCommand(l, chatID, message.CommandArguments())
		case "import":
			// answers in a running session would write old card content over the import
			if l.active() {
				b.endSession(ctx, l, chatID)
			}
			l.awaitingImport = true
			b.reply(chatID, importHelpText, nil)
		case "export":
			b.handleExportCommand(ctx, l, chatID)
		case "reset":
			b.handleResetCommand(ctx, l, chatID, message.CommandArguments())
		case "admin_stats":
			// Admin-only command
			if b.isAdmin(message.From.ID) {
				b.handleAdminStatsCommand(chatID)
			} else {
				b.reply(chatID, "This command is only available for administrators.", MainMenuButtons())
			}
		default:
			b.reply(chatID, "Unknown command. Use /menu to show the main menu.", MainMenuButtons())
		}
		return
	}

	switch {
	case message.Document != nil && l.awaitingImport:
		b.processImport(ctx, l, chatID, message.Document)
	case message.Document != nil:
		b.reply(chatID, "To import cards, send /import first and then the file.", nil)
	case l.quiz != nil && l.active() && message.Text != "":
		b.handleQuizReply(ctx, l, chatID, message.Text)
	default:
		b.reply(chatID, "I don't understand. Use /menu to show the main menu.", MainMenuButtons())
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Debug().Err(err).Msg("failed to answer callback")
	}
	if callback.From == nil || callback.Message == nil || callback.Message.Chat == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	l, err := b.learnerFor(ctx, callback.From.ID, chatID)
	if err != nil {
		log.Error().Err(err).Int64("telegram_id", callback.From.ID).Msg("failed to load learner")
		b.reply(chatID, "❌ Something went wrong. Please try again later.", nil)
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.awaitingImport = false

	if action, n, ok := parseCallback(callback.Data); ok {
		switch action {
		case prefixQuality:
			b.handleQuality(ctx, l, chatID, messageID, models.Quality(n))
		case prefixQuizOption:
			if messageID != l.cardMessageID {
				b.reply(chatID, "That question was already answered.", nil)
				return
			}
			b.handleQuizReply(ctx, l, chatID, strconv.Itoa(n))
		case prefixReminderHour:
			b.handleNotificationTimeChange(ctx, l, chatID, n)
		case prefixNewCards:
			b.handleNewCardsChange(ctx, l, chatID, n)
		}
		return
	}

	switch callback.Data {
	case cbMenu:
		b.showMainMenu(chatID)
	case cbReview:
		b.beginSession(ctx, l, chatID, models.ModeReview)
	case cbLearn:
		b.beginSession(ctx, l, chatID, models.ModeNew)
	case cbAll:
		b.beginSession(ctx, l, chatID, models.ModeAll)
	case cbQuiz:
		b.beginSession(ctx, l, chatID, models.ModeQuizMultipleChoice)
	case cbTypeIn:
		b.beginSession(ctx, l, chatID, models.ModeQuizTypeIn)
	case cbStats:
		b.handleStatsCommand(ctx, l, chatID)
	case cbSettings:
		b.handleSettingsCommand(l, chatID)
	case cbShowAnswer:
		b.revealAnswer(l, chatID, messageID)
	case cbEnd:
		b.endSession(ctx, l, chatID)
	case cbReminderTime:
		b.handleNotificationTimeSettings(l, chatID)
	case cbToggleReminders:
		b.handleToggleReminders(ctx, l, chatID)
	case cbNewCards:
		b.handleNewCardsSettings(l, chatID)
	default:
		log.Warn().Str("data", callback.Data).Msg("unknown callback")
	}
}

// showMainMenu shows the main menu
func (b *Bot) showMainMenu(chatID int64) {
	b.reply(chatID, "Main Menu - choose an option:", MainMenuButtons())
}

func (b *Bot) beginSession(ctx context.Context, l *learner, chatID int64, mode models.StudyMode) {
	err := b.startSession(ctx, l, mode)
	if errors.Is(err, spaced_repetition.ErrNoCardsAvailable) || errors.Is(err, study.ErrNoCards) {
		b.reply(chatID, noCardsText(mode), MainMenuButtons())
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", l.userID).Str("mode", string(mode)).Msg("failed to start session")
		b.reply(chatID, "❌ Could not start the session. Please try again.", nil)
		return
	}
	log.Info().Str("user_id", l.userID).Str("mode", string(mode)).Int("cards", l.session.Len()).Msg("session started")
	b.presentCurrent(l, chatID)
}

// presentCurrent sends the card or question at the session cursor
func (b *Bot) presentCurrent(l *learner, chatID int64) {
	var msg tgbotapi.MessageConfig
	if l.quiz != nil {
		q, ok := l.quiz.Current()
		if !ok {
			return
		}
		msg = tgbotapi.NewMessage(chatID, questionText(q, position(l.session)))
		if q.Type == models.ModeQuizMultipleChoice {
			msg.ReplyMarkup = createKeyboard(quizOptionButtons(q.Options))
		} else {
			msg.ReplyMarkup = createKeyboard([][]MenuButton{{{Text: "⏹ End quiz", CallbackData: cbEnd}}})
		}
	} else {
		card, ok := l.session.Current()
		if !ok {
			return
		}
		msg = tgbotapi.NewMessage(chatID, cardFrontText(card, position(l.session)))
		msg.ReplyMarkup = createKeyboard(showAnswerButtons())
	}
	msg.ParseMode = tgbotapi.ModeHTML
	if sent, ok := b.send(msg); ok {
		l.cardMessageID = sent.MessageID
	}
}

func (b *Bot) revealAnswer(l *learner, chatID int64, messageID int) {
	if !l.active() || l.quiz != nil {
		b.reply(chatID, "No study session is running. Use /menu to start one.", nil)
		return
	}
	if messageID != l.cardMessageID {
		b.reply(chatID, "That card is no longer current.", nil)
		return
	}
	card, _ := l.session.Current()
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID,
		cardBackText(card, position(l.session)), createKeyboard(qualityButtons()))
	edit.ParseMode = tgbotapi.ModeHTML
	b.send(edit)
}

func (b *Bot) handleQuality(ctx context.Context, l *learner, chatID int64, messageID int, q models.Quality) {
	if messageID != l.cardMessageID {
		b.reply(chatID, "That card was already answered.", nil)
		return
	}
	updated, err := b.answer(l, q)
	switch {
	case errors.Is(err, models.ErrInvalidQuality):
		b.reply(chatID, "Please use one of the answer buttons.", nil)
		return
	case errors.Is(err, study.ErrNotInProgress):
		b.reply(chatID, "No study session is running. Use /menu to start one.", nil)
		return
	case err != nil:
		log.Error().Err(err).Str("user_id", l.userID).Msg("failed to answer card")
		return
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, fmt.Sprintf("%s → %s. %s",
		html.EscapeString(updated.Front), qualityLabel(q), nextReviewText(updated)))
	edit.ParseMode = tgbotapi.ModeHTML
	b.send(edit)
	b.afterAnswer(ctx, l, chatID)
}

func (b *Bot) handleQuizReply(ctx context.Context, l *learner, chatID int64, reply string) {
	a, err := b.answerQuiz(l, reply)
	if errors.Is(err, study.ErrNotInProgress) {
		b.reply(chatID, "No quiz is running. Use /quiz to start one.", nil)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", l.userID).Msg("failed to answer quiz")
		return
	}
	msg := tgbotapi.NewMessage(chatID, quizFeedbackText(a))
	msg.ParseMode = tgbotapi.ModeHTML
	b.send(msg)
	b.afterAnswer(ctx, l, chatID)
}

// afterAnswer moves on to the next card or wraps up a completed session
func (b *Bot) afterAnswer(ctx context.Context, l *learner, chatID int64) {
	if l.active() {
		b.announceAchievements(l, chatID)
		b.presentCurrent(l, chatID)
		return
	}
	b.endSession(ctx, l, chatID)
}

func (b *Bot) endSession(ctx context.Context, l *learner, chatID int64) {
	if l.session == nil {
		b.reply(chatID, "No session is running.", MainMenuButtons())
		return
	}
	stats, err := b.finish(ctx, l)
	if err != nil {
		log.Error().Err(err).Str("user_id", l.userID).Msg("failed to finish session")
	}
	log.Info().Str("user_id", l.userID).Str("session_id", stats.SessionID).
		Int("answered", stats.Total).Int("correct", stats.Correct).Msg("session ended")
	b.reply(chatID, sessionSummaryText(stats), MainMenuButtons())
	b.announceAchievements(l, chatID)
}

func (b *Bot) announceAchievements(l *learner, chatID int64) {
	for _, a := range l.stats.TakeUnlocked() {
		b.reply(chatID, achievementText(a.ID), nil)
	}
}

// handleStatsCommand handles the /stats command
func (b *Bot) handleStatsCommand(ctx context.Context, l *learner, chatID int64) {
	var quizzes []models.QuizResult
	if b.stores.Quizzes != nil {
		var err error
		if quizzes, err = b.stores.Quizzes.GetLatest(ctx, l.userID, 5); err != nil {
			log.Warn().Err(err).Str("user_id", l.userID).Msg("failed to load quiz results")
		}
	}
	text := statsText(l.stats.Progress(), l.summary(b.sm2), l.stats.Goals(), quizzes, l.clock.Now())
	if l.syncWarned.Load() {
		text += "\n⏳ Some progress is still waiting to be saved."
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = createKeyboard(MainMenuButtons())
	b.send(msg)
}

func (b *Bot) handleDecksCommand(ctx context.Context, l *learner, chatID int64) {
	if b.stores.Decks == nil {
		return
	}
	decks, err := b.stores.Decks.GetAllByUserID(ctx, l.userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", l.userID).Msg("failed to load decks")
		b.reply(chatID, "❌ Could not load your decks.", nil)
		return
	}
	if len(decks) == 0 {
		b.reply(chatID, "You have no decks yet. Import one with /import.", nil)
		return
	}
	var sb strings.Builder
	sb.WriteString("📚 Your decks\n")
	for _, d := range decks {
		fmt.Fprintf(&sb, "\n• %s: %s", d.Name, cardCount(d.CardCount))
	}
	b.reply(chatID, sb.String(), MainMenuButtons())
}

// handleSettingsCommand handles the /settings command
func (b *Bot) handleSettingsCommand(l *learner, chatID int64) {
	s := l.settings
	reminders := "off"
	if s.RemindersEnabled {
		reminders = fmt.Sprintf("daily at %d:00", s.ReminderHour)
	}
	text := fmt.Sprintf("⚙️ Settings\n\nReminders: %s\nNew cards per day: %d\nReviews per day: %d\nTimezone: %s",
		reminders, s.NewCardsPerDay, s.ReviewsPerDay, s.Timezone)
	b.reply(chatID, text, settingsButtons(s))
}

func (b *Bot) handleNotificationTimeSettings(l *learner, chatID int64) {
	b.reply(chatID, "🕒 Choose when you want to be reminded:",
		choiceButtons(reminderHours, l.settings.ReminderHour, prefixReminderHour, "%d:00"))
}

// handleNotificationTimeChange updates user's notification time setting
func (b *Bot) handleNotificationTimeChange(ctx context.Context, l *learner, chatID int64, hour int) {
	if hour < 0 || hour > 23 {
		b.reply(chatID, "Please choose an hour between 0 and 23.", nil)
		return
	}
	err := b.saveSettings(ctx, l, func(s *models.Settings) {
		s.ReminderHour = hour
		s.RemindersEnabled = true
	})
	if err != nil {
		b.reply(chatID, "❌ Error saving your settings. Please try again.", nil)
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ You will be reminded at %d:00.", hour), settingsButtons(l.settings))
}

func (b *Bot) handleToggleReminders(ctx context.Context, l *learner, chatID int64) {
	err := b.saveSettings(ctx, l, func(s *models.Settings) {
		s.RemindersEnabled = !s.RemindersEnabled
	})
	if err != nil {
		b.reply(chatID, "❌ Error saving your settings. Please try again.", nil)
		return
	}
	text := "🔕 Reminders are off."
	if l.settings.RemindersEnabled {
		text = fmt.Sprintf("🔔 Reminders are on, daily at %d:00.", l.settings.ReminderHour)
	}
	b.reply(chatID, text, settingsButtons(l.settings))
}

func (b *Bot) handleNewCardsSettings(l *learner, chatID int64) {
	b.reply(chatID, "🆕 How many new cards per day?",
		choiceButtons(newCardOptions, l.settings.NewCardsPerDay, prefixNewCards, "%d cards"))
}

func (b *Bot) handleNewCardsChange(ctx context.Context, l *learner, chatID int64, n int) {
	if n < 1 || n > 500 {
		b.reply(chatID, "Please choose between 1 and 500 new cards.", nil)
		return
	}
	if err := b.saveSettings(ctx, l, func(s *models.Settings) { s.NewCardsPerDay = n }); err != nil {
		b.reply(chatID, "❌ Error saving your settings. Please try again.", nil)
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ You will get up to %s per day.", cardCount(n)), settingsButtons(l.settings))
}

// saveSettings applies update and keeps the old settings if the store fails
func (b *Bot) saveSettings(ctx context.Context, l *learner, update func(*models.Settings)) error {
	next := l.settings
	update(&next)
	if err := b.stores.Settings.Save(ctx, next); err != nil {
		log.Error().Err(err).Str("user_id", l.userID).Msg("failed to save settings")
		return err
	}
	l.settings = next
	return nil
}

// handleGoalCommand handles /goal <daily cards> <weekly cards> <daily minutes>
func (b *Bot) handleGoalCommand(l *learner, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		g := l.stats.Progress().Goals
		b.reply(chatID, fmt.Sprintf("🎯 Your goals: %d cards a day, %d cards a week, %d minutes a day.\n\n"+
			"Change them with /goal <daily cards> <weekly cards> <daily minutes>", g.DailyCards, g.WeeklyCards, g.DailyMinutes), nil)
		return
	}
	goals, err := parseGoals(fields)
	if err != nil {
		b.reply(chatID, "Usage: /goal <daily cards> <weekly cards> <daily minutes>, e.g. /goal 20 100 10", nil)
		return
	}
	l.stats.SetGoals(goals)
	b.reply(chatID, fmt.Sprintf("✅ Goals saved: %d cards a day, %d cards a week, %d minutes a day.",
		goals.DailyCards, goals.WeeklyCards, goals.DailyMinutes), nil)
}

func parseGoals(fields []string) (models.Goals, error) {
	if len(fields) != 3 {
		return models.Goals{}, fmt.Errorf("expected 3 numbers, got %d", len(fields))
	}
	var n [3]int
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil || v < 0 {
			return models.Goals{}, fmt.Errorf("invalid goal %q", f)
		}
		n[i] = v
	}
	return models.Goals{DailyCards: n[0], WeeklyCards: n[1], DailyMinutes: n[2]}, nil
}

// processImport downloads an uploaded deck and imports it
func (b *Bot) processImport(ctx context.Context, l *learner, chatID int64, doc *tgbotapi.Document) {
	l.awaitingImport = false
	if b.importer == nil {
		b.reply(chatID, "Import is not available.", nil)
		return
	}
	if l.active() {
		b.endSession(ctx, l, chatID)
	}
	if err := b.writer.Flush(ctx); err != nil {
		log.Warn().Err(err).Str("user_id", l.userID).Msg("import refused, writes pending")
		b.reply(chatID, "⏳ Your last answers are still being saved. Please send the file again in a moment.", nil)
		l.awaitingImport = true
		return
	}

	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		log.Error().Err(err).Str("user_id", l.userID).Msg("failed to resolve uploaded file")
		b.reply(chatID, "❌ Could not download the file. Please try again.", nil)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		b.reply(chatID, "❌ Could not download the file. Please try again.", nil)
		return
	}
	resp, err := b.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("user_id", l.userID).Msg("failed to download uploaded file")
		b.reply(chatID, "❌ Could not download the file. Please try again.", nil)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b.reply(chatID, fmt.Sprintf("❌ Could not download the file (HTTP %d).", resp.StatusCode), nil)
		return
	}

	result, err := b.importer.Import(ctx, l.userID, doc.FileName, resp.Body, excel.DefaultImportConfig())
	if err != nil {
		log.Warn().Err(err).Str("user_id", l.userID).Str("file", doc.FileName).Msg("import failed")
		b.reply(chatID, "❌ Import failed: "+err.Error(), nil)
		return
	}
	if err := b.reload(ctx, l); err != nil {
		log.Error().Err(err).Str("user_id", l.userID).Msg("failed to reload cards after import")
	}
	log.Info().Str("user_id", l.userID).Int("created", result.Created).Int("updated", result.Updated).Msg("deck imported")
	b.reply(chatID, importSummary(result), MainMenuButtons())
}

func importSummary(r *excel.ImportResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Import finished\n\nRows: %d\nNew cards: %d\nUpdated: %d\nSkipped: %d\nDecks: %d",
		r.TotalProcessed, r.Created, r.Updated, r.Skipped, r.DecksTouched)
	const maxErrors = 5
	for i, e := range r.Errors {
		if i == maxErrors {
			fmt.Fprintf(&sb, "\n... and %d more", len(r.Errors)-maxErrors)
			break
		}
		sb.WriteString("\n⚠️ " + e)
	}
	return sb.String()
}

// handleExportCommand sends the learner a JSON backup of their data
func (b *Bot) handleExportCommand(ctx context.Context, l *learner, chatID int64) {
	if b.backups == nil {
		b.reply(chatID, "Export is not available.", nil)
		return
	}
	if err := b.writer.Flush(ctx); err != nil {
		log.Warn().Err(err).Str("user_id", l.userID).Msg("exporting with pending writes")
	}
	var buf bytes.Buffer
	archive, err := b.backups.Export(ctx, l.userID, &buf)
	if err != nil {
		log.Error().Err(err).Str("user_id", l.userID).Msg("export failed")
		b.reply(chatID, "❌ Export failed. Please try again.", nil)
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("luxcards-%s.json", models.DateKey(l.clock.Now())),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("💾 Backup of %s", cardCount(len(archive.Cards)))
	b.send(doc)
}

// handleResetCommand handles /reset, which needs an explicit confirmation
func (b *Bot) handleResetCommand(ctx context.Context, l *learner, chatID int64, args string) {
	if strings.TrimSpace(args) != "confirm" {
		b.reply(chatID, "⚠️ This forgets the review history of all your cards and your statistics.\n"+
			"Send /reset confirm to continue.", nil)
		return
	}
	if err := b.reset(ctx, l); err != nil {
		log.Error().Err(err).Str("user_id", l.userID).Msg("reset failed")
		b.reply(chatID, "❌ Reset failed. Please try again.", nil)
		return
	}
	log.Info().Str("user_id", l.userID).Msg("progress reset")
	b.reply(chatID, "🧹 All progress was reset. Your cards are new again.", MainMenuButtons())
}

func (b *Bot) handleAdminStatsCommand(chatID int64) {
	b.mu.Lock()
	learners := len(b.learners)
	b.mu.Unlock()
	b.reply(chatID, fmt.Sprintf("👥 Learners loaded: %d\n⏳ Pending writes: %d", learners, b.writer.Pending()), nil)
}

// reply sends a plain text message with an optional keyboard
func (b *Bot) reply(chatID int64, text string, buttons [][]MenuButton) {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(buttons) > 0 {
		msg.ReplyMarkup = createKeyboard(buttons)
	}
	b.send(msg)
}

// Package bot is the Telegram front end. It maps commands and button presses
// onto study sessions, quizzes and the learner's settings.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/example/luxcards/internal/backup"
	"github.com/example/luxcards/internal/clock"
	"github.com/example/luxcards/internal/events"
	"github.com/example/luxcards/internal/excel"
	"github.com/example/luxcards/internal/progress"
	"github.com/example/luxcards/internal/spaced_repetition"
	"github.com/example/luxcards/internal/study"
	"github.com/example/luxcards/pkg/models"
)

// Sender is the part of *tgbotapi.BotAPI the handlers use
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type CardStore interface {
	LoadCards(ctx context.Context, userID string) ([]models.Card, error)
	ResetProgress(ctx context.Context, userID string, now time.Time) error
}

type DeckStore interface {
	GetAllByUserID(ctx context.Context, userID string) ([]models.Deck, error)
}

type ProgressStore interface {
	LoadProgress(ctx context.Context, userID string) (*models.UserProgress, error)
	DeleteProgress(ctx context.Context, userID string) error
}

type ActivityStore interface {
	Recent(ctx context.Context, userID string, today time.Time, days int) ([]models.DailyActivity, error)
}

type SettingsStore interface {
	Get(ctx context.Context, userID string) (models.Settings, error)
	Save(ctx context.Context, s models.Settings) error
}

type QuizStore interface {
	Save(ctx context.Context, result *models.QuizResult) error
	GetLatest(ctx context.Context, userID string, limit int) ([]models.QuizResult, error)
}

// Stores bundles the repositories the bot reads directly. Answers are
// written through the Writer instead.
type Stores struct {
	Cards    CardStore
	Decks    DeckStore
	Progress ProgressStore
	Activity ActivityStore
	Settings SettingsStore
	Quizzes  QuizStore
}

// Writer persists cards and aggregates in the background
type Writer interface {
	study.Persister
	progress.Persister
	Flush(ctx context.Context) error
	Pending() int
	Discard(userID string) int
}

type Importer interface {
	Import(ctx context.Context, userID, name string, r io.Reader, cfg excel.ImportConfig) (*excel.ImportResult, error)
}

type Exporter interface {
	Export(ctx context.Context, userID string, w io.Writer) (*backup.Archive, error)
}

// Deps are the collaborators of a Bot
type Deps struct {
	Stores   Stores
	Writer   Writer
	Bus      *events.Bus
	Importer Importer
	Backups  Exporter
	SM2      *spaced_repetition.SM2
	Clock    clock.Clock
	// Fallback for users whose timezone cannot be loaded
	Location *time.Location
	// Optional, the bot connects with the configured token when nil
	API Sender
}

// Bot represents the Telegram bot application
type Bot struct {
	api          Sender
	config       *BotConfig
	stores       Stores
	writer       Writer
	bus          *events.Bus
	importer     Importer
	backups      Exporter
	sm2          *spaced_repetition.SM2
	clock        clock.Clock
	loc          *time.Location
	http         *http.Client
	adminUserIDs map[int64]bool
	sessionOpts  []study.Option

	mu          sync.Mutex
	learners    map[string]*learner
	unsubscribe func()
}

// New creates a new bot instance
func New(cfg *BotConfig, deps Deps) (*Bot, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if deps.Writer == nil || deps.SM2 == nil || deps.Stores.Cards == nil || deps.Stores.Settings == nil {
		return nil, errors.New("bot: writer, scheduler, card and settings stores are required")
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{Location: deps.Location}
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}

	b := &Bot{
		api:          deps.API,
		config:       cfg,
		stores:       deps.Stores,
		writer:       deps.Writer,
		bus:          deps.Bus,
		importer:     deps.Importer,
		backups:      deps.Backups,
		sm2:          deps.SM2,
		clock:        deps.Clock,
		loc:          deps.Location,
		http:         &http.Client{Timeout: time.Minute},
		adminUserIDs: make(map[int64]bool, len(cfg.AdminUserIDs)),
		learners:     make(map[string]*learner),
	}
	for _, id := range cfg.AdminUserIDs {
		b.adminUserIDs[id] = true
	}
	if b.bus != nil {
		b.unsubscribe = b.bus.Subscribe(b.handleSyncEvent, events.TypeSyncFailed, events.TypeSyncRecovered)
	}
	return b, nil
}

// Start connects to Telegram and handles updates until ctx is done
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		if b.config.Token == "" {
			return errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")
		}
		botAPI, err := tgbotapi.NewBotAPI(b.config.Token)
		if err != nil {
			return fmt.Errorf("unable to create bot: %w", err)
		}
		botAPI.Debug = b.config.Debug
		b.api = botAPI
		log.Info().Str("account", botAPI.Self.UserName).Msg("authorized on telegram")
	}
	botAPI, ok := b.api.(*tgbotapi.BotAPI)
	if !ok {
		return errors.New("bot: polling needs a *tgbotapi.BotAPI")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.UpdateTimeout
	updates := botAPI.GetUpdatesChan(updateConfig)

	// handlers outlive ctx so a shutdown never cuts a store call in half
	handlerCtx := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(handlerCtx, update)
			}()
		}
	}
}

// Stop ends every running session so partial results reach the aggregates
func (b *Bot) Stop() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	b.mu.Lock()
	learners := make([]*learner, 0, len(b.learners))
	for _, l := range b.learners {
		learners = append(learners, l)
	}
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), b.config.RequestTimeout)
	defer cancel()
	for _, l := range learners {
		l.mu.Lock()
		if l.active() {
			if _, err := b.finish(ctx, l); err != nil {
				log.Warn().Err(err).Str("user_id", l.userID).Msg("failed to finish session on stop")
			}
		}
		l.detach()
		l.mu.Unlock()
	}
	log.Info().Int("learners", len(learners)).Msg("bot stopped")
}

// SendReminder implements the scheduler.Notifier interface
func (b *Bot) SendReminder(ctx context.Context, settings models.Settings, due int) error {
	if b.api == nil {
		return errors.New("bot is not connected")
	}
	msg := tgbotapi.NewMessage(settings.ChatID, reminderText(due))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "🔁 Review now", CallbackData: cbReview}},
	})
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder to %s: %w", settings.UserID, err)
	}
	log.Info().Str("user_id", settings.UserID).Int("due", due).Msg("reminder sent")
	return nil
}

// isAdmin checks if a user is an admin
func (b *Bot) isAdmin(userID int64) bool {
	return b.adminUserIDs[userID]
}

// handleSyncEvent tells learners when their answers could not be stored and
// again once everything caught up. It runs on the writer goroutine.
func (b *Bot) handleSyncEvent(e events.Event) {
	switch ev := e.(type) {
	case events.SyncFailed:
		l, ok := b.lookup(ev.UserID)
		if !ok || !l.syncWarned.CompareAndSwap(false, true) {
			return
		}
		go b.send(tgbotapi.NewMessage(l.chatID.Load(),
			"⚠️ Your progress could not be saved yet. It is kept and saving will be retried."))
	case events.SyncRecovered:
		var chats []int64
		b.mu.Lock()
		for _, l := range b.learners {
			if l.syncWarned.CompareAndSwap(true, false) {
				chats = append(chats, l.chatID.Load())
			}
		}
		b.mu.Unlock()
		for _, chatID := range chats {
			go b.send(tgbotapi.NewMessage(chatID, "✅ All your progress is saved."))
		}
	}
}

// send delivers c and logs failures
func (b *Bot) send(c tgbotapi.Chattable) (tgbotapi.Message, bool) {
	msg, err := b.api.Send(c)
	if err != nil {
		log.Error().Err(err).Msg("failed to send telegram message")
		return msg, false
	}
	return msg, true
}

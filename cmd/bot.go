package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/example/luxcards/internal/bot"
	"github.com/example/luxcards/internal/events"
	"github.com/example/luxcards/internal/persist"
	"github.com/example/luxcards/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	Long:  "Run the Telegram bot with the reminder and retry jobs until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.cfg.RequireTelegram(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		bus := events.NewBus()
		writer := persist.NewWriter(a.cards, a.progress, a.activity, bus, a.cfg.Persist)
		writer.Start()

		b, err := bot.New(botConfig(a), bot.Deps{
			Stores: bot.Stores{
				Cards:    a.cards,
				Decks:    a.decks,
				Progress: a.progress,
				Activity: a.activity,
				Settings: a.settings,
				Quizzes:  a.quizzes,
			},
			Writer:   writer,
			Bus:      bus,
			Importer: a.importer(),
			Backups:  a.backups(),
			SM2:      a.sm2,
			Clock:    a.clock,
			Location: a.cfg.Location(),
		})
		if err != nil {
			closeWriter(writer)
			return err
		}

		sched := scheduler.New(b, a.settings, a.cards, writer, a.clock, a.cfg.Scheduler)
		if err := sched.Start(); err != nil {
			closeWriter(writer)
			return fmt.Errorf("start scheduler: %w", err)
		}

		log.Info().Msg("bot started, press Ctrl+C to stop")
		runErr := b.Start(ctx)

		sched.Stop()
		b.Stop()
		closeWriter(writer)
		if runErr != nil && runErr != context.Canceled {
			return runErr
		}
		log.Info().Msg("bot stopped successfully")
		return nil
	},
}

func botConfig(a *app) *bot.BotConfig {
	cfg := bot.DefaultConfig()
	cfg.Token = a.cfg.Telegram.Token
	cfg.AdminUserIDs = a.cfg.Telegram.AdminUserIDs
	cfg.Debug = a.cfg.Telegram.Debug
	if a.cfg.Telegram.UpdateTimeout > 0 {
		cfg.UpdateTimeout = a.cfg.Telegram.UpdateTimeout
	}
	cfg.DefaultNewCardsPerDay = a.cfg.Study.NewCardsPerDay
	cfg.DefaultReviewsPerDay = a.cfg.Study.ReviewsPerDay
	cfg.DefaultTimezone = a.cfg.Timezone
	if a.cfg.Study.ActivityDays > 0 {
		cfg.ActivityDays = a.cfg.Study.ActivityDays
	}
	cfg.Achievements = a.cfg.Achievements
	return cfg
}

// closeWriter drains queued writes, anything left stays pending in the log
func closeWriter(w *persist.Writer) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := w.Close(ctx); err != nil {
		log.Error().Err(err).Int("pending", w.Pending()).Msg("writes still pending at shutdown")
	}
}

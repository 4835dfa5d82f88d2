package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/example/luxcards/internal/backup"
	"github.com/example/luxcards/internal/clock"
	"github.com/example/luxcards/internal/config"
	"github.com/example/luxcards/internal/database"
	"github.com/example/luxcards/internal/excel"
	"github.com/example/luxcards/internal/spaced_repetition"
)

// app is the wiring shared by every command
type app struct {
	cfg   *config.Config
	db    *sqlx.DB
	clock clock.Clock
	sm2   *spaced_repetition.SM2

	cards    *database.CardRepository
	decks    *database.DeckRepository
	progress *database.ProgressRepository
	activity *database.DailyActivityRepository
	settings *database.SettingsRepository
	quizzes  *database.QuizResultRepository
}

// loadConfig reads --config and --db and sets up logging
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Database.Path = p
	}
	config.SetupLogging(cfg.Log)
	return cfg, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	minEase := cfg.SRS.MinEase
	return &app{
		cfg:      cfg,
		db:       db,
		clock:    clock.Real{Location: cfg.Location()},
		sm2:      spaced_repetition.NewSM2(cfg.SRS),
		cards:    database.NewCardRepository(db, minEase),
		decks:    database.NewDeckRepository(db),
		progress: database.NewProgressRepository(db),
		activity: database.NewDailyActivityRepository(db),
		settings: database.NewSettingsRepository(db),
		quizzes:  database.NewQuizResultRepository(db),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func (a *app) importer() *excel.Importer {
	return excel.NewImporter(a.decks, a.cards)
}

func (a *app) backups() *backup.Service {
	return backup.NewService(backup.Stores{
		Decks:    a.decks,
		Cards:    a.cards,
		Progress: a.progress,
		Activity: a.activity,
		Settings: a.settings,
	}, a.cfg.SRS.MinEase)
}

// userFlag adds the required --user flag
func userFlag(cmd *cobra.Command) {
	cmd.Flags().String("user", "", "User id (the Telegram user id for bot users)")
	_ = cmd.MarkFlagRequired("user")
}

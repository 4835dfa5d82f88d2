// Package config loads the application configuration from defaults, an
// optional YAML file, a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/example/luxcards/internal/database"
	"github.com/example/luxcards/internal/persist"
	"github.com/example/luxcards/internal/progress"
	"github.com/example/luxcards/internal/scheduler"
	"github.com/example/luxcards/internal/spaced_repetition"
)

// Config represents the complete application configuration
type Config struct {
	Database     database.Config            `yaml:"database"`
	Telegram     TelegramConfig             `yaml:"telegram"`
	Log          LogConfig                  `yaml:"log"`
	Timezone     string                     `yaml:"timezone"`
	Study        StudyConfig                `yaml:"study"`
	SRS          spaced_repetition.Params   `yaml:"srs"`
	Achievements progress.AchievementConfig `yaml:"achievements"`
	Persist      persist.Config             `yaml:"persist"`
	Scheduler    scheduler.Config           `yaml:"scheduler"`
}

// TelegramConfig configures the bot front end
type TelegramConfig struct {
	Token        string  `yaml:"token"`
	AdminUserIDs []int64 `yaml:"admin_user_ids"`
	Debug        bool    `yaml:"debug"`
	// Timeout of the long-polling update request, in seconds
	UpdateTimeout int `yaml:"update_timeout"`
}

// LogConfig configures zerolog
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// StudyConfig holds the defaults of new learners
type StudyConfig struct {
	NewCardsPerDay int `yaml:"new_cards_per_day"`
	ReviewsPerDay  int `yaml:"reviews_per_day"`
	// Days of activity history loaded for streaks and goals
	ActivityDays int `yaml:"activity_days"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: database.Config{
			Type: "sqlite3",
			Path: filepath.Join("data", "luxcards.db"),
		},
		Telegram: TelegramConfig{
			UpdateTimeout: 60,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Timezone: "Europe/Luxembourg",
		Study: StudyConfig{
			NewCardsPerDay: 20,
			ReviewsPerDay:  200,
			ActivityDays:   database.DefaultActivityDays,
		},
		SRS:          spaced_repetition.DefaultParams(),
		Achievements: progress.DefaultAchievementConfig(),
		Persist:      persist.DefaultConfig(),
		Scheduler:    scheduler.DefaultConfig(),
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite3", "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for postgres")
		}
	default:
		return fmt.Errorf("database.type must be sqlite3 or postgres, got %q", c.Database.Type)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if err := c.SRS.Validate(); err != nil {
		return fmt.Errorf("srs: %w", err)
	}
	if c.Study.NewCardsPerDay < 0 || c.Study.ReviewsPerDay < 0 {
		return fmt.Errorf("study limits must not be negative")
	}
	if !validHour(c.Scheduler.NotificationStartHour) || !validHour(c.Scheduler.NotificationEndHour) {
		return fmt.Errorf("notification hours must be between 0 and 23")
	}
	if c.Scheduler.NotificationStartHour > c.Scheduler.NotificationEndHour {
		return fmt.Errorf("notification start hour %d is after end hour %d",
			c.Scheduler.NotificationStartHour, c.Scheduler.NotificationEndHour)
	}
	return nil
}

// RequireTelegram checks the settings only the bot needs
func (c *Config) RequireTelegram() error {
	if c.Telegram.Token == "" {
		return errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	return nil
}

// Location returns the configured default timezone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsAdmin reports whether a Telegram user id is listed as admin
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.Telegram.AdminUserIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// Load builds the configuration used by the commands. path may be empty.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := DefaultConfig()
	if path != "" {
		var err error
		if config, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// ApplyEnv overrides fields from environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	hour := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		h, err := strconv.Atoi(v)
		if err != nil || !validHour(h) {
			return fmt.Errorf("%s must be an hour between 0 and 23, got %q", key, v)
		}
		*dst = h
		return nil
	}

	str("DB_TYPE", &c.Database.Type)
	str("DB_PATH", &c.Database.Path)
	str("DATABASE_URL", &c.Database.URL)
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.Token)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("TIMEZONE", &c.Timezone)

	if err := hour("NOTIFICATION_START_HOUR", &c.Scheduler.NotificationStartHour); err != nil {
		return err
	}
	if err := hour("NOTIFICATION_END_HOUR", &c.Scheduler.NotificationEndHour); err != nil {
		return err
	}

	if v, ok := lookup("ADMIN_USER_IDS"); ok && v != "" {
		ids, err := parseIDs(v)
		if err != nil {
			return fmt.Errorf("ADMIN_USER_IDS: %w", err)
		}
		c.Telegram.AdminUserIDs = ids
	}
	return nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}

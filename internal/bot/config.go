package bot

import (
	"time"

	"github.com/example/luxcards/internal/progress"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	Token        string
	AdminUserIDs []int64
	Debug        bool
	// Long-polling timeout, in seconds
	UpdateTimeout int
	// Defaults for users without stored settings
	DefaultNewCardsPerDay int
	DefaultReviewsPerDay  int
	DefaultTimezone       string
	// Days of activity loaded when a learner is first seen
	ActivityDays int
	Achievements progress.AchievementConfig
	// Timeout of a single store call made while handling an update
	RequestTimeout time.Duration
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		UpdateTimeout:         60,
		DefaultNewCardsPerDay: 20,
		DefaultReviewsPerDay:  200,
		DefaultTimezone:       "Europe/Luxembourg",
		ActivityDays:          90,
		Achievements:          progress.DefaultAchievementConfig(),
		RequestTimeout:        30 * time.Second,
	}
}

// reminderHours are offered on the reminder settings keyboard
var reminderHours = []int{9, 12, 15, 18, 21}

// newCardOptions are offered on the daily new cards keyboard
var newCardOptions = []int{5, 10, 20, 30, 50}

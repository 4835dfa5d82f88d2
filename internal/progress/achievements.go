package progress

import (
	"fmt"
	"time"

	"github.com/example/luxcards/pkg/models"
)

// AchievementConfig holds the gamification thresholds
type AchievementConfig struct {
	CardMilestones         []int         `yaml:"card_milestones"`
	StreakMilestones       []int         `yaml:"streak_milestones"`
	SessionMilestones      []int         `yaml:"session_milestones"`
	PerfectSessionMinCards int           `yaml:"perfect_session_min_cards"`
	SpeedCards             int           `yaml:"speed_cards"`
	SpeedWindow            time.Duration `yaml:"speed_window"`
}

// DefaultAchievementConfig returns the stock badge thresholds
func DefaultAchievementConfig() AchievementConfig {
	return AchievementConfig{
		CardMilestones:         []int{1, 100, 500, 1000},
		StreakMilestones:       []int{3, 7, 30},
		SessionMilestones:      []int{10, 50},
		PerfectSessionMinCards: 10,
		SpeedCards:             20,
		SpeedWindow:            time.Minute,
	}
}

const (
	AchievementPerfectSession = "perfect_session"
	AchievementSpeed          = "speed_learner"
)

func cardsAchievement(n int) string    { return fmt.Sprintf("cards_%d", n) }
func streakAchievement(n int) string   { return fmt.Sprintf("streak_%d", n) }
func sessionsAchievement(n int) string { return fmt.Sprintf("sessions_%d", n) }

// Unlock appends id to p unless it is already there. It reports whether
// anything was added.
func Unlock(p *models.UserProgress, id string, at time.Time) bool {
	if p.HasAchievement(id) {
		return false
	}
	p.Achievements = append(p.Achievements, models.Achievement{ID: id, UnlockedAt: at})
	return true
}

// milestoneAchievements returns the ids of every reached milestone
func (c AchievementConfig) milestoneAchievements(p *models.UserProgress) []string {
	var ids []string
	for _, n := range c.CardMilestones {
		if p.CardsStudied >= n {
			ids = append(ids, cardsAchievement(n))
		}
	}
	for _, n := range c.StreakMilestones {
		if p.CurrentStreak >= n {
			ids = append(ids, streakAchievement(n))
		}
	}
	for _, n := range c.SessionMilestones {
		if p.TotalSessions >= n {
			ids = append(ids, sessionsAchievement(n))
		}
	}
	return ids
}

// sessionAchievements returns ids earned by a single session
func (c AchievementConfig) sessionAchievements(total, correct int, results []models.StudyResult) []string {
	var ids []string
	if c.PerfectSessionMinCards > 0 && total >= c.PerfectSessionMinCards && correct == total {
		ids = append(ids, AchievementPerfectSession)
	}
	if c.SpeedCards > 0 && fastRun(results, c.SpeedCards, c.SpeedWindow) {
		ids = append(ids, AchievementSpeed)
	}
	return ids
}

// fastRun reports whether any n consecutive answers fall within window
func fastRun(results []models.StudyResult, n int, window time.Duration) bool {
	if len(results) < n {
		return false
	}
	for i := n - 1; i < len(results); i++ {
		if results[i].Timestamp.Sub(results[i-n+1].Timestamp) <= window {
			return true
		}
	}
	return false
}

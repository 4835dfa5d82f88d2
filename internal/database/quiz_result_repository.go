package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/luxcards/pkg/models"
)

// QuizResultRepository stores finished quizzes
type QuizResultRepository struct {
	db *sqlx.DB
}

// NewQuizResultRepository creates a new repository instance
func NewQuizResultRepository(db *sqlx.DB) *QuizResultRepository {
	return &QuizResultRepository{db: db}
}

// Save records a quiz result
func (r *QuizResultRepository) Save(ctx context.Context, result *models.QuizResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	row := *result
	row.TakenAt = row.TakenAt.UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO quiz_results (id, user_id, quiz_type, total_cards, correct_cards, duration, taken_at)
		VALUES (:id, :user_id, :quiz_type, :total_cards, :correct_cards, :duration, :taken_at)
	`, row)
	if err != nil {
		return fmt.Errorf("failed to save quiz result: %w", err)
	}
	return nil
}

// GetLatest returns the most recent results of a user, newest first
func (r *QuizResultRepository) GetLatest(ctx context.Context, userID string, limit int) ([]models.QuizResult, error) {
	if limit <= 0 {
		limit = 10
	}
	results := []models.QuizResult{}
	query := `
		SELECT id, user_id, quiz_type, total_cards, correct_cards, duration, taken_at
		FROM quiz_results
		WHERE user_id = ?
		ORDER BY taken_at DESC
		LIMIT ?
	`
	if err := r.db.SelectContext(ctx, &results, r.db.Rebind(query), userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get quiz results: %w", err)
	}
	return results, nil
}

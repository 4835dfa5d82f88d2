package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/example/luxcards/pkg/models"
)

const cardColumns = `id, user_id, deck_id, front, back, pronunciation, notes, category, difficulty, position,
	ease_factor, interval_days, repetition, next_review, review_count, success_count, last_reviewed,
	created_at, updated_at`

const upsertCardQuery = `
	INSERT INTO cards (` + cardColumns + `)
	VALUES (:id, :user_id, :deck_id, :front, :back, :pronunciation, :notes, :category, :difficulty, :position,
		:ease_factor, :interval_days, :repetition, :next_review, :review_count, :success_count, :last_reviewed,
		:created_at, :updated_at)
	ON CONFLICT (id) DO UPDATE SET
		deck_id = excluded.deck_id,
		front = excluded.front,
		back = excluded.back,
		pronunciation = excluded.pronunciation,
		notes = excluded.notes,
		category = excluded.category,
		difficulty = excluded.difficulty,
		position = excluded.position,
		ease_factor = excluded.ease_factor,
		interval_days = excluded.interval_days,
		repetition = excluded.repetition,
		next_review = excluded.next_review,
		review_count = excluded.review_count,
		success_count = excluded.success_count,
		last_reviewed = excluded.last_reviewed,
		updated_at = excluded.updated_at
`

// storedCard moves every timestamp of c to UTC. Postgres TIMESTAMP columns
// drop the zone offset, so all rows are written on the same basis.
func storedCard(c models.Card) models.Card {
	c.NextReview = c.NextReview.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	if c.LastReviewed != nil {
		reviewed := c.LastReviewed.UTC()
		c.LastReviewed = &reviewed
	}
	return c
}

// CardRepository handles database operations for cards
type CardRepository struct {
	db      *sqlx.DB
	minEase float64
	now     func() time.Time
}

// NewCardRepository creates a new repository instance. Loaded cards with an
// ease below minEase are repaired on the way out.
func NewCardRepository(db *sqlx.DB, minEase float64) *CardRepository {
	return &CardRepository{db: db, minEase: minEase, now: time.Now}
}

// LoadCards returns every card of a user in deck order
func (r *CardRepository) LoadCards(ctx context.Context, userID string) ([]models.Card, error) {
	return r.selectCards(ctx, `SELECT `+cardColumns+` FROM cards WHERE user_id = ? ORDER BY deck_id, position, created_at`, userID)
}

// LoadDeck returns the cards of one deck in order
func (r *CardRepository) LoadDeck(ctx context.Context, userID, deckID string) ([]models.Card, error) {
	return r.selectCards(ctx, `SELECT `+cardColumns+` FROM cards WHERE user_id = ? AND deck_id = ? ORDER BY position, created_at`, userID, deckID)
}

// GetCard returns a single card
func (r *CardRepository) GetCard(ctx context.Context, userID, cardID string) (models.Card, error) {
	cards, err := r.selectCards(ctx, `SELECT `+cardColumns+` FROM cards WHERE user_id = ? AND id = ?`, userID, cardID)
	if err != nil {
		return models.Card{}, err
	}
	if len(cards) == 0 {
		return models.Card{}, ErrNotFound
	}
	return cards[0], nil
}

func (r *CardRepository) selectCards(ctx context.Context, query string, args ...interface{}) ([]models.Card, error) {
	cards := []models.Card{}
	if err := r.db.SelectContext(ctx, &cards, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}

	now := r.now()
	for i := range cards {
		if cards[i].Normalize(now, r.minEase) {
			log.Warn().Str("card_id", cards[i].ID).Str("user_id", cards[i].UserID).
				Msg("stored card had invalid scheduling state, repaired")
		}
	}
	return cards, nil
}

// SaveCard inserts or updates a card
func (r *CardRepository) SaveCard(ctx context.Context, card models.Card) error {
	if _, err := r.db.NamedExecContext(ctx, upsertCardQuery, storedCard(card)); err != nil {
		return fmt.Errorf("failed to save card %s: %w", card.ID, err)
	}
	return nil
}

// SaveCards writes cards in transactions of at most MaxBatchSize rows
func (r *CardRepository) SaveCards(ctx context.Context, cards []models.Card) error {
	for start := 0; start < len(cards); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(cards))
		if err := r.saveBatch(ctx, cards[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *CardRepository) saveBatch(ctx context.Context, cards []models.Card) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, upsertCardQuery)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare card upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range cards {
		if _, err := stmt.ExecContext(ctx, storedCard(c)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save card %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteCard removes a card
func (r *CardRepository) DeleteCard(ctx context.Context, userID, cardID string) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM cards WHERE id = ? AND user_id = ?`), cardID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetProgress puts every card of a user back into the never-reviewed state
func (r *CardRepository) ResetProgress(ctx context.Context, userID string, now time.Time) error {
	query := `
		UPDATE cards
		SET ease_factor = ?,
			interval_days = 0,
			repetition = 0,
			next_review = ?,
			review_count = 0,
			success_count = 0,
			last_reviewed = NULL,
			updated_at = ?
		WHERE user_id = ?
	`
	now = now.UTC()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), models.DefaultEaseFactor, now, now, userID)
	if err != nil {
		return fmt.Errorf("failed to reset cards: %w", err)
	}
	return nil
}

// CountCards returns how many cards a user owns
func (r *CardRepository) CountCards(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM cards WHERE user_id = ?`), userID); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

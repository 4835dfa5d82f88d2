package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/luxcards/pkg/models"
)

const deckSelect = `
	SELECT d.id, d.user_id, d.name, d.description, d.created_at, d.updated_at,
		(SELECT COUNT(*) FROM cards c WHERE c.deck_id = d.id) AS card_count
	FROM decks d
`

// DeckRepository handles database operations for decks
type DeckRepository struct {
	db *sqlx.DB
}

// NewDeckRepository creates a new repository instance
func NewDeckRepository(db *sqlx.DB) *DeckRepository {
	return &DeckRepository{db: db}
}

// GetAllByUserID returns all decks for a given user
func (r *DeckRepository) GetAllByUserID(ctx context.Context, userID string) ([]models.Deck, error) {
	decks := []models.Deck{}
	query := deckSelect + ` WHERE d.user_id = ? ORDER BY d.name`
	if err := r.db.SelectContext(ctx, &decks, r.db.Rebind(query), userID); err != nil {
		return nil, fmt.Errorf("failed to get decks: %w", err)
	}
	return decks, nil
}

// GetByID returns a deck by ID
func (r *DeckRepository) GetByID(ctx context.Context, userID, deckID string) (*models.Deck, error) {
	return r.getOne(ctx, deckSelect+` WHERE d.id = ? AND d.user_id = ?`, deckID, userID)
}

// GetByName returns a deck by its name
func (r *DeckRepository) GetByName(ctx context.Context, userID, name string) (*models.Deck, error) {
	return r.getOne(ctx, deckSelect+` WHERE d.name = ? AND d.user_id = ?`, name, userID)
}

func (r *DeckRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Deck, error) {
	var deck models.Deck
	err := r.db.GetContext(ctx, &deck, r.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck: %w", err)
	}
	return &deck, nil
}

// Create creates a new deck
func (r *DeckRepository) Create(ctx context.Context, deck *models.Deck) error {
	now := time.Now().UTC()
	if deck.ID == "" {
		deck.ID = uuid.NewString()
	}
	deck.CreatedAt = now
	deck.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO decks (id, user_id, name, description, created_at, updated_at)
		VALUES (:id, :user_id, :name, :description, :created_at, :updated_at)
	`, deck)
	if err != nil {
		return fmt.Errorf("failed to create deck: %w", err)
	}
	return nil
}

// GetOrCreate returns the deck called name, creating it when missing
func (r *DeckRepository) GetOrCreate(ctx context.Context, userID, name string) (*models.Deck, error) {
	deck, err := r.GetByName(ctx, userID, name)
	if err == nil {
		return deck, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	deck = &models.Deck{UserID: userID, Name: name}
	if err := r.Create(ctx, deck); err != nil {
		return nil, err
	}
	return deck, nil
}

// Update renames or redescribes a deck
func (r *DeckRepository) Update(ctx context.Context, deck *models.Deck) error {
	deck.UpdatedAt = time.Now().UTC()
	result, err := r.db.NamedExecContext(ctx, `
		UPDATE decks
		SET name = :name,
			description = :description,
			updated_at = :updated_at
		WHERE id = :id AND user_id = :user_id
	`, deck)
	if err != nil {
		return fmt.Errorf("failed to update deck: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a deck together with its cards
func (r *DeckRepository) Delete(ctx context.Context, userID, deckID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind("DELETE FROM cards WHERE user_id = ? AND deck_id = ?"), userID, deckID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete cards: %w", err)
	}

	result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM decks WHERE id = ? AND user_id = ?"), deckID, userID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete deck: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		tx.Rollback()
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

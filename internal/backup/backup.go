// Package backup exports a learner's data to JSON and restores it.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/example/luxcards/internal/database"
	"github.com/example/luxcards/pkg/models"
)

// FormatVersion is written into every archive
const FormatVersion = 1

// ErrUnsupportedVersion is returned for archives written by a newer release
var ErrUnsupportedVersion = errors.New("unsupported backup version")

// Archive is the on-disk layout of a backup
type Archive struct {
	Version    int                    `json:"version"`
	ExportedAt time.Time              `json:"exported_at"`
	UserID     string                 `json:"user_id"`
	Settings   *models.Settings       `json:"settings,omitempty"`
	Decks      []models.Deck          `json:"decks"`
	Cards      []models.Card          `json:"cards"`
	Progress   *models.UserProgress   `json:"progress,omitempty"`
	Activity   []models.DailyActivity `json:"activity"`
}

type DeckStore interface {
	GetAllByUserID(ctx context.Context, userID string) ([]models.Deck, error)
	GetOrCreate(ctx context.Context, userID, name string) (*models.Deck, error)
}

type CardStore interface {
	LoadCards(ctx context.Context, userID string) ([]models.Card, error)
	SaveCards(ctx context.Context, cards []models.Card) error
}

type ProgressStore interface {
	LoadProgress(ctx context.Context, userID string) (*models.UserProgress, error)
	SaveProgress(ctx context.Context, p *models.UserProgress) error
}

type ActivityStore interface {
	Range(ctx context.Context, userID, from, to string) ([]models.DailyActivity, error)
	Save(ctx context.Context, a models.DailyActivity) error
}

type SettingsStore interface {
	Get(ctx context.Context, userID string) (models.Settings, error)
	Save(ctx context.Context, s models.Settings) error
}

// Stores bundles the repositories a backup touches
type Stores struct {
	Decks    DeckStore
	Cards    CardStore
	Progress ProgressStore
	Activity ActivityStore
	Settings SettingsStore
}

// Service exports and restores archives
type Service struct {
	stores  Stores
	minEase float64
	now     func() time.Time
}

// NewService creates a backup service. minEase is used to repair restored cards.
func NewService(stores Stores, minEase float64) *Service {
	return &Service{stores: stores, minEase: minEase, now: func() time.Time { return time.Now().UTC() }}
}

// Export writes all data of userID to w as indented JSON
func (s *Service) Export(ctx context.Context, userID string, w io.Writer) (*Archive, error) {
	a := &Archive{
		Version:    FormatVersion,
		ExportedAt: s.now(),
		UserID:     userID,
	}

	var err error
	if a.Decks, err = s.stores.Decks.GetAllByUserID(ctx, userID); err != nil {
		return nil, err
	}
	if a.Cards, err = s.stores.Cards.LoadCards(ctx, userID); err != nil {
		return nil, err
	}
	if a.Progress, err = s.stores.Progress.LoadProgress(ctx, userID); err != nil {
		return nil, err
	}
	// date keys sort lexically, so this range covers every stored day
	if a.Activity, err = s.stores.Activity.Range(ctx, userID, "0000-01-01", "9999-12-31"); err != nil {
		return nil, err
	}
	settings, err := s.stores.Settings.Get(ctx, userID)
	switch {
	case err == nil:
		a.Settings = &settings
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}
	log.Info().Str("user_id", userID).Int("cards", len(a.Cards)).Msg("backup exported")
	return a, nil
}

// RestoreResult counts what a restore wrote
type RestoreResult struct {
	Decks    int
	Cards    int
	Repaired int
	Activity int
}

// Restore reads an archive and writes it for userID, which may differ from
// the user it was exported from. Restoring into the same user replaces rows
// with the same ids.
func (s *Service) Restore(ctx context.Context, userID string, r io.Reader) (*RestoreResult, error) {
	var a Archive
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	if a.Version < 1 || a.Version > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, a.Version)
	}

	res := &RestoreResult{}
	now := s.now()

	// decks are matched by name; card deck ids follow the restored deck
	deckIDs := make(map[string]string, len(a.Decks))
	for _, d := range a.Decks {
		deck, err := s.stores.Decks.GetOrCreate(ctx, userID, d.Name)
		if err != nil {
			return nil, err
		}
		deckIDs[d.ID] = deck.ID
		res.Decks++
	}

	// card ids are global, a copy into another account needs its own
	fresh := a.UserID != userID
	cards := make([]models.Card, len(a.Cards))
	for i, c := range a.Cards {
		if fresh {
			c.ID = uuid.NewString()
		}
		c.UserID = userID
		if id, ok := deckIDs[c.DeckID]; ok {
			c.DeckID = id
		}
		if c.Normalize(now, s.minEase) {
			res.Repaired++
		}
		cards[i] = c
	}
	if err := s.stores.Cards.SaveCards(ctx, cards); err != nil {
		return nil, err
	}
	res.Cards = len(cards)

	if a.Progress != nil {
		p := a.Progress.Clone()
		p.UserID = userID
		p.Accuracy = min(100, max(0, p.Accuracy))
		if err := s.stores.Progress.SaveProgress(ctx, p); err != nil {
			return nil, err
		}
	}

	for _, day := range a.Activity {
		day.UserID = userID
		if err := s.stores.Activity.Save(ctx, day); err != nil {
			return nil, err
		}
		res.Activity++
	}

	if a.Settings != nil {
		settings := *a.Settings
		settings.UserID = userID
		if err := s.stores.Settings.Save(ctx, settings); err != nil {
			return nil, err
		}
	}

	if res.Repaired > 0 {
		log.Warn().Str("user_id", userID).Int("repaired", res.Repaired).Msg("backup contained invalid cards")
	}
	log.Info().Str("user_id", userID).Int("cards", res.Cards).Int("decks", res.Decks).Msg("backup restored")
	return res, nil
}

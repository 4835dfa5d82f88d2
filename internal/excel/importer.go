// Package excel imports decks of cards from .xlsx and .csv files.
package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/example/luxcards/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FrontColumn         string // Luxembourgish word or phrase
	BackColumn          string // Translation
	PronunciationColumn string
	CategoryColumn      string
	DifficultyColumn    string // A1, A2, B1 or B2
	NotesColumn         string
	DeckColumn          string // Overrides DefaultDeck when set on a row
	DefaultDeck         string
	SheetName           string // Excel only
	StartRow            int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		FrontColumn:         "A",
		BackColumn:          "B",
		PronunciationColumn: "C",
		CategoryColumn:      "D",
		DifficultyColumn:    "E",
		NotesColumn:         "F",
		DeckColumn:          "G",
		DefaultDeck:         "Imported",
		SheetName:           "Sheet1",
		StartRow:            2, // skip header
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	DecksTouched   int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

type DeckStore interface {
	GetOrCreate(ctx context.Context, userID, name string) (*models.Deck, error)
}

type CardStore interface {
	LoadDeck(ctx context.Context, userID, deckID string) ([]models.Card, error)
	SaveCards(ctx context.Context, cards []models.Card) error
}

// Importer turns spreadsheet rows into cards
type Importer struct {
	decks DeckStore
	cards CardStore
	now   func() time.Time
}

// NewImporter creates an importer writing through the given stores
func NewImporter(decks DeckStore, cards CardStore) *Importer {
	return &Importer{decks: decks, cards: cards, now: func() time.Time { return time.Now().UTC() }}
}

// ImportFile imports cards from an Excel or CSV file
func (im *Importer) ImportFile(ctx context.Context, userID, path string, cfg ImportConfig) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return im.Import(ctx, userID, filepath.Base(path), f, cfg)
}

// Import reads name's content from r. The format follows the file extension.
func (im *Importer) Import(ctx context.Context, userID, name string, r io.Reader, cfg ImportConfig) (*ImportResult, error) {
	var (
		rows []row
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		rows, err = readCSV(r, cfg)
	case ".xlsx", ".xlsm":
		rows, err = readExcel(r, cfg)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(name))
	}
	if err != nil {
		return nil, err
	}
	return im.store(ctx, userID, rows, cfg)
}

// row is one parsed spreadsheet line
type row struct {
	num           int
	front         string
	back          string
	pronunciation string
	category      string
	difficulty    string
	notes         string
	deck          string
}

func readExcel(r io.Reader, cfg ImportConfig) ([]row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := cfg.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	rows := make([]row, 0, len(cells))
	for i, cols := range cells {
		if i < cfg.StartRow-1 {
			continue
		}
		rows = append(rows, fromColumns(cols, cfg, i+1))
	}
	return rows, nil
}

// readCSV also understands section rows: a line with only the first column
// set becomes the category of the lines that follow.
func readCSV(r io.Reader, cfg ImportConfig) ([]row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		rows    []row
		section string
		rowNum  int
	)
	for {
		cols, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rowNum++
		if rowNum < cfg.StartRow {
			continue
		}

		if isSectionRow(cols) {
			section = strings.Trim(strings.TrimSpace(cols[0]), "\"")
			continue
		}

		parsed := fromColumns(cols, cfg, rowNum)
		if parsed.category == "" {
			parsed.category = section
		}
		rows = append(rows, parsed)
	}
	return rows, nil
}

func isSectionRow(cols []string) bool {
	if len(cols) == 0 || strings.TrimSpace(cols[0]) == "" {
		return false
	}
	for _, c := range cols[1:] {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func fromColumns(cols []string, cfg ImportConfig, num int) row {
	cell := func(column string) string {
		if column == "" {
			return ""
		}
		if idx := columnToIndex(column); idx >= 0 && idx < len(cols) {
			return strings.TrimSpace(cols[idx])
		}
		return ""
	}
	return row{
		num:           num,
		front:         cleanWord(cell(cfg.FrontColumn)),
		back:          cleanWord(cell(cfg.BackColumn)),
		pronunciation: cell(cfg.PronunciationColumn),
		category:      cell(cfg.CategoryColumn),
		difficulty:    strings.ToUpper(cell(cfg.DifficultyColumn)),
		notes:         cell(cfg.NotesColumn),
		deck:          cell(cfg.DeckColumn),
	}
}

// deckBatch collects the cards of one deck during an import
type deckBatch struct {
	deck    *models.Deck
	byFront map[string]int // lower-cased front -> index in cards
	cards   []models.Card
	dirty   map[int]bool
}

func (im *Importer) store(ctx context.Context, userID string, rows []row, cfg ImportConfig) (*ImportResult, error) {
	result := &ImportResult{Errors: make([]string, 0)}
	batches := map[string]*deckBatch{}
	var order []string

	for _, r := range rows {
		result.TotalProcessed++
		if r.front == "" || r.back == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: front and back are required", r.num))
			continue
		}

		deckName := r.deck
		if deckName == "" {
			deckName = cfg.DefaultDeck
		}
		key := strings.ToLower(deckName)
		b, ok := batches[key]
		if !ok {
			var err error
			b, err = im.loadBatch(ctx, userID, deckName)
			if err != nil {
				return nil, err
			}
			batches[key] = b
			order = append(order, key)
		}

		if im.apply(b, userID, r) {
			result.Created++
		} else {
			result.Updated++
		}
	}

	for _, key := range order {
		b := batches[key]
		changed := make([]models.Card, 0, len(b.dirty))
		for i := range b.cards {
			if b.dirty[i] {
				changed = append(changed, b.cards[i])
			}
		}
		if len(changed) == 0 {
			continue
		}
		if err := im.cards.SaveCards(ctx, changed); err != nil {
			return nil, fmt.Errorf("failed to save deck %s: %w", b.deck.Name, err)
		}
		result.DecksTouched++
	}

	log.Info().Str("user_id", userID).Int("created", result.Created).Int("updated", result.Updated).
		Int("skipped", result.Skipped).Msg("import finished")
	return result, nil
}

func (im *Importer) loadBatch(ctx context.Context, userID, deckName string) (*deckBatch, error) {
	deck, err := im.decks.GetOrCreate(ctx, userID, deckName)
	if err != nil {
		return nil, fmt.Errorf("failed to process deck %s: %w", deckName, err)
	}
	existing, err := im.cards.LoadDeck(ctx, userID, deck.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deck %s: %w", deckName, err)
	}
	b := &deckBatch{
		deck:    deck,
		byFront: make(map[string]int, len(existing)),
		cards:   existing,
		dirty:   map[int]bool{},
	}
	for i, c := range existing {
		b.byFront[strings.ToLower(c.Front)] = i
	}
	return b, nil
}

// apply creates or updates the card for r. Review state of existing cards is kept.
func (im *Importer) apply(b *deckBatch, userID string, r row) (created bool) {
	now := im.now()
	idx, exists := b.byFront[strings.ToLower(r.front)]
	if !exists {
		c := models.NewCard(userID, b.deck.ID, r.front, r.back, now)
		c.Position = len(b.cards)
		b.cards = append(b.cards, c)
		idx = len(b.cards) - 1
		b.byFront[strings.ToLower(r.front)] = idx
	}

	c := &b.cards[idx]
	c.Back = r.back
	c.Pronunciation = r.pronunciation
	c.Category = r.category
	c.Notes = r.notes
	if d := models.Difficulty(r.difficulty); d.Valid() {
		c.Difficulty = d
	}
	c.UpdatedAt = now
	b.dirty[idx] = true
	return !exists
}

// cleanWord drops trailing grammar hints such as "goen (ass gaang)"
func cleanWord(word string) string {
	if i := strings.Index(word, "("); i > 0 {
		return strings.TrimSpace(word[:i])
	}
	return strings.TrimSpace(word)
}

// columnToIndex converts an Excel column letter to a zero-based index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}

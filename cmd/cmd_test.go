package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deckCSV = `Luxembourgish,English,Pronunciation,Category,Level,Notes,Deck
Moien,Hello,,greetings,A1,,Basics
Äddi,Goodbye,,greetings,A1,,Basics
Merci,Thank you,,greetings,A1,,Basics
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setup(t *testing.T) (db, dir string) {
	t.Helper()
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DB_TYPE", "sqlite3")
	dir = t.TempDir()
	return filepath.Join(dir, "luxcards.db"), dir
}

func TestImportStatsAndDue(t *testing.T) {
	db, dir := setup(t)
	file := filepath.Join(dir, "deck.csv")
	require.NoError(t, os.WriteFile(file, []byte(deckCSV), 0o644))

	out, err := run(t, "import", file, "--db", db, "--user", "alice", "--deck", "Misc")
	require.NoError(t, err)
	assert.Contains(t, out, "3 new")

	out, err = run(t, "stats", "--db", db, "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "3 total, 0 due, 3 new, 0 mastered")

	out, err = run(t, "due", "--db", db, "--user", "alice", "--mode", "new")
	require.NoError(t, err)
	assert.Contains(t, out, "Moien")
	assert.Contains(t, out, "Merci")

	out, err = run(t, "due", "--db", db, "--user", "alice", "--mode", "review")
	require.NoError(t, err)
	assert.Contains(t, out, "No cards available.")
}

func TestExportRestore(t *testing.T) {
	db, dir := setup(t)
	file := filepath.Join(dir, "deck.csv")
	require.NoError(t, os.WriteFile(file, []byte(deckCSV), 0o644))
	_, err := run(t, "import", file, "--db", db, "--user", "alice", "--deck", "Misc")
	require.NoError(t, err)

	backup := filepath.Join(dir, "alice.json")
	out, err := run(t, "export", "--db", db, "--user", "alice", "--out", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 decks and 3 cards")

	out, err = run(t, "restore", backup, "--db", db, "--user", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "Restored 1 decks, 3 cards")

	out, err = run(t, "stats", "--db", db, "--user", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "3 total")
}

func TestResetNeedsConfirmation(t *testing.T) {
	db, _ := setup(t)
	_, err := run(t, "reset", "--db", db, "--user", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	out, err := run(t, "reset", "--db", db, "--user", "alice", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Progress of user alice was reset")
}

func TestBotNeedsToken(t *testing.T) {
	db, _ := setup(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	_, err := run(t, "bot", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
}

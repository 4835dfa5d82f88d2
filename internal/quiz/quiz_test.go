package quiz

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/luxcards/internal/clock"
	"github.com/example/luxcards/internal/spaced_repetition"
	"github.com/example/luxcards/internal/study"
	"github.com/example/luxcards/pkg/models"
)

var start = time.Date(2025, 6, 5, 18, 0, 0, 0, time.UTC)

func card(front, back, category string) models.Card {
	c := models.NewCard("u1", "d1", front, back, start)
	c.Category = category
	return c
}

func collection() []models.Card {
	return []models.Card{
		card("Moien", "Hello", "greetings"),
		card("Äddi", "Goodbye", "greetings"),
		card("Merci", "Thank you", "courtesy"),
		card("Wéi geet et?", "How are you?", "greetings"),
		card("Brout", "Bread", "food"),
		card("Kéis", "Cheese", "food"),
	}
}

func newQuiz(t *testing.T, mode models.StudyMode, cards, pool []models.Card) (*Quiz, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(start)
	s := study.NewSession("u1", spaced_repetition.NewSM2(spaced_repetition.DefaultParams()), clk, nil, nil,
		study.WithShuffle(func([]models.Card) {}))
	q, err := New(s, mode, cards, pool, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	return q, clk
}

type savedResults struct {
	results []models.QuizResult
}

func (s *savedResults) Save(_ context.Context, r *models.QuizResult) error {
	r.ID = "quiz-1"
	s.results = append(s.results, *r)
	return nil
}

func TestNew_RejectsStudyModes(t *testing.T) {
	s := study.NewSession("u1", spaced_repetition.NewSM2(spaced_repetition.DefaultParams()), clock.NewManual(start), nil, nil)
	_, err := New(s, models.ModeReview, collection(), nil, nil)
	assert.ErrorIs(t, err, ErrNotQuizMode)

	_, err = New(s, models.ModeQuizTypeIn, nil, nil, nil)
	assert.ErrorIs(t, err, study.ErrNoCards)
}

func TestMultipleChoice_OptionsPreferSameCategory(t *testing.T) {
	pool := collection()
	q, _ := newQuiz(t, models.ModeQuizMultipleChoice, pool[:1], pool)

	question, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, "Moien", question.Prompt)
	require.Len(t, question.Options, DefaultOptions)
	assert.Equal(t, "Hello", question.Options[question.CorrectIndex])
	assert.Contains(t, question.Options, "Goodbye")
	assert.Contains(t, question.Options, "How are you?")

	again, _ := q.Current()
	assert.Equal(t, question.Options, again.Options)
}

func TestMultipleChoice_SmallPool(t *testing.T) {
	pool := collection()[:2]
	q, _ := newQuiz(t, models.ModeQuizMultipleChoice, pool[:1], pool)
	question, _ := q.Current()
	assert.Len(t, question.Options, 2)
}

func TestMultipleChoice_AnswerByNumberOrText(t *testing.T) {
	pool := collection()
	q, clk := newQuiz(t, models.ModeQuizMultipleChoice, pool[:2], pool)

	question, _ := q.Current()
	clk.Advance(3 * time.Second)
	ans, err := q.Answer(string(rune('1' + question.CorrectIndex)))
	require.NoError(t, err)
	assert.True(t, ans.Correct)
	assert.Equal(t, models.QualityGood, ans.Result.Quality)
	assert.Equal(t, 1, ans.Card.Repetition)

	question, _ = q.Current()
	wrong := (question.CorrectIndex + 1) % len(question.Options)
	ans, err = q.Answer(question.Options[wrong])
	require.NoError(t, err)
	assert.False(t, ans.Correct)
	assert.Equal(t, "Goodbye", ans.Expected)
	assert.Equal(t, models.QualityAgain, ans.Result.Quality)

	_, ok := q.Current()
	assert.False(t, ok)
	_, err = q.Answer("1")
	assert.ErrorIs(t, err, study.ErrNotInProgress)
}

func TestTypeIn_IgnoresAccentsAndPunctuation(t *testing.T) {
	pool := collection()
	q, clk := newQuiz(t, models.ModeQuizTypeIn, []models.Card{pool[3], pool[1]}, pool)

	question, _ := q.Current()
	assert.Equal(t, "How are you?", question.Prompt)
	assert.Empty(t, question.Options)

	ans, err := q.Answer("  wei geet ET ")
	require.NoError(t, err)
	assert.True(t, ans.Correct)

	clk.Advance(time.Minute)
	ans, err = q.Answer("Moien")
	require.NoError(t, err)
	assert.False(t, ans.Correct)
	assert.Equal(t, "Äddi", ans.Expected)

	store := &savedResults{}
	result, err := q.Finish(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, models.ModeQuizTypeIn, result.QuizType)
	assert.Equal(t, 2, result.TotalCards)
	assert.Equal(t, 1, result.CorrectCards)
	assert.Equal(t, time.Minute, result.Duration)
	require.Len(t, store.results, 1)
	assert.Equal(t, "quiz-1", store.results[0].ID)
}

func TestFinish_EarlyWithoutAnswersSavesNothing(t *testing.T) {
	pool := collection()
	q, _ := newQuiz(t, models.ModeQuizTypeIn, pool, pool)
	store := &savedResults{}
	_, err := q.Finish(context.Background(), store)
	require.NoError(t, err)
	assert.Empty(t, store.results)
	assert.Equal(t, study.StateCompleted, q.Session().State())
}

func TestMatches(t *testing.T) {
	tests := []struct {
		answer, expected string
		want             bool
	}{
		{"moien", "Moien", true},
		{"addi", "Äddi", true},
		{"Wéi geet et", "Wéi geet et?", true},
		{"merci villmools", "Merci villmools", true},
		{"merci", "Merci villmools", false},
		{"", "Moien", false},
		{"moien", "Moien / Salut", true},
		{"salut", "Moien / Salut", true},
		{"gudde-moien", "Gudde Moien", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Matches(tt.answer, tt.expected), "%q vs %q", tt.answer, tt.expected)
	}
}

// Package quiz runs multiple-choice and type-in quizzes on top of a study
// session. A correct answer is graded "good", a wrong one "again".
package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/example/luxcards/internal/study"
	"github.com/example/luxcards/pkg/models"
)

// ErrNotQuizMode is returned when a quiz is started with a non-quiz mode
var ErrNotQuizMode = errors.New("not a quiz mode")

// DefaultOptions is the number of choices of a multiple-choice question
const DefaultOptions = 4

// Question is what the learner sees for the current card
type Question struct {
	Card         models.Card
	Type         models.StudyMode
	Prompt       string
	Options      []string // multiple choice only
	CorrectIndex int      // index of the right option
}

// Answer is the graded outcome of one question
type Answer struct {
	Correct  bool
	Expected string
	Card     models.Card // scheduling state after grading
	Result   models.StudyResult
}

type ResultStore interface {
	Save(ctx context.Context, result *models.QuizResult) error
}

// Quiz wraps a session and generates a question for each of its cards
type Quiz struct {
	session *study.Session
	pool    []models.Card
	rnd     *rand.Rand
	options int

	question *Question
}

// New starts session in mode with cards. pool supplies the distractors for
// multiple choice and is usually the learner's whole collection.
func New(session *study.Session, mode models.StudyMode, cards, pool []models.Card, rnd *rand.Rand) (*Quiz, error) {
	if !mode.IsQuiz() {
		return nil, fmt.Errorf("%w: %s", ErrNotQuizMode, mode)
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if err := session.Start(cards, mode); err != nil {
		return nil, err
	}
	return &Quiz{session: session, pool: pool, rnd: rnd, options: DefaultOptions}, nil
}

// Session returns the underlying session
func (q *Quiz) Session() *study.Session {
	return q.session
}

// Current returns the question for the card being presented
func (q *Quiz) Current() (Question, bool) {
	card, ok := q.session.Current()
	if !ok {
		return Question{}, false
	}
	if q.question == nil || q.question.Card.ID != card.ID {
		question := q.build(card)
		q.question = &question
	}
	return *q.question, true
}

// Answer grades the reply for the current question. For multiple choice the
// reply may be the option text or its 1-based number.
func (q *Quiz) Answer(reply string) (Answer, error) {
	question, ok := q.Current()
	if !ok {
		return Answer{}, study.ErrNotInProgress
	}

	var correct bool
	expected := question.Card.Back
	switch question.Type {
	case models.ModeQuizMultipleChoice:
		correct = question.choose(reply) == question.CorrectIndex
	case models.ModeQuizTypeIn:
		expected = question.Card.Front
		correct = Matches(reply, expected)
	}

	card, result, err := q.session.Answer(Grade(correct))
	if err != nil {
		return Answer{}, err
	}
	q.question = nil
	return Answer{Correct: correct, Expected: expected, Card: card, Result: result}, nil
}

// Grade maps a quiz outcome onto the four-button scale
func Grade(correct bool) models.Quality {
	if correct {
		return models.QualityGood
	}
	return models.QualityAgain
}

// Result summarises the quiz. Call it once the session has completed.
func (q *Quiz) Result() models.QuizResult {
	st := q.session.Stats()
	takenAt := st.StartedAt
	if st.EndedAt != nil {
		takenAt = *st.EndedAt
	}
	return models.QuizResult{
		UserID:       q.session.UserID,
		QuizType:     st.Mode,
		TotalCards:   st.Total,
		CorrectCards: st.Correct,
		Duration:     st.Duration,
		TakenAt:      takenAt,
	}
}

// Finish ends the session if needed and stores the result
func (q *Quiz) Finish(ctx context.Context, store ResultStore) (models.QuizResult, error) {
	q.session.End()
	result := q.Result()
	if result.TotalCards == 0 {
		return result, nil
	}
	if err := store.Save(ctx, &result); err != nil {
		return result, fmt.Errorf("failed to save quiz result: %w", err)
	}
	log.Info().Str("user_id", result.UserID).Str("quiz_type", string(result.QuizType)).
		Int("correct", result.CorrectCards).Int("total", result.TotalCards).Msg("quiz finished")
	return result, nil
}

func (q *Quiz) build(card models.Card) Question {
	question := Question{Card: card, Type: q.session.Mode()}
	if question.Type == models.ModeQuizTypeIn {
		question.Prompt = card.Back
		return question
	}

	question.Prompt = card.Front
	options := append(q.distractors(card, q.options-1), card.Back)
	correctIndex := len(options) - 1
	q.rnd.Shuffle(len(options), func(i, j int) {
		if i == correctIndex {
			correctIndex = j
		} else if j == correctIndex {
			correctIndex = i
		}
		options[i], options[j] = options[j], options[i]
	})
	question.Options = options
	question.CorrectIndex = correctIndex
	return question
}

// distractors picks wrong answers, same category first
func (q *Quiz) distractors(card models.Card, count int) []string {
	seen := map[string]bool{Normalize(card.Back): true}
	var same, other []string
	for _, c := range q.pool {
		key := Normalize(c.Back)
		if c.ID == card.ID || seen[key] {
			continue
		}
		seen[key] = true
		if card.Category != "" && c.Category == card.Category {
			same = append(same, c.Back)
		} else {
			other = append(other, c.Back)
		}
	}
	q.rnd.Shuffle(len(same), func(i, j int) { same[i], same[j] = same[j], same[i] })
	q.rnd.Shuffle(len(other), func(i, j int) { other[i], other[j] = other[j], other[i] })

	out := append(same, other...)
	if len(out) > count {
		out = out[:count]
	}
	return out
}

// choose resolves a reply to an option index, -1 when it matches none
func (q Question) choose(reply string) int {
	reply = strings.TrimSpace(reply)
	if n, err := strconv.Atoi(reply); err == nil && n >= 1 && n <= len(q.Options) {
		return n - 1
	}
	for i, opt := range q.Options {
		if Normalize(opt) == Normalize(reply) {
			return i
		}
	}
	return -1
}

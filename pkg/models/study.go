package models

import "time"

// StudyMode selects which cards a session is built from and how they are ordered
type StudyMode string

const (
	ModeReview             StudyMode = "review"
	ModeNew                StudyMode = "new"
	ModeAll                StudyMode = "all"
	ModeQuizMultipleChoice StudyMode = "quiz_multiple_choice"
	ModeQuizTypeIn         StudyMode = "quiz_type_in"
)

// IsQuiz reports whether the mode is one of the quiz variants
func (m StudyMode) IsQuiz() bool {
	return m == ModeQuizMultipleChoice || m == ModeQuizTypeIn
}

// Shuffled reports whether cards are presented in random order
func (m StudyMode) Shuffled() bool {
	return m == ModeAll || m.IsQuiz()
}

// StudyResult is the immutable record of one answer inside a session
type StudyResult struct {
	CardID    string        `json:"card_id"`
	Quality   Quality       `json:"quality"`
	Correct   bool          `json:"correct"`
	TimeSpent time.Duration `json:"time_spent"`
	Timestamp time.Time     `json:"timestamp"`
}

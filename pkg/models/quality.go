package models

import (
	"errors"
	"fmt"
	"strings"
)

// Quality is the learner's self-graded recall for one answer
type Quality int

const (
	QualityAgain Quality = iota + 1
	QualityHard
	QualityGood
	QualityEasy
)

// ErrInvalidQuality is returned when an answer does not map to one of the four buttons
var ErrInvalidQuality = errors.New("invalid response quality")

// Valid reports whether q is one of the four known qualities
func (q Quality) Valid() bool {
	return q >= QualityAgain && q <= QualityEasy
}

// Correct reports whether the answer counts as a success (anything but "again")
func (q Quality) Correct() bool {
	return q.Valid() && q != QualityAgain
}

func (q Quality) String() string {
	switch q {
	case QualityAgain:
		return "again"
	case QualityHard:
		return "hard"
	case QualityGood:
		return "good"
	case QualityEasy:
		return "easy"
	}
	return fmt.Sprintf("quality(%d)", int(q))
}

// ParseQuality accepts either the button name or its 1-4 ordinal
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "again", "1":
		return QualityAgain, nil
	case "hard", "2":
		return QualityHard, nil
	case "good", "3":
		return QualityGood, nil
	case "easy", "4":
		return QualityEasy, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidQuality, s)
}

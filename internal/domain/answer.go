package domain

import "errors"

// AnswerKind classifies a learner's response to a diagnostic question.
type AnswerKind string

// Possible answer classifications
const (
	AnswerCorrect   AnswerKind = "correct"
	AnswerIncorrect AnswerKind = "incorrect"
	AnswerIDontKnow AnswerKind = "idontknow"
)

// ErrInvalidAnswerKind indicates an unrecognized answer classification.
var ErrInvalidAnswerKind = errors.New("invalid answer kind")

// Tentative mastery assigned by the diagnostic per answer kind. One correct
// diagnostic answer indicates partial confidence, not mastery: full mastery
// (100) is only ever earned through subsequent practice.
const (
	TentativeMasteryCorrect   = 55
	TentativeMasteryIncorrect = 30
	TentativeMasteryIDontKnow = 0
)

// Valid reports whether the answer kind is one of the recognized values.
func (k AnswerKind) Valid() bool {
	switch k {
	case AnswerCorrect, AnswerIncorrect, AnswerIDontKnow:
		return true
	default:
		return false
	}
}

// TentativeMastery returns the provisional mastery level the diagnostic
// assigns for this answer kind.
func (k AnswerKind) TentativeMastery() int {
	switch k {
	case AnswerCorrect:
		return TentativeMasteryCorrect
	case AnswerIncorrect:
		return TentativeMasteryIncorrect
	default:
		return TentativeMasteryIDontKnow
	}
}

// Accuracy returns the accuracy percentage recorded for this answer kind.
// "I don't know" and incorrect are deliberately distinct: a wrong attempt
// still shows partial engagement with the topic.
func (k AnswerKind) Accuracy() int {
	switch k {
	case AnswerCorrect:
		return 100
	case AnswerIncorrect:
		return 50
	default:
		return 0
	}
}

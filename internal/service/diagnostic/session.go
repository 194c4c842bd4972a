// Package diagnostic implements the adaptive placement test: a bounded
// walk over the topic graph that probes upward on success and downward on
// failure until the learner's knowledge frontier is bracketed.
package diagnostic

import (
	"errors"

	"github.com/lindenlearn/mastery-api/internal/domain"
)

// Question bounds. Configurable constants, not protocol invariants.
const (
	DefaultMinQuestions = 3
	DefaultMaxQuestions = 10
)

// Session validation errors
var (
	ErrSessionComplete    = errors.New("diagnostic session is already complete")
	ErrNoCurrentTopic     = errors.New("diagnostic session has no current topic")
	ErrSessionInvalid     = errors.New("diagnostic session state is invalid")
	ErrTopicAlreadyTested = errors.New("topic was already tested in this session")
)

// TopicResult records one answered probe: which topic, how it was answered,
// and the tentative mastery that answer maps to.
type TopicResult struct {
	TopicID          string            `json:"topic_id"`
	Answer           domain.AnswerKind `json:"answer"`
	TentativeMastery int               `json:"tentative_mastery"`
}

// Session is the caller-owned placement state. It travels in request and
// response bodies; the server never persists it, so every field must
// round-trip through JSON.
type Session struct {
	TopicsTested     []string      `json:"topics_tested"`
	RootTopicsToTest []string      `json:"root_topics_to_test"`
	TestedRootTopics []string      `json:"tested_root_topics"`
	Results          []TopicResult `json:"results"`
	QuestionsAsked   int           `json:"questions_asked"`
	CurrentTopicID   string        `json:"current_topic_id"`
	Complete         bool          `json:"complete"`
	MinQuestions     int           `json:"min_questions"`
	MaxQuestions     int           `json:"max_questions"`
}

// Validate checks the session's structural invariants: bounds are sane, the
// tested list has no duplicates, and tested roots are a subset of the roots
// fixed at start.
func (s *Session) Validate() error {
	if s.MinQuestions < 1 || s.MaxQuestions < s.MinQuestions {
		return ErrSessionInvalid
	}
	if s.QuestionsAsked < 0 || s.QuestionsAsked > s.MaxQuestions {
		return ErrSessionInvalid
	}
	seen := make(map[string]bool, len(s.TopicsTested))
	for _, id := range s.TopicsTested {
		if id == "" || seen[id] {
			return ErrSessionInvalid
		}
		seen[id] = true
	}
	roots := make(map[string]bool, len(s.RootTopicsToTest))
	for _, id := range s.RootTopicsToTest {
		roots[id] = true
	}
	for _, id := range s.TestedRootTopics {
		if !roots[id] {
			return ErrSessionInvalid
		}
	}
	return nil
}

// HasTested reports whether the topic was already probed in this session.
func (s *Session) HasTested(topicID string) bool {
	for _, id := range s.TopicsTested {
		if id == topicID {
			return true
		}
	}
	return false
}

// IsRoot reports whether the topic is one of the session's entry points.
func (s *Session) IsRoot(topicID string) bool {
	for _, id := range s.RootTopicsToTest {
		if id == topicID {
			return true
		}
	}
	return false
}

// markTested appends the topic to the tested set, tracking root coverage.
// Idempotent: a topic already present is never appended twice.
func (s *Session) markTested(topicID string) {
	if s.HasTested(topicID) {
		return
	}
	s.TopicsTested = append(s.TopicsTested, topicID)
	if s.IsRoot(topicID) {
		s.TestedRootTopics = append(s.TestedRootTopics, topicID)
	}
}

// untestedRoots returns the session's remaining entry points in the order
// they were fixed at start (ascending difficulty).
func (s *Session) untestedRoots() []string {
	var out []string
	for _, id := range s.RootTopicsToTest {
		if !s.HasTested(id) {
			out = append(out, id)
		}
	}
	return out
}

// probeDirection tags which way the state machine is exploring after an
// answer. The tagged form keeps the routing a flat switch instead of nested
// conditionals and makes the no-repeat and termination properties visible.
type probeDirection int

const (
	// probeUp explores untested dependents after a correct answer.
	probeUp probeDirection = iota
	// probeDown explores untested prerequisites after a failed answer.
	probeDown
	// probeSideways falls back to the remaining untested root topics.
	probeSideways
)

// directionFor maps an answer to the preferred probe direction. Failure on
// a root topic has nothing below it, so it probes sideways to other roots.
func directionFor(answer domain.AnswerKind, currentIsRoot bool) probeDirection {
	if answer == domain.AnswerCorrect {
		return probeUp
	}
	if currentIsRoot {
		return probeSideways
	}
	return probeDown
}

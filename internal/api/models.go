// Package api contains the HTTP handlers exposing the mastery engine.
package api

import (
	"github.com/lindenlearn/mastery-api/internal/service/diagnostic"
)

// AnswerRequest submits one diagnostic answer. The session travels with the
// request because placement state is caller-owned.
type AnswerRequest struct {
	Session *diagnostic.Session `json:"session"  validate:"required"`
	Answer  string              `json:"answer"   validate:"required,oneof=correct incorrect idontknow"`
}

// CompleteRequest finalizes a placement with the session's accumulated
// results.
type CompleteRequest struct {
	Results []diagnostic.TopicResult `json:"results" validate:"required,min=1,dive"`
}

// UpsertMasteryRequest sets a learner's mastery for a topic directly.
// The level is clamped to [0,100] by the store.
type UpsertMasteryRequest struct {
	TopicID      string `json:"topic_id"      validate:"required"`
	MasteryLevel int    `json:"mastery_level" validate:"gte=0,lte=100"`
}

// ScheduleReviewRequest records a practice result and asks for the next
// review to be scheduled.
type ScheduleReviewRequest struct {
	TopicID      string `json:"topic_id"      validate:"required"`
	MasteryLevel int    `json:"mastery_level" validate:"gte=0,lte=100"`
	Accuracy     int    `json:"accuracy"      validate:"gte=0,lte=100"`
}

// CanAdvanceResponse reports whether a topic's prerequisites are
// sufficiently mastered.
type CanAdvanceResponse struct {
	TopicID    string `json:"topic_id"`
	CanAdvance bool   `json:"can_advance"`
}

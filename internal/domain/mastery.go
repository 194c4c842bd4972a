package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Mastery bounds. Levels are always clamped to this range before storage.
const (
	MinMasteryLevel = 0
	MaxMasteryLevel = 100
)

// Common validation errors for MasteryRecord
var (
	ErrEmptyMasteryTopicID = errors.New("mastery record topic ID cannot be empty")
	ErrMasteryOutOfRange   = errors.New("mastery level must be between 0 and 100")
)

// MasteryRecord tracks one learner's mastery of one topic, together with
// the spaced-repetition bookkeeping the review scheduler needs.
// LastPracticed and NextReview are nil until the first attempt and the
// first scheduling respectively - a missing record is not the same thing
// as mastery zero, and callers resolve the absence to 0 only at the point
// of arithmetic.
type MasteryRecord struct {
	ID            uuid.UUID  `json:"id"`
	Learner       Learner    `json:"learner"`
	TopicID       string     `json:"topic_id"`
	MasteryLevel  int        `json:"mastery_level"` // 0-100
	LastPracticed *time.Time `json:"last_practiced,omitempty"`
	NextReview    *time.Time `json:"next_review,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewMasteryRecord creates a record for a first attempt at a topic.
// The mastery level is clamped and last_practiced set to now; next_review
// stays unset until the review scheduler computes one.
func NewMasteryRecord(learner Learner, topicID string, masteryLevel int, now time.Time) (*MasteryRecord, error) {
	record := &MasteryRecord{
		ID:            uuid.New(),
		Learner:       learner,
		TopicID:       topicID,
		MasteryLevel:  ClampMastery(masteryLevel),
		LastPracticed: &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	return record, nil
}

// Validate checks if the MasteryRecord has valid data.
func (r *MasteryRecord) Validate() error {
	if err := r.Learner.Validate(); err != nil {
		return err
	}
	if r.TopicID == "" {
		return ErrEmptyMasteryTopicID
	}
	if r.MasteryLevel < MinMasteryLevel || r.MasteryLevel > MaxMasteryLevel {
		return ErrMasteryOutOfRange
	}
	return nil
}

// CurrentInterval returns the record's scheduled interval in whole days
// (next_review minus last_practiced). The second return value is false when
// either timestamp is missing and no interval can be derived.
func (r *MasteryRecord) CurrentInterval() (int, bool) {
	if r.LastPracticed == nil || r.NextReview == nil {
		return 0, false
	}
	days := int(r.NextReview.Sub(*r.LastPracticed).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days, true
}

// IsDue reports whether the record's next review is at or before now.
// Records that have never been scheduled are not due.
func (r *MasteryRecord) IsDue(now time.Time) bool {
	return r.NextReview != nil && !r.NextReview.After(now)
}

// ClampMastery clamps a mastery level into [MinMasteryLevel, MaxMasteryLevel].
func ClampMastery(level int) int {
	if level < MinMasteryLevel {
		return MinMasteryLevel
	}
	if level > MaxMasteryLevel {
		return MaxMasteryLevel
	}
	return level
}

package fire

import (
	"errors"
	"time"

	"github.com/lindenlearn/mastery-api/internal/domain"
)

// Common errors
var (
	ErrInvalidMastery  = errors.New("mastery level must be between 0 and 100")
	ErrInvalidAccuracy = errors.New("accuracy must be between 0 and 100")
	ErrInvalidPrevious = errors.New("previous interval must be at least 1 day")
)

// Service defines the interface for FIRe interval calculations.
type Service interface {
	// Interval computes the next review interval in days for a topic given
	// the learner's mastery level, the accuracy of the most recent practice,
	// and the previously scheduled interval if one exists (nil otherwise).
	Interval(masteryLevel, accuracy int, previousInterval *int) (int, error)

	// NextReviewAt computes the interval and resolves it against a concrete
	// reference time.
	NextReviewAt(masteryLevel, accuracy int, previousInterval *int, now time.Time) (time.Time, int, error)

	// ShouldPropagate reports whether a review at the given accuracy earns
	// implicit-repetition credit for encompassed topics.
	ShouldPropagate(accuracy int) bool

	// ImplicitExtension returns how many days to extend an encompassed
	// topic's next review, given that topic's current interval.
	ImplicitExtension(currentIntervalDays int) int
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a FIRe service with default parameters.
func NewDefaultService() Service {
	return &defaultService{params: NewDefaultParams()}
}

// NewServiceWithParams creates a FIRe service with custom parameters.
func NewServiceWithParams(params *Params) Service {
	return &defaultService{params: params}
}

// Interval implements the Service interface.
func (s *defaultService) Interval(masteryLevel, accuracy int, previousInterval *int) (int, error) {
	if masteryLevel < domain.MinMasteryLevel || masteryLevel > domain.MaxMasteryLevel {
		return 0, ErrInvalidMastery
	}
	if accuracy < 0 || accuracy > 100 {
		return 0, ErrInvalidAccuracy
	}
	if previousInterval != nil && *previousInterval < 1 {
		return 0, ErrInvalidPrevious
	}

	return calculateInterval(masteryLevel, accuracy, previousInterval, s.params), nil
}

// NextReviewAt implements the Service interface.
func (s *defaultService) NextReviewAt(
	masteryLevel, accuracy int,
	previousInterval *int,
	now time.Time,
) (time.Time, int, error) {
	days, err := s.Interval(masteryLevel, accuracy, previousInterval)
	if err != nil {
		return time.Time{}, 0, err
	}
	return now.AddDate(0, 0, days), days, nil
}

// ShouldPropagate implements the Service interface.
func (s *defaultService) ShouldPropagate(accuracy int) bool {
	return accuracy >= s.params.DoublingAccuracy
}

// ImplicitExtension implements the Service interface.
func (s *defaultService) ImplicitExtension(currentIntervalDays int) int {
	return calculateImplicitExtension(currentIntervalDays, s.params)
}

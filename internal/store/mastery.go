package store

import (
	"context"
	"time"

	"github.com/lindenlearn/mastery-api/internal/domain"
)

// MasteryStore defines the interface for per-learner mastery persistence.
//
// Every method scopes by the learner identity (registered user or anonymous
// session); no operation ever reads or writes across learners. A missing
// record is reported as ErrMasteryNotFound - callers that treat "never
// practiced" as mastery zero make that decision themselves, so that a
// transient store failure (ErrUnavailable) is never mistaken for no data.
type MasteryStore interface {
	// Get retrieves the mastery record for a (learner, topic) pair.
	// Returns ErrMasteryNotFound if no record exists.
	Get(ctx context.Context, learner domain.Learner, topicID string) (*domain.MasteryRecord, error)

	// GetAll retrieves every mastery record for a learner, keyed by topic ID.
	GetAll(ctx context.Context, learner domain.Learner) (map[string]*domain.MasteryRecord, error)

	// Upsert atomically creates or replaces the mastery record for a
	// (learner, topic) pair with the given level, stamping LastPracticed
	// with now and clearing any scheduled review. Concurrent upserts for
	// the same pair must not produce duplicate records. Returns the
	// record as stored.
	Upsert(ctx context.Context, learner domain.Learner, topicID string, level int, now time.Time) (*domain.MasteryRecord, error)

	// SetNextReview sets the scheduled review time for an existing record.
	// Returns ErrMasteryNotFound if no record exists for the pair.
	SetNextReview(ctx context.Context, learner domain.Learner, topicID string, nextReview time.Time) error

	// GetDue retrieves the learner's records whose scheduled review is at
	// or before now and whose mastery is above zero, soonest first.
	GetDue(ctx context.Context, learner domain.Learner, now time.Time) ([]*domain.MasteryRecord, error)
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lindenlearn/mastery-api/internal/domain"
	"github.com/lindenlearn/mastery-api/internal/store"
)

// MasteryStore is an in-memory store.MasteryStore keyed by learner identity
// then topic ID. Records are copied on the way in and out so callers cannot
// mutate shared state.
type MasteryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]*domain.MasteryRecord // learner key -> topic -> record
}

// Ensure MasteryStore implements the MasteryStore interface
var _ store.MasteryStore = (*MasteryStore)(nil)

// NewMasteryStore creates an empty in-memory mastery store.
func NewMasteryStore() *MasteryStore {
	return &MasteryStore{
		records: make(map[string]map[string]*domain.MasteryRecord),
	}
}

// Get implements store.MasteryStore.Get
func (s *MasteryStore) Get(_ context.Context, learner domain.Learner, topicID string) (*domain.MasteryRecord, error) {
	if err := learner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[learner.String()][topicID]
	if !ok {
		return nil, store.ErrMasteryNotFound
	}
	cp := *rec
	return &cp, nil
}

// GetAll implements store.MasteryStore.GetAll
func (s *MasteryStore) GetAll(_ context.Context, learner domain.Learner) (map[string]*domain.MasteryRecord, error) {
	if err := learner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.MasteryRecord, len(s.records[learner.String()]))
	for topicID, rec := range s.records[learner.String()] {
		cp := *rec
		out[topicID] = &cp
	}
	return out, nil
}

// Upsert implements store.MasteryStore.Upsert
func (s *MasteryStore) Upsert(
	_ context.Context,
	learner domain.Learner,
	topicID string,
	level int,
	now time.Time,
) (*domain.MasteryRecord, error) {
	if err := learner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if topicID == "" {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEmptyTopicID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := learner.String()
	byTopic, ok := s.records[key]
	if !ok {
		byTopic = make(map[string]*domain.MasteryRecord)
		s.records[key] = byTopic
	}

	rec, err := domain.NewMasteryRecord(learner, topicID, level, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if existing, ok := byTopic[topicID]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	}
	byTopic[topicID] = rec

	cp := *rec
	return &cp, nil
}

// SetNextReview implements store.MasteryStore.SetNextReview
func (s *MasteryStore) SetNextReview(_ context.Context, learner domain.Learner, topicID string, nextReview time.Time) error {
	if err := learner.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[learner.String()][topicID]
	if !ok {
		return store.ErrMasteryNotFound
	}
	rec.NextReview = &nextReview
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

// GetDue implements store.MasteryStore.GetDue
func (s *MasteryStore) GetDue(_ context.Context, learner domain.Learner, now time.Time) ([]*domain.MasteryRecord, error) {
	if err := learner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*domain.MasteryRecord
	for _, rec := range s.records[learner.String()] {
		if rec.MasteryLevel > domain.MinMasteryLevel && rec.IsDue(now) {
			cp := *rec
			due = append(due, &cp)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].NextReview.Equal(*due[j].NextReview) {
			return due[i].NextReview.Before(*due[j].NextReview)
		}
		return due[i].TopicID < due[j].TopicID
	})
	return due, nil
}

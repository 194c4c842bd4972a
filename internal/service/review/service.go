// Package review schedules spaced repetition with the FIRe algorithm:
// explicit scheduling after a practice session, implicit extension of
// encompassed topics, and compressed review-set selection.
package review

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/lindenlearn/mastery-api/internal/domain"
	"github.com/lindenlearn/mastery-api/internal/domain/fire"
	"github.com/lindenlearn/mastery-api/internal/platform/logger"
	"github.com/lindenlearn/mastery-api/internal/store"
)

// CompressionCap bounds how many topics the optimal review set may select.
const CompressionCap = 10

// ErrEmptyTopicID indicates a scheduling request without a topic.
var ErrEmptyTopicID = errors.New("topic ID cannot be empty")

// ImplicitUpdate reports one encompassed topic whose review was deferred by
// implicit repetition.
type ImplicitUpdate struct {
	TopicID       string    `json:"topic_id"`
	ExtensionDays int       `json:"extension_days"`
	NextReview    time.Time `json:"next_review"`
}

// ScheduleResult is the outcome of scheduling a review: the topic's own next
// review plus any implicit extensions granted to encompassed topics.
type ScheduleResult struct {
	TopicID         string           `json:"topic_id"`
	MasteryLevel    int              `json:"mastery_level"`
	IntervalDays    int              `json:"interval_days"`
	NextReview      time.Time        `json:"next_review"`
	ImplicitUpdates []ImplicitUpdate `json:"implicit_updates"`
}

// DueReview decorates a due mastery record with its topic and how overdue it
// is. DaysUntilDue is negative when the review is overdue.
type DueReview struct {
	Topic        *domain.Topic `json:"topic"`
	MasteryLevel int           `json:"mastery_level"`
	NextReview   time.Time     `json:"next_review"`
	DaysUntilDue int           `json:"days_until_due"`
}

// OptimalReviewSet is a compressed selection of due topics: reviewing the
// selected topics covers the rest through encompassing edges.
type OptimalReviewSet struct {
	Topics           []*domain.Topic `json:"topics"`
	TotalDue         int             `json:"total_due"`
	CompressionRatio float64         `json:"compression_ratio"`
}

// Service schedules reviews over the topic graph and mastery store.
type Service struct {
	graph   store.TopicGraph
	mastery store.MasteryStore
	fire    fire.Service
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a review service.
// If log is nil, a default logger will be used.
func NewService(graph store.TopicGraph, mastery store.MasteryStore, fireSvc fire.Service, log *slog.Logger) *Service {
	if graph == nil {
		panic("graph cannot be nil")
	}
	if mastery == nil {
		panic("mastery cannot be nil")
	}
	if fireSvc == nil {
		panic("fireSvc cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		graph:   graph,
		mastery: mastery,
		fire:    fireSvc,
		logger:  log.With(slog.String("component", "review_service")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service's time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ScheduleReview records a practice result and computes the topic's next
// review. The previous interval is read before the mastery upsert so the
// doubling path sees the schedule the learner actually beat. At accuracy at
// or above the propagation threshold, every encompassed topic with an
// existing scheduled review gets its review deferred by half its own
// current interval; absent records are skipped, and reviews are never
// pulled earlier.
func (s *Service) ScheduleReview(
	ctx context.Context,
	learner domain.Learner,
	topicID string,
	masteryLevel int,
	accuracy int,
) (*ScheduleResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := learner.Validate(); err != nil {
		return nil, err
	}
	if topicID == "" {
		return nil, ErrEmptyTopicID
	}
	if _, err := s.graph.GetTopic(ctx, topicID); err != nil {
		return nil, err
	}

	now := s.now()

	// Capture the previous interval before Upsert resets the record's
	// schedule.
	var previousInterval *int
	existing, err := s.mastery.Get(ctx, learner, topicID)
	if err != nil && !store.IsNotFoundError(err) {
		return nil, err
	}
	if existing != nil {
		if days, ok := existing.CurrentInterval(); ok && days >= 1 {
			previousInterval = &days
		}
	}

	record, err := s.mastery.Upsert(ctx, learner, topicID, masteryLevel, now)
	if err != nil {
		return nil, err
	}

	nextReview, intervalDays, err := s.fire.NextReviewAt(record.MasteryLevel, accuracy, previousInterval, now)
	if err != nil {
		return nil, err
	}
	if err := s.mastery.SetNextReview(ctx, learner, topicID, nextReview); err != nil {
		return nil, err
	}

	result := &ScheduleResult{
		TopicID:         topicID,
		MasteryLevel:    record.MasteryLevel,
		IntervalDays:    intervalDays,
		NextReview:      nextReview,
		ImplicitUpdates: []ImplicitUpdate{},
	}

	if s.fire.ShouldPropagate(accuracy) {
		updates, err := s.propagate(ctx, learner, topicID)
		if err != nil {
			return nil, err
		}
		result.ImplicitUpdates = updates
	}

	log.Info("review scheduled",
		slog.String("learner", learner.String()),
		slog.String("topic_id", topicID),
		slog.Int("interval_days", intervalDays),
		slog.Int("implicit_updates", len(result.ImplicitUpdates)))
	return result, nil
}

// propagate extends the scheduled reviews of every topic the practiced
// topic encompasses. Extension is relative to each encompassed record's own
// current interval; records without both timestamps fall back to the
// one-day minimum so the deferral never rounds away entirely.
func (s *Service) propagate(ctx context.Context, learner domain.Learner, topicID string) ([]ImplicitUpdate, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	encompassed, err := s.graph.Encompassed(ctx, topicID)
	if err != nil {
		return nil, err
	}

	updates := []ImplicitUpdate{}
	for _, topic := range encompassed {
		rec, err := s.mastery.Get(ctx, learner, topic.ID)
		if err != nil {
			if store.IsNotFoundError(err) {
				// Nothing to extend.
				continue
			}
			return nil, err
		}
		if rec.NextReview == nil {
			continue
		}

		currentInterval, ok := rec.CurrentInterval()
		if !ok || currentInterval < 1 {
			currentInterval = 1
		}
		extension := s.fire.ImplicitExtension(currentInterval)
		extended := rec.NextReview.AddDate(0, 0, extension)

		if err := s.mastery.SetNextReview(ctx, learner, topic.ID, extended); err != nil {
			return nil, err
		}
		updates = append(updates, ImplicitUpdate{
			TopicID:       topic.ID,
			ExtensionDays: extension,
			NextReview:    extended,
		})

		log.Debug("implicit repetition applied",
			slog.String("learner", learner.String()),
			slog.String("encompassed_topic", topic.ID),
			slog.Int("extension_days", extension))
	}
	return updates, nil
}

// GetDueReviews returns the learner's due topics, soonest first, decorated
// with topic data and days until due.
func (s *Service) GetDueReviews(ctx context.Context, learner domain.Learner) ([]DueReview, error) {
	if err := learner.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	records, err := s.mastery.GetDue(ctx, learner, now)
	if err != nil {
		return nil, err
	}

	due := make([]DueReview, 0, len(records))
	for _, rec := range records {
		topic, err := s.graph.GetTopic(ctx, rec.TopicID)
		if err != nil {
			if store.IsNotFoundError(err) {
				// Record for a retired topic; skip rather than fail the list.
				continue
			}
			return nil, err
		}
		days := int(math.Floor(rec.NextReview.Sub(now).Hours() / 24))
		due = append(due, DueReview{
			Topic:        topic,
			MasteryLevel: rec.MasteryLevel,
			NextReview:   *rec.NextReview,
			DaysUntilDue: days,
		})
	}
	return due, nil
}

// GetOptimalReviewSet picks a compressed set of due topics. Each due topic
// is scored by how many other due topics it encompasses; the greedy pass
// over (score desc, difficulty desc) selects topics until every due topic
// is covered or the cap is hit. The reported ratio is selected over total
// due - lower means fewer sessions cover the same ground.
func (s *Service) GetOptimalReviewSet(ctx context.Context, learner domain.Learner) (*OptimalReviewSet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := learner.Validate(); err != nil {
		return nil, err
	}

	records, err := s.mastery.GetDue(ctx, learner, s.now())
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &OptimalReviewSet{Topics: []*domain.Topic{}}, nil
	}

	dueSet := make(map[string]bool, len(records))
	for _, rec := range records {
		dueSet[rec.TopicID] = true
	}

	type scored struct {
		topic       *domain.Topic
		encompassed []string // due topics this one covers
	}

	candidates := make([]scored, 0, len(records))
	for _, rec := range records {
		topic, err := s.graph.GetTopic(ctx, rec.TopicID)
		if err != nil {
			if store.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		encompassed, err := s.graph.Encompassed(ctx, rec.TopicID)
		if err != nil {
			return nil, err
		}
		var covered []string
		for _, e := range encompassed {
			if dueSet[e.ID] {
				covered = append(covered, e.ID)
			}
		}
		candidates = append(candidates, scored{topic: topic, encompassed: covered})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if len(candidates[i].encompassed) != len(candidates[j].encompassed) {
			return len(candidates[i].encompassed) > len(candidates[j].encompassed)
		}
		return candidates[i].topic.Difficulty > candidates[j].topic.Difficulty
	})

	coveredSet := make(map[string]bool, len(records))
	var selected []*domain.Topic
	for _, c := range candidates {
		if len(coveredSet) >= len(dueSet) || len(selected) >= CompressionCap {
			break
		}
		if coveredSet[c.topic.ID] {
			continue
		}
		selected = append(selected, c.topic)
		coveredSet[c.topic.ID] = true
		for _, id := range c.encompassed {
			coveredSet[id] = true
		}
	}

	totalDue := len(dueSet)
	ratio := float64(len(selected)) / float64(totalDue)

	log.Debug("optimal review set computed",
		slog.String("learner", learner.String()),
		slog.Int("total_due", totalDue),
		slog.Int("selected", len(selected)),
		slog.Float64("compression_ratio", ratio))
	return &OptimalReviewSet{
		Topics:           selected,
		TotalDue:         totalDue,
		CompressionRatio: ratio,
	}, nil
}

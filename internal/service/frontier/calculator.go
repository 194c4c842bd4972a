// Package frontier derives, from the topic graph and a learner's mastery
// records, the set of topics the learner is ready to learn next.
package frontier

import (
	"context"
	"log/slog"
	"math"

	"github.com/lindenlearn/mastery-api/internal/domain"
	"github.com/lindenlearn/mastery-api/internal/platform/logger"
	"github.com/lindenlearn/mastery-api/internal/store"
)

// Mastery thresholds. A topic gates its dependents once strongly understood
// (GateMasteryLevel), but only leaves the frontier at FullMasteryLevel - the
// split keeps frontier growth from blocking on review-grade perfection.
// Both thresholds are load-bearing; do not unify them.
const (
	GateMasteryLevel = 80
	FullMasteryLevel = 100
)

// DomainProgress summarizes a learner's standing across one subject domain.
type DomainProgress struct {
	Domain      string  `json:"domain"`
	TotalTopics int     `json:"total_topics"`
	Mastered    int     `json:"mastered"`
	InProgress  int     `json:"in_progress"`
	NotStarted  int     `json:"not_started"`
	Percentage  float64 `json:"percentage"`
}

// Calculator computes frontiers, advancement checks and progress rollups.
// It is a pure read-side projection: recomputed on demand, never cached,
// since learner-scale graphs stay small.
type Calculator struct {
	graph   store.TopicGraph
	mastery store.MasteryStore
	logger  *slog.Logger
}

// NewCalculator creates a frontier calculator.
// If log is nil, a default logger will be used.
func NewCalculator(graph store.TopicGraph, mastery store.MasteryStore, log *slog.Logger) *Calculator {
	if graph == nil {
		panic("graph cannot be nil")
	}
	if mastery == nil {
		panic("mastery cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Calculator{
		graph:   graph,
		mastery: mastery,
		logger:  log.With(slog.String("component", "frontier_calculator")),
	}
}

// ComputeFrontier returns the topics whose prerequisites are all at or above
// the gate threshold and whose own mastery is below full. Topics the learner
// has never practiced count as mastery zero here - that resolution happens
// at this arithmetic, never inside the store.
//
// No ordering guarantee is part of this contract; ranking is a caller
// concern.
func (c *Calculator) ComputeFrontier(ctx context.Context, learner domain.Learner) ([]*domain.Topic, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	records, err := c.mastery.GetAll(ctx, learner)
	if err != nil {
		return nil, err
	}

	mastered := make(map[string]bool, len(records))
	for topicID, rec := range records {
		if rec.MasteryLevel >= GateMasteryLevel {
			mastered[topicID] = true
		}
	}

	topics, err := c.graph.AllTopics(ctx)
	if err != nil {
		return nil, err
	}

	var frontier []*domain.Topic
	for _, topic := range topics {
		level := 0
		if rec, ok := records[topic.ID]; ok {
			level = rec.MasteryLevel
		}
		if level >= FullMasteryLevel {
			continue
		}

		prereqs, err := c.graph.Prerequisites(ctx, topic.ID)
		if err != nil {
			return nil, err
		}
		ready := true
		for _, p := range prereqs {
			if !mastered[p.ID] {
				ready = false
				break
			}
		}
		if ready {
			frontier = append(frontier, topic)
		}
	}

	log.Debug("frontier computed",
		slog.String("learner", learner.String()),
		slog.Int("frontier_size", len(frontier)))

	if frontier == nil {
		frontier = []*domain.Topic{}
	}
	return frontier, nil
}

// CanAdvance reports whether the learner is ready to start the topic: every
// prerequisite at or above the gate threshold and the topic itself not yet
// fully mastered.
// Returns store.ErrTopicNotFound for an unknown topic.
func (c *Calculator) CanAdvance(ctx context.Context, learner domain.Learner, topicID string) (bool, error) {
	rec, err := c.mastery.Get(ctx, learner, topicID)
	if err != nil && !store.IsNotFoundError(err) {
		return false, err
	}
	if rec != nil && rec.MasteryLevel >= FullMasteryLevel {
		return false, nil
	}

	prereqs, err := c.graph.Prerequisites(ctx, topicID)
	if err != nil {
		return false, err
	}

	for _, p := range prereqs {
		prereqRec, err := c.mastery.Get(ctx, learner, p.ID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return false, nil
			}
			return false, err
		}
		if prereqRec.MasteryLevel < GateMasteryLevel {
			return false, nil
		}
	}
	return true, nil
}

// ComputeDomainProgress rolls up the learner's standing across every topic
// in a subject domain. Mastered counts topics at or above the gate
// threshold; in-progress covers everything practiced but below it.
func (c *Calculator) ComputeDomainProgress(ctx context.Context, learner domain.Learner, subjectDomain string) (*DomainProgress, error) {
	topics, err := c.graph.TopicsByDomain(ctx, subjectDomain)
	if err != nil {
		return nil, err
	}

	records, err := c.mastery.GetAll(ctx, learner)
	if err != nil {
		return nil, err
	}

	progress := &DomainProgress{
		Domain:      subjectDomain,
		TotalTopics: len(topics),
	}
	for _, topic := range topics {
		rec, ok := records[topic.ID]
		switch {
		case !ok || rec.MasteryLevel == 0:
			progress.NotStarted++
		case rec.MasteryLevel >= GateMasteryLevel:
			progress.Mastered++
		default:
			progress.InProgress++
		}
	}
	if progress.TotalTopics > 0 {
		progress.Percentage = math.Round(float64(progress.Mastered)/float64(progress.TotalTopics)*1000) / 10
	}
	return progress, nil
}

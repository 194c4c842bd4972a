// Package memory provides in-memory implementations of the store
// interfaces. They back tests and single-process deployments where the
// curriculum is loaded from static content at startup.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lindenlearn/mastery-api/internal/domain"
	"github.com/lindenlearn/mastery-api/internal/store"
)

// TopicGraph is an in-memory store.TopicGraph. The graph is immutable after
// construction; NewTopicGraph validates edge integrity and prerequisite
// acyclicity up front so read paths never have to.
type TopicGraph struct {
	mu           sync.RWMutex
	topics       map[string]*domain.Topic
	prereqs      map[string][]string // topic -> direct prerequisites
	dependents   map[string][]string // topic -> topics depending on it
	encompassed  map[string][]string // topic -> topics it encompasses
	encompassing map[string][]string // topic -> topics encompassing it
}

// Ensure TopicGraph implements the TopicGraph interface
var _ store.TopicGraph = (*TopicGraph)(nil)

// NewTopicGraph builds a graph from authored content. It rejects edges that
// reference unknown topics and prerequisite relations that contain a cycle,
// wrapping store.ErrCyclicPrerequisites for the latter so callers can fail
// startup with a content error.
func NewTopicGraph(
	topics []*domain.Topic,
	prereqEdges []domain.PrerequisiteEdge,
	encompassingEdges []domain.EncompassingEdge,
) (*TopicGraph, error) {
	g := &TopicGraph{
		topics:       make(map[string]*domain.Topic, len(topics)),
		prereqs:      make(map[string][]string),
		dependents:   make(map[string][]string),
		encompassed:  make(map[string][]string),
		encompassing: make(map[string][]string),
	}

	for _, t := range topics {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: topic %q: %w", store.ErrInvalidEntity, t.ID, err)
		}
		if _, dup := g.topics[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate topic %q", store.ErrInvalidEntity, t.ID)
		}
		g.topics[t.ID] = t
	}

	for _, e := range prereqEdges {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
		if err := g.checkEndpoints(e.TopicID, e.Prerequisite); err != nil {
			return nil, err
		}
		g.prereqs[e.TopicID] = append(g.prereqs[e.TopicID], e.Prerequisite)
		g.dependents[e.Prerequisite] = append(g.dependents[e.Prerequisite], e.TopicID)
	}

	for _, e := range encompassingEdges {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
		if err := g.checkEndpoints(e.TopicID, e.Encompassed); err != nil {
			return nil, err
		}
		g.encompassed[e.TopicID] = append(g.encompassed[e.TopicID], e.Encompassed)
		g.encompassing[e.Encompassed] = append(g.encompassing[e.Encompassed], e.TopicID)
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	return g, nil
}

func (g *TopicGraph) checkEndpoints(ids ...string) error {
	for _, id := range ids {
		if _, ok := g.topics[id]; !ok {
			return fmt.Errorf("%w: edge references unknown topic %q", store.ErrInvalidEntity, id)
		}
	}
	return nil
}

// checkAcyclic runs Kahn's algorithm over the prerequisite relation. If any
// topic is never freed, the remaining subgraph contains a cycle.
func (g *TopicGraph) checkAcyclic() error {
	indegree := make(map[string]int, len(g.topics))
	for id := range g.topics {
		indegree[id] = len(g.prereqs[id])
	}

	queue := make([]string, 0, len(g.topics))
	for id, d := range indegree {
		if d == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range g.dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited != len(g.topics) {
		return store.ErrCyclicPrerequisites
	}
	return nil
}

// GetTopic implements store.TopicGraph.GetTopic
func (g *TopicGraph) GetTopic(_ context.Context, topicID string) (*domain.Topic, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, ok := g.topics[topicID]
	if !ok {
		return nil, store.ErrTopicNotFound
	}
	return t, nil
}

// AllTopics implements store.TopicGraph.AllTopics
func (g *TopicGraph) AllTopics(_ context.Context) ([]*domain.Topic, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*domain.Topic, 0, len(g.topics))
	for _, t := range g.topics {
		out = append(out, t)
	}
	sortByDifficulty(out)
	return out, nil
}

// TopicsByDomain implements store.TopicGraph.TopicsByDomain
func (g *TopicGraph) TopicsByDomain(_ context.Context, subjectDomain string) ([]*domain.Topic, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*domain.Topic
	for _, t := range g.topics {
		if t.Domain == subjectDomain {
			out = append(out, t)
		}
	}
	sortByDifficulty(out)
	return out, nil
}

// Prerequisites implements store.TopicGraph.Prerequisites
func (g *TopicGraph) Prerequisites(_ context.Context, topicID string) ([]*domain.Topic, error) {
	return g.resolveEdges(topicID, g.prereqs)
}

// Dependents implements store.TopicGraph.Dependents
func (g *TopicGraph) Dependents(_ context.Context, topicID string) ([]*domain.Topic, error) {
	return g.resolveEdges(topicID, g.dependents)
}

// Encompassed implements store.TopicGraph.Encompassed
func (g *TopicGraph) Encompassed(_ context.Context, topicID string) ([]*domain.Topic, error) {
	return g.resolveEdges(topicID, g.encompassed)
}

// Encompassing implements store.TopicGraph.Encompassing
func (g *TopicGraph) Encompassing(_ context.Context, topicID string) ([]*domain.Topic, error) {
	return g.resolveEdges(topicID, g.encompassing)
}

// RootTopics implements store.TopicGraph.RootTopics
func (g *TopicGraph) RootTopics(_ context.Context) ([]*domain.Topic, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*domain.Topic
	for id, t := range g.topics {
		if len(g.prereqs[id]) == 0 {
			out = append(out, t)
		}
	}
	sortByDifficulty(out)
	return out, nil
}

func (g *TopicGraph) resolveEdges(topicID string, edges map[string][]string) ([]*domain.Topic, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.topics[topicID]; !ok {
		return nil, store.ErrTopicNotFound
	}

	ids := edges[topicID]
	out := make([]*domain.Topic, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.topics[id])
	}
	sortByDifficulty(out)
	return out, nil
}

// sortByDifficulty orders topics by difficulty ascending, topic ID as the
// tie-breaker, so traversal order is stable across runs.
func sortByDifficulty(topics []*domain.Topic) {
	sort.SliceStable(topics, func(i, j int) bool {
		if topics[i].Difficulty != topics[j].Difficulty {
			return topics[i].Difficulty < topics[j].Difficulty
		}
		return topics[i].ID < topics[j].ID
	})
}

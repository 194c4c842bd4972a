package frontier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindenlearn/mastery-api/internal/domain"
	"github.com/lindenlearn/mastery-api/internal/platform/memory"
	"github.com/lindenlearn/mastery-api/internal/store"
)

func topic(id string, difficulty int) *domain.Topic {
	return &domain.Topic{ID: id, Name: id, Domain: "math", Difficulty: difficulty, XPValue: 10}
}

// chainGraph builds counting -> addition -> multiplication with a detached
// root "shapes".
func chainGraph(t *testing.T) store.TopicGraph {
	t.Helper()
	g, err := memory.NewTopicGraph(
		[]*domain.Topic{
			topic("counting", 1),
			topic("addition", 2),
			topic("multiplication", 3),
			topic("shapes", 1),
		},
		[]domain.PrerequisiteEdge{
			{TopicID: "addition", Prerequisite: "counting"},
			{TopicID: "multiplication", Prerequisite: "addition"},
		},
		nil,
	)
	require.NoError(t, err)
	return g
}

func seedMastery(t *testing.T, s store.MasteryStore, learner domain.Learner, levels map[string]int) {
	t.Helper()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for topicID, level := range levels {
		_, err := s.Upsert(context.Background(), learner, topicID, level, now)
		require.NoError(t, err)
	}
}

func frontierIDs(topics []*domain.Topic) map[string]bool {
	ids := make(map[string]bool, len(topics))
	for _, t := range topics {
		ids[t.ID] = true
	}
	return ids
}

func TestComputeFrontier(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	learner := domain.NewSessionLearner("sess-1")

	tests := []struct {
		name     string
		levels   map[string]int
		expected []string
	}{
		{
			name:     "no history exposes only roots",
			levels:   nil,
			expected: []string{"counting", "shapes"},
		},
		{
			name:     "gate threshold unlocks dependents",
			levels:   map[string]int{"counting": 80},
			expected: []string{"counting", "addition", "shapes"},
		},
		{
			name:     "below gate threshold does not unlock",
			levels:   map[string]int{"counting": 79},
			expected: []string{"counting", "shapes"},
		},
		{
			name:     "fully mastered topics leave the frontier",
			levels:   map[string]int{"counting": 100},
			expected: []string{"addition", "shapes"},
		},
		{
			name:     "chain fully gated",
			levels:   map[string]int{"counting": 100, "addition": 85},
			expected: []string{"addition", "multiplication", "shapes"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mastery := memory.NewMasteryStore()
			seedMastery(t, mastery, learner, tt.levels)
			calc := NewCalculator(chainGraph(t), mastery, nil)

			frontierTopics, err := calc.ComputeFrontier(ctx, learner)
			require.NoError(t, err)

			got := frontierIDs(frontierTopics)
			assert.Len(t, got, len(tt.expected))
			for _, id := range tt.expected {
				assert.True(t, got[id], "expected %s in frontier", id)
			}
		})
	}
}

// TestFrontierSoundness checks the structural invariant directly: every
// frontier topic has all prerequisites at or above the gate and its own
// mastery below full.
func TestFrontierSoundness(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	learner := domain.NewSessionLearner("sess-1")
	graph := chainGraph(t)
	mastery := memory.NewMasteryStore()
	seedMastery(t, mastery, learner, map[string]int{
		"counting": 100, "addition": 82, "multiplication": 40, "shapes": 100,
	})
	calc := NewCalculator(graph, mastery, nil)

	frontierTopics, err := calc.ComputeFrontier(ctx, learner)
	require.NoError(t, err)
	require.NotEmpty(t, frontierTopics)

	for _, topic := range frontierTopics {
		rec, err := mastery.Get(ctx, learner, topic.ID)
		if err == nil {
			assert.Less(t, rec.MasteryLevel, FullMasteryLevel, "topic %s", topic.ID)
		} else {
			assert.ErrorIs(t, err, store.ErrMasteryNotFound)
		}

		prereqs, err := graph.Prerequisites(ctx, topic.ID)
		require.NoError(t, err)
		for _, p := range prereqs {
			prereqRec, err := mastery.Get(ctx, learner, p.ID)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, prereqRec.MasteryLevel, GateMasteryLevel,
				"prerequisite %s of frontier topic %s", p.ID, topic.ID)
		}
	}
}

func TestCanAdvance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	learner := domain.NewSessionLearner("sess-1")

	tests := []struct {
		name     string
		levels   map[string]int
		topicID  string
		expected bool
	}{
		{"root topics are always reachable", nil, "counting", true},
		{"unpracticed prerequisite blocks", nil, "addition", false},
		{"gated prerequisite allows", map[string]int{"counting": 80}, "addition", true},
		{"prerequisite below gate blocks", map[string]int{"counting": 70}, "addition", false},
		{"fully mastered topic cannot be advanced to", map[string]int{"counting": 100}, "counting", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mastery := memory.NewMasteryStore()
			seedMastery(t, mastery, learner, tt.levels)
			calc := NewCalculator(chainGraph(t), mastery, nil)

			got, err := calc.CanAdvance(ctx, learner, tt.topicID)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("unknown topic", func(t *testing.T) {
		t.Parallel()
		calc := NewCalculator(chainGraph(t), memory.NewMasteryStore(), nil)
		_, err := calc.CanAdvance(ctx, learner, "ghost")
		assert.ErrorIs(t, err, store.ErrTopicNotFound)
	})
}

func TestComputeDomainProgress(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	learner := domain.NewSessionLearner("sess-1")
	mastery := memory.NewMasteryStore()
	seedMastery(t, mastery, learner, map[string]int{
		"counting": 90, // mastered
		"addition": 40, // in progress
		"shapes":   0,  // practiced to zero, still not started
	})
	calc := NewCalculator(chainGraph(t), mastery, nil)

	progress, err := calc.ComputeDomainProgress(ctx, learner, "math")
	require.NoError(t, err)

	assert.Equal(t, "math", progress.Domain)
	assert.Equal(t, 4, progress.TotalTopics)
	assert.Equal(t, 1, progress.Mastered)
	assert.Equal(t, 1, progress.InProgress)
	assert.Equal(t, 2, progress.NotStarted)
	assert.InDelta(t, 25.0, progress.Percentage, 0.01)

	empty, err := calc.ComputeDomainProgress(ctx, learner, "history")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalTopics)
	assert.Zero(t, empty.Percentage)
}

package diagnostic

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindenlearn/mastery-api/internal/domain"
	"github.com/lindenlearn/mastery-api/internal/platform/cache"
	"github.com/lindenlearn/mastery-api/internal/platform/memory"
	"github.com/lindenlearn/mastery-api/internal/service/frontier"
	"github.com/lindenlearn/mastery-api/internal/store"
)

func topic(id string, difficulty int) *domain.Topic {
	return &domain.Topic{ID: id, Name: id, Domain: "math", Difficulty: difficulty, XPValue: 10}
}

// curriculumGraph builds:
//
//	counting(1)  shapes(2)          <- roots
//	    |
//	addition(2)
//	    |
//	subtraction(3), multiplication(4)
func curriculumGraph(t *testing.T) store.TopicGraph {
	t.Helper()
	g, err := memory.NewTopicGraph(
		[]*domain.Topic{
			topic("counting", 1),
			topic("shapes", 2),
			topic("addition", 2),
			topic("subtraction", 3),
			topic("multiplication", 4),
		},
		[]domain.PrerequisiteEdge{
			{TopicID: "addition", Prerequisite: "counting"},
			{TopicID: "subtraction", Prerequisite: "addition"},
			{TopicID: "multiplication", Prerequisite: "addition"},
		},
		[]domain.EncompassingEdge{
			{TopicID: "multiplication", Encompassed: "addition"},
		},
	)
	require.NoError(t, err)
	return g
}

// isolatedRoots builds three disconnected roots a(1), b(2), c(3).
func isolatedRoots(t *testing.T) store.TopicGraph {
	t.Helper()
	g, err := memory.NewTopicGraph(
		[]*domain.Topic{topic("a", 1), topic("b", 2), topic("c", 3)},
		nil, nil,
	)
	require.NoError(t, err)
	return g
}

func newTestService(t *testing.T, graph store.TopicGraph) (*Service, store.MasteryStore) {
	t.Helper()
	mastery := memory.NewMasteryStore()
	calc := frontier.NewCalculator(graph, mastery, nil)
	return NewService(graph, mastery, calc, nil, nil), mastery
}

func TestStart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	learner := domain.NewSessionLearner("sess-1")

	t.Run("first probe is the easiest root", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t, curriculumGraph(t))

		session, first, err := svc.Start(ctx, learner)
		require.NoError(t, err)
		assert.Equal(t, "counting", first.ID)
		assert.Equal(t, "counting", session.CurrentTopicID)
		assert.Equal(t, []string{"counting", "shapes"}, session.RootTopicsToTest)
		assert.Equal(t, DefaultMinQuestions, session.MinQuestions)
		assert.Equal(t, DefaultMaxQuestions, session.MaxQuestions)
		assert.False(t, session.Complete)
	})

	t.Run("configured question bounds flow into the session", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t, curriculumGraph(t))
		svc = svc.WithQuestionBounds(2, 5)

		session, _, err := svc.Start(ctx, learner)
		require.NoError(t, err)
		assert.Equal(t, 2, session.MinQuestions)
		assert.Equal(t, 5, session.MaxQuestions)
	})

	t.Run("graph without entry points", func(t *testing.T) {
		t.Parallel()
		g, err := memory.NewTopicGraph(nil, nil, nil)
		require.NoError(t, err)
		svc, _ := newTestService(t, g)

		_, _, err = svc.Start(ctx, learner)
		assert.ErrorIs(t, err, ErrNoRootTopics)
	})

	t.Run("invalid learner", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t, curriculumGraph(t))
		_, _, err := svc.Start(ctx, domain.Learner{})
		assert.ErrorIs(t, err, domain.ErrMissingLearnerIdentity)
	})
}

// TestSubmitAnswerProbing walks a fixed scenario through the chain: correct
// answers climb to dependents, a failure on a non-root drops to
// prerequisites, and the session completes once the minimum is met and the
// preferred direction is exhausted.
func TestSubmitAnswerProbing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	learner := domain.NewSessionLearner("sess-1")
	svc, _ := newTestService(t, curriculumGraph(t))

	session, _, err := svc.Start(ctx, learner)
	require.NoError(t, err)

	// Correct on counting climbs to its dependent.
	step, err := svc.SubmitAnswer(ctx, learner, session, domain.AnswerCorrect)
	require.NoError(t, err)
	require.NotNil(t, step.NextTopic)
	assert.Equal(t, "addition", step.NextTopic.ID)
	assert.Equal(t, 55, step.TentativeMastery)

	// Correct on addition climbs again; the easier dependent comes first.
	step, err = svc.SubmitAnswer(ctx, learner, session, domain.AnswerCorrect)
	require.NoError(t, err)
	require.NotNil(t, step.NextTopic)
	assert.Equal(t, "subtraction", step.NextTopic.ID)

	// Incorrect on subtraction probes downward, but its only prerequisite is
	// already tested and the minimum is met, so the session completes.
	step, err = svc.SubmitAnswer(ctx, learner, session, domain.AnswerIncorrect)
	require.NoError(t, err)
	assert.True(t, step.IsComplete)
	assert.Nil(t, step.NextTopic)
	assert.Equal(t, "", session.CurrentTopicID)

	require.Len(t, session.Results, 3)
	assert.Equal(t, TopicResult{TopicID: "counting", Answer: domain.AnswerCorrect, TentativeMastery: 55}, session.Results[0])
	assert.Equal(t, TopicResult{TopicID: "addition", Answer: domain.AnswerCorrect, TentativeMastery: 55}, session.Results[1])
	assert.Equal(t, TopicResult{TopicID: "subtraction", Answer: domain.AnswerIncorrect, TentativeMastery: 30}, session.Results[2])
}

// TestSubmitAnswerRootFallback covers the sideways path: failing a root moves
// to the next untested root, and exhausting the roots completes the session
// with every answer's tentative mastery on record.
func TestSubmitAnswerRootFallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	learner := domain.NewSessionLearner("sess-1")
	svc, _ := newTestService(t, isolatedRoots(t))

	session, first, err := svc.Start(ctx, learner)
	require.NoError(t, err)
	assert.Equal(t, "a", first.ID)

	// Correct on an isolated root has nothing above it; below the minimum
	// the session falls sideways to the next root instead of completing.
	step, err := svc.SubmitAnswer(ctx, learner, session, domain.AnswerCorrect)
	require.NoError(t, err)
	require.NotNil(t, step.NextTopic)
	assert.Equal(t, "b", step.NextTopic.ID)

	// Incorrect on a root also goes sideways.
	step, err = svc.SubmitAnswer(ctx, learner, session, domain.AnswerIncorrect)
	require.NoError(t, err)
	require.NotNil(t, step.NextTopic)
	assert.Equal(t, "c", step.NextTopic.ID)

	// Last root answered: the graph is exhausted, session completes.
	step, err = svc.SubmitAnswer(ctx, learner, session, domain.AnswerIDontKnow)
	require.NoError(t, err)
	assert.True(t, step.IsComplete)
	assert.Equal(t, 3, session.QuestionsAsked)

	got := map[string]int{}
	for _, r := range session.Results {
		got[r.TopicID] = r.TentativeMastery
	}
	assert.Equal(t, map[string]int{"a": 55, "b": 30, "c": 0}, got)
}

func TestSubmitAnswerRejectsBadInput(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	learner := domain.NewSessionLearner("sess-1")
	svc, _ := newTestService(t, curriculumGraph(t))

	fresh := func(t *testing.T) *Session {
		session, _, err := svc.Start(ctx, learner)
		require.NoError(t, err)
		return session
	}

	t.Run("completed session", func(t *testing.T) {
		t.Parallel()
		session := fresh(t)
		session.Complete = true
		_, err := svc.SubmitAnswer(ctx, learner, session, domain.AnswerCorrect)
		assert.ErrorIs(t, err, ErrSessionComplete)
	})

	t.Run("no current topic", func(t *testing.T) {
		t.Parallel()
		session := fresh(t)
		session.CurrentTopicID = ""
		_, err := svc.SubmitAnswer(ctx, learner, session, domain.AnswerCorrect)
		assert.ErrorIs(t, err, ErrNoCurrentTopic)
	})

	t.Run("unknown answer kind", func(t *testing.T) {
		t.Parallel()
		session := fresh(t)
		_, err := svc.SubmitAnswer(ctx, learner, session, domain.AnswerKind("maybe"))
		assert.ErrorIs(t, err, domain.ErrInvalidAnswerKind)
	})

	t.Run("current topic already tested", func(t *testing.T) {
		t.Parallel()
		session := fresh(t)
		session.TopicsTested = []string{session.CurrentTopicID}
		_, err := svc.SubmitAnswer(ctx, learner, session, domain.AnswerCorrect)
		assert.ErrorIs(t, err, ErrTopicAlreadyTested)
	})

	t.Run("malformed session state", func(t *testing.T) {
		t.Parallel()
		session := fresh(t)
		session.MinQuestions = 0
		_, err := svc.SubmitAnswer(ctx, learner, session, domain.AnswerCorrect)
		assert.ErrorIs(t, err, ErrSessionInvalid)
	})
}

// TestSessionTermination drives the session with several fixed answer
// policies and checks the structural guarantees: it always completes within
// the question cap and never probes the same topic twice.
func TestSessionTermination(t *testing.T) {
	t.Parallel()

	policies := map[string]func(step int) domain.AnswerKind{
		"always correct":   func(int) domain.AnswerKind { return domain.AnswerCorrect },
		"always incorrect": func(int) domain.AnswerKind { return domain.AnswerIncorrect },
		"always idontknow": func(int) domain.AnswerKind { return domain.AnswerIDontKnow },
		"alternating": func(step int) domain.AnswerKind {
			if step%2 == 0 {
				return domain.AnswerCorrect
			}
			return domain.AnswerIncorrect
		},
	}

	for name, policy := range policies {
		policy := policy
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			learner := domain.NewSessionLearner("sess-1")
			svc, _ := newTestService(t, curriculumGraph(t))

			session, _, err := svc.Start(ctx, learner)
			require.NoError(t, err)

			for step := 0; !session.Complete; step++ {
				require.Less(t, step, DefaultMaxQuestions, "session must complete within the cap")
				_, err := svc.SubmitAnswer(ctx, learner, session, policy(step))
				require.NoError(t, err)
			}

			assert.LessOrEqual(t, session.QuestionsAsked, DefaultMaxQuestions)
			seen := map[string]bool{}
			for _, id := range session.TopicsTested {
				assert.False(t, seen[id], "topic %s probed twice", id)
				seen[id] = true
			}
		})
	}
}

func TestSessionForcedCompletionAtCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	learner := domain.NewSessionLearner("sess-1")
	svc, _ := newTestService(t, curriculumGraph(t))

	session, _, err := svc.Start(ctx, learner)
	require.NoError(t, err)
	session.MinQuestions = 1
	session.MaxQuestions = 1

	step, err := svc.SubmitAnswer(ctx, learner, session, domain.AnswerCorrect)
	require.NoError(t, err)
	assert.True(t, step.IsComplete, "cap reached forces completion even with candidates left")
}

func TestComplete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	learner := domain.NewSessionLearner("sess-1")
	svc, mastery := newTestService(t, curriculumGraph(t))

	results := []TopicResult{
		{TopicID: "counting", Answer: domain.AnswerCorrect, TentativeMastery: 55},
		{TopicID: "shapes", Answer: domain.AnswerIDontKnow, TentativeMastery: 0},
	}

	placement, err := svc.Complete(ctx, learner, results)
	require.NoError(t, err)

	// Every answered topic is persisted at its tentative mastery.
	rec, err := mastery.Get(ctx, learner, "counting")
	require.NoError(t, err)
	assert.Equal(t, 55, rec.MasteryLevel)
	rec, err = mastery.Get(ctx, learner, "shapes")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.MasteryLevel)

	// counting at 55 is below the gate, so the frontier is just the roots.
	frontierIDs := map[string]bool{}
	for _, topic := range placement.Frontier {
		frontierIDs[topic.ID] = true
	}
	assert.Equal(t, map[string]bool{"counting": true, "shapes": true}, frontierIDs)

	// A partially-known topic outranks an unknown one as the starting point.
	require.NotNil(t, placement.RecommendedTopic)
	assert.Equal(t, "counting", placement.RecommendedTopic.ID)

	assert.Equal(t, 2, placement.Summary.TopicsTested)
	assert.Equal(t, []string{"counting"}, placement.Summary.StrongUnderstanding)
	assert.Empty(t, placement.Summary.NeedsWork)
	assert.Equal(t, []string{"shapes"}, placement.Summary.Unknown)
}

func TestCompleteRejectsInvalidResults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t, curriculumGraph(t))

	_, err := svc.Complete(ctx, domain.NewSessionLearner("sess-1"), []TopicResult{
		{TopicID: "counting", Answer: domain.AnswerKind("maybe")},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAnswerKind)
}

// TestSubmitAnswerReplayRejected covers the retry case the session's own
// tested set cannot: the client resends an answer with the session copy it
// held before the first submission went through.
func TestSubmitAnswerReplayRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	learner := domain.NewSessionLearner("sess-1")

	graph := curriculumGraph(t)
	mastery := memory.NewMasteryStore()
	calc := frontier.NewCalculator(graph, mastery, nil)
	seen := cache.NewMemorySeenTopics(time.Hour)
	svc := NewService(graph, mastery, calc, seen, nil)

	session, _, err := svc.Start(ctx, learner)
	require.NoError(t, err)

	// Snapshot the session as a client would hold it on the wire.
	staleJSON, err := json.Marshal(session)
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(ctx, learner, session, domain.AnswerCorrect)
	require.NoError(t, err)

	var stale Session
	require.NoError(t, json.Unmarshal(staleJSON, &stale))
	_, err = svc.SubmitAnswer(ctx, learner, &stale, domain.AnswerCorrect)
	assert.ErrorIs(t, err, ErrTopicAlreadyTested)

	// A fresh diagnostic clears the guard for the same learner.
	session, first, err := svc.Start(ctx, learner)
	require.NoError(t, err)
	require.Equal(t, "counting", first.ID)
	_, err = svc.SubmitAnswer(ctx, learner, session, domain.AnswerCorrect)
	assert.NoError(t, err)
}

func TestSessionValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Session {
		return &Session{
			TopicsTested:     []string{"a"},
			RootTopicsToTest: []string{"a", "b"},
			TestedRootTopics: []string{"a"},
			QuestionsAsked:   1,
			MinQuestions:     3,
			MaxQuestions:     10,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Session)
		wantErr bool
	}{
		{"well-formed", func(*Session) {}, false},
		{"zero min questions", func(s *Session) { s.MinQuestions = 0 }, true},
		{"max below min", func(s *Session) { s.MaxQuestions = 2 }, true},
		{"asked beyond max", func(s *Session) { s.QuestionsAsked = 11 }, true},
		{"duplicate tested topic", func(s *Session) { s.TopicsTested = []string{"a", "a"} }, true},
		{"empty tested topic id", func(s *Session) { s.TopicsTested = []string{""} }, true},
		{"tested root not a session root", func(s *Session) { s.TestedRootTopics = []string{"z"} }, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			session := valid()
			tt.mutate(session)
			err := session.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSessionInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

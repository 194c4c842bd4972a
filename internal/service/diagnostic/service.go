package diagnostic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/lindenlearn/mastery-api/internal/domain"
	"github.com/lindenlearn/mastery-api/internal/platform/cache"
	"github.com/lindenlearn/mastery-api/internal/platform/logger"
	"github.com/lindenlearn/mastery-api/internal/service/frontier"
	"github.com/lindenlearn/mastery-api/internal/store"
)

// ErrNoRootTopics indicates the topic graph has no valid diagnostic entry
// points. This is a content-authoring error, not a learner error.
var ErrNoRootTopics = errors.New("topic graph has no root topics")

// StepResult is the outcome of submitting one answer: the advanced session,
// the next probe if the session continues, and the tentative mastery
// recorded for the answered topic.
type StepResult struct {
	Session          *Session      `json:"session"`
	NextTopic        *domain.Topic `json:"next_topic,omitempty"`
	IsComplete       bool          `json:"is_complete"`
	TentativeMastery int           `json:"tentative_mastery"`
}

// PlacementSummary groups the tested topics by how they were answered.
type PlacementSummary struct {
	TopicsTested        int      `json:"topics_tested"`
	StrongUnderstanding []string `json:"strong_understanding"`
	NeedsWork           []string `json:"needs_work"`
	Unknown             []string `json:"unknown"`
}

// PlacementResult is the outcome of completing a diagnostic: the learner's
// frontier, a single recommended starting topic, and a summary of the run.
type PlacementResult struct {
	Frontier         []*domain.Topic  `json:"frontier"`
	RecommendedTopic *domain.Topic    `json:"recommended_topic,omitempty"`
	Summary          PlacementSummary `json:"summary"`
}

// Service runs placement sessions. The session state itself is caller-owned;
// the service is a function from (state, answer) to (state, next probe) and
// only touches the mastery store at completion.
type Service struct {
	graph        store.TopicGraph
	mastery      store.MasteryStore
	frontier     *frontier.Calculator
	seen         cache.SeenTopics
	logger       *slog.Logger
	minQuestions int
	maxQuestions int
}

// NewService creates a diagnostic service. The seen cache is best-effort
// replay protection and may be nil; session correctness never depends on it.
// If log is nil, a default logger will be used.
func NewService(
	graph store.TopicGraph,
	mastery store.MasteryStore,
	frontierCalc *frontier.Calculator,
	seen cache.SeenTopics,
	log *slog.Logger,
) *Service {
	if graph == nil {
		panic("graph cannot be nil")
	}
	if mastery == nil {
		panic("mastery cannot be nil")
	}
	if frontierCalc == nil {
		panic("frontierCalc cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		graph:        graph,
		mastery:      mastery,
		frontier:     frontierCalc,
		seen:         seen,
		logger:       log.With(slog.String("component", "diagnostic_service")),
		minQuestions: DefaultMinQuestions,
		maxQuestions: DefaultMaxQuestions,
	}
}

// WithQuestionBounds overrides the session question bounds. Zero values keep
// the defaults; maxQuestions below minQuestions is corrected upward.
func (s *Service) WithQuestionBounds(minQuestions, maxQuestions int) *Service {
	if minQuestions > 0 {
		s.minQuestions = minQuestions
	}
	if maxQuestions > 0 {
		s.maxQuestions = maxQuestions
	}
	if s.maxQuestions < s.minQuestions {
		s.maxQuestions = s.minQuestions
	}
	return s
}

// Start begins a placement session for the learner. The entry points are
// all root topics sorted ascending by difficulty; the first probe is the
// easiest root. Returns ErrNoRootTopics if the graph has no entry points.
func (s *Service) Start(ctx context.Context, learner domain.Learner) (*Session, *domain.Topic, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := learner.Validate(); err != nil {
		return nil, nil, err
	}

	roots, err := s.graph.RootTopics(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(roots) == 0 {
		return nil, nil, ErrNoRootTopics
	}

	rootIDs := make([]string, len(roots))
	for i, r := range roots {
		rootIDs[i] = r.ID
	}

	session := &Session{
		RootTopicsToTest: rootIDs,
		CurrentTopicID:   roots[0].ID,
		MinQuestions:     s.minQuestions,
		MaxQuestions:     s.maxQuestions,
	}

	s.resetSeen(ctx, learner)

	log.Info("diagnostic started",
		slog.String("learner", learner.String()),
		slog.Int("root_topics", len(roots)),
		slog.String("first_topic", roots[0].ID))
	return session, roots[0], nil
}

// SubmitAnswer advances the session by one answer. The answered topic joins
// the tested set (never re-selected afterward), its tentative mastery is
// recorded in the session, and the next probe is chosen by direction:
// upward through untested dependents on a correct answer, downward through
// untested prerequisites on a failed one, sideways to remaining roots when
// the failed topic is itself a root or the preferred direction is
// exhausted. Nothing is persisted here; results travel with the session
// until Complete. The seen cache catches replayed requests that carry a
// stale session copy, which the session's own tested set cannot see.
func (s *Service) SubmitAnswer(
	ctx context.Context,
	learner domain.Learner,
	session *Session,
	answer domain.AnswerKind,
) (*StepResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := learner.Validate(); err != nil {
		return nil, err
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if session.Complete {
		return nil, ErrSessionComplete
	}
	if session.CurrentTopicID == "" {
		return nil, ErrNoCurrentTopic
	}
	if !answer.Valid() {
		return nil, domain.ErrInvalidAnswerKind
	}
	if session.HasTested(session.CurrentTopicID) {
		return nil, fmt.Errorf("%w: %s", ErrTopicAlreadyTested, session.CurrentTopicID)
	}

	if s.alreadyAnswered(ctx, learner, session.CurrentTopicID) {
		return nil, fmt.Errorf("%w: %s", ErrTopicAlreadyTested, session.CurrentTopicID)
	}

	current, err := s.graph.GetTopic(ctx, session.CurrentTopicID)
	if err != nil {
		return nil, err
	}

	currentIsRoot := session.IsRoot(current.ID)
	session.markTested(current.ID)
	session.QuestionsAsked++
	s.markSeen(ctx, learner, current.ID)

	tentative := answer.TentativeMastery()
	session.Results = append(session.Results, TopicResult{
		TopicID:          current.ID,
		Answer:           answer,
		TentativeMastery: tentative,
	})

	next, err := s.nextProbe(ctx, session, current, directionFor(answer, currentIsRoot))
	if err != nil {
		return nil, err
	}

	if next == nil {
		session.Complete = true
		session.CurrentTopicID = ""
		log.Info("diagnostic complete",
			slog.String("learner", learner.String()),
			slog.Int("questions_asked", session.QuestionsAsked))
		return &StepResult{Session: session, IsComplete: true, TentativeMastery: tentative}, nil
	}

	session.CurrentTopicID = next.ID

	log.Debug("diagnostic advanced",
		slog.String("learner", learner.String()),
		slog.String("answered_topic", current.ID),
		slog.String("answer", string(answer)),
		slog.String("next_topic", next.ID))
	return &StepResult{Session: session, NextTopic: next, TentativeMastery: tentative}, nil
}

// nextProbe selects the next topic, or nil when the session should
// complete. Completion forces at maxQuestions; below minQuestions the root
// fallback keeps the session alive until the graph is genuinely exhausted.
func (s *Service) nextProbe(
	ctx context.Context,
	session *Session,
	current *domain.Topic,
	direction probeDirection,
) (*domain.Topic, error) {
	if session.QuestionsAsked >= session.MaxQuestions {
		return nil, nil
	}

	var candidates []*domain.Topic
	var err error
	switch direction {
	case probeUp:
		candidates, err = s.graph.Dependents(ctx, current.ID)
	case probeDown:
		candidates, err = s.graph.Prerequisites(ctx, current.ID)
	case probeSideways:
		// Handled by the root fallback below.
	}
	if err != nil {
		return nil, err
	}

	if next := s.firstUntested(session, candidates); next != nil {
		return next, nil
	}

	// Preferred direction exhausted: complete once past the minimum,
	// otherwise fall back to the easiest untested root.
	if direction != probeSideways && session.QuestionsAsked >= session.MinQuestions {
		return nil, nil
	}

	for _, rootID := range session.untestedRoots() {
		topic, err := s.graph.GetTopic(ctx, rootID)
		if err != nil {
			return nil, err
		}
		return topic, nil
	}

	// Every candidate everywhere is tested; exhaustion is a normal path to
	// completion, not an error.
	return nil, nil
}

// firstUntested returns the first candidate not yet probed this session.
// Candidates arrive ordered by ascending difficulty from the graph.
func (s *Service) firstUntested(session *Session, candidates []*domain.Topic) *domain.Topic {
	for _, c := range candidates {
		if !session.HasTested(c.ID) {
			return c
		}
	}
	return nil
}

// Complete persists the tentative mastery for every tested topic, then
// computes the learner's frontier and ranks a recommended starting point.
func (s *Service) Complete(
	ctx context.Context,
	learner domain.Learner,
	results []TopicResult,
) (*PlacementResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := learner.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	summary := PlacementSummary{TopicsTested: len(results)}
	for _, result := range results {
		if !result.Answer.Valid() {
			return nil, domain.ErrInvalidAnswerKind
		}
		if _, err := s.mastery.Upsert(ctx, learner, result.TopicID, result.Answer.TentativeMastery(), now); err != nil {
			return nil, fmt.Errorf("failed to persist placement for topic %s: %w", result.TopicID, err)
		}
		switch result.Answer {
		case domain.AnswerCorrect:
			summary.StrongUnderstanding = append(summary.StrongUnderstanding, result.TopicID)
		case domain.AnswerIncorrect:
			summary.NeedsWork = append(summary.NeedsWork, result.TopicID)
		default:
			summary.Unknown = append(summary.Unknown, result.TopicID)
		}
	}

	frontierTopics, err := s.frontier.ComputeFrontier(ctx, learner)
	if err != nil {
		return nil, err
	}

	recommended, err := s.recommend(ctx, learner, frontierTopics, results)
	if err != nil {
		return nil, err
	}

	s.resetSeen(ctx, learner)

	log.Info("placement persisted",
		slog.String("learner", learner.String()),
		slog.Int("topics_tested", len(results)),
		slog.Int("frontier_size", len(frontierTopics)))
	return &PlacementResult{
		Frontier:         frontierTopics,
		RecommendedTopic: recommended,
		Summary:          summary,
	}, nil
}

// recommend ranks the frontier for a single starting point:
// (1) topics already at 50-99 mastery, highest first; (2) untested root
// topics; (3) other untested topics; (4) ascending difficulty as the final
// tie-break within each group.
func (s *Service) recommend(
	ctx context.Context,
	learner domain.Learner,
	frontierTopics []*domain.Topic,
	results []TopicResult,
) (*domain.Topic, error) {
	if len(frontierTopics) == 0 {
		return nil, nil
	}

	records, err := s.mastery.GetAll(ctx, learner)
	if err != nil {
		return nil, err
	}

	tested := make(map[string]bool, len(results))
	for _, r := range results {
		tested[r.TopicID] = true
	}

	roots, err := s.graph.RootTopics(ctx)
	if err != nil {
		return nil, err
	}
	rootSet := make(map[string]bool, len(roots))
	for _, r := range roots {
		rootSet[r.ID] = true
	}

	var nearlyComplete, untestedRoots, untestedOthers, rest []*domain.Topic
	for _, topic := range frontierTopics {
		level := 0
		if rec, ok := records[topic.ID]; ok {
			level = rec.MasteryLevel
		}
		switch {
		case level >= 50 && level <= 99:
			nearlyComplete = append(nearlyComplete, topic)
		case !tested[topic.ID] && rootSet[topic.ID]:
			untestedRoots = append(untestedRoots, topic)
		case !tested[topic.ID]:
			untestedOthers = append(untestedOthers, topic)
		default:
			rest = append(rest, topic)
		}
	}

	sort.SliceStable(nearlyComplete, func(i, j int) bool {
		li, lj := records[nearlyComplete[i].ID].MasteryLevel, records[nearlyComplete[j].ID].MasteryLevel
		if li != lj {
			return li > lj
		}
		return nearlyComplete[i].Difficulty < nearlyComplete[j].Difficulty
	})
	byDifficulty := func(topics []*domain.Topic) {
		sort.SliceStable(topics, func(i, j int) bool {
			if topics[i].Difficulty != topics[j].Difficulty {
				return topics[i].Difficulty < topics[j].Difficulty
			}
			return topics[i].ID < topics[j].ID
		})
	}
	byDifficulty(untestedRoots)
	byDifficulty(untestedOthers)
	byDifficulty(rest)

	for _, group := range [][]*domain.Topic{nearlyComplete, untestedRoots, untestedOthers, rest} {
		if len(group) > 0 {
			return group[0], nil
		}
	}
	return nil, nil
}

// Seen-cache calls are strictly best-effort: failures are logged and
// ignored so a cache outage can never fail a placement.

func (s *Service) resetSeen(ctx context.Context, learner domain.Learner) {
	if s.seen == nil {
		return
	}
	if err := s.seen.Reset(ctx, learner); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to reset seen-topic cache",
			slog.String("error", err.Error()),
			slog.String("learner", learner.String()))
	}
}

func (s *Service) markSeen(ctx context.Context, learner domain.Learner, topicID string) {
	if s.seen == nil {
		return
	}
	if err := s.seen.MarkSeen(ctx, learner, topicID); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to mark topic seen",
			slog.String("error", err.Error()),
			slog.String("topic_id", topicID))
	}
}

func (s *Service) alreadyAnswered(ctx context.Context, learner domain.Learner, topicID string) bool {
	if s.seen == nil {
		return false
	}
	seen, err := s.seen.Seen(ctx, learner, topicID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to check seen-topic cache",
			slog.String("error", err.Error()),
			slog.String("topic_id", topicID))
		return false
	}
	return seen
}

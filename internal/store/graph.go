package store

import (
	"context"

	"github.com/lindenlearn/mastery-api/internal/domain"
)

// TopicGraph defines the read interface for the curriculum graph: topics,
// their prerequisite edges, and their encompassing edges.
//
// Implementations must validate acyclicity of the prerequisite relation at
// load time and return ErrCyclicPrerequisites rather than serve a cyclic
// graph. Unknown topic IDs yield ErrTopicNotFound; a known topic with no
// edges yields an empty slice, never an error. All list results whose order
// matters are sorted by difficulty ascending with topic ID as the
// tie-breaker so traversal is deterministic.
type TopicGraph interface {
	// GetTopic retrieves a topic by its ID.
	// Returns ErrTopicNotFound if the topic does not exist.
	GetTopic(ctx context.Context, topicID string) (*domain.Topic, error)

	// AllTopics returns every topic in the graph, difficulty ascending.
	AllTopics(ctx context.Context) ([]*domain.Topic, error)

	// TopicsByDomain returns the topics belonging to a subject domain,
	// difficulty ascending. An unknown domain yields an empty slice.
	TopicsByDomain(ctx context.Context, subjectDomain string) ([]*domain.Topic, error)

	// Prerequisites returns the direct prerequisites of a topic.
	// Returns ErrTopicNotFound if the topic does not exist.
	Prerequisites(ctx context.Context, topicID string) ([]*domain.Topic, error)

	// Dependents returns the topics that list topicID as a direct
	// prerequisite, difficulty ascending.
	// Returns ErrTopicNotFound if the topic does not exist.
	Dependents(ctx context.Context, topicID string) ([]*domain.Topic, error)

	// Encompassed returns the topics that topicID encompasses, i.e. the
	// topics implicitly practiced when topicID is practiced.
	// Returns ErrTopicNotFound if the topic does not exist.
	Encompassed(ctx context.Context, topicID string) ([]*domain.Topic, error)

	// Encompassing returns the topics that encompass topicID.
	// Returns ErrTopicNotFound if the topic does not exist.
	Encompassing(ctx context.Context, topicID string) ([]*domain.Topic, error)

	// RootTopics returns the topics with no prerequisites, difficulty
	// ascending. These are the diagnostic entry points.
	RootTopics(ctx context.Context) ([]*domain.Topic, error)
}

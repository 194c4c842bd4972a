// Package postgres provides PostgreSQL-backed implementations of the store
// interfaces.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lindenlearn/mastery-api/internal/domain"
	"github.com/lindenlearn/mastery-api/internal/platform/logger"
	"github.com/lindenlearn/mastery-api/internal/store"
)

// PostgreSQL error codes
const (
	pgForeignKeyViolationCode = "23503"
	pgUniqueViolationCode     = "23505"
)

// PostgresTopicGraph implements the store.TopicGraph interface
// using a PostgreSQL database as the storage backend. The curriculum tables
// are written by content tooling; this type only reads them.
type PostgresTopicGraph struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTopicGraph creates a new PostgreSQL implementation of the
// TopicGraph interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTopicGraph(db store.DBTX, logger *slog.Logger) *PostgresTopicGraph {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTopicGraph{
		db:     db,
		logger: logger.With(slog.String("component", "topic_graph")),
	}
}

// Ensure PostgresTopicGraph implements store.TopicGraph interface
var _ store.TopicGraph = (*PostgresTopicGraph)(nil)

const topicColumns = "id, name, domain, difficulty, xp_value"

// GetTopic implements store.TopicGraph.GetTopic
func (g *PostgresTopicGraph) GetTopic(ctx context.Context, topicID string) (*domain.Topic, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	query := `
		SELECT ` + topicColumns + `
		FROM topics
		WHERE id = $1
	`

	var topic domain.Topic
	err := g.db.QueryRowContext(ctx, query, topicID).Scan(
		&topic.ID,
		&topic.Name,
		&topic.Domain,
		&topic.Difficulty,
		&topic.XPValue,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("topic not found", slog.String("topic_id", topicID))
			return nil, store.ErrTopicNotFound
		}
		log.Error("failed to get topic by ID",
			slog.String("error", err.Error()),
			slog.String("topic_id", topicID))
		return nil, wrapUnavailable(err)
	}

	return &topic, nil
}

// AllTopics implements store.TopicGraph.AllTopics
func (g *PostgresTopicGraph) AllTopics(ctx context.Context) ([]*domain.Topic, error) {
	query := `
		SELECT ` + topicColumns + `
		FROM topics
		ORDER BY difficulty ASC, id ASC
	`
	return g.queryTopics(ctx, query)
}

// TopicsByDomain implements store.TopicGraph.TopicsByDomain
func (g *PostgresTopicGraph) TopicsByDomain(ctx context.Context, subjectDomain string) ([]*domain.Topic, error) {
	query := `
		SELECT ` + topicColumns + `
		FROM topics
		WHERE domain = $1
		ORDER BY difficulty ASC, id ASC
	`
	return g.queryTopics(ctx, query, subjectDomain)
}

// Prerequisites implements store.TopicGraph.Prerequisites
func (g *PostgresTopicGraph) Prerequisites(ctx context.Context, topicID string) ([]*domain.Topic, error) {
	if err := g.requireTopic(ctx, topicID); err != nil {
		return nil, err
	}
	query := `
		SELECT t.id, t.name, t.domain, t.difficulty, t.xp_value
		FROM topic_prerequisites p
		JOIN topics t ON t.id = p.prerequisite_id
		WHERE p.topic_id = $1
		ORDER BY t.difficulty ASC, t.id ASC
	`
	return g.queryTopics(ctx, query, topicID)
}

// Dependents implements store.TopicGraph.Dependents
func (g *PostgresTopicGraph) Dependents(ctx context.Context, topicID string) ([]*domain.Topic, error) {
	if err := g.requireTopic(ctx, topicID); err != nil {
		return nil, err
	}
	query := `
		SELECT t.id, t.name, t.domain, t.difficulty, t.xp_value
		FROM topic_prerequisites p
		JOIN topics t ON t.id = p.topic_id
		WHERE p.prerequisite_id = $1
		ORDER BY t.difficulty ASC, t.id ASC
	`
	return g.queryTopics(ctx, query, topicID)
}

// Encompassed implements store.TopicGraph.Encompassed
func (g *PostgresTopicGraph) Encompassed(ctx context.Context, topicID string) ([]*domain.Topic, error) {
	if err := g.requireTopic(ctx, topicID); err != nil {
		return nil, err
	}
	query := `
		SELECT t.id, t.name, t.domain, t.difficulty, t.xp_value
		FROM topic_encompassings e
		JOIN topics t ON t.id = e.encompassed_id
		WHERE e.topic_id = $1
		ORDER BY t.difficulty ASC, t.id ASC
	`
	return g.queryTopics(ctx, query, topicID)
}

// Encompassing implements store.TopicGraph.Encompassing
func (g *PostgresTopicGraph) Encompassing(ctx context.Context, topicID string) ([]*domain.Topic, error) {
	if err := g.requireTopic(ctx, topicID); err != nil {
		return nil, err
	}
	query := `
		SELECT t.id, t.name, t.domain, t.difficulty, t.xp_value
		FROM topic_encompassings e
		JOIN topics t ON t.id = e.topic_id
		WHERE e.encompassed_id = $1
		ORDER BY t.difficulty ASC, t.id ASC
	`
	return g.queryTopics(ctx, query, topicID)
}

// RootTopics implements store.TopicGraph.RootTopics
func (g *PostgresTopicGraph) RootTopics(ctx context.Context) ([]*domain.Topic, error) {
	query := `
		SELECT ` + topicColumns + `
		FROM topics t
		WHERE NOT EXISTS (
			SELECT 1 FROM topic_prerequisites p WHERE p.topic_id = t.id
		)
		ORDER BY difficulty ASC, id ASC
	`
	return g.queryTopics(ctx, query)
}

// ValidateAcyclic walks the full prerequisite relation with Kahn's algorithm
// and returns store.ErrCyclicPrerequisites if any cycle exists. Called once
// at startup; a cyclic graph is a content error and the process must not
// serve it.
func (g *PostgresTopicGraph) ValidateAcyclic(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, g.logger)

	topics, err := g.AllTopics(ctx)
	if err != nil {
		return err
	}

	query := `SELECT topic_id, prerequisite_id FROM topic_prerequisites`
	rows, err := g.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to load prerequisite edges",
			slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	indegree := make(map[string]int, len(topics))
	dependents := make(map[string][]string)
	for _, t := range topics {
		indegree[t.ID] = 0
	}
	for rows.Next() {
		var topicID, prereqID string
		if err := rows.Scan(&topicID, &prereqID); err != nil {
			log.Error("failed to scan prerequisite edge",
				slog.String("error", err.Error()))
			return err
		}
		indegree[topicID]++
		dependents[prereqID] = append(dependents[prereqID], topicID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	queue := make([]string, 0, len(indegree))
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
		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited != len(indegree) {
		log.Error("prerequisite graph contains a cycle",
			slog.Int("topics", len(indegree)),
			slog.Int("acyclic_reachable", visited))
		return store.ErrCyclicPrerequisites
	}
	return nil
}

// requireTopic distinguishes "topic has no edges" from "topic does not
// exist" for the edge queries, which would otherwise both scan zero rows.
func (g *PostgresTopicGraph) requireTopic(ctx context.Context, topicID string) error {
	var exists bool
	err := g.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM topics WHERE id = $1)`, topicID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrTopicNotFound
	}
	return nil
}

func (g *PostgresTopicGraph) queryTopics(ctx context.Context, query string, args ...any) ([]*domain.Topic, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query topics",
			slog.String("error", err.Error()))
		return nil, wrapUnavailable(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var topics []*domain.Topic
	for rows.Next() {
		var topic domain.Topic
		err := rows.Scan(
			&topic.ID,
			&topic.Name,
			&topic.Domain,
			&topic.Difficulty,
			&topic.XPValue,
		)
		if err != nil {
			log.Error("failed to scan topic row",
				slog.String("error", err.Error()))
			return nil, err
		}
		topics = append(topics, &topic)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	if topics == nil {
		topics = []*domain.Topic{}
	}
	return topics, nil
}

// wrapUnavailable converts low-level connectivity failures into the store's
// sentinel so callers never mistake them for missing data.
func wrapUnavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return err
}

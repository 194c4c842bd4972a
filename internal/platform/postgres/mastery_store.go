package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lindenlearn/mastery-api/internal/domain"
	"github.com/lindenlearn/mastery-api/internal/platform/logger"
	"github.com/lindenlearn/mastery-api/internal/store"
)

// PostgresMasteryStore implements the store.MasteryStore interface
// using a PostgreSQL database as the storage backend.
//
// Learner scoping relies on the learner_mastery table's exactly-one-identity
// CHECK constraint plus partial unique indexes on (user_id, topic_id) and
// (session_id, topic_id); Upsert targets whichever index matches the
// learner, so concurrent upserts for the same pair collapse into one row.
type PostgresMasteryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMasteryStore creates a new PostgreSQL implementation of the
// MasteryStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresMasteryStore(db store.DBTX, logger *slog.Logger) *PostgresMasteryStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMasteryStore{
		db:     db,
		logger: logger.With(slog.String("component", "mastery_store")),
	}
}

// Ensure PostgresMasteryStore implements store.MasteryStore interface
var _ store.MasteryStore = (*PostgresMasteryStore)(nil)

const masteryColumns = "id, user_id, session_id, topic_id, mastery_level, last_practiced, next_review, created_at, updated_at"

// learnerArgs maps the learner onto nullable (user_id, session_id) query
// arguments. Queries compare with IS NOT DISTINCT FROM so the unset side
// matches NULL.
func learnerArgs(learner domain.Learner) (userID any, sessionID any) {
	if learner.IsAnonymous() {
		return nil, learner.SessionID
	}
	return learner.UserID, nil
}

// Get implements store.MasteryStore.Get
func (s *PostgresMasteryStore) Get(ctx context.Context, learner domain.Learner, topicID string) (*domain.MasteryRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := learner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		SELECT ` + masteryColumns + `
		FROM learner_mastery
		WHERE user_id IS NOT DISTINCT FROM $1
		  AND session_id IS NOT DISTINCT FROM $2
		  AND topic_id = $3
	`

	userID, sessionID := learnerArgs(learner)
	record, err := scanMasteryRow(s.db.QueryRowContext(ctx, query, userID, sessionID, topicID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("mastery record not found",
				slog.String("learner", learner.String()),
				slog.String("topic_id", topicID))
			return nil, store.ErrMasteryNotFound
		}
		log.Error("failed to get mastery record",
			slog.String("error", err.Error()),
			slog.String("learner", learner.String()),
			slog.String("topic_id", topicID))
		return nil, wrapUnavailable(err)
	}

	return record, nil
}

// GetAll implements store.MasteryStore.GetAll
func (s *PostgresMasteryStore) GetAll(ctx context.Context, learner domain.Learner) (map[string]*domain.MasteryRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := learner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		SELECT ` + masteryColumns + `
		FROM learner_mastery
		WHERE user_id IS NOT DISTINCT FROM $1
		  AND session_id IS NOT DISTINCT FROM $2
	`

	userID, sessionID := learnerArgs(learner)
	rows, err := s.db.QueryContext(ctx, query, userID, sessionID)
	if err != nil {
		log.Error("failed to query mastery records",
			slog.String("error", err.Error()),
			slog.String("learner", learner.String()))
		return nil, wrapUnavailable(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	records := make(map[string]*domain.MasteryRecord)
	for rows.Next() {
		record, err := scanMasteryRows(rows)
		if err != nil {
			log.Error("failed to scan mastery row",
				slog.String("error", err.Error()))
			return nil, err
		}
		records[record.TopicID] = record
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, wrapUnavailable(err)
	}

	return records, nil
}

// Upsert implements store.MasteryStore.Upsert
// The write is a single INSERT ... ON CONFLICT DO UPDATE against the
// identity-appropriate partial unique index, so create-or-replace is atomic
// under concurrency.
func (s *PostgresMasteryStore) Upsert(
	ctx context.Context,
	learner domain.Learner,
	topicID string,
	level int,
	now time.Time,
) (*domain.MasteryRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := learner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if topicID == "" {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEmptyTopicID)
	}

	level = domain.ClampMastery(level)

	conflictTarget := "(user_id, topic_id) WHERE user_id IS NOT NULL"
	if learner.IsAnonymous() {
		conflictTarget = "(session_id, topic_id) WHERE session_id IS NOT NULL"
	}

	query := `
		INSERT INTO learner_mastery
			(id, user_id, session_id, topic_id, mastery_level, last_practiced, next_review, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, $6, $6)
		ON CONFLICT ` + conflictTarget + ` DO UPDATE SET
			mastery_level  = EXCLUDED.mastery_level,
			last_practiced = EXCLUDED.last_practiced,
			next_review    = NULL,
			updated_at     = EXCLUDED.updated_at
		RETURNING ` + masteryColumns + `
	`

	userID, sessionID := learnerArgs(learner)
	record, err := scanMasteryRow(s.db.QueryRowContext(
		ctx,
		query,
		uuid.New(),
		userID,
		sessionID,
		topicID,
		level,
		now,
	))

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgForeignKeyViolationCode:
				log.Warn("foreign key violation during mastery upsert",
					slog.String("error", err.Error()),
					slog.String("topic_id", topicID))
				return nil, fmt.Errorf("%w: topic %s", store.ErrTopicNotFound, topicID)
			case pgUniqueViolationCode:
				// ON CONFLICT arbitrates a single index; a violation on any
				// other unique constraint means a concurrent writer won the
				// row. The write is retryable.
				log.Warn("unique violation during mastery upsert",
					slog.String("error", err.Error()),
					slog.String("topic_id", topicID))
				return nil, fmt.Errorf("%w: concurrent write for topic %s", store.ErrUnavailable, topicID)
			}
		}
		log.Error("failed to upsert mastery record",
			slog.String("error", err.Error()),
			slog.String("learner", learner.String()),
			slog.String("topic_id", topicID))
		return nil, wrapUnavailable(err)
	}

	log.Info("mastery record upserted",
		slog.String("learner", learner.String()),
		slog.String("topic_id", topicID),
		slog.Int("mastery_level", record.MasteryLevel))
	return record, nil
}

// SetNextReview implements store.MasteryStore.SetNextReview
func (s *PostgresMasteryStore) SetNextReview(ctx context.Context, learner domain.Learner, topicID string, nextReview time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := learner.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE learner_mastery
		SET next_review = $1, updated_at = $2
		WHERE user_id IS NOT DISTINCT FROM $3
		  AND session_id IS NOT DISTINCT FROM $4
		  AND topic_id = $5
	`

	userID, sessionID := learnerArgs(learner)
	result, err := s.db.ExecContext(ctx, query, nextReview, time.Now().UTC(), userID, sessionID, topicID)
	if err != nil {
		log.Error("failed to set next review",
			slog.String("error", err.Error()),
			slog.String("learner", learner.String()),
			slog.String("topic_id", topicID))
		return wrapUnavailable(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("topic_id", topicID))
		return err
	}
	if rowsAffected == 0 {
		log.Debug("mastery record not found for review scheduling",
			slog.String("learner", learner.String()),
			slog.String("topic_id", topicID))
		return store.ErrMasteryNotFound
	}

	return nil
}

// GetDue implements store.MasteryStore.GetDue
func (s *PostgresMasteryStore) GetDue(ctx context.Context, learner domain.Learner, now time.Time) ([]*domain.MasteryRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := learner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		SELECT ` + masteryColumns + `
		FROM learner_mastery
		WHERE user_id IS NOT DISTINCT FROM $1
		  AND session_id IS NOT DISTINCT FROM $2
		  AND next_review IS NOT NULL
		  AND next_review <= $3
		  AND mastery_level > 0
		ORDER BY next_review ASC, topic_id ASC
	`

	userID, sessionID := learnerArgs(learner)
	rows, err := s.db.QueryContext(ctx, query, userID, sessionID, now)
	if err != nil {
		log.Error("failed to query due reviews",
			slog.String("error", err.Error()),
			slog.String("learner", learner.String()))
		return nil, wrapUnavailable(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var due []*domain.MasteryRecord
	for rows.Next() {
		record, err := scanMasteryRows(rows)
		if err != nil {
			log.Error("failed to scan mastery row",
				slog.String("error", err.Error()))
			return nil, err
		}
		due = append(due, record)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, wrapUnavailable(err)
	}

	if due == nil {
		due = []*domain.MasteryRecord{}
	}
	return due, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMastery(scanner rowScanner) (*domain.MasteryRecord, error) {
	var record domain.MasteryRecord
	var userID uuid.NullUUID
	var sessionID sql.NullString

	err := scanner.Scan(
		&record.ID,
		&userID,
		&sessionID,
		&record.TopicID,
		&record.MasteryLevel,
		&record.LastPracticed,
		&record.NextReview,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		record.Learner = domain.NewUserLearner(userID.UUID)
	} else {
		record.Learner = domain.NewSessionLearner(sessionID.String)
	}
	return &record, nil
}

func scanMasteryRow(row *sql.Row) (*domain.MasteryRecord, error)    { return scanMastery(row) }
func scanMasteryRows(rows *sql.Rows) (*domain.MasteryRecord, error) { return scanMastery(rows) }

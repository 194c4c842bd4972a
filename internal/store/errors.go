package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. This is the generic form of the entity-specific not found
	// errors below.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUnavailable is returned when the backing store cannot be reached
	// or a transient persistence failure occurs. The engine never retries
	// internally; callers decide on retry/backoff. It must never be masked
	// as "no data" - a fetch failure is not mastery zero.
	ErrUnavailable = errors.New("store unavailable")

	// ErrCyclicPrerequisites indicates the authored prerequisite graph
	// contains a cycle. This is a content error and fatal for every
	// operation that walks the graph.
	ErrCyclicPrerequisites = errors.New("prerequisite graph contains a cycle")

	// Entity-specific "not found" errors

	// ErrTopicNotFound indicates the requested topic does not exist in the
	// graph. Callers rely on this to distinguish "no prerequisites" from
	// "topic does not exist".
	ErrTopicNotFound = fmt.Errorf("%w: topic", ErrNotFound)

	// ErrMasteryNotFound indicates no mastery record exists for the
	// (learner, topic) pair.
	ErrMasteryNotFound = fmt.Errorf("%w: mastery record", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

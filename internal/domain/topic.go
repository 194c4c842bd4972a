package domain

import (
	"errors"
)

// Common validation errors for Topic
var (
	ErrEmptyTopicID      = errors.New("topic ID cannot be empty")
	ErrEmptyTopicName    = errors.New("topic name cannot be empty")
	ErrInvalidDifficulty = errors.New("topic difficulty must be at least 1")
	ErrNegativeTopicXP   = errors.New("topic xp value cannot be negative")
	ErrSelfPrerequisite  = errors.New("topic cannot be its own prerequisite")
	ErrSelfEncompassment = errors.New("topic cannot encompass itself")
	ErrEmptyEdgeEndpoint = errors.New("edge endpoints cannot be empty")
)

// Topic is a node in the learning graph. Topics are authored content and
// immutable from the engine's point of view; the engine only ever reads them.
type Topic struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Domain     string `json:"domain"`
	Difficulty int    `json:"difficulty"` // ordinal, used as a tie-break
	XPValue    int    `json:"xp_value"`
}

// Validate checks if the Topic has valid data.
func (t *Topic) Validate() error {
	if t.ID == "" {
		return ErrEmptyTopicID
	}
	if t.Name == "" {
		return ErrEmptyTopicName
	}
	if t.Difficulty < 1 {
		return ErrInvalidDifficulty
	}
	if t.XPValue < 0 {
		return ErrNegativeTopicXP
	}
	return nil
}

// PrerequisiteEdge is a hard gating edge: Prerequisite must be mastered
// before TopicID is considered learnable. The prerequisite graph must be
// acyclic; that invariant is checked at content-load time, not per query.
type PrerequisiteEdge struct {
	TopicID      string `json:"topic_id"`
	Prerequisite string `json:"prerequisite_id"`
}

// Validate checks the edge endpoints.
func (e PrerequisiteEdge) Validate() error {
	if e.TopicID == "" || e.Prerequisite == "" {
		return ErrEmptyEdgeEndpoint
	}
	if e.TopicID == e.Prerequisite {
		return ErrSelfPrerequisite
	}
	return nil
}

// EncompassingEdge is a soft containment edge: practicing TopicID at a
// review-worthy level implicitly exercises Encompassed. Used only by the
// review scheduler; never traversed transitively.
type EncompassingEdge struct {
	TopicID     string `json:"topic_id"`
	Encompassed string `json:"encompassed_id"`
}

// Validate checks the edge endpoints.
func (e EncompassingEdge) Validate() error {
	if e.TopicID == "" || e.Encompassed == "" {
		return ErrEmptyEdgeEndpoint
	}
	if e.TopicID == e.Encompassed {
		return ErrSelfEncompassment
	}
	return nil
}

package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Common validation errors for Learner
var (
	ErrMissingLearnerIdentity = errors.New("learner must have a user ID or a session ID")
	ErrAmbiguousLearner       = errors.New("learner cannot have both a user ID and a session ID")
)

// Learner identifies who a mastery record belongs to. It is either an
// authenticated user (UserID set) or an anonymous browser session
// (SessionID set) - exactly one of the two, never both.
type Learner struct {
	UserID    uuid.UUID `json:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
}

// NewUserLearner creates a Learner for an authenticated user.
func NewUserLearner(userID uuid.UUID) Learner {
	return Learner{UserID: userID}
}

// NewSessionLearner creates a Learner for an anonymous session.
func NewSessionLearner(sessionID string) Learner {
	return Learner{SessionID: sessionID}
}

// IsAnonymous reports whether the learner is identified by a session
// rather than an authenticated user.
func (l Learner) IsAnonymous() bool {
	return l.UserID == uuid.Nil
}

// Validate checks that exactly one identity is set.
func (l Learner) Validate() error {
	if l.UserID == uuid.Nil && l.SessionID == "" {
		return ErrMissingLearnerIdentity
	}
	if l.UserID != uuid.Nil && l.SessionID != "" {
		return ErrAmbiguousLearner
	}
	return nil
}

// String returns a log-friendly identifier that never mixes the two
// identity spaces.
func (l Learner) String() string {
	if l.IsAnonymous() {
		return fmt.Sprintf("session:%s", l.SessionID)
	}
	return fmt.Sprintf("user:%s", l.UserID)
}

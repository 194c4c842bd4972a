// Package domain contains the core entities of the mastery engine: topics
// and their graph edges, learners, per-learner mastery records, and the
// diagnostic answer classification. Entities validate themselves; all
// behavior that needs the graph or the store lives in the service layer.
package domain

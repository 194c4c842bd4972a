package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lindenlearn/mastery-api/internal/api/shared"
	"github.com/lindenlearn/mastery-api/internal/domain"
	"github.com/lindenlearn/mastery-api/internal/domain/fire"
	"github.com/lindenlearn/mastery-api/internal/service/diagnostic"
	"github.com/lindenlearn/mastery-api/internal/service/review"
	"github.com/lindenlearn/mastery-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case store.IsNotFoundError(err):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrInvalidAnswerKind),
		errors.Is(err, domain.ErrMissingLearnerIdentity),
		errors.Is(err, domain.ErrAmbiguousLearner),
		errors.Is(err, domain.ErrMasteryOutOfRange),
		errors.Is(err, domain.ErrEmptyTopicID),
		errors.Is(err, review.ErrEmptyTopicID),
		errors.Is(err, fire.ErrInvalidMastery),
		errors.Is(err, fire.ErrInvalidAccuracy),
		errors.Is(err, fire.ErrInvalidPrevious):
		return http.StatusBadRequest

	// Session state errors are caller errors too
	case errors.Is(err, diagnostic.ErrSessionComplete),
		errors.Is(err, diagnostic.ErrNoCurrentTopic),
		errors.Is(err, diagnostic.ErrSessionInvalid),
		errors.Is(err, diagnostic.ErrTopicAlreadyTested):
		return http.StatusConflict

	// Content errors: the graph itself is broken, nothing the caller can fix
	case errors.Is(err, diagnostic.ErrNoRootTopics),
		errors.Is(err, store.ErrCyclicPrerequisites):
		return http.StatusInternalServerError

	// Transient persistence failure
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, store.ErrTopicNotFound):
		return "Topic not found"

	case errors.Is(err, store.ErrMasteryNotFound):
		return "No mastery record for this topic"

	case store.IsNotFoundError(err):
		return "Not found"

	case errors.Is(err, domain.ErrInvalidAnswerKind):
		return "Answer must be correct, incorrect or idontknow"

	case errors.Is(err, domain.ErrMasteryOutOfRange),
		errors.Is(err, fire.ErrInvalidMastery):
		return "Mastery level must be between 0 and 100"

	case errors.Is(err, fire.ErrInvalidAccuracy):
		return "Accuracy must be between 0 and 100"

	case errors.Is(err, domain.ErrEmptyTopicID),
		errors.Is(err, review.ErrEmptyTopicID):
		return "Topic ID is required"

	case errors.Is(err, diagnostic.ErrSessionComplete):
		return "Diagnostic session is already complete"

	case errors.Is(err, diagnostic.ErrNoCurrentTopic),
		errors.Is(err, diagnostic.ErrSessionInvalid):
		return "Diagnostic session state is invalid"

	case errors.Is(err, diagnostic.ErrTopicAlreadyTested):
		return "Topic was already tested in this session"

	case errors.Is(err, diagnostic.ErrNoRootTopics),
		errors.Is(err, store.ErrCyclicPrerequisites):
		return "Curriculum content is misconfigured"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, store.ErrUnavailable):
		return "Service temporarily unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// badRequestMessage renders a shared.DecodeValid failure for the client:
// decode failures get a fixed message, validation failures go through the
// sanitizer.
func badRequestMessage(err error) string {
	if errors.Is(err, shared.ErrMalformedBody) {
		return "Invalid request body"
	}
	return SanitizeValidationError(err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'ScheduleReviewRequest.Accuracy' Error:Field
		// validation for 'Accuracy' failed on the 'max' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "value too small"
	case "max":
		return "value too large"
	case "oneof":
		return "invalid value"
	case "gte":
		return "value too small"
	case "lte":
		return "value too large"
	default:
		return "validation failed"
	}
}

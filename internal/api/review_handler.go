package api

import (
	"log/slog"
	"net/http"

	"github.com/lindenlearn/mastery-api/internal/api/middleware"
	"github.com/lindenlearn/mastery-api/internal/api/shared"
	"github.com/lindenlearn/mastery-api/internal/service/review"
)

// ReviewHandler exposes spaced-repetition scheduling.
type ReviewHandler struct {
	service *review.Service
	logger  *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler with the given dependencies.
func NewReviewHandler(service *review.Service, log *slog.Logger) *ReviewHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReviewHandler{
		service: service,
		logger:  log.With(slog.String("component", "review_handler")),
	}
}

// Schedule handles POST /api/reviews/schedule
func (h *ReviewHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	learner, ok := middleware.GetLearner(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner identity required")
		return
	}

	var req ScheduleReviewRequest
	if err := shared.DecodeValid(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, badRequestMessage(err))
		return
	}

	result, err := h.service.ScheduleReview(r.Context(), learner, req.TopicID, req.MasteryLevel, req.Accuracy)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Due handles GET /api/reviews/due
func (h *ReviewHandler) Due(w http.ResponseWriter, r *http.Request) {
	learner, ok := middleware.GetLearner(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner identity required")
		return
	}

	due, err := h.service.GetDueReviews(r.Context(), learner)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, due)
}

// Optimal handles GET /api/reviews/optimal
func (h *ReviewHandler) Optimal(w http.ResponseWriter, r *http.Request) {
	learner, ok := middleware.GetLearner(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner identity required")
		return
	}

	set, err := h.service.GetOptimalReviewSet(r.Context(), learner)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, set)
}

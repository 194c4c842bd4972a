package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lindenlearn/mastery-api/internal/api/middleware"
	"github.com/lindenlearn/mastery-api/internal/api/shared"
	"github.com/lindenlearn/mastery-api/internal/service/frontier"
	"github.com/lindenlearn/mastery-api/internal/store"
)

// MasteryHandler exposes direct mastery reads and writes, the frontier and
// per-domain progress.
type MasteryHandler struct {
	mastery  store.MasteryStore
	frontier *frontier.Calculator
	logger   *slog.Logger
}

// NewMasteryHandler creates a new MasteryHandler with the given dependencies.
func NewMasteryHandler(mastery store.MasteryStore, frontierCalc *frontier.Calculator, log *slog.Logger) *MasteryHandler {
	if mastery == nil {
		panic("mastery cannot be nil")
	}
	if frontierCalc == nil {
		panic("frontierCalc cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &MasteryHandler{
		mastery:  mastery,
		frontier: frontierCalc,
		logger:   log.With(slog.String("component", "mastery_handler")),
	}
}

// Get handles GET /api/mastery/{topicID}
func (h *MasteryHandler) Get(w http.ResponseWriter, r *http.Request) {
	learner, ok := middleware.GetLearner(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner identity required")
		return
	}
	topicID := chi.URLParam(r, "topicID")

	record, err := h.mastery.Get(r.Context(), learner, topicID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, record)
}

// Upsert handles POST /api/mastery
func (h *MasteryHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	learner, ok := middleware.GetLearner(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner identity required")
		return
	}

	var req UpsertMasteryRequest
	if err := shared.DecodeValid(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, badRequestMessage(err))
		return
	}

	record, err := h.mastery.Upsert(r.Context(), learner, req.TopicID, req.MasteryLevel, time.Now().UTC())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, record)
}

// Frontier handles GET /api/frontier
func (h *MasteryHandler) Frontier(w http.ResponseWriter, r *http.Request) {
	learner, ok := middleware.GetLearner(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner identity required")
		return
	}

	topics, err := h.frontier.ComputeFrontier(r.Context(), learner)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, topics)
}

// CanAdvance handles GET /api/mastery/can-advance/{topicID}
func (h *MasteryHandler) CanAdvance(w http.ResponseWriter, r *http.Request) {
	learner, ok := middleware.GetLearner(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner identity required")
		return
	}
	topicID := chi.URLParam(r, "topicID")

	canAdvance, err := h.frontier.CanAdvance(r.Context(), learner, topicID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, CanAdvanceResponse{
		TopicID:    topicID,
		CanAdvance: canAdvance,
	})
}

// DomainProgress handles GET /api/mastery/domain/{domain}
func (h *MasteryHandler) DomainProgress(w http.ResponseWriter, r *http.Request) {
	learner, ok := middleware.GetLearner(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner identity required")
		return
	}
	subjectDomain := chi.URLParam(r, "domain")

	progress, err := h.frontier.ComputeDomainProgress(r.Context(), learner, subjectDomain)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, progress)
}

package api

import (
	"log/slog"
	"net/http"

	"github.com/lindenlearn/mastery-api/internal/api/middleware"
	"github.com/lindenlearn/mastery-api/internal/api/shared"
	"github.com/lindenlearn/mastery-api/internal/domain"
	"github.com/lindenlearn/mastery-api/internal/service/diagnostic"
)

// DiagnosticHandler exposes the adaptive placement flow.
type DiagnosticHandler struct {
	service *diagnostic.Service
	logger  *slog.Logger
}

// NewDiagnosticHandler creates a new DiagnosticHandler with the given dependencies.
func NewDiagnosticHandler(service *diagnostic.Service, log *slog.Logger) *DiagnosticHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &DiagnosticHandler{
		service: service,
		logger:  log.With(slog.String("component", "diagnostic_handler")),
	}
}

// StartResponse is the payload for a freshly started placement session.
type StartResponse struct {
	Session    *diagnostic.Session `json:"session"`
	FirstTopic *domain.Topic       `json:"first_topic"`
}

// Start handles POST /api/diagnostic/start
func (h *DiagnosticHandler) Start(w http.ResponseWriter, r *http.Request) {
	learner, ok := middleware.GetLearner(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner identity required")
		return
	}

	session, firstTopic, err := h.service.Start(r.Context(), learner)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, StartResponse{
		Session:    session,
		FirstTopic: firstTopic,
	})
}

// Answer handles POST /api/diagnostic/answer
func (h *DiagnosticHandler) Answer(w http.ResponseWriter, r *http.Request) {
	learner, ok := middleware.GetLearner(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner identity required")
		return
	}

	var req AnswerRequest
	if err := shared.DecodeValid(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, badRequestMessage(err))
		return
	}

	result, err := h.service.SubmitAnswer(r.Context(), learner, req.Session, domain.AnswerKind(req.Answer))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Complete handles POST /api/diagnostic/complete
func (h *DiagnosticHandler) Complete(w http.ResponseWriter, r *http.Request) {
	learner, ok := middleware.GetLearner(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Learner identity required")
		return
	}

	var req CompleteRequest
	if err := shared.DecodeValid(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, badRequestMessage(err))
		return
	}

	result, err := h.service.Complete(r.Context(), learner, req.Results)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

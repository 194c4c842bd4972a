package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lindenlearn/mastery-api/internal/api/shared"
	"github.com/lindenlearn/mastery-api/internal/store"
)

// GraphHandler exposes read-only views of the curriculum graph.
type GraphHandler struct {
	graph  store.TopicGraph
	logger *slog.Logger
}

// NewGraphHandler creates a new GraphHandler with the given dependencies.
func NewGraphHandler(graph store.TopicGraph, log *slog.Logger) *GraphHandler {
	if graph == nil {
		panic("graph cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &GraphHandler{
		graph:  graph,
		logger: log.With(slog.String("component", "graph_handler")),
	}
}

// ListTopics handles GET /api/graph/topics
// An optional ?domain= query filters by subject domain.
func (h *GraphHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	if subjectDomain := r.URL.Query().Get("domain"); subjectDomain != "" {
		topics, err := h.graph.TopicsByDomain(r.Context(), subjectDomain)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, topics)
		return
	}

	topics, err := h.graph.AllTopics(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, topics)
}

// Prerequisites handles GET /api/graph/topics/{id}/prerequisites
func (h *GraphHandler) Prerequisites(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "id")

	topics, err := h.graph.Prerequisites(r.Context(), topicID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, topics)
}

// Encompassings handles GET /api/graph/topics/{id}/encompassings
func (h *GraphHandler) Encompassings(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "id")

	topics, err := h.graph.Encompassed(r.Context(), topicID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, topics)
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apimiddleware "github.com/lindenlearn/mastery-api/internal/api/middleware"
	"github.com/lindenlearn/mastery-api/internal/domain"
	"github.com/lindenlearn/mastery-api/internal/domain/fire"
	"github.com/lindenlearn/mastery-api/internal/platform/memory"
	"github.com/lindenlearn/mastery-api/internal/service/diagnostic"
	"github.com/lindenlearn/mastery-api/internal/service/frontier"
	"github.com/lindenlearn/mastery-api/internal/service/review"
)

const testJWTSecret = "test-secret-key-that-is-long-enough-0"

func testTopic(id string, difficulty int) *domain.Topic {
	return &domain.Topic{ID: id, Name: id, Domain: "math", Difficulty: difficulty, XPValue: 10}
}

// newTestRouter wires the full API over in-memory stores with the same route
// table the server uses.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	graph, err := memory.NewTopicGraph(
		[]*domain.Topic{
			testTopic("counting", 1),
			testTopic("shapes", 2),
			testTopic("addition", 2),
			testTopic("subtraction", 3),
		},
		[]domain.PrerequisiteEdge{
			{TopicID: "addition", Prerequisite: "counting"},
			{TopicID: "subtraction", Prerequisite: "addition"},
		},
		[]domain.EncompassingEdge{
			{TopicID: "subtraction", Encompassed: "addition"},
		},
	)
	require.NoError(t, err)

	mastery := memory.NewMasteryStore()
	frontierCalc := frontier.NewCalculator(graph, mastery, nil)
	diagnosticSvc := diagnostic.NewService(graph, mastery, frontierCalc, nil, nil)
	reviewSvc := review.NewService(graph, mastery, fire.NewDefaultService(), nil)

	diagnosticHandler := NewDiagnosticHandler(diagnosticSvc, nil)
	reviewHandler := NewReviewHandler(reviewSvc, nil)
	graphHandler := NewGraphHandler(graph, nil)
	masteryHandler := NewMasteryHandler(mastery, frontierCalc, nil)

	identity := apimiddleware.NewIdentityMiddleware(testJWTSecret)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(identity.Resolve)

		r.Post("/diagnostic/start", diagnosticHandler.Start)
		r.Post("/diagnostic/answer", diagnosticHandler.Answer)
		r.Post("/diagnostic/complete", diagnosticHandler.Complete)

		r.Get("/graph/topics", graphHandler.ListTopics)
		r.Get("/graph/topics/{id}/prerequisites", graphHandler.Prerequisites)
		r.Get("/graph/topics/{id}/encompassings", graphHandler.Encompassings)

		r.Get("/frontier", masteryHandler.Frontier)
		r.Post("/mastery", masteryHandler.Upsert)
		r.Get("/mastery/domain/{domain}", masteryHandler.DomainProgress)
		r.Get("/mastery/can-advance/{topicID}", masteryHandler.CanAdvance)
		r.Get("/mastery/{topicID}", masteryHandler.Get)

		r.Post("/reviews/schedule", reviewHandler.Schedule)
		r.Get("/reviews/due", reviewHandler.Due)
		r.Get("/reviews/optimal", reviewHandler.Optimal)
	})
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), target))
}

func sessionHeaders(id string) map[string]string {
	return map[string]string{apimiddleware.SessionIDHeader: id}
}

func signToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func TestIdentityResolution(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	t.Run("no identity is rejected", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, router, http.MethodGet, "/api/frontier", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("session header resolves an anonymous learner", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, router, http.MethodGet, "/api/frontier", nil, sessionHeaders("sess-identity"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("valid bearer token resolves a user learner", func(t *testing.T) {
		t.Parallel()
		token := signToken(t, uuid.New())
		rec := doRequest(t, router, http.MethodGet, "/api/frontier", nil, map[string]string{
			"Authorization": "Bearer " + token,
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("garbage bearer token is rejected", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, router, http.MethodGet, "/api/frontier", nil, map[string]string{
			"Authorization": "Bearer not-a-token",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

// TestDiagnosticFlow drives a whole placement over HTTP: start, answer until
// complete, finalize, then read the persisted mastery back.
func TestDiagnosticFlow(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)
	headers := sessionHeaders("sess-flow")

	rec := doRequest(t, router, http.MethodPost, "/api/diagnostic/start", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	var start StartResponse
	decodeBody(t, rec, &start)
	require.NotNil(t, start.FirstTopic)
	assert.Equal(t, "counting", start.FirstTopic.ID)

	answer := func(session *diagnostic.Session, kind string) *diagnostic.StepResult {
		rec := doRequest(t, router, http.MethodPost, "/api/diagnostic/answer",
			AnswerRequest{Session: session, Answer: kind}, headers)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var step diagnostic.StepResult
		decodeBody(t, rec, &step)
		return &step
	}

	step := answer(start.Session, "correct")
	require.NotNil(t, step.NextTopic)
	assert.Equal(t, "addition", step.NextTopic.ID)

	step = answer(step.Session, "correct")
	require.NotNil(t, step.NextTopic)
	assert.Equal(t, "subtraction", step.NextTopic.ID)

	step = answer(step.Session, "incorrect")
	require.True(t, step.IsComplete)

	rec = doRequest(t, router, http.MethodPost, "/api/diagnostic/complete",
		CompleteRequest{Results: step.Session.Results}, headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var placement diagnostic.PlacementResult
	decodeBody(t, rec, &placement)
	assert.Equal(t, 3, placement.Summary.TopicsTested)
	require.NotNil(t, placement.RecommendedTopic)

	rec = doRequest(t, router, http.MethodGet, "/api/mastery/counting", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	var record domain.MasteryRecord
	decodeBody(t, rec, &record)
	assert.Equal(t, 55, record.MasteryLevel)
}

func TestDiagnosticAnswerValidation(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)
	headers := sessionHeaders("sess-validation")

	rec := doRequest(t, router, http.MethodPost, "/api/diagnostic/start", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	var start StartResponse
	decodeBody(t, rec, &start)

	t.Run("unknown answer kind", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, router, http.MethodPost, "/api/diagnostic/answer",
			AnswerRequest{Session: start.Session, Answer: "maybe"}, headers)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing session", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, router, http.MethodPost, "/api/diagnostic/answer",
			map[string]string{"answer": "correct"}, headers)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("answering a completed session conflicts", func(t *testing.T) {
		t.Parallel()
		done := *start.Session
		done.Complete = true
		rec := doRequest(t, router, http.MethodPost, "/api/diagnostic/answer",
			AnswerRequest{Session: &done, Answer: "correct"}, headers)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestMasteryEndpoints(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)
	headers := sessionHeaders("sess-mastery")

	t.Run("unknown record is 404", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, router, http.MethodGet, "/api/mastery/counting", nil, sessionHeaders("sess-404"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("upsert then read back", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, router, http.MethodPost, "/api/mastery",
			UpsertMasteryRequest{TopicID: "counting", MasteryLevel: 80}, headers)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, router, http.MethodGet, "/api/mastery/counting", nil, headers)
		require.Equal(t, http.StatusOK, rec.Code)
		var record domain.MasteryRecord
		decodeBody(t, rec, &record)
		assert.Equal(t, 80, record.MasteryLevel)
	})

	t.Run("out-of-range level fails validation", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, router, http.MethodPost, "/api/mastery",
			UpsertMasteryRequest{TopicID: "counting", MasteryLevel: 150}, headers)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("literal routes win over the topic wildcard", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, router, http.MethodGet, "/api/mastery/can-advance/counting", nil, headers)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp CanAdvanceResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "counting", resp.TopicID)
		assert.True(t, resp.CanAdvance)

		rec = doRequest(t, router, http.MethodGet, "/api/mastery/domain/math", nil, headers)
		require.Equal(t, http.StatusOK, rec.Code)
		var progress frontier.DomainProgress
		decodeBody(t, rec, &progress)
		assert.Equal(t, "math", progress.Domain)
		assert.Equal(t, 4, progress.TotalTopics)
	})
}

func TestReviewEndpoints(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)
	headers := sessionHeaders("sess-review")

	t.Run("schedule returns the computed interval", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, router, http.MethodPost, "/api/reviews/schedule",
			ScheduleReviewRequest{TopicID: "counting", MasteryLevel: 85, Accuracy: 100}, headers)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result review.ScheduleResult
		decodeBody(t, rec, &result)
		assert.Equal(t, 21, result.IntervalDays)
	})

	t.Run("unknown topic is 404", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, router, http.MethodPost, "/api/reviews/schedule",
			ScheduleReviewRequest{TopicID: "ghost", MasteryLevel: 85, Accuracy: 100}, headers)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("nothing due yields empty lists", func(t *testing.T) {
		t.Parallel()
		local := sessionHeaders("sess-review-empty")

		rec := doRequest(t, router, http.MethodGet, "/api/reviews/due", nil, local)
		require.Equal(t, http.StatusOK, rec.Code)
		var due []review.DueReview
		decodeBody(t, rec, &due)
		assert.Empty(t, due)

		rec = doRequest(t, router, http.MethodGet, "/api/reviews/optimal", nil, local)
		require.Equal(t, http.StatusOK, rec.Code)
		var set review.OptimalReviewSet
		decodeBody(t, rec, &set)
		assert.Empty(t, set.Topics)
	})
}

func TestGraphEndpoints(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)
	headers := sessionHeaders("sess-graph")

	t.Run("list topics with domain filter", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, router, http.MethodGet, "/api/graph/topics?domain=math", nil, headers)
		require.Equal(t, http.StatusOK, rec.Code)
		var topics []*domain.Topic
		decodeBody(t, rec, &topics)
		assert.Len(t, topics, 4)
	})

	t.Run("prerequisites of a topic", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, router, http.MethodGet, "/api/graph/topics/addition/prerequisites", nil, headers)
		require.Equal(t, http.StatusOK, rec.Code)
		var topics []*domain.Topic
		decodeBody(t, rec, &topics)
		require.Len(t, topics, 1)
		assert.Equal(t, "counting", topics[0].ID)
	})

	t.Run("unknown topic is 404", func(t *testing.T) {
		t.Parallel()
		rec := doRequest(t, router, http.MethodGet, "/api/graph/topics/ghost/prerequisites", nil, headers)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

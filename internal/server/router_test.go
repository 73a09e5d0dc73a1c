package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/studyloop/tutor-backend/internal/data/repos"
	"github.com/studyloop/tutor-backend/internal/handlers"
	"github.com/studyloop/tutor-backend/internal/modules/answer"
	"github.com/studyloop/tutor-backend/internal/modules/indexing"
	"github.com/studyloop/tutor-backend/internal/modules/learner"
	"github.com/studyloop/tutor-backend/internal/modules/search"
	"github.com/studyloop/tutor-backend/internal/testutil"
)

type invalidatorStub struct{ calls int }

func (s *invalidatorStub) ClearCaches() { s.calls++ }

func newTestRouter(t *testing.T) (http.Handler, *invalidatorStub) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ai := &testutil.FakeAI{TextResponses: []string{"A grounded answer."}}

	lessons := repos.NewLessonRepo(db, log)
	chunks := repos.NewContentChunkRepo(db, log)
	engine := search.NewEngine(chunks, ai, log, search.Options{})
	indexer := indexing.NewIndexer(lessons, chunks, ai, log, indexing.Options{})
	learners := learner.NewStore(log, learner.Options{})
	pipeline := answer.NewPipeline(engine, lessons, ai, learners, nil, log, answer.Options{})

	stub := &invalidatorStub{}
	router := NewRouter(db, Handlers{
		Ask:      handlers.NewAskHandler(pipeline, log),
		Search:   handlers.NewSearchHandler(engine, log),
		Lessons:  handlers.NewLessonHandler(lessons, chunks, indexer, stub, log),
		Insights: handlers.NewInsightsHandler(learners, log),
	}, log, "prod")
	return router, stub
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAskValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/ask", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing question: status = %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/v1/ask", `{"question":"hi","lesson_id":"not-a-uuid"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad lesson id: status = %d", rec.Code)
	}
}

func TestLessonLifecycleOverHTTP(t *testing.T) {
	router, stub := newTestRouter(t)

	body := `{
		"title": "Photosynthesis",
		"subject": "science",
		"content": "Plants use sunlight, water and carbon dioxide to make sugar. This process happens in the chloroplasts of plant cells and releases oxygen as a byproduct.",
		"key_points": ["happens in chloroplasts", "releases oxygen"],
		"examples": [{"problem": "Why do leaves look green?", "solution": "Chlorophyll reflects green light."}]
	}`
	rec := do(t, router, http.MethodPost, "/v1/lessons", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("create response: %v, body = %s", err, rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, fmt.Sprintf("/v1/lessons/%s/index", created.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("index: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var indexed struct {
		Chunks int64 `json:"chunks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &indexed); err != nil {
		t.Fatalf("index response: %v", err)
	}
	if indexed.Chunks == 0 {
		t.Fatalf("indexing reported zero chunks")
	}
	if stub.calls != 1 {
		t.Fatalf("cache invalidation calls = %d, want 1", stub.calls)
	}

	rec = do(t, router, http.MethodGet, "/v1/search?q=chloroplasts+oxygen", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("search: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, "/v1/lessons", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
}

func TestInsightsNotReady(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/v1/users/newcomer/insights", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Ready bool `json:"ready"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Ready {
		t.Fatalf("insights ready without history")
	}
}

func TestSearchValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	if rec := do(t, router, http.MethodGet, "/v1/search", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing q: status = %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/v1/search?q=x&limit=999", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized limit: status = %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/v1/search?q=x&threshold=2", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad threshold: status = %d", rec.Code)
	}
}

func TestQuizUnknownLesson(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodPost, "/v1/quiz", `{"lesson_id":"3f6f2b0a-3bb8-4a8f-9c67-0f20d4a1a111","count":3}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/researchgraph/agent"
	"github.com/dshills/researchgraph/config"
	"github.com/dshills/researchgraph/graph"
	"github.com/dshills/researchgraph/graph/emit"
)

func testConfig() *config.Config {
	return &config.Config{
		QueryModel:        "gemini-2.0-flash",
		ReflectionModel:   "gemini-2.5-flash",
		AnswerModel:       "gemini-2.5-pro",
		Port:              "8080",
		InitialQueryCount: 3,
		MaxResearchLoops:  2,
	}
}

func newTestRouter(t *testing.T, run RunFunc, registry *prometheus.Registry) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := New(testConfig(), slog.New(slog.NewTextHandler(&strings.Builder{}, nil)), registry, run)
	r := gin.New()
	srv.RegisterRoutes(r)
	return r
}

func completedState(answer string) agent.ResearchState {
	return agent.ResearchState{
		Messages: []agent.Message{
			{Role: "user", Content: "question"},
			{Role: "assistant", Content: answer},
		},
		SearchQueries:     []string{"q1", "q2"},
		ResearchLoopCount: 1,
		SourcesGathered: []agent.Source{
			{Label: "nasa", Value: "https://nasa.gov/sky"},
			{Label: "unused", Value: "https://unused.example/"},
		},
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestConfigInfo(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/config", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["query_generator_model"] != "gemini-2.0-flash" {
		t.Errorf("unexpected query model: %v", body["query_generator_model"])
	}
	if body["max_research_loops"] != float64(2) {
		t.Errorf("unexpected max loops: %v", body["max_research_loops"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Run("registered with a registry", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := graph.NewMetrics(registry)
		metrics.RecordExternalFailure("gemini", "search")

		r := newTestRouter(t, nil, registry)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "researchgraph_external_failures_total") {
			t.Errorf("expected metric in exposition, got: %.300s", w.Body.String())
		}
	})

	t.Run("absent without a registry", func(t *testing.T) {
		r := newTestRouter(t, nil, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})
}

func TestInvoke(t *testing.T) {
	t.Run("successful run", func(t *testing.T) {
		var gotReq RunRequest
		run := func(ctx context.Context, runID string, req RunRequest, emitter emit.Emitter) (agent.ResearchState, error) {
			gotReq = req
			return completedState("The sky is blue, see https://nasa.gov/sky for detail."), nil
		}
		r := newTestRouter(t, run, nil)

		body := `{"input":{"question":"why is the sky blue"},"config":{"initial_search_query_count":2,"reasoning_model":"gpt-4o"}}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/invoke", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if gotReq.Question != "why is the sky blue" || gotReq.InitialSearchQueryCount != 2 || gotReq.ReasoningModel != "gpt-4o" {
			t.Errorf("request not forwarded: %+v", gotReq)
		}

		var resp struct {
			Output   string         `json:"output"`
			Sources  []agent.Source `json:"sources"`
			Metadata struct {
				RunID         string `json:"run_id"`
				ResearchLoops int    `json:"research_loops"`
				QueriesRun    int    `json:"queries_run"`
			} `json:"metadata"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if !strings.Contains(resp.Output, "sky is blue") {
			t.Errorf("unexpected output: %q", resp.Output)
		}
		if len(resp.Sources) != 1 || resp.Sources[0].Label != "nasa" {
			t.Errorf("expected only the cited source, got %v", resp.Sources)
		}
		if resp.Metadata.RunID == "" || resp.Metadata.ResearchLoops != 1 || resp.Metadata.QueriesRun != 2 {
			t.Errorf("unexpected metadata: %+v", resp.Metadata)
		}
	})

	t.Run("missing question is a 400", func(t *testing.T) {
		r := newTestRouter(t, nil, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/invoke", strings.NewReader(`{"input":{}}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("run failure is a generic 500", func(t *testing.T) {
		run := func(ctx context.Context, runID string, req RunRequest, emitter emit.Emitter) (agent.ResearchState, error) {
			return agent.ResearchState{}, errors.New("gemini exploded with secret detail")
		}
		r := newTestRouter(t, run, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/invoke", strings.NewReader(`{"input":{"question":"q"}}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
		if strings.Contains(w.Body.String(), "secret detail") {
			t.Errorf("internal error detail leaked: %s", w.Body.String())
		}
	})
}

func TestStream(t *testing.T) {
	t.Run("relays deltas then the result", func(t *testing.T) {
		run := func(ctx context.Context, runID string, req RunRequest, emitter emit.Emitter) (agent.ResearchState, error) {
			emitter.Emit(emit.Event{RunID: runID, Step: 1, NodeID: "generate_query", Msg: "node_start"})
			emitter.Emit(emit.Event{RunID: runID, Step: 1, NodeID: "generate_query", Msg: "node_end",
				Meta: map[string]any{"delta": map[string]any{"query_list": []string{"q1"}}}})
			emitter.Emit(emit.Event{RunID: runID, Step: 2, NodeID: "web_research", Msg: "branch_end",
				Meta: map[string]any{"branch": 0, "delta": map[string]any{"search_queries": "q1"}}})
			return completedState("answer text"), nil
		}
		r := newTestRouter(t, run, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/stream", strings.NewReader(`{"input":{"question":"q"}}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
			t.Errorf("unexpected content type: %q", ct)
		}

		body := w.Body.String()
		// node_start is engine noise; only state deltas stream.
		if strings.Contains(body, "node_start") {
			t.Errorf("non-delta event leaked into the stream: %s", body)
		}
		if got := strings.Count(body, `"type":"delta"`); got != 2 {
			t.Errorf("expected 2 delta frames, got %d in: %s", got, body)
		}
		if !strings.Contains(body, `"type":"result"`) {
			t.Errorf("expected result frame, got: %s", body)
		}
		if !strings.Contains(body, "answer text") {
			t.Errorf("expected final answer in result frame, got: %s", body)
		}
		if !strings.Contains(body, "event: end") {
			t.Errorf("expected end sentinel, got: %s", body)
		}
	})

	t.Run("run failure streams an error frame", func(t *testing.T) {
		run := func(ctx context.Context, runID string, req RunRequest, emitter emit.Emitter) (agent.ResearchState, error) {
			return agent.ResearchState{}, errors.New("secret detail")
		}
		r := newTestRouter(t, run, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/stream", strings.NewReader(`{"input":{"question":"q"}}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		body := w.Body.String()
		if !strings.Contains(body, `"type":"error"`) {
			t.Errorf("expected error frame, got: %s", body)
		}
		if strings.Contains(body, "secret detail") {
			t.Errorf("internal error detail leaked: %s", body)
		}
		if !strings.Contains(body, "event: end") {
			t.Errorf("expected end sentinel, got: %s", body)
		}
	})

	t.Run("invalid request is a 400", func(t *testing.T) {
		r := newTestRouter(t, nil, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/stream", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

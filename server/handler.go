// Package server exposes the research workflow over HTTP: a blocking
// invoke endpoint, a server-sent-events stream, health and config
// introspection, and Prometheus metrics.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/researchgraph/agent"
	"github.com/dshills/researchgraph/config"
	"github.com/dshills/researchgraph/graph/emit"
)

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *prometheus.Registry
	run      RunFunc
}

// New creates a Server. registry may be nil to disable the /metrics
// endpoint.
func New(cfg *config.Config, logger *slog.Logger, registry *prometheus.Registry, run RunFunc) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, log: logger, registry: registry, run: run}
}

// RegisterRoutes attaches all endpoints to the router.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/config", s.configInfo)
	if s.registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	{
		api.POST("/invoke", s.invoke)
		api.POST("/stream", s.stream)
	}
}

// invokeRequest is the wire shape of both research endpoints.
type invokeRequest struct {
	Input struct {
		Question string `json:"question" binding:"required"`
	} `json:"input" binding:"required"`
	Config struct {
		InitialSearchQueryCount int    `json:"initial_search_query_count"`
		MaxResearchLoops        int    `json:"max_research_loops"`
		ReasoningModel          string `json:"reasoning_model"`
	} `json:"config"`
}

func (r invokeRequest) runRequest() RunRequest {
	return RunRequest{
		Question:                r.Input.Question,
		InitialSearchQueryCount: r.Config.InitialSearchQueryCount,
		MaxResearchLoops:        r.Config.MaxResearchLoops,
		ReasoningModel:          r.Config.ReasoningModel,
	}
}

type invokeResponse struct {
	Output   string         `json:"output"`
	Sources  []agent.Source `json:"sources"`
	Metadata runMetadata    `json:"metadata"`
}

type runMetadata struct {
	RunID         string `json:"run_id"`
	ResearchLoops int    `json:"research_loops"`
	QueriesRun    int    `json:"queries_run"`
}

// invoke runs a research request to completion and returns the final
// answer. Failures surface as a generic 500; detail stays in the log.
func (s *Server) invoke(c *gin.Context) {
	var req invokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	runID := uuid.NewString()
	state, err := s.run(c.Request.Context(), runID, req.runRequest(), emit.NewNullEmitter())
	if err != nil {
		s.log.Error("research run failed", "run_id", runID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "research run failed", "run_id": runID})
		return
	}

	c.JSON(http.StatusOK, buildResponse(runID, state))
}

func buildResponse(runID string, state agent.ResearchState) invokeResponse {
	var answer string
	if n := len(state.Messages); n > 0 {
		answer = state.Messages[n-1].Content
	}

	return invokeResponse{
		Output:  answer,
		Sources: agent.CitedSources(answer, state.SourcesGathered),
		Metadata: runMetadata{
			RunID:         runID,
			ResearchLoops: state.ResearchLoopCount,
			QueriesRun:    len(state.SearchQueries),
		},
	}
}

// streamEvent is one SSE frame: node progress deltas while the run
// executes, then a final result or error frame.
type streamEvent struct {
	Type    string `json:"type"` // "delta", "result", "error"
	RunID   string `json:"run_id"`
	Step    int    `json:"step,omitempty"`
	Node    string `json:"node,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// stream runs a research request while relaying one state-delta event
// per completed node as server-sent events, terminated by an "end"
// sentinel event.
func (s *Server) stream(c *gin.Context) {
	var req invokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	runID := uuid.NewString()
	stream := emit.NewStreamEmitter(64)

	type runResult struct {
		state agent.ResearchState
		err   error
	}
	done := make(chan runResult, 1)

	go func() {
		defer stream.Close()
		state, err := s.run(c.Request.Context(), runID, req.runRequest(), stream)
		done <- runResult{state: state, err: err}
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	for event := range stream.Events() {
		// Only node completions carry a state delta worth relaying.
		if event.Msg != "node_end" && event.Msg != "branch_end" {
			continue
		}
		s.writeSSE(c, streamEvent{
			Type:    "delta",
			RunID:   runID,
			Step:    event.Step,
			Node:    event.NodeID,
			Payload: event.Meta["delta"],
		})
		c.Writer.Flush()
	}

	result := <-done
	if result.err != nil {
		s.log.Error("research run failed", "run_id", runID, "error", result.err)
		s.writeSSE(c, streamEvent{Type: "error", RunID: runID, Payload: "research run failed"})
	} else {
		s.writeSSE(c, streamEvent{Type: "result", RunID: runID, Payload: buildResponse(runID, result.state)})
	}

	_, _ = c.Writer.Write([]byte("event: end\ndata: {}\n\n"))
	c.Writer.Flush()
}

func (s *Server) writeSSE(c *gin.Context, event streamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.log.Error("marshal stream event", "error", err)
		return
	}
	_, _ = c.Writer.Write([]byte("data: "))
	_, _ = c.Writer.Write(data)
	_, _ = c.Writer.Write([]byte("\n\n"))
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// configInfo reports the non-secret runtime configuration.
func (s *Server) configInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"query_generator_model":      s.cfg.QueryModel,
		"reflection_model":           s.cfg.ReflectionModel,
		"answer_model":               s.cfg.AnswerModel,
		"initial_search_query_count": s.cfg.InitialQueryCount,
		"max_research_loops":         s.cfg.MaxResearchLoops,
	})
}

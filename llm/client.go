// Package llm wraps the Gemini API (google.golang.org/genai) for the
// research workflow: structured JSON generation for planning and
// reflection, and Google-Search-grounded generation for web research.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// Service is the LLM surface the research nodes depend on. The
// concrete Client talks to Gemini; tests substitute fakes.
type Service interface {
	// GenerateStructured prompts the model for JSON conforming to
	// schema and decodes it into out.
	GenerateStructured(ctx context.Context, model, prompt string, schema *genai.Schema, out any) error

	// SearchGrounded runs a generation with the Google Search tool
	// enabled and returns the text plus grounding metadata.
	SearchGrounded(ctx context.Context, model, prompt string) (SearchResult, error)
}

// Client implements Service against the Gemini API.
//
// Each call carries a small bounded retry budget for transport
// failures; exhausting it yields an *ExternalServiceError so node
// boundaries can decide between degrading and failing the run.
type Client struct {
	client     *genai.Client
	attempts   int
	retryDelay time.Duration
}

// NewClient creates a Gemini-backed Client.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		client:     client,
		attempts:   2,
		retryDelay: 500 * time.Millisecond,
	}, nil
}

// GenerateStructured implements Service.
func (c *Client) GenerateStructured(ctx context.Context, model, prompt string, schema *genai.Schema, out any) error {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](1.0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	resp, err := c.generate(ctx, model, prompt, cfg)
	if err != nil {
		return &ExternalServiceError{Service: "gemini", Op: "generate", Err: err}
	}

	raw := collectText(resp)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &ExternalServiceError{Service: "gemini", Op: "decode", Err: fmt.Errorf("%w (raw: %.200s)", err, raw)}
	}
	return nil
}

// SearchGrounded implements Service.
func (c *Client) SearchGrounded(ctx context.Context, model, prompt string) (SearchResult, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	resp, err := c.generate(ctx, model, prompt, cfg)
	if err != nil {
		return SearchResult{}, &ExternalServiceError{Service: "gemini", Op: "search", Err: err}
	}

	return convertSearchResponse(resp), nil
}

// generate performs one GenerateContent call with the retry budget.
func (c *Client) generate(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: prompt}}},
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			if len(resp.Candidates) == 0 {
				lastErr = errors.New("no candidates returned")
				continue
			}
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", c.attempts, lastErr)
}

// collectText concatenates the text parts of the first candidate.
func collectText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text
}

// convertSearchResponse maps the SDK's grounding metadata onto the
// neutral SearchResult types. Supports lacking a segment or an end
// offset are dropped here; the citation resolver validates the rest.
func convertSearchResponse(resp *genai.GenerateContentResponse) SearchResult {
	result := SearchResult{Text: collectText(resp)}

	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return result
	}

	for _, chunk := range meta.GroundingChunks {
		gc := GroundingChunk{}
		if chunk.Web != nil {
			gc.URI = chunk.Web.URI
			gc.Title = chunk.Web.Title
		}
		result.Chunks = append(result.Chunks, gc)
	}

	for _, support := range meta.GroundingSupports {
		if support.Segment == nil || support.Segment.EndIndex == 0 {
			continue
		}
		gs := GroundingSupport{
			Start: int(support.Segment.StartIndex),
			End:   int(support.Segment.EndIndex),
		}
		for _, idx := range support.GroundingChunkIndices {
			gs.ChunkIndices = append(gs.ChunkIndices, int(idx))
		}
		result.Supports = append(result.Supports, gs)
	}

	return result
}

package agent

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// queryPlanSchema is the structured-output schema for query
// generation: a list of search queries, each with a rationale.
var queryPlanSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"queries": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {
						Type:        genai.TypeString,
						Description: "A web search query.",
					},
					"rationale": {
						Type:        genai.TypeString,
						Description: "Why this query helps answer the question.",
					},
				},
				Required: []string{"query", "rationale"},
			},
		},
	},
	Required: []string{"queries"},
}

// queryPlanResponse mirrors queryPlanSchema for decoding.
type queryPlanResponse struct {
	Queries []struct {
		Query     string `json:"query"`
		Rationale string `json:"rationale"`
	} `json:"queries"`
}

// reflectionSchema is the structured-output schema for the reflection
// verdict.
var reflectionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"is_sufficient": {
			Type:        genai.TypeBoolean,
			Description: "Whether the gathered summaries answer the question.",
		},
		"knowledge_gap": {
			Type:        genai.TypeString,
			Description: "What is missing or needs clarification.",
		},
		"follow_up_queries": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "Search queries that would close the gap.",
		},
	},
	Required: []string{"is_sufficient", "knowledge_gap", "follow_up_queries"},
}

// reflectionResponse mirrors reflectionSchema for decoding.
type reflectionResponse struct {
	IsSufficient    bool     `json:"is_sufficient"`
	KnowledgeGap    string   `json:"knowledge_gap"`
	FollowUpQueries []string `json:"follow_up_queries"`
}

func currentDate() string {
	return time.Now().Format("January 2, 2006")
}

// queryWriterPrompt instructs the model to plan diverse search
// queries for the research topic.
func queryWriterPrompt(topic string, numQueries int) string {
	return fmt.Sprintf(`You are a research planner. Today's date is %s.

Generate up to %d sophisticated and diverse web search queries for researching the topic below. Rules:
- Prefer a single query unless the topic genuinely asks for multiple aspects.
- Each query should target one specific aspect; do not generate near-duplicates.
- Queries should be current; include the year where freshness matters.
- For every query, explain briefly why it is relevant.

Topic: %s`, currentDate(), numQueries, topic)
}

// webSearcherPrompt instructs the model to research one query with
// Google Search grounding and produce a verifiable summary.
func webSearcherPrompt(query string) string {
	return fmt.Sprintf(`Conduct targeted Google Searches to gather the most recent, credible information on "%s" and synthesize it into a verifiable text artifact. Today's date is %s.

Instructions:
- Consolidate key findings while meticulously tracking which source supports which claim.
- Only include information found in the search results; never invent facts.
- The output should be a well-written summary or report based on your findings.

Research topic: %s`, query, currentDate(), query)
}

// reflectionPrompt instructs the model to judge the gathered summaries
// and propose follow-up queries for anything still missing.
func reflectionPrompt(topic string, summaries []string) string {
	return fmt.Sprintf(`You are an expert research assistant analyzing summaries about "%s".

Instructions:
- Identify knowledge gaps or areas that need deeper exploration.
- If the summaries are sufficient to answer the question, say so.
- If there is a gap, generate follow-up queries that are self-contained and include the context needed for a web search.

Summaries:
%s`, topic, strings.Join(summaries, "\n\n---\n\n"))
}

// answerPrompt instructs the reasoning model to compose the final
// answer from the gathered summaries, preserving the citation markers
// embedded in them.
func answerPrompt(topic string, summaries []string) string {
	return fmt.Sprintf(`Generate a high-quality answer to the user's question based on the provided summaries. Today's date is %s.

Instructions:
- You are the final step of a multi-step research process; do not mention that you are.
- Include the citation markers from the summaries verbatim in the answer.
- Answer the question directly; synthesize, do not enumerate the summaries.

User's question: %s

Summaries:
%s`, currentDate(), topic, strings.Join(summaries, "\n\n---\n\n"))
}

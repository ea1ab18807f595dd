// Package model provides a provider-neutral chat interface over the
// LLM SDKs used for answer composition, plus a mock for tests.
package model

import "context"

// ChatModel is the interface every provider adapter implements.
//
// Implementations handle provider-specific authentication, convert the
// neutral Message format to the provider's wire format, parse responses
// back into ChatOut, and respect context cancellation.
//
// Example usage:
//
//	m := openai.NewChatModel(apiKey, "gpt-4o")
//	out, err := m.Chat(ctx, []model.Message{
//	    {Role: model.RoleUser, Content: "Summarize these findings."},
//	}, nil)
type ChatModel interface {
	// Chat sends the conversation to the LLM and returns its reply.
	// tools may be nil; providers that do not support tool calling
	// return an error when tools are requested.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message is a single turn in an LLM conversation, in the common chat
// format shared by OpenAI, Anthropic and Google.
type Message struct {
	// Role identifies the sender; use the Role* constants.
	Role string

	// Content is the message text.
	Content string
}

// Standard role constants for LLM conversations.
const (
	// RoleSystem sets context or instructions; typically first.
	RoleSystem = "system"

	// RoleUser is human input.
	RoleUser = "user"

	// RoleAssistant is an LLM response.
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool the LLM may call. Schema follows JSON
// Schema and describes the expected input parameters.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

// ChatOut is the output of a chat completion: generated text, tool
// invocation requests, or both.
type ChatOut struct {
	// Text is the generated response. May be empty when the LLM
	// only requests tool calls.
	Text string

	// ToolCalls are tools the LLM wants invoked.
	ToolCalls []ToolCall
}

// ToolCall is a request from the LLM to invoke one tool with the given
// input. Input structure matches the corresponding ToolSpec.Schema.
type ToolCall struct {
	Name  string
	Input map[string]any
}

// Package model provides LLM integration adapters used by generation and
// synthesis nodes in a RAG workflow DAG: a uniform ChatModel interface plus
// provider adapters for Anthropic, OpenAI, and Google.
package model

import "context"

// ChatModel abstracts a conversational LLM provider, so a DAG node can be
// written once against this interface and pointed at any adapter.
//
// Implementations must respect context cancellation and report
// provider-specific failures (auth, rate limiting, content filtering) as
// plain errors; the node executor's retry policy, not the adapter, decides
// whether a failure is worth retrying.
type ChatModel interface {
	// Chat sends messages and any available tools to the LLM and returns its
	// complete response, including token usage for cost accounting.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)

	// StreamChat behaves like Chat but delivers the response incrementally.
	// The returned channel yields one StreamToken per delta and is closed
	// after a token with Done set to true (which carries the final Usage).
	// Callers must drain the channel or cancel ctx to avoid leaking the
	// producing goroutine.
	StreamChat(ctx context.Context, messages []Message, tools []ToolSpec) (<-chan StreamToken, error)
}

// StreamToken is one increment of a streamed chat response.
type StreamToken struct {
	// Token is the incremental text delta. Empty on the final, Done token.
	Token string
	// Done marks the end of the stream; Usage is only populated here.
	Done bool
	// Err, if non-nil, terminates the stream early; Done is also true.
	Err error
	// Usage carries final token accounting, set only when Done is true.
	Usage *Usage
}

// Usage reports token accounting for a completed chat call, letting callers
// attribute cost without the core scheduler needing to know about billing.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Message represents a single message in an LLM conversation.
//
// Messages are the fundamental unit of communication with LLM providers.
// They follow the common chat format used by OpenAI, Anthropic, Google, and other providers.
//
// Typical conversation structure:
// - System message (optional): Sets context and behavior.
// - User messages: User input or questions.
// - Assistant messages: LLM responses.
//
// Example:
//
// conversation := []Message{.
//
//		    {Role: RoleSystem, Content: "You are a helpful assistant."},
//		    {Role: RoleUser, Content: "What is the capital of France?"},
//		    {Role: RoleAssistant, Content: "The capital of France is Paris."},
//	}.
type Message struct {
	// Role identifies the message sender.
	// Standard roles: "system", "user", "assistant".
	// Use the Role* constants for consistency.
	Role string

	// Content contains the message text.
	// May be empty for messages that only contain tool calls.
	Content string
}

// Standard role constants for LLM conversations.
// These align with the conventions used by major LLM providers.
const (
	// RoleSystem indicates a system message that sets context or instructions.
	// System messages typically appear first in a conversation.
	RoleSystem = "system"

	// RoleUser indicates a message from the human user.
	// User messages contain questions, requests, or input data.
	RoleUser = "user"

	// RoleAssistant indicates a response from the LLM.
	// Assistant messages contain generated text or tool calls.
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool that an LLM can call.
//
// Tools enable LLMs to interact with external systems:
// - Web searches.
// - Database queries.
// - API calls.
// - Code execution.
//
// The Schema field follows JSON Schema format and describes the expected input parameters.
//
// Example:
//
// weatherTool := ToolSpec{.
//
//	Name:        "get_weather",
//	Description: "Get current weather for a location",
//
// Schema: map[string]interface{}{.
//
//	"type": "object",
//
// "properties": map[string]interface{}{.
// "location": map[string]interface{}{.
//
//		                "type":        "string",
//		                "description": "City name or coordinates",
//		            },
//		        },
//		        "required": []string{"location"},
//		    },
//	}.
type ToolSpec struct {
	// Name uniquely identifies the tool.
	// Must be a valid function name (alphanumeric + underscores).
	Name string

	// Description explains what the tool does.
	// The LLM uses this to decide when to call the tool.
	Description string

	// Schema defines the tool's input parameters using JSON Schema format.
	// Optional for tools with no parameters.
	Schema map[string]interface{}
}

// ChatOut represents the output from an LLM chat completion.
//
// LLMs can respond with:
// - Text only: A direct answer.
// - Tool calls only: Request to invoke external tools.
// - Both: Text explanation plus tool invocations.
//
// Example text response:
//
// out := ChatOut{.
//
//		    Text: "The capital of France is Paris.",
//	}.
//
// Example tool call response:
//
// out := ChatOut{.
// ToolCalls: []ToolCall{.
// {.
//
//		            Name:  "search_web",
//		            Input: map[string]interface{}{"query": "Paris landmarks"},
//		        },
//		    },
//	}.
type ChatOut struct {
	// Text contains the LLM's generated response.
	// May be empty if the LLM only wants to call tools.
	Text string

	// ToolCalls contains tools the LLM wants to invoke.
	// Empty if the LLM provided a direct text response.
	ToolCalls []ToolCall

	// Usage reports token accounting for this call, when the provider
	// reports it. Nil for adapters that don't surface usage.
	Usage *Usage
}

// ToolCall represents a request from the LLM to invoke a specific tool.
//
// After the LLM requests tool calls, the application should:
// 1. Execute each tool with the provided Input.
// 2. Collect the results.
// 3. Send results back to the LLM in a new message.
//
// Example:
//
// call := ToolCall{.
//
//		    Name:  "calculate",
//		    Input: map[string]interface{}{"expression": "2+2"},
//	}.
type ToolCall struct {
	// Name identifies which tool to call.
	// Must match a ToolSpec.Name from the available tools.
	Name string

	// Input contains the parameters for the tool call.
	// Structure matches the ToolSpec.Schema for this tool.
	// May be nil for tools that take no parameters.
	Input map[string]interface{}
}

// Selecting a provider for a generation node is ordinary Go: construct the
// ChatModel that fits the node (anthropic.NewChatModel, openai.NewChatModel,
// google.NewChatModel, or MockChatModel in tests) and pass it in via the
// node's closure. Providers that fail are surfaced as plain errors, so
// retry/fallback is expressed with the same RetryPolicy and graph.Optional
// machinery used elsewhere in
// the DAG rather than provider-specific logic in this package.

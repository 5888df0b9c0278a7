package core

import "github.com/google/uuid"

// Role constants for conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of a conversation history. An assistant message may
// carry tool calls; a tool message answers exactly one of them via ToolCallID.
//
// Invariant maintained by the executor: a tool message never precedes the
// assistant message announcing its tool call, and each human turn contributes
// exactly one user message.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAIMessage creates an assistant-role message.
func NewAIMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewToolMessage creates a tool-role message answering the tool call with the
// given id.
func NewToolMessage(content, toolCallID string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// WithToolCalls returns a copy of the message carrying the given tool calls.
func (m Message) WithToolCalls(calls []ToolCall) Message {
	m.ToolCalls = calls
	return m
}

// NewID generates a unique identifier for completions, conversations and
// minted tool-call ids.
func NewID() string { return uuid.NewString() }

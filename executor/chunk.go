package executor

import "encoding/json"

// Terminal finish reasons carried by wire chunks.
const (
	FinishReasonStop   = "stop"
	FinishReasonLength = "length"
)

// CompletionChunk is one frame of the external streaming wire protocol,
// shaped like an OpenAI chat completion chunk with an added conversation id.
type CompletionChunk struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	Object         string        `json:"object"` // always "chat.completion.chunk"
	Created        int64         `json:"created"`
	Model          string        `json:"model"`
	Choices        []ChunkChoice `json:"choices"`
}

// ChunkChoice carries the delta payload and terminal marker of a chunk.
// FinishReason is nil for intermediate chunks; the final chunk of a stream
// always carries a non-nil value.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	Logprobs     any        `json:"logprobs"` // always null
	FinishReason *string    `json:"finish_reason"`
}

// FinishReason returns the chunk's finish reason, or "" when the chunk is
// intermediate.
func (c CompletionChunk) FinishReason() string {
	if len(c.Choices) == 0 || c.Choices[0].FinishReason == nil {
		return ""
	}
	return *c.Choices[0].FinishReason
}

// ChunkToolCall is the wire form of a tool-call announcement inside a delta.
type ChunkToolCall struct {
	ID             string                `json:"id"`
	ConversationID string                `json:"conversation_id"`
	Type           string                `json:"type"` // always "function"
	Function       ChunkToolCallFunction `json:"function"`
}

// ChunkToolCallFunction names the called function and carries its (possibly
// still partial) serialized arguments.
type ChunkToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type deltaKind int

const (
	deltaEmpty deltaKind = iota
	deltaRole
	deltaContent
	deltaToolCalls
	deltaToolResult
)

// ChunkDelta is the closed union of delta shapes defined by the wire
// protocol. Construct values with the New*Delta helpers; MarshalJSON emits
// the exact shape for each kind, including explicit content nulls.
type ChunkDelta struct {
	kind       deltaKind
	role       string
	content    string
	toolCalls  []ChunkToolCall
	parsed     any
	toolName   string
	toolCallID string
}

// NewRoleDelta builds the initial delta {role, content: null}.
func NewRoleDelta(role string) ChunkDelta {
	return ChunkDelta{kind: deltaRole, role: role}
}

// NewContentDelta builds a text fragment delta {content}.
func NewContentDelta(text string) ChunkDelta {
	return ChunkDelta{kind: deltaContent, content: text}
}

// NewToolCallsDelta builds a tool-call announcement delta {tool_calls}.
func NewToolCallsDelta(calls ...ChunkToolCall) ChunkDelta {
	return ChunkDelta{kind: deltaToolCalls, toolCalls: calls}
}

// NewToolResultDelta builds a tool observation delta
// {content: null, parsed, tool_name, tool_call_id}.
func NewToolResultDelta(parsed any, toolName, toolCallID string) ChunkDelta {
	return ChunkDelta{kind: deltaToolResult, parsed: parsed, toolName: toolName, toolCallID: toolCallID}
}

// NewEmptyDelta builds the terminal delta {}.
func NewEmptyDelta() ChunkDelta {
	return ChunkDelta{kind: deltaEmpty}
}

// Content returns the delta's text fragment ("" for non-content deltas).
func (d ChunkDelta) Content() string { return d.content }

// ToolCalls returns the delta's tool-call announcements, if any.
func (d ChunkDelta) ToolCalls() []ChunkToolCall { return d.toolCalls }

// MarshalJSON implements json.Marshaler emitting the protocol shape for the
// delta's kind.
func (d ChunkDelta) MarshalJSON() ([]byte, error) {
	switch d.kind {
	case deltaRole:
		return json.Marshal(struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		}{Role: d.role})
	case deltaContent:
		return json.Marshal(struct {
			Content string `json:"content"`
		}{Content: d.content})
	case deltaToolCalls:
		return json.Marshal(struct {
			ToolCalls []ChunkToolCall `json:"tool_calls"`
		}{ToolCalls: d.toolCalls})
	case deltaToolResult:
		return json.Marshal(struct {
			Content    *string `json:"content"`
			Parsed     any     `json:"parsed"`
			ToolName   string  `json:"tool_name"`
			ToolCallID string  `json:"tool_call_id"`
		}{Parsed: d.parsed, ToolName: d.toolName, ToolCallID: d.toolCallID})
	default:
		return []byte("{}"), nil
	}
}

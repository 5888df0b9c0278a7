package core

import "encoding/json"

// ToolCall is the wire form of a single function/tool invocation request as
// emitted by tool-calling models.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // always "function"
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction names the target function and carries its serialized
// JSON arguments.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ParseToolCalls decodes a serialized tool-call batch. A failure is a
// SerializationError at the call sites that require a well-formed batch.
func ParseToolCalls(raw string) ([]ToolCall, error) {
	var calls []ToolCall
	if err := json.Unmarshal([]byte(raw), &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

// MarshalToolCalls serializes a tool-call batch to its canonical JSON form.
func MarshalToolCalls(calls []ToolCall) (string, error) {
	b, err := json.Marshal(calls)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

package core

import "encoding/json"

// AgentAction is a planner-issued request to invoke a named tool. Immutable
// once created.
type AgentAction struct {
	// Tool is the (unnormalized) tool name as emitted by the model.
	Tool string `json:"tool"`
	// ToolInput is the serialized JSON argument payload.
	ToolInput string `json:"tool_input"`
	// Log is an opaque serialized ActionLog linking the action back to its
	// tool-call id and the raw batch it came from.
	Log string `json:"log"`
}

// ActionLog is the structured record carried in AgentAction.Log. ToolCalls
// holds the raw serialized tool-call batch JSON so the originating assistant
// message can be reconstructed verbatim.
type ActionLog struct {
	ToolCallID string `json:"tool_call_id"`
	ToolCalls  string `json:"tool_calls"`
}

// ParseActionLog decodes an action's log record. Callers rendering history
// treat a failure as a fatal SerializationError; a step is never silently
// skipped.
func ParseActionLog(log string) (ActionLog, error) {
	var al ActionLog
	if err := json.Unmarshal([]byte(log), &al); err != nil {
		return ActionLog{}, &SerializationError{Err: err}
	}
	return al, nil
}

// String serializes the log record. The zero value serializes cleanly, so the
// error from json.Marshal is unreachable for this type.
func (l ActionLog) String() string {
	b, _ := json.Marshal(l)
	return string(b)
}

// AgentStep pairs an executed action with its observation string. Steps are
// append-only within one top-level invocation.
type AgentStep struct {
	Action      AgentAction `json:"action"`
	Observation string      `json:"observation"`
}

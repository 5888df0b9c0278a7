package core

import "fmt"

// PlanningError wraps a model invocation or output parsing failure. Always
// fatal: it aborts the call or stream.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("error in agent planning: %s", e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// ToolNotFoundError reports a planner-emitted tool name with no registered
// tool after normalization. Always fatal, regardless of the executor's
// break-on-error policy.
type ToolNotFoundError struct {
	Tool string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %s not found", e.Tool)
}

// ToolExecutionError wraps a tool failure. Recoverable by policy: with
// break-on-error enabled it escalates to fatal, otherwise the executor feeds
// the error text back to the planner as an observation.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// SerializationError reports a malformed action log or tool-call batch
// encountered while rendering history. Always fatal.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("malformed action log: %s", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

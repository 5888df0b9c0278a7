package core

// PlanEvent is the closed union of events a planner emits while producing one
// cycle's decision. Concrete types implement the unexported marker so the set
// cannot grow outside this package.
//
// A plan stream yields zero or more delta events (ContentDelta, ActionDelta)
// followed by exactly one terminal AgentEvent (ActionBatch or AgentFinish).
type PlanEvent interface{ isPlanEvent() }

// AgentEvent is the terminal decision of one planning cycle: either a batch
// of tool actions to execute or the finished output.
type AgentEvent interface {
	PlanEvent
	isAgentEvent()
}

// ContentDelta is a streamed fragment of assistant text preceding the
// terminal event.
type ContentDelta struct {
	Text string
}

func (ContentDelta) isPlanEvent() {}

// ActionDelta is a streamed partial action reflecting the accumulator's
// cumulative state so far. Used for live progress display only; the terminal
// ActionBatch carries the finalized actions.
type ActionDelta struct {
	Action AgentAction
}

func (ActionDelta) isPlanEvent() {}

// ActionBatch is the terminal decision to execute one or more tool actions.
// Batch order is significant and preserved by the executor.
type ActionBatch struct {
	Actions []AgentAction
}

func (ActionBatch) isPlanEvent()  {}
func (ActionBatch) isAgentEvent() {}

// AgentFinish is the terminal decision that the turn is complete.
type AgentFinish struct {
	Output string
}

func (AgentFinish) isPlanEvent()  {}
func (AgentFinish) isAgentEvent() {}

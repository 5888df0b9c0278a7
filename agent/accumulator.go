package agent

import (
	"strings"

	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/model"
)

// ToolCallAccumulator reconstructs one tool invocation from fragments
// arriving over a streaming connection where argument text is chunked and
// name/id may arrive once, early.
//
// The id is recorded on first sighting and never overwritten; the name is
// updated whenever present (last write wins); argument text is appended
// unconditionally.
type ToolCallAccumulator struct {
	name string
	args strings.Builder
	id   string
}

// NewToolCallAccumulator creates an empty accumulator.
func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{}
}

// Accumulate folds one fragment into the accumulator and returns a partial
// action reflecting the cumulative state so far, suitable for live progress
// display.
func (a *ToolCallAccumulator) Accumulate(delta model.ToolCallDelta) core.AgentAction {
	if delta.ID != "" && a.id == "" {
		a.id = delta.ID
	}
	if delta.Name != "" {
		a.name = delta.Name
	}
	a.args.WriteString(delta.Arguments)

	return a.toAction(a.args.String())
}

// Take drains the accumulator and returns the finalized action. An empty or
// whitespace-only argument buffer is replaced by the canonical empty JSON
// object so downstream parsing never fails on a zero-argument tool call.
// Only the argument buffer is reset; id and name persist for reuse within the
// same cycle slot.
func (a *ToolCallAccumulator) Take() core.AgentAction {
	args := a.args.String()
	a.args.Reset()
	return a.toAction(args)
}

// takeCall drains the accumulator into the wire form of its tool call,
// applying the same empty-arguments substitution as Take.
func (a *ToolCallAccumulator) takeCall() core.ToolCall {
	args := a.args.String()
	a.args.Reset()
	return a.toCall(args)
}

func (a *ToolCallAccumulator) toCall(args string) core.ToolCall {
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	return core.ToolCall{
		ID:   a.id,
		Type: "function",
		Function: core.ToolCallFunction{
			Name:      a.name,
			Arguments: args,
		},
	}
}

func (a *ToolCallAccumulator) toAction(args string) core.AgentAction {
	call := a.toCall(args)
	return actionFromCall(call, []core.ToolCall{call})
}

// actionFromCall builds an action whose log ties the call to the raw batch it
// arrived in. Marshaling a ToolCall value cannot fail; the fallback keeps the
// log parseable regardless.
func actionFromCall(call core.ToolCall, batch []core.ToolCall) core.AgentAction {
	raw, err := core.MarshalToolCalls(batch)
	if err != nil {
		raw = "[]"
	}
	log := core.ActionLog{ToolCallID: call.ID, ToolCalls: raw}
	return core.AgentAction{
		Tool:      call.Function.Name,
		ToolInput: call.Function.Arguments,
		Log:       log.String(),
	}
}

// batchAccumulator tracks one ToolCallAccumulator per tool-call slot, keyed
// by the provider's stream index, so batches with multiple concurrent calls
// are each accumulated independently.
type batchAccumulator struct {
	order []int
	slots map[int]*ToolCallAccumulator
}

func newBatchAccumulator() *batchAccumulator {
	return &batchAccumulator{slots: map[int]*ToolCallAccumulator{}}
}

// accumulate routes the fragment to its slot and returns that slot's partial
// action.
func (b *batchAccumulator) accumulate(delta model.ToolCallDelta) core.AgentAction {
	acc, ok := b.slots[delta.Index]
	if !ok {
		acc = NewToolCallAccumulator()
		b.slots[delta.Index] = acc
		b.order = append(b.order, delta.Index)
	}
	return acc.Accumulate(delta)
}

// take finalizes every slot in arrival order. All actions of the batch carry
// the same serialized batch JSON in their logs, so history rendering can
// collapse them into a single assistant message.
func (b *batchAccumulator) take() []core.AgentAction {
	calls := make([]core.ToolCall, 0, len(b.order))
	for _, idx := range b.order {
		calls = append(calls, b.slots[idx].takeCall())
	}

	actions := make([]core.AgentAction, 0, len(calls))
	for _, call := range calls {
		actions = append(actions, actionFromCall(call, calls))
	}
	return actions
}

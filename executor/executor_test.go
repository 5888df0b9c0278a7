package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/memory"
	"github.com/hupe1980/mcpagent/tool"
)

// fakePlanner scripts planner behavior per cycle. plan drives Call; stream
// (when set) drives Stream, otherwise PlanStream replays plan's terminal
// event.
type fakePlanner struct {
	tools     []tool.Tool
	plan      func(cycle int, steps []core.AgentStep, inputs map[string]any) (core.AgentEvent, error)
	stream    func(cycle int, steps []core.AgentStep, inputs map[string]any) ([]core.PlanEvent, error)
	planCalls int
}

func (p *fakePlanner) Plan(_ context.Context, steps []core.AgentStep, inputs map[string]any) (core.AgentEvent, error) {
	cycle := p.planCalls
	p.planCalls++
	return p.plan(cycle, steps, inputs)
}

func (p *fakePlanner) PlanStream(_ context.Context, steps []core.AgentStep, inputs map[string]any) (<-chan core.PlanEvent, <-chan error) {
	cycle := p.planCalls
	p.planCalls++

	out := make(chan core.PlanEvent, 32)
	errCh := make(chan error, 1)

	var events []core.PlanEvent
	var err error
	if p.stream != nil {
		events, err = p.stream(cycle, steps, inputs)
	} else {
		ev, planErr := p.plan(cycle, steps, inputs)
		if planErr != nil {
			err = planErr
		} else {
			events = []core.PlanEvent{ev}
		}
	}

	go func() {
		defer close(out)
		defer close(errCh)
		if err != nil {
			errCh <- err
			return
		}
		for _, ev := range events {
			out <- ev
		}
	}()
	return out, errCh
}

func (p *fakePlanner) Tools() []tool.Tool { return p.tools }

// countingTool records invocations and returns a fixed result or error.
type countingTool struct {
	name   string
	result string
	err    error
	calls  int
	inputs []string
}

func (t *countingTool) Name() string                { return t.name }
func (t *countingTool) Description() string         { return "test tool" }
func (t *countingTool) Parameters() map[string]any  { return map[string]any{"type": "object"} }
func (t *countingTool) Call(_ context.Context, input string) (string, error) {
	t.calls++
	t.inputs = append(t.inputs, input)
	if t.err != nil {
		return "", t.err
	}
	return t.result, nil
}

func makeAction(t *testing.T, id, name, input string) core.AgentAction {
	t.Helper()

	call := core.ToolCall{
		ID:   id,
		Type: "function",
		Function: core.ToolCallFunction{
			Name:      name,
			Arguments: input,
		},
	}
	raw, err := core.MarshalToolCalls([]core.ToolCall{call})
	require.NoError(t, err)

	log := core.ActionLog{ToolCallID: id, ToolCalls: raw}
	return core.AgentAction{Tool: name, ToolInput: input, Log: log.String()}
}

func batchOf(actions ...core.AgentAction) core.ActionBatch {
	return core.ActionBatch{Actions: actions}
}

func TestCall_FinishOnFirstCycle(t *testing.T) {
	tl := &countingTool{name: "sum", result: "8"}
	p := &fakePlanner{
		tools: []tool.Tool{tl},
		plan: func(int, []core.AgentStep, map[string]any) (core.AgentEvent, error) {
			return core.AgentFinish{Output: "final answer"}, nil
		},
	}

	out, err := NewExecutor(p).Call(context.Background(), map[string]any{"input": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "final answer", out)
	assert.Equal(t, 0, tl.calls, "no tool should be invoked on a first-cycle finish")
}

func TestCall_StepsFeedBackIntoPlanner(t *testing.T) {
	tl := &countingTool{name: "sum", result: "8"}
	var observedSteps []int
	p := &fakePlanner{
		tools: []tool.Tool{tl},
		plan: func(cycle int, steps []core.AgentStep, _ map[string]any) (core.AgentEvent, error) {
			observedSteps = append(observedSteps, len(steps))
			if cycle == 0 {
				return batchOf(makeAction(t, "call_1", "sum", `{"a":3,"b":5}`)), nil
			}
			require.Equal(t, "8", steps[len(steps)-1].Observation)
			return core.AgentFinish{Output: "the answer is 8"}, nil
		},
	}

	out, err := NewExecutor(p).Call(context.Background(), map[string]any{"input": "3+5?"})
	require.NoError(t, err)
	assert.Equal(t, "the answer is 8", out)
	assert.Equal(t, 1, tl.calls)
	assert.Equal(t, []int{0, 1}, observedSteps)
	assert.Equal(t, []string{`{"a":3,"b":5}`}, tl.inputs)
}

func TestCall_MaxIterations(t *testing.T) {
	tl := &countingTool{name: "sum", result: "8"}
	p := &fakePlanner{
		tools: []tool.Tool{tl},
		plan: func(cycle int, _ []core.AgentStep, _ map[string]any) (core.AgentEvent, error) {
			return batchOf(makeAction(t, fmt.Sprintf("call_%d", cycle), "sum", "{}")), nil
		},
	}

	e := NewExecutor(p, func(o *Options) { o.MaxIterations = 2 })
	out, err := e.Call(context.Background(), map[string]any{"input": "loop"})
	require.NoError(t, err)
	assert.Equal(t, MaxIterationsOutput, out)
	assert.Equal(t, 2, tl.calls, "cap of 2 admits exactly 2 recorded steps")
}

func TestCall_BreakIfErrorEscalates(t *testing.T) {
	toolErr := errors.New("division by zero")
	tl := &countingTool{name: "div", err: toolErr}
	p := &fakePlanner{
		tools: []tool.Tool{tl},
		plan: func(int, []core.AgentStep, map[string]any) (core.AgentEvent, error) {
			return batchOf(makeAction(t, "call_1", "div", `{"a":1,"b":0}`)), nil
		},
	}

	e := NewExecutor(p, func(o *Options) { o.BreakIfError = true })
	_, err := e.Call(context.Background(), map[string]any{"input": "divide"})
	require.Error(t, err)

	var execErr *core.ToolExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "div", execErr.Tool)
	assert.ErrorIs(t, err, toolErr)
	assert.Equal(t, 1, tl.calls, "failure must be fatal after a single attempt")
}

func TestCall_LenientErrorFeedsObservation(t *testing.T) {
	tl := &countingTool{name: "div", err: errors.New("division by zero")}
	var secondCycleObservation string
	p := &fakePlanner{
		tools: []tool.Tool{tl},
		plan: func(cycle int, steps []core.AgentStep, _ map[string]any) (core.AgentEvent, error) {
			if cycle == 0 {
				return batchOf(makeAction(t, "call_1", "div", "{}")), nil
			}
			secondCycleObservation = steps[0].Observation
			return core.AgentFinish{Output: "cannot divide by zero"}, nil
		},
	}

	out, err := NewExecutor(p).Call(context.Background(), map[string]any{"input": "divide"})
	require.NoError(t, err)
	assert.Equal(t, "cannot divide by zero", out)
	assert.Equal(t, "The tool returned the following error: division by zero", secondCycleObservation)
}

func TestCall_ToolNotFoundIsAlwaysFatal(t *testing.T) {
	p := &fakePlanner{
		plan: func(int, []core.AgentStep, map[string]any) (core.AgentEvent, error) {
			return batchOf(makeAction(t, "call_1", "missing", "{}")), nil
		},
	}

	for _, breakIfError := range []bool{true, false} {
		e := NewExecutor(p, func(o *Options) { o.BreakIfError = breakIfError })
		_, err := e.Call(context.Background(), map[string]any{"input": "x"})
		require.Error(t, err)

		var notFound *core.ToolNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "missing", notFound.Tool)
	}
}

func TestCall_PlannerErrorWrapped(t *testing.T) {
	planErr := errors.New("model unavailable")
	p := &fakePlanner{
		plan: func(int, []core.AgentStep, map[string]any) (core.AgentEvent, error) {
			return nil, planErr
		},
	}

	_, err := NewExecutor(p).Call(context.Background(), map[string]any{"input": "x"})
	require.Error(t, err)

	var pErr *core.PlanningError
	require.ErrorAs(t, err, &pErr)
	assert.ErrorIs(t, err, planErr)
}

func TestCall_NameNormalization(t *testing.T) {
	tl := &countingTool{name: " my calculator ", result: "ok"}
	p := &fakePlanner{
		tools: []tool.Tool{tl},
		plan: func(cycle int, _ []core.AgentStep, _ map[string]any) (core.AgentEvent, error) {
			if cycle == 0 {
				// the planner side may refer to the tool under either form
				return batchOf(makeAction(t, "call_1", "my calculator", "{}")), nil
			}
			return core.AgentFinish{Output: "done"}, nil
		},
	}

	_, err := NewExecutor(p).Call(context.Background(), map[string]any{"input": "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, tl.calls)
}

func TestCall_InputValidation(t *testing.T) {
	p := &fakePlanner{
		plan: func(int, []core.AgentStep, map[string]any) (core.AgentEvent, error) {
			return core.AgentFinish{Output: "unused"}, nil
		},
	}
	e := NewExecutor(p)

	_, err := e.Call(context.Background(), map[string]any{})
	assert.Error(t, err, "missing input variable must be rejected")

	_, err = e.Call(context.Background(), map[string]any{"input": "x", "chat_history": "nope"})
	assert.Error(t, err, "reserved chat_history must be rejected")

	_, err = e.Call(context.Background(), map[string]any{"input": "x", "agent_scratchpad": "nope"})
	assert.Error(t, err, "reserved agent_scratchpad must be rejected")
}

func TestCall_CallerInputsNotMutated(t *testing.T) {
	p := &fakePlanner{
		plan: func(_ int, _ []core.AgentStep, inputs map[string]any) (core.AgentEvent, error) {
			assert.Contains(t, inputs, "chat_history")
			return core.AgentFinish{Output: "done"}, nil
		},
	}

	inputs := map[string]any{"input": "x"}
	_, err := NewExecutor(p).Call(context.Background(), inputs)
	require.NoError(t, err)
	assert.NotContains(t, inputs, "chat_history", "caller's map must stay untouched")
}

func TestCall_PersistsTurnToMemory(t *testing.T) {
	hist := memory.NewChatHistory()
	tl := &countingTool{name: "sum", result: "8"}
	p := &fakePlanner{
		tools: []tool.Tool{tl},
		plan: func(cycle int, _ []core.AgentStep, _ map[string]any) (core.AgentEvent, error) {
			if cycle == 0 {
				return batchOf(makeAction(t, "call_1", "sum", `{"a":3,"b":5}`)), nil
			}
			return core.AgentFinish{Output: "the answer is 8"}, nil
		},
	}

	e := NewExecutor(p, func(o *Options) { o.Memory = hist })
	_, err := e.Call(context.Background(), map[string]any{"input": "3+5?"})
	require.NoError(t, err)

	msgs := hist.Messages()
	require.Len(t, msgs, 4)

	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, "3+5?", msgs[0].Content)

	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "call_1", msgs[1].ToolCalls[0].ID)

	assert.Equal(t, core.RoleTool, msgs[2].Role)
	assert.Equal(t, "8", msgs[2].Content)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)

	assert.Equal(t, core.RoleAssistant, msgs[3].Role)
	assert.Equal(t, "the answer is 8", msgs[3].Content)
}

func TestCall_MemorySeedsChatHistory(t *testing.T) {
	hist := memory.NewChatHistory()
	hist.AddUserMessage("earlier question")
	hist.AddAIMessage("earlier answer")

	var seenHistory []core.Message
	p := &fakePlanner{
		plan: func(_ int, _ []core.AgentStep, inputs map[string]any) (core.AgentEvent, error) {
			seenHistory, _ = inputs["chat_history"].([]core.Message)
			return core.AgentFinish{Output: "done"}, nil
		},
	}

	e := NewExecutor(p, func(o *Options) { o.Memory = hist })
	_, err := e.Call(context.Background(), map[string]any{"input": "x"})
	require.NoError(t, err)

	require.Len(t, seenHistory, 2)
	assert.Equal(t, "earlier question", seenHistory[0].Content)
}

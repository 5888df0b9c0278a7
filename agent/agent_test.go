package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/model"
	"github.com/hupe1980/mcpagent/tool"
)

// recordingModel replays a fixed response and captures the request it was
// given so tests can assert on the assembled prompt.
type recordingModel struct {
	resp    model.Response
	lastReq model.Request
}

func (m *recordingModel) Generate(_ context.Context, req model.Request) (*model.Response, error) {
	m.lastReq = req
	resp := m.resp
	return &resp, nil
}

func (m *recordingModel) GenerateStream(ctx context.Context, req model.Request) (<-chan model.StreamChunk, <-chan error) {
	m.lastReq = req
	out := make(chan model.StreamChunk)
	errCh := make(chan error, 1)
	close(out)
	close(errCh)
	return out, errCh
}

func (m *recordingModel) Info() model.Info { return model.Info{Name: "recording", Provider: "mock"} }

// failingModel returns the same error from every call.
type failingModel struct{ err error }

func (m *failingModel) Generate(context.Context, model.Request) (*model.Response, error) {
	return nil, m.err
}

func (m *failingModel) GenerateStream(context.Context, model.Request) (<-chan model.StreamChunk, <-chan error) {
	out := make(chan model.StreamChunk)
	errCh := make(chan error, 1)
	close(out)
	errCh <- m.err
	close(errCh)
	return out, errCh
}

func (m *failingModel) Info() model.Info { return model.Info{Name: "failing", Provider: "mock"} }

func echoTool(name string) tool.Tool {
	return tool.NewFunctionTool(name, "echo back the input",
		map[string]any{"type": "object"},
		func(_ context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	)
}

func TestAgent_PlanFinish(t *testing.T) {
	m := model.NewMockModel(model.Response{Content: "all done"})
	a := NewAgent(m, nil)

	ev, err := a.Plan(context.Background(), nil, map[string]any{"input": "hi"})
	require.NoError(t, err)

	finish, ok := ev.(core.AgentFinish)
	require.True(t, ok, "expected AgentFinish, got %T", ev)
	assert.Equal(t, "all done", finish.Output)
}

func TestAgent_PlanActionBatch(t *testing.T) {
	calls := []core.ToolCall{
		{ID: "call_1", Type: "function", Function: core.ToolCallFunction{Name: "sum", Arguments: `{"a":1,"b":2}`}},
		{ID: "call_2", Type: "function", Function: core.ToolCallFunction{Name: "sub", Arguments: `{"a":5,"b":3}`}},
	}
	m := model.NewMockModel(model.Response{ToolCalls: calls})
	a := NewAgent(m, []tool.Tool{echoTool("sum"), echoTool("sub")})

	ev, err := a.Plan(context.Background(), nil, map[string]any{"input": "hi"})
	require.NoError(t, err)

	batch, ok := ev.(core.ActionBatch)
	require.True(t, ok, "expected ActionBatch, got %T", ev)
	require.Len(t, batch.Actions, 2)

	assert.Equal(t, "sum", batch.Actions[0].Tool)
	assert.Equal(t, "sub", batch.Actions[1].Tool)

	logA, err := core.ParseActionLog(batch.Actions[0].Log)
	require.NoError(t, err)
	logB, err := core.ParseActionLog(batch.Actions[1].Log)
	require.NoError(t, err)
	assert.Equal(t, "call_1", logA.ToolCallID)
	assert.Equal(t, "call_2", logB.ToolCallID)
	assert.Equal(t, logA.ToolCalls, logB.ToolCalls)
}

func TestAgent_PlanStream_Finish(t *testing.T) {
	m := model.NewMockModel(model.Response{Content: "hello"}).WithChunkedText()
	a := NewAgent(m, nil)

	events, errCh := a.PlanStream(context.Background(), nil, map[string]any{"input": "hi"})

	var text string
	var terminal core.PlanEvent
	for ev := range events {
		switch e := ev.(type) {
		case core.ContentDelta:
			text += e.Text
		case core.AgentFinish, core.ActionBatch:
			terminal = e
		}
	}
	require.NoError(t, <-errCh)

	finish, ok := terminal.(core.AgentFinish)
	require.True(t, ok, "expected AgentFinish terminal, got %T", terminal)
	assert.Equal(t, "hello", text)
	assert.Equal(t, "hello", finish.Output)
}

func TestAgent_PlanStream_ToolCalls(t *testing.T) {
	calls := []core.ToolCall{
		{ID: "call_1", Type: "function", Function: core.ToolCallFunction{Name: "sum", Arguments: `{"a":3,"b":5}`}},
	}
	m := model.NewMockModel(model.Response{ToolCalls: calls})
	a := NewAgent(m, []tool.Tool{echoTool("sum")})

	events, errCh := a.PlanStream(context.Background(), nil, map[string]any{"input": "hi"})

	deltas := 0
	var terminal core.PlanEvent
	for ev := range events {
		switch ev.(type) {
		case core.ActionDelta:
			deltas++
		case core.ActionBatch, core.AgentFinish:
			terminal = ev
		}
	}
	require.NoError(t, <-errCh)

	assert.Greater(t, deltas, 1, "argument fragments should surface as partial actions")

	batch, ok := terminal.(core.ActionBatch)
	require.True(t, ok, "expected ActionBatch terminal, got %T", terminal)
	require.Len(t, batch.Actions, 1)
	assert.Equal(t, "sum", batch.Actions[0].Tool)
	assert.Equal(t, `{"a":3,"b":5}`, batch.Actions[0].ToolInput)
}

func TestAgent_PlanStream_ModelError(t *testing.T) {
	wantErr := errors.New("upstream unavailable")
	a := NewAgent(&failingModel{err: wantErr}, nil)

	events, errCh := a.PlanStream(context.Background(), nil, map[string]any{"input": "hi"})
	for range events {
	}

	err := <-errCh
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

func TestAgent_RequestShape(t *testing.T) {
	m := &recordingModel{resp: model.Response{Content: "ok"}}
	a := NewAgent(m, []tool.Tool{echoTool(" my tool ")}, func(o *Options) {
		o.Prefix = "You are a test assistant."
	})

	history := []core.Message{
		core.NewUserMessage("earlier question"),
		core.NewAIMessage("earlier answer"),
	}
	step := makeStep(t, 0)

	_, err := a.Plan(context.Background(), []core.AgentStep{step}, map[string]any{
		"input":        "current question",
		"chat_history": history,
	})
	require.NoError(t, err)

	msgs := m.lastReq.Messages
	require.GreaterOrEqual(t, len(msgs), 6)

	assert.Equal(t, core.RoleSystem, msgs[0].Role)
	assert.Equal(t, "You are a test assistant.", msgs[0].Content)

	assert.Equal(t, core.RoleUser, msgs[1].Role)
	assert.Equal(t, "current question", msgs[1].Content)

	assert.Equal(t, "earlier question", msgs[2].Content)
	assert.Equal(t, "earlier answer", msgs[3].Content)

	// scratchpad follows the history
	assert.Equal(t, core.RoleAssistant, msgs[4].Role)
	assert.Equal(t, core.RoleTool, msgs[5].Role)

	require.Len(t, m.lastReq.Tools, 1)
	assert.Equal(t, "my_tool", m.lastReq.Tools[0].Function.Name)
}

func TestInputText(t *testing.T) {
	assert.Equal(t, "plain", InputText(map[string]any{"input": "plain"}))
	assert.Equal(t, `{"q":"x"}`, InputText(map[string]any{"input": map[string]any{"q": "x"}}))
	assert.Equal(t, "42", InputText(map[string]any{"input": 42}))
}

package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mcpagent/core"
)

func TestMockModel_ReplaysScript(t *testing.T) {
	m := NewMockModel(
		Response{Content: "first"},
		Response{Content: "second"},
	)

	resp, err := m.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)

	resp, err = m.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Content)

	_, err = m.Generate(context.Background(), Request{})
	assert.Error(t, err, "exhausted script must error")
}

func TestMockModel_StreamFragmentsToolCalls(t *testing.T) {
	m := NewMockModel(Response{ToolCalls: []core.ToolCall{{
		ID:   "call_1",
		Type: "function",
		Function: core.ToolCallFunction{
			Name:      "sum",
			Arguments: `{"a":3,"b":5}`,
		},
	}}})

	chunks, errCh := m.GenerateStream(context.Background(), Request{})

	var deltas []ToolCallDelta
	finish := ""
	for ck := range chunks {
		deltas = append(deltas, ck.ToolCalls...)
		if ck.FinishReason != "" {
			finish = ck.FinishReason
		}
	}
	require.NoError(t, <-errCh)

	assert.Equal(t, "tool_calls", finish)
	require.GreaterOrEqual(t, len(deltas), 2, "arguments must arrive fragmented")
	assert.Equal(t, "call_1", deltas[0].ID)
	assert.Equal(t, "sum", deltas[0].Name)

	var args string
	for _, d := range deltas {
		args += d.Arguments
	}
	assert.Equal(t, `{"a":3,"b":5}`, args)
}

func TestMockModel_StreamText(t *testing.T) {
	m := NewMockModel(Response{Content: "hello"}).WithChunkedText()

	chunks, errCh := m.GenerateStream(context.Background(), Request{})

	var text string
	finish := ""
	for ck := range chunks {
		text += ck.Content
		if ck.FinishReason != "" {
			finish = ck.FinishReason
		}
	}
	require.NoError(t, <-errCh)

	assert.Equal(t, "hello", text)
	assert.Equal(t, "stop", finish)
}

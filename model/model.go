package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/mcpagent/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the
// model. Parameters is a JSON Schema object (minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input assembled by the planner.
type Request struct {
	Messages  []core.Message   `json:"messages"`
	Tools     []ToolDefinition `json:"tools,omitempty"`
	MaxTokens int64            `json:"max_tokens,omitempty"`
}

// Response is a complete (non-streaming) model generation. Exactly one of
// Content / ToolCalls is meaningful: a generation that requested tools may
// still carry preamble text in Content.
type Response struct {
	Content   string          `json:"content"`
	ToolCalls []core.ToolCall `json:"tool_calls,omitempty"`
}

// ToolCallDelta is one streamed fragment of a tool call. ID and Name arrive
// once, early; Arguments text is chunked across many deltas. Index identifies
// the tool-call slot within the batch.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// StreamChunk is the closed, fully-typed form of one streamed response
// fragment. Adapters fail fast on unrecognized provider shapes instead of
// leaking them past this boundary.
//
// FinishReason is empty for intermediate chunks; "stop", "tool_calls" and
// "length" are the recognized terminal values.
type StreamChunk struct {
	Content      string          `json:"content,omitempty"`
	ToolCalls    []ToolCallDelta `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// Model is the minimal interface the planner requires of a provider.
type Model interface {
	// Generate performs one blocking completion.
	Generate(ctx context.Context, req Request) (*Response, error)

	// GenerateStream performs one streaming completion. The chunk channel is
	// closed when the stream ends; a terminal failure is delivered on the
	// error channel (buffered, capacity 1).
	GenerateStream(ctx context.Context, req Request) (<-chan StreamChunk, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model for tests and examples. It
// replays scripted responses in order, one per Generate/GenerateStream call.
type MockModel struct {
	info    Info
	script  []Response
	cursor  int
	chunked bool
}

// NewMockModel constructs a MockModel that replays the given responses.
func NewMockModel(responses ...Response) *MockModel {
	return &MockModel{
		info:   Info{Name: "mock", Provider: "mock"},
		script: responses,
	}
}

// WithChunkedText makes GenerateStream split text output into rune-sized
// content deltas instead of a single chunk.
func (m *MockModel) WithChunkedText() *MockModel {
	m.chunked = true
	return m
}

func (m *MockModel) next() (Response, error) {
	if m.cursor >= len(m.script) {
		return Response{}, fmt.Errorf("mock model: script exhausted after %d responses", len(m.script))
	}
	resp := m.script[m.cursor]
	m.cursor++
	return resp, nil
}

// Generate implements Model.
func (m *MockModel) Generate(_ context.Context, _ Request) (*Response, error) {
	resp, err := m.next()
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateStream implements Model by decomposing the next scripted response
// into deltas the way tool-calling providers chunk their output: id and name
// first, then argument text split in two.
func (m *MockModel) GenerateStream(ctx context.Context, _ Request) (<-chan StreamChunk, <-chan error) {
	out := make(chan StreamChunk, 16)
	errCh := make(chan error, 1)

	resp, err := m.next()
	if err != nil {
		close(out)
		errCh <- err
		close(errCh)
		return out, errCh
	}

	go func() {
		defer close(out)
		defer close(errCh)

		emit := func(ck StreamChunk) bool {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return false
			case out <- ck:
				return true
			}
		}

		if len(resp.ToolCalls) > 0 {
			for i, tc := range resp.ToolCalls {
				if !emit(StreamChunk{ToolCalls: []ToolCallDelta{{Index: i, ID: tc.ID, Name: tc.Function.Name}}}) {
					return
				}
				args := tc.Function.Arguments
				mid := len(args) / 2
				for _, frag := range []string{args[:mid], args[mid:]} {
					if frag == "" {
						continue
					}
					if !emit(StreamChunk{ToolCalls: []ToolCallDelta{{Index: i, Arguments: frag}}}) {
						return
					}
				}
			}
			emit(StreamChunk{FinishReason: "tool_calls"})
			return
		}

		if m.chunked {
			for _, r := range resp.Content {
				if !emit(StreamChunk{Content: string(r)}) {
					return
				}
			}
		} else if resp.Content != "" {
			if !emit(StreamChunk{Content: resp.Content}) {
				return
			}
		}
		emit(StreamChunk{FinishReason: "stop"})
	}()

	return out, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

// TextContent joins the plain-text content of a request's messages, newest
// last. Handy for assertions in tests.
func TextContent(req Request) string {
	var sb strings.Builder
	for _, msg := range req.Messages {
		sb.WriteString(msg.Content)
	}
	return sb.String()
}

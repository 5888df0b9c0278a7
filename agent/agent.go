// Package agent implements the planner: it assembles the model prompt from
// the conversation history and the rendered step scratchpad, asks the model
// for the next decision, and reconstructs complete tool invocations from
// streamed response fragments.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/logging"
	"github.com/hupe1980/mcpagent/model"
	"github.com/hupe1980/mcpagent/tool"
)

// DefaultPrefix is the system prompt used when no custom prefix is supplied.
const DefaultPrefix = `
Assistant is designed to be able to assist with a wide range of tasks, from answering simple questions to providing in-depth explanations and discussions on a wide range of topics. As a language model, Assistant is able to generate human-like text based on the input it receives, allowing it to engage in natural-sounding conversations and provide responses that are coherent and relevant to the topic at hand.

Assistant is constantly learning and improving, and its capabilities are constantly evolving. It is able to process and understand large amounts of text, and can use this knowledge to provide accurate and informative responses to a wide range of questions. Additionally, Assistant is able to generate its own text based on the input it receives, allowing it to engage in discussions and provide explanations and descriptions on a wide range of topics.

Overall, Assistant is a powerful system that can help with a wide range of tasks and provide valuable insights and information on a wide range of topics. Whether you need help with a specific question or just want to have a conversation about a particular topic, Assistant is here to assist.
`

// Options configures an Agent instance.
type Options struct {
	// Prefix is the system prompt prepended to every request.
	Prefix string
	// MaxTokens caps each model generation. Zero leaves the provider default.
	MaxTokens int64
	// Logger receives planning diagnostics. Defaults to a no-op logger.
	Logger logging.Logger
}

// Agent plans the next step of a tool-use conversation. It is stateless
// across cycles; all per-invocation state (steps, history) is passed in.
type Agent struct {
	model     model.Model
	tools     []tool.Tool
	prefix    string
	maxTokens int64
	logger    logging.Logger
}

// NewAgent creates a planner over the given model and tools.
func NewAgent(m model.Model, tools []tool.Tool, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Prefix: DefaultPrefix,
		Logger: logging.NewNoOpLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Agent{
		model:     m,
		tools:     tools,
		prefix:    opts.Prefix,
		maxTokens: opts.MaxTokens,
		logger:    opts.Logger,
	}
}

// Tools returns the tools this planner may request.
func (a *Agent) Tools() []tool.Tool { return a.tools }

// Plan asks the model for the next decision given the running step list and
// the named input variables. The returned event is either an ActionBatch or
// an AgentFinish.
func (a *Agent) Plan(ctx context.Context, steps []core.AgentStep, inputs map[string]any) (core.AgentEvent, error) {
	req, err := a.buildRequest(steps, inputs)
	if err != nil {
		return nil, err
	}

	resp, err := a.model.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.ToolCalls) == 0 {
		return core.AgentFinish{Output: resp.Content}, nil
	}

	raw, err := core.MarshalToolCalls(resp.ToolCalls)
	if err != nil {
		return nil, fmt.Errorf("marshal tool-call batch: %w", err)
	}

	actions := make([]core.AgentAction, 0, len(resp.ToolCalls))
	for _, call := range resp.ToolCalls {
		log := core.ActionLog{ToolCallID: call.ID, ToolCalls: raw}
		actions = append(actions, core.AgentAction{
			Tool:      call.Function.Name,
			ToolInput: call.Function.Arguments,
			Log:       log.String(),
		})
	}
	return core.ActionBatch{Actions: actions}, nil
}

// PlanStream asks the model for the next decision as a live event stream:
// zero or more ContentDelta / ActionDelta events followed by exactly one
// terminal ActionBatch or AgentFinish, after which the event channel closes.
// A terminal failure is delivered on the error channel instead.
func (a *Agent) PlanStream(ctx context.Context, steps []core.AgentStep, inputs map[string]any) (<-chan core.PlanEvent, <-chan error) {
	out := make(chan core.PlanEvent, 16)
	errCh := make(chan error, 1)

	req, err := a.buildRequest(steps, inputs)
	if err != nil {
		close(out)
		errCh <- err
		close(errCh)
		return out, errCh
	}

	chunks, modelErrCh := a.model.GenerateStream(ctx, req)

	go func() {
		defer close(out)
		defer close(errCh)

		var output string
		acc := newBatchAccumulator()
		hasToolCalls := false

		emit := func(ev core.PlanEvent) bool {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return false
			case out <- ev:
				return true
			}
		}

		for ck := range chunks {
			if ck.Content != "" {
				output += ck.Content
				if !emit(core.ContentDelta{Text: ck.Content}) {
					return
				}
			}

			for _, delta := range ck.ToolCalls {
				hasToolCalls = true
				partial := acc.accumulate(delta)
				if !emit(core.ActionDelta{Action: partial}) {
					return
				}
			}

			if ck.FinishReason != "" {
				emit(finishDecision(ck.FinishReason, acc, hasToolCalls, output))
				return
			}
		}

		if err := <-modelErrCh; err != nil {
			errCh <- err
			return
		}

		// Stream ended without an explicit finish reason; drain whatever was
		// accumulated.
		if hasToolCalls {
			emit(core.ActionBatch{Actions: acc.take()})
			return
		}
		emit(core.AgentFinish{Output: output})
	}()

	return out, errCh
}

// finishDecision maps the provider's finish reason onto the terminal event.
// "tool_calls" and "stop"-with-tool-calls drain the accumulator into an
// action batch; everything else finishes with the accumulated text.
func finishDecision(reason string, acc *batchAccumulator, hasToolCalls bool, output string) core.AgentEvent {
	switch reason {
	case "tool_calls":
		return core.ActionBatch{Actions: acc.take()}
	case "stop":
		if hasToolCalls {
			return core.ActionBatch{Actions: acc.take()}
		}
		return core.AgentFinish{Output: output}
	default:
		return core.AgentFinish{Output: output}
	}
}

// buildRequest assembles the model request: system prefix, the user input,
// the conversation history, then the rendered scratchpad.
func (a *Agent) buildRequest(steps []core.AgentStep, inputs map[string]any) (model.Request, error) {
	scratchpad, err := ConstructScratchpad(steps)
	if err != nil {
		return model.Request{}, err
	}

	messages := make([]core.Message, 0, len(scratchpad)+8)
	messages = append(messages, core.NewSystemMessage(a.prefix))
	messages = append(messages, core.NewUserMessage(InputText(inputs)))

	if history, ok := inputs["chat_history"].([]core.Message); ok {
		messages = append(messages, history...)
	}
	messages = append(messages, scratchpad...)

	a.logger.Debug("agent.plan.request",
		"messages", len(messages),
		"steps", len(steps),
		"tools", len(a.tools),
	)

	return model.Request{
		Messages:  messages,
		Tools:     a.toolDefinitions(),
		MaxTokens: a.maxTokens,
	}, nil
}

func (a *Agent) toolDefinitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(a.tools))
	for _, t := range a.tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        tool.NormalizeName(t.Name()),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// InputText renders the required "input" variable as prompt text. String
// values pass through unquoted; anything else is JSON-encoded.
func InputText(inputs map[string]any) string {
	switch v := inputs["input"].(type) {
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

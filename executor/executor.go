// Package executor drives the bounded plan→act→observe loop around a
// tool-calling planner: it dispatches planned actions to tools, folds
// observations back into the step history and conversation memory, and (in
// the streaming variant) re-emits the whole turn as an OpenAI-shaped chunk
// stream.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/logging"
	"github.com/hupe1980/mcpagent/memory"
	"github.com/hupe1980/mcpagent/tool"
)

// MaxIterationsOutput is the sentinel output returned when the iteration cap
// stops a call before the planner finishes.
const MaxIterationsOutput = "Max iterations reached"

// maxIterationsAdvisory is the content of the terminal chunk emitted when the
// streaming variant hits the iteration cap.
const maxIterationsAdvisory = "Maximum iterations reached."

// Planner is the decision-making collaborator driven by the executor. The
// executor injects "chat_history" and "agent_scratchpad" context; callers
// must not supply those input variables themselves.
type Planner interface {
	// Plan returns the terminal decision for one cycle.
	Plan(ctx context.Context, steps []core.AgentStep, inputs map[string]any) (core.AgentEvent, error)

	// PlanStream returns the cycle's decision as a live event stream ending
	// in exactly one terminal event.
	PlanStream(ctx context.Context, steps []core.AgentStep, inputs map[string]any) (<-chan core.PlanEvent, <-chan error)

	// Tools lists the tools the planner may request.
	Tools() []tool.Tool
}

// Options configures an Executor.
type Options struct {
	// Memory persists the conversation across calls. Nil disables persistence.
	Memory memory.ChatMemory
	// MaxIterations bounds the number of recorded steps per call. Zero or
	// negative disables the bound.
	MaxIterations int
	// BreakIfError escalates tool failures to fatal errors instead of feeding
	// the error text back to the planner as an observation.
	BreakIfError bool
	// Model is the model name stamped on wire chunks.
	Model string
	// Logger receives execution diagnostics. Defaults to a no-op logger.
	Logger logging.Logger
}

// Executor orchestrates repeated planner cycles, tool dispatch, error policy,
// the iteration bound and memory persistence. Safe for concurrent use as long
// as the configured memory implementation is.
type Executor struct {
	planner       Planner
	memory        memory.ChatMemory
	maxIterations int
	breakIfError  bool
	model         string
	logger        logging.Logger
}

// NewExecutor creates an executor around the given planner. Defaults: ten
// iterations, tool errors fed back as observations, no memory, no-op logger.
func NewExecutor(planner Planner, optFns ...func(o *Options)) *Executor {
	opts := Options{
		MaxIterations: 10,
		Model:         "mcpagent",
		Logger:        logging.NewNoOpLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{
		planner:       planner,
		memory:        opts.Memory,
		maxIterations: opts.MaxIterations,
		breakIfError:  opts.BreakIfError,
		model:         opts.Model,
		logger:        opts.Logger,
	}
}

// nameToTools builds the immutable lookup table used to resolve planner
// actions, keyed by normalized tool name. Built once per call/stream.
func (e *Executor) nameToTools() map[string]tool.Tool {
	table := make(map[string]tool.Tool)
	for _, t := range e.planner.Tools() {
		e.logger.Debug("executor.tool.load", "tool", t.Name())
		table[tool.NormalizeName(t.Name())] = t
	}
	return table
}

// prepareInputs validates the caller-supplied variables and returns a copy
// seeded with the conversation history snapshot.
func (e *Executor) prepareInputs(inputs map[string]any) (map[string]any, error) {
	if _, ok := inputs["input"]; !ok {
		return nil, fmt.Errorf("missing required input variable %q", "input")
	}
	for _, reserved := range []string{"chat_history", "agent_scratchpad"} {
		if _, ok := inputs[reserved]; ok {
			return nil, fmt.Errorf("input variable %q is injected by the executor and must not be supplied", reserved)
		}
	}

	vars := make(map[string]any, len(inputs)+2)
	for k, v := range inputs {
		vars[k] = v
	}

	if e.memory != nil {
		vars["chat_history"] = e.memory.Messages()
	} else {
		vars["chat_history"] = []core.Message{}
	}
	return vars, nil
}

// Call runs the synchronous loop to completion and returns the final output.
func (e *Executor) Call(ctx context.Context, inputs map[string]any) (string, error) {
	nameToTools := e.nameToTools()

	vars, err := e.prepareInputs(inputs)
	if err != nil {
		return "", err
	}

	var steps []core.AgentStep
	for {
		event, err := e.planner.Plan(ctx, steps, vars)
		if err != nil {
			return "", &core.PlanningError{Err: err}
		}

		switch ev := event.(type) {
		case core.ActionBatch:
			for _, action := range ev.Actions {
				observation, err := e.dispatch(ctx, nameToTools, action)
				if err != nil {
					return "", err
				}
				steps = append(steps, core.AgentStep{Action: action, Observation: observation})
			}

		case core.AgentFinish:
			if err := e.persistTurn(vars, steps, "", ev.Output); err != nil {
				return "", err
			}
			return ev.Output, nil
		}

		if e.maxIterations > 0 && len(steps) >= e.maxIterations {
			e.logger.Warn("executor.max_iterations", "steps", len(steps))
			return MaxIterationsOutput, nil
		}
	}
}

// dispatch resolves and invokes one action's tool, applying the error policy.
// An unresolved name is fatal regardless of policy; a tool failure either
// escalates or degrades to an observation embedding the error text.
func (e *Executor) dispatch(ctx context.Context, nameToTools map[string]tool.Tool, action core.AgentAction) (string, error) {
	t, ok := nameToTools[tool.NormalizeName(action.Tool)]
	if !ok {
		return "", &core.ToolNotFoundError{Tool: action.Tool}
	}

	e.logger.Debug("executor.action", "tool", action.Tool, "input", action.ToolInput)

	start := time.Now()
	observation, err := t.Call(ctx, action.ToolInput)
	logging.ToolCall(e.logger, t.Name(), time.Since(start), err)

	if err != nil {
		if e.breakIfError {
			return "", &core.ToolExecutionError{Tool: action.Tool, Err: err}
		}
		return toolErrorObservation(err), nil
	}
	return observation, nil
}

// toolErrorObservation synthesizes the observation fed back to the planner
// when a tool fails under the lenient error policy.
func toolErrorObservation(err error) string {
	return fmt.Sprintf("The tool returned the following error: %s", err)
}

// persistTurn folds a finished turn into memory: the user input once, one
// assistant+tool-result group per distinct step batch, then the final output.
func (e *Executor) persistTurn(vars map[string]any, steps []core.AgentStep, accumulated, output string) error {
	if e.memory == nil {
		return nil
	}

	e.memory.AddUserMessage(inputText(vars))

	if accumulated != "" {
		e.memory.AddAIMessage(accumulated)
	}

	seen := map[string]struct{}{}
	for _, step := range steps {
		if err := e.flushStep(step, seen); err != nil {
			return err
		}
	}

	e.memory.AddAIMessage(output)
	return nil
}

// flushStep writes one step's message group to memory, collapsing repeated
// identical tool-call batches into a single assistant message via seen.
func (e *Executor) flushStep(step core.AgentStep, seen map[string]struct{}) error {
	log, err := core.ParseActionLog(step.Action.Log)
	if err != nil {
		return err
	}

	calls, err := core.ParseToolCalls(log.ToolCalls)
	if err != nil {
		return &core.SerializationError{Err: err}
	}

	if _, ok := seen[log.ToolCalls]; !ok {
		seen[log.ToolCalls] = struct{}{}
		e.memory.AddMessage(core.NewAIMessage("").WithToolCalls(calls))
	}
	e.memory.AddToolMessage(step.Observation, log.ToolCallID)
	return nil
}

// inputText renders the "input" variable for persistence. Strings pass
// through unquoted so the history carries the user's text verbatim; anything
// else is JSON-encoded.
func inputText(vars map[string]any) string {
	switch v := vars["input"].(type) {
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

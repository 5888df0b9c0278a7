package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/logging"
	"github.com/hupe1980/mcpagent/tool"
)

// Stream runs the loop as an independent concurrent task and returns a lazy
// chunk sequence terminated by a chunk with a non-nil finish reason. The
// spawned task is the sole producer into an unbounded, order-preserving
// delivery queue, so a slow consumer never blocks planning or tool dispatch.
func (e *Executor) Stream(ctx context.Context, inputs map[string]any) (<-chan CompletionChunk, error) {
	nameToTools := e.nameToTools()

	vars, err := e.prepareInputs(inputs)
	if err != nil {
		return nil, err
	}

	conversationID, _ := vars["conversation_id"].(string)
	if conversationID == "" {
		conversationID = core.NewID()
		vars["conversation_id"] = conversationID
	}

	q := newChunkQueue()
	r := &relay{
		queue:          q,
		completionID:   "chatcmpl-" + core.NewID(),
		conversationID: conversationID,
		model:          e.model,
		created:        time.Now().Unix(),
	}

	r.sendRole(core.RoleAssistant)

	go func() {
		defer q.close()
		e.streamLoop(ctx, r, nameToTools, vars)
	}()

	return q.out, nil
}

// streamLoop runs planning cycles until a terminal condition. Cycle-local
// accumulated content and step lists reset at cycle start; the cross-cycle
// step list feeds the planner and the iteration bound.
func (e *Executor) streamLoop(ctx context.Context, r *relay, nameToTools map[string]tool.Tool, vars map[string]any) {
	var steps []core.AgentStep

	for {
		done, err := e.streamCycle(ctx, r, nameToTools, vars, &steps)
		if err != nil {
			e.logger.Error("executor.stream.fatal", "error", err.Error())
			r.sendFatal(err.Error())
			return
		}
		if done {
			return
		}

		if e.memory != nil {
			vars["chat_history"] = e.memory.Messages()
		}

		if e.maxIterations > 0 && len(steps) >= e.maxIterations {
			e.logger.Warn("executor.stream.max_iterations", "steps", len(steps))
			r.sendContentFinish(maxIterationsAdvisory, FinishReasonLength)
			return
		}
	}
}

// streamCycle consumes one planner stream. It reports done=true when the turn
// finished (terminal chunk already sent) and an error for fatal conditions
// the caller should surface as a terminal chunk.
func (e *Executor) streamCycle(ctx context.Context, r *relay, nameToTools map[string]tool.Tool, vars map[string]any, steps *[]core.AgentStep) (bool, error) {
	var accumulated string
	var cycleSteps []core.AgentStep

	events, errCh := e.planner.PlanStream(ctx, *steps, vars)

	for event := range events {
		switch ev := event.(type) {
		case core.ContentDelta:
			if ev.Text == "" {
				continue
			}
			accumulated += ev.Text
			r.sendContent(ev.Text)

		case core.ActionDelta:
			r.sendToolCall(e.provisionalID(ev.Action), ev.Action.Tool, ev.Action.ToolInput)

		case core.ActionBatch:
			if err := e.streamBatch(ctx, r, nameToTools, ev.Actions, steps, &cycleSteps); err != nil {
				return false, err
			}
			if err := e.flushCycle(accumulated, cycleSteps); err != nil {
				return false, err
			}
			return false, nil

		case core.AgentFinish:
			if err := e.persistTurn(vars, *steps, accumulated, ev.Output); err != nil {
				return false, err
			}
			r.sendTerminal()
			return true, nil
		}
	}

	if err := <-errCh; err != nil {
		return false, &core.PlanningError{Err: err}
	}

	// Planner stream closed without a terminal event: treat as a finished
	// turn with whatever content accumulated.
	if err := e.persistTurn(vars, *steps, "", accumulated); err != nil {
		return false, err
	}
	r.sendTerminal()
	return true, nil
}

// streamBatch executes one terminal action batch strictly in order, emitting
// a tool-call chunk and an observation chunk per action.
func (e *Executor) streamBatch(ctx context.Context, r *relay, nameToTools map[string]tool.Tool, actions []core.AgentAction, steps, cycleSteps *[]core.AgentStep) error {
	for _, action := range actions {
		t, ok := nameToTools[tool.NormalizeName(action.Tool)]
		if !ok {
			return &core.ToolNotFoundError{Tool: action.Tool}
		}

		toolCallID := e.provisionalID(action)
		r.sendToolCall(toolCallID, action.Tool, action.ToolInput)

		start := time.Now()
		observation, err := t.Call(ctx, action.ToolInput)
		logging.ToolCall(e.logger, t.Name(), time.Since(start), err)

		if err != nil {
			if e.breakIfError {
				return &core.ToolExecutionError{Tool: action.Tool, Err: err}
			}
			observation = toolErrorObservation(err)
		}

		r.sendToolResult(parseObservation(observation), t.Name(), toolCallID)

		step := core.AgentStep{Action: action, Observation: observation}
		*steps = append(*steps, step)
		*cycleSteps = append(*cycleSteps, step)
	}
	return nil
}

// flushCycle persists a non-finishing cycle: accumulated assistant text (if
// any) followed by the cycle's tool-call/result message groups.
func (e *Executor) flushCycle(accumulated string, cycleSteps []core.AgentStep) error {
	if e.memory == nil {
		return nil
	}

	if accumulated != "" {
		e.memory.AddAIMessage(accumulated)
	}

	seen := map[string]struct{}{}
	for _, step := range cycleSteps {
		if err := e.flushStep(step, seen); err != nil {
			return err
		}
	}
	return nil
}

// provisionalID extracts the tool-call id from an action's log. A missing id
// is an upstream protocol violation: a fresh id is minted and a diagnostic
// raised, but the stream continues.
func (e *Executor) provisionalID(action core.AgentAction) string {
	log, err := core.ParseActionLog(action.Log)
	if err == nil && log.ToolCallID != "" {
		return log.ToolCallID
	}

	id := core.NewID()
	e.logger.Error("executor.stream.missing_tool_call_id", "tool", action.Tool, "minted_id", id)
	return id
}

// parseObservation returns the observation as parsed JSON when possible and
// the raw string otherwise.
func parseObservation(observation string) any {
	var parsed any
	if err := json.Unmarshal([]byte(observation), &parsed); err != nil {
		return observation
	}
	return parsed
}

// relay serializes internal loop events into wire chunks and pushes them into
// the delivery queue. All sends happen from the single producer task.
type relay struct {
	queue          *chunkQueue
	completionID   string
	conversationID string
	model          string
	created        int64
}

func (r *relay) send(delta ChunkDelta, finishReason *string) {
	r.queue.push(CompletionChunk{
		ID:             r.completionID,
		ConversationID: r.conversationID,
		Object:         "chat.completion.chunk",
		Created:        r.created,
		Model:          r.model,
		Choices: []ChunkChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finishReason,
		}},
	})
}

func (r *relay) sendRole(role string) {
	r.send(NewRoleDelta(role), nil)
}

func (r *relay) sendContent(text string) {
	r.send(NewContentDelta(text), nil)
}

func (r *relay) sendToolCall(id, name, arguments string) {
	r.send(NewToolCallsDelta(ChunkToolCall{
		ID:             id,
		ConversationID: r.conversationID,
		Type:           "function",
		Function: ChunkToolCallFunction{
			Name:      name,
			Arguments: arguments,
		},
	}), nil)
}

func (r *relay) sendToolResult(parsed any, toolName, toolCallID string) {
	r.send(NewToolResultDelta(parsed, toolName, toolCallID), nil)
}

// sendFatal surfaces a fatal condition as a content chunk embedding the
// message with finish reason "stop"; the streaming path has no dedicated
// error channel.
func (r *relay) sendFatal(message string) {
	r.sendContentFinish(message, FinishReasonStop)
}

func (r *relay) sendContentFinish(text, reason string) {
	r.send(NewContentDelta(text), &reason)
}

// sendTerminal emits the clean end-of-turn chunk: empty delta, finish reason
// "stop".
func (r *relay) sendTerminal() {
	reason := FinishReasonStop
	r.send(NewEmptyDelta(), &reason)
}

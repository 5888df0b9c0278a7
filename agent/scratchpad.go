package agent

import (
	"fmt"

	"github.com/hupe1980/mcpagent/core"
)

const (
	// MaxRecentSteps is the number of most recent steps always rendered in
	// full when the history is compacted.
	MaxRecentSteps = 5

	// SummaryThreshold is the step count above which older steps are folded
	// into a single summary message.
	SummaryThreshold = 10
)

// ConstructScratchpad renders the ordered step list into the message sequence
// fed back to the model as prior action/observation context.
//
// Histories longer than SummaryThreshold are compacted: a single summary
// message covers all but the last MaxRecentSteps steps, which are rendered
// normally. Rendering a step yields one assistant message carrying the step's
// tool-call batch followed by one tool-result message per call id; identical
// serialized batches across steps collapse into a single assistant message.
//
// An unparsable action log is fatal; a step is never silently skipped.
func ConstructScratchpad(steps []core.AgentStep) ([]core.Message, error) {
	var thoughts []core.Message
	seen := map[string]struct{}{}

	if len(steps) > SummaryThreshold {
		old := steps[:len(steps)-MaxRecentSteps]
		thoughts = append(thoughts, summaryMessage(old))

		for _, step := range steps[len(steps)-MaxRecentSteps:] {
			var err error
			thoughts, err = appendStep(thoughts, step, seen)
			if err != nil {
				return nil, err
			}
		}
		return thoughts, nil
	}

	for _, step := range steps {
		var err error
		thoughts, err = appendStep(thoughts, step, seen)
		if err != nil {
			return nil, err
		}
	}
	return thoughts, nil
}

func summaryMessage(old []core.AgentStep) core.Message {
	return core.NewSystemMessage(fmt.Sprintf(
		"Previous %d steps summary: [Summarized execution history with %d actions completed]",
		len(old), len(old),
	))
}

// appendStep renders one step onto the conversation. The seen set is threaded
// across the whole rendering pass so repeated identical tool-call batches
// contribute their assistant message only once.
func appendStep(thoughts []core.Message, step core.AgentStep, seen map[string]struct{}) ([]core.Message, error) {
	log, err := core.ParseActionLog(step.Action.Log)
	if err != nil {
		return nil, err
	}

	calls, err := core.ParseToolCalls(log.ToolCalls)
	if err != nil {
		return nil, &core.SerializationError{Err: err}
	}

	if _, ok := seen[log.ToolCalls]; !ok {
		seen[log.ToolCalls] = struct{}{}
		thoughts = append(thoughts, core.NewAIMessage("").WithToolCalls(calls))
	}
	thoughts = append(thoughts, core.NewToolMessage(step.Observation, log.ToolCallID))

	return thoughts, nil
}

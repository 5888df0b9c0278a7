// Package mcpagent provides a high-level façade over the planner and
// executor, enabling one-call construction of a tool-calling agent. Most
// applications interact with this package by:
//  1. Building a model (model/openai or model/anthropic), or loading one
//     from configuration via NewFromConfig
//  2. Collecting tools (tool.FunctionTool, tool/mcp.FromSession, ...)
//  3. Creating an executor via New and driving it with Call or Stream
//
// The façade delegates all orchestration to executor.Executor while keeping
// setup ergonomics concise. Defaults are safe for local development; supply a
// structured logger and a durable ChatMemory for production use.
package mcpagent

import (
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/mcpagent/agent"
	"github.com/hupe1980/mcpagent/config"
	"github.com/hupe1980/mcpagent/executor"
	"github.com/hupe1980/mcpagent/logging"
	"github.com/hupe1980/mcpagent/memory"
	"github.com/hupe1980/mcpagent/model"
	"github.com/hupe1980/mcpagent/model/anthropic"
	"github.com/hupe1980/mcpagent/model/openai"
	"github.com/hupe1980/mcpagent/tool"
)

// Options configures the assembled agent.
type Options struct {
	// Prefix is the planner's system prompt. Defaults to agent.DefaultPrefix.
	Prefix string
	// MaxTokens caps each model generation.
	MaxTokens int64
	// Memory persists conversation turns across calls.
	Memory memory.ChatMemory
	// MaxIterations bounds tool steps per call (default 10).
	MaxIterations int
	// BreakIfError escalates tool failures to fatal errors.
	BreakIfError bool
	// Logger receives planning and execution diagnostics.
	Logger logging.Logger
}

// New assembles a planner and executor over the given model and tools.
func New(m model.Model, tools []tool.Tool, optFns ...func(o *Options)) *executor.Executor {
	opts := Options{
		Prefix:        agent.DefaultPrefix,
		MaxIterations: 10,
		Logger:        logging.NewNoOpLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	planner := agent.NewAgent(m, tools, func(o *agent.Options) {
		o.Prefix = opts.Prefix
		o.MaxTokens = opts.MaxTokens
		o.Logger = opts.Logger
	})

	return executor.NewExecutor(planner, func(o *executor.Options) {
		o.Memory = opts.Memory
		o.MaxIterations = opts.MaxIterations
		o.BreakIfError = opts.BreakIfError
		o.Model = m.Info().Name
		o.Logger = opts.Logger
	})
}

// NewFromConfig builds the model from configuration, then assembles the
// executor with the config's loop settings applied.
func NewFromConfig(cfg config.Config, tools []tool.Tool, optFns ...func(o *Options)) (*executor.Executor, error) {
	var m model.Model

	switch cfg.Provider {
	case "", "openai":
		m = openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		})
	case "anthropic":
		m = anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.APIKey = cfg.APIKey
		})
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}

	return New(m, tools, func(o *Options) {
		o.MaxIterations = cfg.MaxIterations
		o.BreakIfError = cfg.BreakIfError
		for _, fn := range optFns {
			fn(o)
		}
	}), nil
}

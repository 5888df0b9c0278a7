package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// FunctionTool adapts a plain Go function to the Tool interface.
//
// The serialized model arguments are decoded into a map before invocation.
// Input that is not a JSON object is wrapped as {"value": <input>} so tools
// taking a single free-form argument still receive it. A non-string result is
// JSON-marshaled into the observation text.
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from an explicit JSON-Schema-like
// parameter map and implementation.
//
// Example:
//
//	sum := NewFunctionTool("calculate_sum", "Add two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(_ context.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// Name implements Tool.
func (t *FunctionTool) Name() string { return t.name }

// Description implements Tool.
func (t *FunctionTool) Description() string { return t.description }

// Parameters implements Tool.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call implements Tool.
func (t *FunctionTool) Call(ctx context.Context, input string) (string, error) {
	args := ParseInput(input)

	result, err := t.fn(ctx, args)
	if err != nil {
		return "", err
	}

	switch v := result.(type) {
	case string:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal tool result: %w", err)
		}
		return string(b), nil
	}
}

// ParseInput decodes a serialized argument payload into a map. Non-object
// input (including malformed JSON) is wrapped as {"value": <input>} rather
// than rejected, matching how models occasionally emit bare string arguments.
func ParseInput(input string) map[string]any {
	args := map[string]any{}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return map[string]any{"value": input}
	}
	return args
}

// DecodeArguments maps loosely-typed tool arguments onto a typed struct,
// honoring `mapstructure` (falling back to `json`) field tags. Weak typing is
// enabled so numeric JSON values decode into the struct's declared types.
func DecodeArguments(args map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("build arguments decoder: %w", err)
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

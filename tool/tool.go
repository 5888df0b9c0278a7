// Package tool defines the tool collaborator contract consumed by the
// executor plus adapters for exposing plain Go functions as tools.
package tool

import (
	"context"
	"strings"
)

// Tool is a named capability the planner may request. Call receives the
// serialized JSON argument payload exactly as emitted by the model and
// returns the observation text (or an error the executor maps through its
// break-on-error policy).
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Call(ctx context.Context, input string) (string, error)
}

// NormalizeName canonicalizes a tool name for lookup: surrounding whitespace
// is trimmed and interior spaces become underscores. The executor applies the
// same normalization to registered and planner-emitted names; any asymmetry
// here would break tool resolution.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

// Package model abstracts tool-calling chat-completion providers behind a
// minimal interface consumed by the planner. Provider adapters (openai,
// anthropic) translate SDK-typed responses into the closed StreamChunk union
// at the boundary, so downstream code never probes untyped response JSON.
package model

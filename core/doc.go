// Package core defines the shared data model of the agent execution engine:
// conversation messages, tool-call actions and steps, the closed plan-event
// union emitted by planners, and the error taxonomy used across packages.
//
// All types here are plain values. Ownership and mutation rules live with the
// executor: actions and steps are created per invocation and folded into
// memory when a turn finishes.
package core

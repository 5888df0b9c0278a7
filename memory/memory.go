// Package memory defines the conversation memory sink consumed by the
// executor plus a process-local implementation. The executor is polymorphic
// over any ChatMemory provider and never assumes a storage medium.
package memory

import (
	"sync"

	"github.com/hupe1980/mcpagent/core"
)

// ChatMemory is the capability set the executor requires of a conversation
// store. Implementations must be safe for concurrent use; the executor treats
// each method call as one atomic logical operation and never holds memory
// across an in-flight tool call.
type ChatMemory interface {
	// Messages returns the ordered conversation history.
	Messages() []core.Message

	// AddUserMessage appends a user turn.
	AddUserMessage(text string)

	// AddAIMessage appends an assistant turn.
	AddAIMessage(text string)

	// AddMessage appends an arbitrary message, typically an assistant message
	// carrying tool calls.
	AddMessage(msg core.Message)

	// AddToolMessage appends a tool-result message answering the given call id.
	AddToolMessage(observation, toolCallID string)
}

// ChatHistory is an in-memory ChatMemory guarded by a mutex acquired per
// logical operation. Messages returns a copy so callers can build
// prompts from a stable snapshot while other turns append.
type ChatHistory struct {
	mu       sync.Mutex
	messages []core.Message
}

var _ ChatMemory = (*ChatHistory)(nil)

// NewChatHistory creates an empty in-memory conversation history.
func NewChatHistory() *ChatHistory {
	return &ChatHistory{}
}

// Messages implements ChatMemory.
func (h *ChatHistory) Messages() []core.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]core.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// AddUserMessage implements ChatMemory.
func (h *ChatHistory) AddUserMessage(text string) {
	h.AddMessage(core.NewUserMessage(text))
}

// AddAIMessage implements ChatMemory.
func (h *ChatHistory) AddAIMessage(text string) {
	h.AddMessage(core.NewAIMessage(text))
}

// AddMessage implements ChatMemory.
func (h *ChatHistory) AddMessage(msg core.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

// AddToolMessage implements ChatMemory.
func (h *ChatHistory) AddToolMessage(observation, toolCallID string) {
	h.AddMessage(core.NewToolMessage(observation, toolCallID))
}

// Clear drops the stored history.
func (h *ChatHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

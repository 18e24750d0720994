// Package model abstracts the streaming language-model backend.
//
// A Gateway turns a system prompt plus ordered history into a lazily
// consumed stream of outputs: text chunks interleaved with tool-call
// requests, in the order the backend produced them.
package model

import (
	"context"

	"github.com/soyeahso/ezra/internal/domain"
)

// Role constants understood by backends.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one role/content pair in a backend request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Event is one element of a gateway stream. Exactly one of Output and
// Err is set; an Err event is terminal.
type Event struct {
	Output domain.Output
	Err    error
}

// Gateway is the interface all model backends implement. The returned
// channel is closed when the reply is complete; independent calls may
// stream concurrently.
type Gateway interface {
	Chat(ctx context.Context, system string, messages []ChatMessage) (<-chan Event, error)

	// Name returns the backend name (e.g. "ollama").
	Name() string
}

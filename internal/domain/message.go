// Package domain defines the conversation data model shared by the
// store, the model gateway, and the session protocol.
package domain

import "time"

// Role constants for persisted messages.
const (
	RoleUser = "user"
	RoleSelf = "self"
)

// Message is one entry in a conversation history. It is a closed set:
// UserMessage and SelfMessage are the only variants.
type Message interface {
	isMessage()
}

// UserMessage is plain input from the connected user.
type UserMessage struct {
	Content string
}

// SelfMessage is one assistant reply. Content is built by append while
// a turn streams; ToolCalls holds the outcomes of tools the model
// requested during that turn, in request order.
type SelfMessage struct {
	Content   string
	ToolCalls []Outcome
}

func (UserMessage) isMessage() {}
func (SelfMessage) isMessage() {}

// Role returns the persisted role string for a message.
func Role(m Message) string {
	switch m.(type) {
	case UserMessage:
		return RoleUser
	case SelfMessage:
		return RoleSelf
	default:
		return ""
	}
}

// Outcome pairs a tool call with its resolved result. It is created
// only once the result is known and never mutated afterwards.
//
// Result is nil on a conversation reloaded from the store: annotations
// are persisted for audit, but results are not reconstructed.
type Outcome struct {
	Origin ToolCall `json:"origin"`
	Result any      `json:"result"`
}

// ConversationInfo is the stored identity of a conversation.
type ConversationInfo struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created"`
	System    string    `json:"system"`
	Summary   string    `json:"summary,omitempty"`
}

// StoredMessage is one persisted message row.
type StoredMessage struct {
	ID        int64
	CreatedAt time.Time
	Role      string
	Content   string
	ToolCalls []Outcome
}

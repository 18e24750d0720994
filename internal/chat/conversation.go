// Package chat implements the conversation engine: store-backed
// message history and the streaming turn driver.
package chat

import (
	"fmt"

	"github.com/soyeahso/ezra/internal/domain"
	"github.com/soyeahso/ezra/internal/logging"
	"github.com/soyeahso/ezra/internal/model"
)

// DefaultHistoryLimit bounds the message window presented to the model
// and hydrated on load. Older history stays in the store.
const DefaultHistoryLimit = 30

// Store is the persistence interface the conversation engine needs.
// *store.ConversationStore implements it.
type Store interface {
	StartConversation(system string) (int64, error)
	GetConversation(id int64) (domain.ConversationInfo, error)
	ListMessages(convoID int64, limit int) ([]domain.StoredMessage, error)
	AddMessage(convoID int64, role, content string) (int64, error)
	AppendContent(messageID int64, fragment string) error
	AppendToolCall(messageID int64, call domain.ToolCall, result any) error
}

// Conversation is the in-memory, store-backed view of one chat thread.
// It is owned by a single connection; the store is the source of truth
// across connections and restarts.
type Conversation struct {
	store    Store
	log      *logging.Logger
	id       int64
	system   string
	limit    int
	messages []domain.Message
}

// Start creates a new persisted conversation with the given system
// prompt and returns it with empty history.
func Start(st Store, system string, limit int, log *logging.Logger) (*Conversation, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	id, err := st.StartConversation(system)
	if err != nil {
		return nil, err
	}
	log.Sub("convo").Info().Int64("convo", id).Msg("conversation started")
	return &Conversation{
		store:  st,
		log:    log.Sub("convo"),
		id:     id,
		system: system,
		limit:  limit,
	}, nil
}

// Load hydrates an existing conversation from the store, keeping the
// most recent limit messages in chronological order. Tool-call results
// are not reconstructed on reload: only name and args survive, and
// Outcome.Result comes back nil.
func Load(st Store, id int64, limit int, log *logging.Logger) (*Conversation, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	info, err := st.GetConversation(id)
	if err != nil {
		return nil, err
	}

	rows, err := st.ListMessages(id, limit)
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		switch row.Role {
		case domain.RoleUser:
			messages = append(messages, domain.UserMessage{Content: row.Content})
		case domain.RoleSelf:
			calls := make([]domain.Outcome, len(row.ToolCalls))
			for i, tc := range row.ToolCalls {
				calls[i] = domain.Outcome{Origin: tc.Origin}
			}
			if len(calls) == 0 {
				calls = nil
			}
			messages = append(messages, domain.SelfMessage{Content: row.Content, ToolCalls: calls})
		default:
			return nil, fmt.Errorf("conversation %d: unknown stored role %q", id, row.Role)
		}
	}

	log.Sub("convo").Info().Int64("convo", id).Int("messages", len(messages)).Msg("conversation loaded")
	return &Conversation{
		store:    st,
		log:      log.Sub("convo"),
		id:       id,
		system:   info.System,
		limit:    limit,
		messages: messages,
	}, nil
}

// ID returns the store-assigned conversation id.
func (c *Conversation) ID() int64 { return c.id }

// System returns the conversation's system prompt.
func (c *Conversation) System() string { return c.system }

// Messages returns the in-memory message sequence.
func (c *Conversation) Messages() []domain.Message { return c.messages }

// Push appends a non-streaming message to the store and the in-memory
// sequence. Role must be "user" or "self"; anything else is a
// programming error and panics.
func (c *Conversation) Push(role, content string) error {
	var msg domain.Message
	switch role {
	case domain.RoleUser:
		msg = domain.UserMessage{Content: content}
	case domain.RoleSelf:
		msg = domain.SelfMessage{Content: content}
	default:
		panic(fmt.Sprintf("chat: unknown role %q", role))
	}

	if _, err := c.store.AddMessage(c.id, role, content); err != nil {
		return err
	}
	c.messages = append(c.messages, msg)
	return nil
}

// History returns the bounded message window in the model's wire
// format: at most limit messages, newest retained, self mapped to the
// assistant role.
func (c *Conversation) History() []model.ChatMessage {
	msgs := c.messages
	if len(msgs) > c.limit {
		msgs = msgs[len(msgs)-c.limit:]
	}

	history := make([]model.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		switch v := m.(type) {
		case domain.UserMessage:
			history = append(history, model.ChatMessage{Role: model.RoleUser, Content: v.Content})
		case domain.SelfMessage:
			history = append(history, model.ChatMessage{Role: model.RoleAssistant, Content: v.Content})
		}
	}
	return history
}

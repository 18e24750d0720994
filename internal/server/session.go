package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"

	"github.com/soyeahso/ezra/internal/chat"
	"github.com/soyeahso/ezra/internal/domain"
	"github.com/soyeahso/ezra/internal/logging"
	"github.com/soyeahso/ezra/internal/store"
)

// session is the per-connection protocol state machine. It starts
// unbound; a connect request binds an existing conversation, a text
// request on an unbound session starts a fresh one.
type session struct {
	srv   *Server
	w     *bufio.Writer
	log   *logging.Logger
	id    string
	convo *chat.Conversation
}

// handle processes one decoded request line. It returns done=true for
// a clean close, and a non-nil error only for uncaught-class failures
// that must tear the connection down.
func (s *session) handle(ctx context.Context, line []byte) (done bool, err error) {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return false, writeRecord(s.w, errorReply{Type: "error", Message: errUnknownRequest})
	}

	switch req.Type {
	case "close":
		return true, nil
	case "connect":
		return false, s.handleConnect(req.Convo)
	case "text":
		return false, s.handleText(ctx, req.Message)
	case "list":
		return false, s.handleList()
	default:
		return false, writeRecord(s.w, errorReply{Type: "error", Message: errUnknownRequest})
	}
}

// handleConnect binds the session to an existing conversation and
// replays its reconstructed history. An unknown id is reported as a
// protocol error and leaves the current binding untouched.
func (s *session) handleConnect(id int64) error {
	convo, err := chat.Load(s.srv.store, id, s.srv.limit, s.srv.root)
	if errors.Is(err, store.ErrNotFound) {
		return writeRecord(s.w, errorReply{Type: "error", Message: errUnknownConversation})
	}
	if err != nil {
		return err
	}

	s.convo = convo
	s.log.Info().Str("conn", s.id).Int64("convo", id).Msg("conversation bound")

	msgs := make([]replayMessage, 0, len(convo.Messages()))
	for _, m := range convo.Messages() {
		switch v := m.(type) {
		case domain.UserMessage:
			msgs = append(msgs, replayMessage{Role: domain.RoleUser, Content: v.Content})
		case domain.SelfMessage:
			msgs = append(msgs, replayMessage{Role: domain.RoleSelf, Content: v.Content, ToolCalls: v.ToolCalls})
		}
	}
	return writeRecord(s.w, replayReply{Type: "replay", System: convo.System(), Messages: msgs})
}

// handleText records the user message and drives one full turn,
// forwarding every update to the transport as it is produced. The
// turn's update stream ends before the done marker is written.
func (s *session) handleText(ctx context.Context, message string) error {
	if s.convo == nil {
		convo, err := chat.Start(s.srv.store, s.srv.system, s.srv.limit, s.srv.root)
		if err != nil {
			return err
		}
		s.convo = convo
	}

	if err := s.convo.Push(domain.RoleUser, message); err != nil {
		return err
	}

	// Cancelling on exit releases the gateway and turn goroutines if
	// the client goes away mid-turn.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outputs, err := s.srv.gateway.Chat(ctx, s.convo.System(), s.convo.History())
	if err != nil {
		return err
	}

	for ev := range s.convo.StreamTurn(ctx, outputs, s.srv.exec) {
		if ev.Err != nil {
			return ev.Err
		}

		switch u := ev.Update.(type) {
		case domain.Chunk:
			err = writeRecord(s.w, chunkReply{Type: "chunk", Content: u.Text})
		case domain.ToolCall:
			err = writeRecord(s.w, toolReply{Type: "tool", Name: u.Name, Args: u.Args})
		case domain.Result:
			err = writeRecord(s.w, resultReply{Type: "result", Result: u.Value})
		}
		if err != nil {
			return err
		}
	}

	return writeRecord(s.w, doneReply{Type: "done"})
}

// handleList reports all stored conversations, newest first.
func (s *session) handleList() error {
	infos, err := s.srv.store.ListConversations()
	if err != nil {
		return err
	}
	if infos == nil {
		infos = []domain.ConversationInfo{}
	}
	return writeRecord(s.w, conversationsReply{Type: "conversations", Conversations: infos})
}

package server

import (
	"bufio"
	"encoding/json"

	"github.com/soyeahso/ezra/internal/domain"
)

// Protocol-level error strings reported to clients.
const (
	errUnknownConversation = "Unknown conversation"
	errUnknownRequest      = "Unknown request type"
)

// request is one decoded client record.
type request struct {
	Type    string `json:"type"`
	Convo   int64  `json:"convo,omitempty"`
	Message string `json:"message,omitempty"`
}

// Server→client records. One JSON object per line.

type chunkReply struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type toolReply struct {
	Type string         `json:"type"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type resultReply struct {
	Type   string `json:"type"`
	Result any    `json:"result"`
}

type doneReply struct {
	Type string `json:"type"`
}

type errorReply struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type uncaughtReply struct {
	Type      string `json:"type"`
	Traceback string `json:"traceback"`
}

type replayReply struct {
	Type     string          `json:"type"`
	System   string          `json:"system"`
	Messages []replayMessage `json:"messages"`
}

type replayMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []domain.Outcome `json:"toolCalls,omitempty"`
}

type conversationsReply struct {
	Type          string                    `json:"type"`
	Conversations []domain.ConversationInfo `json:"conversations"`
}

// writeRecord emits one newline-terminated JSON record and flushes, so
// clients see each update as it is produced.
func writeRecord(w *bufio.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return w.Flush()
}

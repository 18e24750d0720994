package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/ezra/internal/domain"
)

// ErrNotFound is returned when a conversation id does not exist.
var ErrNotFound = errors.New("conversation not found")

// ConversationStore persists conversations and their ordered messages.
//
// Message content and tool-call annotations grow by SQL-level append
// (string concatenation and JSON-array insertion respectively), so a
// turn interrupted mid-stream keeps everything committed so far.
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a conversation store using the given database.
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// StartConversation creates a new conversation with the given system
// prompt and returns its id.
func (s *ConversationStore) StartConversation(system string) (int64, error) {
	res, err := s.db.sql.Exec(
		`INSERT INTO conversations (created_at, system) VALUES (?, ?)`,
		time.Now().UTC().Format(time.DateTime), system,
	)
	if err != nil {
		return 0, fmt.Errorf("starting conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading conversation id: %w", err)
	}
	s.db.log.Debug().Int64("convo", id).Msg("conversation started")
	return id, nil
}

// GetConversation returns a conversation's identity, or ErrNotFound.
func (s *ConversationStore) GetConversation(id int64) (domain.ConversationInfo, error) {
	var info domain.ConversationInfo
	var createdAt string
	err := s.db.sql.QueryRow(
		`SELECT id, created_at, system, summary FROM conversations WHERE id = ?`, id,
	).Scan(&info.ID, &createdAt, &info.System, &info.Summary)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ConversationInfo{}, ErrNotFound
	}
	if err != nil {
		return domain.ConversationInfo{}, fmt.Errorf("loading conversation %d: %w", id, err)
	}
	info.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return info, nil
}

// ListConversations returns all conversations, newest first.
func (s *ConversationStore) ListConversations() ([]domain.ConversationInfo, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, created_at, system, summary FROM conversations ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var infos []domain.ConversationInfo
	for rows.Next() {
		var info domain.ConversationInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &createdAt, &info.System, &info.Summary); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		info.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// AddMessage appends a message row to a conversation and returns the
// message id. Content may be empty: a streaming turn pre-records its
// row before the first chunk arrives.
func (s *ConversationStore) AddMessage(convoID int64, role, content string) (int64, error) {
	res, err := s.db.sql.Exec(
		`INSERT INTO messages (conversation_id, created_at, role, content) VALUES (?, ?, ?, ?)`,
		convoID, time.Now().UTC().Format(time.DateTime), role, content,
	)
	if err != nil {
		return 0, fmt.Errorf("adding message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading message id: %w", err)
	}
	return id, nil
}

// AppendContent concatenates a text fragment onto a message's content.
// The append happens inside the UPDATE statement, never as a
// read-modify-write in Go, so prior chunks survive a crash mid-turn.
func (s *ConversationStore) AppendContent(messageID int64, fragment string) error {
	res, err := s.db.sql.Exec(
		`UPDATE messages SET content = content || ? WHERE id = ?`,
		fragment, messageID,
	)
	if err != nil {
		return fmt.Errorf("appending content to message %d: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("appending content: message %d does not exist", messageID)
	}
	return nil
}

// AppendToolCall appends one tool-call annotation to a message's
// tool_calls list. Earlier annotations are never replaced.
func (s *ConversationStore) AppendToolCall(messageID int64, call domain.ToolCall, result any) error {
	data, err := json.Marshal(domain.Outcome{Origin: call, Result: result})
	if err != nil {
		return fmt.Errorf("encoding tool call: %w", err)
	}
	res, err := s.db.sql.Exec(
		`UPDATE messages
		 SET tool_calls = json_insert(coalesce(tool_calls, '[]'), '$[#]', json(?))
		 WHERE id = ?`,
		string(data), messageID,
	)
	if err != nil {
		return fmt.Errorf("appending tool call to message %d: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("appending tool call: message %d does not exist", messageID)
	}
	return nil
}

// ListMessages returns the most recent limit messages of a conversation
// in chronological order. A limit of 0 or less returns everything.
func (s *ConversationStore) ListMessages(convoID int64, limit int) ([]domain.StoredMessage, error) {
	query := `SELECT id, created_at, role, content, tool_calls
	          FROM messages WHERE conversation_id = ? ORDER BY id DESC`
	args := []any{convoID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.sql.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.StoredMessage
	for rows.Next() {
		var msg domain.StoredMessage
		var createdAt string
		var toolCalls sql.NullString
		if err := rows.Scan(&msg.ID, &createdAt, &msg.Role, &msg.Content, &toolCalls); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("decoding tool calls of message %d: %w", msg.ID, err)
			}
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows were fetched newest-first; flip to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

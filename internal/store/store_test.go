package store

import (
	"testing"

	"github.com/soyeahso/ezra/internal/domain"
	"github.com/soyeahso/ezra/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"conversations", "messages"}
	for _, table := range tables {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

// --- Conversation store tests ---

func TestStartConversation(t *testing.T) {
	db := testDB(t)
	cs := NewConversationStore(db)

	id, err := cs.StartConversation("you are a test")
	require.NoError(t, err)
	assert.Positive(t, id)

	info, err := cs.GetConversation(id)
	require.NoError(t, err)
	assert.Equal(t, id, info.ID)
	assert.Equal(t, "you are a test", info.System)
	assert.Empty(t, info.Summary)
}

func TestGetConversation_NotFound(t *testing.T) {
	db := testDB(t)
	cs := NewConversationStore(db)

	_, err := cs.GetConversation(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListConversations(t *testing.T) {
	db := testDB(t)
	cs := NewConversationStore(db)

	first, err := cs.StartConversation("a")
	require.NoError(t, err)
	second, err := cs.StartConversation("b")
	require.NoError(t, err)

	infos, err := cs.ListConversations()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	// Newest first
	assert.Equal(t, second, infos[0].ID)
	assert.Equal(t, first, infos[1].ID)
}

func TestAddMessage_And_ListMessages(t *testing.T) {
	db := testDB(t)
	cs := NewConversationStore(db)

	convo, err := cs.StartConversation("s")
	require.NoError(t, err)

	_, err = cs.AddMessage(convo, domain.RoleUser, "hello")
	require.NoError(t, err)
	_, err = cs.AddMessage(convo, domain.RoleSelf, "hi there")
	require.NoError(t, err)

	msgs, err := cs.ListMessages(convo, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "self", msgs[1].Role)
	assert.Equal(t, "hi there", msgs[1].Content)
}

func TestAppendContent_Concatenates(t *testing.T) {
	db := testDB(t)
	cs := NewConversationStore(db)

	convo, err := cs.StartConversation("s")
	require.NoError(t, err)

	msgID, err := cs.AddMessage(convo, domain.RoleSelf, "")
	require.NoError(t, err)

	for _, frag := range []string{"Hel", "lo ", "world"} {
		require.NoError(t, cs.AppendContent(msgID, frag))
	}

	msgs, err := cs.ListMessages(convo, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello world", msgs[0].Content)
}

func TestAppendContent_UnknownMessage(t *testing.T) {
	db := testDB(t)
	cs := NewConversationStore(db)

	err := cs.AppendContent(12345, "x")
	assert.Error(t, err)
}

func TestAppendToolCall_PreservesOrder(t *testing.T) {
	db := testDB(t)
	cs := NewConversationStore(db)

	convo, err := cs.StartConversation("s")
	require.NoError(t, err)
	msgID, err := cs.AddMessage(convo, domain.RoleSelf, "")
	require.NoError(t, err)

	err = cs.AppendToolCall(msgID, domain.ToolCall{Name: "first", Args: map[string]any{"n": float64(1)}}, "r1")
	require.NoError(t, err)
	err = cs.AppendToolCall(msgID, domain.ToolCall{Name: "second", Args: map[string]any{"n": float64(2)}}, "r2")
	require.NoError(t, err)

	msgs, err := cs.ListMessages(convo, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].ToolCalls, 2)
	assert.Equal(t, "first", msgs[0].ToolCalls[0].Origin.Name)
	assert.Equal(t, "second", msgs[0].ToolCalls[1].Origin.Name)
	assert.Equal(t, "r1", msgs[0].ToolCalls[0].Result)
	assert.Equal(t, "r2", msgs[0].ToolCalls[1].Result)
}

func TestListMessages_WindowKeepsNewest(t *testing.T) {
	db := testDB(t)
	cs := NewConversationStore(db)

	convo, err := cs.StartConversation("s")
	require.NoError(t, err)

	for i := 0; i < 40; i++ {
		_, err := cs.AddMessage(convo, domain.RoleUser, string(rune('a'+i%26)))
		require.NoError(t, err)
	}

	msgs, err := cs.ListMessages(convo, 30)
	require.NoError(t, err)
	require.Len(t, msgs, 30)

	// All rows are still in the store
	all, err := cs.ListMessages(convo, 0)
	require.NoError(t, err)
	assert.Len(t, all, 40)

	// The window is the newest 30, in chronological order
	assert.Equal(t, all[10].ID, msgs[0].ID)
	assert.Equal(t, all[39].ID, msgs[29].ID)
}

func TestListMessages_Empty(t *testing.T) {
	db := testDB(t)
	cs := NewConversationStore(db)

	convo, err := cs.StartConversation("s")
	require.NoError(t, err)

	msgs, err := cs.ListMessages(convo, 30)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

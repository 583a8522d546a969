package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/chatvault/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testConversation(id string) models.Conversation {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return models.Conversation{
		ID:                    id,
		Source:                models.SourceWebExport,
		Name:                  "conversation " + id,
		Summary:               "a summary",
		CreatedAt:             created,
		UpdatedAt:             created.Add(time.Hour),
		ImportedAt:            created.Add(2 * time.Hour),
		MessageCount:          1,
		UserMessageCount:      1,
		AssistantMessageCount: 0,
		EstimatedTokens:       42,
		FullText:              "conversation " + id + " full text",
	}
}

func testMessage(id, convID string) models.Message {
	return models.Message{
		ID:             id,
		ConversationID: convID,
		Sender:         models.SenderUser,
		Text:           "hello there",
		ContentBlocks: models.Blocks{
			models.TextBlock{Text: "hello there"},
			models.CodeBlock{Language: "go", Text: "fmt.Println()"},
		},
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 5, 0, time.UTC),
	}
}

func TestInsertAndGetConversation(t *testing.T) {
	store := newTestStore(t)

	conv := testConversation("c1")
	require.NoError(t, store.InsertConversations([]models.Conversation{conv}))
	require.NoError(t, store.InsertMessages([]models.Message{testMessage("m1", "c1")}))

	got, err := store.GetConversation("c1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, conv.Name, got.Name)
	assert.Equal(t, conv.Summary, got.Summary)
	assert.Equal(t, conv.EstimatedTokens, got.EstimatedTokens)
	assert.Equal(t, conv.FullText, got.FullText)
	require.Len(t, got.Messages, 1)

	msg := got.Messages[0]
	assert.Equal(t, models.SenderUser, msg.Sender)
	require.Len(t, msg.ContentBlocks, 2)
	code, ok := msg.ContentBlocks[1].(models.CodeBlock)
	require.True(t, ok, "content blocks survive the round trip typed")
	assert.Equal(t, "go", code.Language)
}

func TestGetConversationMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetConversation("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInsertIgnoresExistingIDs(t *testing.T) {
	store := newTestStore(t)

	original := testConversation("c1")
	require.NoError(t, store.InsertConversations([]models.Conversation{original}))

	altered := original
	altered.Name = "renamed"
	require.NoError(t, store.InsertConversations([]models.Conversation{altered}))

	got, err := store.GetConversation("c1")
	require.NoError(t, err)
	assert.Equal(t, original.Name, got.Name, "bulk insert must not overwrite")
}

func TestUpsertConversationReplaces(t *testing.T) {
	store := newTestStore(t)

	conv := testConversation("c1")
	conv.Messages = []models.Message{testMessage("m1", "c1")}
	require.NoError(t, store.UpsertConversation(&conv))

	conv.Name = "grown session"
	conv.Messages = append(conv.Messages, testMessage("m2", "c1"))
	conv.MessageCount = 2
	require.NoError(t, store.UpsertConversation(&conv))

	got, err := store.GetConversation("c1")
	require.NoError(t, err)
	assert.Equal(t, "grown session", got.Name)
	assert.Len(t, got.Messages, 2)
}

func TestConversationIDsIn(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.InsertConversations([]models.Conversation{
		testConversation("c1"), testConversation("c2"),
	}))

	existing, err := store.ConversationIDsIn([]string{"c1", "c2", "c3"})
	require.NoError(t, err)
	assert.Len(t, existing, 2)
	assert.Contains(t, existing, "c1")
	assert.NotContains(t, existing, "c3")

	empty, err := store.ConversationIDsIn(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDeleteConversationCascades(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.InsertConversations([]models.Conversation{testConversation("c1")}))
	require.NoError(t, store.InsertMessages([]models.Message{testMessage("m1", "c1")}))

	deleted, err := store.DeleteConversation("c1")
	require.NoError(t, err)
	assert.True(t, deleted)

	var count int
	require.NoError(t, store.readDB.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count))
	assert.Equal(t, 0, count, "messages cascade with their conversation")

	deleted, err = store.DeleteConversation("c1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteBySource(t *testing.T) {
	store := newTestStore(t)

	web := testConversation("web-1")
	code := testConversation("code-1")
	code.Source = models.SourceSessionLog
	require.NoError(t, store.InsertConversations([]models.Conversation{web, code}))

	count, err := store.DeleteBySource(models.SourceWebExport)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	remaining, err := store.ListConversations(10, 0, "")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "code-1", remaining[0].ID)
}

func TestListConversationsFilterAndPage(t *testing.T) {
	store := newTestStore(t)

	conversations := make([]models.Conversation, 0, 5)
	for i := 0; i < 5; i++ {
		conv := testConversation(string(rune('a' + i)))
		conv.CreatedAt = conv.CreatedAt.Add(time.Duration(i) * time.Hour)
		conversations = append(conversations, conv)
	}
	require.NoError(t, store.InsertConversations(conversations))

	page, err := store.ListConversations(2, 0, "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "e", page[0].ID, "newest first")

	next, err := store.ListConversations(2, 2, "")
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, "c", next[0].ID)

	none, err := store.ListConversations(10, 0, models.SourceSessionLog)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAllConversationsOrdersByUpdateTime(t *testing.T) {
	store := newTestStore(t)

	// stale was created last but touched first; a limit must favor the
	// recently updated conversation, not the recently created one.
	stale := testConversation("stale")
	stale.CreatedAt = stale.CreatedAt.Add(48 * time.Hour)
	stale.UpdatedAt = stale.CreatedAt
	active := testConversation("active")
	active.UpdatedAt = stale.UpdatedAt.Add(time.Hour)
	require.NoError(t, store.InsertConversations([]models.Conversation{stale, active}))

	all, err := store.AllConversations(10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "active", all[0].ID)

	one, err := store.AllConversations(1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "active", one[0].ID)
}

func TestMutationHook(t *testing.T) {
	store := newTestStore(t)

	fired := 0
	store.SetMutationHook(func() { fired++ })

	require.NoError(t, store.InsertConversations([]models.Conversation{testConversation("c1")}))
	assert.Equal(t, 1, fired)

	_, err := store.DeleteConversation("c1")
	require.NoError(t, err)
	assert.Equal(t, 2, fired)

	// Deleting a missing id mutates nothing.
	_, err = store.DeleteConversation("c1")
	require.NoError(t, err)
	assert.Equal(t, 2, fired)
}

func TestLastSyncRoundTrip(t *testing.T) {
	store := newTestStore(t)

	none, err := store.LastSync(models.SourceWebExport)
	require.NoError(t, err)
	assert.True(t, none.IsZero())

	when := time.Date(2025, 3, 2, 8, 30, 0, 0, time.UTC)
	require.NoError(t, store.RecordLastSync(models.SourceWebExport, when))

	got, err := store.LastSync(models.SourceWebExport)
	require.NoError(t, err)
	assert.True(t, got.Equal(when))

	later := when.Add(time.Hour)
	require.NoError(t, store.RecordLastSync(models.SourceWebExport, later))
	got, err = store.LastSync(models.SourceWebExport)
	require.NoError(t, err)
	assert.True(t, got.Equal(later))
}

func TestStats(t *testing.T) {
	store := newTestStore(t)

	web := testConversation("web-1")
	code := testConversation("code-1")
	code.Source = models.SourceSessionLog
	require.NoError(t, store.InsertConversations([]models.Conversation{web, code}))
	require.NoError(t, store.InsertMessages([]models.Message{
		testMessage("m1", "web-1"), testMessage("m2", "code-1"),
	}))

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalConversations)
	assert.Equal(t, 2, stats.TotalMessages)
	assert.Equal(t, 84, stats.TotalTokens)
	assert.Equal(t, 1, stats.SourceBreakdown["claude.ai"])
	assert.Equal(t, 1, stats.SourceBreakdown["claude-code"])
}

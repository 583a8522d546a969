package importer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/chatvault/internal/models"
	"github.com/chatvault/chatvault/internal/parser"
)

type fakeStore struct {
	conversations map[string]models.Conversation
	messages      []models.Message
	lastSync      map[models.Source]time.Time
	insertBatches [][]models.Conversation
	failInserts   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conversations: make(map[string]models.Conversation),
		lastSync:      make(map[models.Source]time.Time),
	}
}

func (s *fakeStore) ConversationIDsIn(ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := s.conversations[id]; ok {
			existing[id] = struct{}{}
		}
	}
	return existing, nil
}

func (s *fakeStore) InsertConversations(conversations []models.Conversation) error {
	if s.failInserts {
		return fmt.Errorf("disk full")
	}
	s.insertBatches = append(s.insertBatches, conversations)
	for _, conv := range conversations {
		s.conversations[conv.ID] = conv
	}
	return nil
}

func (s *fakeStore) InsertMessages(messages []models.Message) error {
	s.messages = append(s.messages, messages...)
	return nil
}

func (s *fakeStore) RecordLastSync(source models.Source, t time.Time) error {
	s.lastSync[source] = t
	return nil
}

func sessionLogFile(id, name string) File {
	data := fmt.Sprintf(`{"type": "system", "session_id": %q, "cwd": "/w/%s", "timestamp": "2025-03-02T09:00:00Z"}
{"type": "user", "timestamp": "2025-03-02T09:00:05Z", "message": {"content": "hello"}}
{"type": "assistant", "timestamp": "2025-03-02T09:00:10Z", "message": {"content": "hi"}}
`, id, name)
	return File{Name: name + ".jsonl", Data: []byte(data)}
}

func jsonExportFile(ids ...string) File {
	doc := "["
	for i, id := range ids {
		if i > 0 {
			doc += ","
		}
		doc += fmt.Sprintf(`{"uuid": %q, "name": "conv %s", "chat_messages": [{"uuid": "%s-m1", "sender": "human", "text": "hey"}]}`, id, id, id)
	}
	doc += "]"
	return File{Name: "conversations.json", Data: []byte(doc)}
}

func TestImportBasic(t *testing.T) {
	store := newFakeStore()
	imp := New(store, nil)

	result, err := imp.Import([]File{jsonExportFile("a", "b")}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ConversationsAdded)
	assert.Equal(t, 0, result.ConversationsSkipped)
	assert.Equal(t, 2, result.MessagesAdded)
	assert.Equal(t, models.SourceWebExport, result.Source)
	assert.Len(t, store.conversations, 2)
	assert.False(t, store.lastSync[models.SourceWebExport].IsZero())
}

func TestImportIsIdempotent(t *testing.T) {
	store := newFakeStore()
	imp := New(store, nil)

	_, err := imp.Import([]File{jsonExportFile("a", "b")}, nil)
	require.NoError(t, err)

	result, err := imp.Import([]File{jsonExportFile("a", "b", "c")}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ConversationsAdded)
	assert.Equal(t, 2, result.ConversationsSkipped)
	assert.Equal(t, 1, result.MessagesAdded, "messages of skipped conversations must be dropped")
	assert.Len(t, store.conversations, 3)
}

func TestImportDeduplicatesWithinBatch(t *testing.T) {
	store := newFakeStore()
	imp := New(store, nil)

	// The same session appears twice in one batch; the copy parses to fresh
	// message ids, so dropping it by conversation id is the only thing that
	// keeps message_count honest.
	files := []File{
		sessionLogFile("sess-1", "proj"),
		sessionLogFile("sess-1", "proj-copy"),
	}
	result, err := imp.Import(files, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ConversationsAdded)
	assert.Equal(t, 1, result.ConversationsSkipped)
	assert.Equal(t, 2, result.MessagesAdded, "only the first copy's messages may be stored")
	assert.Len(t, store.conversations, 1)
	assert.Len(t, store.messages, 2)
	assert.Equal(t, "proj", store.conversations["sess-1"].Name, "first occurrence wins")
}

func TestImportBatching(t *testing.T) {
	store := newFakeStore()
	imp := New(store, nil, WithBatchSize(2))

	_, err := imp.Import([]File{jsonExportFile("a", "b", "c", "d", "e")}, nil)
	require.NoError(t, err)

	require.Len(t, store.insertBatches, 3)
	assert.Len(t, store.insertBatches[0], 2)
	assert.Len(t, store.insertBatches[1], 2)
	assert.Len(t, store.insertBatches[2], 1)
}

func TestImportMixedFiles(t *testing.T) {
	store := newFakeStore()
	imp := New(store, nil)

	files := []File{
		sessionLogFile("sess-1", "proj"),
		jsonExportFile("web-1"),
	}
	result, err := imp.Import(files, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ConversationsAdded)
	// Batch source follows the first file.
	assert.Equal(t, models.SourceSessionLog, result.Source)
}

func TestImportFailsFastOnBadFile(t *testing.T) {
	store := newFakeStore()
	imp := New(store, nil)

	files := []File{
		jsonExportFile("a"),
		{Name: "broken.json", Data: []byte(`{"users": [], "projects": []}`)},
	}
	_, err := imp.Import(files, nil)

	var formatErr *parser.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Empty(t, store.conversations, "nothing may be stored when any file fails to parse")
}

func TestImportUnknownFormat(t *testing.T) {
	imp := New(newFakeStore(), nil)

	_, err := imp.Import([]File{{Name: "notes.txt", Data: []byte("hi")}}, nil)
	var formatErr *parser.FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestImportNoFiles(t *testing.T) {
	imp := New(newFakeStore(), nil)
	_, err := imp.Import(nil, nil)
	assert.Error(t, err)
}

func TestImportProgressPhases(t *testing.T) {
	store := newFakeStore()
	imp := New(store, nil, WithBatchSize(1))

	var phases []Phase
	_, err := imp.Import([]File{jsonExportFile("a", "b")}, func(p Progress) {
		phases = append(phases, p.Phase)
	})
	require.NoError(t, err)

	// One parsing report, an initial storing report plus one per batch, and
	// a final complete report.
	assert.Equal(t, []Phase{PhaseParsing, PhaseStoring, PhaseStoring, PhaseStoring, PhaseComplete}, phases)
}

func TestImportStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failInserts = true
	imp := New(store, nil)

	_, err := imp.Import([]File{jsonExportFile("a")}, nil)
	assert.ErrorContains(t, err, "failed to store conversations")
}

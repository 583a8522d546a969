package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/chatvault/internal/models"
)

type fakeStore struct {
	upserts []*models.Conversation
}

func (s *fakeStore) UpsertConversation(conv *models.Conversation) error {
	s.upserts = append(s.upserts, conv)
	return nil
}

const watchedSession = `{"type": "system", "session_id": "sess-1", "cwd": "/w/proj", "timestamp": "2025-03-02T09:00:00Z"}
{"type": "user", "timestamp": "2025-03-02T09:00:05Z", "message": {"content": "hello"}}
`

func newTestWatcher(t *testing.T, store Store) *Watcher {
	t.Helper()
	w, err := New(store, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.watcher.Close() })
	return w
}

func TestWatchDirectoryQueuesExistingLogs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.jsonl"), []byte(watchedSession), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "notes.txt"), []byte("x"), 0644))

	w := newTestWatcher(t, &fakeStore{})
	require.NoError(t, w.WatchDirectory(dir))

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Len(t, w.pending, 1, "only session logs are queued")
	assert.True(t, w.watched[dir])
	assert.True(t, w.watched[sub])
}

func TestWatchDirectoryMissing(t *testing.T) {
	w := newTestWatcher(t, &fakeStore{})
	assert.Error(t, w.WatchDirectory(filepath.Join(t.TempDir(), "nope")))
}

func TestTakeQuietHonorsDebounce(t *testing.T) {
	w := newTestWatcher(t, &fakeStore{})

	w.enqueue("/a.jsonl")
	assert.Empty(t, w.takeQuiet(), "fresh events stay pending")

	w.mu.Lock()
	w.pending["/a.jsonl"] = time.Now().Add(-2 * debounceInterval)
	w.mu.Unlock()

	quiet := w.takeQuiet()
	require.Len(t, quiet, 1)
	assert.Empty(t, w.takeQuiet(), "taken paths leave the queue")
}

func TestImportFileUpserts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proj-session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(watchedSession), 0644))

	store := &fakeStore{}
	w := newTestWatcher(t, store)

	w.importFile(path)
	require.Len(t, store.upserts, 1)
	conv := store.upserts[0]
	assert.Equal(t, "sess-1", conv.ID)
	assert.Len(t, conv.Messages, 1)

	// A second pass replaces rather than duplicates at the store level; the
	// watcher just upserts again.
	w.importFile(path)
	assert.Len(t, store.upserts, 2)
}

func TestImportFileUnreadable(t *testing.T) {
	store := &fakeStore{}
	w := newTestWatcher(t, store)

	w.importFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Empty(t, store.upserts)
}

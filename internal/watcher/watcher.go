// Package watcher re-imports session logs as they change on disk. Changed
// files are upserted rather than batch-imported: a growing session must
// replace its earlier snapshot, not be skipped as a duplicate.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/chatvault/chatvault/internal/models"
	"github.com/chatvault/chatvault/internal/parser"
)

// debounceInterval is how long a file must stay quiet before it is
// re-imported. Session logs are appended in bursts.
const debounceInterval = 2 * time.Second

// Store is the persistence surface the watcher writes through.
type Store interface {
	UpsertConversation(conv *models.Conversation) error
}

// Watcher tails directories for *.jsonl session logs and upserts changed
// files into the store.
type Watcher struct {
	watcher *fsnotify.Watcher
	store   Store
	parser  *parser.SessionLogParser
	log     *zap.Logger

	mu      sync.Mutex
	watched map[string]bool
	pending map[string]time.Time // path -> last event time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(store Store, log *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		watcher: fsWatcher,
		store:   store,
		parser:  parser.NewSessionLogParser(log),
		log:     log,
		watched: make(map[string]bool),
		pending: make(map[string]time.Time),
		stopCh:  make(chan struct{}),
	}, nil
}

// WatchDirectory registers a directory and all its subdirectories. Session
// logs already present are queued for an initial import.
func (w *Watcher) WatchDirectory(dir string) error {
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("cannot watch %s: %w", dir, err)
	}

	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.addDir(path)
		}
		if isSessionLog(path) {
			w.enqueue(path)
		}
		return nil
	})
}

func (w *Watcher) addDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	w.watched[dir] = true
	return nil
}

// Start launches the event and flush loops.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watchLoop()

	w.wg.Add(1)
	go w.flushLoop()
}

// Stop shuts both loops down and closes the underlying watcher.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	w.wg.Wait()
	return w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			switch {
			case event.Op.Has(fsnotify.Create):
				// New subdirectories show up as create events too.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDir(event.Name); err != nil {
						w.log.Warn("failed to watch new directory",
							zap.String("dir", event.Name), zap.Error(err))
					}
					continue
				}
				if isSessionLog(event.Name) {
					w.enqueue(event.Name)
				}
			case event.Op.Has(fsnotify.Write):
				if isSessionLog(event.Name) {
					w.enqueue(event.Name)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			for _, path := range w.takeQuiet() {
				w.importFile(path)
			}
		}
	}
}

func (w *Watcher) enqueue(path string) {
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// takeQuiet removes and returns the pending paths whose debounce window has
// elapsed.
func (w *Watcher) takeQuiet() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var quiet []string
	now := time.Now()
	for path, last := range w.pending {
		if now.Sub(last) >= debounceInterval {
			quiet = append(quiet, path)
			delete(w.pending, path)
		}
	}
	return quiet
}

func (w *Watcher) importFile(path string) {
	file, err := os.Open(path)
	if err != nil {
		w.log.Warn("failed to open session log", zap.String("path", path), zap.Error(err))
		return
	}
	defer file.Close()

	result, err := w.parser.Parse(file, filepath.Base(path))
	if err != nil {
		w.log.Warn("failed to parse session log", zap.String("path", path), zap.Error(err))
		return
	}

	for i := range result.Conversations {
		conv := result.Conversations[i]
		for _, msg := range result.Messages {
			if msg.ConversationID == conv.ID {
				conv.Messages = append(conv.Messages, msg)
			}
		}
		if err := w.store.UpsertConversation(&conv); err != nil {
			w.log.Warn("failed to store session log",
				zap.String("path", path), zap.Error(err))
			return
		}
		w.log.Info("synced session log",
			zap.String("path", path),
			zap.String("conversation", conv.ID),
			zap.Int("messages", len(conv.Messages)))
	}
}

func isSessionLog(path string) bool {
	return filepath.Ext(path) == ".jsonl"
}

// Package search maintains the in-memory fuzzy index over stored
// conversations. The index is a derived cache: it owns no state, must be
// invalidated on every store mutation, and can be rebuilt at any time.
package search

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/chatvault/chatvault/internal/models"
)

// DefaultFreeLimit is how many of the most recent conversations the free
// tier may search.
const DefaultFreeLimit = 100

// maxIndexed bounds how many conversations are loaded into the index.
const maxIndexed = 10000

// Tier selects which index a search runs against.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Store is the read surface the index is built from.
type Store interface {
	AllConversations(limit int) ([]models.Conversation, error)
}

// Options narrow a search.
type Options struct {
	Source models.Source // filter to one source when set
	Limit  int
	Tier   Tier
}

// Index holds the two tiered fuzzy indexes. Concurrent builds are allowed;
// the last one to finish wins, which is harmless because Build is idempotent
// for a given store state.
type Index struct {
	store     Store
	freeLimit int

	mu    sync.RWMutex
	pro   []models.Conversation // sorted by CreatedAt descending
	free  []models.Conversation // most recent freeLimit of pro
	built bool
}

func New(store Store, freeLimit int) *Index {
	if freeLimit <= 0 {
		freeLimit = DefaultFreeLimit
	}
	return &Index{store: store, freeLimit: freeLimit}
}

// Build loads all conversations and reconstructs both tier indexes.
func (ix *Index) Build() error {
	conversations, err := ix.store.AllConversations(maxIndexed)
	if err != nil {
		return fmt.Errorf("failed to load conversations: %w", err)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].CreatedAt.After(conversations[j].CreatedAt)
	})

	free := conversations
	if len(free) > ix.freeLimit {
		free = conversations[:ix.freeLimit]
	}

	ix.mu.Lock()
	ix.pro = conversations
	ix.free = free
	ix.built = true
	ix.mu.Unlock()
	return nil
}

// Invalidate discards both indexes; the next search rebuilds from the
// current store. Every mutation path must call this — a stale index can hide
// new data and resurface deleted data.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	ix.pro = nil
	ix.free = nil
	ix.built = false
	ix.mu.Unlock()
}

// IndexedCount reports how many conversations a tier can search.
func (ix *Index) IndexedCount(tier Tier) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if tier == TierPro {
		return len(ix.pro)
	}
	return len(ix.free)
}

// fieldWeights order matches match priority for snippet extraction: the
// strongest field hit provides the snippet text.
var fieldWeights = []struct {
	weight float64
	value  func(*models.Conversation) string
}{
	{2.0, func(c *models.Conversation) string { return c.Name }},
	{1.5, func(c *models.Conversation) string { return c.Summary }},
	{1.0, func(c *models.Conversation) string { return c.FullText }},
}

type fieldSource struct {
	conversations []models.Conversation
	value         func(*models.Conversation) string
}

func (s fieldSource) String(i int) string { return s.value(&s.conversations[i]) }
func (s fieldSource) Len() int            { return len(s.conversations) }

type hit struct {
	conversation *models.Conversation
	score        float64
	matchedText  string
	matchedAt    int // byte offset of the first matched character, -1 if none
}

// Search runs a weighted fuzzy match across name, summary, and full text on
// the tier's index, optionally filters by source, and truncates to limit.
func (ix *Index) Search(query string, opts Options) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	ix.mu.RLock()
	built := ix.built
	ix.mu.RUnlock()
	if !built {
		if err := ix.Build(); err != nil {
			return nil, err
		}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	data := ix.free
	if opts.Tier == TierPro {
		data = ix.pro
	}

	best := make(map[int]*hit)
	for _, field := range fieldWeights {
		matches := fuzzy.FindFrom(query, fieldSource{conversations: data, value: field.value})
		for _, m := range matches {
			score := float64(m.Score) * field.weight
			existing, ok := best[m.Index]
			if ok && existing.score >= score {
				continue
			}
			matchedAt := -1
			if len(m.MatchedIndexes) > 0 {
				matchedAt = m.MatchedIndexes[0]
			}
			best[m.Index] = &hit{
				conversation: &data[m.Index],
				score:        score,
				matchedText:  m.Str,
				matchedAt:    matchedAt,
			}
		}
	}

	hits := make([]*hit, 0, len(best))
	for _, h := range best {
		if opts.Source != "" && h.conversation.Source != opts.Source {
			continue
		}
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, models.SearchResult{
			Conversation: *h.conversation,
			Score:        h.score,
			Snippet:      snippet(h),
		})
	}
	return results, nil
}

const (
	snippetContext = 60
	snippetMaxLen  = 150
)

// snippet extracts a bounded excerpt centered on the first match location,
// falling back to a summary or full-text prefix when there is no positional
// match.
func snippet(h *hit) string {
	if h.matchedAt < 0 || h.matchedText == "" {
		text := h.conversation.Summary
		if text == "" {
			text = h.conversation.FullText
		}
		return truncate(text, snippetMaxLen)
	}

	text := h.matchedText
	at := h.matchedAt
	for at > 0 && !utf8.RuneStart(text[at]) {
		at--
	}

	// Context is counted in runes, so byte offsets never split a character.
	start := at
	for i := 0; i < snippetContext && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	end := at
	for i := 0; i < snippetContext && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}

	out := text[start:end]
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out = out + "..."
	}
	return out
}

func truncate(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxRunes])) + "..."
}

// Package importer drives files through format detection and extraction,
// deduplicates against the store, and persists in fixed-size batches.
package importer

import (
	"bytes"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chatvault/chatvault/internal/format"
	"github.com/chatvault/chatvault/internal/models"
	"github.com/chatvault/chatvault/internal/parser"
)

// DefaultBatchSize bounds the payload of a single persistence call.
const DefaultBatchSize = 100

// Store is the persistence surface the orchestrator needs.
type Store interface {
	ConversationIDsIn(ids []string) (map[string]struct{}, error)
	InsertConversations(conversations []models.Conversation) error
	InsertMessages(messages []models.Message) error
	RecordLastSync(source models.Source, t time.Time) error
}

// Phase of an import operation, reported through the progress callback.
type Phase string

const (
	PhaseParsing  Phase = "parsing"
	PhaseStoring  Phase = "storing"
	PhaseComplete Phase = "complete"
)

// Progress is one progress report. Filename is set during parsing.
type Progress struct {
	Phase    Phase
	Current  int
	Total    int
	Filename string
}

// ProgressFunc receives progress reports. It is also the cooperative
// cancellation point: batches are persisted strictly sequentially, and a
// failure partway through leaves earlier batches committed.
type ProgressFunc func(Progress)

// File is a named byte blob with a declared MIME type. Format detection uses
// only the name and type.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Importer orchestrates bulk imports.
type Importer struct {
	store         Store
	log           *zap.Logger
	batchSize     int
	webParser     *parser.WebExportParser
	sessionParser *parser.SessionLogParser
}

type Option func(*Importer)

// WithBatchSize overrides the persistence batch size.
func WithBatchSize(n int) Option {
	return func(imp *Importer) {
		if n > 0 {
			imp.batchSize = n
		}
	}
}

func New(store Store, log *zap.Logger, opts ...Option) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	imp := &Importer{
		store:         store,
		log:           log,
		batchSize:     DefaultBatchSize,
		webParser:     parser.NewWebExportParser(log),
		sessionParser: parser.NewSessionLogParser(log),
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Import parses the files in order, skips conversations whose ids already
// exist in the store, and persists the rest in sequential batches. Extractor
// failures (*parser.FormatError, *parser.NoDataError) abort the whole batch.
func (imp *Importer) Import(files []File, onProgress ProgressFunc) (*models.ImportResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files")
	}
	report := func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	var conversations []models.Conversation
	var messages []models.Message
	var batchSource models.Source
	seen := make(map[string]struct{})
	skipped := 0

	for i, file := range files {
		report(Progress{Phase: PhaseParsing, Current: i + 1, Total: len(files), Filename: file.Name})

		result, source, err := imp.parseFile(file)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			batchSource = source
		}

		// A batch can carry the same conversation twice, e.g. a session log
		// and its copy. The first occurrence wins; later copies are skipped
		// with their messages so a conversation's message_count stays
		// consistent with what is stored.
		kept := make(map[string]struct{}, len(result.Conversations))
		for _, conv := range result.Conversations {
			if _, dup := seen[conv.ID]; dup {
				skipped++
				continue
			}
			seen[conv.ID] = struct{}{}
			kept[conv.ID] = struct{}{}
			conversations = append(conversations, conv)
		}
		for _, msg := range result.Messages {
			if _, ok := kept[msg.ConversationID]; ok {
				messages = append(messages, msg)
			}
		}
	}

	ids := make([]string, len(conversations))
	for i, conv := range conversations {
		ids[i] = conv.ID
	}
	existing, err := imp.store.ConversationIDsIn(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing conversations: %w", err)
	}

	// Duplicates are skipped wholesale; their messages are dropped, never
	// merged field by field.
	var newConversations []models.Conversation
	newIDs := make(map[string]struct{})
	for _, conv := range conversations {
		if _, ok := existing[conv.ID]; ok {
			skipped++
			continue
		}
		newConversations = append(newConversations, conv)
		newIDs[conv.ID] = struct{}{}
	}
	var newMessages []models.Message
	for _, msg := range messages {
		if _, ok := newIDs[msg.ConversationID]; ok {
			newMessages = append(newMessages, msg)
		}
	}

	report(Progress{Phase: PhaseStoring, Current: 0, Total: len(newConversations)})

	for start := 0; start < len(newConversations); start += imp.batchSize {
		end := min(start+imp.batchSize, len(newConversations))
		batch := newConversations[start:end]

		batchIDs := make(map[string]struct{}, len(batch))
		for _, conv := range batch {
			batchIDs[conv.ID] = struct{}{}
		}
		var msgBatch []models.Message
		for _, msg := range newMessages {
			if _, ok := batchIDs[msg.ConversationID]; ok {
				msgBatch = append(msgBatch, msg)
			}
		}

		if err := imp.store.InsertConversations(batch); err != nil {
			return nil, fmt.Errorf("failed to store conversations: %w", err)
		}
		if err := imp.store.InsertMessages(msgBatch); err != nil {
			return nil, fmt.Errorf("failed to store messages: %w", err)
		}

		report(Progress{Phase: PhaseStoring, Current: end, Total: len(newConversations)})
	}

	if err := imp.store.RecordLastSync(batchSource, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to record last sync: %w", err)
	}

	imp.log.Info("import finished",
		zap.Int("added", len(newConversations)),
		zap.Int("skipped", skipped),
		zap.Int("messages", len(newMessages)),
		zap.String("source", string(batchSource)))

	report(Progress{Phase: PhaseComplete, Current: len(newConversations), Total: len(newConversations)})

	return &models.ImportResult{
		ConversationsAdded:   len(newConversations),
		ConversationsSkipped: skipped,
		MessagesAdded:        len(newMessages),
		Source:               batchSource,
	}, nil
}

func (imp *Importer) parseFile(file File) (*parser.Result, models.Source, error) {
	switch format.Detect(file.Name, file.MIMEType) {
	case format.ArchivedExport:
		result, err := imp.webParser.ParseArchive(file.Data)
		return result, models.SourceWebExport, err
	case format.PlainJSONExport:
		result, err := imp.webParser.ParseJSON(file.Data)
		return result, models.SourceWebExport, err
	case format.SessionLog:
		result, err := imp.sessionParser.Parse(bytes.NewReader(file.Data), file.Name)
		return result, models.SourceSessionLog, err
	default:
		return nil, "", &parser.FormatError{
			Format: format.Unknown,
			Reason: fmt.Sprintf("unsupported file %q: expected a ZIP export, conversations.json, or a JSONL session log", file.Name),
		}
	}
}

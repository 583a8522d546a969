// Package storage persists conversations, messages, activities, and rollups
// in a local SQLite database.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chatvault/chatvault/internal/models"
)

// idChunkSize bounds how many placeholders a single IN (...) lookup uses.
const idChunkSize = 500

type SQLiteStore struct {
	writeDB *sql.DB // Single connection for writes
	readDB  *sql.DB // Pool of connections for reads
	dbPath  string

	// onMutate fires after any successful write that changes what a search
	// over conversations could see. The search index registers itself here.
	onMutate func()
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, ".chatvault", "chatvault.db")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open write connection (single connection)
	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open write database: %w", err)
	}
	writeDB.SetMaxOpenConns(1) // Only one write connection

	readDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(5)
	readDB.SetMaxIdleConns(5)

	store := &SQLiteStore{
		writeDB: writeDB,
		readDB:  readDB,
		dbPath:  dbPath,
	}

	if err := store.initializeDB(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := store.createTables(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// SetMutationHook registers a callback fired after every successful mutation.
// At most one hook is supported.
func (s *SQLiteStore) SetMutationHook(fn func()) {
	s.onMutate = fn
}

func (s *SQLiteStore) notifyMutation() {
	if s.onMutate != nil {
		s.onMutate()
	}
}

func (s *SQLiteStore) initializeDB() error {
	config := DefaultConfig()
	for _, pragma := range config.pragmas() {
		if _, err := s.writeDB.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set %s: %w", pragma, err)
		}
	}
	// Cascading deletes on messages need foreign keys on the read pool too.
	if _, err := s.readDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return nil
}

func (s *SQLiteStore) createTables() error {
	queries := []string{
		queryCreateConversationsTable,
		queryCreateMessagesTable,
		queryCreateActivitiesTable,
		queryCreateDailyStatsTable,
		queryCreateMetadataTable,
		queryCreateIndexMessagesConversation,
		queryCreateIndexConversationsSource,
		queryCreateIndexConversationsCreated,
		queryCreateIndexActivitiesTimestamp,
		queryCreateIndexActivitiesConversation,
	}

	for _, query := range queries {
		if _, err := s.writeDB.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// ConversationIDsIn reports which of the given ids already exist. Lookups are
// chunked so arbitrarily large imports stay under the placeholder limit.
func (s *SQLiteStore) ConversationIDsIn(ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for start := 0; start < len(ids); start += idChunkSize {
		end := min(start+idChunkSize, len(ids))
		chunk := ids[start:end]

		placeholders := strings.Repeat("?,", len(chunk))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		rows, err := s.readDB.Query(
			"SELECT id FROM conversations WHERE id IN ("+placeholders+")", args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query conversation ids: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			existing[id] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return existing, nil
}

// InsertConversations writes a batch in one transaction. Existing ids are
// left untouched.
func (s *SQLiteStore) InsertConversations(conversations []models.Conversation) error {
	if len(conversations) == 0 {
		return nil
	}
	tx, err := s.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range conversations {
		conv := &conversations[i]
		if _, err := tx.Exec(queryInsertConversation,
			conv.ID, conv.Source, conv.Name, conv.Summary,
			conv.CreatedAt, conv.UpdatedAt, conv.ImportedAt,
			conv.MessageCount, conv.UserMessageCount, conv.AssistantMessageCount,
			conv.EstimatedTokens, conv.FullText,
			conv.ProjectPath, conv.GitBranch, conv.WorkingDirectory,
		); err != nil {
			return fmt.Errorf("failed to insert conversation %s: %w", conv.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.notifyMutation()
	return nil
}

// InsertMessages writes a batch in one transaction. Existing ids are left
// untouched.
func (s *SQLiteStore) InsertMessages(messages []models.Message) error {
	if len(messages) == 0 {
		return nil
	}
	tx, err := s.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range messages {
		msg := &messages[i]
		blocksJSON, err := marshalBlocks(msg.ContentBlocks)
		if err != nil {
			return fmt.Errorf("failed to encode content blocks for message %s: %w", msg.ID, err)
		}
		if _, err := tx.Exec(queryInsertMessage,
			msg.ID, msg.ConversationID, msg.Sender, msg.Text, blocksJSON,
			msg.CreatedAt, msg.ToolName, msg.ToolInput, msg.ToolResult,
		); err != nil {
			return fmt.Errorf("failed to insert message %s: %w", msg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.notifyMutation()
	return nil
}

// UpsertConversation inserts or fully replaces a single conversation record
// and its messages. Unlike bulk import this overwrites an existing id.
func (s *SQLiteStore) UpsertConversation(conv *models.Conversation) error {
	tx, err := s.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(queryUpsertConversation,
		conv.ID, conv.Source, conv.Name, conv.Summary,
		conv.CreatedAt, conv.UpdatedAt, conv.ImportedAt,
		conv.MessageCount, conv.UserMessageCount, conv.AssistantMessageCount,
		conv.EstimatedTokens, conv.FullText,
		conv.ProjectPath, conv.GitBranch, conv.WorkingDirectory,
	); err != nil {
		return fmt.Errorf("failed to upsert conversation %s: %w", conv.ID, err)
	}

	if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", conv.ID); err != nil {
		return fmt.Errorf("failed to clear messages for %s: %w", conv.ID, err)
	}
	for i := range conv.Messages {
		msg := &conv.Messages[i]
		blocksJSON, err := marshalBlocks(msg.ContentBlocks)
		if err != nil {
			return fmt.Errorf("failed to encode content blocks for message %s: %w", msg.ID, err)
		}
		if _, err := tx.Exec(queryInsertMessage,
			msg.ID, msg.ConversationID, msg.Sender, msg.Text, blocksJSON,
			msg.CreatedAt, msg.ToolName, msg.ToolInput, msg.ToolResult,
		); err != nil {
			return fmt.Errorf("failed to insert message %s: %w", msg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.notifyMutation()
	return nil
}

// GetConversation loads one conversation with its messages in chronological
// order. Returns (nil, nil) when the id is unknown.
func (s *SQLiteStore) GetConversation(id string) (*models.Conversation, error) {
	row := s.readDB.QueryRow(querySelectConversation, id)
	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.readDB.Query(querySelectMessages, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		conv.Messages = append(conv.Messages, *msg)
	}
	return conv, rows.Err()
}

// AllConversations returns up to limit conversations, most recently updated
// first, without messages but with full text. This is the search index's load
// path; ordering by update time keeps the limit from cutting off active
// conversations.
func (s *SQLiteStore) AllConversations(limit int) ([]models.Conversation, error) {
	rows, err := s.readDB.Query(querySelectAllConversations, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *conv)
	}
	return conversations, rows.Err()
}

// ListConversations returns a page of conversations, newest first, optionally
// filtered by source.
func (s *SQLiteStore) ListConversations(limit, offset int, source models.Source) ([]models.Conversation, error) {
	query := `SELECT ` + queryConversationColumns + ` FROM conversations`
	args := []interface{}{}
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, string(source))
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.readDB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *conv)
	}
	return conversations, rows.Err()
}

// DeleteConversation removes a conversation; its messages cascade.
func (s *SQLiteStore) DeleteConversation(id string) (bool, error) {
	result, err := s.writeDB.Exec(queryDeleteConversation, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		s.notifyMutation()
	}
	return affected > 0, nil
}

// DeleteBySource removes every conversation from one source and reports how
// many were removed.
func (s *SQLiteStore) DeleteBySource(source models.Source) (int, error) {
	result, err := s.writeDB.Exec(queryDeleteBySource, string(source))
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.notifyMutation()
	}
	return int(affected), nil
}

// RecordLastSync stores the completion time of the latest import for a
// source.
func (s *SQLiteStore) RecordLastSync(source models.Source, t time.Time) error {
	_, err := s.writeDB.Exec(queryUpsertMetadata,
		"lastSync."+string(source), t.UTC().Format(time.RFC3339))
	return err
}

// LastSync returns the recorded completion time for a source, or the zero
// time when the source has never been imported.
func (s *SQLiteStore) LastSync(source models.Source) (time.Time, error) {
	var value string
	err := s.readDB.QueryRow(querySelectMetadata, "lastSync."+string(source)).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// Stats aggregates counters over the whole store.
func (s *SQLiteStore) Stats() (*models.VaultStats, error) {
	stats := &models.VaultStats{
		SourceBreakdown: make(map[string]int),
	}

	if err := s.readDB.QueryRow(queryCountConversations).Scan(&stats.TotalConversations); err != nil {
		return nil, err
	}
	if err := s.readDB.QueryRow(queryCountMessages).Scan(&stats.TotalMessages); err != nil {
		return nil, err
	}
	if err := s.readDB.QueryRow(querySumTokens).Scan(&stats.TotalTokens); err != nil {
		return nil, err
	}

	rows, err := s.readDB.Query(queryGroupBySource)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, err
		}
		stats.SourceBreakdown[source] = count
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) Close() error {
	var errs []error

	// Run PRAGMA optimize before closing for better long-term performance
	if _, err := s.writeDB.Exec("PRAGMA optimize"); err != nil {
		errs = append(errs, fmt.Errorf("failed to optimize: %w", err))
	}

	if err := s.readDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close read db: %w", err))
	}

	if err := s.writeDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close write db: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var summary, projectPath, gitBranch, workingDirectory sql.NullString

	err := row.Scan(
		&conv.ID, &conv.Source, &conv.Name, &summary,
		&conv.CreatedAt, &conv.UpdatedAt, &conv.ImportedAt,
		&conv.MessageCount, &conv.UserMessageCount, &conv.AssistantMessageCount,
		&conv.EstimatedTokens, &conv.FullText,
		&projectPath, &gitBranch, &workingDirectory,
	)
	if err != nil {
		return nil, err
	}

	conv.Summary = summary.String
	conv.ProjectPath = projectPath.String
	conv.GitBranch = gitBranch.String
	conv.WorkingDirectory = workingDirectory.String
	return conv, nil
}

func scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var blocksJSON, toolName, toolInput, toolResult sql.NullString

	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.Sender, &msg.Text, &blocksJSON,
		&msg.CreatedAt, &toolName, &toolInput, &toolResult,
	)
	if err != nil {
		return nil, err
	}

	msg.ToolName = toolName.String
	msg.ToolInput = toolInput.String
	msg.ToolResult = toolResult.String
	if blocksJSON.Valid && blocksJSON.String != "" {
		if err := json.Unmarshal([]byte(blocksJSON.String), &msg.ContentBlocks); err != nil {
			return nil, fmt.Errorf("failed to decode content blocks for message %s: %w", msg.ID, err)
		}
	}
	return msg, nil
}

// marshalBlocks encodes structured content as JSON, or NULL when there is
// none.
func marshalBlocks(blocks models.Blocks) (interface{}, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

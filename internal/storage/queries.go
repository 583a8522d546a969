package storage

// SQL statements for the vault schema. Conversation and message ids come from
// the extractors (export uuids, session ids), so both tables use TEXT primary
// keys and inserts are INSERT OR IGNORE: re-importing the same export is a
// no-op rather than a conflict.
const (
	queryCreateConversationsTable = `CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		name TEXT NOT NULL,
		summary TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		imported_at TIMESTAMP NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0,
		user_message_count INTEGER NOT NULL DEFAULT 0,
		assistant_message_count INTEGER NOT NULL DEFAULT 0,
		estimated_tokens INTEGER NOT NULL DEFAULT 0,
		full_text TEXT NOT NULL DEFAULT '',
		project_path TEXT,
		git_branch TEXT,
		working_directory TEXT
	)`

	queryCreateMessagesTable = `CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender TEXT NOT NULL,
		text TEXT NOT NULL,
		content_blocks TEXT,
		created_at TIMESTAMP NOT NULL,
		tool_name TEXT,
		tool_input TEXT,
		tool_result TEXT
	)`

	queryCreateActivitiesTable = `CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		source TEXT NOT NULL,
		conversation_id TEXT,
		conversation_title TEXT,
		model TEXT,
		timestamp TIMESTAMP NOT NULL,
		input_tokens INTEGER,
		output_tokens INTEGER,
		cache_creation_tokens INTEGER,
		cache_read_tokens INTEGER,
		metadata TEXT
	)`

	queryCreateDailyStatsTable = `CREATE TABLE IF NOT EXISTS daily_stats (
		date TEXT PRIMARY KEY,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		message_count INTEGER NOT NULL DEFAULT 0,
		artifact_count INTEGER NOT NULL DEFAULT 0,
		tool_use_count INTEGER NOT NULL DEFAULT 0,
		model_usage TEXT NOT NULL DEFAULT '{}'
	)`

	queryCreateMetadataTable = `CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`

	queryCreateIndexMessagesConversation   = `CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id)`
	queryCreateIndexConversationsSource    = `CREATE INDEX IF NOT EXISTS idx_conversations_source ON conversations(source)`
	queryCreateIndexConversationsCreated   = `CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at)`
	queryCreateIndexActivitiesTimestamp    = `CREATE INDEX IF NOT EXISTS idx_activities_timestamp ON activities(timestamp)`
	queryCreateIndexActivitiesConversation = `CREATE INDEX IF NOT EXISTS idx_activities_conversation ON activities(conversation_id)`

	queryInsertConversation = `INSERT OR IGNORE INTO conversations
		(id, source, name, summary, created_at, updated_at, imported_at,
		 message_count, user_message_count, assistant_message_count,
		 estimated_tokens, full_text, project_path, git_branch, working_directory)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpsertConversation = `INSERT INTO conversations
		(id, source, name, summary, created_at, updated_at, imported_at,
		 message_count, user_message_count, assistant_message_count,
		 estimated_tokens, full_text, project_path, git_branch, working_directory)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			name = excluded.name,
			summary = excluded.summary,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			message_count = excluded.message_count,
			user_message_count = excluded.user_message_count,
			assistant_message_count = excluded.assistant_message_count,
			estimated_tokens = excluded.estimated_tokens,
			full_text = excluded.full_text,
			project_path = excluded.project_path,
			git_branch = excluded.git_branch,
			working_directory = excluded.working_directory`

	queryInsertMessage = `INSERT OR IGNORE INTO messages
		(id, conversation_id, sender, text, content_blocks, created_at, tool_name, tool_input, tool_result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryConversationColumns = `id, source, name, summary, created_at, updated_at, imported_at,
		message_count, user_message_count, assistant_message_count,
		estimated_tokens, full_text, project_path, git_branch, working_directory`

	querySelectConversation = `SELECT ` + queryConversationColumns + `
		FROM conversations WHERE id = ?`

	querySelectAllConversations = `SELECT ` + queryConversationColumns + `
		FROM conversations ORDER BY updated_at DESC LIMIT ?`

	querySelectMessages = `SELECT id, conversation_id, sender, text, content_blocks, created_at, tool_name, tool_input, tool_result
		FROM messages WHERE conversation_id = ? ORDER BY created_at, id`

	queryDeleteConversation = `DELETE FROM conversations WHERE id = ?`
	queryDeleteBySource     = `DELETE FROM conversations WHERE source = ?`

	queryUpsertMetadata = `INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	querySelectMetadata = `SELECT value FROM metadata WHERE key = ?`

	queryInsertActivity = `INSERT OR IGNORE INTO activities
		(id, type, source, conversation_id, conversation_title, model, timestamp,
		 input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	querySelectDailyStats = `SELECT date, input_tokens, output_tokens, message_count, artifact_count, tool_use_count, model_usage
		FROM daily_stats WHERE date = ?`

	queryUpsertDailyStats = `INSERT INTO daily_stats
		(date, input_tokens, output_tokens, message_count, artifact_count, tool_use_count, model_usage)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			message_count = excluded.message_count,
			artifact_count = excluded.artifact_count,
			tool_use_count = excluded.tool_use_count,
			model_usage = excluded.model_usage`

	querySelectDailyStatsRange = `SELECT date, input_tokens, output_tokens, message_count, artifact_count, tool_use_count, model_usage
		FROM daily_stats WHERE date >= ? AND date <= ? ORDER BY date`

	queryDeleteActivities = `DELETE FROM activities`
	queryDeleteDailyStats = `DELETE FROM daily_stats`

	queryCountConversations = `SELECT COUNT(*) FROM conversations`
	queryCountMessages      = `SELECT COUNT(*) FROM messages`
	querySumTokens          = `SELECT COALESCE(SUM(estimated_tokens), 0) FROM conversations`
	queryGroupBySource      = `SELECT source, COUNT(*) FROM conversations GROUP BY source`
)

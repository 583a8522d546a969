package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chatvault/chatvault/internal/models"
)

// ActivityFilters narrow a ListActivities query. Zero values mean no filter.
type ActivityFilters struct {
	Source         models.ActivitySource
	Types          []models.ActivityType
	ConversationID string
	Since          time.Time
	Until          time.Time
	Limit          int
	Offset         int
}

// RecordActivity appends one activity and folds it into that UTC day's
// rollup in the same transaction, so the rollup never drifts from the
// activity log. Re-recording an id is a no-op and leaves the rollup alone.
func (s *SQLiteStore) RecordActivity(a *models.Activity) error {
	metadataJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode activity metadata: %w", err)
	}

	var inputTokens, outputTokens, cacheCreation, cacheRead interface{}
	if a.Tokens != nil {
		inputTokens = a.Tokens.InputTokens
		outputTokens = a.Tokens.OutputTokens
		cacheCreation = a.Tokens.CacheCreationTokens
		cacheRead = a.Tokens.CacheReadTokens
	}

	tx, err := s.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(queryInsertActivity,
		a.ID, a.Type, a.Source, a.ConversationID, a.ConversationTitle, a.Model,
		a.Timestamp, inputTokens, outputTokens, cacheCreation, cacheRead,
		string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return tx.Commit()
	}

	if err := rollUpActivity(tx, a); err != nil {
		return err
	}
	return tx.Commit()
}

func rollUpActivity(tx *sql.Tx, a *models.Activity) error {
	date := a.Timestamp.UTC().Format("2006-01-02")

	day := models.DailyStats{Date: date, ModelUsage: make(map[string]int)}
	var modelUsageJSON string
	err := tx.QueryRow(querySelectDailyStats, date).Scan(
		&day.Date, &day.InputTokens, &day.OutputTokens,
		&day.MessageCount, &day.ArtifactCount, &day.ToolUseCount,
		&modelUsageJSON,
	)
	switch {
	case err == sql.ErrNoRows:
		// First activity of the day.
	case err != nil:
		return fmt.Errorf("failed to load daily stats: %w", err)
	default:
		if modelUsageJSON != "" {
			if err := json.Unmarshal([]byte(modelUsageJSON), &day.ModelUsage); err != nil {
				return fmt.Errorf("failed to decode model usage: %w", err)
			}
		}
		if day.ModelUsage == nil {
			day.ModelUsage = make(map[string]int)
		}
	}

	if a.Tokens != nil {
		day.InputTokens += a.Tokens.InputTokens
		day.OutputTokens += a.Tokens.OutputTokens
	}
	switch a.Type {
	case models.ActivityMessageSent, models.ActivityMessageReceived:
		day.MessageCount++
	case models.ActivityArtifactCreated:
		day.ArtifactCount++
	case models.ActivityToolUse, models.ActivityToolResult:
		day.ToolUseCount++
	}
	if a.Model != "" {
		day.ModelUsage[a.Model]++
	}

	usageJSON, err := json.Marshal(day.ModelUsage)
	if err != nil {
		return fmt.Errorf("failed to encode model usage: %w", err)
	}
	if _, err := tx.Exec(queryUpsertDailyStats,
		day.Date, day.InputTokens, day.OutputTokens,
		day.MessageCount, day.ArtifactCount, day.ToolUseCount,
		string(usageJSON),
	); err != nil {
		return fmt.Errorf("failed to update daily stats: %w", err)
	}
	return nil
}

// ListActivities returns activities newest first, narrowed by the filters.
func (s *SQLiteStore) ListActivities(filters ActivityFilters) ([]models.Activity, error) {
	query := `SELECT id, type, source, conversation_id, conversation_title, model, timestamp,
		input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens, metadata
		FROM activities WHERE 1=1`
	args := []interface{}{}

	if filters.Source != "" {
		query += " AND source = ?"
		args = append(args, string(filters.Source))
	}
	if len(filters.Types) > 0 {
		placeholders := strings.Repeat("?,", len(filters.Types))
		query += " AND type IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, t := range filters.Types {
			args = append(args, string(t))
		}
	}
	if filters.ConversationID != "" {
		query += " AND conversation_id = ?"
		args = append(args, filters.ConversationID)
	}
	if !filters.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filters.Since)
	}
	if !filters.Until.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filters.Until)
	}

	query += " ORDER BY timestamp DESC"
	if filters.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filters.Limit, filters.Offset)
	}

	rows, err := s.readDB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		var a models.Activity
		var conversationID, conversationTitle, model, metadataJSON sql.NullString
		var inputTokens, outputTokens, cacheCreation, cacheRead sql.NullInt64

		err := rows.Scan(
			&a.ID, &a.Type, &a.Source, &conversationID, &conversationTitle,
			&model, &a.Timestamp,
			&inputTokens, &outputTokens, &cacheCreation, &cacheRead,
			&metadataJSON,
		)
		if err != nil {
			return nil, err
		}

		a.ConversationID = conversationID.String
		a.ConversationTitle = conversationTitle.String
		a.Model = model.String
		if inputTokens.Valid || outputTokens.Valid {
			a.Tokens = &models.TokenUsage{
				InputTokens:         int(inputTokens.Int64),
				OutputTokens:        int(outputTokens.Int64),
				CacheCreationTokens: int(cacheCreation.Int64),
				CacheReadTokens:     int(cacheRead.Int64),
			}
		}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &a.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode activity metadata: %w", err)
			}
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// ClearActivities drops the whole activity log and its rollups together.
func (s *SQLiteStore) ClearActivities() error {
	tx, err := s.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(queryDeleteActivities); err != nil {
		return fmt.Errorf("failed to clear activities: %w", err)
	}
	if _, err := tx.Exec(queryDeleteDailyStats); err != nil {
		return fmt.Errorf("failed to clear daily stats: %w", err)
	}
	return tx.Commit()
}

// DailyStatsRange returns the rollups for dates in [start, end], ascending.
// Dates are YYYY-MM-DD strings.
func (s *SQLiteStore) DailyStatsRange(start, end string) ([]models.DailyStats, error) {
	rows, err := s.readDB.Query(querySelectDailyStatsRange, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.DailyStats
	for rows.Next() {
		var day models.DailyStats
		var modelUsageJSON string
		err := rows.Scan(
			&day.Date, &day.InputTokens, &day.OutputTokens,
			&day.MessageCount, &day.ArtifactCount, &day.ToolUseCount,
			&modelUsageJSON,
		)
		if err != nil {
			return nil, err
		}
		if modelUsageJSON != "" {
			if err := json.Unmarshal([]byte(modelUsageJSON), &day.ModelUsage); err != nil {
				return nil, fmt.Errorf("failed to decode model usage: %w", err)
			}
		}
		stats = append(stats, day)
	}
	return stats, rows.Err()
}

package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/chatvault/internal/models"
)

func testActivity(id string, activityType models.ActivityType, ts time.Time) *models.Activity {
	return &models.Activity{
		ID:                id,
		Type:              activityType,
		Source:            models.ActivitySourceExtension,
		ConversationID:    "conv-1",
		ConversationTitle: "a chat",
		Model:             "claude-sonnet",
		Timestamp:         ts,
	}
}

func TestRecordActivityRollup(t *testing.T) {
	store := newTestStore(t)
	day := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)

	first := testActivity("a1", models.ActivityMessageReceived, day)
	first.Tokens = &models.TokenUsage{InputTokens: 10, OutputTokens: 5}
	require.NoError(t, store.RecordActivity(first))

	second := testActivity("a2", models.ActivityMessageReceived, day.Add(time.Hour))
	second.Tokens = &models.TokenUsage{InputTokens: 7, OutputTokens: 3}
	require.NoError(t, store.RecordActivity(second))

	third := testActivity("a3", models.ActivityArtifactCreated, day.Add(2*time.Hour))
	require.NoError(t, store.RecordActivity(third))

	stats, err := store.DailyStatsRange("2025-03-02", "2025-03-02")
	require.NoError(t, err)
	require.Len(t, stats, 1)

	got := stats[0]
	assert.Equal(t, 17, got.InputTokens)
	assert.Equal(t, 8, got.OutputTokens)
	assert.Equal(t, 2, got.MessageCount)
	assert.Equal(t, 1, got.ArtifactCount)
	assert.Equal(t, 0, got.ToolUseCount)
	assert.Equal(t, 3, got.ModelUsage["claude-sonnet"])
}

func TestRecordActivityDuplicateIDLeavesRollupAlone(t *testing.T) {
	store := newTestStore(t)
	day := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)

	act := testActivity("a1", models.ActivityMessageReceived, day)
	act.Tokens = &models.TokenUsage{InputTokens: 10, OutputTokens: 5}
	require.NoError(t, store.RecordActivity(act))
	require.NoError(t, store.RecordActivity(act))

	stats, err := store.DailyStatsRange("2025-03-02", "2025-03-02")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 10, stats[0].InputTokens)
	assert.Equal(t, 1, stats[0].MessageCount)

	activities, err := store.ListActivities(ActivityFilters{})
	require.NoError(t, err)
	assert.Len(t, activities, 1)
}

func TestRollupSplitsAcrossUTCDays(t *testing.T) {
	store := newTestStore(t)

	late := testActivity("a1", models.ActivityMessageSent, time.Date(2025, 3, 2, 23, 50, 0, 0, time.UTC))
	early := testActivity("a2", models.ActivityMessageSent, time.Date(2025, 3, 3, 0, 10, 0, 0, time.UTC))
	require.NoError(t, store.RecordActivity(late))
	require.NoError(t, store.RecordActivity(early))

	stats, err := store.DailyStatsRange("2025-03-01", "2025-03-04")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "2025-03-02", stats[0].Date)
	assert.Equal(t, "2025-03-03", stats[1].Date)
	assert.Equal(t, 1, stats[0].MessageCount)
	assert.Equal(t, 1, stats[1].MessageCount)
}

func TestListActivitiesFilters(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordActivity(testActivity("a1", models.ActivityMessageReceived, base)))
	require.NoError(t, store.RecordActivity(testActivity("a2", models.ActivityToolUse, base.Add(time.Hour))))
	other := testActivity("a3", models.ActivityArtifactCreated, base.Add(2*time.Hour))
	other.ConversationID = "conv-2"
	require.NoError(t, store.RecordActivity(other))

	all, err := store.ListActivities(ActivityFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a3", all[0].ID, "newest first")

	tools, err := store.ListActivities(ActivityFilters{Types: []models.ActivityType{models.ActivityToolUse}})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "a2", tools[0].ID)

	byConv, err := store.ListActivities(ActivityFilters{ConversationID: "conv-2"})
	require.NoError(t, err)
	require.Len(t, byConv, 1)

	since, err := store.ListActivities(ActivityFilters{Since: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, since, 2)

	limited, err := store.ListActivities(ActivityFilters{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestClearActivities(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)

	act := testActivity("a1", models.ActivityMessageReceived, base)
	act.Tokens = &models.TokenUsage{InputTokens: 1, OutputTokens: 1}
	require.NoError(t, store.RecordActivity(act))

	require.NoError(t, store.ClearActivities())

	activities, err := store.ListActivities(ActivityFilters{})
	require.NoError(t, err)
	assert.Empty(t, activities)

	stats, err := store.DailyStatsRange("2025-03-01", "2025-03-03")
	require.NoError(t, err)
	assert.Empty(t, stats, "rollups clear together with the log")
}

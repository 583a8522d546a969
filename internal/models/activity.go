package models

import (
	"time"
)

// ActivityType classifies a capture-time event.
type ActivityType string

const (
	ActivityMessageSent     ActivityType = "message_sent"
	ActivityMessageReceived ActivityType = "message_received"
	ActivityArtifactCreated ActivityType = "artifact_created"
	ActivityCodeBlock       ActivityType = "code_block"
	ActivityToolUse         ActivityType = "tool_use"
	ActivityToolResult      ActivityType = "tool_result"
)

// ActivitySource identifies how an activity was captured.
type ActivitySource string

const (
	ActivitySourceWeb       ActivitySource = "claude.ai"
	ActivitySourceExtension ActivitySource = "extension"
)

// TokenUsage are the token counts reported for a single exchange.
type TokenUsage struct {
	InputTokens         int `json:"inputTokens"`
	OutputTokens        int `json:"outputTokens"`
	CacheCreationTokens int `json:"cacheCreationTokens,omitempty"`
	CacheReadTokens     int `json:"cacheReadTokens,omitempty"`
}

// ActivityMetadata is the free-form detail bag; which fields are set depends
// on the activity type.
type ActivityMetadata struct {
	MessageRole    string `json:"messageRole,omitempty"`
	MessagePreview string `json:"messagePreview,omitempty"`
	FullContent    string `json:"fullContent,omitempty"`
	UserMessage    string `json:"userMessage,omitempty"`
	ArtifactTitle  string `json:"artifactTitle,omitempty"`
	ArtifactType   string `json:"artifactType,omitempty"`
	CodeLanguage   string `json:"codeLanguage,omitempty"`
	CodeContent    string `json:"codeContent,omitempty"`
	ToolName       string `json:"toolName,omitempty"`
}

// Activity is a timestamped capture-time event, distinct from stored
// messages. Activities are append-only.
type Activity struct {
	ID                string           `json:"id"`
	Type              ActivityType     `json:"type"`
	Source            ActivitySource   `json:"source"`
	ConversationID    string           `json:"conversationId,omitempty"`
	ConversationTitle string           `json:"conversationTitle,omitempty"`
	Model             string           `json:"model,omitempty"`
	Timestamp         time.Time        `json:"timestamp"`
	Tokens            *TokenUsage      `json:"tokens,omitempty"`
	Metadata          ActivityMetadata `json:"metadata"`
}

// DailyStats is the per-UTC-date rollup of recorded activities. It is updated
// incrementally as each activity is recorded.
type DailyStats struct {
	Date          string         `json:"date"` // YYYY-MM-DD
	InputTokens   int            `json:"inputTokens"`
	OutputTokens  int            `json:"outputTokens"`
	MessageCount  int            `json:"messageCount"`
	ArtifactCount int            `json:"artifactCount"`
	ToolUseCount  int            `json:"toolUseCount"`
	ModelUsage    map[string]int `json:"modelUsage"`
}

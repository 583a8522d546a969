package models

import (
	"time"
)

// Source identifies where a conversation was captured from.
type Source string

const (
	// SourceWebExport is a conversation from a claude.ai data export.
	SourceWebExport Source = "claude.ai"
	// SourceSessionLog is a conversation from a Claude Code session log.
	SourceSessionLog Source = "claude-code"
)

// Sender is the role that produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
	SenderTool      Sender = "tool"
)

// Conversation is one logical chat or CLI session. The ID is stable across
// re-imports of the same underlying conversation; bulk import skips ids that
// already exist rather than overwriting them.
type Conversation struct {
	ID                    string    `json:"id"`
	Source                Source    `json:"source"`
	Name                  string    `json:"name"`
	Summary               string    `json:"summary,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
	ImportedAt            time.Time `json:"importedAt"`
	MessageCount          int       `json:"messageCount"`
	UserMessageCount      int       `json:"userMessageCount"`
	AssistantMessageCount int       `json:"assistantMessageCount"`
	EstimatedTokens       int       `json:"estimatedTokens"`
	FullText              string    `json:"fullText"`

	// Session-log specific fields.
	ProjectPath      string `json:"projectPath,omitempty"`
	GitBranch        string `json:"gitBranch,omitempty"`
	WorkingDirectory string `json:"workingDirectory,omitempty"`

	Messages []Message `json:"messages,omitempty"`
}

// Message is one turn of a conversation. Text is the flattened content and is
// always populated; ContentBlocks carries the structured form when available.
// The legacy ToolName/ToolInput/ToolResult scalars mirror the structured tool
// blocks for tool messages.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         Sender    `json:"sender"`
	Text           string    `json:"text"`
	ContentBlocks  Blocks    `json:"contentBlocks,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`

	ToolName   string `json:"toolName,omitempty"`
	ToolInput  string `json:"toolInput,omitempty"`
	ToolResult string `json:"toolResult,omitempty"`
}

// ImportResult summarizes one bulk import batch.
type ImportResult struct {
	ConversationsAdded   int    `json:"conversationsAdded"`
	ConversationsSkipped int    `json:"conversationsSkipped"`
	MessagesAdded        int    `json:"messagesAdded"`
	Source               Source `json:"source"`
}

// SearchResult is one hit from the fuzzy search index.
type SearchResult struct {
	Conversation Conversation `json:"conversation"`
	Snippet      string       `json:"snippet"`
	Score        float64      `json:"score"`
}

// VaultStats are aggregate counters over the whole store.
type VaultStats struct {
	TotalConversations int            `json:"totalConversations"`
	TotalMessages      int            `json:"totalMessages"`
	TotalTokens        int            `json:"totalTokens"`
	SourceBreakdown    map[string]int `json:"sourceBreakdown"`
}

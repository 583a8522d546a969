package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatvault/chatvault/internal/format"
	"github.com/chatvault/chatvault/internal/models"
	"github.com/chatvault/chatvault/internal/segment"
)

// toolResultPrefixLen caps the legacy scalar toolResult mirror; the
// structured block keeps the full result.
const toolResultPrefixLen = 500

// maxLineSize bounds a single session log line; assistant turns with large
// tool results can run long.
const maxLineSize = 10 * 1024 * 1024

// SessionLogParser extracts one conversation per Claude Code session log
// (one JSON object per line).
type SessionLogParser struct {
	log *zap.Logger
}

func NewSessionLogParser(log *zap.Logger) *SessionLogParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionLogParser{log: log}
}

type sessionEntry struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	SessionID string `json:"session_id"`
	CWD       string `json:"cwd"`
	GitBranch string `json:"git_branch"`
	Message   struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input"`
	Result    string          `json:"result"`
}

type sessionContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Thinking string `json:"thinking"`
}

// Parse reads a session log and produces exactly one conversation. Lines
// that fail to parse are skipped; if no line parses the whole file fails
// with *NoDataError.
func (p *SessionLogParser) Parse(r io.Reader, filename string) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var entries []sessionEntry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry sessionEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			p.log.Warn("skipping malformed session log line",
				zap.String("file", filename), zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}
	if len(entries) == 0 {
		return nil, &NoDataError{Format: format.SessionLog}
	}

	return p.buildConversation(entries, filename), nil
}

func (p *SessionLogParser) buildConversation(entries []sessionEntry, filename string) *Result {
	now := time.Now()

	sessionID := uuid.NewString()
	var workingDirectory, gitBranch, projectPath string

	// Session metadata lives on a leading system entry when present.
	if first := entries[0]; first.Type == "system" {
		if first.SessionID != "" {
			sessionID = first.SessionID
		}
		workingDirectory = first.CWD
		gitBranch = first.GitBranch
		projectPath = first.CWD
	}

	var messages []models.Message
	var textParts []string
	userCount, assistantCount := 0, 0
	var firstTS, lastTS time.Time

	for _, entry := range entries {
		ts := now
		if t, err := time.Parse(time.RFC3339, entry.Timestamp); err == nil {
			ts = t
		}
		if firstTS.IsZero() || ts.Before(firstTS) {
			firstTS = ts
		}
		if lastTS.IsZero() || ts.After(lastTS) {
			lastTS = ts
		}

		switch entry.Type {
		case "user", "assistant":
			sender := models.SenderUser
			if entry.Type == "assistant" {
				assistantCount++
				sender = models.SenderAssistant
			} else {
				userCount++
			}
			text, blocks := extractSessionContent(entry.Message.Content)
			textParts = append(textParts, text)
			messages = append(messages, models.Message{
				ID:             uuid.NewString(),
				ConversationID: sessionID,
				Sender:         sender,
				Text:           text,
				ContentBlocks:  blocks,
				CreatedAt:      ts,
			})

		case "tool_use":
			input := decodeToolInput(entry.ToolInput)
			messages = append(messages, models.Message{
				ID:             uuid.NewString(),
				ConversationID: sessionID,
				Sender:         models.SenderTool,
				Text:           fmt.Sprintf("[Tool: %s]", entry.ToolName),
				ContentBlocks:  models.Blocks{models.ToolUseBlock{ToolName: entry.ToolName, ToolInput: input}},
				CreatedAt:      ts,
				ToolName:       entry.ToolName,
				ToolInput:      indentJSON(entry.ToolInput),
			})

		case "tool_result":
			scalar := entry.Result
			if len(scalar) > toolResultPrefixLen {
				scalar = scalar[:toolResultPrefixLen]
			}
			messages = append(messages, models.Message{
				ID:             uuid.NewString(),
				ConversationID: sessionID,
				Sender:         models.SenderTool,
				Text:           fmt.Sprintf("[Tool Result: %s]", entry.ToolName),
				ContentBlocks:  models.Blocks{models.ToolResultBlock{ToolName: entry.ToolName, ToolResult: entry.Result}},
				CreatedAt:      ts,
				ToolName:       entry.ToolName,
				ToolResult:     scalar,
			})

		case "system":
			// Only the leading system entry carries metadata; the rest
			// produce no messages.
		}
	}

	fullText := strings.Join(textParts, " ")

	conversation := models.Conversation{
		ID:                    sessionID,
		Source:                models.SourceSessionLog,
		Name:                  deriveSessionName(filename, workingDirectory),
		CreatedAt:             firstTS,
		UpdatedAt:             lastTS,
		ImportedAt:            now,
		MessageCount:          len(messages),
		UserMessageCount:      userCount,
		AssistantMessageCount: assistantCount,
		EstimatedTokens:       EstimateTokens(fullText),
		FullText:              fullText,
		ProjectPath:           projectPath,
		GitBranch:             gitBranch,
		WorkingDirectory:      workingDirectory,
	}

	return &Result{
		Conversations: []models.Conversation{conversation},
		Messages:      messages,
	}
}

// extractSessionContent handles both the string and the structured-array
// content forms of user/assistant entries.
func extractSessionContent(raw json.RawMessage) (string, models.Blocks) {
	if len(raw) == 0 {
		return "", nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, segment.Split(str)
	}

	var items []sessionContentBlock
	if err := json.Unmarshal(raw, &items); err != nil {
		return "", nil
	}

	var textParts []string
	var blocks models.Blocks
	for _, item := range items {
		switch {
		case item.Type == "text" && item.Text != "":
			textParts = append(textParts, item.Text)
			blocks = append(blocks, segment.Split(item.Text)...)
		case item.Type == "thinking" && item.Thinking != "":
			textParts = append(textParts, item.Thinking)
			blocks = append(blocks, models.ThinkingBlock{Text: item.Thinking})
		}
	}
	return strings.Join(textParts, "\n"), blocks
}

func decodeToolInput(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil
	}
	return input
}

func indentJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// deriveSessionName prefers the trailing segment of the working directory,
// falling back to the filename with its extension stripped and separators
// turned into spaces.
func deriveSessionName(filename, workingDirectory string) string {
	if workingDirectory != "" {
		parts := strings.Split(workingDirectory, "/")
		if tail := parts[len(parts)-1]; tail != "" && tail != "~" {
			return tail
		}
	}

	name := strings.TrimSuffix(filename, ".jsonl")
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return name
}

package parser

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/chatvault/chatvault/internal/format"
	"github.com/chatvault/chatvault/internal/models"
	"github.com/chatvault/chatvault/internal/segment"
)

// Conventional locations of the conversations document inside an archived
// export, tried in order before falling back to a recursive filename search.
var archiveJSONPaths = []string{
	"conversations.json",
	"claude/conversations.json",
	"export/conversations.json",
	"data/conversations.json",
}

// WebExportParser extracts conversations from claude.ai data exports, either
// a zipped archive or the bare conversations.json document.
type WebExportParser struct {
	log *zap.Logger
}

func NewWebExportParser(log *zap.Logger) *WebExportParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebExportParser{log: log}
}

// ParseArchive locates the conversations document inside a zip archive and
// parses it. Returns *FormatError listing the archive entries when no
// document is found.
func (p *WebExportParser) ParseArchive(data []byte) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &FormatError{Format: format.ArchivedExport, Reason: fmt.Sprintf("not a zip archive: %v", err)}
	}

	entries := make(map[string]*zip.File, len(zr.File))
	var names []string
	for _, f := range zr.File {
		entries[f.Name] = f
		if !strings.HasPrefix(f.Name, "__MACOSX") {
			names = append(names, f.Name)
		}
	}

	var doc *zip.File
	for _, path := range archiveJSONPaths {
		if f, ok := entries[path]; ok {
			doc = f
			break
		}
	}
	if doc == nil {
		// Fall back to any conversations.json anywhere in the archive.
		for _, f := range zr.File {
			if strings.HasSuffix(f.Name, "conversations.json") && !strings.HasPrefix(f.Name, "__MACOSX") {
				doc = f
				break
			}
		}
	}
	if doc == nil {
		return nil, &FormatError{
			Format: format.ArchivedExport,
			Reason: "conversations.json not found in archive",
			Detail: names,
		}
	}

	rc, err := doc.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", doc.Name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", doc.Name, err)
	}

	return p.ParseJSON(content)
}

// ParseJSON parses a conversations document. The document may be a bare
// array, an object wrapping the array under "conversations" or "chats", or an
// object with exactly one array-valued property. The shapes are tried in that
// order; only when none match does parsing fail.
func (p *WebExportParser) ParseJSON(data []byte) (*Result, error) {
	if !gjson.ValidBytes(data) {
		return nil, &FormatError{Format: format.PlainJSONExport, Reason: "invalid JSON document"}
	}
	root := gjson.ParseBytes(data)

	var raw []gjson.Result
	switch {
	case root.IsArray():
		raw = root.Array()
	case root.Get("conversations").IsArray():
		raw = root.Get("conversations").Array()
	case root.Get("chats").IsArray():
		raw = root.Get("chats").Array()
	case root.IsObject():
		var keys, arrayKeys []string
		root.ForEach(func(k, v gjson.Result) bool {
			keys = append(keys, k.String())
			if v.IsArray() {
				arrayKeys = append(arrayKeys, k.String())
			}
			return true
		})
		if len(arrayKeys) == 1 {
			raw = root.Get(arrayKeys[0]).Array()
			break
		}
		return nil, &FormatError{
			Format: format.PlainJSONExport,
			Reason: "could not find conversations array",
			Detail: keys,
		}
	default:
		return nil, &FormatError{Format: format.PlainJSONExport, Reason: "document is neither an array nor an object"}
	}

	now := time.Now()
	result := &Result{}

	for i, r := range raw {
		conv, msgs, err := p.parseConversation([]byte(r.Raw), now)
		if err != nil {
			p.log.Warn("skipping malformed conversation", zap.Int("index", i), zap.Error(err))
			continue
		}
		result.Conversations = append(result.Conversations, *conv)
		result.Messages = append(result.Messages, msgs...)
	}

	if len(result.Conversations) == 0 {
		return nil, &NoDataError{Format: format.PlainJSONExport}
	}
	return result, nil
}

type webConversation struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	Summary   string `json:"summary"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	// Message list key has changed across export versions.
	ChatMessages []json.RawMessage `json:"chat_messages"`
	Messages     []json.RawMessage `json:"messages"`
}

type webMessage struct {
	UUID        string            `json:"uuid"`
	Sender      string            `json:"sender"`
	Text        string            `json:"text"`
	CreatedAt   string            `json:"created_at"`
	Files       []webFile         `json:"files"`
	Attachments []webAttachment   `json:"attachments"`
	Content     []webContentBlock `json:"content"`
}

type webFile struct {
	FileName         string `json:"file_name"`
	FileType         string `json:"file_type"`
	Content          string `json:"content"`
	ExtractedContent string `json:"extracted_content"`
}

type webAttachment struct {
	FileName         string `json:"file_name"`
	FileType         string `json:"file_type"`
	ExtractedContent string `json:"extracted_content"`
}

type webContentBlock struct {
	Type         string          `json:"type"`
	Text         string          `json:"text"`
	Thinking     string          `json:"thinking"`
	Name         string          `json:"name"`
	Title        string          `json:"title"`
	Content      json.RawMessage `json:"content"`
	ArtifactType string          `json:"artifact_type"`
	Input        map[string]any  `json:"input"`
}

func (p *WebExportParser) parseConversation(data []byte, importedAt time.Time) (*models.Conversation, []models.Message, error) {
	var conv webConversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, nil, err
	}
	if conv.UUID == "" {
		return nil, nil, fmt.Errorf("conversation has no uuid")
	}

	createdAt := parseExportTime(conv.CreatedAt, importedAt)
	updatedAt := parseExportTime(conv.UpdatedAt, createdAt)

	rawMessages := conv.ChatMessages
	if rawMessages == nil {
		rawMessages = conv.Messages
	}

	var messages []models.Message
	textParts := []string{conv.Name}
	userCount, assistantCount := 0, 0

	for i, rawMsg := range rawMessages {
		msg, err := p.parseMessage(rawMsg, conv.UUID, createdAt)
		if err != nil {
			p.log.Warn("skipping malformed message",
				zap.String("conversation", conv.UUID), zap.Int("index", i), zap.Error(err))
			continue
		}
		if msg.Sender == models.SenderUser {
			userCount++
		} else {
			assistantCount++
		}
		textParts = append(textParts, msg.Text)
		messages = append(messages, *msg)
	}

	fullText := strings.Join(textParts, " ")

	name := conv.Name
	if name == "" {
		name = "Untitled Conversation"
	}

	return &models.Conversation{
		ID:                    conv.UUID,
		Source:                models.SourceWebExport,
		Name:                  name,
		Summary:               conv.Summary,
		CreatedAt:             createdAt,
		UpdatedAt:             updatedAt,
		ImportedAt:            importedAt,
		MessageCount:          len(messages),
		UserMessageCount:      userCount,
		AssistantMessageCount: assistantCount,
		EstimatedTokens:       EstimateTokens(fullText),
		FullText:              fullText,
	}, messages, nil
}

func (p *WebExportParser) parseMessage(data []byte, conversationID string, fallbackTime time.Time) (*models.Message, error) {
	var msg webMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	sender := models.SenderAssistant
	if msg.Sender == "human" {
		sender = models.SenderUser
	}

	id := msg.UUID
	if id == "" {
		id = uuid.NewString()
	}

	text, blocks := extractWebContent(&msg)

	return &models.Message{
		ID:             id,
		ConversationID: conversationID,
		Sender:         sender,
		Text:           text,
		ContentBlocks:  blocks,
		CreatedAt:      parseExportTime(msg.CreatedAt, fallbackTime),
	}, nil
}

// extractWebContent merges a message's three content sources in fixed order:
// exported files, user attachments, then the structured content array plus
// the legacy flat text field. Each contributes to both the flattened text and
// the block sequence.
func extractWebContent(msg *webMessage) (string, models.Blocks) {
	var blocks models.Blocks
	var textParts []string

	for _, file := range msg.Files {
		content := file.Content
		if content == "" {
			content = file.ExtractedContent
		}
		name := file.FileName
		if name == "" {
			name = "Artifact"
		}

		if content != "" {
			if isCodeFilename(name) {
				blocks = append(blocks, models.CodeBlock{Language: fileExtension(name), Text: content})
			} else {
				fileType := file.FileType
				if fileType == "" {
					fileType = "text/plain"
				}
				blocks = append(blocks, models.ArtifactBlock{ArtifactTitle: name, ArtifactType: fileType, Text: content})
			}
			textParts = append(textParts, content)
		} else if file.FileName != "" && file.FileName != "paste.txt" {
			// Exported but content omitted: keep a placeholder so the
			// artifact shows as unavailable instead of vanishing.
			blocks = append(blocks, models.ArtifactBlock{ArtifactTitle: name})
		}
	}

	for _, att := range msg.Attachments {
		if att.ExtractedContent == "" {
			continue
		}
		isMarkdown := strings.HasSuffix(att.FileName, ".md") || strings.Contains(att.FileType, "markdown")
		isCode := strings.Contains(att.FileType, "text/") || isCodeFilename(att.FileName)

		if isCode && !isMarkdown {
			blocks = append(blocks, models.CodeBlock{Language: fileExtension(att.FileName), Text: att.ExtractedContent})
		} else {
			name := att.FileName
			if name == "" {
				name = "Attachment"
			}
			fileType := att.FileType
			if fileType == "" {
				fileType = "text/markdown"
			}
			blocks = append(blocks, models.ArtifactBlock{ArtifactTitle: name, ArtifactType: fileType, Text: att.ExtractedContent})
		}
		textParts = append(textParts, att.ExtractedContent)
	}

	if strings.TrimSpace(msg.Text) != "" {
		blocks = append(blocks, segment.Split(msg.Text)...)
		textParts = append(textParts, msg.Text)
	}

	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				blocks = append(blocks, segment.Split(block.Text)...)
				textParts = append(textParts, block.Text)
			}
		case "thinking":
			if block.Thinking != "" {
				blocks = append(blocks, models.ThinkingBlock{Text: block.Thinking})
				textParts = append(textParts, block.Thinking)
			}
		case "tool_use":
			name := block.Name
			if name == "" {
				name = "Tool"
			}
			blocks = append(blocks, models.ToolUseBlock{ToolName: name, ToolInput: block.Input})
		case "tool_result":
			if result := toolResultText(block.Content); result != "" {
				blocks = append(blocks, models.ToolResultBlock{ToolResult: result})
				textParts = append(textParts, result)
			}
		case "artifact":
			content := block.Text
			var str string
			if json.Unmarshal(block.Content, &str) == nil && str != "" {
				content = str
			}
			if content != "" {
				title := block.Title
				if title == "" {
					title = block.Name
				}
				if title == "" {
					title = "Artifact"
				}
				artifactType := block.ArtifactType
				if artifactType == "" {
					artifactType = "text/plain"
				}
				blocks = append(blocks, models.ArtifactBlock{ArtifactTitle: title, ArtifactType: artifactType, Text: content})
				textParts = append(textParts, content)
			}
		}
	}

	return strings.Join(textParts, "\n"), blocks
}

// toolResultText flattens a tool_result content value, which may be a plain
// string or an array of text sub-blocks.
func toolResultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	var texts []string
	for _, part := range parts {
		if part.Type == "text" && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func parseExportTime(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return fallback
}

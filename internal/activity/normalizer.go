// Package activity converts captured browser events into the Activity shape
// shared with stored history. Normalization is a pure mapping; persistence is
// the caller's concern.
package activity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatvault/chatvault/internal/models"
)

// CapturedResponse describes an intercepted network response from the chat
// product. Tokens holds header-reported usage when present; Body is the raw
// streaming response, consulted for usage when the headers had none.
type CapturedResponse struct {
	URL               string             `json:"url"`
	Method            string             `json:"method"`
	Status            int                `json:"status"`
	ConversationID    string             `json:"conversationId"`
	ConversationTitle string             `json:"conversationTitle"`
	Model             string             `json:"model"`
	Timestamp         time.Time          `json:"timestamp"`
	Tokens            *models.TokenUsage `json:"tokens"`
	Body              []byte             `json:"body"`
	MessagePreview    string             `json:"messagePreview"`
	UserMessage       string             `json:"userMessage"`
}

// DOMObservation describes something spotted in the page: an artifact, a
// rendered code block, or a tool invocation sighting.
type DOMObservation struct {
	Kind              string    `json:"kind"` // artifact | code_block | tool
	ConversationID    string    `json:"conversationId"`
	ConversationTitle string    `json:"conversationTitle"`
	Timestamp         time.Time `json:"timestamp"`

	ArtifactTitle string `json:"artifactTitle"`
	ArtifactType  string `json:"artifactType"`
	CodeLanguage  string `json:"codeLanguage"`
	CodeContent   string `json:"codeContent"`
	ToolName      string `json:"toolName"`
	ToolResult    bool   `json:"toolResult"` // tool sighting is a result, not a use
}

// NormalizeResponse maps a captured network response to at most one
// activity. Only completion calls represent messages; anything else yields
// none. Token usage comes from the headers when present, otherwise from the
// streaming body; nil when neither yields a figure.
func NormalizeResponse(resp CapturedResponse) (*models.Activity, bool) {
	if !strings.Contains(resp.URL, "/completion") {
		return nil, false
	}

	tokens := resp.Tokens
	model := resp.Model
	preview := resp.MessagePreview
	fullContent := ""

	if stream := parseStream(resp.Body); stream != nil {
		if tokens == nil {
			tokens = stream.Tokens
		}
		if model == "" {
			model = stream.Model
		}
		fullContent = stream.Content
		if preview == "" {
			preview = previewOf(stream.Content)
		}
	}

	return &models.Activity{
		ID:                uuid.NewString(),
		Type:              models.ActivityMessageReceived,
		Source:            models.ActivitySourceExtension,
		ConversationID:    resp.ConversationID,
		ConversationTitle: resp.ConversationTitle,
		Model:             model,
		Timestamp:         resp.Timestamp,
		Tokens:            tokens,
		Metadata: models.ActivityMetadata{
			MessageRole:    "assistant",
			MessagePreview: preview,
			FullContent:    fullContent,
			UserMessage:    resp.UserMessage,
		},
	}, true
}

// NormalizeDOM maps a DOM observation to at most one activity. The mapping
// from observation kind to activity type is fixed; unrecognized kinds yield
// none.
func NormalizeDOM(obs DOMObservation) (*models.Activity, bool) {
	var activityType models.ActivityType
	var metadata models.ActivityMetadata

	switch obs.Kind {
	case "artifact":
		activityType = models.ActivityArtifactCreated
		metadata.ArtifactTitle = obs.ArtifactTitle
		metadata.ArtifactType = obs.ArtifactType
	case "code_block":
		activityType = models.ActivityCodeBlock
		metadata.CodeLanguage = obs.CodeLanguage
		metadata.CodeContent = obs.CodeContent
	case "tool":
		activityType = models.ActivityToolUse
		if obs.ToolResult {
			activityType = models.ActivityToolResult
		}
		metadata.ToolName = obs.ToolName
	default:
		return nil, false
	}

	return &models.Activity{
		ID:                uuid.NewString(),
		Type:              activityType,
		Source:            models.ActivitySourceExtension,
		ConversationID:    obs.ConversationID,
		ConversationTitle: obs.ConversationTitle,
		Timestamp:         obs.Timestamp,
		Metadata:          metadata,
	}, true
}

func previewOf(content string) string {
	const maxPreview = 200
	if len(content) <= maxPreview {
		return content
	}
	return content[:maxPreview]
}

package activity

import (
	"strings"
	"testing"
	"time"

	"github.com/chatvault/chatvault/internal/models"
)

func TestNormalizeResponseNonCompletion(t *testing.T) {
	_, ok := NormalizeResponse(CapturedResponse{URL: "https://claude.ai/api/organizations"})
	if ok {
		t.Error("non-completion URL must not produce an activity")
	}
}

func TestNormalizeResponseHeaderTokensWin(t *testing.T) {
	resp := CapturedResponse{
		URL:            "https://claude.ai/api/append_message/completion",
		ConversationID: "conv-1",
		Model:          "claude-sonnet",
		Timestamp:      time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC),
		Tokens:         &models.TokenUsage{InputTokens: 100, OutputTokens: 50},
		Body: []byte(`data: {"type": "message_start", "message": {"usage": {"input_tokens": 1}}}
data: {"type": "message_delta", "usage": {"output_tokens": 2}}
`),
	}

	act, ok := NormalizeResponse(resp)
	if !ok {
		t.Fatal("completion response must produce an activity")
	}
	if act.Type != models.ActivityMessageReceived {
		t.Errorf("Type = %q, want message_received", act.Type)
	}
	if act.Tokens.InputTokens != 100 || act.Tokens.OutputTokens != 50 {
		t.Errorf("header tokens must win over stream tokens, got %+v", act.Tokens)
	}
}

func TestNormalizeResponseStreamFallback(t *testing.T) {
	body := `data: {"type": "message_start", "message": {"model": "claude-opus", "usage": {"input_tokens": 12}}}
data: {"type": "content_block_delta", "delta": {"text": "Hello"}}
data: {"type": "content_block_delta", "delta": {"text": " world"}}
data: {"type": "message_delta", "usage": {"output_tokens": 7}}
`
	resp := CapturedResponse{
		URL:  "https://claude.ai/api/completion",
		Body: []byte(body),
	}

	act, ok := NormalizeResponse(resp)
	if !ok {
		t.Fatal("expected an activity")
	}
	if act.Tokens == nil || act.Tokens.InputTokens != 12 || act.Tokens.OutputTokens != 7 {
		t.Errorf("stream tokens = %+v, want in 12 / out 7", act.Tokens)
	}
	if act.Model != "claude-opus" {
		t.Errorf("Model = %q, want model from stream", act.Model)
	}
	if act.Metadata.FullContent != "Hello world" {
		t.Errorf("FullContent = %q, want accumulated deltas", act.Metadata.FullContent)
	}
	if act.Metadata.MessagePreview != "Hello world" {
		t.Errorf("MessagePreview = %q", act.Metadata.MessagePreview)
	}
}

func TestNormalizeResponseStreamCacheTokens(t *testing.T) {
	body := `data: {"type": "message_start", "message": {"usage": {"input_tokens": 3, "cache_creation_input_tokens": 9, "cache_read_input_tokens": 4}}}
data: {"type": "message_delta", "usage": {"output_tokens": 2}}
`
	resp := CapturedResponse{
		URL:  "https://claude.ai/api/completion",
		Body: []byte(body),
	}

	act, ok := NormalizeResponse(resp)
	if !ok {
		t.Fatal("expected an activity")
	}
	if act.Tokens == nil {
		t.Fatal("Tokens = nil, want cache figures from the stream")
	}
	if act.Tokens.CacheCreationTokens != 9 || act.Tokens.CacheReadTokens != 4 {
		t.Errorf("cache tokens = %d/%d, want 9/4", act.Tokens.CacheCreationTokens, act.Tokens.CacheReadTokens)
	}
	if act.Tokens.InputTokens != 3 || act.Tokens.OutputTokens != 2 {
		t.Errorf("tokens = %d/%d, want 3/2", act.Tokens.InputTokens, act.Tokens.OutputTokens)
	}
}

func TestNormalizeResponseNoUsageAnywhere(t *testing.T) {
	resp := CapturedResponse{
		URL:  "https://claude.ai/api/completion",
		Body: []byte(`data: {"type": "content_block_delta", "delta": {"text": "hi"}}` + "\n"),
	}

	act, ok := NormalizeResponse(resp)
	if !ok {
		t.Fatal("expected an activity")
	}
	if act.Tokens != nil {
		t.Errorf("Tokens = %+v, want nil when nothing reported usage", act.Tokens)
	}
}

func TestNormalizeResponseLegacyCompletion(t *testing.T) {
	resp := CapturedResponse{
		URL:  "https://claude.ai/api/completion",
		Body: []byte(`data: {"completion": "full legacy answer", "model": "claude-2"}` + "\n"),
	}

	act, ok := NormalizeResponse(resp)
	if !ok {
		t.Fatal("expected an activity")
	}
	if act.Metadata.FullContent != "full legacy answer" {
		t.Errorf("FullContent = %q", act.Metadata.FullContent)
	}
	if act.Model != "claude-2" {
		t.Errorf("Model = %q", act.Model)
	}
}

func TestPreviewTruncation(t *testing.T) {
	long := strings.Repeat("a", 500)
	resp := CapturedResponse{
		URL:  "https://claude.ai/api/completion",
		Body: []byte(`data: {"type": "content_block_delta", "delta": {"text": "` + long + `"}}` + "\n"),
	}

	act, ok := NormalizeResponse(resp)
	if !ok {
		t.Fatal("expected an activity")
	}
	if len(act.Metadata.MessagePreview) != 200 {
		t.Errorf("preview length = %d, want 200", len(act.Metadata.MessagePreview))
	}
	if len(act.Metadata.FullContent) != 500 {
		t.Errorf("full content length = %d, want untruncated", len(act.Metadata.FullContent))
	}
}

func TestNormalizeDOM(t *testing.T) {
	tests := []struct {
		name     string
		obs      DOMObservation
		wantType models.ActivityType
		wantOK   bool
	}{
		{
			name:     "artifact",
			obs:      DOMObservation{Kind: "artifact", ArtifactTitle: "Chart", ArtifactType: "image/svg+xml"},
			wantType: models.ActivityArtifactCreated,
			wantOK:   true,
		},
		{
			name:     "code block",
			obs:      DOMObservation{Kind: "code_block", CodeLanguage: "go"},
			wantType: models.ActivityCodeBlock,
			wantOK:   true,
		},
		{
			name:     "tool use",
			obs:      DOMObservation{Kind: "tool", ToolName: "web_search"},
			wantType: models.ActivityToolUse,
			wantOK:   true,
		},
		{
			name:     "tool result",
			obs:      DOMObservation{Kind: "tool", ToolName: "web_search", ToolResult: true},
			wantType: models.ActivityToolResult,
			wantOK:   true,
		},
		{
			name:   "unknown kind",
			obs:    DOMObservation{Kind: "banner"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act, ok := NormalizeDOM(tt.obs)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if act.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", act.Type, tt.wantType)
			}
			if act.Source != models.ActivitySourceExtension {
				t.Errorf("Source = %q, want extension", act.Source)
			}
			if act.ID == "" {
				t.Error("activity must get an id")
			}
		})
	}
}

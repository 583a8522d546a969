package activity

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"

	"github.com/chatvault/chatvault/internal/models"
)

// streamResult is what could be recovered from a streaming response body.
type streamResult struct {
	Tokens  *models.TokenUsage
	Model   string
	Content string
}

type streamUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheCreationTokens int `json:"cache_creation_input_tokens"`
	CacheReadTokens     int `json:"cache_read_input_tokens"`
}

type streamEvent struct {
	Type       string `json:"type"`
	Completion string `json:"completion"`
	Model      string `json:"model"`
	Delta      struct {
		Text string `json:"text"`
	} `json:"delta"`
	Usage   *streamUsage `json:"usage"`
	Message struct {
		Model string       `json:"model"`
		Usage *streamUsage `json:"usage"`
	} `json:"message"`
}

// parseStream walks a server-sent-events response body, accumulating content
// deltas and partial usage figures until a final count is available.
// message_start carries input tokens, message_delta carries output tokens,
// and some responses report usage at the top level; the legacy format puts
// the whole completion in one event. Returns nil for an empty body.
func parseStream(body []byte) *streamResult {
	if len(body) == 0 {
		return nil
	}

	result := &streamResult{}
	var content strings.Builder
	usage := streamUsage{}
	sawUsage := false

	// Later events carry the more complete figures, so each field keeps the
	// last positive value seen.
	merge := func(u *streamUsage) {
		if u == nil {
			return
		}
		if u.InputTokens > 0 {
			usage.InputTokens = u.InputTokens
			sawUsage = true
		}
		if u.OutputTokens > 0 {
			usage.OutputTokens = u.OutputTokens
			sawUsage = true
		}
		if u.CacheCreationTokens > 0 {
			usage.CacheCreationTokens = u.CacheCreationTokens
			sawUsage = true
		}
		if u.CacheReadTokens > 0 {
			usage.CacheReadTokens = u.CacheReadTokens
			sawUsage = true
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(line[len("data: "):]), &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_delta":
			content.WriteString(event.Delta.Text)
		case "message_start":
			if event.Message.Model != "" {
				result.Model = event.Message.Model
			}
			merge(event.Message.Usage)
		case "message_delta":
			merge(event.Usage)
		}

		if event.Completion != "" {
			content.Reset()
			content.WriteString(event.Completion)
		}
		if event.Type != "message_delta" {
			merge(event.Usage)
		}
		if event.Model != "" && result.Model == "" {
			result.Model = event.Model
		}
	}

	result.Content = content.String()
	if sawUsage {
		result.Tokens = &models.TokenUsage{
			InputTokens:         usage.InputTokens,
			OutputTokens:        usage.OutputTokens,
			CacheCreationTokens: usage.CacheCreationTokens,
			CacheReadTokens:     usage.CacheReadTokens,
		}
	}
	return result
}

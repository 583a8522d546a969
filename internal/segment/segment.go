// Package segment splits free-form message text into typed content blocks.
package segment

import (
	"regexp"
	"strings"

	"github.com/chatvault/chatvault/internal/models"
)

// fenceRe matches a complete fenced code block with an optional language tag
// on the opening fence. An opening fence with no closing fence does not match
// and the remainder is treated as plain text.
var fenceRe = regexp.MustCompile("(?s)```(\\w*)\\n?(.*?)```")

// Placeholder strings claude.ai exports emit for content that could not be
// included.
var unsupportedRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)This block is not supported on your current device yet\.?`),
	regexp.MustCompile(`(?i)\[(?:File|Image|Attachment):?\s*[^\]]*\]`),
}

// Split segments text on fenced-code delimiters into an ordered block
// sequence. Non-code spans become text blocks, or unsupported blocks when
// they consist purely of placeholder text. Empty spans are never emitted.
func Split(text string) models.Blocks {
	var blocks models.Blocks
	last := 0

	for _, m := range fenceRe.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			if b := textOrUnsupported(text[last:m[0]]); b != nil {
				blocks = append(blocks, b)
			}
		}

		language := text[m[2]:m[3]]
		code := text[m[4]:m[5]]
		blocks = append(blocks, models.CodeBlock{Language: language, Text: code})

		last = m[1]
	}

	if last < len(text) {
		if b := textOrUnsupported(text[last:]); b != nil {
			blocks = append(blocks, b)
		}
	}

	return blocks
}

// textOrUnsupported classifies a non-code span. A span that is purely
// placeholder text becomes an unsupported block; placeholder substrings are
// stripped out of otherwise-real text; nothing is emitted for empty spans.
func textOrUnsupported(span string) models.ContentBlock {
	trimmed := strings.TrimSpace(span)
	if trimmed == "" {
		return nil
	}

	stripped := trimmed
	for _, re := range unsupportedRes {
		stripped = re.ReplaceAllString(stripped, "")
	}
	stripped = strings.TrimSpace(stripped)

	if stripped == "" {
		return models.UnsupportedBlock{Text: trimmed}
	}
	return models.TextBlock{Text: stripped}
}

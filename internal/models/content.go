package models

import (
	"encoding/json"
	"fmt"
)

// BlockType discriminates the content block variants.
type BlockType string

const (
	BlockText        BlockType = "text"
	BlockCode        BlockType = "code"
	BlockThinking    BlockType = "thinking"
	BlockToolUse     BlockType = "tool_use"
	BlockToolResult  BlockType = "tool_result"
	BlockArtifact    BlockType = "artifact"
	BlockUnsupported BlockType = "unsupported"
)

// ContentBlock is one typed segment of message content. The set of variants
// is closed; consumers switch exhaustively on the concrete type.
type ContentBlock interface {
	BlockType() BlockType
	// PlainText is the block's contribution to a message's flattened text.
	PlainText() string
}

type TextBlock struct {
	Text string
}

func (TextBlock) BlockType() BlockType { return BlockText }
func (b TextBlock) PlainText() string  { return b.Text }

type CodeBlock struct {
	Language string
	Text     string
}

func (CodeBlock) BlockType() BlockType { return BlockCode }
func (b CodeBlock) PlainText() string  { return b.Text }

type ThinkingBlock struct {
	Text string
}

func (ThinkingBlock) BlockType() BlockType { return BlockThinking }
func (b ThinkingBlock) PlainText() string  { return b.Text }

type ToolUseBlock struct {
	ToolName  string
	ToolInput map[string]any
}

func (ToolUseBlock) BlockType() BlockType { return BlockToolUse }
func (b ToolUseBlock) PlainText() string  { return "" }

type ToolResultBlock struct {
	ToolName   string
	ToolResult string
}

func (ToolResultBlock) BlockType() BlockType { return BlockToolResult }
func (b ToolResultBlock) PlainText() string  { return b.ToolResult }

// ArtifactBlock carries an exported file or artifact. An empty Text means the
// content was not included in the export and the artifact is unavailable.
type ArtifactBlock struct {
	ArtifactTitle string
	ArtifactType  string
	Text          string
}

func (ArtifactBlock) BlockType() BlockType { return BlockArtifact }
func (b ArtifactBlock) PlainText() string  { return b.Text }

// Unavailable reports whether the artifact content was missing from the export.
func (b ArtifactBlock) Unavailable() bool { return b.Text == "" }

// UnsupportedBlock holds a placeholder the source emits for content it could
// not export.
type UnsupportedBlock struct {
	Text string
}

func (UnsupportedBlock) BlockType() BlockType { return BlockUnsupported }
func (b UnsupportedBlock) PlainText() string  { return "" }

// Blocks is an ordered sequence of content blocks with the original wire
// shape ({"type": ..., ...}) on the JSON boundary.
type Blocks []ContentBlock

// blockEnvelope is the flat wire representation shared by all variants.
type blockEnvelope struct {
	Type          BlockType      `json:"type"`
	Text          *string        `json:"text,omitempty"`
	Language      string         `json:"language,omitempty"`
	ToolName      string         `json:"toolName,omitempty"`
	ToolInput     map[string]any `json:"toolInput,omitempty"`
	ToolResult    string         `json:"toolResult,omitempty"`
	ArtifactTitle string         `json:"artifactTitle,omitempty"`
	ArtifactType  string         `json:"artifactType,omitempty"`
}

func (bs Blocks) MarshalJSON() ([]byte, error) {
	envelopes := make([]blockEnvelope, 0, len(bs))
	for _, b := range bs {
		env := blockEnvelope{Type: b.BlockType()}
		switch blk := b.(type) {
		case TextBlock:
			env.Text = &blk.Text
		case CodeBlock:
			env.Text = &blk.Text
			env.Language = blk.Language
		case ThinkingBlock:
			env.Text = &blk.Text
		case ToolUseBlock:
			env.ToolName = blk.ToolName
			env.ToolInput = blk.ToolInput
		case ToolResultBlock:
			env.ToolName = blk.ToolName
			env.ToolResult = blk.ToolResult
		case ArtifactBlock:
			// Text stays present even when empty: empty means unavailable.
			env.Text = &blk.Text
			env.ArtifactTitle = blk.ArtifactTitle
			env.ArtifactType = blk.ArtifactType
		case UnsupportedBlock:
			env.Text = &blk.Text
		default:
			return nil, fmt.Errorf("unknown content block type %T", b)
		}
		envelopes = append(envelopes, env)
	}
	return json.Marshal(envelopes)
}

func (bs *Blocks) UnmarshalJSON(data []byte) error {
	var envelopes []blockEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return err
	}

	blocks := make(Blocks, 0, len(envelopes))
	for _, env := range envelopes {
		text := ""
		if env.Text != nil {
			text = *env.Text
		}
		switch env.Type {
		case BlockText:
			blocks = append(blocks, TextBlock{Text: text})
		case BlockCode:
			blocks = append(blocks, CodeBlock{Language: env.Language, Text: text})
		case BlockThinking:
			blocks = append(blocks, ThinkingBlock{Text: text})
		case BlockToolUse:
			blocks = append(blocks, ToolUseBlock{ToolName: env.ToolName, ToolInput: env.ToolInput})
		case BlockToolResult:
			blocks = append(blocks, ToolResultBlock{ToolName: env.ToolName, ToolResult: env.ToolResult})
		case BlockArtifact:
			blocks = append(blocks, ArtifactBlock{ArtifactTitle: env.ArtifactTitle, ArtifactType: env.ArtifactType, Text: text})
		case BlockUnsupported:
			blocks = append(blocks, UnsupportedBlock{Text: text})
		default:
			return fmt.Errorf("unknown content block type %q", env.Type)
		}
	}
	*bs = blocks
	return nil
}

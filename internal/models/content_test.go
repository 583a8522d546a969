package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestBlocksJSONRoundTrip(t *testing.T) {
	original := Blocks{
		TextBlock{Text: "hello"},
		CodeBlock{Language: "go", Text: "x := 1"},
		ToolUseBlock{ToolName: "Read", ToolInput: map[string]any{"path": "main.go"}},
		ToolResultBlock{ToolName: "Read", ToolResult: "package main"},
		ArtifactBlock{ArtifactTitle: "diagram", ArtifactType: "image/svg+xml", Text: "<svg/>"},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded Blocks
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(decoded) != len(original) {
		t.Fatalf("got %d blocks, want %d", len(decoded), len(original))
	}
	for i := range original {
		if decoded[i].BlockType() != original[i].BlockType() {
			t.Errorf("block %d type = %q, want %q", i, decoded[i].BlockType(), original[i].BlockType())
		}
	}
	if code := decoded[1].(CodeBlock); code.Language != "go" || code.Text != "x := 1" {
		t.Errorf("code block = %+v", code)
	}
	if use := decoded[2].(ToolUseBlock); use.ToolInput["path"] != "main.go" {
		t.Errorf("tool input = %+v", use.ToolInput)
	}
}

func TestUnavailableArtifactKeepsEmptyText(t *testing.T) {
	data, err := json.Marshal(Blocks{ArtifactBlock{ArtifactTitle: "lost"}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"text":""`) {
		t.Errorf("empty artifact text must stay on the wire, got %s", data)
	}

	var decoded Blocks
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	artifact := decoded[0].(ArtifactBlock)
	if !artifact.Unavailable() {
		t.Error("round-tripped empty artifact must stay unavailable")
	}
}

func TestBlocksUnknownTypeRejected(t *testing.T) {
	var decoded Blocks
	err := json.Unmarshal([]byte(`[{"type": "hologram"}]`), &decoded)
	if err == nil {
		t.Error("unknown block type must fail to decode")
	}
}

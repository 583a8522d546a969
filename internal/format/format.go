// Package format classifies import files by name and declared MIME type.
package format

import (
	"strings"
)

// Format is a recognized import file format.
type Format string

const (
	// ArchivedExport is a zipped claude.ai data export.
	ArchivedExport Format = "archived-export"
	// PlainJSONExport is a bare conversations.json export.
	PlainJSONExport Format = "plain-json-export"
	// SessionLog is a line-delimited Claude Code session log.
	SessionLog Format = "line-delimited-log"
	// Unknown is any file that matches no known format. It is not an error
	// by itself; callers decide how to surface it.
	Unknown Format = "unknown"
)

// Detect classifies a file from its name and declared MIME type alone. The
// archive check wins over the line-delimited check, which wins over plain
// JSON.
func Detect(filename, mimeType string) Format {
	name := strings.ToLower(filename)

	if mimeType == "application/zip" || strings.HasSuffix(name, ".zip") {
		return ArchivedExport
	}
	if strings.HasSuffix(name, ".jsonl") {
		return SessionLog
	}
	if mimeType == "application/json" || strings.HasSuffix(name, ".json") {
		return PlainJSONExport
	}
	return Unknown
}

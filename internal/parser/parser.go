// Package parser converts heterogeneous export formats into the unified
// conversation model. Per-record failures are skipped and logged; per-file
// failures surface as *FormatError or *NoDataError.
package parser

import (
	"regexp"

	"github.com/chatvault/chatvault/internal/models"
)

// Result holds the normalized output of parsing one file.
type Result struct {
	Conversations []models.Conversation
	Messages      []models.Message
}

// codeFileRe matches filenames whose extension marks an exported file or
// attachment as source code rather than a generic artifact.
var codeFileRe = regexp.MustCompile(`(?i)\.(js|ts|tsx|jsx|py|rb|go|rs|java|cpp|c|h|css|html|json|yaml|yml|xml|sql|sh|bash)$`)

func isCodeFilename(name string) bool {
	return codeFileRe.MatchString(name)
}

func fileExtension(name string) string {
	m := codeFileRe.FindStringSubmatch(name)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

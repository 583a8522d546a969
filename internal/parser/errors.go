package parser

import (
	"fmt"
	"strings"

	"github.com/chatvault/chatvault/internal/format"
)

// FormatError means the input did not match any known shape for its detected
// format. Detail carries diagnostic context such as archive entries or the
// object keys that were found.
type FormatError struct {
	Format format.Format
	Reason string
	Detail []string
}

func (e *FormatError) Error() string {
	if len(e.Detail) > 0 {
		return fmt.Sprintf("%s: %s (found: %s)", e.Format, e.Reason, strings.Join(e.Detail, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Format, e.Reason)
}

// NoDataError means the format matched but zero usable records survived
// per-record recovery.
type NoDataError struct {
	Format format.Format
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%s: no usable conversations found", e.Format)
}

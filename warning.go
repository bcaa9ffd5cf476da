package redline

import (
	"fmt"
	"strings"
)

// Warning describes a non-fatal condition encountered while applying a
// revision pass: an operation whose target was not found, or one that was
// skipped or failed for a reason the caller may want to surface.
type Warning struct {
	// Operation is the index of the operation in the list it came from, or -1
	// when the warning is not tied to one operation.
	Operation int
	Message   string
}

func (w Warning) String() string {
	if w.Operation < 0 {
		return w.Message
	}
	return fmt.Sprintf("operation %d: %s", w.Operation, w.Message)
}

// FormatWarnings joins warnings into a single human-readable string.
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	parts := make([]string, len(warnings))
	for i, w := range warnings {
		parts[i] = w.String()
	}
	return strings.Join(parts, "; ")
}

package ops

import (
	"fmt"
	"strings"
)

// Status is the terminal state of one operation.
type Status int

const (
	// StatusApplied means the operation mutated the document.
	StatusApplied Status = iota
	// StatusSkipped means the operation was an expected no-op: its target
	// was already gone, its body was empty, or it was marked expect_missing.
	StatusSkipped
	// StatusFailed means the operation could not be applied and the document
	// was left untouched by it.
	StatusFailed
)

// String returns a short label for the status.
func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result records how one operation concluded.
type Result struct {
	Index   int    // position in the operation list
	Action  Action
	Target  string
	Status  Status
	Reason  string // diagnostic for skipped and failed outcomes
	Applied int    // number of occurrences mutated (>1 only for whole-document)
	Err     error  // taxonomy error for failed outcomes, nil otherwise
}

// Manifest is the per-run record of every operation's outcome, kept separate
// from the tracked-changes markup so a reviewer can see which of the N
// requested edits actually landed.
type Manifest struct {
	Results []Result
}

// Applied returns the number of operations that mutated the document.
func (m *Manifest) Applied() int { return m.count(StatusApplied) }

// Skipped returns the number of expected no-ops.
func (m *Manifest) Skipped() int { return m.count(StatusSkipped) }

// Failed returns the number of operations that could not be applied.
func (m *Manifest) Failed() int { return m.count(StatusFailed) }

func (m *Manifest) count(s Status) int {
	n := 0
	for _, r := range m.Results {
		if r.Status == s {
			n++
		}
	}
	return n
}

// String renders the manifest as one line per operation.
func (m *Manifest) String() string {
	var sb strings.Builder
	for _, r := range m.Results {
		fmt.Fprintf(&sb, "#%d %s %q: %s", r.Index, r.Action, r.Target, r.Status)
		if r.Applied > 1 {
			fmt.Fprintf(&sb, " (%d occurrences)", r.Applied)
		}
		if r.Reason != "" {
			fmt.Fprintf(&sb, " (%s)", r.Reason)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Package revise turns resolved match spans into tracked changes.
//
// Nothing here deletes or rewrites text in place. A replace isolates the
// matched text into its own runs, marks them tracked-deleted, and inserts new
// runs carrying the replacement text marked tracked-inserted, so that a
// reviewer can accept or reject the change in any compliant word processor.
// Every entry point validates its span against the current state of the block
// before the first mutation; an invalid span returns an error and leaves the
// document exactly as it was.
package revise

import (
	"errors"
	"fmt"
	"time"

	"github.com/tsawler/redline/document"
	"github.com/tsawler/redline/match"
)

// ErrBadSpan reports a span that no longer describes a valid live region of
// its block, typically because the block was mutated after the span was
// resolved.
var ErrBadSpan = errors.New("stale or invalid span")

// Replace marks the spanned text deleted and inserts replacement text after
// it, both as tracked changes attributed to author at date. The inserted runs
// reuse the formatting of the first replaced run so the new text blends into
// its surroundings. Returns the deletion and insertion tags.
func Replace(doc *document.Document, span match.Span, replacement, author string, date time.Time) (del, ins *document.RevisionTag, err error) {
	b, err := validate(doc, span)
	if err != nil {
		return nil, nil, err
	}

	first, last := isolate(b, span)
	del = doc.NewRevision(document.Deleted, author, date)
	for i := first; i <= last; i++ {
		if b.Runs[i].Live() {
			b.Runs[i].Rev = del
		}
	}

	ins = doc.NewRevision(document.Inserted, author, date)
	b.InsertRuns(last+1, document.Run{
		Text:  replacement,
		Props: b.Runs[first].Props,
		Rev:   ins,
		Link:  b.Runs[first].Link,
	})
	return del, ins, nil
}

// Delete marks the spanned text deleted as a tracked change and returns the
// deletion tag.
func Delete(doc *document.Document, span match.Span, author string, date time.Time) (*document.RevisionTag, error) {
	b, err := validate(doc, span)
	if err != nil {
		return nil, err
	}

	first, last := isolate(b, span)
	del := doc.NewRevision(document.Deleted, author, date)
	for i := first; i <= last; i++ {
		if b.Runs[i].Live() {
			b.Runs[i].Rev = del
		}
	}
	b.MarkDirty()
	return del, nil
}

// validate checks that a span still addresses live, in-range run offsets.
// It returns the block on success and touches nothing on failure.
func validate(doc *document.Document, span match.Span) (*document.Block, error) {
	b := doc.Block(span.BlockID)
	if b == nil {
		return nil, fmt.Errorf("%w: no block %d", ErrBadSpan, span.BlockID)
	}
	if span.StartRun < 0 || span.EndRun >= len(b.Runs) || span.StartRun > span.EndRun {
		return nil, fmt.Errorf("%w: run range [%d, %d] outside block %d", ErrBadSpan, span.StartRun, span.EndRun, span.BlockID)
	}
	if span.StartOff < 0 || span.StartOff >= len(b.Runs[span.StartRun].Text) {
		return nil, fmt.Errorf("%w: start offset %d", ErrBadSpan, span.StartOff)
	}
	if span.EndOff <= 0 || span.EndOff > len(b.Runs[span.EndRun].Text) {
		return nil, fmt.Errorf("%w: end offset %d", ErrBadSpan, span.EndOff)
	}
	if span.StartRun == span.EndRun && span.StartOff >= span.EndOff {
		return nil, fmt.Errorf("%w: empty span", ErrBadSpan)
	}
	// Interior runs may be tracked-deleted remnants of earlier edits; only
	// the boundary runs must be live.
	if !b.Runs[span.StartRun].Live() || !b.Runs[span.EndRun].Live() {
		return nil, fmt.Errorf("%w: boundary run is deleted", ErrBadSpan)
	}
	return b, nil
}

// isolate splits runs at the span boundaries so that the matched text
// occupies whole runs, and returns the index range [first, last] of those
// runs. The end boundary is split before the start boundary so the start
// indices stay valid while splitting.
func isolate(b *document.Block, span match.Span) (first, last int) {
	afterEnd := b.SplitAt(span.EndRun, span.EndOff)
	before := len(b.Runs)
	first = b.SplitAt(span.StartRun, span.StartOff)
	grew := len(b.Runs) - before
	last = afterEnd - 1 + grew
	return first, last
}

package revise

import (
	"time"

	"github.com/tsawler/redline/document"
	"github.com/tsawler/redline/match"
)

// Attach binds a comment thread to a revision. For replace operations the
// anchor must be the deletion tag, not the insertion tag: review tools show a
// suggestion's rationale on the old text, and that placement is part of the
// output contract. An empty body attaches nothing and returns nil; comment
// text is optional metadata, not a required part of a change.
func Attach(doc *document.Document, anchor *document.RevisionTag, body, author string, date time.Time) *document.Thread {
	if anchor == nil || body == "" {
		return nil
	}
	return doc.AttachThread(anchor.ID, body, author, date)
}

// CommentOn attaches a comment thread to the spanned text without changing
// it. The span is isolated into whole runs and those runs are marked with the
// thread ID so the serializer can emit the comment range around exactly the
// matched text.
func CommentOn(doc *document.Document, span match.Span, body, author string, date time.Time) (*document.Thread, error) {
	if body == "" {
		return nil, nil
	}
	b, err := validate(doc, span)
	if err != nil {
		return nil, err
	}

	t := doc.AttachThread(0, body, author, date)
	first, last := isolate(b, span)
	for i := first; i <= last; i++ {
		if b.Runs[i].Live() {
			b.Runs[i].Marks = append(b.Runs[i].Marks, t.ID)
		}
	}
	b.MarkDirty()
	return t, nil
}

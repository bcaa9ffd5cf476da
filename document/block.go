package document

import "time"

// ContainerKind identifies the kind of container a Block came from.
type ContainerKind int

const (
	// KindParagraph is a body paragraph.
	KindParagraph ContainerKind = iota
	// KindTableCell is a paragraph inside a table cell.
	KindTableCell
	// KindHeader is a paragraph inside a header story.
	KindHeader
	// KindFooter is a paragraph inside a footer story.
	KindFooter
)

// String returns a short name for the container kind.
func (k ContainerKind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindTableCell:
		return "table-cell"
	case KindHeader:
		return "header"
	case KindFooter:
		return "footer"
	default:
		return "unknown"
	}
}

// RevisionKind distinguishes tracked insertions from tracked deletions.
type RevisionKind int

const (
	// Inserted marks a run added as a tracked change.
	Inserted RevisionKind = iota + 1
	// Deleted marks a run removed as a tracked change.
	Deleted
)

// RevisionTag marks a run as a tracked change with attribution.
type RevisionTag struct {
	ID     int
	Kind   RevisionKind
	Author string
	Date   time.Time
}

// Image describes an embedded image carried by a run. Width and Height are
// the display extent in EMUs (914400 per inch, as WordprocessingML requires).
type Image struct {
	Media  int    // index into Document.MediaParts; -1 when the image came from the source file
	RelID  string // package relationship ID; assigned at serialization for new media
	Name   string // display name for the drawing
	Width  int64
	Height int64
}

// Hyperlink identifies the link wrapper a group of runs belongs to. Runs
// sharing one Hyperlink pointer are re-emitted inside a single wrapper
// carrying Markup's attributes, so the link target relationship survives a
// rebuild of the paragraph.
type Hyperlink struct {
	Markup string // serialized wrapper element, attributes only, no children
}

// Run is a span of text sharing one formatting style within a Block.
//
// Props is the serialized run-properties markup (<w:rPr>...</w:rPr>) from the
// source document. The engine treats it as an opaque pass-through value so
// that inserted text can reuse the formatting of the text it replaces.
type Run struct {
	Text  string
	Props string
	Rev   *RevisionTag
	Image *Image
	Link  *Hyperlink

	// Raw carries markup the loader preserved verbatim: paragraph properties,
	// hyperlinks, bookmarks, field codes, anything that is not plain run text.
	// Raw runs have no text, are never matched, and are re-emitted in place
	// when their block is rebuilt.
	Raw string

	// Marks lists the IDs of comment threads whose range covers this run.
	// Only threads with no anchoring revision use marks; threads attached to
	// a tracked change locate their range through the revision ID instead.
	Marks []int
}

// Live reports whether the run participates in the document's visible text:
// either untouched, or inserted by an earlier tracked change. Deleted runs
// are retained for serialization but are never matched again.
func (r *Run) Live() bool {
	return r.Rev == nil || r.Rev.Kind == Inserted
}

// Block is a paragraph-level container of runs.
type Block struct {
	ID   int
	Kind ContainerKind
	Runs []Run

	dirty bool
}

// MarkDirty records that the block's run sequence has been mutated and must
// be rebuilt on serialization. Untouched blocks are passed through verbatim.
func (b *Block) MarkDirty() { b.dirty = true }

// Dirty reports whether the block has been mutated.
func (b *Block) Dirty() bool { return b.dirty }

// Text returns the concatenation of every run's text in order, including
// deleted runs.
func (b *Block) Text() string {
	var n int
	for i := range b.Runs {
		n += len(b.Runs[i].Text)
	}
	buf := make([]byte, 0, n)
	for i := range b.Runs {
		buf = append(buf, b.Runs[i].Text...)
	}
	return string(buf)
}

// LiveText returns the concatenation of live (non-deleted) run text in order.
// This is the text that matching operates on.
func (b *Block) LiveText() string {
	var n int
	for i := range b.Runs {
		if b.Runs[i].Live() {
			n += len(b.Runs[i].Text)
		}
	}
	buf := make([]byte, 0, n)
	for i := range b.Runs {
		if b.Runs[i].Live() {
			buf = append(buf, b.Runs[i].Text...)
		}
	}
	return string(buf)
}

// SplitAt splits the run at index i so that the first part holds offset bytes
// of its text. Formatting, revision tag, and image payload are shared by both
// halves (the tag pointer is duplicated so the halves stay associated with
// the same tracked change). SplitAt is a no-op when the offset falls on an
// existing run boundary. Returns the index of the run starting at offset.
func (b *Block) SplitAt(i, offset int) int {
	r := &b.Runs[i]
	if offset <= 0 {
		return i
	}
	if offset >= len(r.Text) {
		return i + 1
	}
	head := *r
	tail := *r
	head.Text = r.Text[:offset]
	tail.Text = r.Text[offset:]
	b.Runs = append(b.Runs[:i], append([]Run{head, tail}, b.Runs[i+1:]...)...)
	b.MarkDirty()
	return i + 1
}

// InsertRuns inserts runs before index i.
func (b *Block) InsertRuns(i int, runs ...Run) {
	b.Runs = append(b.Runs[:i], append(runs, b.Runs[i:]...)...)
	b.MarkDirty()
}

// RemoveRuns removes the runs in [i, j).
func (b *Block) RemoveRuns(i, j int) {
	b.Runs = append(b.Runs[:i], b.Runs[j:]...)
	b.MarkDirty()
}

package document

import "time"

// Thread is a comment thread anchored to the revision that carries the
// change it annotates. Anchor is a revision ID, not a pointer: run splitting
// may copy tags between runs, and the ID stays stable across that.
type Thread struct {
	ID     int
	Anchor int
	Author string
	Body   string
	Date   time.Time
}

// Document is the root of the in-memory model. It owns the blocks and the
// comment threads, and allocates revision and comment IDs.
type Document struct {
	Blocks     []*Block
	Threads    []*Thread
	MediaParts []*Media

	nextBlockID int
	nextRevID   int
	nextComment int
}

// New creates an empty document. Revision and comment IDs start at 1;
// loaders seed them past the highest IDs already present in the source file.
func New() *Document {
	return &Document{nextRevID: 1, nextComment: 1}
}

// SeedRevisionID raises the next revision ID so newly allocated tags never
// collide with revisions already present in a loaded document.
func (d *Document) SeedRevisionID(max int) {
	if max >= d.nextRevID {
		d.nextRevID = max + 1
	}
}

// SeedCommentID raises the next comment ID past IDs already in use.
func (d *Document) SeedCommentID(max int) {
	if max >= d.nextComment {
		d.nextComment = max + 1
	}
}

// AddBlock appends a new empty block of the given kind and returns it.
func (d *Document) AddBlock(kind ContainerKind) *Block {
	b := &Block{ID: d.nextBlockID, Kind: kind}
	d.nextBlockID++
	d.Blocks = append(d.Blocks, b)
	return b
}

// Block returns the block with the given ID, or nil.
func (d *Document) Block(id int) *Block {
	for _, b := range d.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// NewRevision allocates a revision tag with a fresh ID.
func (d *Document) NewRevision(kind RevisionKind, author string, date time.Time) *RevisionTag {
	tag := &RevisionTag{ID: d.nextRevID, Kind: kind, Author: author, Date: date}
	d.nextRevID++
	return tag
}

// AttachThread creates a comment thread anchored to the given revision ID.
func (d *Document) AttachThread(anchor int, body, author string, date time.Time) *Thread {
	t := &Thread{ID: d.nextComment, Anchor: anchor, Author: author, Body: body, Date: date}
	d.nextComment++
	d.Threads = append(d.Threads, t)
	return t
}

// ThreadFor returns the thread anchored to the given revision ID, or nil.
func (d *Document) ThreadFor(anchor int) *Thread {
	for _, t := range d.Threads {
		if t.Anchor == anchor {
			return t
		}
	}
	return nil
}

// LiveText returns the live text of every block joined with newlines. Useful
// for assertions and diagnostics; serialization does not use it.
func (d *Document) LiveText() string {
	var out []byte
	for i, b := range d.Blocks {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, b.LiveText()...)
	}
	return string(out)
}

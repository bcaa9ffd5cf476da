// Package docx loads WordprocessingML packages into the document model and
// serializes them back with tracked-change and comment markup.
//
// A DOCX file is a ZIP of XML parts. The loader parses the story parts
// (word/document.xml plus any header and footer parts) into [document.Block]
// values, keeping run formatting and everything it does not understand as
// opaque pass-through markup. The serializer rewrites only the paragraphs the
// engine actually mutated; every other part of the package is copied through
// byte-for-byte, which is what keeps the output acceptable to real review
// tools.
//
// Insertions and deletions are emitted as <w:ins>/<w:del> revision ranges
// with author and timestamp attributes, and comment threads become
// word/comments.xml entries with commentRangeStart/commentRangeEnd anchors,
// matching what a human editor produces by toggling change tracking before
// editing.
package docx

import (
	"bytes"
	"fmt"

	"github.com/beevik/etree"

	"github.com/tsawler/redline/document"
)

// wordDateFormat is the timestamp layout WordprocessingML uses on revision
// and comment attributes.
const wordDateFormat = "2006-01-02T15:04:05Z"

// File is an opened DOCX package bound to its in-memory document model.
type File struct {
	parts map[string][]byte
	order []string

	doc   *document.Document
	trees map[string]*etree.Document // story parts parsed for rewriting
	paras map[int]*etree.Element     // block ID -> paragraph element
	homes map[int]string             // block ID -> owning part name

	// Serialization state, kept so repeated Save/Write calls pick up model
	// mutations made in between without duplicating work already done.
	media   map[int]string // media index -> package part name
	written map[int]bool   // comment thread IDs already in the comments part
}

// Document returns the in-memory model. Mutations made through the model are
// written back by Save.
func (f *File) Document() *document.Document {
	return f.doc
}

// part returns the raw bytes of a package part.
func (f *File) part(name string) ([]byte, bool) {
	b, ok := f.parts[name]
	return b, ok
}

// setPart replaces or creates a package part, keeping the original entry
// order for parts that already existed.
func (f *File) setPart(name string, data []byte) {
	if _, ok := f.parts[name]; !ok {
		f.order = append(f.order, name)
	}
	f.parts[name] = data
}

// serializeFragment renders one element as a standalone XML fragment.
func serializeFragment(el *etree.Element) string {
	d := etree.NewDocument()
	d.SetRoot(el.Copy())
	s, _ := d.WriteToString()
	return s
}

// parseFragment parses a fragment produced by serializeFragment back into an
// element.
func parseFragment(s string) (*etree.Element, error) {
	d := etree.NewDocument()
	if err := d.ReadFromString(s); err != nil {
		return nil, fmt.Errorf("parsing stored fragment: %w", err)
	}
	root := d.Root()
	if root == nil {
		return nil, fmt.Errorf("stored fragment has no root element")
	}
	return root.Copy(), nil
}

// parseTree parses a package part as XML.
func parseTree(data []byte) (*etree.Document, error) {
	d := etree.NewDocument()
	if _, err := d.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return d, nil
}

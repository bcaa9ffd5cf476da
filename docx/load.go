package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"golang.org/x/text/unicode/norm"

	"github.com/tsawler/redline/document"
)

// Open reads a DOCX package from disk.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return Load(bytes.NewReader(data), int64(len(data)))
}

// Load reads a DOCX package from r.
func Load(r io.ReaderAt, size int64) (*File, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening document archive: %w", err)
	}

	f := &File{
		parts:   make(map[string][]byte),
		doc:     document.New(),
		trees:   make(map[string]*etree.Document),
		paras:   make(map[int]*etree.Element),
		homes:   make(map[int]string),
		media:   make(map[int]string),
		written: make(map[int]bool),
	}
	for _, entry := range zr.File {
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name, err)
		}
		f.setPart(entry.Name, data)
	}

	if _, ok := f.parts["word/document.xml"]; !ok {
		return nil, fmt.Errorf("not a WordprocessingML document: word/document.xml missing")
	}

	ld := &loader{file: f}
	if err := ld.loadStory("word/document.xml", document.KindParagraph); err != nil {
		return nil, err
	}
	for _, name := range f.storyParts("header") {
		if err := ld.loadStory(name, document.KindHeader); err != nil {
			return nil, err
		}
	}
	for _, name := range f.storyParts("footer") {
		if err := ld.loadStory(name, document.KindFooter); err != nil {
			return nil, err
		}
	}
	ld.loadComments()

	f.doc.SeedRevisionID(ld.maxRevID)
	f.doc.SeedCommentID(ld.maxCommentID)
	return f, nil
}

// storyParts lists header or footer parts in a stable order.
func (f *File) storyParts(kind string) []string {
	var names []string
	for name := range f.parts {
		if strings.HasPrefix(name, "word/"+kind) && strings.HasSuffix(name, ".xml") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// loader accumulates model state while walking story parts.
type loader struct {
	file         *File
	maxRevID     int
	maxCommentID int
}

func (ld *loader) loadStory(name string, kind document.ContainerKind) error {
	data := ld.file.parts[name]
	tree, err := parseTree(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	root := tree.Root()
	if root == nil {
		return fmt.Errorf("parsing %s: no root element", name)
	}
	ld.file.trees[name] = tree
	ld.walk(root, name, kind)
	return nil
}

// walk descends through a story looking for paragraphs. Paragraphs inside
// table cells get the table-cell container kind so reporting can say where a
// change landed.
func (ld *loader) walk(el *etree.Element, part string, kind document.ContainerKind) {
	for _, child := range el.ChildElements() {
		switch localName(child) {
		case "p":
			ld.loadParagraph(child, part, kind)
		case "tbl":
			if kind == document.KindParagraph {
				ld.walk(child, part, document.KindTableCell)
			} else {
				ld.walk(child, part, kind)
			}
		default:
			ld.walk(child, part, kind)
		}
	}
}

func (ld *loader) loadParagraph(p *etree.Element, part string, kind document.ContainerKind) {
	b := ld.file.doc.AddBlock(kind)
	ld.file.paras[b.ID] = p
	ld.file.homes[b.ID] = part
	ld.loadContent(b, p, nil)
}

// loadContent converts paragraph-level children into runs. link is non-nil
// while descending into a hyperlink wrapper: its text is live, matchable
// text, and the wrapper itself is kept so the target relationship survives a
// rebuild.
func (ld *loader) loadContent(b *document.Block, el *etree.Element, link *document.Hyperlink) {
	for _, child := range el.ChildElements() {
		switch localName(child) {
		case "r":
			run := ld.loadRun(child, nil)
			run.Link = link
			b.Runs = append(b.Runs, run)
		case "ins":
			ld.loadTagged(b, child, document.Inserted, link)
		case "del":
			ld.loadTagged(b, child, document.Deleted, link)
		case "hyperlink":
			if link == nil {
				ld.loadContent(b, child, &document.Hyperlink{Markup: wrapperMarkup(child)})
				continue
			}
			b.Runs = append(b.Runs, document.Run{Raw: serializeFragment(child), Link: link})
		default:
			if id, ok := commentRangeID(child); ok && id > ld.maxCommentID {
				ld.maxCommentID = id
			}
			b.Runs = append(b.Runs, document.Run{Raw: serializeFragment(child), Link: link})
		}
	}
}

func (ld *loader) loadTagged(b *document.Block, el *etree.Element, kind document.RevisionKind, link *document.Hyperlink) {
	tag := ld.loadTag(el, kind)
	for _, r := range el.ChildElements() {
		if localName(r) == "r" {
			run := ld.loadRun(r, tag)
			run.Link = link
			b.Runs = append(b.Runs, run)
		}
	}
}

// loadRun converts one <w:r> element. Runs whose content is anything other
// than run properties and literal text are preserved as raw markup so that
// drawings, tabs, breaks, and field instructions survive a rebuild untouched.
func (ld *loader) loadRun(r *etree.Element, tag *document.RevisionTag) document.Run {
	var text strings.Builder
	var props string
	plain := true
	for _, child := range r.ChildElements() {
		switch localName(child) {
		case "rPr":
			props = serializeFragment(child)
		case "t", "delText":
			text.WriteString(child.Text())
		default:
			plain = false
		}
	}
	if !plain {
		return document.Run{Raw: serializeFragment(r), Rev: tag}
	}
	return document.Run{
		Text:  norm.NFC.String(text.String()),
		Props: props,
		Rev:   tag,
	}
}

// loadTag builds a revision tag from a <w:ins> or <w:del> element's
// attributes, tracking the largest revision ID seen so new tags never collide.
func (ld *loader) loadTag(el *etree.Element, kind document.RevisionKind) *document.RevisionTag {
	tag := &document.RevisionTag{Kind: kind}
	if v := attr(el, "id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			tag.ID = n
			if n > ld.maxRevID {
				ld.maxRevID = n
			}
		}
	}
	tag.Author = attr(el, "author")
	if v := attr(el, "date"); v != "" {
		if t, err := time.Parse(wordDateFormat, v); err == nil {
			tag.Date = t
		}
	}
	return tag
}

// loadComments scans an existing word/comments.xml so that newly attached
// threads get IDs beyond the ones already in use.
func (ld *loader) loadComments() {
	data, ok := ld.file.part("word/comments.xml")
	if !ok {
		return
	}
	tree, err := parseTree(data)
	if err != nil {
		return
	}
	root := tree.Root()
	if root == nil {
		return
	}
	for _, c := range root.ChildElements() {
		if localName(c) != "comment" {
			continue
		}
		if n, err := strconv.Atoi(attr(c, "id")); err == nil && n > ld.maxCommentID {
			ld.maxCommentID = n
		}
	}
}

// commentRangeID extracts the ID from commentRangeStart/End markers so new
// comment IDs never collide with ranges already in the story.
func commentRangeID(el *etree.Element) (int, bool) {
	switch localName(el) {
	case "commentRangeStart", "commentRangeEnd", "commentReference":
		n, err := strconv.Atoi(attr(el, "id"))
		return n, err == nil
	}
	return 0, false
}

// wrapperMarkup serializes an element's shell, attributes included, children
// dropped.
func wrapperMarkup(el *etree.Element) string {
	shell := el.Copy()
	shell.Child = nil
	return serializeFragment(shell)
}

// localName returns an element's tag without its namespace prefix.
func localName(el *etree.Element) string {
	return el.Tag
}

// attr looks up a w-namespace attribute by local name.
func attr(el *etree.Element, name string) string {
	for _, a := range el.Attr {
		if a.Key == name {
			return a.Value
		}
	}
	return ""
}

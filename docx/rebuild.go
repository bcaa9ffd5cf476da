package docx

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/tsawler/redline/document"
)

// rebuilder rewrites dirty paragraphs from their model runs.
type rebuilder struct {
	file      *File
	nextDocPr int
}

// rebuild replaces the paragraph's children with markup generated from the
// block's runs. Raw runs are re-emitted verbatim in their original positions,
// so paragraph properties and bookmarks keep their place; runs that came from
// a hyperlink are regrouped under a wrapper carrying the original attributes.
func (rb *rebuilder) rebuild(p *etree.Element, b *document.Block) error {
	starts, ends := commentBounds(rb.file.doc, b)

	p.Child = nil
	var wrapper *etree.Element
	var wrapperTag *document.RevisionTag
	var linkEl *etree.Element
	var curLink *document.Hyperlink
	closeWrapper := func() {
		wrapper = nil
		wrapperTag = nil
	}
	// base is the container runs go into: the open hyperlink wrapper when one
	// is active, otherwise the paragraph itself.
	base := func() *etree.Element {
		if linkEl != nil {
			return linkEl
		}
		return p
	}

	for i := range b.Runs {
		run := &b.Runs[i]
		if run.Link != curLink {
			closeWrapper()
			linkEl = nil
			if run.Link != nil {
				el, err := parseFragment(run.Link.Markup)
				if err != nil {
					return err
				}
				p.AddChild(el)
				linkEl = el
			}
			curLink = run.Link
		}

		for _, id := range starts[i] {
			closeWrapper()
			mark := base().CreateElement("w:commentRangeStart")
			mark.CreateAttr("w:id", strconv.Itoa(id))
		}

		parent := base()
		if run.Rev != nil {
			if wrapper == nil || wrapperTag != run.Rev {
				wrapper = base().CreateElement(revTagName(run.Rev.Kind))
				wrapper.CreateAttr("w:id", strconv.Itoa(run.Rev.ID))
				wrapper.CreateAttr("w:author", run.Rev.Author)
				wrapper.CreateAttr("w:date", run.Rev.Date.UTC().Format(wordDateFormat))
				wrapperTag = run.Rev
			}
			parent = wrapper
		} else {
			closeWrapper()
		}

		if err := rb.emitRun(parent, run); err != nil {
			return err
		}

		for _, id := range ends[i] {
			closeWrapper()
			mark := base().CreateElement("w:commentRangeEnd")
			mark.CreateAttr("w:id", strconv.Itoa(id))
			ref := base().CreateElement("w:r")
			refMark := ref.CreateElement("w:commentReference")
			refMark.CreateAttr("w:id", strconv.Itoa(id))
		}
	}
	return nil
}

func (rb *rebuilder) emitRun(parent *etree.Element, run *document.Run) error {
	if run.Raw != "" {
		el, err := parseFragment(run.Raw)
		if err != nil {
			return err
		}
		parent.AddChild(el)
		return nil
	}
	r := parent.CreateElement("w:r")
	if run.Props != "" {
		props, err := parseFragment(run.Props)
		if err != nil {
			return err
		}
		r.AddChild(props)
	}
	if run.Image != nil {
		return rb.emitDrawing(r, run.Image)
	}
	tag := "w:t"
	if run.Rev != nil && run.Rev.Kind == document.Deleted {
		tag = "w:delText"
	}
	t := r.CreateElement(tag)
	t.CreateAttr("xml:space", "preserve")
	t.SetText(run.Text)
	return nil
}

// emitDrawing writes an inline picture referencing an already registered
// image relationship. Namespaces are declared locally so the markup is valid
// regardless of what the story's root element declares.
func (rb *rebuilder) emitDrawing(r *etree.Element, img *document.Image) error {
	rb.nextDocPr++
	id := rb.nextDocPr
	markup := fmt.Sprintf(`<w:drawing xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><wp:inline distT="0" distB="0" distL="0" distR="0" xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"><wp:extent cx="%d" cy="%d"/><wp:docPr id="%d" name=""/><a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture"><pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture"><pic:nvPicPr><pic:cNvPr id="%d" name=""/><pic:cNvPicPr/></pic:nvPicPr><pic:blipFill><a:blip r:embed="" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill><pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing>`,
		img.Width, img.Height, id, id, img.Width, img.Height)
	el, err := parseFragment(markup)
	if err != nil {
		return err
	}
	for _, path := range [][]string{{"wp:inline", "wp:docPr"},
		{"wp:inline", "a:graphic", "a:graphicData", "pic:pic", "pic:nvPicPr", "pic:cNvPr"}} {
		if target := findPath(el, path); target != nil {
			setAttr(target, "name", img.Name)
		}
	}
	if blip := findPath(el, []string{"wp:inline", "a:graphic", "a:graphicData", "pic:pic", "pic:blipFill", "a:blip"}); blip != nil {
		setAttr(blip, "r:embed", img.RelID)
	}
	r.AddChild(el)
	return nil
}

func revTagName(kind document.RevisionKind) string {
	if kind == document.Deleted {
		return "w:del"
	}
	return "w:ins"
}

// commentBounds maps run indices to the comment ranges that open before and
// close after them. Threads anchored to a revision cover the runs carrying
// that revision ID; standalone threads cover the runs that hold their mark.
func commentBounds(doc *document.Document, b *document.Block) (starts, ends [][]int) {
	starts = make([][]int, len(b.Runs))
	ends = make([][]int, len(b.Runs))
	for _, t := range doc.Threads {
		first, last := -1, -1
		for i := range b.Runs {
			run := &b.Runs[i]
			covered := false
			if t.Anchor != 0 {
				covered = run.Rev != nil && run.Rev.ID == t.Anchor
			} else {
				for _, m := range run.Marks {
					if m == t.ID {
						covered = true
						break
					}
				}
			}
			if covered {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		if first >= 0 {
			starts[first] = append(starts[first], t.ID)
			ends[last] = append(ends[last], t.ID)
		}
	}
	return starts, ends
}

// findPath walks prefixed child tags from el.
func findPath(el *etree.Element, path []string) *etree.Element {
	cur := el
	for _, step := range path {
		cur = cur.SelectElement(step)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func setAttr(el *etree.Element, key, value string) {
	el.CreateAttr(key, value)
}

package docx

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/tsawler/redline/document"
)

const (
	nsWordML        = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"

	relTypeImage    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relTypeComments = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"

	contentTypeComments = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"
)

var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"webp": "image/webp",
}

// relsPath maps a part to its relationships part,
// e.g. word/document.xml -> word/_rels/document.xml.rels.
func relsPath(part string) string {
	dir, base := path.Split(part)
	return dir + "_rels/" + base + ".rels"
}

// relEditor mutates one relationships part, allocating IDs past the highest
// rId already present.
type relEditor struct {
	name   string
	tree   *etree.Document
	nextID int
	dirty  bool
}

var relIDPattern = regexp.MustCompile(`^rId(\d+)$`)

// relsFor opens the relationships part for the given package part, creating
// an empty one when the part has no relationships yet.
func (f *File) relsFor(part string, editors map[string]*relEditor) (*relEditor, error) {
	name := relsPath(part)
	if re, ok := editors[name]; ok {
		return re, nil
	}
	re := &relEditor{name: name, nextID: 1}
	if data, ok := f.part(name); ok {
		tree, err := parseTree(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		re.tree = tree
		if root := tree.Root(); root != nil {
			for _, rel := range root.ChildElements() {
				if m := relIDPattern.FindStringSubmatch(attr(rel, "Id")); m != nil {
					if n, _ := strconv.Atoi(m[1]); n >= re.nextID {
						re.nextID = n + 1
					}
				}
			}
		}
	} else {
		tree := etree.NewDocument()
		tree.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
		root := tree.CreateElement("Relationships")
		root.CreateAttr("xmlns", nsRelationships)
		re.tree = tree
		re.dirty = true
	}
	editors[name] = re
	return re, nil
}

// add appends a relationship and returns its ID.
func (re *relEditor) add(relType, target string) string {
	id := fmt.Sprintf("rId%d", re.nextID)
	re.nextID++
	rel := re.tree.Root().CreateElement("Relationship")
	rel.CreateAttr("Id", id)
	rel.CreateAttr("Type", relType)
	rel.CreateAttr("Target", target)
	re.dirty = true
	return id
}

// has reports whether a relationship of the given type already exists.
func (re *relEditor) has(relType string) bool {
	root := re.tree.Root()
	if root == nil {
		return false
	}
	for _, rel := range root.ChildElements() {
		if attr(rel, "Type") == relType {
			return true
		}
	}
	return false
}

// typeEditor mutates [Content_Types].xml.
type typeEditor struct {
	tree  *etree.Document
	dirty bool
}

func (f *File) contentTypes() (*typeEditor, error) {
	data, ok := f.part("[Content_Types].xml")
	if !ok {
		return nil, fmt.Errorf("package has no [Content_Types].xml")
	}
	tree, err := parseTree(data)
	if err != nil {
		return nil, fmt.Errorf("parsing content types: %w", err)
	}
	return &typeEditor{tree: tree}, nil
}

// ensureDefault registers a content type for a file extension unless one is
// already declared.
func (te *typeEditor) ensureDefault(ext, contentType string) {
	root := te.tree.Root()
	for _, el := range root.ChildElements() {
		if el.Tag == "Default" && strings.EqualFold(attr(el, "Extension"), ext) {
			return
		}
	}
	el := root.CreateElement("Default")
	el.CreateAttr("Extension", ext)
	el.CreateAttr("ContentType", contentType)
	te.dirty = true
}

// ensureOverride registers a content type for one part unless it is already
// declared.
func (te *typeEditor) ensureOverride(partName, contentType string) {
	root := te.tree.Root()
	for _, el := range root.ChildElements() {
		if el.Tag == "Override" && attr(el, "PartName") == partName {
			return
		}
	}
	el := root.CreateElement("Override")
	el.CreateAttr("PartName", partName)
	el.CreateAttr("ContentType", contentType)
	te.dirty = true
}

// placeMedia writes new media bytes into word/media and returns the package
// name chosen for each media index. Media placed by an earlier sync keeps its
// name.
func (f *File) placeMedia(te *typeEditor) map[int]string {
	seq := 1
	for i, m := range f.doc.MediaParts {
		if _, done := f.media[i]; done {
			continue
		}
		var name string
		for {
			name = fmt.Sprintf("word/media/rl_image%d.%s", seq, m.Ext)
			seq++
			if _, taken := f.parts[name]; !taken {
				break
			}
		}
		f.setPart(name, m.Bytes)
		if ct, ok := imageContentTypes[m.Ext]; ok {
			te.ensureDefault(m.Ext, ct)
		}
		f.media[i] = name
	}
	return f.media
}

// writeComments builds word/comments.xml from the document's threads,
// extending an existing comments part when the source file already had one.
// Threads serialized by an earlier sync are not appended again.
func (f *File) writeComments(te *typeEditor, rels map[string]*relEditor) error {
	var pending []*document.Thread
	for _, t := range f.doc.Threads {
		if !f.written[t.ID] {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	var tree *etree.Document
	if data, ok := f.part("word/comments.xml"); ok {
		var err error
		tree, err = parseTree(data)
		if err != nil {
			return fmt.Errorf("parsing comments part: %w", err)
		}
	} else {
		tree = etree.NewDocument()
		tree.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
		root := tree.CreateElement("w:comments")
		root.CreateAttr("xmlns:w", nsWordML)
	}
	root := tree.Root()

	for _, t := range pending {
		c := root.CreateElement("w:comment")
		c.CreateAttr("w:id", strconv.Itoa(t.ID))
		c.CreateAttr("w:author", t.Author)
		c.CreateAttr("w:date", t.Date.UTC().Format(wordDateFormat))
		c.CreateAttr("w:initials", initials(t.Author))
		p := c.CreateElement("w:p")
		r := p.CreateElement("w:r")
		txt := r.CreateElement("w:t")
		txt.CreateAttr("xml:space", "preserve")
		txt.SetText(t.Body)
		f.written[t.ID] = true
	}

	out, err := tree.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serializing comments part: %w", err)
	}
	f.setPart("word/comments.xml", out)

	te.ensureOverride("/word/comments.xml", contentTypeComments)
	re, err := f.relsFor("word/document.xml", rels)
	if err != nil {
		return err
	}
	if !re.has(relTypeComments) {
		re.add(relTypeComments, "comments.xml")
	}
	return nil
}

// initials derives comment initials from an author name the way review tools
// display them.
func initials(author string) string {
	var out []rune
	for _, word := range strings.Fields(author) {
		for _, r := range word {
			out = append(out, r)
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return strings.ToUpper(string(out))
}

package docx

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/tsawler/redline/document"
	"github.com/tsawler/redline/match"
	"github.com/tsawler/redline/revise"
)

var testDate = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestDOCX creates a minimal DOCX file for testing.
func createTestDOCX(t *testing.T, content string) string {
	t.Helper()

	tmpDir := t.TempDir()
	docxPath := filepath.Join(tmpDir, "test.docx")

	f, err := os.Create(docxPath)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	zw := zip.NewWriter(f)

	contentTypes := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`
	w, _ := zw.Create("[Content_Types].xml")
	w.Write([]byte(contentTypes))

	rels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`
	w, _ = zw.Create("_rels/.rels")
	w.Write([]byte(rels))

	styles := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:style w:type="paragraph" w:styleId="Normal"/></w:styles>`
	w, _ = zw.Create("word/styles.xml")
	w.Write([]byte(styles))

	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>` + content + `</w:body>
</w:document>`
	w, _ = zw.Create("word/document.xml")
	w.Write([]byte(doc))

	zw.Close()
	f.Close()

	return docxPath
}

// saveAndReadParts saves the file and returns every part of the written
// package by name.
func saveAndReadParts(t *testing.T, f *File) map[string]string {
	t.Helper()
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("reading written package: %v", err)
	}
	parts := make(map[string]string)
	for _, entry := range zr.File {
		rc, err := entry.Open()
		if err != nil {
			t.Fatal(err)
		}
		data := new(bytes.Buffer)
		data.ReadFrom(rc)
		rc.Close()
		parts[entry.Name] = data.String()
	}
	return parts
}

func replaceIn(t *testing.T, f *File, target, replacement string) *document.RevisionTag {
	t.Helper()
	p, err := match.Compile(target, match.Options{WholeWord: true})
	if err != nil {
		t.Fatal(err)
	}
	span, ok := p.Find(f.Document())
	if !ok {
		t.Fatalf("target %q not found", target)
	}
	del, _, err := revise.Replace(f.Document(), span, replacement, "reviser", testDate)
	if err != nil {
		t.Fatal(err)
	}
	return del
}

func TestLoadParagraphs(t *testing.T) {
	path := createTestDOCX(t, `
		<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>Bold intro.</w:t></w:r></w:p>
		<w:p><w:r><w:t xml:space="preserve">Plain body </w:t></w:r><w:r><w:t>text.</w:t></w:r></w:p>
		<w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell text</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	d := f.Document()

	if len(d.Blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(d.Blocks))
	}
	if got := d.Blocks[0].LiveText(); got != "Bold intro." {
		t.Errorf("block 0 = %q", got)
	}
	if !strings.Contains(d.Blocks[0].Runs[0].Props, "<w:b/>") {
		t.Errorf("formatting not captured: %q", d.Blocks[0].Runs[0].Props)
	}
	if got := d.Blocks[1].LiveText(); got != "Plain body text." {
		t.Errorf("block 1 = %q", got)
	}
	if d.Blocks[2].Kind != document.KindTableCell {
		t.Errorf("block 2 kind = %v, want table cell", d.Blocks[2].Kind)
	}
}

func TestLoadExistingRevisions(t *testing.T) {
	path := createTestDOCX(t, `<w:p>
		<w:r><w:t xml:space="preserve">fee: </w:t></w:r>
		<w:del w:id="7" w:author="earlier reviser" w:date="2026-01-10T09:00:00Z"><w:r><w:delText>$10</w:delText></w:r></w:del>
		<w:ins w:id="8" w:author="earlier reviser" w:date="2026-01-10T09:00:00Z"><w:r><w:t>$12</w:t></w:r></w:ins>
	</w:p>`)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	d := f.Document()

	if got := d.Blocks[0].LiveText(); got != "fee: $12" {
		t.Errorf("LiveText() = %q", got)
	}
	if got := d.Blocks[0].Text(); got != "fee: $10$12" {
		t.Errorf("Text() = %q", got)
	}
	tag := d.NewRevision(document.Inserted, "a", testDate)
	if tag.ID <= 8 {
		t.Errorf("new revision ID %d collides with loaded revisions", tag.ID)
	}
}

func TestRoundTripReplace(t *testing.T) {
	path := createTestDOCX(t, `<w:p><w:pPr><w:jc w:val="both"/></w:pPr><w:r><w:rPr><w:i/></w:rPr><w:t>The deadline is June 1 this year.</w:t></w:r></w:p>`)

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	replaceIn(t, f, "June 1", "July 15")
	parts := saveAndReadParts(t, f)

	body := parts["word/document.xml"]
	for _, want := range []string{
		`<w:del `, `<w:delText xml:space="preserve">June 1</w:delText>`,
		`<w:ins `, `>July 15<`,
		`w:author="reviser"`, `w:date="2026-03-01T12:00:00Z"`,
		`<w:jc w:val="both"/>`, // paragraph properties survive the rebuild
	} {
		if !strings.Contains(body, want) {
			t.Errorf("document.xml missing %q\n%s", want, body)
		}
	}
	// The replacement inherits the replaced run's formatting.
	insAt := strings.Index(body, "<w:ins ")
	if insAt < 0 || !strings.Contains(body[insAt:], "<w:i/>") {
		t.Error("inserted run lost the source formatting")
	}

	// Reload: the revised file must parse back to the same model.
	raw := rezip(t, parts)
	re, err := Load(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("reloading revised file: %v", err)
	}
	if got := re.Document().Blocks[0].LiveText(); got != "The deadline is July 15 this year." {
		t.Errorf("reloaded LiveText() = %q", got)
	}
}

// rezip rebuilds a ZIP archive from extracted parts.
func rezip(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(data))
	}
	zw.Close()
	return buf.Bytes()
}

func TestUntouchedPartsPassThrough(t *testing.T) {
	path := createTestDOCX(t, `<w:p><w:r><w:t>first</w:t></w:r></w:p><w:p><w:r><w:t>second</w:t></w:r></w:p>`)

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	original, _ := f.part("word/styles.xml")
	replaceIn(t, f, "first", "1st")
	parts := saveAndReadParts(t, f)

	if parts["word/styles.xml"] != string(original) {
		t.Error("untouched part was rewritten")
	}
	// The untouched second paragraph keeps its original markup.
	if !strings.Contains(parts["word/document.xml"], `<w:r><w:t>second</w:t></w:r>`) {
		t.Error("untouched paragraph was rewritten")
	}
}

func TestCommentSerialization(t *testing.T) {
	path := createTestDOCX(t, `<w:p><w:r><w:t>Renewal is automatic unless cancelled.</w:t></w:r></w:p>`)

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	d := f.Document()
	p, err := match.Compile("automatic", match.Options{WholeWord: true})
	if err != nil {
		t.Fatal(err)
	}
	span, ok := p.Find(d)
	if !ok {
		t.Fatal("target not found")
	}
	th, err := revise.CommentOn(d, span, "confirm current policy", "reviser", testDate)
	if err != nil {
		t.Fatal(err)
	}

	parts := saveAndReadParts(t, f)

	comments, ok := parts["word/comments.xml"]
	if !ok {
		t.Fatal("no comments part written")
	}
	if !strings.Contains(comments, "confirm current policy") {
		t.Errorf("comment body missing:\n%s", comments)
	}
	if !strings.Contains(comments, `w:author="reviser"`) {
		t.Error("comment author missing")
	}

	body := parts["word/document.xml"]
	idAttr := `w:id="` + strconv.Itoa(th.ID) + `"`
	for _, want := range []string{"<w:commentRangeStart ", "<w:commentRangeEnd ", "<w:commentReference "} {
		if !strings.Contains(body, want+idAttr) {
			t.Errorf("document.xml missing %s%s", want, idAttr)
		}
	}
	if !strings.Contains(parts["[Content_Types].xml"], "/word/comments.xml") {
		t.Error("comments part not registered in content types")
	}
	if !strings.Contains(parts["word/_rels/document.xml.rels"], "comments.xml") {
		t.Error("comments relationship missing")
	}
}

func TestAcceptAllSerialization(t *testing.T) {
	path := createTestDOCX(t, `<w:p><w:r><w:t>The fee is $10 today.</w:t></w:r></w:p>`)

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	replaceIn(t, f, "$10", "$12")
	f.Document().AcceptAll()
	parts := saveAndReadParts(t, f)

	body := parts["word/document.xml"]
	if strings.Contains(body, "<w:del") || strings.Contains(body, "<w:ins") {
		t.Errorf("accept-all output still carries revision markup:\n%s", body)
	}
	if !strings.Contains(body, "$12") || strings.Contains(body, "$10") {
		t.Errorf("accept-all text wrong:\n%s", body)
	}
}

func TestRejectAllSerialization(t *testing.T) {
	path := createTestDOCX(t, `<w:p><w:r><w:t>The fee is $10 today.</w:t></w:r></w:p>`)

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	replaceIn(t, f, "$10", "$12")
	f.Document().RejectAll()
	parts := saveAndReadParts(t, f)

	body := parts["word/document.xml"]
	if strings.Contains(body, "$12") || !strings.Contains(body, "$10") {
		t.Errorf("reject-all text wrong:\n%s", body)
	}
}

func TestDrawingPreserved(t *testing.T) {
	path := createTestDOCX(t, `<w:p><w:r><w:t>before </w:t></w:r><w:r><w:drawing><wp:inline xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"><wp:extent cx="100" cy="100"/></wp:inline></w:drawing></w:r><w:r><w:t xml:space="preserve"> after target</w:t></w:r></w:p>`)

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	replaceIn(t, f, "target", "goal")
	parts := saveAndReadParts(t, f)

	if !strings.Contains(parts["word/document.xml"], "<w:drawing>") {
		t.Error("existing drawing lost on rebuild")
	}
}

func TestHeaderStoryLoadsAndRevises(t *testing.T) {
	tmpDir := t.TempDir()
	docxPath := filepath.Join(tmpDir, "test.docx")

	f, err := os.Create(docxPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(content))
	}
	write("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
  <Override PartName="/word/header1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"/>
</Types>`)
	write("_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`)
	write("word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body><w:p><w:r><w:t>Body text.</w:t></w:r></w:p></w:body>
</w:document>`)
	write("word/header1.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:hdr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:p><w:r><w:t>Acme Corp confidential</w:t></w:r></w:p></w:hdr>`)
	write("word/footer1.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:ftr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:p><w:r><w:t>Page footer</w:t></w:r></w:p></w:ftr>`)
	zw.Close()
	f.Close()

	file, err := Open(docxPath)
	if err != nil {
		t.Fatal(err)
	}

	var header, footer *document.Block
	for _, b := range file.Document().Blocks {
		switch b.Kind {
		case document.KindHeader:
			header = b
		case document.KindFooter:
			footer = b
		}
	}
	if header == nil || header.LiveText() != "Acme Corp confidential" {
		t.Fatalf("header block not loaded, got %+v", header)
	}
	if footer == nil || footer.LiveText() != "Page footer" {
		t.Fatalf("footer block not loaded, got %+v", footer)
	}

	replaceIn(t, file, "Acme Corp", "Initech")
	parts := saveAndReadParts(t, file)

	hdr := parts["word/header1.xml"]
	if !strings.Contains(hdr, "<w:ins ") || !strings.Contains(hdr, ">Initech<") {
		t.Errorf("header revision not serialized:\n%s", hdr)
	}
	if !strings.Contains(hdr, `<w:delText xml:space="preserve">Acme Corp</w:delText>`) {
		t.Errorf("header deletion not serialized:\n%s", hdr)
	}
	if parts["word/footer1.xml"] != `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:ftr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:p><w:r><w:t>Page footer</w:t></w:r></w:p></w:ftr>` {
		t.Errorf("untouched footer changed:\n%s", parts["word/footer1.xml"])
	}
}

func TestResaveAfterAcceptAll(t *testing.T) {
	path := createTestDOCX(t, `<w:p><w:r><w:t>The fee is $10 today.</w:t></w:r></w:p>`)

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	replaceIn(t, f, "$10", "$12")

	first := saveAndReadParts(t, f)
	if !strings.Contains(first["word/document.xml"], "<w:del ") {
		t.Fatalf("first save missing revision markup:\n%s", first["word/document.xml"])
	}

	f.Document().AcceptAll()
	second := saveAndReadParts(t, f)

	body := second["word/document.xml"]
	if strings.Contains(body, "<w:del") || strings.Contains(body, "<w:ins") {
		t.Errorf("save after accept-all still carries revision markup:\n%s", body)
	}
	if !strings.Contains(body, "$12") || strings.Contains(body, "$10") {
		t.Errorf("save after accept-all has wrong text:\n%s", body)
	}
}

func TestRepeatedWriteDoesNotDuplicateComments(t *testing.T) {
	path := createTestDOCX(t, `<w:p><w:r><w:t>Renewal is automatic unless cancelled.</w:t></w:r></w:p>`)

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	d := f.Document()
	p, err := match.Compile("automatic", match.Options{WholeWord: true})
	if err != nil {
		t.Fatal(err)
	}
	span, ok := p.Find(d)
	if !ok {
		t.Fatal("target not found")
	}
	if _, err := revise.CommentOn(d, span, "confirm current policy", "reviser", testDate); err != nil {
		t.Fatal(err)
	}

	saveAndReadParts(t, f)
	parts := saveAndReadParts(t, f)

	if got := strings.Count(parts["word/comments.xml"], "<w:comment "); got != 1 {
		t.Errorf("comments part has %d entries after two saves, want 1:\n%s", got, parts["word/comments.xml"])
	}
}

func TestHyperlinkTextMatchesAndSurvives(t *testing.T) {
	path := createTestDOCX(t, `<w:p><w:r><w:t xml:space="preserve">See </w:t></w:r><w:hyperlink r:id="rId5" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:r><w:t>the policy portal</w:t></w:r></w:hyperlink><w:r><w:t xml:space="preserve"> for details.</w:t></w:r></w:p>`)

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Document().LiveText(); got != "See the policy portal for details." {
		t.Fatalf("LiveText() = %q, hyperlink text not loaded", got)
	}

	replaceIn(t, f, "policy portal", "handbook")
	parts := saveAndReadParts(t, f)
	body := parts["word/document.xml"]

	if got := strings.Count(body, "<w:hyperlink"); got != 1 {
		t.Fatalf("output has %d hyperlink wrappers, want 1:\n%s", got, body)
	}
	if !strings.Contains(body, `r:id="rId5"`) {
		t.Errorf("hyperlink relationship lost:\n%s", body)
	}
	if !strings.Contains(body, `<w:delText xml:space="preserve">policy portal</w:delText>`) {
		t.Errorf("deletion inside hyperlink not serialized:\n%s", body)
	}
	if !strings.Contains(body, ">handbook<") {
		t.Errorf("replacement inside hyperlink not serialized:\n%s", body)
	}

	data := rezip(t, parts)
	reloaded, err := Load(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.Document().LiveText(); got != "See the handbook for details." {
		t.Errorf("reloaded LiveText() = %q", got)
	}
}

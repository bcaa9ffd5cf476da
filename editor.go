package redline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tsawler/redline/document"
	"github.com/tsawler/redline/docx"
	"github.com/tsawler/redline/grammar"
	"github.com/tsawler/redline/ops"
	"github.com/tsawler/redline/report"
	"github.com/tsawler/redline/revise"
)

// Editor provides a fluent interface for revising a DOCX document.
// Each configuration method returns a new Editor instance, making
// configuration safe to share and allowing method chaining. The underlying
// document is opened once, on the first terminal operation, and is shared by
// every Editor derived from the same Open or FromBytes call.
type Editor struct {
	// Source
	filename string
	source   []byte

	// Package, opened lazily
	file   *docx.File
	opened bool

	// Configuration
	options ReviseOptions

	// Accumulated error (fail-fast)
	err error

	// Warnings accumulated during processing
	warnings []Warning
}

// clone creates a shallow copy of the Editor with a deep copy of options.
// The opened package is shared: configuration forks, the document does not.
func (e *Editor) clone() *Editor {
	return &Editor{
		filename: e.filename,
		source:   e.source,
		file:     e.file,
		opened:   e.opened,
		options:  e.options.clone(),
		err:      e.err,
		warnings: append([]Warning(nil), e.warnings...),
	}
}

// ensureFile opens the package if not already open.
func (e *Editor) ensureFile() error {
	if e.err != nil {
		return e.err
	}
	if e.opened {
		return nil
	}
	switch {
	case e.filename != "":
		f, err := docx.Open(e.filename)
		if err != nil {
			e.err = fmt.Errorf("failed to open DOCX: %w", err)
			return e.err
		}
		e.file = f
	case e.source != nil:
		f, err := docx.Load(bytes.NewReader(e.source), int64(len(e.source)))
		if err != nil {
			e.err = fmt.Errorf("failed to open DOCX: %w", err)
			return e.err
		}
		e.file = f
	default:
		e.err = fmt.Errorf("no document specified")
		return e.err
	}
	e.opened = true
	return nil
}

// Author sets the name revisions and comments are attributed to.
func (e *Editor) Author(name string) *Editor {
	newEd := e.clone()
	newEd.options.author = name
	return newEd
}

// Date pins the revision timestamp. The zero value (the default) uses the
// time the pass runs; pinning it makes repeated runs byte-identical.
func (e *Editor) Date(t time.Time) *Editor {
	newEd := e.clone()
	newEd.options.date = t
	return newEd
}

// Classifier sets the grammar oracle consulted before each replacement. With
// no classifier every replacement is applied narrowly.
func (e *Editor) Classifier(c grammar.Classifier) *Editor {
	newEd := e.clone()
	newEd.options.classifier = c
	return newEd
}

// Logo supplies the image used by replace_with_logo operations, with its
// display size in millimetres. A height of zero preserves the image's aspect
// ratio.
func (e *Editor) Logo(data []byte, widthMM, heightMM float64) *Editor {
	newEd := e.clone()
	newEd.options.logo = append([]byte(nil), data...)
	newEd.options.logoSize = revise.SizeConstraint{WidthMM: widthMM, HeightMM: heightMM}
	return newEd
}

// Logger directs per-operation diagnostics to a structured logger.
func (e *Editor) Logger(l *slog.Logger) *Editor {
	newEd := e.clone()
	newEd.options.logger = l
	return newEd
}

// Document exposes the in-memory model for advanced use. Mutations made
// through the model are reflected in SaveAs output.
func (e *Editor) Document() (*document.Document, error) {
	if err := e.ensureFile(); err != nil {
		return nil, err
	}
	return e.file.Document(), nil
}

// Apply runs the operation list against the document, recording every change
// as a tracked revision. The manifest reports the outcome of each operation;
// skipped and failed operations also surface as warnings. The only error is a
// failure to open the document or a cancelled context.
func (e *Editor) Apply(ctx context.Context, operations []ops.Operation) (*ops.Manifest, []Warning, error) {
	if err := e.ensureFile(); err != nil {
		return nil, e.warnings, err
	}
	cfg := ops.Config{
		Author:     e.options.author,
		Date:       e.options.date,
		Classifier: e.options.classifier,
		Logo:       e.options.logo,
		LogoSize:   e.options.logoSize,
		Logger:     e.options.logger,
	}
	interp := ops.NewInterpreter(e.file.Document(), cfg)
	m, err := interp.Apply(ctx, operations)
	if m != nil {
		for _, r := range m.Results {
			if r.Status == ops.StatusApplied {
				continue
			}
			msg := fmt.Sprintf("%s %q %s", r.Action, r.Target, r.Status)
			if r.Reason != "" {
				msg += ": " + r.Reason
			}
			e.warnings = append(e.warnings, Warning{Operation: r.Index, Message: msg})
		}
	}
	return m, e.warnings, err
}

// ApplyJSON decodes a JSON operation list and applies it.
func (e *Editor) ApplyJSON(ctx context.Context, r io.Reader) (*ops.Manifest, []Warning, error) {
	operations, err := ops.DecodeOperations(r)
	if err != nil {
		return nil, e.warnings, err
	}
	return e.Apply(ctx, operations)
}

// AcceptAll resolves every tracked change in the document in favor of the
// edit, as a reviewer accepting each change would.
func (e *Editor) AcceptAll() *Editor {
	if err := e.ensureFile(); err != nil {
		return e
	}
	e.file.Document().AcceptAll()
	return e
}

// RejectAll resolves every tracked change against the edit, reconstructing
// the pre-edit document.
func (e *Editor) RejectAll() *Editor {
	if err := e.ensureFile(); err != nil {
		return e
	}
	e.file.Document().RejectAll()
	return e
}

// Text returns the document's visible text, one line per paragraph. Tracked
// deletions are excluded and tracked insertions included, matching what a
// reader of the revised document sees.
func (e *Editor) Text() (string, error) {
	if err := e.ensureFile(); err != nil {
		return "", err
	}
	return e.file.Document().LiveText(), nil
}

// SaveAs writes the revised package to a new file. Parts the pass never
// touched are copied through byte-for-byte.
func (e *Editor) SaveAs(filename string) error {
	if err := e.ensureFile(); err != nil {
		return err
	}
	return e.file.Save(filename)
}

// Write serializes the revised package to w.
func (e *Editor) Write(w io.Writer) error {
	if err := e.ensureFile(); err != nil {
		return err
	}
	return e.file.Write(w)
}

// WriteReport writes an HTML report for a manifest returned by Apply.
func (e *Editor) WriteReport(w io.Writer, m *ops.Manifest) error {
	return report.WriteHTML(w, e.reportMeta(), m)
}

// Summary returns a plain-text summary for a manifest returned by Apply.
func (e *Editor) Summary(m *ops.Manifest) string {
	return report.Text(e.reportMeta(), m)
}

func (e *Editor) reportMeta() report.Meta {
	meta := report.Meta{
		Source: e.filename,
		Author: e.options.author,
		Date:   e.options.date,
	}
	if meta.Source == "" {
		meta.Source = "(in-memory document)"
	}
	if meta.Author == "" {
		meta.Author = ops.DefaultAuthor
	}
	if meta.Date.IsZero() {
		meta.Date = time.Now().UTC()
	}
	for _, w := range e.warnings {
		meta.Warnings = append(meta.Warnings, w.String())
	}
	return meta
}

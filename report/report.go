// Package report renders the outcome of a revision pass for human review: an
// HTML table of every operation with its status, and a compact text summary
// suitable for logs and terminal output.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tsawler/redline/ops"
)

// Meta describes the revision pass being reported on.
type Meta struct {
	Source   string
	Output   string
	Author   string
	Date     time.Time
	Warnings []string
}

// Text returns a plain-text summary of the pass.
func Text(meta Meta, m *ops.Manifest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "revised %s", meta.Source)
	if meta.Output != "" {
		fmt.Fprintf(&b, " -> %s", meta.Output)
	}
	fmt.Fprintf(&b, ": %s\n", m.String())
	for _, r := range m.Results {
		fmt.Fprintf(&b, "  [%d] %s %q: %s", r.Index, r.Action, trim(r.Target, 60), r.Status)
		if r.Reason != "" {
			fmt.Fprintf(&b, " (%s)", r.Reason)
		}
		b.WriteByte('\n')
	}
	for _, w := range meta.Warnings {
		fmt.Fprintf(&b, "  warning: %s\n", w)
	}
	return b.String()
}

// WriteHTML writes a standalone HTML report.
func WriteHTML(w io.Writer, meta Meta, m *ops.Manifest) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	doc.AppendChild(root)

	head := element(atom.Head)
	root.AppendChild(head)
	title := element(atom.Title)
	title.AppendChild(text("Revision report"))
	head.AppendChild(title)
	style := element(atom.Style)
	style.AppendChild(text(reportCSS))
	head.AppendChild(style)

	body := element(atom.Body)
	root.AppendChild(body)

	h1 := element(atom.H1)
	h1.AppendChild(text("Revision report"))
	body.AppendChild(h1)

	p := element(atom.P)
	line := fmt.Sprintf("%s, revised by %s on %s", meta.Source, meta.Author,
		meta.Date.Format("2006-01-02 15:04 MST"))
	p.AppendChild(text(line))
	body.AppendChild(p)

	summary := element(atom.P)
	summary.AppendChild(text(m.String()))
	body.AppendChild(summary)

	table := element(atom.Table)
	body.AppendChild(table)
	table.AppendChild(headerRow("#", "Action", "Target", "Status", "Detail"))
	for _, r := range m.Results {
		tr := element(atom.Tr)
		tr.Attr = []html.Attribute{{Key: "class", Val: statusClass(r.Status)}}
		tr.AppendChild(cell(fmt.Sprintf("%d", r.Index)))
		tr.AppendChild(cell(r.Action.String()))
		tr.AppendChild(cell(trim(r.Target, 80)))
		tr.AppendChild(cell(r.Status.String()))
		tr.AppendChild(cell(r.Reason))
		table.AppendChild(tr)
	}

	if len(meta.Warnings) > 0 {
		h2 := element(atom.H2)
		h2.AppendChild(text("Warnings"))
		body.AppendChild(h2)
		ul := element(atom.Ul)
		body.AppendChild(ul)
		for _, warning := range meta.Warnings {
			li := element(atom.Li)
			li.AppendChild(text(warning))
			ul.AppendChild(li)
		}
	}

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	return nil
}

const reportCSS = `body{font-family:sans-serif;margin:2em}` +
	`table{border-collapse:collapse}` +
	`td,th{border:1px solid #ccc;padding:4px 8px;text-align:left}` +
	`tr.applied td{background:#e8f5e9}` +
	`tr.skipped td{background:#fffde7}` +
	`tr.failed td{background:#ffebee}`

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func cell(s string) *html.Node {
	td := element(atom.Td)
	td.AppendChild(text(s))
	return td
}

func headerRow(labels ...string) *html.Node {
	tr := element(atom.Tr)
	for _, l := range labels {
		th := element(atom.Th)
		th.AppendChild(text(l))
		tr.AppendChild(th)
	}
	return tr
}

func statusClass(s ops.Status) string {
	switch s {
	case ops.StatusApplied:
		return "applied"
	case ops.StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

func trim(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && s[cut]&0xc0 == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}

// Package match locates target text inside the live text of a document's
// blocks and maps the result back to run-aligned boundaries.
//
// Matching always operates on the flattened live text of one block at a time:
// deleted runs contribute nothing, so a span can never touch text retracted by
// an earlier tracked change. Literal targets are matched case-insensitively
// and on whole-word boundaries by default; both behaviors are controlled by
// [Options]. Pattern targets compile through Go's regexp package (RE2, so
// matching is linear-time) with an extra structural safety check on top; see
// Compile.
package match

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/tsawler/redline/document"
)

// Options controls how a target string is interpreted.
type Options struct {
	CaseSensitive bool // literal match respects case (default: fold)
	WholeWord     bool // match must sit on word boundaries
	Pattern       bool // target is a regular expression, not a literal
}

// Span is the resolved location of a match inside one block, expressed in
// run-relative byte offsets. StartRun/StartOff address the first matched byte;
// EndRun/EndOff address one past the last matched byte (EndOff is exclusive
// within the run at EndRun). Spans are ephemeral: any mutation of the block
// invalidates them, so they are recomputed per operation.
type Span struct {
	BlockID  int
	StartRun int
	StartOff int
	EndRun   int
	EndOff   int
	Text     string // the matched live text

	// FlatStart/FlatEnd are the match offsets in the block's flattened live
	// text, kept so callers can widen the span without re-flattening.
	FlatStart int
	FlatEnd   int
}

// Pattern is a compiled target ready for matching.
type Pattern struct {
	re        *regexp.Regexp
	wholeWord bool
}

// Compile prepares a target for matching. Literal targets are quoted and, by
// default, matched case-insensitively. Pattern targets must satisfy the
// bounded-pattern rules: they are rejected when they exceed maxPatternLen or
// contain nested unbounded repetition (see checkBounded). Compile never
// accepts an empty target.
func Compile(target string, opts Options) (*Pattern, error) {
	if target == "" {
		return nil, fmt.Errorf("empty target")
	}

	var expr string
	if opts.Pattern {
		if err := checkBounded(target); err != nil {
			return nil, err
		}
		expr = target
	} else {
		expr = regexp.QuoteMeta(norm.NFC.String(target))
	}
	if !opts.CaseSensitive {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compiling target: %w", err)
	}
	return &Pattern{re: re, wholeWord: opts.WholeWord}, nil
}

// Find returns the first occurrence of the pattern in document order, walking
// blocks in sequence and taking the leftmost match within a block. The second
// return value is false when the target does not occur; that is an expected
// outcome, not an error.
func (p *Pattern) Find(doc *document.Document) (Span, bool) {
	for _, b := range doc.Blocks {
		if span, ok := p.FindInBlock(b); ok {
			return span, true
		}
	}
	return Span{}, false
}

// FindInBlock returns the leftmost occurrence within one block's live text.
func (p *Pattern) FindInBlock(b *document.Block) (Span, bool) {
	return p.FindInBlockFrom(b, 0)
}

// FindInBlockFrom returns the leftmost occurrence at or after byte offset
// from in the block's flattened live text. Whole-document loops use the
// offset to resume past their own insertions instead of re-matching them.
func (p *Pattern) FindInBlockFrom(b *document.Block, from int) (Span, bool) {
	flat, segs := flatten(b)
	if flat == "" || from > len(flat) {
		return Span{}, false
	}

	pos := from
	if pos < 0 {
		pos = 0
	}
	for pos <= len(flat) {
		loc := p.re.FindStringIndex(flat[pos:])
		if loc == nil {
			return Span{}, false
		}
		start, end := pos+loc[0], pos+loc[1]
		if end == start {
			// Zero-width pattern match; step forward.
			_, w := utf8.DecodeRuneInString(flat[start:])
			pos = start + max(w, 1)
			continue
		}
		if !p.wholeWord || onWordBoundary(flat, start, end) {
			span, ok := spanBetween(b, segs, start, end)
			if ok {
				span.Text = flat[start:end]
				return span, true
			}
		}
		_, w := utf8.DecodeRuneInString(flat[start:])
		pos = start + max(w, 1)
	}
	return Span{}, false
}

// WidenInBlock builds a span covering [start, end) of the block's current
// flattened live text. The interpreter uses it to grow a narrow match to its
// containing sentence.
func WidenInBlock(b *document.Block, start, end int) (Span, bool) {
	flat, segs := flatten(b)
	if start < 0 || end > len(flat) || start >= end {
		return Span{}, false
	}
	span, ok := spanBetween(b, segs, start, end)
	if ok {
		span.Text = flat[start:end]
	}
	return span, ok
}

// LiveText returns the flattened live text of a block, the same string that
// spans' flat offsets index into.
func LiveText(b *document.Block) string {
	flat, _ := flatten(b)
	return flat
}

// segment maps a contiguous range of flattened text back to its run.
type segment struct {
	run   int // run index in Block.Runs
	start int // offset of the run's first byte in the flattened text
	end   int // offset one past the run's last byte
}

// flatten concatenates the live runs of a block and records, per live run,
// where its text landed in the flattened string.
func flatten(b *document.Block) (string, []segment) {
	var sb strings.Builder
	var segs []segment
	for i := range b.Runs {
		r := &b.Runs[i]
		if !r.Live() || r.Text == "" {
			continue
		}
		start := sb.Len()
		sb.WriteString(r.Text)
		segs = append(segs, segment{run: i, start: start, end: sb.Len()})
	}
	return sb.String(), segs
}

// spanBetween translates flat offsets [start, end) into run-relative
// boundaries using the segment table.
func spanBetween(b *document.Block, segs []segment, start, end int) (Span, bool) {
	span := Span{BlockID: b.ID, FlatStart: start, FlatEnd: end}
	startOK, endOK := false, false
	for _, s := range segs {
		if !startOK && start >= s.start && start < s.end {
			span.StartRun = s.run
			span.StartOff = start - s.start
			startOK = true
		}
		if !endOK && end > s.start && end <= s.end {
			span.EndRun = s.run
			span.EndOff = end - s.start
			endOK = true
		}
	}
	return span, startOK && endOK
}

// onWordBoundary reports whether flat[start:end] sits on word boundaries,
// where a word character is a letter or a digit. This deliberately uses the
// alphanumeric-vs-other transition rule rather than locale-aware
// tokenization.
func onWordBoundary(flat string, start, end int) bool {
	if start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(flat[:start])
		first, _ := utf8.DecodeRuneInString(flat[start:])
		if isWordRune(prev) && isWordRune(first) {
			return false
		}
	}
	if end < len(flat) {
		last, _ := utf8.DecodeLastRuneInString(flat[:end])
		next, _ := utf8.DecodeRuneInString(flat[end:])
		if isWordRune(last) && isWordRune(next) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

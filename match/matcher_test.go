package match

import (
	"errors"
	"testing"

	"github.com/tsawler/redline/document"
)

func blockOf(runs ...document.Run) *document.Block {
	return &document.Block{ID: 1, Runs: runs}
}

func TestFindInBlock(t *testing.T) {
	tests := []struct {
		name      string
		runs      []document.Run
		target    string
		opts      Options
		wantFound bool
		wantText  string
	}{
		{
			name:      "literal within one run",
			runs:      []document.Run{{Text: "The quick brown fox"}},
			target:    "quick",
			opts:      Options{WholeWord: true},
			wantFound: true,
			wantText:  "quick",
		},
		{
			name: "literal across run boundary",
			runs: []document.Run{
				{Text: "The qui", Props: "<w:rPr><w:b/></w:rPr>"},
				{Text: "ck brown fox"},
			},
			target:    "quick",
			opts:      Options{WholeWord: true},
			wantFound: true,
			wantText:  "quick",
		},
		{
			name:      "case folded by default",
			runs:      []document.Run{{Text: "ACME Corp shall comply"}},
			target:    "acme corp",
			opts:      Options{WholeWord: true},
			wantFound: true,
			wantText:  "ACME Corp",
		},
		{
			name:      "case sensitive when asked",
			runs:      []document.Run{{Text: "ACME Corp shall comply"}},
			target:    "acme corp",
			opts:      Options{CaseSensitive: true, WholeWord: true},
			wantFound: false,
		},
		{
			name:      "whole word rejects substring",
			runs:      []document.Run{{Text: "filed under category nine"}},
			target:    "cat",
			opts:      Options{WholeWord: true},
			wantFound: false,
		},
		{
			name:      "substring allowed without whole word",
			runs:      []document.Run{{Text: "filed under category nine"}},
			target:    "cat",
			opts:      Options{},
			wantFound: true,
			wantText:  "cat",
		},
		{
			name: "deleted text is never matched",
			runs: []document.Run{
				{Text: "fee: "},
				{Text: "$10", Rev: &document.RevisionTag{ID: 1, Kind: document.Deleted}},
				{Text: "$12", Rev: &document.RevisionTag{ID: 2, Kind: document.Inserted}},
			},
			target:    "$10",
			opts:      Options{},
			wantFound: false,
		},
		{
			name: "inserted text is matchable",
			runs: []document.Run{
				{Text: "fee: "},
				{Text: "$12", Rev: &document.RevisionTag{ID: 2, Kind: document.Inserted}},
			},
			target:    "$12",
			opts:      Options{},
			wantFound: true,
			wantText:  "$12",
		},
		{
			name:      "pattern mode",
			runs:      []document.Run{{Text: "effective 2026-01-15 unless revoked"}},
			target:    `\d{4}-\d{2}-\d{2}`,
			opts:      Options{Pattern: true},
			wantFound: true,
			wantText:  "2026-01-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.target, tt.opts)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			span, found := p.FindInBlock(blockOf(tt.runs...))
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if found && span.Text != tt.wantText {
				t.Errorf("matched %q, want %q", span.Text, tt.wantText)
			}
		})
	}
}

func TestFindInBlockFrom(t *testing.T) {
	b := blockOf(document.Run{Text: "cat and cat and cat"})
	p, err := Compile("cat", Options{WholeWord: true})
	if err != nil {
		t.Fatal(err)
	}

	first, ok := p.FindInBlock(b)
	if !ok || first.FlatStart != 0 {
		t.Fatalf("first match at %d, want 0", first.FlatStart)
	}
	second, ok := p.FindInBlockFrom(b, first.FlatEnd)
	if !ok || second.FlatStart != 8 {
		t.Fatalf("second match at %d, want 8", second.FlatStart)
	}
}

func TestCompileRejectsUnboundedNesting(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{"nested star", `(a+)+`, true},
		{"nested plus under star", `(\w+)*`, true},
		{"alternation inside repeat", `(a|aa)+b`, false},
		{"bounded nesting", `(a{1,3}){1,3}`, false},
		{"plain repeat", `\d+`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.pattern, Options{Pattern: true})
			if tt.wantErr {
				if !errors.Is(err, ErrPatternRejected) {
					t.Errorf("Compile(%q) error = %v, want ErrPatternRejected", tt.pattern, err)
				}
			} else if err != nil {
				t.Errorf("Compile(%q) unexpected error: %v", tt.pattern, err)
			}
		})
	}
}

func TestCompileRejectsEmptyAndOverlongTargets(t *testing.T) {
	if _, err := Compile("", Options{}); err == nil {
		t.Error("empty target should not compile")
	}
	long := make([]byte, maxPatternLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := Compile(string(long), Options{Pattern: true}); !errors.Is(err, ErrPatternRejected) {
		t.Error("overlong pattern should be rejected")
	}
}

func TestSpanBoundaries(t *testing.T) {
	b := blockOf(
		document.Run{Text: "alpha "},
		document.Run{Text: "beta"},
		document.Run{Text: " gamma"},
	)
	p, err := Compile("beta", Options{WholeWord: true})
	if err != nil {
		t.Fatal(err)
	}
	span, ok := p.FindInBlock(b)
	if !ok {
		t.Fatal("no match")
	}
	if span.StartRun != 1 || span.StartOff != 0 {
		t.Errorf("start = run %d off %d, want run 1 off 0", span.StartRun, span.StartOff)
	}
	if span.EndRun != 1 || span.EndOff != 4 {
		t.Errorf("end = run %d off %d, want run 1 off 4", span.EndRun, span.EndOff)
	}
}

func TestSentenceAround(t *testing.T) {
	tests := []struct {
		name string
		text string
		sub  string
		want string
	}{
		{
			name: "middle sentence",
			text: "First point. Access expires in <24 hours> after notice. Final point.",
			sub:  "<24 hours>",
			want: "Access expires in <24 hours> after notice.",
		},
		{
			name: "first sentence",
			text: "The term ends today. More follows.",
			sub:  "term",
			want: "The term ends today.",
		},
		{
			name: "no terminator runs to block end",
			text: "a bare heading with no period",
			sub:  "heading",
			want: "a bare heading with no period",
		},
		{
			name: "closing quote stays inside",
			text: `He wrote "stop now." Then left.`,
			sub:  "stop",
			want: `He wrote "stop now."`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := indexOf(t, tt.text, tt.sub)
			s, e := SentenceAround(tt.text, at, at+len(tt.sub))
			if got := tt.text[s:e]; got != tt.want {
				t.Errorf("SentenceAround() = %q, want %q", got, tt.want)
			}
		})
	}
}

func indexOf(t *testing.T, s, sub string) int {
	t.Helper()
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	t.Fatalf("%q not in %q", sub, s)
	return -1
}

package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tsawler/redline/document"
	"github.com/tsawler/redline/grammar"
	"github.com/tsawler/redline/match"
	"github.com/tsawler/redline/revise"
)

// Error taxonomy for per-operation failures. These surface through
// Result.Err; none of them aborts the batch.
var (
	// ErrTargetNotFound reports a replace or delete whose target does not
	// occur in the document's live text.
	ErrTargetNotFound = errors.New("target not found")
	// ErrInvalidOperation reports a structurally bad operation: an
	// unrecognized action, or a replace with an empty replacement.
	ErrInvalidOperation = errors.New("invalid operation")
)

// maxWholeDocument caps the iterations of a whole-document loop so a
// degenerate operation (a replacement containing its own target, say) cannot
// spin forever.
const maxWholeDocument = 1000

// Config configures an Interpreter.
type Config struct {
	// Author attributes revisions. Empty means DefaultAuthor.
	Author string
	// Date is the revision timestamp. The zero value means "now"; tests pin
	// it so output is reproducible. Matching never consults the clock, so a
	// pinned date makes two runs over the same inputs byte-identical.
	Date time.Time
	// Classifier decides narrow-versus-sentence substitution for replace
	// operations. Nil means every replacement is applied narrowly.
	Classifier grammar.Classifier
	// Logo and LogoSize configure replace_with_logo operations. Operations
	// of that kind fail when Logo is empty.
	Logo     []byte
	LogoSize revise.SizeConstraint
	// Logger receives per-operation diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// Interpreter applies operation lists to a single document. The document is
// exclusively owned by the interpreter for the duration of a run; operations
// are applied strictly sequentially and never concurrently.
type Interpreter struct {
	doc *document.Document
	cfg Config
}

// NewInterpreter creates an interpreter over doc.
func NewInterpreter(doc *document.Document, cfg Config) *Interpreter {
	if cfg.Author == "" {
		cfg.Author = DefaultAuthor
	}
	if cfg.Date.IsZero() {
		cfg.Date = time.Now().UTC().Truncate(time.Second)
	}
	return &Interpreter{doc: doc, cfg: cfg}
}

// Apply runs every operation in order and returns the manifest. Individual
// operation failures are recorded in the manifest, not returned; the only
// error Apply itself returns is context cancellation.
func (it *Interpreter) Apply(ctx context.Context, operations []Operation) (*Manifest, error) {
	m := &Manifest{Results: make([]Result, 0, len(operations))}
	for i, op := range operations {
		if err := ctx.Err(); err != nil {
			return m, err
		}
		res := it.applyOne(ctx, i, op)
		if it.cfg.Logger != nil {
			it.cfg.Logger.Info("operation concluded",
				"index", res.Index,
				"action", res.Action.String(),
				"target", res.Target,
				"status", res.Status.String(),
				"reason", res.Reason,
			)
		}
		m.Results = append(m.Results, res)
	}
	return m, nil
}

// applyOne drives a single operation through resolve, widen, and apply.
func (it *Interpreter) applyOne(ctx context.Context, index int, op Operation) Result {
	res := Result{Index: index, Action: op.Action, Target: op.Target}

	if err := it.checkOperation(op); err != nil {
		if op.Action == ActionComment && errors.Is(err, errEmptyBody) {
			res.Status = StatusSkipped
			res.Reason = "empty comment body"
			return res
		}
		res.Status = StatusFailed
		res.Reason = err.Error()
		res.Err = err
		return res
	}

	pattern, err := match.Compile(op.Target, op.Match)
	if err != nil {
		res.Status = StatusFailed
		if errors.Is(err, match.ErrPatternRejected) {
			res.Err = err
		} else {
			res.Err = fmt.Errorf("%w: %v", ErrInvalidOperation, err)
		}
		res.Reason = res.Err.Error()
		return res
	}

	if op.WholeDocument && (op.Action == ActionReplace || op.Action == ActionDelete) {
		return it.applyEverywhere(ctx, res, op, pattern)
	}

	span, found := pattern.Find(it.doc)
	if !found {
		return it.concludeNotFound(res, op)
	}
	if _, err := it.dispatch(ctx, op, span); err != nil {
		res.Status = StatusFailed
		res.Reason = err.Error()
		res.Err = err
		return res
	}
	res.Status = StatusApplied
	res.Applied = 1
	return res
}

// applyEverywhere loops a replace or delete over each occurrence in document
// order. The search resumes past each mutation so the operation never
// re-matches text it inserted itself.
func (it *Interpreter) applyEverywhere(ctx context.Context, res Result, op Operation, pattern *match.Pattern) Result {
	applied := 0
	for _, b := range it.doc.Blocks {
		from := 0
		for applied < maxWholeDocument {
			span, found := pattern.FindInBlockFrom(b, from)
			if !found {
				break
			}
			resume, err := it.dispatch(ctx, op, span)
			if err != nil {
				res.Status = StatusFailed
				res.Reason = err.Error()
				res.Err = err
				res.Applied = applied
				return res
			}
			applied++
			from = resume
		}
	}
	res.Applied = applied
	if applied == 0 {
		return it.concludeNotFound(res, op)
	}
	res.Status = StatusApplied
	return res
}

// concludeNotFound classifies a missing target. Comment operations and
// operations marked expect_missing conclude as expected no-ops: their target
// was typically consumed by an earlier edit or the record declares no change
// is needed. A missing replace or delete target means the operation list has
// drifted from the document, which is worth failing loudly.
func (it *Interpreter) concludeNotFound(res Result, op Operation) Result {
	if op.ExpectMissing || op.Action == ActionComment {
		res.Status = StatusSkipped
		res.Reason = "target not present"
		return res
	}
	res.Status = StatusFailed
	res.Err = fmt.Errorf("%w: %q", ErrTargetNotFound, op.Target)
	res.Reason = res.Err.Error()
	return res
}

var errEmptyBody = fmt.Errorf("%w: comment with empty body", ErrInvalidOperation)

// checkOperation rejects structurally invalid operations before any matching.
func (it *Interpreter) checkOperation(op Operation) error {
	switch op.Action {
	case ActionReplace:
		if op.Replacement == "" {
			return fmt.Errorf("%w: replace with empty replacement", ErrInvalidOperation)
		}
	case ActionDelete:
	case ActionComment:
		if op.Comment == "" {
			return errEmptyBody
		}
	case ActionReplaceImage:
		if len(it.cfg.Logo) == 0 {
			return fmt.Errorf("%w: no logo image configured", ErrInvalidOperation)
		}
		if it.cfg.LogoSize.WidthMM <= 0 {
			return fmt.Errorf("%w: logo width must be positive", ErrInvalidOperation)
		}
	default:
		return fmt.Errorf("%w: unrecognized action %q", ErrInvalidOperation, op.rawAction)
	}
	return nil
}

// dispatch applies one resolved operation to its span. The returned offset is
// the position in the block's flattened live text just past the applied
// change, where a whole-document loop should resume searching so it never
// re-matches text the operation itself inserted.
func (it *Interpreter) dispatch(ctx context.Context, op Operation, span match.Span) (int, error) {
	switch op.Action {
	case ActionReplace:
		span, replacement := it.widen(ctx, op, span)
		del, _, err := revise.Replace(it.doc, span, replacement, it.cfg.Author, it.cfg.Date)
		if err != nil {
			return 0, err
		}
		revise.Attach(it.doc, del, op.Comment, op.CommentAuthor, it.cfg.Date)
		return span.FlatStart + len(replacement), nil

	case ActionDelete:
		del, err := revise.Delete(it.doc, span, it.cfg.Author, it.cfg.Date)
		if err != nil {
			return 0, err
		}
		revise.Attach(it.doc, del, op.Comment, op.CommentAuthor, it.cfg.Date)
		return span.FlatStart, nil

	case ActionComment:
		_, err := revise.CommentOn(it.doc, span, op.Comment, op.CommentAuthor, it.cfg.Date)
		return span.FlatEnd, err

	case ActionReplaceImage:
		del, _, err := revise.SubstituteImage(it.doc, span, it.cfg.Logo, it.cfg.LogoSize, it.cfg.Author, it.cfg.Date)
		if err != nil {
			return 0, err
		}
		revise.Attach(it.doc, del, op.Comment, op.CommentAuthor, it.cfg.Date)
		return span.FlatStart, nil
	}
	return 0, fmt.Errorf("%w: unrecognized action", ErrInvalidOperation)
}

// widen consults the grammar classifier and, when the narrow substitution is
// unsafe, grows the span to the containing sentence and swaps the replacement
// for the rewritten sentence. Widening happens at most once per operation.
// Classifier transport failures fall back to the narrow substitution with a
// logged warning.
func (it *Interpreter) widen(ctx context.Context, op Operation, span match.Span) (match.Span, string) {
	if it.cfg.Classifier == nil || op.Match.Pattern {
		return span, op.Replacement
	}
	b := it.doc.Block(span.BlockID)
	flat := match.LiveText(b)
	s, e := match.SentenceAround(flat, span.FlatStart, span.FlatEnd)
	if s == span.FlatStart && e == span.FlatEnd {
		// The match already is the whole sentence.
		return span, op.Replacement
	}

	decision, err := it.cfg.Classifier.Classify(ctx, grammar.Request{
		Target:      span.Text,
		Sentence:    flat[s:e],
		Replacement: op.Replacement,
	})
	if err != nil {
		if it.cfg.Logger != nil {
			it.cfg.Logger.Warn("grammar classification failed, applying narrow substitution",
				"target", op.Target, "error", err)
		}
		return span, op.Replacement
	}
	if decision.Verdict != grammar.NeedsSentenceRewrite {
		return span, op.Replacement
	}

	wide, ok := match.WidenInBlock(b, s, e)
	if !ok {
		return span, op.Replacement
	}
	return wide, decision.Rewritten
}

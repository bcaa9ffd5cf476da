// Package grammar defines the boundary to the grammar-compatibility
// collaborator.
//
// When an operation targets an entity placeholder, substituting the
// replacement value narrowly can leave the surrounding sentence ungrammatical
// ("is set at <24 business hours>" does not survive the value "immediately").
// The engine does not reason about natural language itself; it asks a
// [Classifier] whether the narrow substitution is safe, and if not, receives
// a rewritten form of the whole sentence to substitute instead.
//
// [Static] is a deterministic in-memory classifier for tests and offline
// runs; [BedrockClassifier] is the production implementation backed by a
// language model.
package grammar

import "context"

// Verdict is the classifier's two-case answer.
type Verdict int

const (
	// NarrowOK means the replacement can substitute for the target alone.
	NarrowOK Verdict = iota
	// NeedsSentenceRewrite means the whole containing sentence must be
	// replaced with Decision.Rewritten to stay grammatical.
	NeedsSentenceRewrite
)

// Request describes one candidate substitution.
type Request struct {
	Target      string // the text the operation matched
	Sentence    string // the full sentence containing the match
	Replacement string // the proposed replacement for the target
}

// Decision is the classifier's answer. Rewritten is populated only when
// Verdict is NeedsSentenceRewrite and carries the complete replacement for
// Request.Sentence.
type Decision struct {
	Verdict   Verdict
	Rewritten string
}

// Classifier decides whether a narrow substitution is grammatically safe.
// Implementations must be pure with respect to the document: the same request
// always yields the same decision within one run.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Decision, error)
}

// Static is a deterministic Classifier backed by a fixed table keyed by
// target text. Targets not in the table are NarrowOK. The zero value answers
// NarrowOK for everything.
type Static struct {
	Rewrites map[string]string // target -> rewritten sentence
}

// Classify implements Classifier.
func (s *Static) Classify(_ context.Context, req Request) (Decision, error) {
	if s != nil && s.Rewrites != nil {
		if rewritten, ok := s.Rewrites[req.Target]; ok {
			return Decision{Verdict: NeedsSentenceRewrite, Rewritten: rewritten}, nil
		}
	}
	return Decision{Verdict: NarrowOK}, nil
}

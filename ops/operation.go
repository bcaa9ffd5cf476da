// Package ops interprets an ordered list of declarative edit operations
// against a document, recording every change as a tracked revision.
//
// Operations are applied strictly in list order; later operations match only
// the live text left behind by earlier ones, which is what prevents two
// operations from double-editing the same span. Each operation runs through a
// small state machine (resolve the target, optionally widen to the containing
// sentence, apply, or conclude skipped/failed) and contributes one entry to
// the run's [Manifest] so a reviewer can see which of the requested edits
// actually landed.
package ops

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tsawler/redline/match"
)

// Action is the closed set of operation kinds. The zero value is invalid so
// that an unrecognized action in a decoded record cannot masquerade as a real
// one.
type Action int

const (
	ActionInvalid Action = iota
	ActionReplace
	ActionDelete
	ActionComment
	ActionReplaceImage
)

// String returns the wire name of the action.
func (a Action) String() string {
	switch a {
	case ActionReplace:
		return "replace"
	case ActionDelete:
		return "delete"
	case ActionComment:
		return "comment"
	case ActionReplaceImage:
		return "replace_with_logo"
	default:
		return "invalid"
	}
}

// DefaultAuthor attributes operations whose record carries no author.
const DefaultAuthor = "policy assistant"

// Operation is one immutable edit instruction.
type Operation struct {
	Action        Action
	Target        string
	Replacement   string
	Comment       string
	CommentAuthor string
	Match         match.Options
	WholeDocument bool // loop over every occurrence instead of the first
	ExpectMissing bool // a missing target is an expected no-op, not a failure

	rawAction string // preserved for diagnostics when Action is invalid
}

// record is the wire form of an operation as produced by the external
// generation collaborator. Literal matching is case-insensitive and
// whole-word unless the record says otherwise, so the booleans that default
// to true are pointers.
type record struct {
	Target        string `json:"target_text"`
	Action        string `json:"action"`
	Replacement   string `json:"replacement"`
	Comment       string `json:"comment"`
	CommentAuthor string `json:"comment_author"`
	MatchCase     bool   `json:"match_case"`
	WholeWord     *bool  `json:"whole_word"`
	Wildcards     bool   `json:"wildcards"`
	WholeDocument bool   `json:"whole_document"`
	ExpectMissing bool   `json:"expect_missing"`
}

// DecodeOperations reads a JSON array of operation records. Records with an
// unrecognized action decode to Action == ActionInvalid rather than failing
// the list; the interpreter reports them individually so one malformed record
// cannot sink the batch.
func DecodeOperations(r io.Reader) ([]Operation, error) {
	var records []record
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding operation list: %w", err)
	}

	out := make([]Operation, 0, len(records))
	for _, rec := range records {
		op := Operation{
			Target:        rec.Target,
			Replacement:   rec.Replacement,
			Comment:       rec.Comment,
			CommentAuthor: rec.CommentAuthor,
			WholeDocument: rec.WholeDocument,
			ExpectMissing: rec.ExpectMissing,
			rawAction:     rec.Action,
			Match: match.Options{
				CaseSensitive: rec.MatchCase,
				WholeWord:     rec.WholeWord == nil || *rec.WholeWord,
				Pattern:       rec.Wildcards,
			},
		}
		if op.CommentAuthor == "" {
			op.CommentAuthor = DefaultAuthor
		}
		switch rec.Action {
		case "replace":
			op.Action = ActionReplace
		case "delete":
			op.Action = ActionDelete
		case "comment":
			op.Action = ActionComment
		case "replace_with_logo":
			op.Action = ActionReplaceImage
		}
		out = append(out, op)
	}
	return out, nil
}

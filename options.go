package redline

import (
	"log/slog"
	"time"

	"github.com/tsawler/redline/grammar"
	"github.com/tsawler/redline/revise"
)

// ReviseOptions holds configuration for a revision pass.
type ReviseOptions struct {
	// Attribution
	author string
	date   time.Time // zero means the time the pass runs

	// Sentence widening
	classifier grammar.Classifier

	// Logo substitution
	logo     []byte
	logoSize revise.SizeConstraint

	// Diagnostics
	logger *slog.Logger
}

// defaultOptions returns the default revision options.
func defaultOptions() ReviseOptions {
	return ReviseOptions{
		author:     "", // empty defers to the interpreter's default author
		classifier: nil,
		logger:     nil,
	}
}

// clone creates a deep copy of ReviseOptions.
func (o ReviseOptions) clone() ReviseOptions {
	newOpts := ReviseOptions{
		author:     o.author,
		date:       o.date,
		classifier: o.classifier,
		logoSize:   o.logoSize,
		logger:     o.logger,
	}

	// Deep copy logo bytes
	if o.logo != nil {
		newOpts.logo = make([]byte, len(o.logo))
		copy(newOpts.logo, o.logo)
	}

	return newOpts
}

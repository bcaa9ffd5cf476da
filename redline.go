// Package redline provides a fluent API for applying tracked revisions to
// Word documents: targeted replacements, deletions, margin comments, and
// image substitutions, each recorded as an attributable tracked change that a
// reviewer can accept or reject individually.
//
// Basic usage:
//
//	manifest, warnings, err := redline.Open("policy.docx").
//	    Author("compliance bot").
//	    Apply(ctx, operations)
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", redline.FormatWarnings(warnings))
//	}
//
// Operations are usually decoded from a JSON list:
//
//	operations, err := ops.DecodeOperations(file)
//
// With a grammar classifier, replacements that would leave a sentence
// ungrammatical are widened to a full-sentence rewrite:
//
//	classifier, err := grammar.NewBedrockClassifier(ctx, cfg)
//	if err != nil {
//	    // handle error
//	}
//	manifest, _, err := redline.Open("policy.docx").
//	    Classifier(classifier).
//	    Apply(ctx, operations)
//
// For advanced use cases, the lower-level docx and document packages are also
// available.
package redline

import (
	"github.com/tsawler/redline/ops"
)

// Open opens a DOCX file and returns an Editor for fluent configuration.
// The file is read lazily: errors surface on the first terminal operation.
//
// Example:
//
//	manifest, warnings, err := redline.Open("contract.docx").Apply(ctx, operations)
func Open(filename string) *Editor {
	return &Editor{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromBytes creates an Editor over an in-memory DOCX package.
//
// Example:
//
//	manifest, _, err := redline.FromBytes(data).Apply(ctx, operations)
func FromBytes(data []byte) *Editor {
	return &Editor{
		source:  append([]byte(nil), data...),
		options: defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	text := redline.Must(redline.Open("contract.docx").Text())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustApply is a helper that wraps a call to Apply and panics if the error is
// non-nil. It discards warnings and returns just the manifest. It is intended
// for use in scripts or tests where error handling would be cumbersome.
//
// Example:
//
//	manifest := redline.MustApply(redline.Open("contract.docx").Apply(ctx, operations))
func MustApply(m *ops.Manifest, _ []Warning, err error) *ops.Manifest {
	if err != nil {
		panic(err)
	}
	return m
}

// Package document provides the in-memory representation of a revision-tracked
// rich-text document.
//
// This package defines the data structures the rest of the engine operates on.
// Loading a DOCX file produces these types, the operation interpreter mutates
// them, and the serializer writes them back out.
//
// # Structure
//
// A [Document] owns an ordered sequence of [Block] values. A Block is a
// paragraph-level container (body paragraph, table cell, header or footer
// paragraph) holding an ordered sequence of [Run] values. A Run is the unit of
// formatting: a text payload plus an opaque formatting descriptor carried
// through from the source file without interpretation.
//
// # Revisions
//
// Edits are never applied in place. Instead, runs are split at edit boundaries
// and marked with a [RevisionTag] as tracked-inserted or tracked-deleted.
// Deleted runs stay in the document but are excluded from the "live" text that
// later edits match against. [Document.AcceptAll] and [Document.RejectAll]
// resolve all outstanding revisions in either direction.
//
// # Identity
//
// Blocks are addressed by stable integer IDs assigned at creation, and comment
// threads reference their anchor revision by revision ID rather than by
// pointer, so run splitting never leaves dangling references.
package document

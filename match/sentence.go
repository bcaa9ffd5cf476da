package match

import "unicode/utf8"

// SentenceAround returns the bounds of the sentence containing [start, end)
// within text. A sentence runs from just past the previous terminator (or the
// start of the block) through the next terminator, including any closing
// quote or bracket that follows it. Leading whitespace is excluded so the
// widened span never swallows the gap between sentences.
//
// The rule is intentionally simple: terminators are '.', '!' and '?'. Block
// text in this format carries no abbreviation metadata, and the widened span
// is handed to a human-reviewed rewrite anyway, so over-splitting is
// acceptable and under-splitting is not.
func SentenceAround(text string, start, end int) (int, int) {
	if start < 0 || end > len(text) || start > end {
		return 0, len(text)
	}

	s := 0
	for i := start; i > 0; {
		r, w := utf8.DecodeLastRuneInString(text[:i])
		if isTerminator(r) {
			s = i
			break
		}
		i -= w
	}
	for s < len(text) {
		r, w := utf8.DecodeRuneInString(text[s:])
		if r != ' ' && r != '\t' {
			break
		}
		s += w
	}

	e := len(text)
	for i := end; i < len(text); {
		r, w := utf8.DecodeRuneInString(text[i:])
		i += w
		if isTerminator(r) {
			// Include a closing quote or bracket hugging the terminator.
			for i < len(text) {
				nr, nw := utf8.DecodeRuneInString(text[i:])
				if !isClosing(nr) {
					break
				}
				i += nw
			}
			e = i
			break
		}
	}
	if s >= e {
		return 0, len(text)
	}
	return s, e
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isClosing(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

package match

import (
	"errors"
	"fmt"
	"regexp/syntax"
)

// maxPatternLen caps the source length of a pattern target. Operation lists
// are machine-generated; anything longer than this is a generation fault.
const maxPatternLen = 512

// ErrPatternRejected reports a pattern target that failed the bounded-pattern
// rules: invalid syntax, excessive length, or nested unbounded repetition.
var ErrPatternRejected = errors.New("pattern rejected")

// checkBounded validates a pattern target before compilation. Go's regexp is
// RE2 and cannot backtrack, but a pattern like (a+)+ still signals a broken
// generator and would behave pathologically on engines that reviewers may run
// the same list through, so nested unbounded repetition is rejected outright.
func checkBounded(pattern string) error {
	if len(pattern) > maxPatternLen {
		return fmt.Errorf("%w: longer than %d bytes", ErrPatternRejected, maxPatternLen)
	}
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPatternRejected, err)
	}
	if nestedRepeat(re, false) {
		return fmt.Errorf("%w: nested unbounded repetition", ErrPatternRejected)
	}
	return nil
}

// nestedRepeat walks the parsed pattern and reports whether an unbounded
// repetition occurs inside another one.
func nestedRepeat(re *syntax.Regexp, inRepeat bool) bool {
	unbounded := false
	switch re.Op {
	case syntax.OpStar, syntax.OpPlus:
		unbounded = true
	case syntax.OpRepeat:
		unbounded = re.Max < 0
	}
	if unbounded && inRepeat {
		return true
	}
	for _, sub := range re.Sub {
		if nestedRepeat(sub, inRepeat || unbounded) {
			return true
		}
	}
	return false
}

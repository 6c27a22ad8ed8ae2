/*
Package regex defines the boundary between the tokenizer and a backtracking regular expression engine.

An Engine compiles an ordered list of pattern sources into a Scanner,
the Scanner finds the earliest match of any pattern starting at a given position.
All positions are rune offsets.

Default engine is based on github.com/dlclark/regexp2 with Oniguruma-specific syntax translated where possible.
*/
package regex

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Capture is a rune range of a capturing group, Start and End are -1 for groups that did not participate in the match.
type Capture struct {
	Start, End int
}

func (c Capture) Matched() bool {
	return c.Start >= 0
}

func (c Capture) Len() int {
	if c.Start < 0 {
		return 0
	}
	return c.End - c.Start
}

// Match describes a successful match.
type Match struct {
	// Index is the index of matched pattern in the compiled list.
	Index int

	// Captures are indexed by group number, Captures[0] is the whole match.
	Captures []Capture
}

// Scanner finds the earliest match of any of its patterns.
type Scanner interface {
	// FindNextMatch returns the match with the smallest start offset not less than start,
	// ties are won by the pattern with the lower index; nil if nothing matches.
	// Non-nil error reports patterns that failed while matching, the match is still valid if not nil.
	FindNextMatch(line []rune, start int) (*Match, error)
}

// Engine compiles pattern lists.
type Engine interface {
	// Compile always returns a usable Scanner, patterns that failed to compile never match.
	// The error lists all failed patterns.
	Compile(sources []string) (Scanner, error)
}

// CompileError describes a single pattern that failed to compile.
type CompileError struct {
	Index  int
	Source string
	Cause  error
}

func (e *CompileError) Error() string {
	return "pattern #" + strconv.Itoa(e.Index) + " " + strconv.Quote(e.Source) + ": " + e.Cause.Error()
}

// CompileErrors is returned by Engine.Compile.
type CompileErrors []*CompileError

func (e CompileErrors) Error() string {
	messages := make([]string, len(e))
	for i, ce := range e {
		messages[i] = ce.Error()
	}
	return strings.Join(messages, "; ")
}

func compileErrors(errs CompileErrors) error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Compile compiles a single pattern, it returns an error if the pattern is invalid.
func Compile(engine Engine, source string) (Scanner, error) {
	s, e := engine.Compile([]string{source})
	if e != nil {
		return nil, errors.Wrap(e, "cannot compile regexp")
	}
	return s, nil
}

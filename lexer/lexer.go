/*
Package lexer is a grammar-driven line tokenizer.

A Registry holds grammars and the scope id codec shared by them.
Grammar.TokenizeLine splits a line into tags: non-negative tags are lengths (in runes) of text tokens,
odd negative tags open scopes, even negative tags close them (end id is always start id - 1).
The rule stack returned with tags is the state to pass when tokenizing the next line.

Tokenization never fails, malformed or looping grammars are handled with logged diagnostics.
Registry and its grammars are not safe for concurrent use.
*/
package lexer

import (
	"github.com/sirupsen/logrus"

	"github.com/ava12/tmlex/regex"
)

const (
	// maxCaptureDepth limits recursive tokenization of captures bound to nested patterns.
	maxCaptureDepth = 32

	// maxStalls is the number of consecutive iterations without forward progress after which
	// the rest of the line is left untokenized.
	maxStalls = 64
)

// Config holds registry-wide defaults, zero values mean no limits, default logger, and default engine.
type Config struct {
	// MaxTokensPerLine limits the number of text tokens per line unless a grammar sets its own limit.
	MaxTokensPerLine int

	// MaxLineLength limits the number of runes tokenized per line unless a grammar sets its own limit
	// or disables the limit.
	MaxLineLength int

	// Logger receives diagnostics.
	Logger logrus.FieldLogger

	// Engine compiles grammar regular expressions.
	Engine regex.Engine
}

func defaultLogger() logrus.FieldLogger {
	return logrus.WithField("subsys", "lexer")
}

// StackEntry is an active rule with the scopes it opened.
type StackEntry struct {
	rule             *rule
	scopeName        string
	contentScopeName string
	zeroWidthMatch   bool
	anchorPosition   int
}

func (e StackEntry) ScopeName() string {
	return e.scopeName
}

func (e StackEntry) ContentScopeName() string {
	return e.contentScopeName
}

// RuleStack is the tokenizer state carried between lines, the first entry belongs to the base grammar.
// Stacks returned by the tokenizer are never modified afterwards.
type RuleStack []StackEntry

func (s RuleStack) top() *StackEntry {
	return &s[len(s)-1]
}

func (s *RuleStack) push(e StackEntry) {
	*s = append(*s, e)
}

func (s *RuleStack) pop() StackEntry {
	last := len(*s) - 1
	e := (*s)[last]
	*s = (*s)[:last]
	return e
}

func (s RuleStack) clone() RuleStack {
	if s == nil {
		return nil
	}

	result := make(RuleStack, len(s))
	copy(result, s)
	return result
}

// Scopes returns names of scopes open at the end of the line, outermost first.
func (s RuleStack) Scopes() []string {
	var result []string
	for _, e := range s {
		if e.scopeName != "" {
			result = append(result, e.scopeName)
		}
		if e.contentScopeName != "" {
			result = append(result, e.contentScopeName)
		}
	}
	return result
}

// Equal reports whether both stacks hold the same rules with the same scopes.
func (s RuleStack) Equal(other RuleStack) bool {
	return len(s) == len(other) && s.commonPrefix(other) == len(s)
}

func (s RuleStack) commonPrefix(other RuleStack) int {
	i := 0
	for ; i < len(s) && i < len(other); i++ {
		a, b := s[i], other[i]
		if !sameRule(a.rule, b.rule) || a.scopeName != b.scopeName || a.contentScopeName != b.contentScopeName {
			break
		}
	}
	return i
}

func (s RuleStack) clearAnchors() {
	for i := range s {
		s[i].anchorPosition = -1
	}
}

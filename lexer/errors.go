package lexer

import (
	"github.com/ava12/tmlex"
	"github.com/ava12/tmlex/grammar"
)

// ScopeMismatchError indicates a closing tag that does not match the innermost open scope.
const ScopeMismatchError = tmlex.DecodeErrors

// Diagnostic codes, logged as "code" field and never returned:
const (
	// StallDiagnostic is logged when a rule makes no progress and is popped or the line is abandoned.
	StallDiagnostic = tmlex.TokenizeDiagnostics + iota

	// RegexpDiagnostic is logged when a pattern fails to compile or to match.
	RegexpDiagnostic
)

func scopeMismatchError(expected, got string) *tmlex.Error {
	return tmlex.FormatError(ScopeMismatchError, "expected popped scope to be %q, but it was %q", expected, got)
}

func badSelectorError(scopeName string, e error) *tmlex.Error {
	return tmlex.FormatError(grammar.BadSelectorError, "grammar %s: %s", scopeName, e.Error())
}

func badRegexpError(scopeName, src string, e error) *tmlex.Error {
	return tmlex.FormatError(grammar.BadRegexpError, "grammar %s: bad first line regexp %q: %s", scopeName, src, e.Error())
}

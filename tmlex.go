/*
Package tmlex is a grammar-driven line tokenizer assigning hierarchical scope names to spans of text,
following the TextMate grammar model (regexp patterns, begin/end rules, includes, and injections).

Consists of subpackages:
  - grammar: in-memory grammar definition tree handed to the tokenizer;
  - langdef: decodes and validates grammar definition files (JSON, YAML, CBOR);
  - lexer: grammar registry, scope id codec, and the line tokenizer itself;
  - regex: regular expression engine boundary used by the tokenizer;
  - selector: scope selector language used by injections and themes;
  - source: multi-line text split into lines.

Typical usage is:

1. Load grammar definitions using langdef or build grammar.Definition values directly.

2. Create lexer.Registry and add grammars to it.

3. Tokenize text line by line with lexer.Grammar.TokenizeLine passing the returned rule stack to the next call,
then decode tags to tokens using lexer.Registry.DecodeTokens.
*/
package tmlex

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error classes used by subpackages, each class contains up to 99 error codes:
const (
	LoadErrors          = 1   // used by grammar, langdef, and lexer when creating grammars
	SelectorErrors      = 101 // used by selector
	DecodeErrors        = 201 // used by lexer when decoding tags
	TokenizeDiagnostics = 301 // used by lexer in logged diagnostics, never returned
)

// Error is the error type used by tmlex subpackages.
type Error struct {
	// Code contains non-zero error code.
	Code int

	// Message contains non-empty error message including source name and position information if provided.
	Message string

	// SourceName contains source name that caused this error or empty string.
	SourceName string

	// Line contains line number in source file or 0.
	Line int

	// Col contains column number in source file or 0.
	Col int
}

// SourcePos is used to retrieve source name and position information when constructing an error.
type SourcePos interface {
	// SourceName returns source file name or empty string.
	SourceName() string
	// Line returns line number or 0.
	Line() int
	// Col returns column number or 0.
	Col() int
}

// NewError creates new Error structure.
// name, line, and col will be added to error message if provided (non-zero).
func NewError(code int, msg, name string, line, col int) *Error {
	if name != "" {
		if line != 0 && col != 0 {
			msg += fmt.Sprintf(" in %s at line %d col %d", name, line, col)
		} else {
			msg += " in " + name
		}
	} else if col != 0 {
		msg += fmt.Sprintf(" at col %d", col)
	}
	return &Error{code, msg, name, line, col}
}

// Error simply returns Error.Message.
func (e *Error) Error() string {
	return e.Message
}

// FormatError creates Error structure with no source and position information.
// params will be added to error message using fmt.Sprintf function.
func FormatError(code int, msg string, params ...any) *Error {
	if len(params) > 0 {
		msg = fmt.Sprintf(msg, params...)
	}
	return NewError(code, msg, "", 0, 0)
}

// FormatErrorPos creates Error structure with source and position information.
// pos must not be nil.
// params will be added to error message using fmt.Sprintf function.
func FormatErrorPos(pos SourcePos, code int, msg string, params ...any) *Error {
	if len(params) > 0 {
		msg = fmt.Sprintf(msg, params...)
	}
	return NewError(code, msg, pos.SourceName(), pos.Line(), pos.Col())
}

// HasCode reports whether e (or the cause of a wrapped e) is an *Error with given code.
func HasCode(e error, code int) bool {
	ee, valid := errors.Cause(e).(*Error)
	return valid && ee.Code == code
}

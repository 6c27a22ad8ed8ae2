package grammar

import (
	"github.com/ava12/tmlex"
)

// Load error codes, shared by grammar, langdef, and lexer packages.
const (
	MissingScopeNameError = tmlex.LoadErrors + iota
	SchemaError
	DecodeFormatError
	UnknownFormatError
	BadSelectorError
	BadRegexpError
)

func missingScopeNameError(name string) *tmlex.Error {
	if name == "" {
		return tmlex.FormatError(MissingScopeNameError, "grammar missing required scopeName property")
	}
	return tmlex.FormatError(MissingScopeNameError, "grammar %q missing required scopeName property", name)
}

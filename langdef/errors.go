package langdef

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/ava12/tmlex"
	"github.com/ava12/tmlex/grammar"
	"github.com/ava12/tmlex/source"
)

func missingScopeNameError(s *source.Source) *tmlex.Error {
	return tmlex.NewError(grammar.MissingScopeNameError, "grammar missing required scopeName property", s.Name(), 0, 0)
}

func unknownFormatError(name string) *tmlex.Error {
	return tmlex.FormatError(grammar.UnknownFormatError, "unknown grammar file format: %s", name)
}

func decodeFormatError(s *source.Source, e error) *tmlex.Error {
	return tmlex.NewError(grammar.DecodeFormatError, "cannot decode grammar: "+e.Error(), s.Name(), 0, 0)
}

func schemaError(s *source.Source, e error, root *yaml.Node) *tmlex.Error {
	ve, valid := e.(*jsonschema.ValidationError)
	if !valid {
		return tmlex.NewError(grammar.SchemaError, "invalid grammar: "+e.Error(), s.Name(), 0, 0)
	}

	leaf := leafError(ve)
	location := leaf.InstanceLocation
	if location == "" {
		location = "/"
	}
	msg := "invalid grammar at " + location + ": " + leaf.Message
	if node := findNode(root, leaf.InstanceLocation); node != nil && node.Line > 0 {
		return tmlex.FormatErrorPos(s.At(node.Line, node.Column), grammar.SchemaError, msg)
	}
	return tmlex.NewError(grammar.SchemaError, msg, s.Name(), 0, 0)
}

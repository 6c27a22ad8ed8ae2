/*
Package langdef decodes grammar definition files into grammar.Definition structures.

Supported formats are JSON, YAML (a superset of JSON, both are decoded with the same decoder),
and CBOR (compact binary bundles produced by Marshal).
Every document is validated against an embedded JSON schema before decoding,
a document without non-empty scopeName is always rejected.

All returned errors are *tmlex.Error with codes from the grammar package, I/O errors are wrapped.
*/
package langdef

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ava12/tmlex/grammar"
	"github.com/ava12/tmlex/source"
)

type Format int

const (
	UnknownFormat Format = iota
	JSON
	YAML
	CBOR
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "JSON"
	case YAML:
		return "YAML"
	case CBOR:
		return "CBOR"
	default:
		return "unknown"
	}
}

var log logrus.FieldLogger = logrus.WithField("subsys", "langdef")

// SetLogger replaces package logger, nil restores the default one.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = logrus.WithField("subsys", "langdef")
	}
	log = l
}

// FormatForName detects file format by file name extension.
func FormatForName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return JSON
	case ".yaml", ".yml":
		return YAML
	case ".cbor":
		return CBOR
	default:
		return UnknownFormat
	}
}

// ParseString parses grammar definition and returns it on success.
func ParseString(name, content string, format Format) (*grammar.Definition, error) {
	return Parse(source.FromString(name, content), format)
}

// ParseBytes parses grammar definition and returns it on success.
func ParseBytes(name string, content []byte, format Format) (*grammar.Definition, error) {
	return Parse(source.New(name, content), format)
}

// ParseFile reads and parses grammar definition file, format is detected by file name extension.
func ParseFile(path string) (*grammar.Definition, error) {
	format := FormatForName(path)
	if format == UnknownFormat {
		return nil, unknownFormatError(path)
	}

	content, e := os.ReadFile(path)
	if e != nil {
		return nil, errors.Wrapf(e, "cannot read grammar file %s", path)
	}

	return Parse(source.New(path, content), format)
}

// Parse parses grammar definition and returns it on success.
func Parse(s *source.Source, format Format) (*grammar.Definition, error) {
	var (
		def *grammar.Definition
		e   error
	)
	switch format {
	case JSON, YAML:
		def, e = parseText(s)
	case CBOR:
		def, e = parseBinary(s)
	default:
		return nil, unknownFormatError(s.Name())
	}

	if e != nil {
		log.WithFields(logrus.Fields{
			"source": s.Name(),
			"format": format.String(),
		}).WithError(e).Debug("grammar rejected")
		return nil, e
	}

	log.WithFields(logrus.Fields{
		"source": s.Name(),
		"scope":  def.ScopeName,
	}).Debug("grammar loaded")
	return def, nil
}

func parseText(s *source.Source) (*grammar.Definition, error) {
	var root yaml.Node
	if e := yaml.Unmarshal(s.Content(), &root); e != nil {
		return nil, decodeFormatError(s, e)
	}

	var doc interface{}
	if root.Kind != 0 {
		if e := root.Decode(&doc); e != nil {
			return nil, decodeFormatError(s, e)
		}
	}

	if e := validate(s, doc, &root); e != nil {
		return nil, e
	}

	def := &grammar.Definition{}
	if e := root.Decode(def); e != nil {
		return nil, decodeFormatError(s, e)
	}
	return def, nil
}

func parseBinary(s *source.Source) (*grammar.Definition, error) {
	var doc interface{}
	if e := cbor.Unmarshal(s.Content(), &doc); e != nil {
		return nil, decodeFormatError(s, e)
	}

	if e := validate(s, doc, nil); e != nil {
		return nil, e
	}

	def := &grammar.Definition{}
	if e := cbor.Unmarshal(s.Content(), def); e != nil {
		return nil, decodeFormatError(s, e)
	}
	return def, nil
}

func validate(s *source.Source, doc interface{}, root *yaml.Node) error {
	doc = normalize(doc)
	m, _ := doc.(map[string]interface{})
	if name, _ := m["scopeName"].(string); name == "" {
		return missingScopeNameError(s)
	}

	if e := grammarSchema.Validate(doc); e != nil {
		return schemaError(s, e, root)
	}
	return nil
}

// Marshal encodes grammar definition, CBOR is the most compact and fastest to load.
func Marshal(def *grammar.Definition, format Format) ([]byte, error) {
	if e := def.Validate(); e != nil {
		return nil, e
	}

	switch format {
	case JSON:
		return json.MarshalIndent(def, "", "  ")
	case YAML:
		return yaml.Marshal(def)
	case CBOR:
		return cbor.Marshal(def)
	default:
		return nil, unknownFormatError(format.String())
	}
}

// WriteFile encodes grammar definition to a file, format is detected by file name extension.
func WriteFile(path string, def *grammar.Definition) error {
	format := FormatForName(path)
	if format == UnknownFormat {
		return unknownFormatError(path)
	}

	data, e := Marshal(def, format)
	if e != nil {
		return e
	}

	return errors.Wrapf(os.WriteFile(path, data, 0o644), "cannot write grammar file %s", path)
}

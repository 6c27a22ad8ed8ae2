package langdef

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava12/tmlex"
	"github.com/ava12/tmlex/grammar"
	. "github.com/ava12/tmlex/internal/test"
)

const jsonGrammar = `{
  "scopeName": "source.js-like",
  "name": "JS-like",
  "fileTypes": ["jsl"],
  "maxTokensPerLine": 100,
  "patterns": [
    {"match": "\\b(return|if)\\b", "name": "keyword.control.$1"},
    {"begin": "'''", "end": "'''", "name": "string.quoted.triple",
     "beginCaptures": {"0": {"name": "punctuation.definition.string.begin"}},
     "applyEndPatternLast": true},
    {"include": "#comment"}
  ],
  "repository": {
    "comment": {"match": "//.*$", "name": "comment.line"}
  },
  "injections": {
    "R:comment": {"patterns": [{"match": "TODO", "name": "keyword.todo"}]},
    "L:string": {"patterns": []}
  }
}`

const yamlGrammar = `
scopeName: text.hyperlink
injectionSelector: comment
limitLineLength: false
patterns:
  - match: https?://\S+
    name: markup.underline.link
    disabled: 0
`

func TestParseJSON(t *testing.T) {
	def, e := ParseString("js-like.json", jsonGrammar, JSON)
	require.NoError(t, e)
	ExpectString(t, "source.js-like", def.ScopeName)
	ExpectInt(t, 100, def.MaxTokensPerLine)
	require.Len(t, def.Patterns, 3)
	ExpectString(t, `\b(return|if)\b`, def.Patterns[0].Match)
	ExpectBool(t, true, bool(def.Patterns[1].ApplyEndPatternLast))
	ExpectString(t, "punctuation.definition.string.begin", def.Patterns[1].BeginCaptures["0"].Name)
	ExpectString(t, "comment.line", def.Repository["comment"].Name)
	require.Len(t, def.Injections, 2)
	ExpectString(t, "R:comment", def.Injections[0].Selector)
	ExpectString(t, "L:string", def.Injections[1].Selector)
}

func TestParseYAML(t *testing.T) {
	def, e := ParseBytes("hyperlink.yaml", []byte(yamlGrammar), YAML)
	require.NoError(t, e)
	ExpectString(t, "comment", def.InjectionSelector)
	ExpectBool(t, false, def.LineLengthLimited())
	ExpectBool(t, false, bool(def.Patterns[0].Disabled))
}

func TestMissingScopeName(t *testing.T) {
	samples := map[string]Format{
		`{"name": "nameless"}`: JSON,
		`{"scopeName": ""}`:    JSON,
		"name: nameless\n":     YAML,
		"":                     YAML,
		"[1, 2]":               YAML,
	}

	for src, format := range samples {
		def, e := ParseString("bad.grammar", src, format)
		assert.Nil(t, def, src)
		ExpectErrorCode(t, grammar.MissingScopeNameError, e)
		assert.Equal(t, "bad.grammar", e.(*tmlex.Error).SourceName, src)
	}

	data, e := Marshal(&grammar.Definition{Name: "nameless"}, CBOR)
	assert.Nil(t, data)
	ExpectErrorCode(t, grammar.MissingScopeNameError, e)
}

func TestSchemaErrorPosition(t *testing.T) {
	src := "scopeName: source.x\npatterns:\n  - match: [a]\n"
	_, e := ParseString("x.yaml", src, YAML)
	ExpectErrorCode(t, grammar.SchemaError, e)
	ee := e.(*tmlex.Error)
	ExpectInt(t, 3, ee.Line)
	ExpectInt(t, 12, ee.Col)
	assert.Contains(t, ee.Message, "/patterns/0/match")
	assert.Contains(t, ee.Message, "x.yaml")
}

func TestSchemaErrors(t *testing.T) {
	samples := []string{
		`{"scopeName": "a", "maxTokensPerLine": 0}`,
		`{"scopeName": "a", "patterns": {}}`,
		`{"scopeName": "a", "patterns": [{"captures": {"x": {"name": "y"}}}]}`,
		`{"scopeName": "a", "patterns": [{"disabled": "yes"}]}`,
		`{"scopeName": "a", "limitLineLength": 1}`,
		`{"scopeName": "a", "injections": "comment"}`,
	}

	for _, src := range samples {
		def, e := ParseString("s.json", src, JSON)
		assert.Nil(t, def, src)
		ExpectErrorCode(t, grammar.SchemaError, e)
	}
}

func TestDecodeErrors(t *testing.T) {
	_, e := ParseString("bad.yaml", "scopeName: [\n", YAML)
	ExpectErrorCode(t, grammar.DecodeFormatError, e)

	_, e = ParseBytes("bad.cbor", []byte{0xff, 0x00}, CBOR)
	ExpectErrorCode(t, grammar.DecodeFormatError, e)

	_, e = ParseString("x", "{}", UnknownFormat)
	ExpectErrorCode(t, grammar.UnknownFormatError, e)
}

func TestFormatForName(t *testing.T) {
	samples := map[string]Format{
		"a.json":       JSON,
		"a/b.YAML":     YAML,
		"c.yml":        YAML,
		"d.cbor":       CBOR,
		"e.tmLanguage": UnknownFormat,
		"noext":        UnknownFormat,
	}
	for name, format := range samples {
		assert.Equal(t, format, FormatForName(name), name)
	}
	ExpectString(t, "CBOR", CBOR.String())
	ExpectString(t, "unknown", UnknownFormat.String())
}

func TestFileRoundTrip(t *testing.T) {
	def, e := ParseString("js-like.json", jsonGrammar, JSON)
	require.NoError(t, e)

	dir := t.TempDir()
	for _, name := range []string{"g.cbor", "g.yaml", "g.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, def), name)
		got, e := ParseFile(path)
		require.NoError(t, e, name)
		if diff := cmp.Diff(def, got, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("%s: definition mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, e := ParseFile(filepath.Join(dir, "missing.json"))
	require.Error(t, e)
	assert.True(t, os.IsNotExist(errors.Cause(e)))

	_, e = ParseFile(filepath.Join(dir, "grammar.txt"))
	ExpectErrorCode(t, grammar.UnknownFormatError, e)

	e = WriteFile(filepath.Join(dir, "grammar.txt"), &grammar.Definition{ScopeName: "a"})
	ExpectErrorCode(t, grammar.UnknownFormatError, e)
}

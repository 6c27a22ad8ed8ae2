package grammar

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	. "github.com/ava12/tmlex/internal/test"
)

const sampleYaml = `
scopeName: source.sample
name: Sample
fileTypes: [smp]
limitLineLength: false
patterns:
  - begin: '"'
    end: '"'
    applyEndPatternLast: 1
    patterns:
      - include: '#escape'
  - match: \bfoo\b
    name: keyword.foo
    disabled: 0
repository:
  escape:
    match: \\.
    captures:
      "0": {name: constant.character.escape}
injections:
  "R:comment": {patterns: [{match: TODO, name: todo}]}
  "L:string": {patterns: [{include: "#escape"}]}
  "B:source": {}
`

func TestDecodeYaml(t *testing.T) {
	var d Definition
	require.NoError(t, yaml.Unmarshal([]byte(sampleYaml), &d))
	require.NoError(t, d.Validate())

	ExpectString(t, "source.sample", d.ScopeName)
	ExpectBool(t, false, d.LineLengthLimited())
	require.Len(t, d.Patterns, 2)
	ExpectBool(t, true, bool(d.Patterns[0].ApplyEndPatternLast))
	ExpectBool(t, false, bool(d.Patterns[1].Disabled))
	ExpectString(t, "#escape", d.Patterns[0].Patterns[0].Include)
	ExpectString(t, "constant.character.escape", d.Repository["escape"].Captures["0"].Name)

	require.Len(t, d.Injections, 3)
	ExpectString(t, "R:comment", d.Injections[0].Selector)
	ExpectString(t, "L:string", d.Injections[1].Selector)
	ExpectString(t, "B:source", d.Injections[2].Selector)
	ExpectInt(t, 0, len(d.Injections[2].Patterns))
	ExpectString(t, "todo", d.Injections[0].Patterns[0].Name)
}

func TestFlagValues(t *testing.T) {
	samples := map[string]bool{
		"true":  true,
		"false": false,
		"1":     true,
		"0":     false,
		"2":     true,
	}
	for src, expected := range samples {
		var f Flag
		require.NoError(t, yaml.Unmarshal([]byte(src), &f), src)
		assert.Equal(t, expected, bool(f), src)
	}

	var f Flag
	assert.Error(t, yaml.Unmarshal([]byte("maybe"), &f))

	for _, v := range []interface{}{true, 1, uint(3), -1} {
		data, e := cbor.Marshal(v)
		require.NoError(t, e)
		f = false
		require.NoError(t, cbor.Unmarshal(data, &f))
		assert.True(t, bool(f), "%v", v)
	}
	data, _ := cbor.Marshal("yes")
	assert.Error(t, cbor.Unmarshal(data, &f))
}

func TestInjectionsMustBeMapping(t *testing.T) {
	var d Definition
	e := yaml.Unmarshal([]byte("scopeName: a\ninjections: [x]\n"), &d)
	assert.Error(t, e)
}

func TestCborKeepsInjectionOrder(t *testing.T) {
	d := Definition{
		ScopeName: "source.a",
		Injections: Injections{
			{Selector: "z", Patterns: []Pattern{{Match: "z"}}},
			{Selector: "a", Patterns: []Pattern{{Match: "a"}}},
		},
	}
	data, e := cbor.Marshal(d)
	require.NoError(t, e)

	var got Definition
	require.NoError(t, cbor.Unmarshal(data, &got))
	assert.Equal(t, d.Injections, got.Injections)
}

func TestCborInjectionMapIsSorted(t *testing.T) {
	data, e := cbor.Marshal(map[string]interface{}{
		"zz": map[string]interface{}{"patterns": []interface{}{map[string]interface{}{"match": "z"}}},
		"aa": map[string]interface{}{},
	})
	require.NoError(t, e)

	var is Injections
	require.NoError(t, cbor.Unmarshal(data, &is))
	require.Len(t, is, 2)
	ExpectString(t, "aa", is[0].Selector)
	ExpectString(t, "zz", is[1].Selector)
	ExpectString(t, "z", is[1].Patterns[0].Match)
}

func TestYamlInjectionsMarshal(t *testing.T) {
	is := Injections{{Selector: "b", Patterns: []Pattern{{Match: "x"}}}, {Selector: "a"}}
	data, e := yaml.Marshal(is)
	require.NoError(t, e)

	var got Injections
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, is, got)
}

func TestMissingScopeName(t *testing.T) {
	d := Definition{Name: "Nameless"}
	e := d.Validate()
	ExpectErrorCode(t, MissingScopeNameError, e)
	assert.Contains(t, e.Error(), "Nameless")

	e = (&Definition{}).Validate()
	ExpectErrorCode(t, MissingScopeNameError, e)
}

func TestJsonInjectionsKeepOrder(t *testing.T) {
	is := Injections{{Selector: "z", Patterns: []Pattern{{Match: "1"}}}, {Selector: "a"}}
	data, e := json.Marshal(is)
	require.NoError(t, e)
	ExpectString(t, `{"z":{"patterns":[{"match":"1"}]},"a":{}}`, string(data))

	var got Injections
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, is, got)
}

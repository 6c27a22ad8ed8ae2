// Package grammar contains in-memory grammar definition tree consumed by the tokenizer.
//
// Field names follow TextMate grammar file keys, so definitions can be decoded
// from JSON, YAML, or CBOR documents directly (see langdef package).
package grammar

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Flag is a boolean accepting true/false as well as 1/0 when decoded.
type Flag bool

func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	var b bool
	if e := node.Decode(&b); e == nil {
		*f = Flag(b)
		return nil
	}

	var n int
	if e := node.Decode(&n); e != nil {
		return errors.Errorf("line %d: expecting boolean or integer flag, got %q", node.Line, node.Value)
	}
	*f = n != 0
	return nil
}

func (f *Flag) UnmarshalCBOR(data []byte) error {
	var v interface{}
	if e := cbor.Unmarshal(data, &v); e != nil {
		return e
	}

	switch x := v.(type) {
	case bool:
		*f = Flag(x)
	case uint64:
		*f = x != 0
	case int64:
		*f = x != 0
	case nil:
		*f = false
	default:
		return errors.Errorf("expecting boolean or integer flag, got %T", v)
	}
	return nil
}

// Capture binds a scope name and optional nested patterns to a capture group.
type Capture struct {
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Patterns []Pattern `json:"patterns,omitempty" yaml:"patterns,omitempty"`
}

// Captures maps group numbers (as decimal strings) to captures.
type Captures map[string]Capture

// Pattern is either a single match, a begin/end pair, an include directive, or a bare pattern list.
type Pattern struct {
	Match               string    `json:"match,omitempty" yaml:"match,omitempty"`
	Begin               string    `json:"begin,omitempty" yaml:"begin,omitempty"`
	End                 string    `json:"end,omitempty" yaml:"end,omitempty"`
	Name                string    `json:"name,omitempty" yaml:"name,omitempty"`
	ContentName         string    `json:"contentName,omitempty" yaml:"contentName,omitempty"`
	Captures            Captures  `json:"captures,omitempty" yaml:"captures,omitempty"`
	BeginCaptures       Captures  `json:"beginCaptures,omitempty" yaml:"beginCaptures,omitempty"`
	EndCaptures         Captures  `json:"endCaptures,omitempty" yaml:"endCaptures,omitempty"`
	Patterns            []Pattern `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Include             string    `json:"include,omitempty" yaml:"include,omitempty"`
	ApplyEndPatternLast Flag      `json:"applyEndPatternLast,omitempty" yaml:"applyEndPatternLast,omitempty"`
	Disabled            Flag      `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// Injection is a selector-guarded pattern list.
type Injection struct {
	Selector string    `json:"selector" yaml:"selector"`
	Patterns []Pattern `json:"patterns,omitempty" yaml:"patterns,omitempty"`
}

type injectionBody struct {
	Patterns []Pattern `json:"patterns,omitempty" yaml:"patterns,omitempty"`
}

// Injections keep declaration order, in grammar files they are written as a selector-to-body mapping.
type Injections []Injection

func (is *Injections) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.Errorf("line %d: injections must be a mapping", node.Line)
	}

	result := make(Injections, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var body injectionBody
		if e := node.Content[i+1].Decode(&body); e != nil {
			return e
		}
		result = append(result, Injection{node.Content[i].Value, body.Patterns})
	}
	*is = result
	return nil
}

func (is Injections) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, inj := range is {
		value := &yaml.Node{}
		if e := value.Encode(injectionBody{inj.Patterns}); e != nil {
			return nil, e
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: inj.Selector}, value)
	}
	return node, nil
}

// MarshalJSON encodes injections as a selector-to-body object keeping their order.
func (is Injections) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, inj := range is {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, e := json.Marshal(inj.Selector)
		if e != nil {
			return nil, e
		}
		body, e := json.Marshal(injectionBody{inj.Patterns})
		if e != nil {
			return nil, e
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalCBOR encodes injections as an array to keep their order.
func (is Injections) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal([]Injection(is))
}

// UnmarshalCBOR accepts an array of injections or a selector-to-body map (sorted by selector).
func (is *Injections) UnmarshalCBOR(data []byte) error {
	var list []Injection
	if e := cbor.Unmarshal(data, &list); e == nil {
		*is = list
		return nil
	}

	var bodies map[string]injectionBody
	if e := cbor.Unmarshal(data, &bodies); e != nil {
		return errors.Wrap(e, "injections")
	}

	selectors := make([]string, 0, len(bodies))
	for selector := range bodies {
		selectors = append(selectors, selector)
	}
	sort.Strings(selectors)
	result := make(Injections, len(selectors))
	for i, selector := range selectors {
		result[i] = Injection{selector, bodies[selector].Patterns}
	}
	*is = result
	return nil
}

// Definition is a whole grammar.
type Definition struct {
	ScopeName         string             `json:"scopeName" yaml:"scopeName"`
	Name              string             `json:"name,omitempty" yaml:"name,omitempty"`
	FileTypes         []string           `json:"fileTypes,omitempty" yaml:"fileTypes,omitempty"`
	FirstLineMatch    string             `json:"firstLineMatch,omitempty" yaml:"firstLineMatch,omitempty"`
	InjectionSelector string             `json:"injectionSelector,omitempty" yaml:"injectionSelector,omitempty"`
	MaxTokensPerLine  int                `json:"maxTokensPerLine,omitempty" yaml:"maxTokensPerLine,omitempty"`
	MaxLineLength     int                `json:"maxLineLength,omitempty" yaml:"maxLineLength,omitempty"`
	LimitLineLength   *bool              `json:"limitLineLength,omitempty" yaml:"limitLineLength,omitempty"`
	Patterns          []Pattern          `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Repository        map[string]Pattern `json:"repository,omitempty" yaml:"repository,omitempty"`
	Injections        Injections         `json:"injections,omitempty" yaml:"injections,omitempty"`
}

// Validate checks definition constraints the tokenizer relies on.
func (d *Definition) Validate() error {
	if d.ScopeName == "" {
		return missingScopeNameError(d.Name)
	}
	return nil
}

// LineLengthLimited reports whether the line length cap applies to this grammar.
func (d *Definition) LineLengthLimited() bool {
	return d.LimitLineLength == nil || *d.LimitLineLength
}

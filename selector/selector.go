/*
Package selector implements scope selectors used to decide where grammar injections and theme rules apply.

Selector syntax:

	selector   = composite "," [selector] | composite
	composite  = expression ("|" | "&" | "-") composite | expression
	expression = "-" group | "-" path | group | path
	group      = [prefix] "(" selector ")"
	path       = [prefix] scope {scope}
	scope      = segment {"." segment}
	segment    = segstart {segchar} | "*"
	segstart   = "A".."Z" | "a".."z" | "0".."9" | "+" | "_"
	segchar    = segstart | "-"
	prefix     = ("L" | "B" | "R") ":"

Spaces and tabs are allowed between any tokens, a path is a space-separated scope sequence.
A path matches a scope list if its scopes match an ordered (not necessarily contiguous) subsequence of the list.
A scope matches a scope name if every its segment equals the corresponding segment of the name
(or is a wildcard), the name may have more segments than the scope.
*/
package selector

import (
	"strconv"
	"unicode/utf8"

	"github.com/ava12/tmlex"
)

// Prefix is an injection priority prefix.
type Prefix string

const (
	NoPrefix Prefix = ""
	PrefixL  Prefix = "L"
	PrefixB  Prefix = "B"
	PrefixR  Prefix = "R"
)

const SyntaxError = tmlex.SelectorErrors

const syntaxNamespace = "syntax--"

type Selector struct {
	source  string
	matcher matcher
}

// Parse parses selector source, the whole source must be a valid selector.
func Parse(source string) (*Selector, error) {
	p := &parser{src: source}
	p.skipSpace()
	m, valid := p.parseSelector()
	if valid {
		p.skipSpace()
	}
	if !valid || p.pos < len(p.src) {
		col := 1
		if valid {
			col = utf8.RuneCountInString(p.src[:p.pos]) + 1
		}
		return nil, tmlex.NewError(SyntaxError, "invalid scope selector "+strconv.Quote(source), "", 0, col)
	}

	return &Selector{source, m}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(source string) *Selector {
	s, e := Parse(source)
	if e != nil {
		panic(e)
	}
	return s
}

// Matches reports whether the selector matches the scope list (outermost scope first).
func (s *Selector) Matches(scopes ...string) bool {
	return s.matcher.matches(scopes)
}

// Prefix returns the prefix of the matching part of the selector or NoPrefix.
func (s *Selector) Prefix(scopes ...string) Prefix {
	return s.matcher.prefix(scopes)
}

func (s *Selector) CSSSelector() string {
	return s.matcher.css("")
}

// CSSSyntaxSelector is like CSSSelector but adds "syntax--" namespace to every class name.
func (s *Selector) CSSSyntaxSelector() string {
	return s.matcher.css(syntaxNamespace)
}

func (s *Selector) String() string {
	return s.source
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) skipChar(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func isSegmentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '+' || c == '_'
}

func isSegmentChar(c byte) bool {
	return isSegmentStart(c) || c == '-'
}

func (p *parser) parseSegment() (segment, bool) {
	start := p.pos
	p.skipSpace()
	begin := p.pos
	if p.pos < len(p.src) && isSegmentStart(p.src[p.pos]) {
		for p.pos < len(p.src) && isSegmentChar(p.src[p.pos]) {
			p.pos++
		}
		result := segmentMatcher{p.src[begin:p.pos]}
		p.skipSpace()
		return result, true
	}

	if p.skipChar('*') {
		p.skipSpace()
		return trueMatcher{}, true
	}

	p.pos = start
	return nil, false
}

func (p *parser) parseScope() (*scopeMatcher, bool) {
	first, valid := p.parseSegment()
	if !valid {
		return nil, false
	}

	result := &scopeMatcher{[]segment{first}}
	for {
		save := p.pos
		if !p.skipChar('.') {
			break
		}
		next, valid := p.parseSegment()
		if !valid {
			p.pos = save
			break
		}
		result.segments = append(result.segments, next)
	}
	return result, true
}

func (p *parser) parsePrefix() Prefix {
	if p.pos+1 < len(p.src) && p.src[p.pos+1] == ':' {
		switch p.src[p.pos] {
		case 'L', 'B', 'R':
			result := Prefix(p.src[p.pos : p.pos+1])
			p.pos += 2
			return result
		}
	}
	return NoPrefix
}

func (p *parser) parsePath() (matcher, bool) {
	start := p.pos
	pfx := p.parsePrefix()
	first, valid := p.parseScope()
	if !valid {
		p.pos = start
		return nil, false
	}

	result := &pathMatcher{pfx, []*scopeMatcher{first}}
	for {
		save := p.pos
		p.skipSpace()
		next, valid := p.parseScope()
		if !valid {
			p.pos = save
			break
		}
		result.scopes = append(result.scopes, next)
	}
	return result, true
}

func (p *parser) parseGroup() (matcher, bool) {
	start := p.pos
	pfx := p.parsePrefix()
	if !p.skipChar('(') {
		p.pos = start
		return nil, false
	}

	p.skipSpace()
	m, valid := p.parseSelector()
	if valid {
		p.skipSpace()
		valid = p.skipChar(')')
	}
	if !valid {
		p.pos = start
		return nil, false
	}

	return &groupMatcher{pfx, m}, true
}

func (p *parser) parseExpression() (matcher, bool) {
	start := p.pos
	if p.skipChar('-') {
		p.skipSpace()
		m, valid := p.parseGroup()
		if !valid {
			p.pos = start + 1
			p.skipSpace()
			m, valid = p.parsePath()
		}
		if valid {
			p.skipSpace()
			return &negateMatcher{m}, true
		}
		p.pos = start
	}

	if m, valid := p.parseGroup(); valid {
		return m, true
	}
	return p.parsePath()
}

func (p *parser) parseComposite() (matcher, bool) {
	left, valid := p.parseExpression()
	if !valid {
		return nil, false
	}

	save := p.pos
	p.skipSpace()
	if p.pos < len(p.src) {
		op := p.src[p.pos]
		if op == '|' || op == '&' || op == '-' {
			p.pos++
			p.skipSpace()
			right, valid := p.parseComposite()
			if valid {
				switch op {
				case '|':
					return &orMatcher{left, right}, true
				case '&':
					return &andMatcher{left, right}, true
				default:
					return &andMatcher{left, &negateMatcher{right}}, true
				}
			}
		}
	}

	p.pos = save
	return left, true
}

func (p *parser) parseSelector() (matcher, bool) {
	left, valid := p.parseComposite()
	if !valid {
		return nil, false
	}

	save := p.pos
	p.skipSpace()
	if !p.skipChar(',') {
		p.pos = save
		return left, true
	}

	p.skipSpace()
	right, valid := p.parseSelector()
	if !valid {
		return left, true
	}
	return &orMatcher{left, right}, true
}

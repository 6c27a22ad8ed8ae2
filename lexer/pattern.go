package lexer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ava12/tmlex/grammar"
	"github.com/ava12/tmlex/internal/ints"
	"github.com/ava12/tmlex/regex"
)

const (
	// anchorPlaceholder replaces anchors that cannot match in current context.
	anchorPlaceholder = "\uFFFF"

	endOfLine  = `$(?!\n)(?<!\n)`
	neverMatch = `(?!)`
)

var (
	scopePlaceholderRe = regexp.MustCompile(`\$(\d+)|\$\{(\d+):/(downcase|upcase)\}`)
	backReferenceRe    = regexp.MustCompile(`\\\d+`)

	lowerCaser = cases.Lower(language.Und)
	upperCaser = cases.Upper(language.Und)
)

type capture struct {
	scopeName string
	rule      *rule
}

// pattern is either a single match, a begin pattern with its pushed rule, an end pattern,
// an include directive, or a group of nested patterns.
type pattern struct {
	grammar           *Grammar
	scopeName         string
	contentScopeName  string
	regexSource       string
	deferredSource    string
	captures          map[int]*capture
	include           string
	group             *rule
	popRule           bool
	hasBackReferences bool
	pushRule          *rule
	anchored          bool
}

func (g *Grammar) newPattern(def *grammar.Pattern, popRule bool) *pattern {
	p := &pattern{
		grammar:          g,
		scopeName:        def.Name,
		contentScopeName: def.ContentName,
		include:          def.Include,
		popRule:          popRule,
	}

	switch {
	case def.Include != "":

	case def.Match != "":
		if popRule && backReferenceRe.MatchString(def.Match) {
			p.hasBackReferences = true
			p.deferredSource = def.Match
		} else {
			p.regexSource = def.Match
		}
		p.captures = g.newCaptures(p.scopeName, def.Captures)

	case def.Begin != "":
		p.regexSource = def.Begin
		captures := def.BeginCaptures
		if len(captures) == 0 {
			captures = def.Captures
		}
		p.captures = g.newCaptures(p.scopeName, captures)

		end := grammar.Pattern{Match: def.End, Captures: def.EndCaptures}
		if len(end.Captures) == 0 {
			end.Captures = def.Captures
		}
		if end.Match == "" {
			end.Match = neverMatch
		}
		endPattern := g.newPattern(&end, true)
		p.pushRule = g.newRule(p.scopeName, p.contentScopeName, def.Patterns, endPattern, bool(def.ApplyEndPatternLast))

	case len(def.Patterns) > 0:
		p.group = g.newRule("", "", def.Patterns, nil, false)
	}

	p.anchored = hasAnchor(p.regexSource)
	return p
}

func (g *Grammar) newCaptures(scopeName string, defs grammar.Captures) map[int]*capture {
	if len(defs) == 0 {
		return nil
	}

	result := make(map[int]*capture, len(defs))
	for key, def := range defs {
		index, e := strconv.Atoi(key)
		if e != nil || index < 0 {
			continue
		}

		c := &capture{scopeName: def.Name}
		if len(def.Patterns) > 0 {
			c.rule = g.newRule(scopeName, "", def.Patterns, nil, false)
		}
		result[index] = c
	}
	return result
}

// hasAnchor reports whether regexp source contains \A, \G, or \z.
func hasAnchor(src string) bool {
	escape := false
	for _, c := range src {
		if escape && (c == 'A' || c == 'G' || c == 'z') {
			return true
		}
		escape = !escape && c == '\\'
	}
	return false
}

// regexp returns regexp source for given scan context.
func (p *pattern) regexp(firstLine bool, position, anchor int) string {
	if !p.anchored {
		return p.regexSource
	}

	var sb strings.Builder
	escape := false
	for _, c := range p.regexSource {
		switch {
		case escape:
			escape = false
			switch c {
			case 'A':
				if firstLine {
					sb.WriteString(`\A`)
				} else {
					sb.WriteString(anchorPlaceholder)
				}
			case 'G':
				if position == anchor {
					sb.WriteString(`\G`)
				} else {
					sb.WriteString(anchorPlaceholder)
				}
			case 'z':
				sb.WriteString(endOfLine)
			default:
				sb.WriteByte('\\')
				sb.WriteRune(c)
			}
		case c == '\\':
			escape = true
		default:
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

func captureText(line []rune, c regex.Capture) string {
	if !c.Matched() {
		return ""
	}
	return string(line[clamp(c.Start, len(line)):clamp(c.End, len(line))])
}

// resolveBackReferences returns end pattern with \N replaced by escaped text of begin captures.
func (p *pattern) resolveBackReferences(line []rune, beginCaptures []regex.Capture) *pattern {
	resolved := backReferenceRe.ReplaceAllStringFunc(p.deferredSource, func(ref string) string {
		index, e := strconv.Atoi(ref[1:])
		if e != nil || index >= len(beginCaptures) {
			return ref
		}
		return regexp2.Escape(captureText(line, beginCaptures[index]))
	})

	result := *p
	result.hasBackReferences = false
	result.deferredSource = ""
	result.regexSource = resolved
	result.anchored = hasAnchor(resolved)
	return &result
}

func (p *pattern) ruleForInclude(base *Grammar, name string) *rule {
	registry := p.grammar.registry
	hash := strings.IndexByte(name, '#')
	switch {
	case hash == 0:
		return p.grammar.repository()[name[1:]]

	case hash > 0:
		scopeName := name[:hash]
		p.grammar.addIncludedGrammarScope(scopeName)
		if g := registry.GrammarForScopeName(scopeName); g != nil {
			return g.repository()[name[hash+1:]]
		}
		return nil

	case name == "$self":
		return p.grammar.initialRule()

	case name == "$base":
		return base.initialRule()

	default:
		p.grammar.addIncludedGrammarScope(name)
		if g := registry.GrammarForScopeName(name); g != nil {
			return g.initialRule()
		}
		return nil
	}
}

func (p *pattern) includedPatterns(base *Grammar, visited *ints.Set) []*pattern {
	switch {
	case p.include != "":
		if r := p.ruleForInclude(base, p.include); r != nil {
			return r.includedPatterns(base, visited)
		}
		return nil

	case p.group != nil:
		return p.group.includedPatterns(base, visited)

	case p.regexSource == "":
		return nil

	default:
		return []*pattern{p}
	}
}

// resolveScopeName substitutes $N and ${N:/downcase} or ${N:/upcase} with captured text.
func resolveScopeName(scopeName string, line []rune, captures []regex.Capture) string {
	if !strings.Contains(scopeName, "$") {
		return scopeName
	}

	return scopePlaceholderRe.ReplaceAllStringFunc(scopeName, func(placeholder string) string {
		groups := scopePlaceholderRe.FindStringSubmatch(placeholder)
		digits := groups[1]
		if digits == "" {
			digits = groups[2]
		}

		index, e := strconv.Atoi(digits)
		if e != nil || index >= len(captures) {
			return placeholder
		}

		text := strings.TrimLeft(captureText(line, captures[index]), ".")
		switch groups[3] {
		case "downcase":
			return lowerCaser.String(text)
		case "upcase":
			return upperCaser.String(text)
		default:
			return text
		}
	})
}

// handleMatch emits tags for the match and pushes or pops the rule stack,
// false means the match is refused to avoid a push/pop loop.
func (p *pattern) handleMatch(stack *RuleStack, line []rune, captures []regex.Capture, depth int) ([]int, bool) {
	registry := p.grammar.registry
	whole := captures[0]
	zeroWidth := whole.Start == whole.End
	var (
		tags      []int
		scopeName string
	)

	if p.popRule {
		top := stack.top()
		if zeroWidth && top.zeroWidthMatch && top.anchorPosition == whole.End {
			return nil, false
		}

		if top.contentScopeName != "" {
			tags = append(tags, registry.EndIDForScope(top.contentScopeName))
		}
	} else if p.scopeName != "" {
		scopeName = resolveScopeName(p.scopeName, line, captures)
		tags = append(tags, registry.StartIDForScope(scopeName))
	}

	if p.captures != nil {
		spans := newCaptureCursor(captures)
		tags = append(tags, p.captureTags(spans, line, captures, *stack, depth)...)
	} else if end := clamp(whole.End, len(line)); end > whole.Start {
		tags = append(tags, end-whole.Start)
	}

	if p.pushRule != nil {
		r := p.pushRule.ruleToPush(line, captures)
		contentScopeName := ""
		if r.contentScopeName != "" {
			contentScopeName = resolveScopeName(r.contentScopeName, line, captures)
		}
		stack.push(StackEntry{
			rule:             r,
			scopeName:        scopeName,
			contentScopeName: contentScopeName,
			zeroWidthMatch:   zeroWidth,
			anchorPosition:   whole.End,
		})
		if contentScopeName != "" {
			tags = append(tags, registry.StartIDForScope(contentScopeName))
		}
	} else {
		if p.popRule {
			scopeName = stack.pop().scopeName
		}
		if scopeName != "" {
			tags = append(tags, registry.EndIDForScope(scopeName))
		}
	}

	return tags, true
}

type captureSpan struct {
	index, start, end int
}

// captureCursor walks matched captures in group number order.
type captureCursor struct {
	spans []captureSpan
	pos   int
}

func newCaptureCursor(captures []regex.Capture) *captureCursor {
	c := &captureCursor{spans: make([]captureSpan, 0, len(captures))}
	for i, capture := range captures {
		if capture.Matched() {
			c.spans = append(c.spans, captureSpan{i, capture.Start, capture.End})
		}
	}
	return c
}

func (c *captureCursor) more() bool {
	return c.pos < len(c.spans)
}

func (c *captureCursor) peek() captureSpan {
	return c.spans[c.pos]
}

func (c *captureCursor) next() captureSpan {
	c.pos++
	return c.spans[c.pos-1]
}

// captureTags emits tags for the next capture and all captures nested in it.
func (p *pattern) captureTags(cursor *captureCursor, line []rune, all []regex.Capture, stack RuleStack, depth int) []int {
	registry := p.grammar.registry
	parent := cursor.next()
	c := p.captures[parent.index]

	var (
		tags  []int
		scope string
	)
	if c != nil && c.scopeName != "" {
		scope = resolveScopeName(c.scopeName, line, all)
		tags = append(tags, registry.StartIDForScope(scope))
	}

	if c != nil && c.rule != nil && depth < maxCaptureDepth {
		tags = append(tags, captureRuleTags(c.rule, line, parent, stack, depth)...)
		for cursor.more() && cursor.peek().start < parent.end {
			cursor.next()
		}
	} else {
		previousEnd := parent.start
		for cursor.more() && cursor.peek().start < parent.end {
			child := cursor.peek()
			if child.end == child.start || p.captures[child.index] == nil {
				cursor.next()
				continue
			}

			if start := clamp(child.start, len(line)); start > previousEnd {
				tags = append(tags, start-previousEnd)
			}
			tags = append(tags, p.captureTags(cursor, line, all, stack, depth)...)
			previousEnd = child.end
		}

		if end := clamp(parent.end, len(line)); end > previousEnd {
			tags = append(tags, end-previousEnd)
		}
	}

	if scope != "" {
		if len(tags) > 1 {
			tags = append(tags, registry.EndIDForScope(scope))
		} else {
			tags = tags[:len(tags)-1]
		}
	}
	return tags
}

// captureRuleTags tokenizes captured text with the capture rule on top of the stack.
// Tags closing scopes opened outside the capture are dropped, scopes left open are closed.
func captureRuleTags(r *rule, line []rune, span captureSpan, stack RuleStack, depth int) []int {
	start := clamp(span.start, len(line))
	end := clamp(span.end, len(line))
	text := line[start:end]

	nested := make(RuleStack, len(stack), len(stack)+1)
	copy(nested, stack)
	nested = append(nested, StackEntry{rule: r, anchorPosition: -1})
	tags, _ := r.grammar.tokenize(text, nested, false, depth+1)

	var (
		result []int
		open   []int
	)
	offset := 0
	for _, tag := range tags {
		switch {
		case tag > 0:
			if offset < len(text) {
				result = append(result, clamp(tag, len(text)-offset))
			}
			offset += tag
		case tag == 0:
		case tag%2 == -1:
			open = append(open, tag)
			result = append(result, tag)
		default:
			if len(open) > 0 && open[len(open)-1]-1 == tag {
				open = open[:len(open)-1]
				result = append(result, tag)
			}
		}
	}

	for i := len(open) - 1; i >= 0; i-- {
		result = append(result, open[i]-1)
	}
	return result
}

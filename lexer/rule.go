package lexer

import (
	"sort"

	"github.com/ava12/tmlex/grammar"
	"github.com/ava12/tmlex/internal/ints"
	"github.com/ava12/tmlex/regex"
	"github.com/ava12/tmlex/selector"
)

// rule is a pattern list pushed to the rule stack, begin/end rules have an end pattern.
type rule struct {
	id                  int
	grammar             *Grammar
	scopeName           string
	contentScopeName    string
	patterns            []*pattern
	endPattern          *pattern
	applyEndPatternLast bool
	scanners            map[*Grammar]*scanner
	included            map[includeKey][]*pattern

	// origin is set on rules built for a single activation of a back referencing end pattern.
	origin *rule
}

type includeKey struct {
	base    *Grammar
	visited string
}

func (g *Grammar) newRule(scopeName, contentScopeName string, defs []grammar.Pattern, endPattern *pattern, applyEndPatternLast bool) *rule {
	r := &rule{
		id:                  g.registry.nextRuleID(),
		grammar:             g,
		scopeName:           scopeName,
		contentScopeName:    contentScopeName,
		endPattern:          endPattern,
		applyEndPatternLast: applyEndPatternLast,
		scanners:            make(map[*Grammar]*scanner),
		included:            make(map[includeKey][]*pattern),
	}

	for i := range defs {
		if !defs[i].Disabled {
			r.patterns = append(r.patterns, g.newPattern(&defs[i], false))
		}
	}
	if endPattern != nil && !endPattern.hasBackReferences {
		r.patterns = r.withEndPattern(r.patterns, endPattern)
	}
	return r
}

func (r *rule) withEndPattern(patterns []*pattern, endPattern *pattern) []*pattern {
	result := make([]*pattern, 0, len(patterns)+1)
	if r.applyEndPatternLast {
		result = append(result, patterns...)
		return append(result, endPattern)
	}

	result = append(result, endPattern)
	return append(result, patterns...)
}

// includedPatterns returns the pattern list with includes resolved,
// rules already present in visited contribute nothing.
func (r *rule) includedPatterns(base *Grammar, visited *ints.Set) []*pattern {
	if visited.Contains(r.id) {
		return nil
	}

	key := includeKey{base, visited.Key()}
	if result, found := r.included[key]; found {
		return result
	}

	visited = visited.With(r.id)
	result := make([]*pattern, 0, len(r.patterns))
	for _, p := range r.patterns {
		result = append(result, p.includedPatterns(base, visited)...)
	}
	r.included[key] = result
	return result
}

func (r *rule) scanner(base *Grammar) *scanner {
	s := r.scanners[base]
	if s == nil {
		s = newScanner(r.grammar.registry, r.includedPatterns(base, ints.NewSet()))
		r.scanners[base] = s
	}
	return s
}

// ruleToPush returns the rule itself or a fresh rule with end pattern back references resolved.
func (r *rule) ruleToPush(line []rune, beginCaptures []regex.Capture) *rule {
	if r.endPattern == nil || !r.endPattern.hasBackReferences {
		return r
	}

	result := r.grammar.newRule(r.scopeName, r.contentScopeName, nil, nil, r.applyEndPatternLast)
	result.endPattern = r.endPattern.resolveBackReferences(line, beginCaptures)
	result.patterns = result.withEndPattern(r.patterns, result.endPattern)
	result.origin = r
	return result
}

// sameRule reports whether a and b are the same rule,
// activation rules are the same if they share the origin and the resolved end pattern.
func sameRule(a, b *rule) bool {
	if a == b {
		return true
	}
	return a != nil && b != nil && a.origin != nil && a.origin == b.origin &&
		a.endPattern.regexSource == b.endPattern.regexSource
}

type candidate struct {
	scanner *scanner
	match   *regex.Match
}

// findNextMatch returns the earliest match of this rule's patterns and applicable injections.
// line must include trailing "\n".
func (r *rule) findNextMatch(stack RuleStack, line []rune, position int, firstLine bool) *candidate {
	base := stack[0].rule.grammar
	anchor := stack.top().anchorPosition
	var front, results []candidate

	own := r.scanner(base)
	if m := own.findNextMatch(line, firstLine, position, anchor); m != nil {
		results = append(results, candidate{own, m})
	}

	scopes := stack.Scopes()
	for _, inj := range base.injections.matching(scopes) {
		s := inj.getScanner()
		m := s.findNextMatch(line, firstLine, position, anchor)
		if m == nil {
			continue
		}

		if inj.selector.Prefix(scopes...) == selector.PrefixL {
			front = append(front, candidate{s, m})
		} else {
			results = append(results, candidate{s, m})
		}
	}

	for _, ig := range r.grammar.registry.injectionGrammars {
		if ig == r.grammar || ig == base || !ig.injectionSelector.Matches(scopes...) {
			continue
		}

		s := ig.initialRule().scanner(ig)
		m := s.findNextMatch(line, firstLine, position, anchor)
		if m == nil {
			continue
		}

		if ig.injectionSelector.Prefix(scopes...) == selector.PrefixL {
			front = append(front, candidate{s, m})
		} else {
			results = append(results, candidate{s, m})
		}
	}

	results = append(front, results...)
	if len(results) == 0 {
		return nil
	}

	for _, c := range results {
		normalizeCaptures(len(line), c.match.Captures)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].match.Captures[0].Start < results[j].match.Captures[0].Start
	})
	return &results[0]
}

func normalizeCaptures(length int, captures []regex.Capture) {
	for i := range captures {
		captures[i].Start = clamp(captures[i].Start, length)
		captures[i].End = clamp(captures[i].End, length)
	}
}

type tagMatch struct {
	tags       []int
	start, end int
}

// nextTags finds and handles the next match, false means no match or a refused one.
func (r *rule) nextTags(stack *RuleStack, line []rune, position int, firstLine bool, depth int) (tagMatch, bool) {
	withNewline := make([]rune, len(line)+1)
	copy(withNewline, line)
	withNewline[len(line)] = '\n'

	c := r.findNextMatch(*stack, withNewline, position, firstLine)
	if c == nil {
		return tagMatch{}, false
	}

	whole := c.match.Captures[0]
	tags, ok := c.scanner.handleMatch(c.match, stack, line, depth)
	if !ok {
		return tagMatch{}, false
	}
	return tagMatch{tags, whole.Start, whole.End}, true
}

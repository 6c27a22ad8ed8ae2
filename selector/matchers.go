package selector

import (
	"strings"
)

type matcher interface {
	matches(scopes []string) bool
	prefix(scopes []string) Prefix
	css(namespace string) string
}

type segmentMatcher struct {
	segment string
}

func (m segmentMatcher) matchesSegment(segment string) bool {
	return segment == m.segment
}

func (m segmentMatcher) css(namespace string) string {
	var sb strings.Builder
	for _, part := range strings.Split(m.segment, ".") {
		sb.WriteString(".")
		sb.WriteString(namespace)
		sb.WriteString(strings.ReplaceAll(part, "+", `\+`))
	}
	return sb.String()
}

// wildcard segment
type trueMatcher struct{}

func (trueMatcher) matchesSegment(string) bool {
	return true
}

func (trueMatcher) css(string) string {
	return "*"
}

type segment interface {
	matchesSegment(segment string) bool
	css(namespace string) string
}

type scopeMatcher struct {
	segments []segment
}

func (m *scopeMatcher) matchesScope(scope string) bool {
	parts := strings.Split(scope, ".")
	if len(parts) < len(m.segments) {
		return false
	}

	for i, s := range m.segments {
		if !s.matchesSegment(parts[i]) {
			return false
		}
	}
	return true
}

func (m *scopeMatcher) css(namespace string) string {
	var sb strings.Builder
	for _, s := range m.segments {
		sb.WriteString(s.css(namespace))
	}
	return sb.String()
}

type pathMatcher struct {
	pfx    Prefix
	scopes []*scopeMatcher
}

func (m *pathMatcher) matches(scopes []string) bool {
	index := 0
	for _, scope := range scopes {
		if m.scopes[index].matchesScope(scope) {
			index++
		}
		if index >= len(m.scopes) {
			return true
		}
	}
	return false
}

func (m *pathMatcher) prefix(scopes []string) Prefix {
	if m.matches(scopes) {
		return m.pfx
	}
	return NoPrefix
}

func (m *pathMatcher) css(namespace string) string {
	parts := make([]string, len(m.scopes))
	for i, s := range m.scopes {
		parts[i] = s.css(namespace)
	}
	return strings.Join(parts, " ")
}

type groupMatcher struct {
	pfx      Prefix
	selector matcher
}

func (m *groupMatcher) matches(scopes []string) bool {
	return m.selector.matches(scopes)
}

func (m *groupMatcher) prefix(scopes []string) Prefix {
	if m.selector.matches(scopes) {
		return m.pfx
	}
	return NoPrefix
}

func (m *groupMatcher) css(namespace string) string {
	return m.selector.css(namespace)
}

type orMatcher struct {
	left, right matcher
}

func (m *orMatcher) matches(scopes []string) bool {
	return m.left.matches(scopes) || m.right.matches(scopes)
}

func (m *orMatcher) prefix(scopes []string) Prefix {
	if p := m.left.prefix(scopes); p != NoPrefix {
		return p
	}
	return m.right.prefix(scopes)
}

func (m *orMatcher) css(namespace string) string {
	return m.left.css(namespace) + ", " + m.right.css(namespace)
}

type andMatcher struct {
	left, right matcher
}

func (m *andMatcher) matches(scopes []string) bool {
	return m.left.matches(scopes) && m.right.matches(scopes)
}

// only the left side can carry a prefix
func (m *andMatcher) prefix(scopes []string) Prefix {
	if m.matches(scopes) {
		return m.left.prefix(scopes)
	}
	return NoPrefix
}

func (m *andMatcher) css(namespace string) string {
	if _, negated := m.right.(*negateMatcher); negated {
		return m.left.css(namespace) + m.right.css(namespace)
	}
	return m.left.css(namespace) + " " + m.right.css(namespace)
}

type negateMatcher struct {
	matcher matcher
}

func (m *negateMatcher) matches(scopes []string) bool {
	return !m.matcher.matches(scopes)
}

func (m *negateMatcher) prefix([]string) Prefix {
	return NoPrefix
}

func (m *negateMatcher) css(namespace string) string {
	return ":not(" + m.matcher.css(namespace) + ")"
}

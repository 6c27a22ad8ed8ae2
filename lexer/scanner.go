package lexer

import (
	"github.com/sirupsen/logrus"

	"github.com/ava12/tmlex/regex"
)

// scanner caches compiled pattern lists, anchored lists are compiled separately
// for the first line and for the anchor position.
type scanner struct {
	registry *Registry
	patterns []*pattern
	anchored bool
	variants [4]regex.Scanner
}

func newScanner(r *Registry, patterns []*pattern) *scanner {
	s := &scanner{registry: r, patterns: patterns}
	for _, p := range patterns {
		if p.anchored {
			s.anchored = true
			break
		}
	}
	return s
}

func (s *scanner) variant(firstLine bool, position, anchor int) int {
	if !s.anchored {
		return 0
	}

	v := 0
	if firstLine {
		v |= 1
	}
	if position == anchor {
		v |= 2
	}
	return v
}

func (s *scanner) get(firstLine bool, position, anchor int) regex.Scanner {
	v := s.variant(firstLine, position, anchor)
	if s.variants[v] == nil {
		sources := make([]string, len(s.patterns))
		for i, p := range s.patterns {
			sources[i] = p.regexp(firstLine, position, anchor)
		}

		compiled, e := s.registry.engine.Compile(sources)
		if e != nil {
			s.registry.log.WithFields(logrus.Fields{
				"code": RegexpDiagnostic,
			}).WithError(e).Warning("cannot compile patterns")
		}
		s.variants[v] = compiled
	}
	return s.variants[v]
}

func (s *scanner) findNextMatch(line []rune, firstLine bool, position, anchor int) *regex.Match {
	if len(s.patterns) == 0 {
		return nil
	}

	m, e := s.get(firstLine, position, anchor).FindNextMatch(line, position)
	if e != nil {
		s.registry.log.WithFields(logrus.Fields{
			"code":   RegexpDiagnostic,
			"column": position,
		}).WithError(e).Warning("pattern match failed")
	}
	return m
}

func (s *scanner) handleMatch(m *regex.Match, stack *RuleStack, line []rune, depth int) ([]int, bool) {
	return s.patterns[m.Index].handleMatch(stack, line, m.Captures, depth)
}

package lexer

import (
	"github.com/ava12/tmlex/grammar"
	"github.com/ava12/tmlex/internal/ints"
	"github.com/ava12/tmlex/selector"
)

type injection struct {
	grammar  *Grammar
	selector *selector.Selector
	patterns []*pattern
	scanner  *scanner
}

func (i *injection) getScanner() *scanner {
	if i.scanner == nil {
		i.scanner = newScanner(i.grammar.registry, i.patterns)
	}
	return i.scanner
}

// injections are selector-guarded pattern lists of a grammar, they apply when the grammar is the base one.
type injections struct {
	grammar   *Grammar
	defs      grammar.Injections
	selectors []*selector.Selector
	list      []*injection
	stale     bool
}

// newInjections parses selectors and resolves patterns, so included grammars become dependencies at once.
func newInjections(g *Grammar, defs grammar.Injections) (*injections, error) {
	is := &injections{grammar: g, defs: defs, selectors: make([]*selector.Selector, len(defs))}
	for i, def := range defs {
		s, e := selector.Parse(def.Selector)
		if e != nil {
			return nil, badSelectorError(g.scopeName, e)
		}
		is.selectors[i] = s
	}
	is.build()
	return is, nil
}

func (is *injections) build() {
	is.list = nil
	for i := range is.defs {
		defs := is.defs[i].Patterns
		if len(defs) == 0 {
			continue
		}

		var patterns []*pattern
		for j := range defs {
			if defs[j].Disabled {
				continue
			}
			p := is.grammar.newPattern(&defs[j], false)
			patterns = append(patterns, p.includedPatterns(is.grammar, ints.NewSet())...)
		}
		is.list = append(is.list, &injection{grammar: is.grammar, selector: is.selectors[i], patterns: patterns})
	}
	is.stale = false
}

func (is *injections) invalidate() {
	if len(is.defs) > 0 {
		is.stale = true
	}
}

// matching returns injections whose selectors match the scope list, in declaration order.
func (is *injections) matching(scopes []string) []*injection {
	if is.stale {
		is.build()
	}

	var result []*injection
	for _, inj := range is.list {
		if inj.selector.Matches(scopes...) {
			result = append(result, inj)
		}
	}
	return result
}

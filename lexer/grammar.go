package lexer

import (
	"github.com/sirupsen/logrus"

	"github.com/ava12/tmlex/grammar"
	"github.com/ava12/tmlex/internal/event"
	"github.com/ava12/tmlex/regex"
	"github.com/ava12/tmlex/selector"
	"github.com/ava12/tmlex/source"
)

// Grammar tokenizes lines of text. Grammars are created by Registry.
type Grammar struct {
	registry          *Registry
	def               *grammar.Definition
	path              string
	name              string
	scopeName         string
	fileTypes         []string
	maxTokensPerLine  int
	maxLineLength     int
	injectionSelector *selector.Selector
	firstLineRegex    regex.Scanner
	injections        *injections
	initial           *rule
	repo              map[string]*rule
	includedScopes    []string
	updated           event.Emitter[*Grammar]
	unregister        func()
}

func newGrammar(r *Registry, def *grammar.Definition, maxTokens, maxLength int) (*Grammar, error) {
	g := &Grammar{
		registry:         r,
		def:              def,
		name:             def.Name,
		scopeName:        def.ScopeName,
		fileTypes:        def.FileTypes,
		maxTokensPerLine: maxTokens,
		maxLineLength:    maxLength,
	}

	if def.InjectionSelector != "" {
		s, e := selector.Parse(def.InjectionSelector)
		if e != nil {
			return nil, badSelectorError(def.ScopeName, e)
		}
		g.injectionSelector = s
	}

	if def.FirstLineMatch != "" {
		s, e := regex.Compile(r.engine, def.FirstLineMatch)
		if e != nil {
			return nil, badRegexpError(def.ScopeName, def.FirstLineMatch, e)
		}
		g.firstLineRegex = s
	}

	is, e := newInjections(g, def.Injections)
	if e != nil {
		return nil, e
	}
	g.injections = is
	return g, nil
}

func (g *Grammar) Registry() *Registry {
	return g.registry
}

func (g *Grammar) Name() string {
	return g.name
}

func (g *Grammar) ScopeName() string {
	return g.scopeName
}

// Path returns file path for grammars loaded with Registry.LoadGrammarFile.
func (g *Grammar) Path() string {
	return g.path
}

func (g *Grammar) FileTypes() []string {
	return g.fileTypes
}

// MaxTokensPerLine returns effective token limit, 0 means no limit.
func (g *Grammar) MaxTokensPerLine() int {
	return g.maxTokensPerLine
}

// MaxLineLength returns effective line length limit in runes, 0 means no limit.
func (g *Grammar) MaxLineLength() int {
	return g.maxLineLength
}

// InjectionSelector returns nil for grammars that are not injected into other grammars.
func (g *Grammar) InjectionSelector() *selector.Selector {
	return g.injectionSelector
}

// IncludedGrammarScopes returns scope names of grammars this grammar depends on.
func (g *Grammar) IncludedGrammarScopes() []string {
	return append([]string(nil), g.includedScopes...)
}

// MatchesFirstLine reports whether the line matches grammar's first line pattern.
func (g *Grammar) MatchesFirstLine(line string) bool {
	if g.firstLineRegex == nil {
		return false
	}

	m, _ := g.firstLineRegex.FindNextMatch([]rune(line), 0)
	return m != nil
}

// OnDidUpdate subscribes fn to updates caused by adding or removing grammars this grammar depends on.
func (g *Grammar) OnDidUpdate(fn func(*Grammar)) func() {
	return g.updated.On(fn)
}

// Activate adds grammar to its registry.
func (g *Grammar) Activate() {
	g.unregister = g.registry.AddGrammar(g)
}

// Deactivate removes grammar from its registry and drops update subscriptions.
func (g *Grammar) Deactivate() {
	g.updated.Clear()
	if g.unregister != nil {
		g.unregister()
	}
	g.unregister = nil
}

// GrammarUpdated rebuilds rules if the grammar depends on scope name, reports whether it does.
func (g *Grammar) GrammarUpdated(scopeName string) bool {
	return g.grammarUpdated(scopeName, make(map[string]bool))
}

func (g *Grammar) grammarUpdated(scopeName string, visited map[string]bool) bool {
	if !g.includes(scopeName) {
		return false
	}

	g.clearRules()
	g.registry.grammarUpdated(g.scopeName, visited)
	g.updated.Emit(g)
	return true
}

func (g *Grammar) includes(scopeName string) bool {
	for _, s := range g.includedScopes {
		if s == scopeName {
			return true
		}
	}
	return false
}

func (g *Grammar) addIncludedGrammarScope(scopeName string) {
	if !g.includes(scopeName) {
		g.includedScopes = append(g.includedScopes, scopeName)
	}
}

func (g *Grammar) clearRules() {
	g.initial = nil
	g.repo = nil
	g.injections.invalidate()
}

func (g *Grammar) initialRule() *rule {
	if g.initial == nil {
		g.initial = g.newRule(g.scopeName, "", g.def.Patterns, nil, false)
	}
	return g.initial
}

func (g *Grammar) repository() map[string]*rule {
	if g.repo == nil {
		g.repo = make(map[string]*rule, len(g.def.Repository))
		for name, data := range g.def.Repository {
			if data.Begin != "" || data.Match != "" || data.Include != "" {
				g.repo[name] = g.newRule("", "", []grammar.Pattern{data}, nil, false)
			} else {
				g.repo[name] = g.newRule("", "", data.Patterns, nil, false)
			}
		}
	}
	return g.repo
}

// TokenizeLine tokenizes a single line.
// stack is the RuleStack returned for the previous line or nil for the first line of text,
// firstLine must be true only for the first line of text.
func (g *Grammar) TokenizeLine(line string, stack RuleStack, firstLine bool) *LineResult {
	var openScopeTags []int
	for _, scope := range stack.Scopes() {
		openScopeTags = append(openScopeTags, g.registry.StartIDForScope(scope))
	}

	tags, stack := g.tokenize([]rune(line), stack, firstLine, 0)
	return &LineResult{
		Line:          line,
		Tags:          tags,
		RuleStack:     stack,
		openScopeTags: openScopeTags,
		registry:      g.registry,
	}
}

// TokenizeLines tokenizes text split on "\n" and returns tokens for every line.
func (g *Grammar) TokenizeLines(text string) ([][]Token, error) {
	lines := source.FromString(g.scopeName, text).Lines()
	result := make([][]Token, len(lines))
	var (
		stack     RuleStack
		scopeTags []int
		e         error
	)
	for i, line := range lines {
		lr := g.TokenizeLine(line, stack, i == 0)
		stack = lr.RuleStack
		result[i], scopeTags, e = g.registry.DecodeTokens(line, lr.Tags, scopeTags)
		if e != nil {
			return nil, e
		}
	}
	return result, nil
}

func (g *Grammar) openTags(tags []int, e StackEntry) []int {
	if e.scopeName != "" {
		tags = append(tags, g.registry.StartIDForScope(e.scopeName))
	}
	if e.contentScopeName != "" {
		tags = append(tags, g.registry.StartIDForScope(e.contentScopeName))
	}
	return tags
}

func (g *Grammar) closeTags(tags []int, e StackEntry) []int {
	if e.contentScopeName != "" {
		tags = append(tags, g.registry.EndIDForScope(e.contentScopeName))
	}
	if e.scopeName != "" {
		tags = append(tags, g.registry.EndIDForScope(e.scopeName))
	}
	return tags
}

func (g *Grammar) tokenize(input []rune, prior RuleStack, firstLine bool, depth int) ([]int, RuleStack) {
	line := input
	truncated := false
	if g.maxLineLength > 0 && len(input) > g.maxLineLength {
		line = input[:g.maxLineLength]
		truncated = true
	}

	var (
		tags  []int
		stack RuleStack
	)
	if len(prior) > 0 {
		stack = prior.clone()
	} else {
		r := g.initialRule()
		stack = RuleStack{{rule: r, scopeName: r.scopeName, contentScopeName: r.contentScopeName, anchorPosition: -1}}
		tags = g.openTags(tags, stack[0])
	}

	initial := stack.clone()
	position := 0
	tokenCount := 0
	stalls := 0
	stallBase := 0

	for {
		previousLength := len(stack)
		previousPosition := position
		previousTags := len(tags)

		if position == len(line)+1 {
			break
		}

		if g.maxTokensPerLine > 0 && tokenCount >= g.maxTokensPerLine-1 {
			truncated = true
			break
		}

		var saved RuleStack
		if g.maxTokensPerLine > 0 {
			saved = stack.clone()
		}
		m, found := stack.top().rule.nextTags(&stack, line, position, firstLine, depth)
		if !found {
			if position < len(line) || len(line) == 0 {
				tags = append(tags, len(line)-position)
			}
			position = len(line)
			break
		}

		added := 0
		if position < m.start {
			added++
		}
		for _, tag := range m.tags {
			if tag >= 0 {
				added++
			}
		}
		if g.maxTokensPerLine > 0 && tokenCount+added > g.maxTokensPerLine-1 {
			stack = saved
			truncated = true
			break
		}

		if position < m.start {
			tags = append(tags, m.start-position)
		}
		tags = append(tags, m.tags...)
		tokenCount += added
		position = m.end

		if position != previousPosition {
			stalls = 0
			continue
		}

		if stalls == 0 {
			stallBase = previousLength
		}
		stalls++

		if len(stack) == previousLength {
			if len(stack) > 1 {
				e := stack.pop()
				g.stallWarning(line, position, e.scopeName).Warning("popping rule because it loops")
				tags = g.closeTags(tags, e)
			} else {
				if position < len(line) || (len(line) == 0 && len(tags) == 0) {
					tags = append(tags, len(line)-position)
				}
				position = len(line)
				break
			}
		} else if len(stack) > previousLength {
			last, below := stack[len(stack)-1], stack[len(stack)-2]
			if sameRule(last.rule, below.rule) || (last.rule.scopeName != "" && last.rule.scopeName == below.rule.scopeName) {
				stack.pop()
				tags = tags[:previousTags]
				if position < len(line) {
					tags = append(tags, len(line)-position)
				}
				position = len(line)
				break
			}
		}

		if stalls > maxStalls {
			g.stallWarning(line, position, stack.top().scopeName).Warning("abandoning line because rules loop")
			for len(stack) > stallBase && len(stack) > 1 {
				tags = g.closeTags(tags, stack.pop())
			}
			if position < len(line) {
				tags = append(tags, len(line)-position)
			}
			position = len(line)
			break
		}
	}

	if truncated {
		if position > len(line) {
			position = len(line)
		}
		rest := len(input) - position
		if n := len(tags); n > 0 && tags[n-1] > 0 {
			tags[n-1] += rest
		} else if rest > 0 {
			tags = append(tags, rest)
		}

		common := stack.commonPrefix(initial)
		for len(stack) > common {
			tags = g.closeTags(tags, stack.pop())
		}
		for _, e := range initial[common:] {
			tags = g.openTags(tags, e)
		}
		stack = initial
	}

	stack.clearAnchors()
	return tags, stack
}

func (g *Grammar) stallWarning(line []rune, position int, scopeName string) *logrus.Entry {
	return g.registry.log.WithFields(logrus.Fields{
		"grammar": g.scopeName,
		"scope":   scopeName,
		"column":  position,
		"line":    string(line),
		"code":    StallDiagnostic,
	})
}

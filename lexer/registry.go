package lexer

import (
	"github.com/sirupsen/logrus"

	"github.com/ava12/tmlex/grammar"
	"github.com/ava12/tmlex/internal/event"
	"github.com/ava12/tmlex/langdef"
	"github.com/ava12/tmlex/regex"
)

const (
	NullScopeName   = "text.plain.null-grammar"
	NullGrammarName = "Null Grammar"
)

// Registry contains grammars and the scope id table shared by them.
type Registry struct {
	config            Config
	log               logrus.FieldLogger
	engine            regex.Engine
	nullGrammar       *Grammar
	grammars          []*Grammar
	grammarsByScope   map[string]*Grammar
	injectionGrammars []*Grammar
	scopeIDCounter    int
	idsByScope        map[string]int
	scopesByID        map[int]string
	ruleIDCounter     int
	added             event.Emitter[*Grammar]
	updated           event.Emitter[*Grammar]
}

// NewRegistry creates a registry containing only the null grammar, config may be nil.
func NewRegistry(config *Config) *Registry {
	r := &Registry{}
	if config != nil {
		r.config = *config
	}
	r.log = r.config.Logger
	if r.log == nil {
		r.log = defaultLogger()
	}
	r.engine = r.config.Engine
	if r.engine == nil {
		r.engine = regex.Default
	}

	r.nullGrammar, _ = r.CreateGrammar(&grammar.Definition{ScopeName: NullScopeName, Name: NullGrammarName})
	r.Clear()
	return r
}

// Clear removes all grammars except the null grammar, all subscriptions, and resets scope ids.
func (r *Registry) Clear() {
	r.added.Clear()
	r.updated.Clear()
	r.grammars = nil
	r.grammarsByScope = make(map[string]*Grammar)
	r.injectionGrammars = nil
	r.scopeIDCounter = -1
	r.idsByScope = make(map[string]int)
	r.scopesByID = make(map[int]string)
	r.AddGrammar(r.nullGrammar)
}

// OnDidAddGrammar subscribes fn to grammar additions, returns unsubscribe function.
func (r *Registry) OnDidAddGrammar(fn func(*Grammar)) func() {
	return r.added.On(fn)
}

// OnDidUpdateGrammar subscribes fn to grammar updates caused by adding or removing grammars they depend on.
func (r *Registry) OnDidUpdateGrammar(fn func(*Grammar)) func() {
	return r.updated.On(fn)
}

// NullGrammar returns the grammar with no patterns that is always present.
func (r *Registry) NullGrammar() *Grammar {
	return r.nullGrammar
}

// Grammars returns all grammars in order of addition.
func (r *Registry) Grammars() []*Grammar {
	return append([]*Grammar(nil), r.grammars...)
}

// GrammarForScopeName returns grammar or nil.
func (r *Registry) GrammarForScopeName(scopeName string) *Grammar {
	return r.grammarsByScope[scopeName]
}

// AddGrammar adds grammar and notifies dependent grammars, returns a function removing the grammar.
// A grammar with the same scope name is replaced in the scope name table but stays in the list.
func (r *Registry) AddGrammar(g *Grammar) func() {
	r.grammars = append(r.grammars, g)
	r.grammarsByScope[g.scopeName] = g
	if g.injectionSelector != nil {
		r.injectionGrammars = append(r.injectionGrammars, g)
	}
	r.GrammarUpdated(g.scopeName)
	r.added.Emit(g)

	removed := false
	return func() {
		if !removed {
			removed = true
			r.RemoveGrammar(g)
		}
	}
}

// RemoveGrammar removes grammar and notifies dependent grammars.
func (r *Registry) RemoveGrammar(g *Grammar) {
	r.grammars = removeGrammar(r.grammars, g)
	if r.grammarsByScope[g.scopeName] == g {
		delete(r.grammarsByScope, g.scopeName)
	}
	r.injectionGrammars = removeGrammar(r.injectionGrammars, g)
	r.GrammarUpdated(g.scopeName)
}

// RemoveGrammarForScopeName removes and returns grammar, returns nil if there is no such grammar.
func (r *Registry) RemoveGrammarForScopeName(scopeName string) *Grammar {
	g := r.GrammarForScopeName(scopeName)
	if g != nil {
		r.RemoveGrammar(g)
	}
	return g
}

func removeGrammar(list []*Grammar, g *Grammar) []*Grammar {
	for i, item := range list {
		if item == g {
			result := make([]*Grammar, 0, len(list)-1)
			result = append(result, list[:i]...)
			return append(result, list[i+1:]...)
		}
	}
	return list
}

// GrammarUpdated notifies every grammar depending on the scope name that it needs rebuilding.
// Updates propagate to grammars depending on updated ones.
func (r *Registry) GrammarUpdated(scopeName string) {
	r.grammarUpdated(scopeName, make(map[string]bool))
}

func (r *Registry) grammarUpdated(scopeName string, visited map[string]bool) {
	if visited[scopeName] {
		return
	}
	visited[scopeName] = true

	for _, g := range r.Grammars() {
		if g.scopeName != scopeName && g.grammarUpdated(scopeName, visited) {
			r.updated.Emit(g)
		}
	}
}

// CreateGrammar creates grammar without adding it to registry.
// Registry limits apply unless the definition sets its own.
func (r *Registry) CreateGrammar(def *grammar.Definition) (*Grammar, error) {
	if e := def.Validate(); e != nil {
		return nil, e
	}

	maxTokens := def.MaxTokensPerLine
	if maxTokens <= 0 {
		maxTokens = r.config.MaxTokensPerLine
	}
	maxLength := def.MaxLineLength
	if maxLength <= 0 {
		maxLength = r.config.MaxLineLength
	}
	if !def.LineLengthLimited() {
		maxLength = 0
	}

	return newGrammar(r, def, maxTokens, maxLength)
}

// LoadGrammar creates grammar and adds it to registry.
func (r *Registry) LoadGrammar(def *grammar.Definition) (*Grammar, error) {
	g, e := r.CreateGrammar(def)
	if e != nil {
		return nil, e
	}

	r.AddGrammar(g)
	return g, nil
}

// LoadGrammarFile reads grammar definition file (see langdef.ParseFile) and adds grammar to registry.
func (r *Registry) LoadGrammarFile(path string) (*Grammar, error) {
	def, e := langdef.ParseFile(path)
	if e != nil {
		return nil, e
	}

	g, e := r.LoadGrammar(def)
	if e == nil {
		g.path = path
	}
	return g, e
}

// StartIDForScope returns start tag for scope name, allocating it if needed.
func (r *Registry) StartIDForScope(scopeName string) int {
	id, found := r.idsByScope[scopeName]
	if !found {
		id = r.scopeIDCounter
		r.scopeIDCounter -= 2
		r.idsByScope[scopeName] = id
		r.scopesByID[id] = scopeName
	}
	return id
}

// EndIDForScope returns end tag for scope name, allocating it if needed.
func (r *Registry) EndIDForScope(scopeName string) int {
	return r.StartIDForScope(scopeName) - 1
}

// ScopeForID returns scope name for start or end tag or empty string for unknown tags.
func (r *Registry) ScopeForID(id int) string {
	if id%2 == -1 {
		return r.scopesByID[id]
	}
	return r.scopesByID[id+1]
}

func (r *Registry) nextRuleID() int {
	id := r.ruleIDCounter
	r.ruleIDCounter++
	return id
}

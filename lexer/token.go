package lexer

// Token is a piece of line text with scopes applied to it, outermost scope first.
type Token struct {
	Value  string
	Scopes []string
}

// LineResult is the result of tokenizing a single line.
type LineResult struct {
	// Line is the whole line passed to the tokenizer, including the part left after truncation.
	Line string

	// Tags is the tag stream.
	Tags []int

	// RuleStack is the state to be passed when tokenizing the next line.
	RuleStack RuleStack

	openScopeTags []int
	registry      *Registry
}

// OpenScopeTags returns start tags of the scopes open before the line.
func (r *LineResult) OpenScopeTags() []int {
	return append([]int(nil), r.openScopeTags...)
}

// Tokens decodes tags, an error means a corrupt tag stream.
func (r *LineResult) Tokens() ([]Token, error) {
	tokens, _, e := r.registry.DecodeTokens(r.Line, r.Tags, r.OpenScopeTags())
	return tokens, e
}

// DecodeTokens converts tags to tokens.
// openScopeTags are start tags of the scopes open before the line,
// returned slice contains start tags of the scopes open after the line.
func (r *Registry) DecodeTokens(line string, tags, openScopeTags []int) ([]Token, []int, error) {
	return r.DecodeTokensFunc(line, tags, openScopeTags, nil)
}

// DecodeTokensFunc is like DecodeTokens but calls fn (if not nil) for every token,
// passing token and its tag index, and stores the returned value instead.
func (r *Registry) DecodeTokensFunc(line string, tags, openScopeTags []int, fn func(Token, int) Token) ([]Token, []int, error) {
	text := []rune(line)
	scopeTags := append([]int(nil), openScopeTags...)
	scopeNames := make([]string, len(scopeTags))
	for i, tag := range scopeTags {
		scopeNames[i] = r.ScopeForID(tag)
	}

	var tokens []Token
	offset := 0
	for index, tag := range tags {
		switch {
		case tag >= 0:
			token := Token{
				Value:  string(text[clamp(offset, len(text)):clamp(offset+tag, len(text))]),
				Scopes: append([]string(nil), scopeNames...),
			}
			if fn != nil {
				token = fn(token, index)
			}
			tokens = append(tokens, token)
			offset += tag

		case tag%2 == -1:
			scopeTags = append(scopeTags, tag)
			scopeNames = append(scopeNames, r.ScopeForID(tag))

		default:
			expected := r.ScopeForID(tag + 1)
			got := ""
			if len(scopeNames) > 0 {
				got = scopeNames[len(scopeNames)-1]
				scopeNames = scopeNames[:len(scopeNames)-1]
				scopeTags = scopeTags[:len(scopeTags)-1]
			}
			if got != expected {
				return nil, nil, scopeMismatchError(expected, got)
			}
		}
	}

	return tokens, scopeTags, nil
}

func clamp(n, limit int) int {
	if n > limit {
		return limit
	}
	return n
}

package regex

import (
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
)

// Regexp2 is the default Engine.
type Regexp2 struct {
	// Options are passed to regexp2.Compile, zero value is fine.
	Options regexp2.RegexOptions

	// MatchTimeout limits a single match attempt, zero means no limit.
	MatchTimeout time.Duration
}

var Default Engine = Regexp2{}

func (e Regexp2) Compile(sources []string) (Scanner, error) {
	s := &regexp2Scanner{make([]*regexp2.Regexp, len(sources))}
	var errs CompileErrors
	for i, src := range sources {
		re, err := regexp2.Compile(Translate(src), e.Options)
		if err != nil {
			errs = append(errs, &CompileError{i, src, err})
			continue
		}

		if e.MatchTimeout > 0 {
			re.MatchTimeout = e.MatchTimeout
		}
		s.res[i] = re
	}
	return s, compileErrors(errs)
}

type regexp2Scanner struct {
	res []*regexp2.Regexp
}

func (s *regexp2Scanner) FindNextMatch(line []rune, start int) (*Match, error) {
	var (
		best      *regexp2.Match
		bestIndex int
		matchErr  error
	)

	for i, re := range s.res {
		if re == nil {
			continue
		}

		m, err := re.FindRunesMatchStartingAt(line, start)
		if err != nil {
			if matchErr == nil {
				matchErr = errors.Wrapf(err, "pattern #%d", i)
			}
			continue
		}

		if m != nil && (best == nil || m.Index < best.Index) {
			best = m
			bestIndex = i
			if m.Index == start {
				break
			}
		}
	}

	if best == nil {
		return nil, matchErr
	}

	return &Match{bestIndex, captures(s.res[bestIndex], best)}, matchErr
}

func captures(re *regexp2.Regexp, m *regexp2.Match) []Capture {
	numbers := re.GetGroupNumbers()
	size := 1
	for _, n := range numbers {
		if n >= size {
			size = n + 1
		}
	}

	result := make([]Capture, size)
	for i := range result {
		result[i] = Capture{-1, -1}
	}
	for _, n := range numbers {
		g := m.GroupByNumber(n)
		if g != nil && len(g.Captures) > 0 {
			result[n] = Capture{g.Index, g.Index + g.Length}
		}
	}
	return result
}

const (
	hexClass  = "0-9A-Fa-f"
	hexDigits = "0123456789ABCDEFabcdef"
)

// Translate rewrites Oniguruma-only constructs to their regexp2 equivalents:
// \h and \H (hex digit classes), \x{HHHH} (code points up to U+FFFF),
// and possessive quantifiers (X*+, X++, X?+ become atomic groups).
func Translate(src string) string {
	if !strings.ContainsAny(src, `\+`) {
		return src
	}

	out := make([]byte, 0, len(src)+8)
	var groups []int
	atom := -1
	classDepth := 0
	classStart := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		start := len(out)

		switch {
		case c == '\\':
			if i+1 >= len(src) {
				out = append(out, c)
				continue
			}
			out, i = appendEscape(out, src, i+1, classDepth > 0)
			classStart = false
			if classDepth == 0 {
				atom = start
			}
			continue

		case c == '[':
			if classDepth == 0 {
				atom = start
			}
			classDepth++
			out = append(out, c)
			if i+1 < len(src) && src[i+1] == '^' {
				out = append(out, '^')
				i++
			}
			classStart = true
			continue

		case classDepth > 0:
			if c == ']' && !classStart {
				classDepth--
			}
			classStart = false
			out = append(out, c)
			continue
		}

		switch c {
		case '(':
			groups = append(groups, start)
			atom = -1
		case ')':
			atom = -1
			if n := len(groups); n > 0 {
				atom = groups[n-1]
				groups = groups[:n-1]
			}
		case '|':
			atom = -1
		case '*', '+', '?':
			if atom >= 0 && i+1 < len(src) && src[i+1] == '+' {
				out = possessive(out, atom, c)
				i++
			} else {
				out = append(out, c)
			}
			atom = -1
			continue
		case '{':
			if n := intervalLen(src[i:]); n > 0 {
				out = append(out, src[i:i+n]...)
				i += n - 1
				atom = -1
				continue
			}
			atom = start
		default:
			atom = start
		}
		out = append(out, c)
	}
	return string(out)
}

// appendEscape translates the escape sequence whose letter is at src[i],
// returns the index of its last byte.
func appendEscape(out []byte, src string, i int, inClass bool) ([]byte, int) {
	next := src[i]
	switch next {
	case 'h':
		if inClass {
			return append(out, hexClass...), i
		}
		return append(out, "["+hexClass+"]"...), i
	case 'H':
		if inClass {
			return append(out, `\H`...), i
		}
		return append(out, "[^"+hexClass+"]"...), i
	case 'x':
		if code, size := braceHex(src[i+1:]); size > 0 {
			return append(out, `\u`+code...), i + size
		}
	}

	tail := escapeTail(src[i+1:], next)
	out = append(out, '\\')
	return append(out, src[i:i+1+tail]...), i + tail
}

// escapeTail returns the length of escape sequence arguments following its letter.
func escapeTail(s string, letter byte) int {
	switch letter {
	case 'x':
		return hexRun(s, 2)
	case 'u':
		return hexRun(s, 4)
	case 'p', 'P', 'k', 'g':
		if len(s) == 0 {
			return 0
		}
		var closing byte
		switch s[0] {
		case '{':
			closing = '}'
		case '<':
			closing = '>'
		case '\'':
			closing = '\''
		default:
			return 0
		}
		if end := strings.IndexByte(s[1:], closing); end >= 0 {
			return end + 2
		}
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		n := 0
		for n < len(s) && s[n] >= '0' && s[n] <= '9' {
			n++
		}
		return n
	}
	return 0
}

func hexRun(s string, limit int) int {
	n := 0
	for n < len(s) && n < limit && strings.IndexByte(hexDigits, s[n]) >= 0 {
		n++
	}
	return n
}

// intervalLen returns the length of {n}, {n,}, {,m} or {n,m} prefix or 0.
func intervalLen(s string) int {
	end := strings.IndexByte(s, '}')
	if end < 2 {
		return 0
	}

	body := s[1:end]
	digits, comma := 0, 0
	for i := 0; i < len(body); i++ {
		switch {
		case body[i] >= '0' && body[i] <= '9':
			digits++
		case body[i] == ',':
			comma++
		default:
			return 0
		}
	}
	if digits == 0 || comma > 1 {
		return 0
	}
	return end + 1
}

func possessive(out []byte, atom int, quantifier byte) []byte {
	body := string(out[atom:])
	return append(out[:atom], "(?>"+body+string(quantifier)+")"...)
}

// braceHex parses "{HHHH}" prefix, returns 4-digit code and prefix length or 0 if not applicable.
func braceHex(s string) (string, int) {
	if len(s) < 3 || s[0] != '{' {
		return "", 0
	}

	end := strings.IndexByte(s, '}')
	if end < 2 || end > 5 {
		return "", 0
	}

	digits := s[1:end]
	if _, e := strconv.ParseUint(digits, 16, 16); e != nil {
		return "", 0
	}
	return strings.Repeat("0", 4-len(digits)) + digits, end + 1
}

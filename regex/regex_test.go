package regex

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, sources ...string) Scanner {
	t.Helper()
	s, e := Default.Compile(sources)
	require.NoError(t, e)
	return s
}

func TestEarliestMatchWins(t *testing.T) {
	s := mustCompile(t, "c", "b", "a")
	m, e := s.FindNextMatch([]rune("xabc"), 0)
	require.NoError(t, e)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Index)
	assert.Equal(t, Capture{1, 2}, m.Captures[0])
}

func TestTieGoesToLowerIndex(t *testing.T) {
	s := mustCompile(t, "ab", "a", "abc")
	m, _ := s.FindNextMatch([]rune("abc"), 0)
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Index)
}

func TestNoMatch(t *testing.T) {
	s := mustCompile(t, "z")
	m, e := s.FindNextMatch([]rune("abc"), 0)
	assert.NoError(t, e)
	assert.Nil(t, m)

	m, _ = mustCompile(t, "a").FindNextMatch([]rune("abc"), 1)
	assert.Nil(t, m)
}

func TestCapturesAreRuneOffsets(t *testing.T) {
	s := mustCompile(t, `(ж+)(x)?(y)`)
	m, _ := s.FindNextMatch([]rune("ёжжy"), 0)
	require.NotNil(t, m)
	expected := []Capture{{1, 4}, {1, 3}, {-1, -1}, {3, 4}}
	if diff := cmp.Diff(expected, m.Captures); diff != "" {
		t.Fatalf("captures mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, m.Captures[2].Matched())
	assert.Equal(t, 0, m.Captures[2].Len())
	assert.Equal(t, 2, m.Captures[1].Len())
}

func TestAnchors(t *testing.T) {
	line := []rune("abab\n")

	m, _ := mustCompile(t, `\Gab`).FindNextMatch(line, 2)
	require.NotNil(t, m)
	assert.Equal(t, Capture{2, 4}, m.Captures[0])

	m, _ = mustCompile(t, `\Gb`).FindNextMatch(line, 0)
	assert.Nil(t, m)

	m, _ = mustCompile(t, `\Aab`).FindNextMatch(line, 2)
	assert.Nil(t, m)

	m, _ = mustCompile(t, `b$`).FindNextMatch(line, 0)
	require.NotNil(t, m)
	assert.Equal(t, Capture{3, 4}, m.Captures[0])

	m, _ = mustCompile(t, `$(?!\n)(?<!\n)`).FindNextMatch(line, 0)
	assert.Nil(t, m)
}

func TestBackReferences(t *testing.T) {
	m, _ := mustCompile(t, `(['"])x\1`).FindNextMatch([]rune(`'x" "x"`), 0)
	require.NotNil(t, m)
	assert.Equal(t, Capture{4, 7}, m.Captures[0])
}

func TestCompileErrorsKeepOtherPatterns(t *testing.T) {
	s, e := Default.Compile([]string{"(", "b", "[z"})
	require.Error(t, e)
	errs, valid := e.(CompileErrors)
	require.True(t, valid)
	require.Len(t, errs, 2)
	assert.Equal(t, 0, errs[0].Index)
	assert.Equal(t, 2, errs[1].Index)
	assert.Contains(t, e.Error(), `"("`)

	require.NotNil(t, s)
	m, _ := s.FindNextMatch([]rune("abc"), 0)
	require.NotNil(t, m)
	assert.Equal(t, 1, m.Index)

	_, e = Compile(Default, "(")
	assert.Error(t, e)
	single, e := Compile(Default, "b")
	require.NoError(t, e)
	assert.NotNil(t, single)
}

func TestTranslate(t *testing.T) {
	samples := map[string]string{
		`abc`:         `abc`,
		`\h+`:         `[0-9A-Fa-f]+`,
		`[\h_]`:       `[0-9A-Fa-f_]`,
		`\H`:          `[^0-9A-Fa-f]`,
		`\\h`:         `\\h`,
		`[]\h]`:       `[]0-9A-Fa-f]`,
		`[^]\h]\h`:    `[^]0-9A-Fa-f][0-9A-Fa-f]`,
		`\x{41}`:      `\u0041`,
		`\x{1F600}`:   `\x{1F600}`,
		`\x41`:        `\x41`,
		`a\`:          `a\`,
		`a++`:         `(?>a+)`,
		`\d*+x`:       `(?>\d*)x`,
		`[a-z]?+`:     `(?>[a-z]?)`,
		`(ab|c)++d`:   `(?>(ab|c)+)d`,
		`(?:a)*+`:     `(?>(?:a)*)`,
		`\x41++`:      `(?>\x41+)`,
		`\p{L}++`:     `(?>\p{L}+)`,
		`a+?b*`:       `a+?b*`,
		`a{2}+`:       `a{2}+`,
		`[+]+`:        `[+]+`,
		`[\]+]++`:     `(?>[\]+]+)`,
	}

	for src, expected := range samples {
		assert.Equal(t, expected, Translate(src), src)
	}

	m, _ := mustCompile(t, `0x\h+`).FindNextMatch([]rune("= 0x1fG"), 0)
	require.NotNil(t, m)
	assert.Equal(t, Capture{2, 6}, m.Captures[0])

	m, _ = mustCompile(t, `\d++`).FindNextMatch([]rune("x 123"), 0)
	require.NotNil(t, m)
	assert.Equal(t, Capture{2, 5}, m.Captures[0])

	m, _ = mustCompile(t, `"[^"]*+"`).FindNextMatch([]rune(`a "bc" d`), 0)
	require.NotNil(t, m)
	assert.Equal(t, Capture{2, 6}, m.Captures[0])
}

func TestMatchTimeout(t *testing.T) {
	engine := Regexp2{MatchTimeout: time.Millisecond}
	s, e := engine.Compile([]string{`(a+)+$`, `c`})
	require.NoError(t, e)
	line := []rune("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaab c")
	m, e := s.FindNextMatch(line, 0)
	assert.Error(t, e)
	require.NotNil(t, m)
	assert.Equal(t, 1, m.Index)
}

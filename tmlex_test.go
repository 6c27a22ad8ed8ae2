package tmlex_test

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/ava12/tmlex"
)

type pos struct {
	name      string
	line, col int
}

func (p pos) SourceName() string { return p.name }
func (p pos) Line() int          { return p.line }
func (p pos) Col() int           { return p.col }

func TestNewError(t *testing.T) {
	samples := []struct {
		name      string
		line, col int
		msg       string
	}{
		{"", 0, 0, "oops"},
		{"", 0, 5, "oops at col 5"},
		{"a.json", 0, 0, "oops in a.json"},
		{"a.json", 3, 0, "oops in a.json"},
		{"a.json", 3, 7, "oops in a.json at line 3 col 7"},
	}

	for _, s := range samples {
		e := tmlex.NewError(1, "oops", s.name, s.line, s.col)
		assert.Equal(t, s.msg, e.Error())
		assert.Equal(t, s.name, e.SourceName)
		assert.Equal(t, s.line, e.Line)
		assert.Equal(t, s.col, e.Col)
	}
}

func TestFormatError(t *testing.T) {
	e := tmlex.FormatError(2, "bad %s: %d", "value", 42)
	assert.Equal(t, "bad value: 42", e.Message)
	assert.Equal(t, 2, e.Code)

	e = tmlex.FormatError(2, "100%")
	assert.Equal(t, "100%", e.Message)

	e = tmlex.FormatErrorPos(pos{"g.yaml", 2, 4}, 3, "unexpected %q", "x")
	assert.Equal(t, `unexpected "x" in g.yaml at line 2 col 4`, e.Message)
	assert.Equal(t, "g.yaml", e.SourceName)
}

func TestHasCode(t *testing.T) {
	var e error = tmlex.NewError(tmlex.LoadErrors, "load failed", "", 0, 0)
	assert.True(t, tmlex.HasCode(e, tmlex.LoadErrors))
	assert.False(t, tmlex.HasCode(e, tmlex.DecodeErrors))
	assert.True(t, tmlex.HasCode(errors.Wrap(e, "outer"), tmlex.LoadErrors))
	assert.False(t, tmlex.HasCode(io.EOF, tmlex.LoadErrors))
	assert.False(t, tmlex.HasCode(nil, tmlex.LoadErrors))
}

// Package source splits multi-line text into lines and maps byte offsets to line/column positions.
package source

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

type Source struct {
	name          string
	content       []byte
	lineStarts    []int
	prevLineIndex int
}

func New(name string, content []byte) *Source {
	s := &Source{name: name, content: content, prevLineIndex: -1}
	lineCnt := bytes.Count(content, []byte("\n")) + 1
	s.lineStarts = make([]int, lineCnt)
	j := 1
	for i := 0; i < len(content) && j < lineCnt; i++ {
		if content[i] == '\n' {
			s.lineStarts[j] = i + 1
			j++
		}
	}

	return s
}

func FromString(name, content string) *Source {
	return New(name, []byte(content))
}

func (s *Source) Name() string {
	return s.name
}

func (s *Source) Content() []byte {
	return s.content
}

func (s *Source) Len() int {
	return len(s.content)
}

// LineCount returns the number of lines, a trailing newline starts an empty last line.
func (s *Source) LineCount() int {
	return len(s.lineStarts)
}

// Line returns the text of the line with given 0-based index without the line terminator.
func (s *Source) Line(index int) string {
	if index < 0 || index >= len(s.lineStarts) {
		return ""
	}

	start := s.lineStarts[index]
	end := len(s.content)
	if index+1 < len(s.lineStarts) {
		end = s.lineStarts[index+1] - 1
	}
	return string(s.content[start:end])
}

func (s *Source) Lines() []string {
	return strings.Split(string(s.content), "\n")
}

// LineCol returns 1-based line and column (in runes) for a byte offset.
func (s *Source) LineCol(pos int) (line, col int) {
	var lineIndex int
	if pos < 0 {
		pos = 0
		lineIndex = 0
	} else if pos >= len(s.content) {
		pos = len(s.content)
		lineIndex = len(s.lineStarts) - 1
	} else {
		lineIndex = s.findLineIndex(pos)
	}

	lineStart := s.lineStarts[lineIndex]
	return lineIndex + 1, utf8.RuneCount(s.content[lineStart:pos]) + 1
}

// Pos returns byte offset for 1-based line and byte column.
func (s *Source) Pos(line, col int) int {
	if line <= 0 || col <= 0 {
		return 0
	}

	l := len(s.content)
	if line > len(s.lineStarts) {
		return l
	}

	res := s.lineStarts[line-1] + col - 1
	if res > l {
		return l
	}
	return res
}

// At returns position information for 1-based line and column, suitable for error reporting.
func (s *Source) At(line, col int) Pos {
	return Pos{s, s.Pos(line, col), line, col}
}

func (s *Source) findLineIndex(pos int) int {
	if s.prevLineIndex >= 0 && s.lineStarts[s.prevLineIndex] <= pos {
		lineIndex := s.prevLineIndex
		last := len(s.lineStarts) - 1
		for lineIndex <= last && s.lineStarts[lineIndex] <= pos {
			lineIndex++
		}
		lineIndex--
		s.prevLineIndex = lineIndex
		return lineIndex
	}

	leftIndex := 0
	rightIndex := len(s.lineStarts) - 1
	index := 0
	if s.prevLineIndex >= 0 {
		rightIndex = s.prevLineIndex
	}
	for leftIndex < rightIndex {
		index = (leftIndex + rightIndex + 1) >> 1
		lineStart := s.lineStarts[index]
		if lineStart == pos {
			return index
		}

		if lineStart < pos {
			leftIndex = index
		} else {
			rightIndex = index - 1
			index = rightIndex
		}
	}
	s.prevLineIndex = index
	return index
}

// Pos is a position in a source, it implements tmlex.SourcePos.
type Pos struct {
	src             *Source
	pos, line, col int
}

func (p Pos) Source() *Source {
	return p.src
}

func (p Pos) SourceName() string {
	if p.src == nil {
		return ""
	}
	return p.src.name
}

func (p Pos) Pos() int {
	return p.pos
}

func (p Pos) Line() int {
	return p.line
}

func (p Pos) Col() int {
	return p.col
}

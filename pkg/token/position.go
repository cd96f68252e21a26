// Package token holds source positions shared by the configuration parsers.
package token

import "fmt"

// Position represents a location in a configuration file.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number (bytes)
	Offset int // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Before reports whether p comes strictly before q.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span represents a half-open range in a configuration file.
type Span struct {
	Start Position
	End   Position
}

// NewSpan builds a single-line span from a 1-based line, 1-based start
// column, byte length and the offset of the line's first byte.
func NewSpan(line, col, length, lineOffset int) Span {
	return Span{
		Start: Position{Line: line, Column: col, Offset: lineOffset + col - 1},
		End:   Position{Line: line, Column: col + length, Offset: lineOffset + col - 1 + length},
	}
}

// Contains returns true if the span contains the given offset.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}

// ContainsPos reports whether the 1-based line/column falls inside the span.
// The end column is inclusive so a cursor placed right after a word still
// resolves to it.
func (s Span) ContainsPos(line, col int) bool {
	if line < s.Start.Line || line > s.End.Line {
		return false
	}
	if line == s.Start.Line && col < s.Start.Column {
		return false
	}
	if line == s.End.Line && col > s.End.Column {
		return false
	}
	return true
}

// Len returns the byte length of the span.
func (s Span) Len() int {
	return s.End.Offset - s.Start.Offset
}

// IsValid returns true if both start and end positions are valid.
func (s Span) IsValid() bool {
	return s.Start.IsValid() && s.End.IsValid()
}

func (s Span) String() string {
	return s.Start.String() + "-" + s.End.String()
}

package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSpan(t *testing.T) {
	s := NewSpan(3, 5, 4, 20)

	assert.Equal(t, Position{Line: 3, Column: 5, Offset: 24}, s.Start)
	assert.Equal(t, Position{Line: 3, Column: 9, Offset: 28}, s.End)
	assert.Equal(t, 4, s.Len())
	assert.True(t, s.IsValid())
}

func TestSpanContainsPos(t *testing.T) {
	s := Span{
		Start: Position{Line: 2, Column: 3},
		End:   Position{Line: 4, Column: 6},
	}

	tests := []struct {
		name string
		line int
		col  int
		want bool
	}{
		{"before start line", 1, 10, false},
		{"before start column", 2, 2, false},
		{"at start", 2, 3, true},
		{"middle line any column", 3, 100, true},
		{"at end column", 4, 6, true},
		{"past end column", 4, 7, false},
		{"after end line", 5, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ContainsPos(tt.line, tt.col))
		})
	}
}

func TestPositionBefore(t *testing.T) {
	assert.True(t, Position{Line: 1, Column: 9}.Before(Position{Line: 2, Column: 1}))
	assert.True(t, Position{Line: 2, Column: 1}.Before(Position{Line: 2, Column: 2}))
	assert.False(t, Position{Line: 2, Column: 2}.Before(Position{Line: 2, Column: 2}))
	assert.False(t, Position{}.IsValid())
}

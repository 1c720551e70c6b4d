package strings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanList(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "trims whitespace", input: []string{"  ui  ", "api  "}, expected: []string{"ui", "api"}},
		{name: "drops empties", input: []string{"ui", "", "   ", "api"}, expected: []string{"ui", "api"}},
		{
			name:     "dedupes case-insensitively keeping first spelling",
			input:    []string{"Safari", "login", "safari", "LOGIN"},
			expected: []string{"Safari", "login"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanList(tt.input))
		})
	}
}

func TestLengthCountsRunes(t *testing.T) {
	assert.Equal(t, 3, Length("héé"))
	assert.Equal(t, 200, Length(strings.Repeat("ü", 200)))
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Cannot log in on Safari", "safari"))
	assert.True(t, ContainsFold("anything", ""))
	assert.False(t, ContainsFold("Login bug", "chrome"))
}

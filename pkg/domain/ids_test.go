package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "issuehub/pkg/domain-errors"
)

func TestParseIssueID(t *testing.T) {
	cases := []struct {
		name  string
		input string
		ok    bool
	}{
		{"canonical", "550e8400-e29b-41d4-a716-446655440000", true},
		{"upper case", "550E8400-E29B-41D4-A716-446655440000", true},
		{"empty", "", false},
		{"blank", "   ", false},
		{"nil uuid", uuid.Nil.String(), false},
		{"route fragment", "stats", false},
		{"sql fragment", "1 OR 1=1", false},
		{"embedded nul", "550e8400\x00-e29b-41d4-a716-446655440000", false},
		{"very long", strings.Repeat("f", 512), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseIssueID(tc.input)
			if tc.ok {
				require.NoError(t, err)
				assert.False(t, got.IsNil())
				assert.Equal(t, strings.ToLower(tc.input), got.String())
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			assert.True(t, got.IsNil())
		})
	}
}

func TestParseUserIDMessages(t *testing.T) {
	_, err := ParseUserID("")
	assert.EqualError(t, err, "user ID is required")

	_, err = ParseUserID("nope")
	assert.EqualError(t, err, "invalid user ID")

	_, err = ParseIssueID("nope")
	assert.EqualError(t, err, "invalid issue ID")
}

func TestIDsInJSON(t *testing.T) {
	type payload struct {
		Issue IssueID `json:"issue"`
		Owner UserID  `json:"owner"`
	}
	in := payload{Issue: NewIssueID(), Owner: NewUserID()}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"issue":"`+in.Issue.String()+`"`)

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	err = json.Unmarshal([]byte(`{"issue":"not-an-id"}`), &out)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestNewIDsAreDistinct(t *testing.T) {
	seen := make(map[IssueID]bool)
	for range 100 {
		next := NewIssueID()
		require.False(t, seen[next])
		seen[next] = true
	}
}

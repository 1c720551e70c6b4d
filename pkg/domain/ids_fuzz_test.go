package domain

import "testing"

func FuzzParseIssueID(f *testing.F) {
	for _, seed := range []string{
		"",
		"550e8400-e29b-41d4-a716-446655440000",
		"00000000-0000-0000-0000-000000000000",
		"{550e8400-e29b-41d4-a716-446655440000}",
		"urn:uuid:550e8400-e29b-41d4-a716-446655440000",
		"stats",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		issueID, err := ParseIssueID(input)
		_, userErr := ParseUserID(input)
		if (err == nil) != (userErr == nil) {
			t.Fatalf("issue and user parsing disagree on %q", input)
		}
		if err != nil {
			return
		}
		if issueID.IsNil() {
			t.Fatalf("accepted nil id from %q", input)
		}
		again, err := ParseIssueID(issueID.String())
		if err != nil || again != issueID {
			t.Fatalf("canonical form %q did not parse back", issueID.String())
		}
	})
}

package pipeline

import "testing"

func TestSanitizeCompletion(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "What is the refund window?", "What is the refund window?"},
		{"surrounding space", "  answer \n", "answer"},
		{"fenced", "```text\nstandalone question\n```", "standalone question"},
		{"tilde fenced", "~~~\nstandalone question\n~~~", "standalone question"},
		{"double quoted", `"standalone question"`, "standalone question"},
		{"single quoted", "'standalone question'", "standalone question"},
		{"internal quotes kept", `"it said "yes" here"`, `"it said "yes" here"`},
		{"empty fence", "```\n\n```", ""},
		{"bom", "\uFEFFquestion", "question"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeCompletion(tc.in); got != tc.want {
				t.Fatalf("sanitizeCompletion(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

package parser

import (
	"context"
	"testing"
)

func convertText(t *testing.T, input string) string {
	t.Helper()
	md, err := (&TextConverter{}).ToMarkdown(context.Background(), []byte(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return md
}

func TestTextConverter_ParagraphSplitting(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "basic",
			input: "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph.",
			want:  "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph.",
		},
		{name: "empty", input: "", want: ""},
		{name: "single line", input: "Hello world", want: "Hello world"},
		{name: "multiple blank lines", input: "Para one.\n\n\n\nPara two.", want: "Para one.\n\nPara two."},
		{name: "whitespace only lines", input: "Para one.\n   \nPara two.", want: "Para one.\n\nPara two."},
		{name: "crlf", input: "Para one.\r\n\r\nPara two.\r\n", want: "Para one.\n\nPara two."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convertText(t, tt.input); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

package utils

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if len(id) != 32 { // 16 bytes = 32 hex chars
		t.Errorf("GenerateID() returned length %d, want 32", len(id))
	}

	for _, c := range id {
		if !strings.ContainsAny(string(c), "0123456789abcdef") {
			t.Errorf("GenerateID() returned invalid hex character: %c", c)
		}
	}

	id2 := GenerateID()
	if id == id2 {
		t.Error("GenerateID() returned same ID twice")
	}
}

func TestFormatTime(t *testing.T) {
	testTime := time.Date(2024, 1, 15, 14, 30, 45, 0, time.UTC)
	formatted := FormatTime(testTime)
	if len(formatted) != 19 {
		t.Errorf("FormatTime() returned length %d, want 19", len(formatted))
	}
}

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{
			name:    "valid content",
			content: "Looks good to me, shipping it",
			want:    true,
		},
		{
			name:    "empty content",
			content: "",
			want:    false,
		},
		{
			name:    "too long",
			content: strings.Repeat("a", 4097),
			want:    false,
		},
		{
			name:    "max length",
			content: strings.Repeat("a", 4096),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateContent(tt.content); got != tt.want {
				t.Errorf("ValidateContent(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		max   int
		want  string
	}{
		{"short title untouched", "Fix login", 20, "Fix login"},
		{"long title truncated", "A very long task title here", 10, "A very ..."},
		{"whitespace trimmed", "  padded  ", 20, "padded"},
		{"zero max untouched", "anything", 0, "anything"},
		{"tiny max hard cut", "abcdef", 2, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateTitle(tt.title, tt.max); got != tt.want {
				t.Errorf("TruncateTitle(%q, %d) = %q, want %q", tt.title, tt.max, got, tt.want)
			}
		})
	}
}

package sanitizer

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trim spaces", input: "  Ana  ", want: "Ana"},
		{name: "multiple spaces between words", input: "Ana    Marija", want: "Ana Marija"},
		{name: "tabs and newlines", input: "Ana\t\nMarija", want: "Ana Marija"},
		{name: "empty string", input: "", want: ""},
		{name: "only whitespace", input: "   \t\n  ", want: ""},
		{name: "keeps accents", input: " Đorđe  Šarić ", want: "Đorđe Šarić"},
		{name: "drops control characters", input: "Ana\x00B", want: "AnaB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := NormalizeName(NormalizeName(tt.input)); again != tt.want {
				t.Errorf("NormalizeName is not idempotent for %q: %q", tt.input, again)
			}
		})
	}
}

func TestNormalizeName_Truncates(t *testing.T) {
	long := strings.Repeat("Đ", MaxNameLength+20)
	got := NormalizeName(long)
	if n := utf8.RuneCountInString(got); n != MaxNameLength {
		t.Errorf("expected %d runes, got %d", MaxNameLength, n)
	}

	spaced := strings.Repeat("a", MaxNameLength-1) + " b"
	if got := NormalizeName(spaced); strings.HasSuffix(got, " ") {
		t.Errorf("truncated name must not end in a space: %q", got)
	}
}

func TestSanitizeEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{" Guest@Example.COM ", "guest@example.com"},
		{"guest@example.com", "guest@example.com"},
		{"not-an-email", ""},
		{"a b@example.com", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeEmail(tt.input); got != tt.want {
				t.Errorf("SanitizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{" 7D3B8F2E-8C1A-4A6E-9A53-1B2C3D4E5F60 ", "7d3b8f2e-8c1a-4a6e-9a53-1b2c3d4e5f60"},
		{"65f0c2a1b3d4e5f6a7b8c9d0", "65f0c2a1b3d4e5f6a7b8c9d0"},
		{"{$ne: 1}", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeID(tt.input); got != tt.want {
				t.Errorf("SanitizeID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIDs(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil input", nil, []string{}},
		{"dedupes case-insensitively", []string{"ABC-1", "abc-1", " abc-1 "}, []string{"abc-1"}},
		{"drops invalid and empty", []string{"", "x y", "id-2"}, []string{"id-2"}},
		{"keeps order", []string{"b", "a", "b"}, []string{"b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeIDs(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeIDs(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

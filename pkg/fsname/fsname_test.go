package fsname

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Hello World", "Hello World"},
		{"unsafe_chars", `a/b\c:d*e?f"g<h>i|j`, "abcdefghij"},
		{"whitespace_collapse", "a \t b\n\nc", "a b c"},
		{"leading_trailing", "  spaced  ", "spaced"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Sanitize(tc.in); got != tc.want {
				t.Fatalf("Sanitize(%q) = %q; want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeTrimsLength(t *testing.T) {
	long := strings.Repeat("x", 400)
	got := Sanitize(long)
	if len(got) != MaxLen {
		t.Fatalf("len = %d; want %d", len(got), MaxLen)
	}
}

func TestPretty(t *testing.T) {
	tests := []struct {
		name                       string
		title, channel, uploadDate string
		want                       string
	}{
		{"with_date", "Foo", "Bar", "20230115", "Foo - Bar (01-2023)"},
		{"empty_date", "Foo", "Bar", "", "Foo - Bar"},
		{"short_date", "Foo", "Bar", "2023", "Foo - Bar"},
		{"non_digit_date", "Foo", "Bar", "2023011x", "Foo - Bar"},
		{"unsafe_title", "Fo/o", "B:ar", "20230115", "Foo - Bar (01-2023)"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Pretty(tc.title, tc.channel, tc.uploadDate)
			if got != tc.want {
				t.Fatalf("Pretty(%q, %q, %q) = %q; want %q",
					tc.title, tc.channel, tc.uploadDate, got, tc.want)
			}
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid", "20230115", "2023-01-15"},
		{"empty", "", ""},
		{"too_short", "202301", ""},
		{"too_long", "202301150", ""},
		{"non_digits", "2023-1-5", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeDate(tc.in); got != tc.want {
				t.Fatalf("NormalizeDate(%q) = %q; want %q", tc.in, got, tc.want)
			}
		})
	}
}

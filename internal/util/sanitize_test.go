package util

import "testing"

func TestSanitizeForLog(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Mozilla/5.0", "Mozilla/5.0"},
		{"newlines", "line1\r\nline2\nline3", "line1 line2 line3"},
		{"control", "a\x00b\x1fc", "a b c"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeForLog(tc.in); got != tc.want {
				t.Fatalf("SanitizeForLog(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeForLogTruncates(t *testing.T) {
	long := make([]byte, 2048)
	for i := range long {
		long[i] = 'a'
	}
	if got := SanitizeForLog(string(long)); len(got) != 512 {
		t.Fatalf("expected 512 chars, got %d", len(got))
	}
}

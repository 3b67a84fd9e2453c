package utils

import (
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "Alice", 10, "Alice"},
		{"ascii cut", "alice@example.com", 5, "alice..."},
		{"zero width", "x", 0, "x"},
		{"exact width", "Bob", 3, "Bob"},
		{"accented not split", "Zoë Ångström-Ødegård", 3, "Zoë..."},
		{"wide runes", "山田太郎", 5, "山田..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.width)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Truncate(%q, %d) produced invalid UTF-8", tt.in, tt.width)
			}
		})
	}
}

package strings

import "testing"

func TestPluralize(t *testing.T) {
	if got := Pluralize("item", 1); got != "item" {
		t.Errorf("Pluralize(item, 1) = %q", got)
	}
	if got := Pluralize("item", 0); got != "items" {
		t.Errorf("Pluralize(item, 0) = %q", got)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.in); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s     string
		width int
		want  string
	}{
		{"report.pdf", 20, "report.pdf"},
		{"report.pdf", 7, "report…"},
		{"report.pdf", 1, "r"},
		{"report.pdf", 0, ""},
		{"日本語ファイル", 4, "日本語…"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.s, tt.width); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.width, got, tt.want)
		}
	}
}

package filter

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rescale/rescale-space/internal/models"
)

func item(rel string, kind models.Kind) models.Item {
	path := filepath.Join("/data", filepath.FromSlash(rel))
	return models.Item{Path: path, Name: filepath.Base(path), Kind: kind}
}

func names(items []models.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestApply(t *testing.T) {
	items := []models.Item{
		item("results", models.KindDirectory),
		item("results.dat", models.KindFile),
		item("debug.log", models.KindFile),
		item("notes.txt", models.KindFile),
		item("Final_Results.txt", models.KindFile),
	}

	tests := []struct {
		name   string
		config Config
		want   []string
	}{
		{
			name:   "no filters",
			config: Config{},
			want:   []string{"results", "results.dat", "debug.log", "notes.txt", "Final_Results.txt"},
		},
		{
			name:   "include keeps directories",
			config: Config{Include: []string{"*.txt"}},
			want:   []string{"results", "notes.txt", "Final_Results.txt"},
		},
		{
			name:   "exclude wins over include",
			config: Config{Include: []string{"*.txt", "*.log"}, Exclude: []string{"debug*"}},
			want:   []string{"results", "notes.txt", "Final_Results.txt"},
		},
		{
			name:   "exclude applies to directories",
			config: Config{Exclude: []string{"results"}},
			want:   []string{"results.dat", "debug.log", "notes.txt", "Final_Results.txt"},
		},
		{
			name:   "search is case-insensitive and needs every term",
			config: Config{Search: []string{"RESULTS", "final"}},
			want:   []string{"Final_Results.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(Apply(items, "/data", tt.config))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchPathInclude(t *testing.T) {
	tests := []struct {
		rel     string
		pattern string
		want    bool
	}{
		{"run_1/out.dat", "run_*/*.dat", true},
		{"run_1/sub/out.dat", "run_*/*.dat", false},
		{"a/b/c/results.dat", "**/results.dat", true},
		{"results.dat", "**/results.dat", true},
		{"run_1/a/b/file.txt", "run_1/**", true},
		{"run_2/file.txt", "run_1/**", false},
		{"src/a/b/util.go", "src/**/*.go", true},
		{"lib/a/util.go", "src/**/*.go", false},
		{"anything/at/all", "**", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.rel, func(t *testing.T) {
			got := Match(item(tt.rel, models.KindFile), "/data", Config{PathInclude: []string{tt.pattern}})
			if got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.rel, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestParsePatternList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"*.dat", []string{"*.dat"}},
		{"*.dat, *.txt ,,", []string{"*.dat", "*.txt"}},
	}

	for _, tt := range tests {
		got := ParsePatternList(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParsePatternList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

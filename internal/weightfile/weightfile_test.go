package weightfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bettershuffle/internal/core"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []core.WeightOverride
	}{
		{
			name:  "Single override",
			input: "Song A = 3\n",
			expected: []core.WeightOverride{
				{Name: "Song A", Weight: 3, Line: 1},
			},
		},
		{
			name:  "CRLF line endings",
			input: "Song A = 3\r\nSong B = 0\r\n",
			expected: []core.WeightOverride{
				{Name: "Song A", Weight: 3, Line: 1},
				{Name: "Song B", Weight: 0, Line: 2},
			},
		},
		{
			name:  "Blank lines are skipped but counted",
			input: "\nSong A = 2\n   \nSong B=5",
			expected: []core.WeightOverride{
				{Name: "Song A", Weight: 2, Line: 2},
				{Name: "Song B", Weight: 5, Line: 4},
			},
		},
		{
			name:  "Name containing an equals sign",
			input: "E=MC2 = 3\n",
			expected: []core.WeightOverride{
				{Name: "E=MC2", Weight: 3, Line: 1},
			},
		},
		{
			name:  "Largest allowed weight",
			input: "Song = 10000\n",
			expected: []core.WeightOverride{
				{Name: "Song", Weight: core.MaxWeight, Line: 1},
			},
		},
		{
			name:     "Empty file",
			input:    "",
			expected: nil,
		},
		{
			name:  "Duplicate names are kept in order",
			input: "A = 1\nA = 4\n",
			expected: []core.WeightOverride{
				{Name: "A", Weight: 1, Line: 1},
				{Name: "A", Weight: 4, Line: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("Parse() = %+v, want %+v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Parse()[%d] = %+v, want %+v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"Missing separator", "Song A 3\n", 1},
		{"Two separators", "Song = A = 3\n", 1},
		{"Non-integer weight", "Song A = 3\nSong B = lots\n", 2},
		{"Negative weight", "Song A = -1\n", 1},
		{"Empty name", " = 2\n", 1},
		{"Fractional weight", "\n\nSong = 1.5\n", 3},
		{"Two unspaced separators", "E=MC2=3\n", 1},
		{"Weight above the playlist limit", "Song = 10001\n", 1},
		{"Weight overflowing int", "Song = 99999999999999999999\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			if got != nil {
				t.Errorf("Parse() returned overrides %+v alongside an error", got)
			}
			var parseErr *core.ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("Parse() error = %v, want *core.ParseError", err)
			}
			if parseErr.Line != tt.line {
				t.Errorf("ParseError.Line = %d, want %d", parseErr.Line, tt.line)
			}
		})
	}
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.txt")
	if err := os.WriteFile(path, []byte("Song A = 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "Song A" || got[0].Weight != 3 {
		t.Errorf("Read() = %+v", got)
	}

	if _, err := Read(filepath.Join(t.TempDir(), "missing.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Read() of missing file error = %v, want os.ErrNotExist", err)
	}
}

package core

import (
	"io"
	"strings"
	"testing"
)

func TestNewCleanReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "utf-8 BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("DT;05/03/2024")...),
			expected: "DT;05/03/2024",
		},
		{
			name:     "no BOM",
			input:    []byte("DT;05/03/2024"),
			expected: "DT;05/03/2024",
		},
		{
			name:     "empty",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "utf-16 little endian",
			input:    []byte{0xFF, 0xFE, 'W', 0, 'k', 0},
			expected: "Wk",
		},
		{
			name:     "invalid byte replaced",
			input:    []byte{'M', 'O', 0xE9},
			expected: "MO�",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewCleanReader(strings.NewReader(string(tt.input))))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewCleanReader_ExportRoundTrip(t *testing.T) {
	var b strings.Builder
	recs := []Record{{ID: "05/03/2024-08:30", Date: "05/03/2024", Time: "08:30", Model: "BC-601", Weight: 72.4}}
	if err := ExportCSV(&b, recs, nil); err != nil {
		t.Fatalf("export: %v", err)
	}

	got, err := io.ReadAll(NewCleanReader(strings.NewReader(b.String())))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.HasPrefix(string(got), utf8BOM) {
		t.Error("BOM was not stripped")
	}
	if !strings.HasPrefix(string(got), `"date";"time"`) {
		t.Errorf("unexpected start: %q", string(got[:20]))
	}
}
